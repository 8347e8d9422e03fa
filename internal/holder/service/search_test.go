package service

import (
	"context"
	"errors"
	"fmt"

	"holdfast/internal/holder/models"
	dErrors "holdfast/pkg/domain-errors"
)

func credInfo(id, revRegID string) models.CredentialInfo {
	return models.CredentialInfo{
		Referent:  id,
		SchemaID:  "schema:1",
		CredDefID: "creddef:1",
		RevRegID:  revRegID,
		Attrs:     map[string]string{"attr1": "value"},
	}
}

func presCred(id, revRegID string) models.PresentationCredential {
	return models.PresentationCredential{CredInfo: credInfo(id, revRegID)}
}

func (s *ServiceSuite) TestGetCredentialsSlicesTheBackendOrdering() {
	items := make([]models.CredentialInfo, 10)
	for i := range items {
		items[i] = credInfo(fmt.Sprintf("cred-%02d", i), "")
	}
	s.wallet.search = &fakeCredentialSearch{items: items}

	got, err := s.service.GetCredentials(context.Background(), 3, 4, nil)
	s.Require().NoError(err)
	s.Require().Len(got, 4)
	s.Equal("cred-03", got[0].Referent)
	s.Equal("cred-06", got[3].Referent)
	s.Equal(1, s.wallet.search.closes)
}

func (s *ServiceSuite) TestGetCredentialsPastTheEnd() {
	s.wallet.search = &fakeCredentialSearch{items: []models.CredentialInfo{
		credInfo("cred-0", ""),
	}}

	got, err := s.service.GetCredentials(context.Background(), 5, 10, nil)
	s.Require().NoError(err)
	s.Empty(got)
	s.Equal(1, s.wallet.search.closes)
}

func (s *ServiceSuite) TestGetCredentialsClosesSessionOnFetchError() {
	s.wallet.search = &fakeCredentialSearch{fetchErr: errors.New("cursor gone")}

	_, err := s.service.GetCredentials(context.Background(), 0, 5, nil)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeBackend))
	s.Contains(err.Error(), "cannot fetch credentials from wallet")
	s.Equal(1, s.wallet.search.closes)
}

func (s *ServiceSuite) TestGetCredentialsOpenFailure() {
	s.wallet.openErr = errors.New("no session")
	_, err := s.service.GetCredentials(context.Background(), 0, 5, nil)
	s.Require().Error(err)
	s.Contains(err.Error(), "cannot construct wallet credential query")
}

func (s *ServiceSuite) TestPresentationSearchIrrevocableFirst() {
	// both credentials satisfy attr1; the revocable one was stored first
	s.wallet.presSearch = &fakePresentationSearch{
		byReferent: map[string][]models.PresentationCredential{
			"attr1": {presCred("B", "rev:1"), presCred("A", "")},
		},
	}
	request := models.PresentationRequest{
		RequestedAttributes: map[string]models.AttributeSpec{
			"attr1": {Name: "attr1"},
		},
	}

	got, err := s.service.GetCredentialsForPresentationRequestByReferent(
		context.Background(), request, nil, 0, 10, nil)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("A", got[0].CredInfo.Referent)
	s.Equal("B", got[1].CredInfo.Referent)
	s.Equal([]string{"attr1"}, got[0].PresentationReferents)
	s.Equal(1, s.wallet.presSearch.closes)
}

func (s *ServiceSuite) TestPresentationSearchMergesReferents() {
	s.wallet.presSearch = &fakePresentationSearch{
		byReferent: map[string][]models.PresentationCredential{
			"attr1": {presCred("A", "")},
			"pred1": {presCred("A", ""), presCred("C", "")},
		},
	}
	request := models.PresentationRequest{
		RequestedAttributes: map[string]models.AttributeSpec{
			"attr1": {Name: "attr1"},
		},
		RequestedPredicates: map[string]models.PredicateSpec{
			"pred1": {Name: "age", PType: ">=", PValue: 18},
		},
	}

	got, err := s.service.GetCredentialsForPresentationRequestByReferent(
		context.Background(), request, nil, 0, 10, nil)
	s.Require().NoError(err)
	s.Require().Len(got, 2)

	// one entry per credential, annotated with every referent it satisfied
	s.Equal("A", got[0].CredInfo.Referent)
	s.Equal([]string{"attr1", "pred1"}, got[0].PresentationReferents)
	s.Equal("C", got[1].CredInfo.Referent)
	s.Equal([]string{"pred1"}, got[1].PresentationReferents)
}

func (s *ServiceSuite) TestPresentationSearchBudgetIsShared() {
	s.wallet.presSearch = &fakePresentationSearch{
		byReferent: map[string][]models.PresentationCredential{
			"attr1": {presCred("A", ""), presCred("B", "")},
			"attr2": {presCred("C", "")},
		},
	}
	request := models.PresentationRequest{
		RequestedAttributes: map[string]models.AttributeSpec{
			"attr1": {Name: "attr1"},
			"attr2": {Name: "attr2"},
		},
	}

	got, err := s.service.GetCredentialsForPresentationRequestByReferent(
		context.Background(), request, nil, 0, 2, nil)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	// the budget was exhausted on attr1; attr2 was never queried
	s.Equal("A", got[0].CredInfo.Referent)
	s.Equal("B", got[1].CredInfo.Referent)
	s.Zero(s.wallet.presSearch.pos["attr2"])
}

func (s *ServiceSuite) TestPresentationSearchExplicitReferents() {
	s.wallet.presSearch = &fakePresentationSearch{
		byReferent: map[string][]models.PresentationCredential{
			"attr1": {presCred("A", "")},
			"attr2": {presCred("C", "")},
		},
	}

	got, err := s.service.GetCredentialsForPresentationRequestByReferent(
		context.Background(), models.PresentationRequest{}, []string{"attr2"}, 0, 10, nil)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal("C", got[0].CredInfo.Referent)
}

func (s *ServiceSuite) TestPresentationSearchSkipsStart() {
	s.wallet.presSearch = &fakePresentationSearch{
		byReferent: map[string][]models.PresentationCredential{
			"attr1": {presCred("A", ""), presCred("B", ""), presCred("C", "")},
		},
	}

	got, err := s.service.GetCredentialsForPresentationRequestByReferent(
		context.Background(), models.PresentationRequest{}, []string{"attr1"}, 1, 10, nil)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("B", got[0].CredInfo.Referent)
	s.Equal("C", got[1].CredInfo.Referent)
}

func (s *ServiceSuite) TestPresentationSearchClosesSessionOnError() {
	s.wallet.presSearch = &fakePresentationSearch{fetchErr: errors.New("cursor gone")}

	_, err := s.service.GetCredentialsForPresentationRequestByReferent(
		context.Background(), models.PresentationRequest{}, []string{"attr1"}, 0, 5, nil)
	s.Require().Error(err)
	s.Contains(err.Error(), "cannot fetch credentials from wallet for presentation request")
	s.Equal(1, s.wallet.presSearch.closes)
}

func (s *ServiceSuite) TestPresentationSearchOpenFailure() {
	s.wallet.openPres = errors.New("no session")
	_, err := s.service.GetCredentialsForPresentationRequestByReferent(
		context.Background(), models.PresentationRequest{}, nil, 0, 5, nil)
	s.Require().Error(err)
	s.Contains(err.Error(), "cannot construct wallet credential query")
}
