package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"holdfast/internal/holder/models"
	dErrors "holdfast/pkg/domain-errors"
)

type fakeTailsResolver struct {
	reader *countingReadCloser
	err    error
}

func (r *fakeTailsResolver) Resolve(_ context.Context, _ string) (io.ReadCloser, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.reader, nil
}

type countingReadCloser struct {
	io.Reader
	closes int
}

func (r *countingReadCloser) Close() error {
	r.closes++
	return nil
}

func (s *ServiceSuite) TestCreateRevocationState() {
	reader := &countingReadCloser{Reader: strings.NewReader("tails")}
	s.service.tails = &fakeTailsResolver{reader: reader}
	s.wallet.revState = json.RawMessage(`{"witness":1}`)

	state, err := s.service.CreateRevocationState(context.Background(),
		"17", nil, models.RevRegDelta{}, 42, "/tails/rev1")
	s.Require().NoError(err)
	s.JSONEq(`{"witness":1}`, string(state))
	s.Equal(1, reader.closes)
}

func (s *ServiceSuite) TestCreateRevocationStateResolverFailure() {
	s.service.tails = &fakeTailsResolver{err: errors.New("no such file")}

	_, err := s.service.CreateRevocationState(context.Background(),
		"17", nil, models.RevRegDelta{}, 42, "/tails/rev1")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeBackend))
	s.Contains(err.Error(), "cannot construct revocation state")
}

func (s *ServiceSuite) TestCreateRevocationStateEngineFailure() {
	reader := &countingReadCloser{Reader: strings.NewReader("tails")}
	s.service.tails = &fakeTailsResolver{reader: reader}
	s.wallet.revStateErr = errors.New("engine down")

	_, err := s.service.CreateRevocationState(context.Background(),
		"17", nil, models.RevRegDelta{}, 42, "/tails/rev1")
	s.Require().Error(err)
	s.Contains(err.Error(), "cannot construct revocation state")
	// the tails stream is still released
	s.Equal(1, reader.closes)
}

func (s *ServiceSuite) TestCreateRevocationStateWithoutResolver() {
	_, err := s.service.CreateRevocationState(context.Background(),
		"17", nil, models.RevRegDelta{}, 42, "/tails/rev1")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}
