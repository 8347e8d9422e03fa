package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holdfast/internal/holder/models"
	"holdfast/internal/holder/service"
	"holdfast/internal/holder/store"
	"holdfast/internal/holder/wallet"
	"holdfast/internal/records"
)

type stubLedger struct {
	delta models.RevRegDelta
}

func (l *stubLedger) GetRevocRegDelta(_ context.Context, _ string, _, to int64) (models.RevRegDelta, int64, error) {
	return l.delta, to, nil
}

type fixture struct {
	router http.Handler
	wallet *wallet.InMemoryWallet
	svc    *service.Service
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	w := wallet.NewInMemory()
	metadata, err := store.NewMetadataStore(records.NewMemoryStorage())
	require.NoError(t, err)
	svc := service.NewService(w, metadata)

	r := chi.NewRouter()
	New(svc, opts...).Register(r)
	return &fixture{router: r, wallet: w, svc: svc}
}

func (f *fixture) store(t *testing.T, id string, cred models.Credential, mimeTypes map[string]string) string {
	t.Helper()
	got, err := f.svc.StoreCredential(context.Background(), nil, cred, nil, mimeTypes, id, nil)
	require.NoError(t, err)
	return got
}

func (f *fixture) do(t *testing.T, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	return doc
}

func aliceCred() models.Credential {
	return models.Credential{
		SchemaID:  "schema:1",
		CredDefID: "creddef:1",
		Values: map[string]models.AttributeValue{
			"name": {Raw: "alice"},
		},
	}
}

func TestGetCredential(t *testing.T) {
	f := newFixture(t)
	f.store(t, "cred-1", aliceCred(), nil)

	rec := f.do(t, http.MethodGet, "/credential/cred-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decodeBody(t, rec)
	assert.Equal(t, "schema:1", doc["schema_id"])

	rec = f.do(t, http.MethodGet, "/credential/absent", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteCredential(t *testing.T) {
	f := newFixture(t)
	f.store(t, "cred-1", aliceCred(), map[string]string{"name": "text/plain"})

	rec := f.do(t, http.MethodDelete, "/credential/cred-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/credential/cred-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodDelete, "/credential/cred-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetMimeTypes(t *testing.T) {
	f := newFixture(t)
	f.store(t, "cred-1", aliceCred(), map[string]string{"name": "text/plain"})

	rec := f.do(t, http.MethodGet, "/credential/mime-types/cred-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decodeBody(t, rec)
	assert.Equal(t, map[string]any{"name": "text/plain"}, doc["results"])

	// absence is an empty result, not an error
	rec = f.do(t, http.MethodGet, "/credential/mime-types/other", "")
	require.Equal(t, http.StatusOK, rec.Code)
	doc = decodeBody(t, rec)
	assert.Nil(t, doc["results"])
}

func TestCredentialRevoked(t *testing.T) {
	ledger := &stubLedger{delta: models.RevRegDelta{
		Value: models.RevRegDeltaValue{Revoked: []int64{17}},
	}}
	f := newFixture(t, WithLedger(ledger))

	revocable := aliceCred()
	revocable.RevRegID = "rev:1"
	revocable.CredRevID = "17"
	f.store(t, "cred-1", revocable, nil)

	rec := f.do(t, http.MethodGet, "/credential/revoked/cred-1?from=0&to=100", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["revoked"])

	rec = f.do(t, http.MethodGet, "/credential/revoked/cred-1?to=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCredentialRevokedWithoutLedger(t *testing.T) {
	f := newFixture(t)
	f.store(t, "cred-1", aliceCred(), nil)

	rec := f.do(t, http.MethodGet, "/credential/revoked/cred-1", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListCredentials(t *testing.T) {
	f := newFixture(t)
	f.store(t, "cred-1", aliceCred(), nil)
	other := aliceCred()
	other.SchemaID = "schema:2"
	f.store(t, "cred-2", other, nil)

	rec := f.do(t, http.MethodGet, "/credentials", "")
	require.Equal(t, http.StatusOK, rec.Code)
	results := decodeBody(t, rec)["results"].([]any)
	assert.Len(t, results, 2)

	wql := url.QueryEscape(`{"schema_id":"schema:2"}`)
	rec = f.do(t, http.MethodGet, "/credentials?wql="+wql, "")
	require.Equal(t, http.StatusOK, rec.Code)
	results = decodeBody(t, rec)["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, "cred-2", results[0].(map[string]any)["referent"])

	rec = f.do(t, http.MethodGet, "/credentials?start=1&count=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	results = decodeBody(t, rec)["results"].([]any)
	assert.Len(t, results, 1)

	rec = f.do(t, http.MethodGet, "/credentials?start=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/credentials?wql=not-json", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPresentationCredentials(t *testing.T) {
	f := newFixture(t)
	f.store(t, "cred-1", aliceCred(), nil)

	body := `{
		"presentation_request": {
			"requested_attributes": {
				"attr1": {"name": "name"}
			},
			"requested_predicates": {}
		}
	}`
	rec := f.do(t, http.MethodPost, "/present-proof/credentials", body)
	require.Equal(t, http.StatusOK, rec.Code)
	results := decodeBody(t, rec)["results"].([]any)
	require.Len(t, results, 1)
	match := results[0].(map[string]any)
	credInfo := match["cred_info"].(map[string]any)
	assert.Equal(t, "cred-1", credInfo["referent"])
	assert.Equal(t, []any{"attr1"}, match["presentation_referents"])

	rec = f.do(t, http.MethodPost, "/present-proof/credentials", "not-json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/present-proof/credentials", `{"start": -1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
