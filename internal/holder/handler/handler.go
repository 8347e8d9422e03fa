// Package handler exposes the holder operations over an admin HTTP surface.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"holdfast/internal/holder/models"
	"holdfast/internal/holder/ports"
	"holdfast/internal/holder/service"
	dErrors "holdfast/pkg/domain-errors"
	"holdfast/pkg/platform/httputil"
)

type Handler struct {
	service *service.Service
	ledger  ports.Ledger
	logger  *slog.Logger
}

// Option configures the handler.
type Option func(*Handler)

// WithLedger enables the revocation-check route.
func WithLedger(ledger ports.Ledger) Option {
	return func(h *Handler) { h.ledger = ledger }
}

// WithLogger configures a logger for the handler.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

func New(service *service.Service, opts ...Option) *Handler {
	h := &Handler{service: service}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/credential/{credential_id}", h.HandleGetCredential)
	r.Delete("/credential/{credential_id}", h.HandleDeleteCredential)
	r.Get("/credential/mime-types/{credential_id}", h.HandleGetMimeTypes)
	r.Get("/credential/revoked/{credential_id}", h.HandleCredentialRevoked)
	r.Get("/credentials", h.HandleListCredentials)
	r.Post("/present-proof/credentials", h.HandlePresentationCredentials)
}

// HandleGetCredential fetches a stored credential by id.
func (h *Handler) HandleGetCredential(w http.ResponseWriter, r *http.Request) {
	credentialID := chi.URLParam(r, "credential_id")

	credential, err := h.service.GetCredential(r.Context(), credentialID)
	if err != nil {
		h.logError(r, "get credential failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, credential)
}

// HandleDeleteCredential removes a stored credential and its metadata.
func (h *Handler) HandleDeleteCredential(w http.ResponseWriter, r *http.Request) {
	credentialID := chi.URLParam(r, "credential_id")

	if err := h.service.DeleteCredential(r.Context(), credentialID); err != nil {
		h.logError(r, "delete credential failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{})
}

// HandleGetMimeTypes returns a credential's attribute MIME-type map; an
// empty result means no metadata record exists.
func (h *Handler) HandleGetMimeTypes(w http.ResponseWriter, r *http.Request) {
	credentialID := chi.URLParam(r, "credential_id")

	mimeTypes, err := h.service.GetMimeTypes(r.Context(), credentialID)
	if err != nil {
		h.logError(r, "get mime types failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"results": mimeTypes})
}

// HandleCredentialRevoked checks the credential's revocation status over the
// from/to query interval.
func (h *Handler) HandleCredentialRevoked(w http.ResponseWriter, r *http.Request) {
	if h.ledger == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "ledger not configured"))
		return
	}
	credentialID := chi.URLParam(r, "credential_id")
	from, ok := queryInt(w, r, "from", 0)
	if !ok {
		return
	}
	to, ok := queryInt(w, r, "to", 0)
	if !ok {
		return
	}

	revoked, err := h.service.CredentialRevoked(r.Context(), h.ledger, credentialID, from, to)
	if err != nil {
		h.logError(r, "revocation check failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"revoked": revoked})
}

// HandleListCredentials returns a page of wallet credentials matching the
// optional wql query parameter.
func (h *Handler) HandleListCredentials(w http.ResponseWriter, r *http.Request) {
	start, ok := queryInt(w, r, "start", 0)
	if !ok {
		return
	}
	count, ok := queryInt(w, r, "count", 10)
	if !ok {
		return
	}
	query := models.WQL{}
	if raw := r.URL.Query().Get("wql"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &query); err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "wql must be valid JSON"))
			return
		}
	}

	credentials, err := h.service.GetCredentials(r.Context(), int(start), int(count), query)
	if err != nil {
		h.logError(r, "list credentials failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"results": credentials})
}

// PresentationCredentialsRequest is the body of the presentation-request
// matching route.
type PresentationCredentialsRequest struct {
	PresentationRequest models.PresentationRequest `json:"presentation_request"`
	Referents           []string                   `json:"referents,omitempty"`
	Start               int                        `json:"start,omitempty"`
	Count               int                        `json:"count,omitempty"`
	ExtraQuery          models.WQL                 `json:"extra_query,omitempty"`
}

// HandlePresentationCredentials returns the bounded, merged credential list
// eligible for a presentation request.
func (h *Handler) HandlePresentationCredentials(w http.ResponseWriter, r *http.Request) {
	var req PresentationCredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if req.Start < 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "start must be non-negative"))
		return
	}
	if req.Count <= 0 {
		req.Count = 10
	}

	matches, err := h.service.GetCredentialsForPresentationRequestByReferent(
		r.Context(), req.PresentationRequest, req.Referents, req.Start, req.Count, req.ExtraQuery)
	if err != nil {
		h.logError(r, "presentation request search failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"results": matches})
}

func (h *Handler) logError(r *http.Request, msg string, err error) {
	if h.logger == nil {
		return
	}
	h.logger.ErrorContext(r.Context(), msg, "error", err, "path", r.URL.Path)
}

func queryInt(w http.ResponseWriter, r *http.Request, name string, def int64) (int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value < 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, name+" must be a non-negative integer"))
		return 0, false
	}
	return value, true
}
