package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/application"
)

func (h *Handler) createConsent(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingClaimsError(r.Context(), w, "create_consent")
		return
	}

	var req application.CreateConsentRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "create_consent", err)
		return
	}
	req.ParticipantID = claims.ParticipantID

	res, err := h.service.CreateConsent(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "create_consent", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) authorizeConsent(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingClaimsError(r.Context(), w, "authorize_consent")
		return
	}

	res, err := h.service.AuthorizeConsent(r.Context(), chi.URLParam(r, "consentId"), claims.ParticipantID)
	if err != nil {
		writeMappedError(r.Context(), w, "authorize_consent", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) revokeConsent(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingClaimsError(r.Context(), w, "revoke_consent")
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeValidationError(r.Context(), w, "revoke_consent", err)
		return
	}
	if body.Reason == "" {
		writeValidationError(r.Context(), w, "revoke_consent", errors.New("revocation reason is required"))
		return
	}

	res, err := h.service.RevokeConsent(r.Context(), chi.URLParam(r, "consentId"), claims.ParticipantID, body.Reason)
	if err != nil {
		writeMappedError(r.Context(), w, "revoke_consent", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) renewConsent(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingClaimsError(r.Context(), w, "renew_consent")
		return
	}

	var body struct {
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeValidationError(r.Context(), w, "renew_consent", err)
		return
	}

	res, err := h.service.RenewConsent(r.Context(), chi.URLParam(r, "consentId"), claims.ParticipantID, body.ExpiresAt)
	if err != nil {
		writeMappedError(r.Context(), w, "renew_consent", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) getConsent(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingClaimsError(r.Context(), w, "get_consent")
		return
	}

	res, err := h.service.GetConsent(r.Context(), chi.URLParam(r, "consentId"), claims.ParticipantID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_consent", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
