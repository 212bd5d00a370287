package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/application"
)

func (h *Handler) openAccount(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingClaimsError(r.Context(), w, "open_account")
		return
	}
	idempotencyKey, err := idempotencyKeyFromHeader(r)
	if err != nil {
		writeValidationError(r.Context(), w, "open_account", err)
		return
	}

	var req application.OpenAccountRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "open_account", err)
		return
	}
	req.ParticipantID = claims.ParticipantID

	res, err := h.service.OpenAccount(r.Context(), req, idempotencyKey)
	if err != nil {
		writeMappedError(r.Context(), w, "open_account", err)
		return
	}

	w.Header().Set("X-Idempotency-Key", idempotencyKey)
	if res.IdempotencyReplay {
		w.Header().Set("X-Idempotency-Replay", "true")
		writeJSON(w, http.StatusOK, res)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingClaimsError(r.Context(), w, "get_account")
		return
	}

	res, err := h.service.GetAccount(r.Context(), chi.URLParam(r, "accountId"), claims.ParticipantID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_account", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
