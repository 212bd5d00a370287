package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/application"
)

func (h *Handler) createPayment(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingClaimsError(r.Context(), w, "create_payment")
		return
	}
	idempotencyKey, err := idempotencyKeyFromHeader(r)
	if err != nil {
		writeValidationError(r.Context(), w, "create_payment", err)
		return
	}

	var req application.PaymentRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "create_payment", err)
		return
	}
	req.ParticipantID = claims.ParticipantID

	res, err := h.service.CreatePayment(r.Context(), req, idempotencyKey)
	if err != nil {
		writeMappedError(r.Context(), w, "create_payment", err)
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

func (h *Handler) getPayment(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingClaimsError(r.Context(), w, "get_payment")
		return
	}

	res, err := h.service.GetPayment(r.Context(), chi.URLParam(r, "paymentId"), claims.ParticipantID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_payment", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
