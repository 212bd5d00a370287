package http

import (
	"net/http"

	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/application"
)

// confirmPayee is a read-style POST: no idempotency key, no state change.
func (h *Handler) confirmPayee(w http.ResponseWriter, r *http.Request) {
	if _, ok := claimsFromContext(r.Context()); !ok {
		writeMissingClaimsError(r.Context(), w, "confirm_payee")
		return
	}

	var req application.ConfirmPayeeRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "confirm_payee", err)
		return
	}

	res, err := h.service.ConfirmPayee(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "confirm_payee", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
