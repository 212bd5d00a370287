package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/application"
)

func (h *Handler) createQuote(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingClaimsError(r.Context(), w, "create_quote")
		return
	}

	var req application.QuoteRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "create_quote", err)
		return
	}
	req.ParticipantID = claims.ParticipantID

	res, err := h.service.CreateQuote(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "create_quote", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) bookDeal(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingClaimsError(r.Context(), w, "book_deal")
		return
	}
	idempotencyKey, err := idempotencyKeyFromHeader(r)
	if err != nil {
		writeValidationError(r.Context(), w, "book_deal", err)
		return
	}

	res, err := h.service.BookDeal(r.Context(), claims.ParticipantID, chi.URLParam(r, "quoteId"), idempotencyKey)
	if err != nil {
		writeMappedError(r.Context(), w, "book_deal", err)
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

func (h *Handler) getQuote(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingClaimsError(r.Context(), w, "get_quote")
		return
	}

	res, err := h.service.GetQuote(r.Context(), chi.URLParam(r, "quoteId"), claims.ParticipantID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_quote", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
