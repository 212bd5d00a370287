package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/application"
	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/ports"
)

// Handler is the HTTP adapter entrypoint for the open finance use-cases.
type Handler struct {
	service  *application.Service
	verifier ports.TokenVerifier
	ready    func() error
}

// NewHandler constructs an HTTP handler bound to the application service.
// A nil ready probe reports ready unconditionally.
func NewHandler(service *application.Service, verifier ports.TokenVerifier, ready func() error) *Handler {
	if ready == nil {
		ready = func() error { return nil }
	}
	return &Handler{service: service, verifier: verifier, ready: ready}
}

// NewRouter registers the open finance HTTP routes. Health probes sit outside
// the FAPI middleware; everything under /open-finance/v1 goes through it.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Route("/open-finance/v1", func(r chi.Router) {
		r.Use(handler.fapiMiddleware)

		r.Post("/consents", handler.createConsent)
		r.Post("/consents/{consentId}/authorize", handler.authorizeConsent)
		r.Delete("/consents/{consentId}", handler.revokeConsent)
		r.Post("/consents/{consentId}/renew", handler.renewConsent)
		r.Get("/consents/{consentId}", handler.getConsent)

		r.Get("/accounts/{accountId}/metadata", handler.listMetadata)
		r.Get("/metadata/{itemId}", handler.getMetadataItem)

		r.Post("/vrp/payments", handler.createPayment)
		r.Get("/vrp/payments/{paymentId}", handler.getPayment)

		r.Post("/fx/quotes", handler.createQuote)
		r.Post("/fx/quotes/{quoteId}/deals", handler.bookDeal)
		r.Get("/fx/quotes/{quoteId}", handler.getQuote)

		r.Post("/payees/confirmations", handler.confirmPayee)

		r.Post("/accounts", handler.openAccount)
		r.Get("/accounts/{accountId}", handler.getAccount)
	})

	return r
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.ready(); err != nil {
		logHTTPOperationError(r.Context(), "readyz", http.StatusServiceUnavailable, "service_unavailable", err.Error(), err)
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", "dependency not ready")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
