package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/domain"
	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/ports"
)

type ctxKey string

const (
	ctxKeyRequestID     ctxKey = "request_id"
	ctxKeyInteractionID ctxKey = "fapi_interaction_id"
	ctxKeyClaims        ctxKey = "access_claims"
)

const (
	headerInteractionID = "x-fapi-interaction-id"
	headerAuthDate      = "x-fapi-auth-date"
	headerCustomerIP    = "x-fapi-customer-ip-address"
	headerIdempotency   = "x-idempotency-key"
)

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", reqID)
		ctx := context.WithValue(r.Context(), ctxKeyRequestID, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				httpLogger().ErrorContext(r.Context(), "panic recovered",
					"operation", "http_panic_recovery",
					"outcome", "failure",
					"request_id", requestIDFromContext(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
					"panic", rec,
				)
				writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	bytes      int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *statusRecorder) Write(payload []byte) (int, error) {
	if r.statusCode == 0 {
		r.statusCode = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(payload)
	r.bytes += n
	return n, err
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(recorder, r)

		statusCode := recorder.statusCode
		if statusCode == 0 {
			statusCode = http.StatusOK
		}
		outcome := "success"
		if statusCode >= 400 {
			outcome = "failure"
		}

		fields := []any{
			"operation", "http_request",
			"outcome", outcome,
			"method", r.Method,
			"path", r.URL.Path,
			"status_code", statusCode,
			"bytes", recorder.bytes,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", requestIDFromContext(r.Context()),
			"interaction_id", interactionIDFromContext(r.Context()),
		}
		switch {
		case statusCode >= 500:
			httpLogger().ErrorContext(r.Context(), "http request completed", fields...)
		case statusCode >= 400:
			httpLogger().WarnContext(r.Context(), "http request completed", fields...)
		default:
			httpLogger().InfoContext(r.Context(), "http request completed", fields...)
		}
	})
}

// fapiMiddleware enforces the financial-grade header contract before the core
// runs: a UUID-shaped x-fapi-interaction-id (echoed on every response, error
// responses included) and a Bearer or DPoP authorization scheme, with a DPoP
// proof header required whenever the DPoP scheme is used. The participant
// identity the handlers trust comes from the verified token, never a header.
func (h *Handler) fapiMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		interactionID := strings.TrimSpace(r.Header.Get(headerInteractionID))
		if interactionID == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "missing x-fapi-interaction-id header")
			return
		}
		if _, err := uuid.Parse(interactionID); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "x-fapi-interaction-id must be a UUID")
			return
		}
		w.Header().Set(headerInteractionID, interactionID)
		ctx := context.WithValue(r.Context(), ctxKeyInteractionID, interactionID)

		token, scheme, err := tokenFromAuthorization(r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		if scheme == "DPoP" && strings.TrimSpace(r.Header.Get("DPoP")) == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "DPoP proof header is required with DPoP authorization")
			return
		}

		claims, err := h.verifier.Verify(token)
		if err != nil {
			writeError(w, http.StatusForbidden, "forbidden", "invalid access token")
			return
		}

		if authDate := strings.TrimSpace(r.Header.Get(headerAuthDate)); authDate != "" {
			httpLogger().InfoContext(ctx, "fapi auth context",
				"operation", "fapi_headers",
				"outcome", "success",
				"auth_date", authDate,
				"customer_ip", strings.TrimSpace(r.Header.Get(headerCustomerIP)),
				"interaction_id", interactionID,
			)
		}

		ctx = context.WithValue(ctx, ctxKeyClaims, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func tokenFromAuthorization(header string) (token, scheme string, err error) {
	header = strings.TrimSpace(header)
	switch {
	case strings.HasPrefix(header, "Bearer "):
		scheme = "Bearer"
	case strings.HasPrefix(header, "DPoP "):
		scheme = "DPoP"
	default:
		return "", "", errors.New("authorization must use the Bearer or DPoP scheme")
	}
	token = strings.TrimSpace(header[len(scheme)+1:])
	if token == "" {
		return "", "", errors.New("authorization token is empty")
	}
	return token, scheme, nil
}

func requestIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return s
	}
	return ""
}

func interactionIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(ctxKeyInteractionID).(string); ok {
		return s
	}
	return ""
}

func claimsFromContext(ctx context.Context) (ports.AccessClaims, bool) {
	claims, ok := ctx.Value(ctxKeyClaims).(ports.AccessClaims)
	return claims, ok
}

func mapDomainError(err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrRequestValidation):
		return http.StatusBadRequest, "invalid_request", err.Error()
	case errors.Is(err, domain.ErrDecryptionFailed):
		return http.StatusBadRequest, "decryption_failed", err.Error()
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden", err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found", err.Error()
	case errors.Is(err, domain.ErrIdempotencyConflict):
		return http.StatusConflict, "idempotency_conflict", err.Error()
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "conflict", err.Error()
	case errors.Is(err, domain.ErrBusinessRuleViolation):
		return http.StatusUnprocessableEntity, "business_rule_violation", err.Error()
	case errors.Is(err, domain.ErrComplianceViolation):
		return http.StatusUnprocessableEntity, "compliance_violation", err.Error()
	case errors.Is(err, domain.ErrUnavailable):
		return http.StatusServiceUnavailable, "service_unavailable", err.Error()
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}
