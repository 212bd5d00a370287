package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/application"
)

const headerConsentID = "x-consent-id"

func consentIDFromHeader(r *http.Request) (string, error) {
	consentID := strings.TrimSpace(r.Header.Get(headerConsentID))
	if consentID == "" {
		return "", errors.New("missing x-consent-id header")
	}
	return consentID, nil
}

func setCacheHeaders(w http.ResponseWriter, hit bool, etag string) {
	if hit {
		w.Header().Set("X-OF-Cache", "HIT")
	} else {
		w.Header().Set("X-OF-Cache", "MISS")
	}
	if etag != "" {
		w.Header().Set("ETag", etag)
	}
}

func (h *Handler) listMetadata(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingClaimsError(r.Context(), w, "list_metadata")
		return
	}
	consentID, err := consentIDFromHeader(r)
	if err != nil {
		writeValidationError(r.Context(), w, "list_metadata", err)
		return
	}

	fromDate, err := parseDate(r.URL.Query().Get("fromDate"))
	if err != nil {
		writeValidationError(r.Context(), w, "list_metadata", err)
		return
	}
	toDate, err := parseDate(r.URL.Query().Get("toDate"))
	if err != nil {
		writeValidationError(r.Context(), w, "list_metadata", err)
		return
	}

	res, err := h.service.ListMetadata(r.Context(), application.MetadataListQuery{
		ConsentID:     consentID,
		ParticipantID: claims.ParticipantID,
		AccountID:     chi.URLParam(r, "accountId"),
		FromDate:      fromDate,
		ToDate:        toDate,
		Page:          parseIntDefault(r.URL.Query().Get("page"), 1),
		PageSize:      parseIntDefault(r.URL.Query().Get("pageSize"), 0),
		IfNoneMatch:   strings.TrimSpace(r.Header.Get("If-None-Match")),
	})
	if err != nil {
		writeMappedError(r.Context(), w, "list_metadata", err)
		return
	}

	setCacheHeaders(w, res.CacheHit, res.ETag)
	if res.NotModified {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) getMetadataItem(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingClaimsError(r.Context(), w, "get_metadata_item")
		return
	}
	consentID, err := consentIDFromHeader(r)
	if err != nil {
		writeValidationError(r.Context(), w, "get_metadata_item", err)
		return
	}

	res, err := h.service.GetMetadataItem(r.Context(), consentID, claims.ParticipantID,
		chi.URLParam(r, "itemId"), strings.TrimSpace(r.Header.Get("If-None-Match")))
	if err != nil {
		writeMappedError(r.Context(), w, "get_metadata_item", err)
		return
	}

	setCacheHeaders(w, res.CacheHit, res.ETag)
	if res.NotModified {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
