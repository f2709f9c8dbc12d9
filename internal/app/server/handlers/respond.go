package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"opsdeck/internal/core/domain"
	"opsdeck/pkg/logging"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps service sentinels onto HTTP status codes. Anything not
// recognized is a 500 with a generic body so internals never leak.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		status, msg = http.StatusUnauthorized, err.Error()
	case errors.Is(err, domain.ErrForbidden):
		status, msg = http.StatusForbidden, err.Error()
	case errors.Is(err, domain.ErrVentureNotFound),
		errors.Is(err, domain.ErrOfficeNotFound),
		errors.Is(err, domain.ErrCarrierNotFound),
		errors.Is(err, domain.ErrLoadNotFound),
		errors.Is(err, domain.ErrIncidentNotFound),
		errors.Is(err, domain.ErrConversationNotFound),
		errors.Is(err, domain.ErrNotificationNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrRuleNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrAlreadyClaimed),
		errors.Is(err, domain.ErrNotClaimedByUser):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrInvalidUserID),
		errors.Is(err, domain.ErrInvalidVentureID),
		errors.Is(err, domain.ErrInvalidDay),
		errors.Is(err, domain.ErrPromptRejected):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrDraftingRateLimited):
		status, msg = http.StatusTooManyRequests, err.Error()
	case errors.Is(err, domain.ErrDraftingUnavailable):
		status, msg = http.StatusServiceUnavailable, err.Error()
	default:
		log := logging.FromContext(r.Context())
		log.ErrorContext(r.Context(), "handler - request failed", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

// pathID parses the {id} wildcard of a route pattern.
func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func queryInt(r *http.Request, key string) int {
	v, _ := strconv.Atoi(r.URL.Query().Get(key))
	return v
}

func queryInt64(r *http.Request, key string) int64 {
	v, _ := strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
	return v
}
