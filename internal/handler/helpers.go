package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"tapestry/internal/domain"
	"tapestry/internal/httputil"
)

// handleError converts domain errors to HTTP responses
func handleError(w http.ResponseWriter, err error) {
	var conflict *domain.ConflictError
	var httpErr domain.HTTPError

	switch {
	case errors.As(err, &conflict):
		// point the client at the resource that caused the conflict
		httputil.RespondErrorWithExtras(w, conflict.StatusCode(), conflict.Error(), map[string]interface{}{
			"resource_type": conflict.ResourceType,
			"resource_id":   conflict.ResourceID,
		})
	case errors.As(err, &httpErr):
		httputil.RespondError(w, httpErr.StatusCode(), httpErr.Error())
	case errors.Is(err, domain.ErrInvalidMode), errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrConflict):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	default:
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// parseUUID validates a path or query parameter as a UUID
func parseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

// pathUUID extracts and parses the named path parameter, writing a 400 on
// failure. The bool reports success.
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := parseUUID(r.PathValue(name))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// pathPageID is pathUUID but also accepts a friendly URL ("some-title+<id>"),
// so links built from Page.FriendlyURL resolve directly.
func pathPageID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := r.PathValue(name)
	if i := strings.LastIndex(raw, "+"); i >= 0 {
		raw = raw[i+1:]
	}
	id, err := parseUUID(raw)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
