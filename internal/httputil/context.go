package httputil

import (
	"context"
	"net/http"

	"tapestry/internal/domain/models"
)

// Context key type to avoid collisions
type contextKey string

const (
	userKey contextKey = "user"
)

// WithUser adds the authenticated user to the request context
func WithUser(r *http.Request, user *models.User) *http.Request {
	ctx := context.WithValue(r.Context(), userKey, user)
	return r.WithContext(ctx)
}

// GetUser retrieves the authenticated user from the context; nil means the
// request is anonymous.
func GetUser(r *http.Request) *models.User {
	user, _ := r.Context().Value(userKey).(*models.User)
	return user
}

// Actor returns the request's actor entity: the authenticated user, or the
// anonymous entity when there is none.
func Actor(r *http.Request) models.Entity {
	if user := GetUser(r); user != nil {
		return models.UserEntity(user)
	}
	return models.Entity{}
}
