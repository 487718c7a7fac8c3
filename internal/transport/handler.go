// Package transport exposes the marketplace services over HTTP.
package transport

import (
	"net/http"
	"strconv"

	"farmart/internal/domain"
	"farmart/internal/middleware"
	"farmart/internal/pagination"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Routes groups the middleware handlers share when registering routes
type Routes struct {
	Auth        func(http.Handler) http.Handler
	RateLimit   func(http.Handler) http.Handler
	RequireRole func(roles ...domain.Role) func(http.Handler) http.Handler
}

// Message is the body of responses that carry only a confirmation
type Message struct {
	Message string `json:"message"`
}

// actorFrom returns the caller set by the auth middleware.
// Routes that reach it are always mounted behind Auth.
func actorFrom(r *http.Request) domain.Actor {
	actor, _ := middleware.GetActor(r.Context())
	return actor
}

func idParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, domain.Validation("invalid %s", name)
	}
	return id, nil
}

// pageBody renders a page as {"<key>": [...], "pagination": {...}}
func pageBody[T any](key string, page pagination.Page[T]) map[string]any {
	return map[string]any{
		key:          page.Items,
		"pagination": page.Meta,
	}
}

func queryInt(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, domain.Validation("%s must be an integer", name)
	}
	return &v, nil
}

func queryFloat(r *http.Request, name string) (*float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, domain.Validation("%s must be a number", name)
	}
	return &v, nil
}
