package httpx

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// NewRouter creates a chi router with the platform's baseline middleware:
// panic recovery, trace propagation, and request logging. Services mount
// their routes (and BearerAuth where needed) on top.
func NewRouter(logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(Trace)
	r.Use(RequestLogger(logger))
	return r
}
