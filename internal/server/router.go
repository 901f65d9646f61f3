package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lance13c/shopassist/internal/assetcache"
	"github.com/lance13c/shopassist/internal/logging"
	"github.com/lance13c/shopassist/internal/messaging"
	"github.com/lance13c/shopassist/internal/services"
)

// HealthChecker reports whether a backing store is reachable.
// *database.DB satisfies it.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Dependencies collects what the routes serve. Every field is optional; a
// missing dependency leaves its routes unregistered.
type Dependencies struct {
	Assistant      *services.AssistantService
	Assets         *assetcache.Registration
	Hub            *messaging.Hub
	Health         HealthChecker
	AllowedOrigins []string
}

// NewRouter wires the HTTP routes
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(loggingMiddleware)
	r.Use(middleware.Recoverer)
	if len(deps.AllowedOrigins) > 0 {
		r.Use(corsMiddleware(deps.AllowedOrigins))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		payload := map[string]any{"status": "ok"}
		if deps.Health != nil {
			if err := deps.Health.Ping(ctx); err != nil {
				logging.Error("Health check failed: %v", err)
				status = http.StatusServiceUnavailable
				payload["status"] = "degraded"
				payload["error"] = err.Error()
			}
		}
		if deps.Assets != nil {
			if c := deps.Assets.Controller(); c != nil {
				payload["cache"] = c.Version()
			}
		}
		if deps.Hub != nil {
			payload["clients"] = deps.Hub.Clients()
		}
		respondJSON(w, status, payload)
	})

	if deps.Assistant != nil {
		api := &apiHandlers{svc: deps.Assistant}
		r.Route("/api", func(r chi.Router) {
			r.Use(middleware.NoCache)
			r.Get("/profile", api.getProfile)
			r.Put("/profile", api.putProfile)
			r.Get("/settings", api.getSettings)
			r.Put("/settings", api.putSettings)
			r.Post("/trigger", api.trigger)
			r.Get("/history", api.history)
		})
	}

	if deps.Hub != nil {
		r.Get("/ws", deps.Hub.ServeHTTP)
	}

	if deps.Assets != nil {
		r.Post("/sw/message", workerMessage(deps.Assets))
		r.Handle("/*", deps.Assets)
	}

	return r
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		logging.Debug("%s %s -> %d (%dms) [%s]", r.Method, r.URL.Path, status,
			time.Since(start).Milliseconds(), middleware.GetReqID(r.Context()))
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	normalized := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		normalized[origin] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" || (!containsOrigin(normalized, origin) && !containsOrigin(normalized, "*")) {
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func containsOrigin(set map[string]struct{}, origin string) bool {
	_, ok := set[origin]
	return ok
}
