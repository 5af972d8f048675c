// ABOUTME: chi router and middleware for the HTTP API
// ABOUTME: Handles CORS preflight, request IDs, access logging and panic recovery

package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/2389/press-gateway/internal/auth"
)

// maxBodyBytes bounds request bodies. The largest valid story is well below it.
const maxBodyBytes = 1 << 20

func (g *Gateway) newRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(g.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Post("/api/register", g.handleRegister)
	r.Post("/api/stories", g.handleSubmitStory)
	r.Get("/api/stories", g.handleListStories)
	r.HandleFunc("/api/health", g.handleHealth)

	if g.adminAuth != nil {
		r.Route("/api/admin", func(r chi.Router) {
			r.Use(auth.RequireAdmin(g.adminAuth, sendJSONError))
			r.Get("/agents/{name}", g.handleGetAgent)
			r.Patch("/agents/{name}", g.handleUpdateAgent)
		})
	}

	r.NotFound(g.handleNotFound)
	r.MethodNotAllowed(g.handleNotFound)

	return r
}

// cors answers preflight requests on any path and marks every response as
// readable from any origin.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")

		if r.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Methods", "GET, POST")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type requestIDKey struct{}

// requestID tags each request with a UUID, echoed in X-Request-ID.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// requestIDFrom returns the request ID stored by requestID, if any.
func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// accessLog logs one line per request. Authorization headers are never logged.
func (g *Gateway) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		g.logger.Log(r.Context(), level, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", time.Since(start),
			"bytes", ww.BytesWritten(),
			"request_id", requestIDFrom(r.Context()),
		)
	})
}
