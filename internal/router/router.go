package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/cx-tal-miterani/seat-inventory/internal/handlers"
	"github.com/cx-tal-miterani/seat-inventory/internal/identity"
	"github.com/cx-tal-miterani/seat-inventory/internal/ratelimit"
)

const RequestIDHeader = "X-Request-ID"

type Options struct {
	Identity identity.Provider
	// IdentityHeader is allowed in CORS requests when set.
	IdentityHeader string
	// Limiter is optional; nil disables rate limiting.
	Limiter *ratelimit.CallerLimiter
	Logger  *zap.Logger
}

// SetupRouter creates and configures the HTTP router
func SetupRouter(h *handlers.Handler, opts Options) *mux.Router {
	r := mux.NewRouter()

	r.Use(corsMiddleware(allowedHeaders(opts)))
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(opts.Logger))

	// Health check
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	// API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(identity.Middleware(opts.Identity))
	if opts.Limiter != nil {
		api.Use(ratelimit.Middleware(opts.Limiter, handlers.RateLimited))
	}

	// Flights
	api.HandleFunc("/flights", h.AddFlight).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/flights/{id}", h.GetFlight).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/flights/{id}", h.UpdateFlight).Methods(http.MethodPut, http.MethodOptions)
	api.HandleFunc("/flights/{id}", h.DeleteFlight).Methods(http.MethodDelete, http.MethodOptions)
	api.HandleFunc("/flights/{id}/availability", h.CheckFlightAvailability).Methods(http.MethodGet, http.MethodOptions)

	// Bookings
	api.HandleFunc("/bookings", h.BookFlight).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/bookings/{id}", h.GetBooking).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/bookings/{id}", h.UpdateBooking).Methods(http.MethodPut, http.MethodOptions)
	api.HandleFunc("/bookings/{id}", h.DeleteBooking).Methods(http.MethodDelete, http.MethodOptions)

	return r
}

func allowedHeaders(opts Options) string {
	headers := []string{"Content-Type", "Authorization", RequestIDHeader}
	if opts.IdentityHeader != "" {
		headers = append(headers, opts.IdentityHeader)
	}
	return strings.Join(headers, ", ")
}

func corsMiddleware(allowHeaders string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", allowHeaders)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// requestIDMiddleware keeps a caller-supplied request id or assigns one
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(RequestIDHeader, id)
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.Info("Request handled",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", r.Header.Get(RequestIDHeader)),
			)
		})
	}
}
