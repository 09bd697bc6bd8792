package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/cx-tal-miterani/seat-inventory/internal/identity"
	"github.com/cx-tal-miterani/seat-inventory/internal/service"
	"github.com/cx-tal-miterani/seat-inventory/shared/models"
)

// Error codes carried in ErrorResponse.Error
const (
	CodeBadRequest      = "bad_request"
	CodeUnauthenticated = "unauthenticated"
	CodeNotAuthorized   = "not_authorized"
	CodeNotFound        = "not_found"
	CodeConflict        = "conflict"
	CodeInvalidPayload  = "invalid_payload"
	CodeRateLimited     = "rate_limited"
	CodeInternal        = "internal"
)

// Handler contains HTTP handlers for the API
type Handler struct {
	reservations service.ReservationService
	logger       *zap.Logger
}

// NewHandler creates a new Handler instance
func NewHandler(reservations service.ReservationService, logger *zap.Logger) *Handler {
	return &Handler{
		reservations: reservations,
		logger:       logger,
	}
}

type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Code    int      `json:"code"`
	Errors  []string `json:"errors,omitempty"`
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string, errs ...string) {
	respondJSON(w, status, ErrorResponse{
		Error:   code,
		Message: message,
		Code:    status,
		Errors:  errs,
	})
}

// respondServiceError maps engine errors onto HTTP statuses
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		notFound      *service.NotFoundError
		invalid       *service.InvalidPayloadError
		notAuthorized *service.NotAuthorizedError
		domainErr     *service.DomainError
	)

	switch {
	case errors.As(err, &notFound):
		respondError(w, http.StatusNotFound, CodeNotFound, notFound.Error())
	case errors.As(err, &invalid):
		respondError(w, http.StatusUnprocessableEntity, CodeInvalidPayload, "Invalid payload", invalid.Errors...)
	case errors.As(err, &notAuthorized):
		respondError(w, http.StatusForbidden, CodeNotAuthorized, notAuthorized.Error())
	case errors.As(err, &domainErr):
		respondError(w, http.StatusConflict, CodeConflict, domainErr.Error())
	default:
		h.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, CodeInternal, "Internal server error")
	}
}

// RateLimited responds to a request rejected by the rate limiter
func RateLimited(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusTooManyRequests, CodeRateLimited, "Too many requests")
}

// requireCaller returns the authenticated caller or writes a 401
func requireCaller(w http.ResponseWriter, r *http.Request) (string, bool) {
	caller, ok := identity.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, CodeUnauthenticated, "Caller identity is required")
		return "", false
	}
	return caller, true
}

func pathID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "Invalid id '"+raw+"'")
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body")
		return false
	}
	return true
}

// GetFlight handles GET /api/flights/{id}
func (h *Handler) GetFlight(w http.ResponseWriter, r *http.Request) {
	flightID, ok := pathID(w, r)
	if !ok {
		return
	}

	flight, err := h.reservations.GetFlight(r.Context(), flightID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, flight)
}

// AddFlight handles POST /api/flights
func (h *Handler) AddFlight(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}

	var payload models.FlightPayload
	if !decodeBody(w, r, &payload) {
		return
	}

	flight, err := h.reservations.AddFlight(r.Context(), caller, payload)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, flight)
}

// UpdateFlight handles PUT /api/flights/{id}
func (h *Handler) UpdateFlight(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	flightID, ok := pathID(w, r)
	if !ok {
		return
	}

	var payload models.FlightPayload
	if !decodeBody(w, r, &payload) {
		return
	}

	flight, err := h.reservations.UpdateFlight(r.Context(), caller, flightID, payload)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, flight)
}

// DeleteFlight handles DELETE /api/flights/{id}
func (h *Handler) DeleteFlight(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	flightID, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.reservations.DeleteFlight(r.Context(), caller, flightID); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CheckFlightAvailability handles GET /api/flights/{id}/availability
func (h *Handler) CheckFlightAvailability(w http.ResponseWriter, r *http.Request) {
	flightID, ok := pathID(w, r)
	if !ok {
		return
	}

	available, err := h.reservations.CheckFlightAvailability(r.Context(), flightID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, models.AvailabilityResponse{
		FlightID:       flightID,
		AvailableSeats: available,
	})
}

// BookFlight handles POST /api/bookings
func (h *Handler) BookFlight(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}

	var payload models.BookingPayload
	if !decodeBody(w, r, &payload) {
		return
	}

	booking, err := h.reservations.BookFlight(r.Context(), caller, payload)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, booking)
}

// GetBooking handles GET /api/bookings/{id}
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(w, r)
	if !ok {
		return
	}

	booking, err := h.reservations.GetBooking(r.Context(), bookingID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, booking)
}

// UpdateBooking handles PUT /api/bookings/{id}
func (h *Handler) UpdateBooking(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	bookingID, ok := pathID(w, r)
	if !ok {
		return
	}

	var payload models.BookingPayload
	if !decodeBody(w, r, &payload) {
		return
	}

	booking, err := h.reservations.UpdateBooking(r.Context(), caller, bookingID, payload)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, booking)
}

// DeleteBooking handles DELETE /api/bookings/{id}
func (h *Handler) DeleteBooking(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	bookingID, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.reservations.DeleteBooking(r.Context(), caller, bookingID); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
