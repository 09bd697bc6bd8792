package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cx-tal-miterani/seat-inventory/internal/handlers"
	"github.com/cx-tal-miterani/seat-inventory/internal/identity"
	"github.com/cx-tal-miterani/seat-inventory/internal/ratelimit"
	"github.com/cx-tal-miterani/seat-inventory/internal/repository"
	"github.com/cx-tal-miterani/seat-inventory/internal/service"
	"github.com/cx-tal-miterani/seat-inventory/shared/models"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
	clk     *clock.Mock
}

func newTestServer(t *testing.T, limiter *ratelimit.CallerLimiter) *testServer {
	logger := zaptest.NewLogger(t)
	clk := clock.NewMock()
	clk.Add(24 * time.Hour)

	svc := service.NewReservationService(repository.NewMemoryRepository(), clk, logger, service.DefaultOptions())
	r := SetupRouter(handlers.NewHandler(svc, logger), Options{
		Identity:       identity.NewHeaderProvider("X-Principal"),
		IdentityHeader: "X-Principal",
		Limiter:        limiter,
		Logger:         logger,
	})
	return &testServer{t: t, handler: r, clk: clk}
}

func (s *testServer) do(method, path, caller string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if caller != "" {
		req.Header.Set("X-Principal", caller)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func TestRouter_ReservationFlow(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(http.MethodPost, "/api/flights", "agent-1", models.FlightPayload{
		Airline:        "Garuda Indonesia",
		Destination:    "Denpasar",
		DepartureTime:  s.clk.Now().Add(48 * time.Hour),
		AvailableSeats: 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var flight models.Flight
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&flight))
	assert.Equal(t, uint64(1), flight.ID)

	rec = s.do(http.MethodPost, "/api/bookings", "booker-1", models.BookingPayload{
		FlightID: flight.ID, PassengerName: "Ada Lovelace", SeatNumber: 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var booking models.Booking
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&booking))

	rec = s.do(http.MethodPost, "/api/bookings", "booker-2", models.BookingPayload{
		FlightID: flight.ID, PassengerName: "Grace Hopper", SeatNumber: 1,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(http.MethodGet, "/api/flights/1/availability", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var availability models.AvailabilityResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&availability))
	assert.Equal(t, uint32(1), availability.AvailableSeats)

	rec = s.do(http.MethodDelete, "/api/flights/1", "agent-1", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodDelete, "/api/bookings/1", "booker-2", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodDelete, "/api/bookings/1", "booker-1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodDelete, "/api/flights/1", "agent-1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, "/api/flights/1", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_MutationsRequireIdentity(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(http.MethodPost, "/api/flights", "", models.FlightPayload{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodDelete, "/api/bookings/1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_RequestID(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))
}

func TestRouter_CORSPreflight(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(http.MethodOptions, "/api/bookings/1", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Content-Type, Authorization, X-Request-ID, X-Principal", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestRouter_CORSAllowsConfiguredIdentityHeader(t *testing.T) {
	logger := zaptest.NewLogger(t)
	svc := service.NewReservationService(repository.NewMemoryRepository(), clock.NewMock(), logger, service.DefaultOptions())
	r := SetupRouter(handlers.NewHandler(svc, logger), Options{
		Identity:       identity.NewHeaderProvider("X-Agent-Id"),
		IdentityHeader: "X-Agent-Id",
		Logger:         logger,
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/flights", nil))

	allowed := rec.Header().Get("Access-Control-Allow-Headers")
	assert.Contains(t, allowed, "X-Agent-Id")
	assert.NotContains(t, allowed, "X-Principal")
}

func TestRouter_RateLimit(t *testing.T) {
	s := newTestServer(t, ratelimit.NewCallerLimiter(ratelimit.RateLimitConfig{
		RequestsPerSecond: 0.001,
		BurstSize:         2,
	}))

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/flights/9", "agent-1", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/flights/9", "agent-1", nil).Code)

	rec := s.do(http.MethodGet, "/api/flights/9", "agent-1", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/flights/9", "agent-2", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health", "agent-1", nil).Code, "health is not rate limited")
}
