package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/cx-tal-miterani/seat-inventory/internal/repository"
	"github.com/cx-tal-miterani/seat-inventory/shared/models"
)

const tracerName = "github.com/cx-tal-miterani/seat-inventory/internal/service"

// ReservationService defines the seat inventory operations. Mutating
// operations take the caller identity as an opaque string and compare it
// with the stored owner.
type ReservationService interface {
	GetFlight(ctx context.Context, flightID uint64) (*models.Flight, error)
	GetBooking(ctx context.Context, bookingID uint64) (*models.Booking, error)
	AddFlight(ctx context.Context, caller string, payload models.FlightPayload) (*models.Flight, error)
	BookFlight(ctx context.Context, caller string, payload models.BookingPayload) (*models.Booking, error)
	UpdateFlight(ctx context.Context, caller string, flightID uint64, payload models.FlightPayload) (*models.Flight, error)
	DeleteFlight(ctx context.Context, caller string, flightID uint64) error
	UpdateBooking(ctx context.Context, caller string, bookingID uint64, payload models.BookingPayload) (*models.Booking, error)
	DeleteBooking(ctx context.Context, caller string, bookingID uint64) error
	CheckFlightAvailability(ctx context.Context, flightID uint64) (uint32, error)
	Reconcile(ctx context.Context) (*models.ReconcileReport, error)
}

// Clock is the time source. github.com/facebookgo/clock satisfies it.
type Clock interface {
	Now() time.Time
}

// Options holds the booking-window rules
type Options struct {
	MinDepartureLeadTime time.Duration
	BookingCutoffWindow  time.Duration
}

func DefaultOptions() Options {
	return Options{
		MinDepartureLeadTime: DefaultMinDepartureLeadTime,
		BookingCutoffWindow:  DefaultBookingCutoffWindow,
	}
}

// reservationService implements ReservationService.
//
// The repository is only atomic per key, so every operation runs under mu
// and two-record changes are written flight first. A failed second write is
// compensated once by restoring the flight; if that fails too the seat stays
// held and Reconcile releases it later.
type reservationService struct {
	mu     sync.RWMutex
	repo   repository.Repository
	clock  Clock
	opts   Options
	logger *zap.Logger
	tracer trace.Tracer
}

// NewReservationService creates a new ReservationService
func NewReservationService(repo repository.Repository, clk Clock, logger *zap.Logger, opts Options) ReservationService {
	return &reservationService{
		repo:   repo,
		clock:  clk,
		opts:   opts,
		logger: logger,
		tracer: otel.Tracer(tracerName),
	}
}

func (s *reservationService) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "reservation."+op, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func flightAttr(id uint64) attribute.KeyValue {
	return attribute.Int64("flight.id", int64(id))
}

func bookingAttr(id uint64) attribute.KeyValue {
	return attribute.Int64("booking.id", int64(id))
}

func (s *reservationService) loadFlight(ctx context.Context, id uint64) (*models.Flight, error) {
	f, err := s.repo.GetFlight(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, flightNotFound(id)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *reservationService) loadBooking(ctx context.Context, id uint64) (*models.Booking, error) {
	b, err := s.repo.GetBooking(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, bookingNotFound(id)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// restoreFlight re-holds the seat of a booking whose removal failed after
// the flight had already released it.
func (s *reservationService) restoreFlight(ctx context.Context, prior *models.Flight, cause error) {
	if err := s.repo.PutFlight(context.WithoutCancel(ctx), prior); err != nil {
		s.logger.Error("Failed to restore flight after partial write",
			zap.Uint64("flight_id", prior.ID),
			zap.NamedError("cause", cause),
			zap.Error(err),
		)
		return
	}
	s.logger.Warn("Restored flight after partial write",
		zap.Uint64("flight_id", prior.ID),
		zap.NamedError("cause", cause),
	)
}

// logSeatHeld records a seat left held by a flight write whose booking write
// failed. The next reconciliation releases it if no booking claims it.
func (s *reservationService) logSeatHeld(flightID uint64, seat uint32, cause error) {
	s.logger.Error("Seat left held after partial write",
		zap.Uint64("flight_id", flightID),
		zap.Uint32("seat_number", seat),
		zap.Error(cause),
	)
}

func (s *reservationService) GetFlight(ctx context.Context, flightID uint64) (_ *models.Flight, err error) {
	ctx, span := s.startSpan(ctx, "get_flight", flightAttr(flightID))
	defer func() { endSpan(span, err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loadFlight(ctx, flightID)
}

func (s *reservationService) GetBooking(ctx context.Context, bookingID uint64) (_ *models.Booking, err error) {
	ctx, span := s.startSpan(ctx, "get_booking", bookingAttr(bookingID))
	defer func() { endSpan(span, err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loadBooking(ctx, bookingID)
}

func (s *reservationService) CheckFlightAvailability(ctx context.Context, flightID uint64) (_ uint32, err error) {
	ctx, span := s.startSpan(ctx, "check_flight_availability", flightAttr(flightID))
	defer func() { endSpan(span, err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := s.loadFlight(ctx, flightID)
	if err != nil {
		return 0, err
	}
	return f.AvailableSeats, nil
}

func (s *reservationService) AddFlight(ctx context.Context, caller string, payload models.FlightPayload) (_ *models.Flight, err error) {
	ctx, span := s.startSpan(ctx, "add_flight")
	defer func() { endSpan(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validateFlightPayload(payload, s.clock.Now(), s.opts.MinDepartureLeadTime); err != nil {
		return nil, err
	}

	id, err := s.repo.NextFlightID(ctx)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(flightAttr(id))

	flight := &models.Flight{
		ID:             id,
		AgentPrincipal: caller,
		Airline:        payload.Airline,
		Destination:    payload.Destination,
		DepartureTime:  payload.DepartureTime,
		TotalSeats:     payload.AvailableSeats,
		AvailableSeats: payload.AvailableSeats,
		OccupiedSeats:  []uint32{},
	}
	if err := s.repo.PutFlight(ctx, flight); err != nil {
		return nil, err
	}

	s.logger.Info("Flight created",
		zap.Uint64("flight_id", id),
		zap.String("caller", caller),
		zap.Uint32("total_seats", flight.TotalSeats),
	)
	return flight, nil
}

func (s *reservationService) BookFlight(ctx context.Context, caller string, payload models.BookingPayload) (_ *models.Booking, err error) {
	ctx, span := s.startSpan(ctx, "book_flight", flightAttr(payload.FlightID))
	defer func() { endSpan(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	flight, err := s.loadFlight(ctx, payload.FlightID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if err := validateBookingPayload(payload, flight, now, s.opts.BookingCutoffWindow); err != nil {
		return nil, err
	}

	id, err := s.repo.NextBookingID(ctx)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(bookingAttr(id))

	flight.OccupySeat(payload.SeatNumber)
	flight.AvailableSeats--
	if err := s.repo.PutFlight(ctx, flight); err != nil {
		return nil, err
	}

	booking := &models.Booking{
		ID:              id,
		BookerPrincipal: caller,
		FlightID:        payload.FlightID,
		PassengerName:   payload.PassengerName,
		SeatNumber:      payload.SeatNumber,
		BookingTime:     now,
	}
	if err := s.repo.PutBooking(ctx, booking); err != nil {
		s.logSeatHeld(flight.ID, booking.SeatNumber, err)
		return nil, err
	}

	s.logger.Info("Seat booked",
		zap.Uint64("flight_id", flight.ID),
		zap.Uint64("booking_id", id),
		zap.Uint32("seat_number", booking.SeatNumber),
		zap.String("caller", caller),
	)
	return booking, nil
}

func (s *reservationService) UpdateFlight(ctx context.Context, caller string, flightID uint64, payload models.FlightPayload) (_ *models.Flight, err error) {
	ctx, span := s.startSpan(ctx, "update_flight", flightAttr(flightID))
	defer func() { endSpan(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	flight, err := s.loadFlight(ctx, flightID)
	if err != nil {
		return nil, err
	}
	if flight.AgentPrincipal != caller {
		return nil, &NotAuthorizedError{Role: RoleAgent}
	}
	if n := len(flight.OccupiedSeats); n > 0 {
		return nil, &DomainError{Msg: fmt.Sprintf(
			"flight with id=%d has %d booked seats and can no longer be updated", flightID, n,
		)}
	}
	if err := validateFlightPayload(payload, s.clock.Now(), s.opts.MinDepartureLeadTime); err != nil {
		return nil, err
	}

	flight.Airline = payload.Airline
	flight.Destination = payload.Destination
	flight.DepartureTime = payload.DepartureTime
	flight.AvailableSeats = payload.AvailableSeats
	flight.TotalSeats = payload.AvailableSeats
	if err := s.repo.PutFlight(ctx, flight); err != nil {
		return nil, err
	}

	s.logger.Info("Flight updated",
		zap.Uint64("flight_id", flightID),
		zap.String("caller", caller),
		zap.Uint32("total_seats", flight.TotalSeats),
	)
	return flight, nil
}

// DeleteFlight refuses to remove a flight that still has bookings, so a
// booking never references a missing flight through this service.
func (s *reservationService) DeleteFlight(ctx context.Context, caller string, flightID uint64) (err error) {
	ctx, span := s.startSpan(ctx, "delete_flight", flightAttr(flightID))
	defer func() { endSpan(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	flight, err := s.loadFlight(ctx, flightID)
	if err != nil {
		return err
	}
	if flight.AgentPrincipal != caller {
		return &NotAuthorizedError{Role: RoleAgent}
	}
	if n := len(flight.OccupiedSeats); n > 0 {
		return &DomainError{Msg: fmt.Sprintf(
			"flight with id=%d still has %d booked seats and cannot be deleted", flightID, n,
		)}
	}
	if err := s.repo.RemoveFlight(ctx, flightID); err != nil {
		return err
	}

	s.logger.Info("Flight deleted", zap.Uint64("flight_id", flightID), zap.String("caller", caller))
	return nil
}

func (s *reservationService) UpdateBooking(ctx context.Context, caller string, bookingID uint64, payload models.BookingPayload) (_ *models.Booking, err error) {
	ctx, span := s.startSpan(ctx, "update_booking", bookingAttr(bookingID), flightAttr(payload.FlightID))
	defer func() { endSpan(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	booking, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.BookerPrincipal != caller {
		return nil, &NotAuthorizedError{Role: RoleBooker}
	}
	if payload.FlightID != booking.FlightID {
		return nil, &DomainError{Msg: fmt.Sprintf(
			"booking with id=%d belongs to flight id=%d and cannot be moved to flight id=%d",
			bookingID, booking.FlightID, payload.FlightID,
		)}
	}

	flight, err := s.loadFlight(ctx, booking.FlightID)
	if err != nil {
		return nil, err
	}

	// Validate as if the booking's current seat were already free.
	check := flight.Clone()
	if check.ReleaseSeat(booking.SeatNumber) {
		check.AvailableSeats++
	}
	if err := validateBookingPayload(payload, check, s.clock.Now(), s.opts.BookingCutoffWindow); err != nil {
		return nil, err
	}

	// Both seats stay held until the booking has moved, so a failed write
	// leaves a spare seat held and never frees one a booking still claims.
	previousSeat := booking.SeatNumber
	if flight.OccupySeat(payload.SeatNumber) {
		flight.AvailableSeats--
		if err := s.repo.PutFlight(ctx, flight); err != nil {
			return nil, err
		}
	}

	booking.PassengerName = payload.PassengerName
	booking.SeatNumber = payload.SeatNumber
	if err := s.repo.PutBooking(ctx, booking); err != nil {
		if previousSeat != payload.SeatNumber {
			s.logSeatHeld(flight.ID, payload.SeatNumber, err)
		}
		return nil, err
	}

	if previousSeat != payload.SeatNumber && flight.ReleaseSeat(previousSeat) {
		flight.AvailableSeats++
		if err := s.repo.PutFlight(ctx, flight); err != nil {
			// The booking has moved; only the previous seat is still held.
			s.logSeatHeld(flight.ID, previousSeat, err)
		}
	}

	s.logger.Info("Booking updated",
		zap.Uint64("flight_id", booking.FlightID),
		zap.Uint64("booking_id", bookingID),
		zap.Uint32("previous_seat", previousSeat),
		zap.Uint32("seat_number", booking.SeatNumber),
		zap.String("caller", caller),
	)
	return booking, nil
}

func (s *reservationService) DeleteBooking(ctx context.Context, caller string, bookingID uint64) (err error) {
	ctx, span := s.startSpan(ctx, "delete_booking", bookingAttr(bookingID))
	defer func() { endSpan(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	booking, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking.BookerPrincipal != caller {
		return &NotAuthorizedError{Role: RoleBooker}
	}

	// A missing flight is tolerated: the booking is still removed.
	var prior *models.Flight
	flight, err := s.repo.GetFlight(ctx, booking.FlightID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		s.logger.Warn("Deleting booking of missing flight",
			zap.Uint64("flight_id", booking.FlightID),
			zap.Uint64("booking_id", bookingID),
		)
	case err != nil:
		return err
	default:
		prior = flight.Clone()
		if flight.ReleaseSeat(booking.SeatNumber) && flight.AvailableSeats < flight.TotalSeats {
			flight.AvailableSeats++
		}
		if err := s.repo.PutFlight(ctx, flight); err != nil {
			return err
		}
	}

	if err := s.repo.RemoveBooking(ctx, bookingID); err != nil {
		if prior != nil {
			s.restoreFlight(ctx, prior, err)
		}
		return err
	}

	s.logger.Info("Booking deleted",
		zap.Uint64("flight_id", booking.FlightID),
		zap.Uint64("booking_id", bookingID),
		zap.Uint32("seat_number", booking.SeatNumber),
		zap.String("caller", caller),
	)
	return nil
}
