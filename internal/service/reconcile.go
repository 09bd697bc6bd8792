package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/cx-tal-miterani/seat-inventory/shared/models"
)

// Reconcile brings every flight's occupied seats and available count back
// in line with its live bookings. Seats held without a booking are released
// and bookings whose seat is missing from the flight are re-occupied.
// Bookings sharing a seat, or holding a seat outside the flight's capacity,
// are reported and left untouched.
func (s *reservationService) Reconcile(ctx context.Context) (_ *models.ReconcileReport, err error) {
	ctx, span := s.startSpan(ctx, "reconcile")
	defer func() { endSpan(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	flights, err := s.repo.ListFlights(ctx)
	if err != nil {
		return nil, err
	}

	report := &models.ReconcileReport{}
	for _, flight := range flights {
		report.FlightsChecked++

		bookings, err := s.repo.ListBookings(ctx, flight.ID)
		if err != nil {
			return nil, err
		}

		fixed, result := reconcileFlight(flight, bookings)
		report.SeatsReleased += result.released
		report.SeatsRestored += result.restored
		report.ConflictingBookings = append(report.ConflictingBookings, result.conflicts...)

		if !result.changed {
			continue
		}
		if err := s.repo.PutFlight(ctx, fixed); err != nil {
			return nil, err
		}
		report.FlightsRepaired++

		s.logger.Warn("Repaired flight inventory",
			zap.Uint64("flight_id", flight.ID),
			zap.Int("seats_released", result.released),
			zap.Int("seats_restored", result.restored),
			zap.Uint32("available_seats", fixed.AvailableSeats),
		)
	}

	span.SetAttributes(
		attribute.Int("reconcile.flights_checked", report.FlightsChecked),
		attribute.Int("reconcile.flights_repaired", report.FlightsRepaired),
	)
	if len(report.ConflictingBookings) > 0 {
		s.logger.Error("Conflicting bookings found",
			zap.Uint64s("booking_ids", report.ConflictingBookings),
		)
	}
	return report, nil
}

type flightRepair struct {
	released  int
	restored  int
	conflicts []uint64
	changed   bool
}

// reconcileFlight derives the occupied seats of f from bookings, which must
// be ordered by id. The earliest booking wins a contested seat.
func reconcileFlight(f *models.Flight, bookings []*models.Booking) (*models.Flight, flightRepair) {
	var result flightRepair

	claimed := make(map[uint32]uint64, len(bookings))
	for _, b := range bookings {
		if _, taken := claimed[b.SeatNumber]; taken || b.SeatNumber >= f.TotalSeats {
			result.conflicts = append(result.conflicts, b.ID)
			continue
		}
		claimed[b.SeatNumber] = b.ID
	}

	fixed := f.Clone()
	for _, seat := range f.OccupiedSeats {
		if _, ok := claimed[seat]; !ok {
			fixed.ReleaseSeat(seat)
			result.released++
		}
	}
	for seat := range claimed {
		if fixed.OccupySeat(seat) {
			result.restored++
		}
	}

	occupied := uint32(len(fixed.OccupiedSeats))
	fixed.AvailableSeats = 0
	if occupied < fixed.TotalSeats {
		fixed.AvailableSeats = fixed.TotalSeats - occupied
	}

	result.changed = result.released > 0 || result.restored > 0 || fixed.AvailableSeats != f.AvailableSeats
	return fixed, result
}
