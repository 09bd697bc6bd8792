package repository

import (
	"context"
	"errors"

	"github.com/cx-tal-miterani/seat-inventory/shared/models"
)

var (
	ErrNotFound = errors.New("not found")
)

// Entity names used for identifier counters
const (
	EntityFlight  = "flight"
	EntityBooking = "booking"
)

// Repository is the durable store for flights and bookings. Every method is
// atomic per key; there is no multi-record transaction.
type Repository interface {
	GetFlight(ctx context.Context, id uint64) (*models.Flight, error)
	PutFlight(ctx context.Context, flight *models.Flight) error
	RemoveFlight(ctx context.Context, id uint64) error
	ListFlights(ctx context.Context) ([]*models.Flight, error)

	GetBooking(ctx context.Context, id uint64) (*models.Booking, error)
	PutBooking(ctx context.Context, booking *models.Booking) error
	RemoveBooking(ctx context.Context, id uint64) error
	ListBookings(ctx context.Context, flightID uint64) ([]*models.Booking, error)

	// NextFlightID and NextBookingID increment the entity counter and return
	// the new value. The first identifier issued is 1.
	NextFlightID(ctx context.Context) (uint64, error)
	NextBookingID(ctx context.Context) (uint64, error)

	Close() error
}
