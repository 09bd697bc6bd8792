package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/cx-tal-miterani/seat-inventory/shared/models"
)

// MemoryRepository keeps records in process memory. Records are copied on
// the way in and out so callers never share state with the store.
type MemoryRepository struct {
	mu       sync.RWMutex
	flights  map[uint64]*models.Flight
	bookings map[uint64]*models.Booking
	counters map[string]uint64
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		flights:  make(map[uint64]*models.Flight),
		bookings: make(map[uint64]*models.Booking),
		counters: make(map[string]uint64),
	}
}

func (r *MemoryRepository) GetFlight(ctx context.Context, id uint64) (*models.Flight, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.flights[id]
	if !ok {
		return nil, ErrNotFound
	}
	return f.Clone(), nil
}

func (r *MemoryRepository) PutFlight(ctx context.Context, flight *models.Flight) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.flights[flight.ID] = flight.Clone()
	return nil
}

func (r *MemoryRepository) RemoveFlight(ctx context.Context, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.flights, id)
	return nil
}

func (r *MemoryRepository) ListFlights(ctx context.Context) ([]*models.Flight, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	flights := make([]*models.Flight, 0, len(r.flights))
	for _, f := range r.flights {
		flights = append(flights, f.Clone())
	}
	sort.Slice(flights, func(i, j int) bool { return flights[i].ID < flights[j].ID })
	return flights, nil
}

func (r *MemoryRepository) GetBooking(ctx context.Context, id uint64) (*models.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return b.Clone(), nil
}

func (r *MemoryRepository) PutBooking(ctx context.Context, booking *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.bookings[booking.ID] = booking.Clone()
	return nil
}

func (r *MemoryRepository) RemoveBooking(ctx context.Context, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.bookings, id)
	return nil
}

func (r *MemoryRepository) ListBookings(ctx context.Context, flightID uint64) ([]*models.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var bookings []*models.Booking
	for _, b := range r.bookings {
		if b.FlightID == flightID {
			bookings = append(bookings, b.Clone())
		}
	}
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].ID < bookings[j].ID })
	return bookings, nil
}

func (r *MemoryRepository) NextFlightID(ctx context.Context) (uint64, error) {
	return r.next(EntityFlight), nil
}

func (r *MemoryRepository) NextBookingID(ctx context.Context) (uint64, error) {
	return r.next(EntityBooking), nil
}

func (r *MemoryRepository) next(entity string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counters[entity]++
	return r.counters[entity]
}

func (r *MemoryRepository) Close() error {
	return nil
}
