package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/cx-tal-miterani/seat-inventory/shared/models"
)

// MockReservationService is a mock implementation of ReservationService
type MockReservationService struct {
	mock.Mock
}

func (m *MockReservationService) GetFlight(ctx context.Context, flightID uint64) (*models.Flight, error) {
	args := m.Called(ctx, flightID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Flight), args.Error(1)
}

func (m *MockReservationService) GetBooking(ctx context.Context, bookingID uint64) (*models.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockReservationService) AddFlight(ctx context.Context, caller string, payload models.FlightPayload) (*models.Flight, error) {
	args := m.Called(ctx, caller, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Flight), args.Error(1)
}

func (m *MockReservationService) BookFlight(ctx context.Context, caller string, payload models.BookingPayload) (*models.Booking, error) {
	args := m.Called(ctx, caller, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockReservationService) UpdateFlight(ctx context.Context, caller string, flightID uint64, payload models.FlightPayload) (*models.Flight, error) {
	args := m.Called(ctx, caller, flightID, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Flight), args.Error(1)
}

func (m *MockReservationService) DeleteFlight(ctx context.Context, caller string, flightID uint64) error {
	args := m.Called(ctx, caller, flightID)
	return args.Error(0)
}

func (m *MockReservationService) UpdateBooking(ctx context.Context, caller string, bookingID uint64, payload models.BookingPayload) (*models.Booking, error) {
	args := m.Called(ctx, caller, bookingID, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockReservationService) DeleteBooking(ctx context.Context, caller string, bookingID uint64) error {
	args := m.Called(ctx, caller, bookingID)
	return args.Error(0)
}

func (m *MockReservationService) CheckFlightAvailability(ctx context.Context, flightID uint64) (uint32, error) {
	args := m.Called(ctx, flightID)
	return args.Get(0).(uint32), args.Error(1)
}

func (m *MockReservationService) Reconcile(ctx context.Context) (*models.ReconcileReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReconcileReport), args.Error(1)
}
