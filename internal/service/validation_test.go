package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cx-tal-miterani/seat-inventory/shared/models"
)

func TestValidateBookingPayload(t *testing.T) {
	now := time.Date(2030, 6, 1, 8, 0, 0, 0, time.UTC)
	cutoff := DefaultBookingCutoffWindow

	open := seededFlight(1, 3, 2, 0)
	open.DepartureTime = now.Add(cutoff + time.Minute)

	full := seededFlight(2, 1, 0, 0)
	full.DepartureTime = open.DepartureTime

	closed := seededFlight(3, 3, 3)
	closed.DepartureTime = now.Add(cutoff)

	tests := []struct {
		name     string
		payload  models.BookingPayload
		flight   *models.Flight
		expected []string
	}{
		{
			name:    "valid request",
			payload: models.BookingPayload{PassengerName: "Ada", SeatNumber: 2},
			flight:  open,
		},
		{
			name:     "full flight rejects before field checks",
			payload:  models.BookingPayload{PassengerName: "", SeatNumber: 40},
			flight:   full,
			expected: []string{ErrMsgNoSeatsAvailable},
		},
		{
			name:     "closed window rejects before field checks",
			payload:  models.BookingPayload{PassengerName: "", SeatNumber: 40},
			flight:   closed,
			expected: []string{"Bookings close 2h0m0s before departure."},
		},
		{
			name:    "field violations are collected in order",
			payload: models.BookingPayload{PassengerName: "\t", SeatNumber: 0},
			flight:  open,
			expected: []string{
				"Passenger name='\t' cannot be empty.",
				"Seat number=0 is already booked.",
			},
		},
		{
			name:     "seat equal to capacity is out of range",
			payload:  models.BookingPayload{PassengerName: "Ada", SeatNumber: 3},
			flight:   open,
			expected: []string{"Seat number=3 is out of range, the flight has 3 seats."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateBookingPayload(tt.payload, tt.flight, now, cutoff)
			if tt.expected == nil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.expected, invalidPayloadErrors(t, err))
		})
	}
}

func TestValidateFlightPayload(t *testing.T) {
	now := time.Date(2030, 6, 1, 8, 0, 0, 0, time.UTC)

	err := validateFlightPayload(models.FlightPayload{
		Airline:        "Citilink",
		Destination:    "Jakarta",
		DepartureTime:  now.Add(DefaultMinDepartureLeadTime),
		AvailableSeats: 1,
	}, now, DefaultMinDepartureLeadTime)
	require.NoError(t, err)

	err = validateFlightPayload(models.FlightPayload{
		Airline:        "Citilink",
		Destination:    " ",
		DepartureTime:  now,
		AvailableSeats: 1,
	}, now, DefaultMinDepartureLeadTime)
	errs := invalidPayloadErrors(t, err)
	require.Len(t, errs, 2)
	assert.Equal(t, "Destination=' ' cannot be empty.", errs[0])
	assert.Equal(t, "Departure time=2030-06-01T08:00:00Z must be at least 2h5m0s after the current time=2030-06-01T08:00:00Z.", errs[1])
}

func TestInvalidPayloadError(t *testing.T) {
	err := &InvalidPayloadError{Errors: []string{"First.", "Second."}}
	assert.Equal(t, "invalid payload: First. Second.", err.Error())
}
