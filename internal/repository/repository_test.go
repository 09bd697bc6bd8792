package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cx-tal-miterani/seat-inventory/shared/models"
)

// testRepository runs the behaviour every backend must share. Backends that
// persist between runs are fine: assertions only use identifiers allocated
// inside the test.
func testRepository(t *testing.T, repo Repository) {
	ctx := context.Background()
	departure := time.Date(2030, 5, 1, 14, 30, 0, 123456000, time.UTC)

	t.Run("flight round trip", func(t *testing.T) {
		id, err := repo.NextFlightID(ctx)
		require.NoError(t, err)

		flight := &models.Flight{
			ID:             id,
			AgentPrincipal: "agent-1",
			Airline:        "Garuda",
			Destination:    "Denpasar",
			DepartureTime:  departure,
			TotalSeats:     10,
			AvailableSeats: 8,
			OccupiedSeats:  []uint32{2, 7},
		}
		require.NoError(t, repo.PutFlight(ctx, flight))

		got, err := repo.GetFlight(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, flight.Airline, got.Airline)
		assert.Equal(t, flight.AgentPrincipal, got.AgentPrincipal)
		assert.True(t, flight.DepartureTime.Equal(got.DepartureTime))
		assert.Equal(t, uint32(10), got.TotalSeats)
		assert.Equal(t, uint32(8), got.AvailableSeats)
		assert.Equal(t, []uint32{2, 7}, got.OccupiedSeats)

		flight.AvailableSeats = 9
		flight.OccupiedSeats = []uint32{7}
		require.NoError(t, repo.PutFlight(ctx, flight))

		got, err = repo.GetFlight(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, uint32(9), got.AvailableSeats)
		assert.Equal(t, []uint32{7}, got.OccupiedSeats)

		flights, err := repo.ListFlights(ctx)
		require.NoError(t, err)
		var listed bool
		for _, f := range flights {
			if f.ID == id {
				listed = true
			}
		}
		assert.True(t, listed, "flight %d missing from list", id)

		require.NoError(t, repo.RemoveFlight(ctx, id))
		_, err = repo.GetFlight(ctx, id)
		assert.ErrorIs(t, err, ErrNotFound)

		// removing twice is a no-op
		assert.NoError(t, repo.RemoveFlight(ctx, id))
	})

	t.Run("booking round trip", func(t *testing.T) {
		flightID, err := repo.NextFlightID(ctx)
		require.NoError(t, err)

		var ids []uint64
		for seat := uint32(0); seat < 2; seat++ {
			id, err := repo.NextBookingID(ctx)
			require.NoError(t, err)
			ids = append(ids, id)

			require.NoError(t, repo.PutBooking(ctx, &models.Booking{
				ID:              id,
				BookerPrincipal: "booker-1",
				FlightID:        flightID,
				PassengerName:   "Ada Lovelace",
				SeatNumber:      seat,
				BookingTime:     departure.Add(-48 * time.Hour),
			}))
		}

		got, err := repo.GetBooking(ctx, ids[1])
		require.NoError(t, err)
		assert.Equal(t, flightID, got.FlightID)
		assert.Equal(t, uint32(1), got.SeatNumber)
		assert.Equal(t, "booker-1", got.BookerPrincipal)

		bookings, err := repo.ListBookings(ctx, flightID)
		require.NoError(t, err)
		require.Len(t, bookings, 2)
		assert.Equal(t, ids[0], bookings[0].ID)
		assert.Equal(t, ids[1], bookings[1].ID)

		require.NoError(t, repo.RemoveBooking(ctx, ids[0]))
		_, err = repo.GetBooking(ctx, ids[0])
		assert.ErrorIs(t, err, ErrNotFound)

		bookings, err = repo.ListBookings(ctx, flightID)
		require.NoError(t, err)
		require.Len(t, bookings, 1)
		assert.Equal(t, ids[1], bookings[0].ID)

		assert.NoError(t, repo.RemoveBooking(ctx, ids[0]))
		require.NoError(t, repo.RemoveBooking(ctx, ids[1]))
	})

	t.Run("identifiers increase per entity", func(t *testing.T) {
		f1, err := repo.NextFlightID(ctx)
		require.NoError(t, err)
		b1, err := repo.NextBookingID(ctx)
		require.NoError(t, err)
		f2, err := repo.NextFlightID(ctx)
		require.NoError(t, err)
		b2, err := repo.NextBookingID(ctx)
		require.NoError(t, err)

		assert.Equal(t, f1+1, f2)
		assert.Equal(t, b1+1, b2)
	})
}
