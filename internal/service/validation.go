package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/cx-tal-miterani/seat-inventory/shared/models"
)

const (
	// DefaultMinDepartureLeadTime is how far ahead of now a flight must depart
	// when it is created or updated.
	DefaultMinDepartureLeadTime = 2*time.Hour + 5*time.Minute
	// DefaultBookingCutoffWindow closes bookings this long before departure.
	DefaultBookingCutoffWindow = 2 * time.Hour
)

const (
	ErrMsgNoSeatsAvailable = "There are no available seats."
	ErrMsgSeatsZero        = "Available seats can't be zero."
)

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// validateFlightPayload collects every violation instead of stopping at the
// first one.
func validateFlightPayload(p models.FlightPayload, now time.Time, minLead time.Duration) error {
	var errs []string
	if isBlank(p.Airline) {
		errs = append(errs, fmt.Sprintf("Airline='%s' cannot be empty.", p.Airline))
	}
	if isBlank(p.Destination) {
		errs = append(errs, fmt.Sprintf("Destination='%s' cannot be empty.", p.Destination))
	}
	if p.AvailableSeats == 0 {
		errs = append(errs, ErrMsgSeatsZero)
	}
	if p.DepartureTime.Before(now.Add(minLead)) {
		errs = append(errs, fmt.Sprintf(
			"Departure time=%s must be at least %s after the current time=%s.",
			p.DepartureTime.Format(time.RFC3339), minLead, now.Format(time.RFC3339),
		))
	}

	if len(errs) > 0 {
		return &InvalidPayloadError{Errors: errs}
	}
	return nil
}

// validateBookingPayload checks a seat request against the flight it
// targets. A full flight or a closed booking window rejects the request on
// its own; the remaining checks are collected.
func validateBookingPayload(p models.BookingPayload, f *models.Flight, now time.Time, cutoff time.Duration) error {
	if f.AvailableSeats == 0 {
		return &InvalidPayloadError{Errors: []string{ErrMsgNoSeatsAvailable}}
	}
	if !now.Before(f.DepartureTime.Add(-cutoff)) {
		return &InvalidPayloadError{Errors: []string{
			fmt.Sprintf("Bookings close %s before departure.", cutoff),
		}}
	}

	var errs []string
	if isBlank(p.PassengerName) {
		errs = append(errs, fmt.Sprintf("Passenger name='%s' cannot be empty.", p.PassengerName))
	}
	if p.SeatNumber >= f.TotalSeats {
		errs = append(errs, fmt.Sprintf(
			"Seat number=%d is out of range, the flight has %d seats.", p.SeatNumber, f.TotalSeats,
		))
	}
	if f.IsSeatOccupied(p.SeatNumber) {
		errs = append(errs, fmt.Sprintf("Seat number=%d is already booked.", p.SeatNumber))
	}

	if len(errs) > 0 {
		return &InvalidPayloadError{Errors: errs}
	}
	return nil
}
