package models

import "time"

// Booking represents one passenger's reservation of one seat on one flight
type Booking struct {
	ID              uint64    `json:"id"`
	BookerPrincipal string    `json:"bookerPrincipal"`
	FlightID        uint64    `json:"flightId"`
	PassengerName   string    `json:"passengerName"`
	SeatNumber      uint32    `json:"seatNumber"`
	BookingTime     time.Time `json:"bookingTime"`
}

// BookingPayload is the booker-supplied part of a booking
type BookingPayload struct {
	FlightID      uint64 `json:"flightId"`
	PassengerName string `json:"passengerName"`
	SeatNumber    uint32 `json:"seatNumber"`
}

// Clone returns a copy of the booking.
func (b *Booking) Clone() *Booking {
	c := *b
	return &c
}

// AvailabilityResponse is returned by the availability check
type AvailabilityResponse struct {
	FlightID       uint64 `json:"flightId"`
	AvailableSeats uint32 `json:"availableSeats"`
}
