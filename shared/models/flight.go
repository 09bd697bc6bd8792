package models

import (
	"slices"
	"time"
)

// Flight represents one scheduled departure offered by an agent
type Flight struct {
	ID             uint64    `json:"id"`
	AgentPrincipal string    `json:"agentPrincipal"`
	Airline        string    `json:"airline"`
	Destination    string    `json:"destination"`
	DepartureTime  time.Time `json:"departureTime"`
	TotalSeats     uint32    `json:"totalSeats"`
	AvailableSeats uint32    `json:"availableSeats"`
	OccupiedSeats  []uint32  `json:"occupiedSeats"`
}

// FlightPayload is the agent-supplied part of a flight, used for both
// creation and update.
type FlightPayload struct {
	Airline        string    `json:"airline"`
	Destination    string    `json:"destination"`
	DepartureTime  time.Time `json:"departureTime"`
	AvailableSeats uint32    `json:"availableSeats"`
}

// IsSeatOccupied reports whether seat is currently held by a booking.
func (f *Flight) IsSeatOccupied(seat uint32) bool {
	_, found := slices.BinarySearch(f.OccupiedSeats, seat)
	return found
}

// OccupySeat inserts seat into the occupied set, keeping it sorted.
// It returns false if the seat was already occupied.
func (f *Flight) OccupySeat(seat uint32) bool {
	i, found := slices.BinarySearch(f.OccupiedSeats, seat)
	if found {
		return false
	}
	f.OccupiedSeats = slices.Insert(f.OccupiedSeats, i, seat)
	return true
}

// ReleaseSeat removes seat from the occupied set. It returns false if the
// seat was not occupied.
func (f *Flight) ReleaseSeat(seat uint32) bool {
	i, found := slices.BinarySearch(f.OccupiedSeats, seat)
	if !found {
		return false
	}
	f.OccupiedSeats = slices.Delete(f.OccupiedSeats, i, i+1)
	return true
}

// Clone returns a deep copy of the flight.
func (f *Flight) Clone() *Flight {
	c := *f
	c.OccupiedSeats = slices.Clone(f.OccupiedSeats)
	if c.OccupiedSeats == nil {
		c.OccupiedSeats = []uint32{}
	}
	return &c
}
