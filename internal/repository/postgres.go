package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cx-tal-miterani/seat-inventory/shared/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS flights (
	id               BIGINT PRIMARY KEY,
	agent_principal  TEXT NOT NULL,
	airline          TEXT NOT NULL,
	destination      TEXT NOT NULL,
	departure_time   TIMESTAMPTZ NOT NULL,
	total_seats      BIGINT NOT NULL,
	available_seats  BIGINT NOT NULL,
	occupied_seats   BIGINT[] NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS bookings (
	id                BIGINT PRIMARY KEY,
	booker_principal  TEXT NOT NULL,
	flight_id         BIGINT NOT NULL,
	passenger_name    TEXT NOT NULL,
	seat_number       BIGINT NOT NULL,
	booking_time      TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS bookings_flight_id_idx ON bookings (flight_id);

CREATE TABLE IF NOT EXISTS id_counters (
	name   TEXT PRIMARY KEY,
	value  BIGINT NOT NULL
);
`

const flightColumns = `id, agent_principal, airline, destination, departure_time,
	total_seats, available_seats, occupied_seats`

const bookingColumns = `id, booker_principal, flight_id, passenger_name, seat_number, booking_time`

// PostgresRepository stores flights and bookings in PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Migrate creates the tables if they do not exist yet
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// --- Flight Operations ---

func (r *PostgresRepository) GetFlight(ctx context.Context, id uint64) (*models.Flight, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id = $1`, int64(id))
	f, err := scanFlight(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get flight: %w", err)
	}
	return f, nil
}

func (r *PostgresRepository) PutFlight(ctx context.Context, f *models.Flight) error {
	seats := make([]int64, len(f.OccupiedSeats))
	for i, s := range f.OccupiedSeats {
		seats[i] = int64(s)
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO flights (`+flightColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			agent_principal = EXCLUDED.agent_principal,
			airline = EXCLUDED.airline,
			destination = EXCLUDED.destination,
			departure_time = EXCLUDED.departure_time,
			total_seats = EXCLUDED.total_seats,
			available_seats = EXCLUDED.available_seats,
			occupied_seats = EXCLUDED.occupied_seats
	`, int64(f.ID), f.AgentPrincipal, f.Airline, f.Destination, f.DepartureTime,
		int64(f.TotalSeats), int64(f.AvailableSeats), seats)
	if err != nil {
		return fmt.Errorf("failed to put flight: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RemoveFlight(ctx context.Context, id uint64) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM flights WHERE id = $1`, int64(id)); err != nil {
		return fmt.Errorf("failed to remove flight: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListFlights(ctx context.Context) ([]*models.Flight, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+flightColumns+` FROM flights ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query flights: %w", err)
	}
	defer rows.Close()

	var flights []*models.Flight
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flight: %w", err)
		}
		flights = append(flights, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate flights: %w", err)
	}
	return flights, nil
}

// --- Booking Operations ---

func (r *PostgresRepository) GetBooking(ctx context.Context, id uint64) (*models.Booking, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, int64(id))
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

func (r *PostgresRepository) PutBooking(ctx context.Context, b *models.Booking) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			booker_principal = EXCLUDED.booker_principal,
			flight_id = EXCLUDED.flight_id,
			passenger_name = EXCLUDED.passenger_name,
			seat_number = EXCLUDED.seat_number,
			booking_time = EXCLUDED.booking_time
	`, int64(b.ID), b.BookerPrincipal, int64(b.FlightID), b.PassengerName, int64(b.SeatNumber), b.BookingTime)
	if err != nil {
		return fmt.Errorf("failed to put booking: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RemoveBooking(ctx context.Context, id uint64) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, int64(id)); err != nil {
		return fmt.Errorf("failed to remove booking: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListBookings(ctx context.Context, flightID uint64) ([]*models.Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+` FROM bookings WHERE flight_id = $1 ORDER BY id
	`, int64(flightID))
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}
	return bookings, nil
}

// --- Identifier Counters ---

func (r *PostgresRepository) NextFlightID(ctx context.Context) (uint64, error) {
	return r.next(ctx, EntityFlight)
}

func (r *PostgresRepository) NextBookingID(ctx context.Context) (uint64, error) {
	return r.next(ctx, EntityBooking)
}

func (r *PostgresRepository) next(ctx context.Context, entity string) (uint64, error) {
	var value int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO id_counters (name, value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = id_counters.value + 1
		RETURNING value
	`, entity).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate %s id: %w", entity, err)
	}
	return uint64(value), nil
}

func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func scanFlight(row pgx.Row) (*models.Flight, error) {
	var (
		f                    models.Flight
		id, total, available int64
		seats                []int64
	)
	err := row.Scan(
		&id, &f.AgentPrincipal, &f.Airline, &f.Destination, &f.DepartureTime,
		&total, &available, &seats,
	)
	if err != nil {
		return nil, err
	}

	f.ID = uint64(id)
	f.TotalSeats = uint32(total)
	f.AvailableSeats = uint32(available)
	f.OccupiedSeats = make([]uint32, len(seats))
	for i, s := range seats {
		f.OccupiedSeats[i] = uint32(s)
	}
	return &f, nil
}

func scanBooking(row pgx.Row) (*models.Booking, error) {
	var (
		b                  models.Booking
		id, flightID, seat int64
	)
	err := row.Scan(&id, &b.BookerPrincipal, &flightID, &b.PassengerName, &seat, &b.BookingTime)
	if err != nil {
		return nil, err
	}

	b.ID = uint64(id)
	b.FlightID = uint64(flightID)
	b.SeatNumber = uint32(seat)
	return &b, nil
}
