package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"

	"github.com/cx-tal-miterani/seat-inventory/shared/models"
)

const (
	flightSetKey = "flights"
)

// recordEncoding keeps nanosecond precision for timestamps
var recordEncoding = mustEncMode()

func mustEncMode() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// RedisRepository stores CBOR-encoded records in Redis. Identifier counters
// use INCR, which is atomic on the server.
type RedisRepository struct {
	client *redis.Client
}

func NewRedisRepository(cfg RedisConfig) (*RedisRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Host + ":" + cfg.Port,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisRepository{client: client}, nil
}

func flightKey(id uint64) string {
	return "flight:" + strconv.FormatUint(id, 10)
}

func flightBookingsKey(id uint64) string {
	return "flight:" + strconv.FormatUint(id, 10) + ":bookings"
}

func bookingKey(id uint64) string {
	return "booking:" + strconv.FormatUint(id, 10)
}

func counterKey(entity string) string {
	return "counter:" + entity
}

func (r *RedisRepository) GetFlight(ctx context.Context, id uint64) (*models.Flight, error) {
	var f models.Flight
	if err := r.get(ctx, flightKey(id), &f); err != nil {
		return nil, err
	}
	if f.OccupiedSeats == nil {
		f.OccupiedSeats = []uint32{}
	}
	return &f, nil
}

func (r *RedisRepository) PutFlight(ctx context.Context, f *models.Flight) error {
	data, err := recordEncoding.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode flight: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, flightKey(f.ID), data, 0)
		pipe.SAdd(ctx, flightSetKey, f.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to put flight: %w", err)
	}
	return nil
}

func (r *RedisRepository) RemoveFlight(ctx context.Context, id uint64) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, flightKey(id))
		pipe.SRem(ctx, flightSetKey, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to remove flight: %w", err)
	}
	return nil
}

func (r *RedisRepository) ListFlights(ctx context.Context) ([]*models.Flight, error) {
	ids, err := r.members(ctx, flightSetKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list flights: %w", err)
	}

	flights := make([]*models.Flight, 0, len(ids))
	for _, id := range ids {
		f, err := r.GetFlight(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		flights = append(flights, f)
	}
	return flights, nil
}

func (r *RedisRepository) GetBooking(ctx context.Context, id uint64) (*models.Booking, error) {
	var b models.Booking
	if err := r.get(ctx, bookingKey(id), &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *RedisRepository) PutBooking(ctx context.Context, b *models.Booking) error {
	data, err := recordEncoding.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to encode booking: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, bookingKey(b.ID), data, 0)
		pipe.SAdd(ctx, flightBookingsKey(b.FlightID), b.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to put booking: %w", err)
	}
	return nil
}

func (r *RedisRepository) RemoveBooking(ctx context.Context, id uint64) error {
	b, err := r.GetBooking(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, bookingKey(id))
		pipe.SRem(ctx, flightBookingsKey(b.FlightID), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to remove booking: %w", err)
	}
	return nil
}

func (r *RedisRepository) ListBookings(ctx context.Context, flightID uint64) ([]*models.Booking, error) {
	ids, err := r.members(ctx, flightBookingsKey(flightID))
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	var bookings []*models.Booking
	for _, id := range ids {
		b, err := r.GetBooking(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}

func (r *RedisRepository) NextFlightID(ctx context.Context) (uint64, error) {
	return r.next(ctx, EntityFlight)
}

func (r *RedisRepository) NextBookingID(ctx context.Context) (uint64, error) {
	return r.next(ctx, EntityBooking)
}

func (r *RedisRepository) next(ctx context.Context, entity string) (uint64, error) {
	value, err := r.client.Incr(ctx, counterKey(entity)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to allocate %s id: %w", entity, err)
	}
	return uint64(value), nil
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

func (r *RedisRepository) get(ctx context.Context, key string, v any) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get %s: %w", key, err)
	}
	if err := cbor.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

// members returns the numeric members of a set in ascending order
func (r *RedisRepository) members(ctx context.Context, key string) ([]uint64, error) {
	raw, err := r.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(raw))
	for _, s := range raw {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q in %s: %w", s, key, err)
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
