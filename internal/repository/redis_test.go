package repository

import (
	"net"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRedisRepository(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)

	repo, err := NewRedisRepository(RedisConfig{Host: host, Port: port})
	require.NoError(t, err)
	defer repo.Close()

	testRepository(t, repo)
}

func TestRedisKeys(t *testing.T) {
	require.Equal(t, "flight:42", flightKey(42))
	require.Equal(t, "flight:42:bookings", flightBookingsKey(42))
	require.Equal(t, "booking:7", bookingKey(7))
	require.Equal(t, "counter:flight", counterKey(EntityFlight))
}
