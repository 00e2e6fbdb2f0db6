package redisclient

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expohall/booking-engine/internal/booking"
)

func newTestCache(t *testing.T) (*AvailabilityCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewAvailabilityCache(client, 30*time.Second), mr
}

func TestAvailabilityCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)

	ownerID := uuid.New()
	slots := []booking.TimeSlot{
		{
			ID:              uuid.New(),
			OwnerID:         ownerID,
			StartTime:       time.Now().UTC().Truncate(time.Second),
			EndTime:         time.Now().UTC().Add(30 * time.Minute).Truncate(time.Second),
			Modality:        booking.MeetingInPerson,
			Location:        "Booth B-204",
			MaxBookings:     2,
			CurrentBookings: 1,
		},
	}

	_, ok := cache.GetOwnerSlots(ctx, ownerID)
	assert.False(t, ok)

	require.NoError(t, cache.SetOwnerSlots(ctx, ownerID, slots))

	got, ok := cache.GetOwnerSlots(ctx, ownerID)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, slots[0].ID, got[0].ID)
	assert.Equal(t, 1, got[0].CurrentBookings)
}

func TestAvailabilityCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)

	ownerID := uuid.New()
	require.NoError(t, cache.SetOwnerSlots(ctx, ownerID, []booking.TimeSlot{{ID: uuid.New()}}))

	cache.Invalidate(ctx, ownerID)

	_, ok := cache.GetOwnerSlots(ctx, ownerID)
	assert.False(t, ok)
}

func TestAvailabilityCacheExpiry(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t)

	ownerID := uuid.New()
	require.NoError(t, cache.SetOwnerSlots(ctx, ownerID, []booking.TimeSlot{{ID: uuid.New()}}))

	mr.FastForward(time.Minute)

	_, ok := cache.GetOwnerSlots(ctx, ownerID)
	assert.False(t, ok)
}
