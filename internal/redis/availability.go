package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/expohall/booking-engine/internal/booking"
)

// AvailabilityCache holds TTL-bounded snapshots of an owner's slot list for
// the display-read path. Entries may be stale; the transactional path never
// consults the cache.
type AvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAvailabilityCache(client *redis.Client, ttl time.Duration) *AvailabilityCache {
	return &AvailabilityCache{client: client, ttl: ttl}
}

func ownerSlotsKey(ownerID uuid.UUID) string {
	return fmt.Sprintf("slots:owner:%s", ownerID.String())
}

// GetOwnerSlots returns the cached slot list for an owner, or ok=false on a
// miss. Redis errors are treated as misses.
func (c *AvailabilityCache) GetOwnerSlots(ctx context.Context, ownerID uuid.UUID) ([]booking.TimeSlot, bool) {
	data, err := c.client.Get(ctx, ownerSlotsKey(ownerID)).Bytes()
	if err != nil {
		return nil, false
	}
	var slots []booking.TimeSlot
	if err := json.Unmarshal(data, &slots); err != nil {
		return nil, false
	}
	return slots, true
}

func (c *AvailabilityCache) SetOwnerSlots(ctx context.Context, ownerID uuid.UUID, slots []booking.TimeSlot) error {
	data, err := json.Marshal(slots)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, ownerSlotsKey(ownerID), data, c.ttl).Err()
}

// Invalidate drops the cached snapshot after a booking transaction changed
// the owner's counters. Best effort; stale entries age out via TTL anyway.
func (c *AvailabilityCache) Invalidate(ctx context.Context, ownerID uuid.UUID) {
	_ = c.client.Del(ctx, ownerSlotsKey(ownerID)).Err()
}
