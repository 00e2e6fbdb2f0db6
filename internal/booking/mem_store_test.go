package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStoreTxRollback(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	slot := TimeSlot{
		ID:          uuid.New(),
		OwnerID:     uuid.New(),
		StartTime:   time.Now().UTC(),
		EndTime:     time.Now().UTC().Add(30 * time.Minute),
		Modality:    MeetingVirtual,
		MaxBookings: 1,
	}
	require.NoError(t, store.CreateSlots(ctx, []TimeSlot{slot}))

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(tx Tx) error {
		if _, err := tx.IncrementSlotBookings(ctx, slot.ID); err != nil {
			return err
		}
		appt := &Appointment{ID: uuid.New(), SlotID: slot.ID, Status: StatusPending}
		if err := tx.InsertAppointment(ctx, appt); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Nothing staged inside the failed transaction is visible.
	got, err := store.GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CurrentBookings)

	appts, err := store.ListAppointmentsByOwner(ctx, slot.OwnerID)
	require.NoError(t, err)
	assert.Empty(t, appts)
}

func TestMemStoreTxRespectsContext(t *testing.T) {
	store := NewMemStore()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.WithTx(ctx, func(tx Tx) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemStoreCounterClamp(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	slot := TimeSlot{
		ID:          uuid.New(),
		OwnerID:     uuid.New(),
		StartTime:   time.Now().UTC(),
		EndTime:     time.Now().UTC().Add(30 * time.Minute),
		Modality:    MeetingInPerson,
		MaxBookings: 1,
	}
	require.NoError(t, store.CreateSlots(ctx, []TimeSlot{slot}))

	err := store.WithTx(ctx, func(tx Tx) error {
		if _, err := tx.IncrementSlotBookings(ctx, slot.ID); err != nil {
			return err
		}
		_, err := tx.IncrementSlotBookings(ctx, slot.ID)
		assert.ErrorIs(t, err, ErrCapacityConflict)
		return nil
	})
	require.NoError(t, err)

	// Decrement clamps at zero.
	err = store.WithTx(ctx, func(tx Tx) error {
		for i := 0; i < 3; i++ {
			if err := tx.DecrementSlotBookings(ctx, slot.ID); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	got, err := store.GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CurrentBookings)
}
