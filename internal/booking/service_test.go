package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingEmitter) Emit(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingEmitter) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

type fixture struct {
	svc     *Service
	store   *MemStore
	emitter *recordingEmitter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := NewMemStore()
	emitter := &recordingEmitter{}
	return &fixture{
		svc:     NewService(store, emitter, zap.NewNop()),
		store:   store,
		emitter: emitter,
	}
}

func (f *fixture) addSlot(t *testing.T, ownerID uuid.UUID, maxBookings int) uuid.UUID {
	t.Helper()
	start := time.Now().UTC().Add(24 * time.Hour)
	slot := TimeSlot{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		StartTime:   start,
		EndTime:     start.Add(30 * time.Minute),
		Modality:    MeetingInPerson,
		Location:    "Booth A-101",
		MaxBookings: maxBookings,
	}
	require.NoError(t, f.store.CreateSlots(context.Background(), []TimeSlot{slot}))
	return slot.ID
}

func (f *fixture) addEndedSlot(t *testing.T, ownerID uuid.UUID) uuid.UUID {
	t.Helper()
	end := time.Now().UTC().Add(-time.Hour)
	slot := TimeSlot{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		StartTime:   end.Add(-30 * time.Minute),
		EndTime:     end,
		Modality:    MeetingVirtual,
		MaxBookings: 5,
	}
	require.NoError(t, f.store.CreateSlots(context.Background(), []TimeSlot{slot}))
	return slot.ID
}

func (f *fixture) addVisitor(tier Tier) uuid.UUID {
	id := uuid.New()
	f.store.AddVisitor(id, tier)
	return id
}

func TestReserve(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	t.Run("creates a pending appointment and increments the counter", func(t *testing.T) {
		f := newFixture(t)
		slotID := f.addSlot(t, owner, 2)
		visitor := f.addVisitor(TierPremium)

		res, err := f.svc.Reserve(ctx, visitor, slotID, "about your booth demo", "")
		require.NoError(t, err)

		assert.Equal(t, StatusPending, res.Appointment.Status)
		assert.Equal(t, owner, res.Appointment.OwnerID)
		assert.Equal(t, 1, res.CurrentBookings)
		assert.True(t, res.Available)
		// Meeting type defaults to the slot's modality.
		assert.Equal(t, MeetingInPerson, res.Appointment.MeetingType)

		slot, err := f.store.GetSlot(ctx, slotID)
		require.NoError(t, err)
		assert.Equal(t, 1, slot.CurrentBookings)

		events := f.emitter.all()
		require.Len(t, events, 1)
		assert.Equal(t, StatusPending, events[0].NewStatus)
		assert.Equal(t, res.Appointment.ID, events[0].AppointmentID)
	})

	t.Run("honors a meeting type override", func(t *testing.T) {
		f := newFixture(t)
		slotID := f.addSlot(t, owner, 1)
		visitor := f.addVisitor(TierVIP)

		res, err := f.svc.Reserve(ctx, visitor, slotID, "", MeetingVirtual)
		require.NoError(t, err)
		assert.Equal(t, MeetingVirtual, res.Appointment.MeetingType)
	})

	t.Run("unknown slot", func(t *testing.T) {
		f := newFixture(t)
		visitor := f.addVisitor(TierPremium)

		_, err := f.svc.Reserve(ctx, visitor, uuid.New(), "", "")
		assert.ErrorIs(t, err, ErrSlotNotFound)
	})

	t.Run("full slot rejects the second visitor", func(t *testing.T) {
		f := newFixture(t)
		slotID := f.addSlot(t, owner, 1)
		a := f.addVisitor(TierPremium)
		b := f.addVisitor(TierPremium)

		res, err := f.svc.Reserve(ctx, a, slotID, "", "")
		require.NoError(t, err)
		assert.False(t, res.Available)

		_, err = f.svc.Reserve(ctx, b, slotID, "", "")
		assert.ErrorIs(t, err, ErrSlotFull)
	})

	t.Run("re-reserving a held slot is a duplicate, not an update", func(t *testing.T) {
		f := newFixture(t)
		slotID := f.addSlot(t, owner, 3)
		visitor := f.addVisitor(TierPremium)

		_, err := f.svc.Reserve(ctx, visitor, slotID, "", "")
		require.NoError(t, err)

		_, err = f.svc.Reserve(ctx, visitor, slotID, "", "")
		assert.ErrorIs(t, err, ErrDuplicateBooking)
	})

	t.Run("free tier has zero quota", func(t *testing.T) {
		f := newFixture(t)
		slotID := f.addSlot(t, owner, 3)
		visitor := f.addVisitor(TierFree)

		_, err := f.svc.Reserve(ctx, visitor, slotID, "", "")
		assert.ErrorIs(t, err, ErrQuotaExceeded)
	})

	t.Run("visitor missing from the directory has zero quota", func(t *testing.T) {
		f := newFixture(t)
		slotID := f.addSlot(t, owner, 3)

		_, err := f.svc.Reserve(ctx, uuid.New(), slotID, "", "")
		assert.ErrorIs(t, err, ErrQuotaExceeded)
	})

	t.Run("tier cap counts only live appointments", func(t *testing.T) {
		f := newFixture(t)
		visitor := f.addVisitor(TierPremium)

		var lastAppt uuid.UUID
		for i := 0; i < AllowedQuota(TierPremium); i++ {
			slotID := f.addSlot(t, owner, 1)
			res, err := f.svc.Reserve(ctx, visitor, slotID, "", "")
			require.NoError(t, err)
			lastAppt = res.Appointment.ID
		}

		extra := f.addSlot(t, owner, 1)
		_, err := f.svc.Reserve(ctx, visitor, extra, "", "")
		assert.ErrorIs(t, err, ErrQuotaExceeded)

		// Cancelling immediately frees quota for a new reservation.
		_, err = f.svc.Cancel(ctx, lastAppt)
		require.NoError(t, err)

		_, err = f.svc.Reserve(ctx, visitor, extra, "", "")
		assert.NoError(t, err)
	})

	t.Run("failed reservation leaves no partial state", func(t *testing.T) {
		f := newFixture(t)
		slotID := f.addSlot(t, owner, 3)
		visitor := f.addVisitor(TierFree)

		_, err := f.svc.Reserve(ctx, visitor, slotID, "", "")
		require.ErrorIs(t, err, ErrQuotaExceeded)

		slot, err := f.store.GetSlot(ctx, slotID)
		require.NoError(t, err)
		assert.Equal(t, 0, slot.CurrentBookings)

		appts, err := f.store.ListAppointmentsByVisitor(ctx, visitor)
		require.NoError(t, err)
		assert.Empty(t, appts)
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	t.Run("frees the seat for another visitor", func(t *testing.T) {
		f := newFixture(t)
		slotID := f.addSlot(t, owner, 1)
		a := f.addVisitor(TierPremium)
		b := f.addVisitor(TierPremium)

		res, err := f.svc.Reserve(ctx, a, slotID, "", "")
		require.NoError(t, err)

		_, err = f.svc.Reserve(ctx, b, slotID, "", "")
		require.ErrorIs(t, err, ErrSlotFull)

		cancelled, err := f.svc.Cancel(ctx, res.Appointment.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, cancelled.Status)

		slot, err := f.store.GetSlot(ctx, slotID)
		require.NoError(t, err)
		assert.Equal(t, 0, slot.CurrentBookings)
		assert.True(t, slot.Available())

		_, err = f.svc.Reserve(ctx, b, slotID, "", "")
		assert.NoError(t, err)
	})

	t.Run("double cancel is a caller error and decrements exactly once", func(t *testing.T) {
		f := newFixture(t)
		slotID := f.addSlot(t, owner, 2)
		visitor := f.addVisitor(TierPremium)

		res, err := f.svc.Reserve(ctx, visitor, slotID, "", "")
		require.NoError(t, err)

		_, err = f.svc.Cancel(ctx, res.Appointment.ID)
		require.NoError(t, err)

		_, err = f.svc.Cancel(ctx, res.Appointment.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition)

		slot, err := f.store.GetSlot(ctx, slotID)
		require.NoError(t, err)
		assert.Equal(t, 0, slot.CurrentBookings)
	})

	t.Run("unknown appointment", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Cancel(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrAppointmentNotFound)
	})
}

func TestTransition(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	t.Run("pending to confirmed to completed", func(t *testing.T) {
		f := newFixture(t)
		slotID := f.addSlot(t, owner, 1)
		visitor := f.addVisitor(TierVIP)

		res, err := f.svc.Reserve(ctx, visitor, slotID, "", "")
		require.NoError(t, err)
		id := res.Appointment.ID

		appt, err := f.svc.Transition(ctx, id, StatusConfirmed)
		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, appt.Status)

		appt, err = f.svc.Transition(ctx, id, StatusCompleted)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, appt.Status)

		// Terminal: a later cancel must fail and the counter stays put.
		_, err = f.svc.Cancel(ctx, id)
		assert.ErrorIs(t, err, ErrInvalidTransition)

		slot, err := f.store.GetSlot(ctx, slotID)
		require.NoError(t, err)
		assert.Equal(t, 1, slot.CurrentBookings)

		events := f.emitter.all()
		require.Len(t, events, 3)
		assert.Equal(t, StatusPending, events[1].OldStatus)
		assert.Equal(t, StatusConfirmed, events[1].NewStatus)
		assert.Equal(t, StatusCompleted, events[2].NewStatus)
	})

	t.Run("pending cannot jump to completed", func(t *testing.T) {
		f := newFixture(t)
		slotID := f.addSlot(t, owner, 1)
		visitor := f.addVisitor(TierPremium)

		res, err := f.svc.Reserve(ctx, visitor, slotID, "", "")
		require.NoError(t, err)

		_, err = f.svc.Transition(ctx, res.Appointment.ID, StatusCompleted)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("transition to cancelled releases the seat", func(t *testing.T) {
		f := newFixture(t)
		slotID := f.addSlot(t, owner, 1)
		visitor := f.addVisitor(TierPremium)

		res, err := f.svc.Reserve(ctx, visitor, slotID, "", "")
		require.NoError(t, err)

		_, err = f.svc.Transition(ctx, res.Appointment.ID, StatusCancelled)
		require.NoError(t, err)

		slot, err := f.store.GetSlot(ctx, slotID)
		require.NoError(t, err)
		assert.Equal(t, 0, slot.CurrentBookings)
	})
}

func TestConcurrentReserveSingleSeat(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := uuid.New()
	slotID := f.addSlot(t, owner, 1)

	const visitors = 25
	ids := make([]uuid.UUID, visitors)
	for i := range ids {
		ids[i] = f.addVisitor(TierPremium)
	}

	var (
		wg        sync.WaitGroup
		successes int64
		slotFull  int64
		mu        sync.Mutex
	)

	for i := 0; i < visitors; i++ {
		wg.Add(1)
		go func(visitorID uuid.UUID) {
			defer wg.Done()
			_, err := f.svc.Reserve(ctx, visitorID, slotID, "", "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrSlotFull):
				slotFull++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(ids[i])
	}
	wg.Wait()

	assert.EqualValues(t, 1, successes)
	assert.EqualValues(t, visitors-1, slotFull)

	slot, err := f.store.GetSlot(ctx, slotID)
	require.NoError(t, err)
	assert.Equal(t, 1, slot.CurrentBookings)
}

func TestCreateSlots(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	owner := uuid.New()
	start := time.Now().UTC().Add(48 * time.Hour)
	slots := []TimeSlot{
		{StartTime: start, EndTime: start.Add(30 * time.Minute), Modality: MeetingInPerson, MaxBookings: 2},
		{StartTime: start.Add(30 * time.Minute), EndTime: start.Add(time.Hour), Modality: MeetingVirtual, MaxBookings: 1},
	}

	t.Run("rejects an owner missing from the directory", func(t *testing.T) {
		err := f.svc.CreateSlots(ctx, owner, slots)
		assert.ErrorIs(t, err, ErrOwnerNotFound)
	})

	t.Run("assigns ids and publishes under the owner", func(t *testing.T) {
		f.store.AddOwner(owner)
		require.NoError(t, f.svc.CreateSlots(ctx, owner, slots))

		published, err := f.svc.ListSlotsByOwner(ctx, owner)
		require.NoError(t, err)
		require.Len(t, published, 2)
		for _, s := range published {
			assert.NotEqual(t, uuid.Nil, s.ID)
			assert.Equal(t, owner, s.OwnerID)
			assert.Equal(t, 0, s.CurrentBookings)
		}
	})
}

func TestSweepEnded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := uuid.New()

	ended := f.addEndedSlot(t, owner)
	upcoming := f.addSlot(t, owner, 5)

	pendingVisitor := f.addVisitor(TierPremium)
	confirmedVisitor := f.addVisitor(TierPremium)
	liveVisitor := f.addVisitor(TierPremium)

	pendingRes, err := f.svc.Reserve(ctx, pendingVisitor, ended, "", "")
	require.NoError(t, err)
	confirmedRes, err := f.svc.Reserve(ctx, confirmedVisitor, ended, "", "")
	require.NoError(t, err)
	_, err = f.svc.Transition(ctx, confirmedRes.Appointment.ID, StatusConfirmed)
	require.NoError(t, err)
	liveRes, err := f.svc.Reserve(ctx, liveVisitor, upcoming, "", "")
	require.NoError(t, err)

	swept, err := f.svc.SweepEnded(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 2, swept)

	appt, err := f.store.GetAppointment(ctx, pendingRes.Appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, appt.Status)

	appt, err = f.store.GetAppointment(ctx, confirmedRes.Appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, appt.Status)

	appt, err = f.store.GetAppointment(ctx, liveRes.Appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, appt.Status)

	// Sweeping the cancelled pending appointment freed its seat.
	slot, err := f.store.GetSlot(ctx, ended)
	require.NoError(t, err)
	assert.Equal(t, 1, slot.CurrentBookings)
}
