package booking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is an in-memory Store used by tests and local development. A
// store-wide mutex serves as the critical section the row lock provides in
// Postgres: transactions run one at a time against a staged copy of the
// state, which replaces the live state only on commit.
type MemStore struct {
	mu    sync.Mutex
	state memState
}

type memState struct {
	slots    map[uuid.UUID]TimeSlot
	appts    map[uuid.UUID]Appointment
	visitors map[uuid.UUID]Tier
	owners   map[uuid.UUID]bool
}

func NewMemStore() *MemStore {
	return &MemStore{
		state: memState{
			slots:    make(map[uuid.UUID]TimeSlot),
			appts:    make(map[uuid.UUID]Appointment),
			visitors: make(map[uuid.UUID]Tier),
			owners:   make(map[uuid.UUID]bool),
		},
	}
}

func (st memState) clone() memState {
	next := memState{
		slots:    make(map[uuid.UUID]TimeSlot, len(st.slots)),
		appts:    make(map[uuid.UUID]Appointment, len(st.appts)),
		visitors: make(map[uuid.UUID]Tier, len(st.visitors)),
		owners:   make(map[uuid.UUID]bool, len(st.owners)),
	}
	for id, s := range st.slots {
		next.slots[id] = s
	}
	for id, a := range st.appts {
		next.appts[id] = a
	}
	for id, t := range st.visitors {
		next.visitors[id] = t
	}
	for id := range st.owners {
		next.owners[id] = true
	}
	return next
}

// AddVisitor registers a visitor with the given tier in the directory.
func (m *MemStore) AddVisitor(id uuid.UUID, tier Tier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.visitors[id] = tier
}

// AddOwner registers an exhibitor/partner in the directory.
func (m *MemStore) AddOwner(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.owners[id] = true
}

func (m *MemStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	staged := m.state.clone()
	if err := fn(&memTx{state: &staged}); err != nil {
		return err
	}
	m.state = staged
	return nil
}

func (m *MemStore) GetSlot(ctx context.Context, id uuid.UUID) (*TimeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.state.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	return &slot, nil
}

func (m *MemStore) ListSlotsByOwner(ctx context.Context, ownerID uuid.UUID) ([]TimeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []TimeSlot
	for _, slot := range m.state.slots {
		if slot.OwnerID == ownerID {
			result = append(result, slot)
		}
	}
	sortSlots(result)
	return result, nil
}

func (m *MemStore) CreateSlots(ctx context.Context, slots []TimeSlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	for _, slot := range slots {
		slot.CurrentBookings = 0
		slot.CreatedAt = now
		slot.UpdatedAt = now
		m.state.slots[slot.ID] = slot
	}
	return nil
}

func (m *MemStore) OwnerExists(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.owners[id], nil
}

func (m *MemStore) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	appt, ok := m.state.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &appt, nil
}

func (m *MemStore) ListAppointmentsByVisitor(ctx context.Context, visitorID uuid.UUID) ([]Appointment, error) {
	return m.listAppointments(func(a Appointment) bool { return a.VisitorID == visitorID })
}

func (m *MemStore) ListAppointmentsByOwner(ctx context.Context, ownerID uuid.UUID) ([]Appointment, error) {
	return m.listAppointments(func(a Appointment) bool { return a.OwnerID == ownerID })
}

func (m *MemStore) ListEndedLive(ctx context.Context, now time.Time) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []Appointment
	for _, appt := range m.state.appts {
		if !appt.Status.Live() {
			continue
		}
		slot, ok := m.state.slots[appt.SlotID]
		if ok && slot.EndTime.Before(now) {
			result = append(result, appt)
		}
	}
	return result, nil
}

func (m *MemStore) listAppointments(match func(Appointment) bool) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []Appointment
	for _, appt := range m.state.appts {
		if match(appt) {
			result = append(result, appt)
		}
	}
	sortAppointments(result)
	return result, nil
}

func sortSlots(slots []TimeSlot) {
	for i := 1; i < len(slots); i++ {
		for j := i; j > 0 && slots[j].StartTime.Before(slots[j-1].StartTime); j-- {
			slots[j], slots[j-1] = slots[j-1], slots[j]
		}
	}
}

func sortAppointments(appts []Appointment) {
	for i := 1; i < len(appts); i++ {
		for j := i; j > 0 && appts[j].CreatedAt.After(appts[j-1].CreatedAt); j-- {
			appts[j], appts[j-1] = appts[j-1], appts[j]
		}
	}
}

type memTx struct {
	state *memState
}

func (t *memTx) GetSlotForUpdate(ctx context.Context, id uuid.UUID) (*TimeSlot, error) {
	slot, ok := t.state.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	return &slot, nil
}

func (t *memTx) GetAppointmentForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, ok := t.state.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &appt, nil
}

func (t *memTx) HasLiveAppointment(ctx context.Context, visitorID, slotID uuid.UUID) (bool, error) {
	for _, appt := range t.state.appts {
		if appt.VisitorID == visitorID && appt.SlotID == slotID && appt.Status.Live() {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) CountLiveAppointments(ctx context.Context, visitorID uuid.UUID) (int, error) {
	count := 0
	for _, appt := range t.state.appts {
		if appt.VisitorID == visitorID && appt.Status.Live() {
			count++
		}
	}
	return count, nil
}

func (t *memTx) VisitorTier(ctx context.Context, visitorID uuid.UUID) (Tier, error) {
	return t.state.visitors[visitorID], nil
}

func (t *memTx) InsertAppointment(ctx context.Context, appt *Appointment) error {
	now := time.Now().UTC()
	appt.CreatedAt = now
	appt.UpdatedAt = now
	t.state.appts[appt.ID] = *appt
	return nil
}

func (t *memTx) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status) error {
	appt, ok := t.state.appts[id]
	if !ok || appt.Status != from {
		return ErrAppointmentNotFound
	}
	appt.Status = to
	appt.UpdatedAt = time.Now().UTC()
	t.state.appts[id] = appt
	return nil
}

func (t *memTx) IncrementSlotBookings(ctx context.Context, slotID uuid.UUID) (*TimeSlot, error) {
	slot, ok := t.state.slots[slotID]
	if !ok {
		return nil, ErrSlotNotFound
	}
	if slot.CurrentBookings >= slot.MaxBookings {
		return nil, ErrCapacityConflict
	}
	slot.CurrentBookings++
	slot.UpdatedAt = time.Now().UTC()
	t.state.slots[slotID] = slot
	return &slot, nil
}

func (t *memTx) DecrementSlotBookings(ctx context.Context, slotID uuid.UUID) error {
	slot, ok := t.state.slots[slotID]
	if !ok {
		return ErrSlotNotFound
	}
	if slot.CurrentBookings > 0 {
		slot.CurrentBookings--
	}
	slot.UpdatedAt = time.Now().UTC()
	t.state.slots[slotID] = slot
	return nil
}
