package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSlotNotFound        = errors.New("slot not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrCapacityConflict means the guarded counter update found the slot
	// already full while the row lock was held. It should be unreachable and
	// indicates a locking bug, not a legitimate business state.
	ErrCapacityConflict = errors.New("slot capacity invariant violated")
)

// Store is the durable record of slots and appointments. All mutating
// access to a slot's booking counter goes through WithTx so the counter and
// the appointment rows change atomically.
type Store interface {
	// WithTx runs fn inside a single transaction. A non-nil error from fn
	// rolls back every change made through the Tx.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	GetSlot(ctx context.Context, id uuid.UUID) (*TimeSlot, error)
	ListSlotsByOwner(ctx context.Context, ownerID uuid.UUID) ([]TimeSlot, error)
	CreateSlots(ctx context.Context, slots []TimeSlot) error
	OwnerExists(ctx context.Context, id uuid.UUID) (bool, error)

	GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListAppointmentsByVisitor(ctx context.Context, visitorID uuid.UUID) ([]Appointment, error)
	ListAppointmentsByOwner(ctx context.Context, ownerID uuid.UUID) ([]Appointment, error)

	// ListEndedLive returns live appointments whose slot ended before now.
	// Used by the sweeper; a plain snapshot read.
	ListEndedLive(ctx context.Context, now time.Time) ([]Appointment, error)
}

// Tx exposes the transactional operations of the booking engine. Lock
// ordering: callers that need both an appointment row and a slot row must
// lock the appointment first.
type Tx interface {
	// GetSlotForUpdate fetches a slot under an exclusive row lock held until
	// the transaction ends. This serializes all concurrent reservation
	// attempts against the same slot.
	GetSlotForUpdate(ctx context.Context, id uuid.UUID) (*TimeSlot, error)
	GetAppointmentForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error)

	HasLiveAppointment(ctx context.Context, visitorID, slotID uuid.UUID) (bool, error)
	CountLiveAppointments(ctx context.Context, visitorID uuid.UUID) (int, error)

	// VisitorTier reads the visitor directory inside the transaction so the
	// quota check sees a consistent snapshot. Unknown visitors resolve to
	// the empty tier, which carries a zero quota.
	VisitorTier(ctx context.Context, visitorID uuid.UUID) (Tier, error)

	InsertAppointment(ctx context.Context, appt *Appointment) error
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status) error

	// IncrementSlotBookings is only valid while holding the lock from
	// GetSlotForUpdate. It fails with ErrCapacityConflict if the increment
	// would exceed MaxBookings.
	IncrementSlotBookings(ctx context.Context, slotID uuid.UUID) (*TimeSlot, error)
	// DecrementSlotBookings clamps at zero. The caller guarantees at most
	// one invocation per cancelled appointment.
	DecrementSlotBookings(ctx context.Context, slotID uuid.UUID) error
}
