package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrOwnerNotFound     = errors.New("owner not found")
	ErrSlotFull          = errors.New("slot is fully booked")
	ErrDuplicateBooking  = errors.New("visitor already holds a live appointment for this slot")
	ErrQuotaExceeded     = errors.New("visitor booking quota exceeded")
	ErrInvalidTransition = errors.New("invalid appointment status transition")
)

// Emitter receives committed lifecycle events. Delivery is fire-and-forget;
// implementations must never fail the booking path.
type Emitter interface {
	Emit(ctx context.Context, ev Event)
}

// NopEmitter discards events.
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, Event) {}

// Service is the booking transaction manager. Every mutation of a slot's
// booking counter happens here, inside a transaction that holds the slot's
// row lock.
type Service struct {
	store   Store
	emitter Emitter
	log     *zap.Logger
}

func NewService(store Store, emitter Emitter, log *zap.Logger) *Service {
	return &Service{
		store:   store,
		emitter: emitter,
		log:     log,
	}
}

// ReserveResult is returned from a successful reservation along with the
// slot's post-increment capacity view.
type ReserveResult struct {
	Appointment     *Appointment
	CurrentBookings int
	Available       bool
}

// Reserve creates a pending appointment for a visitor on a slot. The slot
// row lock acquired first serializes all concurrent attempts against the
// same slot, so capacity, duplicate, and quota checks are authoritative.
func (s *Service) Reserve(ctx context.Context, visitorID, slotID uuid.UUID, note string, meetingType MeetingType) (*ReserveResult, error) {
	var result ReserveResult

	err := s.store.WithTx(ctx, func(tx Tx) error {
		slot, err := tx.GetSlotForUpdate(ctx, slotID)
		if err != nil {
			return err
		}
		if !slot.Available() {
			return ErrSlotFull
		}

		dup, err := tx.HasLiveAppointment(ctx, visitorID, slotID)
		if err != nil {
			return fmt.Errorf("check duplicate booking: %w", err)
		}
		if dup {
			return ErrDuplicateBooking
		}

		tier, err := tx.VisitorTier(ctx, visitorID)
		if err != nil {
			return fmt.Errorf("read visitor tier: %w", err)
		}
		usage, err := tx.CountLiveAppointments(ctx, visitorID)
		if err != nil {
			return fmt.Errorf("count live appointments: %w", err)
		}
		if !HasCapacity(usage, tier) {
			return ErrQuotaExceeded
		}

		if meetingType == "" {
			meetingType = slot.Modality
		}
		appt := &Appointment{
			ID:          uuid.New(),
			SlotID:      slot.ID,
			VisitorID:   visitorID,
			OwnerID:     slot.OwnerID,
			Status:      StatusPending,
			MeetingType: meetingType,
			Note:        note,
		}
		if err := tx.InsertAppointment(ctx, appt); err != nil {
			return fmt.Errorf("insert appointment: %w", err)
		}

		updated, err := tx.IncrementSlotBookings(ctx, slotID)
		if err != nil {
			if errors.Is(err, ErrCapacityConflict) {
				s.log.Error("slot counter conflict while holding row lock",
					zap.String("slot_id", slotID.String()),
					zap.String("visitor_id", visitorID.String()),
				)
			}
			return err
		}

		result = ReserveResult{
			Appointment:     appt,
			CurrentBookings: updated.CurrentBookings,
			Available:       updated.Available(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, result.Appointment, "", StatusPending)
	return &result, nil
}

// Cancel moves a live appointment to cancelled and releases its seat on the
// slot. A second cancel is a caller error, not a no-op. Lock order is
// appointment first, then slot; Reserve only ever takes the slot lock, so no
// cyclic wait is possible.
func (s *Service) Cancel(ctx context.Context, appointmentID uuid.UUID) (*Appointment, error) {
	var (
		out       *Appointment
		oldStatus Status
	)

	err := s.store.WithTx(ctx, func(tx Tx) error {
		appt, err := tx.GetAppointmentForUpdate(ctx, appointmentID)
		if err != nil {
			return err
		}
		if !CanTransition(appt.Status, StatusCancelled) {
			return ErrInvalidTransition
		}
		if err := tx.UpdateAppointmentStatus(ctx, appt.ID, appt.Status, StatusCancelled); err != nil {
			return err
		}

		if _, err := tx.GetSlotForUpdate(ctx, appt.SlotID); err != nil {
			return err
		}
		if err := tx.DecrementSlotBookings(ctx, appt.SlotID); err != nil {
			return err
		}

		oldStatus = appt.Status
		appt.Status = StatusCancelled
		out = appt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, out, oldStatus, StatusCancelled)
	return out, nil
}

// Transition applies a non-cancelling state change (confirm, complete).
// Cancellation goes through Cancel so the slot counter is released.
func (s *Service) Transition(ctx context.Context, appointmentID uuid.UUID, to Status) (*Appointment, error) {
	if to == StatusCancelled {
		return s.Cancel(ctx, appointmentID)
	}

	var (
		out       *Appointment
		oldStatus Status
	)

	err := s.store.WithTx(ctx, func(tx Tx) error {
		appt, err := tx.GetAppointmentForUpdate(ctx, appointmentID)
		if err != nil {
			return err
		}
		if !CanTransition(appt.Status, to) {
			return ErrInvalidTransition
		}
		if err := tx.UpdateAppointmentStatus(ctx, appt.ID, appt.Status, to); err != nil {
			return err
		}

		oldStatus = appt.Status
		appt.Status = to
		out = appt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, out, oldStatus, to)
	return out, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.store.GetAppointment(ctx, id)
}

func (s *Service) ListByVisitor(ctx context.Context, visitorID uuid.UUID) ([]Appointment, error) {
	return s.store.ListAppointmentsByVisitor(ctx, visitorID)
}

func (s *Service) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Appointment, error) {
	return s.store.ListAppointmentsByOwner(ctx, ownerID)
}

// GetSlot and ListSlotsByOwner are lock-free snapshot reads for display;
// only the transactional path is authoritative.
func (s *Service) GetSlot(ctx context.Context, id uuid.UUID) (*TimeSlot, error) {
	return s.store.GetSlot(ctx, id)
}

func (s *Service) ListSlotsByOwner(ctx context.Context, ownerID uuid.UUID) ([]TimeSlot, error) {
	return s.store.ListSlotsByOwner(ctx, ownerID)
}

// CreateSlots bulk-publishes meeting slots for one owner. Administrative
// path, used by provisioning tooling; the owner must already exist in the
// directory.
func (s *Service) CreateSlots(ctx context.Context, ownerID uuid.UUID, slots []TimeSlot) error {
	ok, err := s.store.OwnerExists(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("check owner: %w", err)
	}
	if !ok {
		return ErrOwnerNotFound
	}

	for i := range slots {
		if slots[i].ID == uuid.Nil {
			slots[i].ID = uuid.New()
		}
		slots[i].OwnerID = ownerID
	}
	return s.store.CreateSlots(ctx, slots)
}

// SweepEnded is called periodically by the sweeper. Pending appointments on
// ended slots are cancelled (releasing their seats), confirmed ones are
// completed. Each appointment runs in its own transaction so one failure
// does not block the rest of the pass.
func (s *Service) SweepEnded(ctx context.Context, now time.Time) (int, error) {
	ended, err := s.store.ListEndedLive(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list ended appointments: %w", err)
	}

	swept := 0
	for _, appt := range ended {
		var err error
		switch appt.Status {
		case StatusPending:
			_, err = s.Cancel(ctx, appt.ID)
		case StatusConfirmed:
			_, err = s.Transition(ctx, appt.ID, StatusCompleted)
		}
		if err != nil {
			// The appointment may have been transitioned since the snapshot
			// read; skip it and let the next pass pick up anything left.
			if errors.Is(err, ErrInvalidTransition) {
				continue
			}
			s.log.Warn("sweep failed for appointment",
				zap.String("appointment_id", appt.ID.String()),
				zap.Error(err),
			)
			continue
		}
		swept++
	}
	return swept, nil
}

func (s *Service) emit(ctx context.Context, appt *Appointment, oldStatus, newStatus Status) {
	s.emitter.Emit(ctx, Event{
		AppointmentID: appt.ID,
		SlotID:        appt.SlotID,
		VisitorID:     appt.VisitorID,
		OwnerID:       appt.OwnerID,
		OldStatus:     oldStatus,
		NewStatus:     newStatus,
		OccurredAt:    time.Now().UTC(),
	})
}
