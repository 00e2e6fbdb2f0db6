package booking

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition may leave this status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Live reports whether the appointment counts against the slot's booking
// counter and the visitor's quota.
func (s Status) Live() bool {
	return s == StatusPending || s == StatusConfirmed
}

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

// CanTransition validates a single step of the appointment state machine.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type MeetingType string

const (
	MeetingInPerson MeetingType = "in-person"
	MeetingVirtual  MeetingType = "virtual"
)

type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
	TierVIP     Tier = "vip"
)

// TimeSlot is an offerable meeting window published by an exhibitor or
// partner. CurrentBookings is mutated only inside a booking transaction and
// never exceeds MaxBookings.
type TimeSlot struct {
	ID              uuid.UUID
	OwnerID         uuid.UUID
	StartTime       time.Time
	EndTime         time.Time
	Modality        MeetingType
	Location        string
	MaxBookings     int
	CurrentBookings int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (s *TimeSlot) Available() bool {
	return s.CurrentBookings < s.MaxBookings
}

type Appointment struct {
	ID          uuid.UUID
	SlotID      uuid.UUID
	VisitorID   uuid.UUID
	OwnerID     uuid.UUID
	Status      Status
	MeetingType MeetingType
	Note        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Event describes one committed status change, delivered to the
// notification emitter after the transaction that produced it.
type Event struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	SlotID        uuid.UUID `json:"slot_id"`
	VisitorID     uuid.UUID `json:"visitor_id"`
	OwnerID       uuid.UUID `json:"owner_id"`
	OldStatus     Status    `json:"old_status,omitempty"`
	NewStatus     Status    `json:"new_status"`
	OccurredAt    time.Time `json:"occurred_at"`
}
