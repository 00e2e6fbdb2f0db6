package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/expohall/booking-engine/internal/booking"
)

type ReserveRequest struct {
	SlotID      string `json:"slot_id"`
	Note        string `json:"note,omitempty"`
	MeetingType string `json:"meeting_type,omitempty"`
}

type AppointmentResponse struct {
	ID          uuid.UUID `json:"id"`
	SlotID      uuid.UUID `json:"slot_id"`
	VisitorID   uuid.UUID `json:"visitor_id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Status      string    `json:"status"`
	MeetingType string    `json:"meeting_type"`
	Note        string    `json:"note,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type ReserveResponse struct {
	Appointment         AppointmentResponse `json:"appointment"`
	SlotCurrentBookings int                 `json:"slot_current_bookings"`
	SlotAvailable       bool                `json:"slot_available"`
}

type SlotResponse struct {
	ID              uuid.UUID `json:"id"`
	OwnerID         uuid.UUID `json:"owner_id"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	Modality        string    `json:"modality"`
	Location        string    `json:"location,omitempty"`
	MaxBookings     int       `json:"max_bookings"`
	CurrentBookings int       `json:"current_bookings"`
	Available       bool      `json:"available"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:          a.ID,
		SlotID:      a.SlotID,
		VisitorID:   a.VisitorID,
		OwnerID:     a.OwnerID,
		Status:      string(a.Status),
		MeetingType: string(a.MeetingType),
		Note:        a.Note,
		CreatedAt:   a.CreatedAt,
	}
}

func toSlotResponse(s booking.TimeSlot) SlotResponse {
	return SlotResponse{
		ID:              s.ID,
		OwnerID:         s.OwnerID,
		StartTime:       s.StartTime,
		EndTime:         s.EndTime,
		Modality:        string(s.Modality),
		Location:        s.Location,
		MaxBookings:     s.MaxBookings,
		CurrentBookings: s.CurrentBookings,
		Available:       s.Available(),
	}
}
