package booking

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrForbidden = errors.New("actor may not act on this appointment")

type Role string

const (
	RoleVisitor Role = "visitor"
	RoleOwner   Role = "owner"
)

// Actor identifies the authenticated caller of a lifecycle operation.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// Controller is the actor-facing surface of the booking engine. It enforces
// who may do what: visitors reserve and cancel their own appointments;
// owners confirm, decline, complete, or cancel appointments on their own
// slots. Business-rule checks stay in the Service underneath.
type Controller struct {
	svc *Service
}

func NewController(svc *Service) *Controller {
	return &Controller{svc: svc}
}

func (c *Controller) Reserve(ctx context.Context, actor Actor, slotID uuid.UUID, note string, meetingType MeetingType) (*ReserveResult, error) {
	if actor.Role != RoleVisitor {
		return nil, ErrForbidden
	}
	return c.svc.Reserve(ctx, actor.ID, slotID, note, meetingType)
}

func (c *Controller) Cancel(ctx context.Context, actor Actor, appointmentID uuid.UUID) (*Appointment, error) {
	appt, err := c.svc.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !c.mayAct(actor, appt) {
		return nil, ErrForbidden
	}
	return c.svc.Cancel(ctx, appointmentID)
}

// Confirm accepts a pending appointment. Owner only.
func (c *Controller) Confirm(ctx context.Context, actor Actor, appointmentID uuid.UUID) (*Appointment, error) {
	return c.ownerTransition(ctx, actor, appointmentID, StatusConfirmed)
}

// Decline rejects a pending appointment, releasing its seat. Owner only.
func (c *Controller) Decline(ctx context.Context, actor Actor, appointmentID uuid.UUID) (*Appointment, error) {
	return c.ownerTransition(ctx, actor, appointmentID, StatusCancelled)
}

// Complete marks a confirmed appointment as held. Owner only.
func (c *Controller) Complete(ctx context.Context, actor Actor, appointmentID uuid.UUID) (*Appointment, error) {
	return c.ownerTransition(ctx, actor, appointmentID, StatusCompleted)
}

func (c *Controller) ownerTransition(ctx context.Context, actor Actor, appointmentID uuid.UUID, to Status) (*Appointment, error) {
	appt, err := c.svc.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if actor.Role != RoleOwner || appt.OwnerID != actor.ID {
		return nil, ErrForbidden
	}
	return c.svc.Transition(ctx, appointmentID, to)
}

func (c *Controller) Get(ctx context.Context, actor Actor, appointmentID uuid.UUID) (*Appointment, error) {
	appt, err := c.svc.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !c.mayAct(actor, appt) {
		return nil, ErrForbidden
	}
	return appt, nil
}

// List returns the actor's view of appointments: a visitor's own bookings,
// or every booking against an owner's slots.
func (c *Controller) List(ctx context.Context, actor Actor) ([]Appointment, error) {
	switch actor.Role {
	case RoleVisitor:
		return c.svc.ListByVisitor(ctx, actor.ID)
	case RoleOwner:
		return c.svc.ListByOwner(ctx, actor.ID)
	default:
		return nil, ErrForbidden
	}
}

func (c *Controller) mayAct(actor Actor, appt *Appointment) bool {
	switch actor.Role {
	case RoleVisitor:
		return appt.VisitorID == actor.ID
	case RoleOwner:
		return appt.OwnerID == actor.ID
	default:
		return false
	}
}
