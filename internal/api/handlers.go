package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/expohall/booking-engine/internal/booking"
	redisclient "github.com/expohall/booking-engine/internal/redis"
)

type handlers struct {
	ctrl           *booking.Controller
	svc            *booking.Service
	cache          *redisclient.AvailabilityCache
	reserveTimeout time.Duration
}

func (h *handlers) reserve(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_actor", "no authenticated actor")
		return
	}

	var req ReserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	slotID, err := uuid.Parse(req.SlotID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_slot_id", "slot_id must be a valid UUID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.reserveTimeout)
	defer cancel()

	res, err := h.ctrl.Reserve(ctx, actor, slotID, req.Note, booking.MeetingType(req.MeetingType))
	if err != nil {
		handleBookingError(w, err)
		return
	}

	h.invalidateOwner(r.Context(), res.Appointment.OwnerID)

	writeJSON(w, http.StatusCreated, ReserveResponse{
		Appointment:         toAppointmentResponse(res.Appointment),
		SlotCurrentBookings: res.CurrentBookings,
		SlotAvailable:       res.Available,
	})
}

func (h *handlers) cancel(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.ctrl.Cancel)
}

func (h *handlers) confirm(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.ctrl.Confirm)
}

func (h *handlers) decline(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.ctrl.Decline)
}

func (h *handlers) complete(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.ctrl.Complete)
}

func (h *handlers) lifecycle(w http.ResponseWriter, r *http.Request, op func(context.Context, booking.Actor, uuid.UUID) (*booking.Appointment, error)) {
	actor, ok := GetActor(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_actor", "no authenticated actor")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.reserveTimeout)
	defer cancel()

	appt, err := op(ctx, actor, id)
	if err != nil {
		handleBookingError(w, err)
		return
	}

	h.invalidateOwner(r.Context(), appt.OwnerID)

	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *handlers) getAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_actor", "no authenticated actor")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return
	}

	appt, err := h.ctrl.Get(r.Context(), actor, id)
	if err != nil {
		handleBookingError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *handlers) listAppointments(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_actor", "no authenticated actor")
		return
	}

	appts, err := h.ctrl.List(r.Context(), actor)
	if err != nil {
		handleBookingError(w, err)
		return
	}

	resp := make([]AppointmentResponse, 0, len(appts))
	for i := range appts {
		resp = append(resp, toAppointmentResponse(&appts[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// listSlots serves the display-read path: a TTL-bounded cached snapshot of
// an owner's slots. Values may lag the transactional truth.
func (h *handlers) listSlots(w http.ResponseWriter, r *http.Request) {
	ownerID, err := uuid.Parse(r.URL.Query().Get("owner_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_owner_id", "owner_id must be a valid UUID")
		return
	}

	slots, ok := h.cache.GetOwnerSlots(r.Context(), ownerID)
	if !ok {
		slots, err = h.svc.ListSlotsByOwner(r.Context(), ownerID)
		if err != nil {
			handleBookingError(w, err)
			return
		}
		_ = h.cache.SetOwnerSlots(r.Context(), ownerID, slots)
	}

	resp := make([]SlotResponse, 0, len(slots))
	for _, s := range slots {
		resp = append(resp, toSlotResponse(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) invalidateOwner(ctx context.Context, ownerID uuid.UUID) {
	if h.cache != nil {
		h.cache.Invalidate(ctx, ownerID)
	}
}

func handleBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "slot_not_found", err.Error())
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, booking.ErrSlotFull):
		writeError(w, http.StatusConflict, "slot_full", "this slot has no seats left")
	case errors.Is(err, booking.ErrDuplicateBooking):
		writeError(w, http.StatusConflict, "duplicate_booking", "you already hold a booking for this slot")
	case errors.Is(err, booking.ErrQuotaExceeded):
		writeError(w, http.StatusConflict, "quota_exceeded", "booking quota reached for your membership tier, upgrade to book more meetings")
	case errors.Is(err, booking.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, booking.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "timeout", "booking did not complete in time, please retry")
	default:
		// Includes ErrCapacityConflict, which is surfaced as a generic
		// failure and logged upstream at error severity.
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected error")
	}
}
