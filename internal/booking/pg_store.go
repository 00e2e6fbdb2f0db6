package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is the Postgres-backed Store. The reservation path relies on
// SELECT ... FOR UPDATE row locks on time_slots.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

const slotColumns = `id, owner_id, start_time, end_time, modality, location, max_bookings, current_bookings, created_at, updated_at`

const appointmentColumns = `id, slot_id, visitor_id, owner_id, status, meeting_type, note, created_at, updated_at`

func scanSlot(row pgx.Row) (*TimeSlot, error) {
	var s TimeSlot
	err := row.Scan(
		&s.ID,
		&s.OwnerID,
		&s.StartTime,
		&s.EndTime,
		&s.Modality,
		&s.Location,
		&s.MaxBookings,
		&s.CurrentBookings,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return &s, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.SlotID,
		&a.VisitorID,
		&a.OwnerID,
		&a.Status,
		&a.MeetingType,
		&a.Note,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (s *PgStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&pgTx{tx: tx})
	})
}

func (s *PgStore) GetSlot(ctx context.Context, id uuid.UUID) (*TimeSlot, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM time_slots
		WHERE id = $1
	`, id)
	return scanSlot(row)
}

func (s *PgStore) ListSlotsByOwner(ctx context.Context, ownerID uuid.UUID) ([]TimeSlot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+slotColumns+`
		FROM time_slots
		WHERE owner_id = $1
		ORDER BY start_time
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TimeSlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *slot)
	}
	return result, rows.Err()
}

func (s *PgStore) CreateSlots(ctx context.Context, slots []TimeSlot) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, slot := range slots {
			_, err := tx.Exec(ctx, `
				INSERT INTO time_slots (id, owner_id, start_time, end_time, modality, location, max_bookings, current_bookings, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, 0, now(), now())
			`, slot.ID, slot.OwnerID, slot.StartTime, slot.EndTime, slot.Modality, slot.Location, slot.MaxBookings)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PgStore) OwnerExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM owners WHERE id = $1)
	`, id).Scan(&exists)
	return exists, err
}

func (s *PgStore) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (s *PgStore) ListAppointmentsByVisitor(ctx context.Context, visitorID uuid.UUID) ([]Appointment, error) {
	return s.listAppointments(ctx, `visitor_id`, visitorID)
}

func (s *PgStore) ListAppointmentsByOwner(ctx context.Context, ownerID uuid.UUID) ([]Appointment, error) {
	return s.listAppointments(ctx, `owner_id`, ownerID)
}

func (s *PgStore) listAppointments(ctx context.Context, column string, id uuid.UUID) ([]Appointment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE `+column+` = $1
		ORDER BY created_at DESC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *appt)
	}
	return result, rows.Err()
}

func (s *PgStore) ListEndedLive(ctx context.Context, now time.Time) ([]Appointment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT a.id, a.slot_id, a.visitor_id, a.owner_id, a.status, a.meeting_type, a.note, a.created_at, a.updated_at
		FROM appointments a
		JOIN time_slots t ON t.id = a.slot_id
		WHERE a.status IN ('pending', 'confirmed')
		  AND t.end_time < $1
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *appt)
	}
	return result, rows.Err()
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) GetSlotForUpdate(ctx context.Context, id uuid.UUID) (*TimeSlot, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM time_slots
		WHERE id = $1
		FOR UPDATE
	`, id)
	return scanSlot(row)
}

func (t *pgTx) GetAppointmentForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, id)
	return scanAppointment(row)
}

func (t *pgTx) HasLiveAppointment(ctx context.Context, visitorID, slotID uuid.UUID) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE visitor_id = $1
			  AND slot_id = $2
			  AND status IN ('pending', 'confirmed')
		)
	`, visitorID, slotID).Scan(&exists)
	return exists, err
}

func (t *pgTx) CountLiveAppointments(ctx context.Context, visitorID uuid.UUID) (int, error) {
	var count int
	err := t.tx.QueryRow(ctx, `
		SELECT count(*) FROM appointments
		WHERE visitor_id = $1
		  AND status IN ('pending', 'confirmed')
	`, visitorID).Scan(&count)
	return count, err
}

func (t *pgTx) VisitorTier(ctx context.Context, visitorID uuid.UUID) (Tier, error) {
	var tier Tier
	err := t.tx.QueryRow(ctx, `
		SELECT tier FROM visitors WHERE id = $1
	`, visitorID).Scan(&tier)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return tier, err
}

func (t *pgTx) InsertAppointment(ctx context.Context, appt *Appointment) error {
	row := t.tx.QueryRow(ctx, `
		INSERT INTO appointments (id, slot_id, visitor_id, owner_id, status, meeting_type, note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING created_at, updated_at
	`, appt.ID, appt.SlotID, appt.VisitorID, appt.OwnerID, appt.Status, appt.MeetingType, appt.Note)
	return row.Scan(&appt.CreatedAt, &appt.UpdatedAt)
}

func (t *pgTx) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
	`, id, to, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (t *pgTx) IncrementSlotBookings(ctx context.Context, slotID uuid.UUID) (*TimeSlot, error) {
	row := t.tx.QueryRow(ctx, `
		UPDATE time_slots
		SET current_bookings = current_bookings + 1,
		    updated_at = now()
		WHERE id = $1
		  AND current_bookings < max_bookings
		RETURNING `+slotColumns+`
	`, slotID)
	slot, err := scanSlot(row)
	if errors.Is(err, ErrSlotNotFound) {
		// Caller holds the row lock and has already verified availability,
		// so a zero-row update means the counter invariant was violated.
		return nil, ErrCapacityConflict
	}
	return slot, err
}

func (t *pgTx) DecrementSlotBookings(ctx context.Context, slotID uuid.UUID) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE time_slots
		SET current_bookings = GREATEST(current_bookings - 1, 0),
		    updated_at = now()
		WHERE id = $1
	`, slotID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}
