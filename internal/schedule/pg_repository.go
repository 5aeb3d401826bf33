package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repository uses. Tests substitute a
// pgxmock pool.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PgRepository struct {
	db DB
}

func NewPgRepository(db DB) *PgRepository {
	return &PgRepository{db: db}
}

const apptColumns = `id, patient_id, staff_id, service_id, date, slot, status, note, created_at, updated_at`

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.StaffID,
		&a.ServiceID,
		&a.Date,
		&a.Slot,
		&a.Status,
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

func scanDetail(row pgx.Row) (*Detail, error) {
	var d Detail

	err := row.Scan(
		&d.ID,
		&d.PatientID,
		&d.StaffID,
		&d.ServiceID,
		&d.Date,
		&d.Slot,
		&d.Status,
		&d.Note,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.PatientName,
		&d.PatientPhone,
		&d.StaffName,
		&d.ServiceName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &d, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Interface methods

func (r *PgRepository) BookedSlots(ctx context.Context, date time.Time, staffID *uuid.UUID) ([]string, error) {
	query := `
		SELECT slot
		FROM appointments
		WHERE date = $1 AND status <> 'cancelled'
	`
	args := []any{date}
	if staffID != nil {
		query += ` AND staff_id = $2`
		args = append(args, *staffID)
	}
	query += ` ORDER BY slot`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return slots, nil
}

func (r *PgRepository) GetActiveForSlot(ctx context.Context, date time.Time, slot string) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE date = $1 AND slot = $2 AND status <> 'cancelled'
	`, date, slot)
	return scanAppointment(row)
}

func (r *PgRepository) Create(ctx context.Context, appt Appointment) (*Appointment, error) {
	id := appt.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, staff_id, service_id, date, slot, status, note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING `+apptColumns+`
	`, id, appt.PatientID, appt.StaffID, appt.ServiceID, appt.Date, appt.Slot, appt.Status, appt.Note)

	created, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotOccupied
		}
		return nil, err
	}

	return created, nil
}

func (r *PgRepository) Update(ctx context.Context, appt Appointment) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET patient_id = $2,
		    staff_id = $3,
		    service_id = $4,
		    date = $5,
		    slot = $6,
		    status = $7,
		    note = $8,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+apptColumns+`
	`, appt.ID, appt.PatientID, appt.StaffID, appt.ServiceID, appt.Date, appt.Slot, appt.Status, appt.Note)

	updated, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotOccupied
		}
		return nil, err
	}

	return updated, nil
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+apptColumns+`
	`, id, status)

	updated, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			// un-cancelling into an occupied slot trips the same index
			return nil, ErrSlotOccupied
		}
		return nil, err
	}

	return updated, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

const detailQuery = `
	SELECT a.id, a.patient_id, a.staff_id, a.service_id, a.date, a.slot, a.status, a.note, a.created_at, a.updated_at,
	       p.name, p.phone, st.name, sv.name
	FROM appointments a
	JOIN patients p ON p.id = a.patient_id
	LEFT JOIN staff st ON st.id = a.staff_id
	LEFT JOIN services sv ON sv.id = a.service_id
`

func (r *PgRepository) GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	row := r.db.QueryRow(ctx, detailQuery+`WHERE a.id = $1`, id)
	return scanDetail(row)
}

func (r *PgRepository) NextForPhone(ctx context.Context, phone string, from time.Time) (*Detail, error) {
	row := r.db.QueryRow(ctx, detailQuery+`
		WHERE p.phone = $1
		  AND a.date >= $2
		  AND a.status <> 'cancelled'
		ORDER BY a.date, a.slot
		LIMIT 1
	`, phone, from)
	return scanDetail(row)
}

func (r *PgRepository) ListByDate(ctx context.Context, date time.Time) ([]Detail, error) {
	rows, err := r.db.Query(ctx, detailQuery+`
		WHERE a.date = $1
		ORDER BY a.slot
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDetails(rows)
}

func (r *PgRepository) ListByMonth(ctx context.Context, year int, month time.Month) ([]Detail, error) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	next := first.AddDate(0, 1, 0)

	rows, err := r.db.Query(ctx, detailQuery+`
		WHERE a.date >= $1 AND a.date < $2
		ORDER BY a.date, a.slot
	`, first, next)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDetails(rows)
}

func collectDetails(rows pgx.Rows) ([]Detail, error) {
	var result []Detail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
