package finance

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the pgxpool subset the repository uses; pgxmock satisfies it.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Repository struct {
	db DB
}

func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

const entryColumns = `e.id, e.patient_id, e.appointment_id, e.description, e.amount_cents, e.kind,
	       e.payment_method, e.status, e.due_date, e.paid_date, p.name, e.created_at`

const entrySelect = `
	SELECT ` + entryColumns + `
	FROM finance_entries e
	LEFT JOIN patients p ON p.id = e.patient_id
`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry

	err := row.Scan(
		&e.ID,
		&e.PatientID,
		&e.AppointmentID,
		&e.Description,
		&e.AmountCents,
		&e.Kind,
		&e.PaymentMethod,
		&e.Status,
		&e.DueDate,
		&e.PaidDate,
		&e.PatientName,
		&e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}

	return &e, nil
}

// List returns ledger entries newest due date first, narrowed by the filter.
func (r *Repository) List(ctx context.Context, f Filter) ([]Entry, error) {
	query := entrySelect + ` WHERE TRUE`
	var args []any

	next := func() string { return "$" + strconv.Itoa(len(args)) }

	if f.Kind != "" {
		args = append(args, f.Kind)
		query += ` AND e.kind = ` + next()
	}
	if f.Status != "" {
		args = append(args, f.Status)
		query += ` AND e.status = ` + next()
	}
	if f.PatientID != nil {
		args = append(args, *f.PatientID)
		query += ` AND e.patient_id = ` + next()
	}
	if f.From != nil {
		args = append(args, *f.From)
		query += ` AND e.due_date >= ` + next()
	}
	if f.To != nil {
		args = append(args, *f.To)
		query += ` AND e.due_date <= ` + next()
	}
	query += ` ORDER BY e.due_date DESC NULLS LAST, e.created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("finance: list entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// ListByMonth returns the entries whose due date falls inside one month.
func (r *Repository) ListByMonth(ctx context.Context, year int, month time.Month) ([]Entry, error) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return r.List(ctx, Filter{From: &first, To: &last})
}

func (r *Repository) Upsert(ctx context.Context, req *UpsertRequest) (*Entry, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = StatusPending
	}

	const returning = `
		RETURNING id, patient_id, appointment_id, description, amount_cents, kind,
		          payment_method, status, due_date, paid_date,
		          (SELECT name FROM patients WHERE id = $2), created_at`

	if req.ID != nil {
		row := r.db.QueryRow(ctx, `
			UPDATE finance_entries
			SET patient_id = $2, appointment_id = $3, description = $4, amount_cents = $5,
			    kind = $6, payment_method = $7, status = $8, due_date = $9, paid_date = $10
			WHERE id = $1`+returning,
			*req.ID, req.PatientID, req.AppointmentID, req.Description, req.AmountCents,
			req.Kind, req.PaymentMethod, status, req.DueDate, req.PaidDate)
		return scanEntry(row)
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO finance_entries (id, patient_id, appointment_id, description, amount_cents,
		                             kind, payment_method, status, due_date, paid_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())`+returning,
		uuid.New(), req.PatientID, req.AppointmentID, req.Description, req.AmountCents,
		req.Kind, req.PaymentMethod, status, req.DueDate, req.PaidDate)
	return scanEntry(row)
}

// MarkPaid flips an entry to paid and stamps today as the payment date.
func (r *Repository) MarkPaid(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE finance_entries
		SET status = 'paid', paid_date = CURRENT_DATE
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("finance: mark paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// MonthKPIs aggregates the dashboard header numbers for one month.
func (r *Repository) MonthKPIs(ctx context.Context, year int, month time.Month) (*MonthKPIs, error) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	next := first.AddDate(0, 1, 0)

	kpis := &MonthKPIs{}

	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM patients WHERE active`,
	).Scan(&kpis.ActivePatients); err != nil {
		return nil, fmt.Errorf("finance kpis: count patients: %w", err)
	}

	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM appointments WHERE date >= $1 AND date < $2 AND status <> 'cancelled'`,
		first, next,
	).Scan(&kpis.AppointmentsMonth); err != nil {
		return nil, fmt.Errorf("finance kpis: count appointments: %w", err)
	}

	if err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM finance_entries
		 WHERE kind = 'income' AND status = 'paid' AND due_date >= $1 AND due_date < $2`,
		first, next,
	).Scan(&kpis.RevenueCents); err != nil {
		return nil, fmt.Errorf("finance kpis: sum revenue: %w", err)
	}

	if err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM finance_entries
		 WHERE kind = 'expense' AND due_date >= $1 AND due_date < $2`,
		first, next,
	).Scan(&kpis.ExpensesCents); err != nil {
		return nil, fmt.Errorf("finance kpis: sum expenses: %w", err)
	}

	kpis.BalanceCents = kpis.RevenueCents - kpis.ExpensesCents
	return kpis, nil
}

// YearFlow returns twelve month buckets of paid income vs expenses for the
// cash-flow chart.
func (r *Repository) YearFlow(ctx context.Context, year int) ([]MonthFlow, error) {
	first := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	next := first.AddDate(1, 0, 0)

	rows, err := r.db.Query(ctx, `
		SELECT EXTRACT(MONTH FROM due_date)::int AS month,
		       COALESCE(SUM(amount_cents) FILTER (WHERE kind = 'income' AND status = 'paid'), 0),
		       COALESCE(SUM(amount_cents) FILTER (WHERE kind = 'expense'), 0)
		FROM finance_entries
		WHERE due_date >= $1 AND due_date < $2
		GROUP BY month
	`, first, next)
	if err != nil {
		return nil, fmt.Errorf("finance: year flow: %w", err)
	}
	defer rows.Close()

	flow := make([]MonthFlow, 12)
	for i := range flow {
		flow[i].Month = time.Month(i + 1)
	}

	for rows.Next() {
		var m int
		var income, expense int64
		if err := rows.Scan(&m, &income, &expense); err != nil {
			return nil, err
		}
		if m >= 1 && m <= 12 {
			flow[m-1].IncomeCents = income
			flow[m-1].ExpenseCents = expense
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return flow, nil
}
