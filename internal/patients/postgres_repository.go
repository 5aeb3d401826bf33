package patients

import (
	"context"
	"errors"
	"fmt"

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

// PostgresRepository stores patients in the relational database.
type PostgresRepository struct {
	db DB
}

func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const patientColumns = `id, name, cpf, phone, email, address, birth_date, dental_history, notes, active, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.CPF,
		&p.Phone,
		&p.Email,
		&p.Address,
		&p.BirthDate,
		&p.DentalHistory,
		&p.Notes,
		&p.Active,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	return &p, nil
}

func (r *PostgresRepository) List(ctx context.Context, search string) ([]Patient, error) {
	query := `
		SELECT ` + patientColumns + `
		FROM patients
		WHERE active
	`
	args := []any{}
	if search != "" {
		query += ` AND (name ILIKE $1 OR cpf ILIKE $1 OR phone ILIKE $1)`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY name`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("patients: list: %w", err)
	}
	defer rows.Close()

	var out []Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PostgresRepository) GetByPhone(ctx context.Context, phone string) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE phone = $1
		ORDER BY created_at
		LIMIT 1
	`, phone)
	return scanPatient(row)
}

func (r *PostgresRepository) Upsert(ctx context.Context, req *UpsertRequest) (*Patient, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.ID != nil {
		row := r.db.QueryRow(ctx, `
			UPDATE patients
			SET name = $2, cpf = $3, phone = $4, email = $5, address = $6,
			    birth_date = $7, dental_history = $8, notes = $9, updated_at = now()
			WHERE id = $1
			RETURNING `+patientColumns+`
		`, *req.ID, req.Name, req.CPF, req.Phone, req.Email, req.Address,
			req.BirthDate, req.DentalHistory, req.Notes)
		return scanPatient(row)
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO patients (id, name, cpf, phone, email, address, birth_date, dental_history, notes, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE, now(), now())
		RETURNING `+patientColumns+`
	`, uuid.New(), req.Name, req.CPF, req.Phone, req.Email, req.Address,
		req.BirthDate, req.DentalHistory, req.Notes)
	return scanPatient(row)
}

func (r *PostgresRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE patients
		SET active = FALSE, updated_at = now()
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("patients: deactivate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}

func (r *PostgresRepository) CountActive(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM patients WHERE active`).Scan(&n); err != nil {
		return 0, fmt.Errorf("patients: count active: %w", err)
	}
	return n, nil
}
