package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PRautomacao/saude-certa/internal/db"
	"github.com/PRautomacao/saude-certa/internal/schedule"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())
	ctx = context.Background()

	staff, err := seedStaff(ctx, pool)
	if err != nil {
		log.Fatalf("seed staff: %v", err)
	}
	services, err := seedServices(ctx, pool)
	if err != nil {
		log.Fatalf("seed services: %v", err)
	}
	patients, err := seedPatients(ctx, pool, 200)
	if err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedAppointments(ctx, pool, patients, staff, services, 30); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}
	if err := seedFinance(ctx, pool, patients, 300); err != nil {
		log.Fatalf("seed finance: %v", err)
	}

	log.Println("seed complete")
}

func seedStaff(ctx context.Context, pool *pgxpool.Pool) ([]uuid.UUID, error) {
	roles := []struct {
		role       string
		permission string
	}{
		{"Dentista", "dentist"},
		{"Dentista", "dentist"},
		{"Secretária", "secretary"},
		{"Administrador", "admin"},
	}

	log.Printf("seeding %d staff members", len(roles))

	ids := make([]uuid.UUID, 0, len(roles))
	for _, r := range roles {
		id := uuid.New()
		_, err := pool.Exec(ctx, `
			INSERT INTO staff (id, name, role, phone, email, permission, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		`, id, gofakeit.Name(), r.role, fakePhone(), gofakeit.Email(), r.permission)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func seedServices(ctx context.Context, pool *pgxpool.Pool) ([]uuid.UUID, error) {
	services := []struct {
		name       string
		priceCents int64
	}{
		{"Avaliação", 0},
		{"Limpeza", 15000},
		{"Clareamento", 80000},
		{"Tratamento de Canal", 120000},
		{"Periodontia", 60000},
		{"Cirurgia Oral", 150000},
		{"Ortodontia (manutenção)", 20000},
	}

	log.Printf("seeding %d services", len(services))

	ids := make([]uuid.UUID, 0, len(services))
	for _, s := range services {
		id := uuid.New()
		_, err := pool.Exec(ctx, `
			INSERT INTO services (id, name, price_cents, duration_minutes, created_at)
			VALUES ($1, $2, $3, 30, now())
		`, id, s.name, s.priceCents)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d patients", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		birth := gofakeit.DateRange(
			time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2015, 12, 31, 0, 0, 0, 0, time.UTC),
		)
		_, err := tx.Exec(ctx, `
			INSERT INTO patients (id, name, cpf, phone, email, address, birth_date, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, now(), now())
		`, id, gofakeit.Name(), fakeCPF(), fakePhone(), gofakeit.Email(), gofakeit.Street(), birth)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}

// seedAppointments fills a random subset of the grid over the coming days.
// Slots are taken in order per day, so the partial unique index is never
// violated.
func seedAppointments(ctx context.Context, pool *pgxpool.Pool, patients, staff, services []uuid.UUID, days int) error {
	log.Printf("seeding appointments over %d days", days)

	statuses := []string{"pending", "confirmed", "confirmed", "done"}
	grid := schedule.DailySlots()
	today := time.Now().Truncate(24 * time.Hour)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for d := 0; d < days; d++ {
		date := today.AddDate(0, 0, d-days/2)
		taken := gofakeit.Number(2, len(grid))
		for i := 0; i < taken; i++ {
			status := statuses[gofakeit.Number(0, len(statuses)-1)]
			if date.After(today) && status == "done" {
				status = "confirmed"
			}
			_, err := tx.Exec(ctx, `
				INSERT INTO appointments (id, patient_id, staff_id, service_id, date, slot, status, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
			`,
				uuid.New(),
				pick(patients),
				pick(staff),
				pick(services),
				date,
				grid[i],
				status,
			)
			if err != nil {
				return err
			}
		}
	}

	return tx.Commit(ctx)
}

func seedFinance(ctx context.Context, pool *pgxpool.Pool, patients []uuid.UUID, count int) error {
	log.Printf("seeding %d finance entries", count)

	methods := []string{"cash", "pix", "credit_card", "debit_card", "invoice"}
	expenses := []string{"Material odontológico", "Aluguel", "Energia elétrica", "Água", "Protético", "Marketing"}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		due := gofakeit.DateRange(time.Now().AddDate(0, -6, 0), time.Now().AddDate(0, 1, 0))

		kind := "income"
		description := "Consulta odontológica"
		var patientID *uuid.UUID
		if gofakeit.Number(0, 3) == 0 {
			kind = "expense"
			description = expenses[gofakeit.Number(0, len(expenses)-1)]
		} else {
			p := pick(patients)
			patientID = &p
		}

		status := "pending"
		var paid *time.Time
		if gofakeit.Bool() {
			status = "paid"
			paid = &due
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO finance_entries (id, patient_id, description, amount_cents, kind, payment_method, status, due_date, paid_date, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		`,
			id,
			patientID,
			description,
			int64(gofakeit.Number(5000, 150000)),
			kind,
			methods[gofakeit.Number(0, len(methods)-1)],
			status,
			due,
			paid,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func pick(ids []uuid.UUID) uuid.UUID {
	return ids[gofakeit.Number(0, len(ids)-1)]
}

func fakePhone() string {
	return fmt.Sprintf("64%09d", gofakeit.Number(900000000, 999999999))
}

func fakeCPF() string {
	return fmt.Sprintf("%03d.%03d.%03d-%02d",
		gofakeit.Number(0, 999), gofakeit.Number(0, 999),
		gofakeit.Number(0, 999), gofakeit.Number(0, 99))
}
