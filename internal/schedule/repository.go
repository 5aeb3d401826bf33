package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSlotOccupied        = errors.New("slot already has an active appointment")
)

// Repository contains all DB interactions needed by the ledger.
type Repository interface {
	// For availability and conflict checks
	BookedSlots(ctx context.Context, date time.Time, staffID *uuid.UUID) ([]string, error)
	GetActiveForSlot(ctx context.Context, date time.Time, slot string) (*Appointment, error)

	// Creation and updates. Create must surface the store's uniqueness
	// violation on (date, slot) as ErrSlotOccupied.
	Create(ctx context.Context, appt Appointment) (*Appointment, error)
	Update(ctx context.Context, appt Appointment) (*Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Appointment, error)

	// Lookups
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error)
	NextForPhone(ctx context.Context, phone string, from time.Time) (*Detail, error)

	// Agenda views
	ListByDate(ctx context.Context, date time.Time) ([]Detail, error)
	ListByMonth(ctx context.Context, year int, month time.Month) ([]Detail, error)
}
