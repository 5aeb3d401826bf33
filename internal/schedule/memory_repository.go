package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository keeps the ledger in process memory. It enforces the
// same (date, slot) uniqueness the partial index provides in Postgres, so
// handler and service tests see identical conflict behavior.
type InMemoryRepository struct {
	mu     sync.Mutex
	appts  map[uuid.UUID]*Appointment
	phones map[uuid.UUID]string
	names  map[uuid.UUID]string
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		appts:  make(map[uuid.UUID]*Appointment),
		phones: make(map[uuid.UUID]string),
		names:  make(map[uuid.UUID]string),
	}
}

// AddPatient registers the patient reference data the hydrated views join
// against.
func (r *InMemoryRepository) AddPatient(id uuid.UUID, name, phone string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names[id] = name
	r.phones[id] = phone
}

func sameDay(a, b time.Time) bool {
	return a.Format(DateLayout) == b.Format(DateLayout)
}

func (r *InMemoryRepository) BookedSlots(ctx context.Context, date time.Time, staffID *uuid.UUID) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for _, a := range r.appts {
		if !sameDay(a.Date, date) || a.Status == StatusCancelled {
			continue
		}
		if staffID != nil && (a.StaffID == nil || *a.StaffID != *staffID) {
			continue
		}
		out = append(out, a.Slot)
	}
	return out, nil
}

func (r *InMemoryRepository) GetActiveForSlot(ctx context.Context, date time.Time, slot string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.appts {
		if sameDay(a.Date, date) && a.Slot == slot && a.Status != StatusCancelled {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (r *InMemoryRepository) Create(ctx context.Context, appt Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.appts {
		if sameDay(a.Date, appt.Date) && a.Slot == appt.Slot && a.Status != StatusCancelled {
			return nil, ErrSlotOccupied
		}
	}

	appt.ID = uuid.New()
	appt.CreatedAt = time.Now()
	appt.UpdatedAt = appt.CreatedAt
	r.appts[appt.ID] = &appt

	cp := appt
	return &cp, nil
}

func (r *InMemoryRepository) Update(ctx context.Context, appt Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.appts[appt.ID]
	if !ok {
		return nil, ErrAppointmentNotFound
	}

	if appt.Status != StatusCancelled {
		for _, other := range r.appts {
			if other.ID != appt.ID && sameDay(other.Date, appt.Date) && other.Slot == appt.Slot && other.Status != StatusCancelled {
				return nil, ErrSlotOccupied
			}
		}
	}

	appt.CreatedAt = cur.CreatedAt
	appt.UpdatedAt = time.Now()
	*cur = appt

	cp := *cur
	return &cp, nil
}

func (r *InMemoryRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}

	if status != StatusCancelled && a.Status == StatusCancelled {
		// un-cancelling trips the partial index if the slot was retaken
		for _, other := range r.appts {
			if other.ID != id && sameDay(other.Date, a.Date) && other.Slot == a.Slot && other.Status != StatusCancelled {
				return nil, ErrSlotOccupied
			}
		}
	}

	a.Status = status
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *InMemoryRepository) detail(a *Appointment) *Detail {
	d := Detail{Appointment: *a, PatientName: r.names[a.PatientID]}
	if phone, ok := r.phones[a.PatientID]; ok && phone != "" {
		p := phone
		d.PatientPhone = &p
	}
	return &d
}

func (r *InMemoryRepository) GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return r.detail(a), nil
}

func (r *InMemoryRepository) NextForPhone(ctx context.Context, phone string, from time.Time) (*Detail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var best *Appointment
	for _, a := range r.appts {
		if r.phones[a.PatientID] != phone || a.Status == StatusCancelled || a.Date.Before(from) {
			continue
		}
		if best == nil || a.Date.Before(best.Date) || (sameDay(a.Date, best.Date) && a.Slot < best.Slot) {
			best = a
		}
	}
	if best == nil {
		return nil, ErrAppointmentNotFound
	}
	return r.detail(best), nil
}

func (r *InMemoryRepository) ListByDate(ctx context.Context, date time.Time) ([]Detail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Detail
	for _, slot := range dailySlots {
		for _, a := range r.appts {
			if sameDay(a.Date, date) && a.Slot == slot {
				out = append(out, *r.detail(a))
			}
		}
	}
	return out, nil
}

func (r *InMemoryRepository) ListByMonth(ctx context.Context, year int, month time.Month) ([]Detail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Detail
	for _, a := range r.appts {
		if a.Date.Year() == year && a.Date.Month() == month {
			out = append(out, *r.detail(a))
		}
	}
	return out, nil
}
