package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	redisclient "github.com/PRautomacao/saude-certa/internal/redis"
)

var (
	ErrInvalidSlot   = errors.New("slot is not on the clinic's opening grid")
	ErrInvalidStatus = errors.New("unknown appointment status")
	ErrSlotBusy      = errors.New("slot is currently being booked, please retry")
)

// Ledger owns the clinic's bookable calendar: the fixed daily slot grid, one
// active appointment per (date, slot), and the rules for listing free slots
// and rejecting double bookings.
type Ledger struct {
	repo   Repository
	locker redisclient.Locker
	log    *zap.Logger
	now    func() time.Time
}

func NewLedger(repo Repository, locker redisclient.Locker, log *zap.Logger) *Ledger {
	return &Ledger{
		repo:   repo,
		locker: locker,
		log:    log,
		now:    time.Now,
	}
}

// AvailableSlots returns the fixed daily grid minus the slots occupied by
// non-cancelled appointments on that date, in chronological order. staffID
// narrows the occupancy check to one staff member's calendar.
func (l *Ledger) AvailableSlots(ctx context.Context, date time.Time, staffID *uuid.UUID) ([]string, error) {
	booked, err := l.repo.BookedSlots(ctx, date, staffID)
	if err != nil {
		return nil, fmt.Errorf("load booked slots: %w", err)
	}

	occupied := make(map[string]struct{}, len(booked))
	for _, s := range booked {
		occupied[s] = struct{}{}
	}

	free := make([]string, 0, len(dailySlots))
	for _, s := range dailySlots {
		if _, taken := occupied[s]; !taken {
			free = append(free, s)
		}
	}

	return free, nil
}

type BookRequest struct {
	PatientID uuid.UUID
	StaffID   *uuid.UUID
	ServiceID *uuid.UUID
	Date      time.Time
	Slot      string
	Status    Status // empty defaults to confirmed
	Note      *string
}

// Book reserves a slot for a patient. A distributed per-slot lock keeps
// concurrent requests for the same slot from racing past the conflict check;
// the partial unique index on (date, slot) is the final arbiter, so a lost
// race still surfaces as ErrSlotOccupied rather than a double booking.
func (l *Ledger) Book(ctx context.Context, req BookRequest) (*Appointment, error) {
	if !IsClinicSlot(req.Slot) {
		return nil, ErrInvalidSlot
	}

	status := req.Status
	if status == "" {
		status = StatusConfirmed
	}
	if !status.Valid() || status == StatusCancelled {
		return nil, ErrInvalidStatus
	}

	var created *Appointment

	dateKey := req.Date.Format(DateLayout)
	err := l.locker.WithSlotLock(ctx, dateKey, req.Slot, func(lockCtx context.Context) error {
		// Inside the critical section re-check for an active appointment
		existing, err := l.repo.GetActiveForSlot(lockCtx, req.Date, req.Slot)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check slot occupancy: %w", err)
		}
		if existing != nil {
			return ErrSlotOccupied
		}

		appt, err := l.repo.Create(lockCtx, Appointment{
			PatientID: req.PatientID,
			StaffID:   req.StaffID,
			ServiceID: req.ServiceID,
			Date:      req.Date,
			Slot:      req.Slot,
			Status:    status,
			Note:      req.Note,
		})
		if err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}

		created = appt
		l.log.Info("appointment booked",
			zap.String("appointment_id", appt.ID.String()),
			zap.String("date", dateKey),
			zap.String("slot", appt.Slot),
		)

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBusy
		}
		return nil, err
	}

	return created, nil
}

// UpdateRequest is a full overwrite of one appointment, used by the admin
// calendar to reschedule or reassign a booking.
type UpdateRequest struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	StaffID   *uuid.UUID
	ServiceID *uuid.UUID
	Date      time.Time
	Slot      string
	Status    Status
	Note      *string
}

// Update rewrites every field of an appointment. Moving it to another slot
// goes through the same lock and index arbitration as Book.
func (l *Ledger) Update(ctx context.Context, req UpdateRequest) (*Appointment, error) {
	if !IsClinicSlot(req.Slot) {
		return nil, ErrInvalidSlot
	}
	if !req.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	var updated *Appointment

	dateKey := req.Date.Format(DateLayout)
	err := l.locker.WithSlotLock(ctx, dateKey, req.Slot, func(lockCtx context.Context) error {
		if req.Status != StatusCancelled {
			existing, err := l.repo.GetActiveForSlot(lockCtx, req.Date, req.Slot)
			if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
				return fmt.Errorf("check slot occupancy: %w", err)
			}
			if existing != nil && existing.ID != req.ID {
				return ErrSlotOccupied
			}
		}

		appt, err := l.repo.Update(lockCtx, Appointment{
			ID:        req.ID,
			PatientID: req.PatientID,
			StaffID:   req.StaffID,
			ServiceID: req.ServiceID,
			Date:      req.Date,
			Slot:      req.Slot,
			Status:    req.Status,
			Note:      req.Note,
		})
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) || errors.Is(err, ErrSlotOccupied) {
				return err
			}
			return fmt.Errorf("update appointment: %w", err)
		}

		updated = appt
		l.log.Info("appointment updated",
			zap.String("appointment_id", appt.ID.String()),
			zap.String("date", dateKey),
			zap.String("slot", appt.Slot),
		)

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBusy
		}
		return nil, err
	}

	return updated, nil
}

// Cancel sets the appointment to cancelled, freeing its (date, slot) pair.
// When ownerPhone is non-empty (the webhook path) it must match the phone on
// file for the appointment's patient; a mismatch yields the same not-found
// outcome as a missing appointment.
func (l *Ledger) Cancel(ctx context.Context, id uuid.UUID, ownerPhone string) error {
	if ownerPhone != "" {
		detail, err := l.repo.GetDetail(ctx, id)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				return ErrAppointmentNotFound
			}
			return fmt.Errorf("load appointment: %w", err)
		}
		if detail.PatientPhone == nil || *detail.PatientPhone != ownerPhone {
			return ErrAppointmentNotFound
		}
	}

	appt, err := l.repo.UpdateStatus(ctx, id, StatusCancelled)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return ErrAppointmentNotFound
		}
		return fmt.Errorf("cancel appointment: %w", err)
	}

	l.log.Info("appointment cancelled",
		zap.String("appointment_id", appt.ID.String()),
		zap.String("date", appt.Date.Format(DateLayout)),
		zap.String("slot", appt.Slot),
	)

	return nil
}

// UpdateStatus overwrites the status unconditionally; any status may move to
// any other. Staff use this for corrections, including un-cancelling.
func (l *Ledger) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Appointment, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	appt, err := l.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) || errors.Is(err, ErrSlotOccupied) {
			return nil, err
		}
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	return appt, nil
}

// NextAppointment returns the nearest future non-cancelled appointment for a
// patient phone, or ErrAppointmentNotFound.
func (l *Ledger) NextAppointment(ctx context.Context, phone string) (*Detail, error) {
	today := l.now().Truncate(24 * time.Hour)

	detail, err := l.repo.NextForPhone(ctx, phone, today)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("find next appointment: %w", err)
	}

	return detail, nil
}

// Agenda returns the full day view, cancelled rows included, ordered by slot.
func (l *Ledger) Agenda(ctx context.Context, date time.Time) ([]Detail, error) {
	details, err := l.repo.ListByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("list agenda: %w", err)
	}
	return details, nil
}

// MonthAgenda returns all appointments in a calendar month ordered by date
// and slot, for the calendar view.
func (l *Ledger) MonthAgenda(ctx context.Context, year int, month time.Month) ([]Detail, error) {
	details, err := l.repo.ListByMonth(ctx, year, month)
	if err != nil {
		return nil, fmt.Errorf("list month agenda: %w", err)
	}
	return details, nil
}

// Get returns one hydrated appointment.
func (l *Ledger) Get(ctx context.Context, id uuid.UUID) (*Detail, error) {
	detail, err := l.repo.GetDetail(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return detail, nil
}
