package schedule

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusDone      Status = "done"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is one of the four lifecycle statuses. Transitions
// are unrestricted: any status may be overwritten with any other.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusDone, StatusCancelled:
		return true
	}
	return false
}

type Appointment struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	StaffID   *uuid.UUID
	ServiceID *uuid.UUID
	Date      time.Time
	Slot      string
	Status    Status
	Note      *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Detail is an appointment hydrated with the joined names the admin agenda
// and the webhook replies need.
type Detail struct {
	Appointment
	PatientName  string
	PatientPhone *string
	StaffName    *string
	ServiceName  *string
}
