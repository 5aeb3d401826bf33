package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/PRautomacao/saude-certa/internal/schedule"
)

type BookAppointmentRequest struct {
	PatientID string `json:"patient_id"`
	StaffID   string `json:"staff_id,omitempty"`
	ServiceID string `json:"service_id,omitempty"`
	Date      string `json:"date"`
	Slot      string `json:"slot"`
	Status    string `json:"status,omitempty"`
	Note      string `json:"note,omitempty"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type AppointmentResponse struct {
	ID        uuid.UUID  `json:"id"`
	PatientID uuid.UUID  `json:"patient_id"`
	StaffID   *uuid.UUID `json:"staff_id,omitempty"`
	ServiceID *uuid.UUID `json:"service_id,omitempty"`
	Date      string     `json:"date"`
	Slot      string     `json:"slot"`
	Status    string     `json:"status"`
	Note      *string    `json:"note,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type AppointmentDetailResponse struct {
	AppointmentResponse
	PatientName  string  `json:"patient_name"`
	PatientPhone *string `json:"patient_phone,omitempty"`
	StaffName    *string `json:"staff_name,omitempty"`
	ServiceName  *string `json:"service_name,omitempty"`
}

type SlotsResponse struct {
	Date  string   `json:"date"`
	Slots []string `json:"slots"`
}

func toAppointmentResponse(a *schedule.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:        a.ID,
		PatientID: a.PatientID,
		StaffID:   a.StaffID,
		ServiceID: a.ServiceID,
		Date:      a.Date.Format(schedule.DateLayout),
		Slot:      a.Slot,
		Status:    string(a.Status),
		Note:      a.Note,
		CreatedAt: a.CreatedAt,
	}
}

func toDetailResponse(d *schedule.Detail) AppointmentDetailResponse {
	return AppointmentDetailResponse{
		AppointmentResponse: toAppointmentResponse(&d.Appointment),
		PatientName:         d.PatientName,
		PatientPhone:        d.PatientPhone,
		StaffName:           d.StaffName,
		ServiceName:         d.ServiceName,
	}
}

func toDetailResponses(details []schedule.Detail) []AppointmentDetailResponse {
	out := make([]AppointmentDetailResponse, 0, len(details))
	for i := range details {
		out = append(out, toDetailResponse(&details[i]))
	}
	return out
}
