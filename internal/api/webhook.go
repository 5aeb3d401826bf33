package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PRautomacao/saude-certa/internal/patients"
	"github.com/PRautomacao/saude-certa/internal/schedule"
)

const clinicAddress = "Rua Dr Neto, 321, Centro, Iporá-GO"

// WebhookHandler serves the automation endpoint the clinic's n8n flow calls
// from WhatsApp. Every reply is human text the bot forwards verbatim, so
// domain conflicts come back as success:false messages rather than HTTP
// errors; only auth failures and unknown actions use error status codes.
type WebhookHandler struct {
	ledger   *schedule.Ledger
	patients patients.Repository
	log      *zap.Logger
}

func NewWebhookHandler(ledger *schedule.Ledger, repo patients.Repository, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		ledger:   ledger,
		patients: repo,
		log:      log,
	}
}

type WebhookRequest struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

type WebhookResponse struct {
	Success       bool       `json:"success"`
	Message       string     `json:"message,omitempty"`
	Slots         []string   `json:"slots,omitempty"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
}

func (h *WebhookHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "Webhook ativo", "version": "1.0.0"})
}

func (h *WebhookHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var req WebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	h.log.Info("webhook action received",
		zap.String("action", req.Action),
		zap.String("request_id", GetRequestID(r.Context())),
	)

	switch req.Action {
	case "create_appointment":
		h.createAppointment(w, r, req.Data)
	case "list_slots":
		h.listSlots(w, r, req.Data)
	case "cancel_appointment":
		h.cancelAppointment(w, r, req.Data)
	case "next_appointment":
		h.nextAppointment(w, r, req.Data)
	default:
		writeError(w, http.StatusBadRequest, "unknown_action", "ação não reconhecida")
	}
}

type createAppointmentData struct {
	PatientName  string `json:"patient_name"`
	PatientPhone string `json:"patient_phone"`
	Service      string `json:"service"`
	Date         string `json:"date"`
	Slot         string `json:"slot"`
}

func (h *WebhookHandler) createAppointment(w http.ResponseWriter, r *http.Request, raw json.RawMessage) {
	var data createAppointmentData
	if err := json.Unmarshal(raw, &data); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_data", "could not parse action data")
		return
	}
	if strings.TrimSpace(data.PatientPhone) == "" {
		writeJSON(w, http.StatusOK, WebhookResponse{
			Success: false,
			Message: "Preciso do seu telefone para agendar. Pode me informar?",
		})
		return
	}

	date, err := time.Parse(schedule.DateLayout, data.Date)
	if err != nil {
		writeJSON(w, http.StatusOK, WebhookResponse{
			Success: false,
			Message: fmt.Sprintf("Não entendi a data %q. Use o formato AAAA-MM-DD.", data.Date),
		})
		return
	}

	patient, err := h.findOrCreatePatient(r, data.PatientName, data.PatientPhone)
	if err != nil {
		h.internalError(w, "find or create patient", err)
		return
	}

	book := schedule.BookRequest{
		PatientID: patient.ID,
		Date:      date,
		Slot:      data.Slot,
		Status:    schedule.StatusConfirmed,
	}
	if data.Service != "" {
		book.Note = &data.Service
	}

	appt, err := h.ledger.Book(r.Context(), book)
	switch {
	case errors.Is(err, schedule.ErrSlotOccupied), errors.Is(err, schedule.ErrSlotBusy):
		writeJSON(w, http.StatusOK, WebhookResponse{
			Success: false,
			Message: fmt.Sprintf("Horário %s já está ocupado em %s. Por favor, escolha outro horário.", data.Slot, data.Date),
		})
		return
	case errors.Is(err, schedule.ErrInvalidSlot):
		writeJSON(w, http.StatusOK, WebhookResponse{
			Success: false,
			Message: fmt.Sprintf("O horário %q não faz parte da agenda da clínica. Atendemos das 08:00 às 11:30 e das 13:30 às 17:00.", data.Slot),
		})
		return
	case err != nil:
		h.internalError(w, "book appointment", err)
		return
	}

	writeJSON(w, http.StatusOK, WebhookResponse{
		Success: true,
		Message: fmt.Sprintf("Consulta agendada com sucesso!\nData: %s\nHorário: %s\nServiço: %s\n\nEndereço: %s",
			data.Date, data.Slot, orNone(data.Service), clinicAddress),
		AppointmentID: &appt.ID,
	})
}

func (h *WebhookHandler) findOrCreatePatient(r *http.Request, name, phone string) (*patients.Patient, error) {
	patient, err := h.patients.GetByPhone(r.Context(), phone)
	if err == nil {
		return patient, nil
	}
	if !errors.Is(err, patients.ErrPatientNotFound) {
		return nil, err
	}

	if strings.TrimSpace(name) == "" {
		name = "Paciente WhatsApp"
	}
	return h.patients.Upsert(r.Context(), &patients.UpsertRequest{Name: name, Phone: &phone})
}

type listSlotsData struct {
	Date string `json:"date"`
}

func (h *WebhookHandler) listSlots(w http.ResponseWriter, r *http.Request, raw json.RawMessage) {
	var data listSlotsData
	if err := json.Unmarshal(raw, &data); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_data", "could not parse action data")
		return
	}

	date, err := time.Parse(schedule.DateLayout, data.Date)
	if err != nil {
		writeJSON(w, http.StatusOK, WebhookResponse{
			Success: false,
			Message: fmt.Sprintf("Não entendi a data %q. Use o formato AAAA-MM-DD.", data.Date),
		})
		return
	}

	slots, err := h.ledger.AvailableSlots(r.Context(), date, nil)
	if err != nil {
		h.internalError(w, "list available slots", err)
		return
	}

	message := fmt.Sprintf("Infelizmente não há horários disponíveis em %s. Gostaria de ver outra data?", data.Date)
	if len(slots) > 0 {
		message = fmt.Sprintf("Horários disponíveis em %s:\n%s", data.Date, strings.Join(slots, " | "))
	}

	writeJSON(w, http.StatusOK, WebhookResponse{
		Success: true,
		Slots:   slots,
		Message: message,
	})
}

type cancelAppointmentData struct {
	AppointmentID string `json:"appointment_id"`
	Phone         string `json:"phone"`
}

func (h *WebhookHandler) cancelAppointment(w http.ResponseWriter, r *http.Request, raw json.RawMessage) {
	var data cancelAppointmentData
	if err := json.Unmarshal(raw, &data); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_data", "could not parse action data")
		return
	}

	notFound := WebhookResponse{Success: false, Message: "Agendamento não encontrado."}

	id, err := uuid.Parse(data.AppointmentID)
	if err != nil || data.Phone == "" {
		// a malformed id gets the same reply as a missing appointment
		writeJSON(w, http.StatusOK, notFound)
		return
	}

	if err := h.ledger.Cancel(r.Context(), id, data.Phone); err != nil {
		if errors.Is(err, schedule.ErrAppointmentNotFound) {
			writeJSON(w, http.StatusOK, notFound)
			return
		}
		h.internalError(w, "cancel appointment", err)
		return
	}

	writeJSON(w, http.StatusOK, WebhookResponse{
		Success: true,
		Message: "Sua consulta foi cancelada. Se desejar reagendar, é só me chamar!",
	})
}

type nextAppointmentData struct {
	Phone string `json:"phone"`
}

func (h *WebhookHandler) nextAppointment(w http.ResponseWriter, r *http.Request, raw json.RawMessage) {
	var data nextAppointmentData
	if err := json.Unmarshal(raw, &data); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_data", "could not parse action data")
		return
	}

	next, err := h.ledger.NextAppointment(r.Context(), data.Phone)
	if err != nil {
		if errors.Is(err, schedule.ErrAppointmentNotFound) {
			writeJSON(w, http.StatusOK, WebhookResponse{
				Success: true,
				Message: "Não encontrei nenhuma consulta agendada. Quer agendar uma?",
			})
			return
		}
		h.internalError(w, "lookup next appointment", err)
		return
	}

	writeJSON(w, http.StatusOK, WebhookResponse{
		Success: true,
		Message: fmt.Sprintf("Sua próxima consulta:\nData: %s\nHorário: %s\nStatus: %s\n\n%s",
			next.Date.Format(schedule.DateLayout), next.Slot, next.Status, clinicAddress),
	})
}

func (h *WebhookHandler) internalError(w http.ResponseWriter, msg string, err error) {
	h.log.Error(msg, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "algo deu errado, tente novamente em instantes")
}

func orNone(s string) string {
	if s == "" {
		return "a definir"
	}
	return s
}
