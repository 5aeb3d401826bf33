package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/PRautomacao/saude-certa/internal/finance"
	"github.com/PRautomacao/saude-certa/internal/patients"
	"github.com/PRautomacao/saude-certa/internal/schedule"
)

const (
	testWebhookToken = "hook-token"
	testJWTSecret    = "jwt-secret"
)

type passLocker struct{}

func (passLocker) WithSlotLock(ctx context.Context, date, slot string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type testEnv struct {
	handler  http.Handler
	ledger   *schedule.Ledger
	schedule *schedule.InMemoryRepository
	patients *patients.InMemoryRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	schedRepo := schedule.NewInMemoryRepository()
	patRepo := patients.NewInMemoryRepository()
	ledger := schedule.NewLedger(schedRepo, passLocker{}, zap.NewNop())

	handler := NewRouter(RouterConfig{
		Ledger:         ledger,
		Patients:       patRepo,
		Finance:        finance.NewRepository(mock),
		Log:            zap.NewNop(),
		WebhookToken:   testWebhookToken,
		AdminJWTSecret: testJWTSecret,
		Env:            "test",
		Version:        "test",
	})

	return &testEnv{handler: handler, ledger: ledger, schedule: schedRepo, patients: patRepo}
}

func adminToken(t *testing.T, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func (e *testEnv) adminRequest(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, testJWTSecret))
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) webhookRequest(t *testing.T, action string, data any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	body, err := json.Marshal(WebhookRequest{Action: action, Data: raw})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("X-Webhook-Token", testWebhookToken)
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decodeWebhook(t *testing.T, rr *httptest.ResponseRecorder) WebhookResponse {
	t.Helper()
	var resp WebhookResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func TestAdminRoutesRequireJWT(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/slots?date=2025-05-12", nil)
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin/slots?date=2025-05-12", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rr = httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = env.adminRequest(t, http.MethodGet, "/admin/slots?date=2025-05-12", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAdminJWTRejectsWrongSecret(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/slots?date=2025-05-12", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, "other-secret"))
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestListSlotsReturnsFullGrid(t *testing.T) {
	env := newTestEnv(t)

	rr := env.adminRequest(t, http.MethodGet, "/admin/slots?date=2025-05-12", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp SlotsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "2025-05-12", resp.Date)
	assert.Equal(t, schedule.DailySlots(), resp.Slots)
}

func TestBookAppointmentLifecycle(t *testing.T) {
	env := newTestEnv(t)
	patientID := uuid.New()
	env.schedule.AddPatient(patientID, "Maria Souza", "64999990000")

	rr := env.adminRequest(t, http.MethodPost, "/admin/appointments", BookAppointmentRequest{
		PatientID: patientID.String(),
		Date:      "2025-05-12",
		Slot:      "09:00",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	var appt AppointmentResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &appt))
	assert.Equal(t, "confirmed", appt.Status)
	assert.Equal(t, "09:00", appt.Slot)

	// second booking for the same slot conflicts
	rr = env.adminRequest(t, http.MethodPost, "/admin/appointments", BookAppointmentRequest{
		PatientID: uuid.NewString(),
		Date:      "2025-05-12",
		Slot:      "09:00",
	})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "slot_already_booked")

	// off-grid slot is rejected before persistence
	rr = env.adminRequest(t, http.MethodPost, "/admin/appointments", BookAppointmentRequest{
		PatientID: uuid.NewString(),
		Date:      "2025-05-12",
		Slot:      "12:00",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid_slot")

	// cancel frees the slot
	rr = env.adminRequest(t, http.MethodPost, "/admin/appointments/"+appt.ID.String()+"/cancel", nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = env.adminRequest(t, http.MethodGet, "/admin/slots?date=2025-05-12", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var slots SlotsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &slots))
	assert.Contains(t, slots.Slots, "09:00")
}

func TestUpdateAppointmentStatus(t *testing.T) {
	env := newTestEnv(t)
	patientID := uuid.New()
	env.schedule.AddPatient(patientID, "Ana", "111")

	rr := env.adminRequest(t, http.MethodPost, "/admin/appointments", BookAppointmentRequest{
		PatientID: patientID.String(),
		Date:      "2025-05-12",
		Slot:      "10:00",
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	var appt AppointmentResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &appt))

	rr = env.adminRequest(t, http.MethodPatch, "/admin/appointments/"+appt.ID.String()+"/status",
		UpdateStatusRequest{Status: "done"})
	require.Equal(t, http.StatusOK, rr.Code)

	var updated AppointmentResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &updated))
	assert.Equal(t, "done", updated.Status)

	rr = env.adminRequest(t, http.MethodPatch, "/admin/appointments/"+appt.ID.String()+"/status",
		UpdateStatusRequest{Status: "archived"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRescheduleAppointmentOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	patientID := uuid.New()
	env.schedule.AddPatient(patientID, "Ana", "111")

	rr := env.adminRequest(t, http.MethodPost, "/admin/appointments", BookAppointmentRequest{
		PatientID: patientID.String(),
		Date:      "2025-05-12",
		Slot:      "08:00",
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	var appt AppointmentResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &appt))

	rr = env.adminRequest(t, http.MethodPut, "/admin/appointments/"+appt.ID.String(), BookAppointmentRequest{
		PatientID: patientID.String(),
		Date:      "2025-05-13",
		Slot:      "14:00",
		Status:    "pending",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var moved AppointmentResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &moved))
	assert.Equal(t, "2025-05-13", moved.Date)
	assert.Equal(t, "14:00", moved.Slot)
	assert.Equal(t, "pending", moved.Status)

	// original slot freed
	rr = env.adminRequest(t, http.MethodGet, "/admin/slots?date=2025-05-12", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var slots SlotsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &slots))
	assert.Contains(t, slots.Slots, "08:00")
}

func TestPatientCRUDOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	phone := "64988887777"
	rr := env.adminRequest(t, http.MethodPost, "/admin/patients", patients.UpsertRequest{
		Name:  "João Lima",
		Phone: &phone,
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	var created patients.Patient
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.True(t, created.Active)

	rr = env.adminRequest(t, http.MethodGet, "/admin/patients?search=joão", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list []patients.Patient
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	rr = env.adminRequest(t, http.MethodDelete, "/admin/patients/"+created.ID.String(), nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = env.adminRequest(t, http.MethodGet, "/admin/patients", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Empty(t, list)

	rr = env.adminRequest(t, http.MethodGet, "/admin/patients/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestWebhookRejectsBadToken(t *testing.T) {
	env := newTestEnv(t)

	body := []byte(`{"action":"list_slots","data":{"date":"2025-05-12"}}`)
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req = httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("X-Webhook-Token", "wrong")
	rr = httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestWebhookUnknownAction(t *testing.T) {
	env := newTestEnv(t)

	rr := env.webhookRequest(t, "delete_everything", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "unknown_action")
}

func TestWebhookStatusIsPublic(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestWebhookCreateAppointmentBooksAndRegistersPatient(t *testing.T) {
	env := newTestEnv(t)

	rr := env.webhookRequest(t, "create_appointment", map[string]string{
		"patient_name":  "Maria Souza",
		"patient_phone": "64999990000",
		"service":       "Clareamento",
		"date":          "2025-05-12",
		"slot":          "08:00",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decodeWebhook(t, rr)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.AppointmentID)
	assert.Contains(t, resp.Message, "2025-05-12")
	assert.Contains(t, resp.Message, "08:00")

	patient, err := env.patients.GetByPhone(context.Background(), "64999990000")
	require.NoError(t, err)
	assert.Equal(t, "Maria Souza", patient.Name)

	// a second call for the same phone reuses the patient
	rr = env.webhookRequest(t, "create_appointment", map[string]string{
		"patient_name":  "Maria Souza",
		"patient_phone": "64999990000",
		"date":          "2025-05-12",
		"slot":          "08:30",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, decodeWebhook(t, rr).Success)

	list, err := env.patients.List(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestWebhookCreateAppointmentConflict(t *testing.T) {
	env := newTestEnv(t)

	occupant := uuid.New()
	env.schedule.AddPatient(occupant, "Ana", "111")
	_, err := env.ledger.Book(context.Background(), schedule.BookRequest{
		PatientID: occupant,
		Date:      mustDate(t, "2025-05-12"),
		Slot:      "10:00",
	})
	require.NoError(t, err)

	rr := env.webhookRequest(t, "create_appointment", map[string]string{
		"patient_name":  "Bia",
		"patient_phone": "222",
		"date":          "2025-05-12",
		"slot":          "10:00",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decodeWebhook(t, rr)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "10:00")
	assert.Contains(t, resp.Message, "2025-05-12")
	assert.Nil(t, resp.AppointmentID)

	// no second row was created
	agenda, err := env.ledger.Agenda(context.Background(), mustDate(t, "2025-05-12"))
	require.NoError(t, err)
	assert.Len(t, agenda, 1)
}

func TestWebhookListSlots(t *testing.T) {
	env := newTestEnv(t)

	rr := env.webhookRequest(t, "list_slots", map[string]string{"date": "2025-05-12"})
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decodeWebhook(t, rr)
	assert.True(t, resp.Success)
	assert.Equal(t, schedule.DailySlots(), resp.Slots)
	assert.Contains(t, resp.Message, "2025-05-12")
}

func TestWebhookCancelOwnership(t *testing.T) {
	env := newTestEnv(t)

	patientID := uuid.New()
	env.schedule.AddPatient(patientID, "Maria", "64999990000")
	appt, err := env.ledger.Book(context.Background(), schedule.BookRequest{
		PatientID: patientID,
		Date:      mustDate(t, "2025-05-12"),
		Slot:      "14:00",
	})
	require.NoError(t, err)

	// wrong phone and unknown id produce the same reply
	for _, data := range []map[string]string{
		{"appointment_id": appt.ID.String(), "phone": "000"},
		{"appointment_id": uuid.NewString(), "phone": "64999990000"},
		{"appointment_id": "not-a-uuid", "phone": "64999990000"},
	} {
		rr := env.webhookRequest(t, "cancel_appointment", data)
		require.Equal(t, http.StatusOK, rr.Code)
		resp := decodeWebhook(t, rr)
		assert.False(t, resp.Success)
		assert.Equal(t, "Agendamento não encontrado.", resp.Message)
	}

	rr := env.webhookRequest(t, "cancel_appointment", map[string]string{
		"appointment_id": appt.ID.String(),
		"phone":          "64999990000",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decodeWebhook(t, rr).Success)
}

func TestWebhookNextAppointment(t *testing.T) {
	env := newTestEnv(t)

	rr := env.webhookRequest(t, "next_appointment", map[string]string{"phone": "64999990000"})
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeWebhook(t, rr)
	assert.True(t, resp.Success)
	assert.Contains(t, resp.Message, "Não encontrei")

	patientID := uuid.New()
	env.schedule.AddPatient(patientID, "Maria", "64999990000")
	future := time.Now().AddDate(0, 1, 0)
	_, err := env.ledger.Book(context.Background(), schedule.BookRequest{
		PatientID: patientID,
		Date:      future,
		Slot:      "15:30",
	})
	require.NoError(t, err)

	rr = env.webhookRequest(t, "next_appointment", map[string]string{"phone": "64999990000"})
	require.Equal(t, http.StatusOK, rr.Code)
	resp = decodeWebhook(t, rr)
	assert.True(t, resp.Success)
	assert.Contains(t, resp.Message, "15:30")
	assert.Contains(t, resp.Message, future.Format(schedule.DateLayout))
}

func TestChatEndpointStartsConversation(t *testing.T) {
	env := newTestEnv(t)

	body := []byte(`{"message":"oi"}`)
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Reply)
	assert.NotEqual(t, "", string(resp.State))
}

func TestHealthLiveness(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"ok"`)
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(schedule.DateLayout, s)
	require.NoError(t, err)
	return d
}

func TestRequestIDHeaderIsSet(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)

	id := rr.Header().Get("X-Request-ID")
	require.NotEmpty(t, id)
	_, err := uuid.Parse(id)
	assert.NoError(t, err, fmt.Sprintf("X-Request-ID %q must be a UUID", id))
}
