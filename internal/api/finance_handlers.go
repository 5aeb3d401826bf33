package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/PRautomacao/saude-certa/internal/finance"
	"github.com/PRautomacao/saude-certa/internal/schedule"
)

func listFinanceHandler(repo *finance.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := finance.Filter{
			Kind:   finance.Kind(q.Get("kind")),
			Status: finance.EntryStatus(q.Get("status")),
		}

		if raw := q.Get("patient_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
				return
			}
			filter.PatientID = &id
		}
		for name, dst := range map[string]**time.Time{"from": &filter.From, "to": &filter.To} {
			if raw := q.Get(name); raw != "" {
				d, err := time.Parse(schedule.DateLayout, raw)
				if err != nil {
					writeError(w, http.StatusBadRequest, "invalid_date", name+" must be YYYY-MM-DD")
					return
				}
				*dst = &d
			}
		}

		entries, err := repo.List(r.Context(), filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func upsertFinanceHandler(repo *finance.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req finance.UpsertRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if err := req.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_entry", err.Error())
			return
		}

		entry, err := repo.Upsert(r.Context(), &req)
		if err != nil {
			handleFinanceError(w, err)
			return
		}

		status := http.StatusOK
		if req.ID == nil {
			status = http.StatusCreated
		}
		writeJSON(w, status, entry)
	}
}

func markPaidHandler(repo *finance.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_entry_id", "id must be a valid UUID")
			return
		}

		if err := repo.MarkPaid(r.Context(), id); err != nil {
			handleFinanceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func yearFlowHandler(repo *finance.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		year, err := strconv.Atoi(r.URL.Query().Get("year"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_year", "year is required")
			return
		}

		flow, err := repo.YearFlow(r.Context(), year)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, flow)
	}
}

type DashboardResponse struct {
	finance.MonthKPIs
	TodayAgenda []AppointmentDetailResponse `json:"today_agenda"`
	Flow        []finance.MonthFlow        `json:"flow"`
}

// dashboardHandler assembles the admin landing page in one round trip:
// month KPIs, today's agenda and the year cash-flow chart.
func dashboardHandler(ledger *schedule.Ledger, repo *finance.Repository, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		today := now()

		kpis, err := repo.MonthKPIs(r.Context(), today.Year(), today.Month())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		agenda, err := ledger.Agenda(r.Context(), today)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		flow, err := repo.YearFlow(r.Context(), today.Year())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, DashboardResponse{
			MonthKPIs:   *kpis,
			TodayAgenda: toDetailResponses(agenda),
			Flow:        flow,
		})
	}
}

func handleFinanceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, finance.ErrEntryNotFound):
		writeError(w, http.StatusNotFound, "entry_not_found", err.Error())
	case errors.Is(err, finance.ErrDescriptionRequired),
		errors.Is(err, finance.ErrInvalidKind):
		writeError(w, http.StatusBadRequest, "invalid_entry", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
