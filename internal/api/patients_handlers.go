package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/PRautomacao/saude-certa/internal/patients"
)

func listPatientsHandler(repo patients.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := repo.List(r.Context(), r.URL.Query().Get("search"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func getPatientHandler(repo patients.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "id must be a valid UUID")
			return
		}

		patient, err := repo.GetByID(r.Context(), id)
		if err != nil {
			handlePatientError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, patient)
	}
}

func upsertPatientHandler(repo patients.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req patients.UpsertRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if err := req.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient", err.Error())
			return
		}

		patient, err := repo.Upsert(r.Context(), &req)
		if err != nil {
			handlePatientError(w, err)
			return
		}

		status := http.StatusOK
		if req.ID == nil {
			status = http.StatusCreated
		}
		writeJSON(w, status, patient)
	}
}

func deactivatePatientHandler(repo patients.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "id must be a valid UUID")
			return
		}

		if err := repo.Deactivate(r.Context(), id); err != nil {
			handlePatientError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handlePatientError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, patients.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, patients.ErrNameRequired):
		writeError(w, http.StatusBadRequest, "invalid_patient", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
