package clinical

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/retinacare/platform/pkg/common/logger"
	"github.com/retinacare/platform/pkg/common/models"
	"github.com/retinacare/platform/pkg/risk"
)

type Handler struct {
	service *Service
	repo    *Repository
}

func NewHandler(service *Service, repo *Repository) *Handler {
	return &Handler{service: service, repo: repo}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/clinics", h.handleCreateClinic).Methods(http.MethodPost)
	r.HandleFunc("/clinics/{id}", h.handleGetClinic).Methods(http.MethodGet)
	r.HandleFunc("/clinics/{id}/risk-snapshot", h.handleClinicSnapshot).Methods(http.MethodGet)
	r.HandleFunc("/clinics/{id}/abnormal-trends", h.handleAbnormalTrends).Methods(http.MethodGet)
	r.HandleFunc("/clinics/{id}/patients", h.handleListPatients).Methods(http.MethodGet)
	r.HandleFunc("/patients", h.handleCreatePatient).Methods(http.MethodPost)
	r.HandleFunc("/patients/{id}/trend", h.handlePatientTrend).Methods(http.MethodGet)
	r.HandleFunc("/patients/{id}/images", h.handleListImages).Methods(http.MethodGet)
	r.HandleFunc("/images", h.handleCreateImage).Methods(http.MethodPost)
}

func (h *Handler) handleCreateClinic(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		Address string `json:"address"`
		Phone   string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	clinic, err := h.repo.CreateClinic(r.Context(), req.Name, req.Address, req.Phone)
	if err != nil {
		logger.Log.WithError(err).Error("failed to create clinic")
		http.Error(w, "failed to create clinic", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"clinic": clinic})
}

func (h *Handler) handleGetClinic(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid clinic id", http.StatusBadRequest)
		return
	}
	clinic, err := h.repo.GetClinic(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "clinic not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to get clinic")
		http.Error(w, "failed to get clinic", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"clinic": clinic})
}

func (h *Handler) handleClinicSnapshot(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid clinic id", http.StatusBadRequest)
		return
	}
	snapshot, err := h.service.ClinicSnapshot(r.Context(), id)
	if err != nil {
		writeError(w, err, "failed to build clinic snapshot")
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) handleAbnormalTrends(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid clinic id", http.StatusBadRequest)
		return
	}
	report, err := h.service.AbnormalTrends(r.Context(), id, parseDays(r))
	if err != nil {
		writeError(w, err, "failed to build abnormal trend report")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) handlePatientTrend(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid patient id", http.StatusBadRequest)
		return
	}

	query := r.URL.Query()
	var summary models.PatientTrendSummary
	if query.Get("start") != "" || query.Get("end") != "" {
		start, end, perr := parseWindow(query.Get("start"), query.Get("end"))
		if perr != nil {
			http.Error(w, "start and end must be YYYY-MM-DD dates", http.StatusBadRequest)
			return
		}
		summary, err = h.service.PatientTrendRange(r.Context(), id, start, end)
	} else {
		summary, err = h.service.PatientTrend(r.Context(), id, parseDays(r))
	}
	if err != nil {
		writeError(w, err, "failed to build patient trend")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleListPatients(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid clinic id", http.StatusBadRequest)
		return
	}
	patients, err := h.repo.ListPatientsByClinic(r.Context(), id)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list patients")
		http.Error(w, "failed to list patients", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": patients})
}

func (h *Handler) handleCreatePatient(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.ClinicID == uuid.Nil || req.FullName == "" {
		http.Error(w, "clinic_id and full_name are required", http.StatusBadRequest)
		return
	}
	patient, err := h.repo.CreatePatient(r.Context(), req)
	if err != nil {
		logger.Log.WithError(err).Error("failed to create patient")
		http.Error(w, "failed to create patient", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"patient": patient})
}

func (h *Handler) handleListImages(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid patient id", http.StatusBadRequest)
		return
	}
	images, err := h.repo.ListImagesByPatient(r.Context(), id)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list images")
		http.Error(w, "failed to list images", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": images})
}

func (h *Handler) handleCreateImage(w http.ResponseWriter, r *http.Request) {
	var req models.CreateImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.PatientID == uuid.Nil || req.FileURL == "" {
		http.Error(w, "patient_id and file_url are required", http.StatusBadRequest)
		return
	}
	image, err := h.repo.CreateImage(r.Context(), req)
	if err != nil {
		logger.Log.WithError(err).Error("failed to create image")
		http.Error(w, "failed to create image", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"image": image})
}

func writeError(w http.ResponseWriter, err error, fallback string) {
	var invalidLevel *risk.InvalidRiskLevelError
	var invalidRange *risk.InvalidDateRangeError
	switch {
	case errors.As(err, &invalidLevel), errors.As(err, &invalidRange):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		logger.Log.WithError(err).Error(fallback)
		http.Error(w, fallback, http.StatusInternalServerError)
	}
}

func parseDays(r *http.Request) int {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return 0
	}
	if v, err := strconv.Atoi(raw); err == nil && v > 0 {
		return v
	}
	return 0
}

func parseWindow(start, end string) (time.Time, time.Time, error) {
	var from, to time.Time
	var err error
	if start != "" {
		if from, err = time.Parse("2006-01-02", start); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if end != "" {
		if to, err = time.Parse("2006-01-02", end); err != nil {
			return time.Time{}, time.Time{}, err
		}
		// include the whole end day
		to = to.Add(24*time.Hour - time.Nanosecond)
	}
	return from, to, nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
