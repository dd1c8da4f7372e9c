package analysis

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/retinacare/platform/pkg/clinical"
	"github.com/retinacare/platform/pkg/common/logger"
	"github.com/retinacare/platform/pkg/common/models"
	"github.com/retinacare/platform/pkg/risk"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/analyses", h.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/analyses/statistics", h.handleStatistics).Methods(http.MethodGet)
	r.HandleFunc("/analyses/{id}", h.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/analyses/{id}/start", h.handleStart).Methods(http.MethodPost)
	r.HandleFunc("/analyses/{id}/complete", h.handleComplete).Methods(http.MethodPost)
	r.HandleFunc("/analyses/{id}/fail", h.handleFail).Methods(http.MethodPost)
	r.HandleFunc("/analyses/{id}/results", h.handleCreateResult).Methods(http.MethodPost)
	r.HandleFunc("/analyses/{id}/results", h.handleListResults).Methods(http.MethodGet)
	r.HandleFunc("/patients/{id}/analyses", h.handleListByPatient).Methods(http.MethodGet)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	analysis, err := h.service.CreateAnalysis(r.Context(), req)
	if err != nil {
		writeError(w, err, "failed to create analysis")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"analysis": analysis})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid analysis id", http.StatusBadRequest)
		return
	}
	analysis, err := h.service.GetAnalysis(r.Context(), id)
	if err != nil {
		writeError(w, err, "failed to get analysis")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"analysis": analysis})
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid analysis id", http.StatusBadRequest)
		return
	}
	if err := h.service.StartProcessing(r.Context(), id); err != nil {
		writeError(w, err, "failed to start analysis")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": models.AnalysisProcessing})
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid analysis id", http.StatusBadRequest)
		return
	}
	var req models.CompleteAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := h.service.Complete(r.Context(), id, req.ProcessingSeconds); err != nil {
		writeError(w, err, "failed to complete analysis")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": models.AnalysisCompleted})
}

func (h *Handler) handleFail(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid analysis id", http.StatusBadRequest)
		return
	}
	if err := h.service.Fail(r.Context(), id); err != nil {
		writeError(w, err, "failed to fail analysis")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": models.AnalysisFailed})
}

func (h *Handler) handleCreateResult(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid analysis id", http.StatusBadRequest)
		return
	}
	var req models.CreateResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	assessment, err := h.service.CreateResult(r.Context(), id, req)
	if err != nil {
		writeError(w, err, "failed to create result")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"result": assessment})
}

func (h *Handler) handleListResults(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid analysis id", http.StatusBadRequest)
		return
	}
	results, err := h.service.ListResults(r.Context(), id)
	if err != nil {
		writeError(w, err, "failed to list results")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": results})
}

func (h *Handler) handleListByPatient(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid patient id", http.StatusBadRequest)
		return
	}
	analyses, err := h.service.ListAnalysesByPatient(r.Context(), id)
	if err != nil {
		writeError(w, err, "failed to list analyses")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": analyses})
}

func (h *Handler) handleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Statistics(r.Context())
	if err != nil {
		writeError(w, err, "failed to compute statistics")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeError(w http.ResponseWriter, err error, fallback string) {
	var validation *ValidationError
	var invalidLevel *risk.InvalidRiskLevelError
	switch {
	case errors.As(err, &validation), errors.As(err, &invalidLevel):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound), errors.Is(err, clinical.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		logger.Log.WithError(err).Error(fallback)
		http.Error(w, fallback, http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
