package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/retinacare/platform/pkg/common/logger"
	"github.com/retinacare/platform/pkg/common/models"
	"github.com/retinacare/platform/pkg/risk"
)

// EventRiskAssessmentCreated is emitted after a result is persisted so
// downstream consumers (alerting, audit) react without coupling result
// creation to notification delivery.
const EventRiskAssessmentCreated = "risk.assessment.created"

const eventSource = "analysis-service"

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ImageSource resolves retinal images so new analyses inherit the
// owning patient. Satisfied by clinical.Repository.
type ImageSource interface {
	GetImage(ctx context.Context, id uuid.UUID) (models.RetinalImage, error)
}

// EventPublisher is the producer surface the service needs. Satisfied
// by kafka.Producer.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

type Service struct {
	repo      *Repository
	images    ImageSource
	publisher EventPublisher
}

func NewService(repo *Repository, images ImageSource, publisher EventPublisher) (*Service, error) {
	if repo == nil {
		return nil, &risk.ConfigurationError{Component: "analysis.Service", Missing: "Repository"}
	}
	if images == nil {
		return nil, &risk.ConfigurationError{Component: "analysis.Service", Missing: "ImageSource"}
	}
	if publisher == nil {
		return nil, &risk.ConfigurationError{Component: "analysis.Service", Missing: "EventPublisher"}
	}
	return &Service{repo: repo, images: images, publisher: publisher}, nil
}

var validStatuses = map[string]bool{
	models.AnalysisPending:    true,
	models.AnalysisProcessing: true,
	models.AnalysisCompleted:  true,
	models.AnalysisFailed:     true,
}

// CreateAnalysis registers a new AI analysis against an uploaded image.
// The owning patient is resolved from the image so assessments created
// later can be stored with the patient already denormalized.
func (s *Service) CreateAnalysis(ctx context.Context, req models.CreateAnalysisRequest) (models.Analysis, error) {
	status := req.Status
	if status == "" {
		status = models.AnalysisPending
	}
	if !validStatuses[status] {
		return models.Analysis{}, &ValidationError{Field: "status", Message: "must be pending, processing, completed or failed"}
	}
	if req.ModelVersion == "" {
		return models.Analysis{}, &ValidationError{Field: "model_version", Message: "is required"}
	}

	image, err := s.images.GetImage(ctx, req.ImageID)
	if err != nil {
		return models.Analysis{}, err
	}
	return s.repo.CreateAnalysis(ctx, image.ID, image.PatientID, req.ModelVersion, status)
}

func (s *Service) GetAnalysis(ctx context.Context, id uuid.UUID) (models.Analysis, error) {
	return s.repo.GetAnalysis(ctx, id)
}

// StartProcessing moves a pending analysis into processing.
func (s *Service) StartProcessing(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, models.AnalysisPending, models.AnalysisProcessing, nil)
}

// Complete marks a processing analysis as finished and records how
// long the model ran.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, processingSeconds int) error {
	if processingSeconds < 0 {
		return &ValidationError{Field: "processing_seconds", Message: "must not be negative"}
	}
	return s.transition(ctx, id, models.AnalysisProcessing, models.AnalysisCompleted, &processingSeconds)
}

// Fail marks an analysis as failed. Both pending and processing
// analyses may fail.
func (s *Service) Fail(ctx context.Context, id uuid.UUID) error {
	analysis, err := s.repo.GetAnalysis(ctx, id)
	if err != nil {
		return err
	}
	if analysis.Status == models.AnalysisCompleted || analysis.Status == models.AnalysisFailed {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("cannot fail a %s analysis", analysis.Status)}
	}
	return s.repo.UpdateStatus(ctx, id, models.AnalysisFailed, nil)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, from, to string, processingSeconds *int) error {
	analysis, err := s.repo.GetAnalysis(ctx, id)
	if err != nil {
		return err
	}
	if analysis.Status != from {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("cannot move from %s to %s", analysis.Status, to)}
	}
	return s.repo.UpdateStatus(ctx, id, to, processingSeconds)
}

// CreateResult validates and persists an assessment for a completed or
// processing analysis, then announces it on the event bus. Publishing
// is best-effort: a broker outage never rolls back the stored result.
func (s *Service) CreateResult(ctx context.Context, analysisID uuid.UUID, req models.CreateResultRequest) (models.RiskAssessment, error) {
	level, err := risk.ParseLevel(req.RiskLevel)
	if err != nil {
		return models.RiskAssessment{}, err
	}
	if req.ConfidenceScore < 0 || req.ConfidenceScore > 100 {
		return models.RiskAssessment{}, &ValidationError{Field: "confidence_score", Message: "must be between 0 and 100"}
	}
	if req.DiseaseType == "" {
		return models.RiskAssessment{}, &ValidationError{Field: "disease_type", Message: "is required"}
	}

	analysis, err := s.repo.GetAnalysis(ctx, analysisID)
	if err != nil {
		return models.RiskAssessment{}, err
	}
	if analysis.Status == models.AnalysisFailed {
		return models.RiskAssessment{}, &ValidationError{Field: "status", Message: "cannot attach results to a failed analysis"}
	}

	assessment, err := s.repo.CreateAssessment(ctx, models.RiskAssessment{
		ID:              uuid.New(),
		AnalysisID:      analysis.ID,
		PatientID:       analysis.PatientID,
		DiseaseType:     req.DiseaseType,
		RiskLevel:       string(level),
		ConfidenceScore: req.ConfidenceScore,
		AssessedAt:      time.Now().UTC(),
	})
	if err != nil {
		return models.RiskAssessment{}, err
	}

	if err := s.publisher.PublishEvent(ctx, EventRiskAssessmentCreated, eventSource, map[string]interface{}{
		"assessment_id":    assessment.ID.String(),
		"analysis_id":      assessment.AnalysisID.String(),
		"patient_id":       assessment.PatientID.String(),
		"disease_type":     assessment.DiseaseType,
		"risk_level":       assessment.RiskLevel,
		"confidence_score": assessment.ConfidenceScore,
		"assessed_at":      assessment.AssessedAt.Format(time.RFC3339),
	}); err != nil {
		logger.Log.WithError(err).WithField("assessment_id", assessment.ID).
			Error("failed to publish assessment event")
	}

	return assessment, nil
}

func (s *Service) ListResults(ctx context.Context, analysisID uuid.UUID) ([]models.RiskAssessment, error) {
	return s.repo.ListByAnalysis(ctx, analysisID)
}

func (s *Service) ListAnalysesByPatient(ctx context.Context, patientID uuid.UUID) ([]models.Analysis, error) {
	return s.repo.ListAnalysesByPatient(ctx, patientID)
}

func (s *Service) Statistics(ctx context.Context) (models.AnalysisStatistics, error) {
	return s.repo.Statistics(ctx)
}
