package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/retinacare/platform/pkg/alerting"
	"github.com/retinacare/platform/pkg/analysis"
	"github.com/retinacare/platform/pkg/clinical"
	"github.com/retinacare/platform/pkg/common/config"
	"github.com/retinacare/platform/pkg/common/database"
	"github.com/retinacare/platform/pkg/common/kafka"
	"github.com/retinacare/platform/pkg/common/logger"
	"github.com/retinacare/platform/pkg/common/models"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}

	directory := clinical.NewRepository(db)
	dispatcher := alerting.NewInAppDispatcher(db)
	if err := dispatcher.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate notification tables")
	}

	policies, err := alerting.LoadPolicies(cfg.AlertPolicyPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to load communication policies")
	}

	limiter := alerting.NewRedisRateLimiter(database.GetRedis(), cfg.AlertDailyLimit)

	trigger, err := alerting.NewTrigger(directory, dispatcher, limiter, policies)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to build alert trigger")
	}

	consumer := kafka.NewConsumer(cfg.RiskTopic, "alert-worker")
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Log.Info("Shutting down alert worker...")
		cancel()
	}()

	logger.Log.WithField("topic", cfg.RiskTopic).Info("alert worker consuming")
	err = consumer.Consume(ctx, func(ctx context.Context, event models.Event) error {
		if event.Type != analysis.EventRiskAssessmentCreated {
			return nil
		}
		assessment, err := decodeAssessment(event)
		if err != nil {
			// malformed events are logged and committed, not retried
			logger.Log.WithError(err).WithField("event_id", event.ID).Error("dropping malformed assessment event")
			return nil
		}
		trigger.HandleAssessment(ctx, assessment)
		return nil
	})
	if err != nil && err != context.Canceled {
		logger.Log.WithError(err).Error("consumer stopped")
	}

	database.CloseRedis()
	database.ClosePostgres()
	logger.Log.Info("alert worker stopped")
}

func decodeAssessment(event models.Event) (models.RiskAssessment, error) {
	raw, err := json.Marshal(event.Data)
	if err != nil {
		return models.RiskAssessment{}, err
	}

	var payload struct {
		AssessmentID    string  `json:"assessment_id"`
		AnalysisID      string  `json:"analysis_id"`
		PatientID       string  `json:"patient_id"`
		DiseaseType     string  `json:"disease_type"`
		RiskLevel       string  `json:"risk_level"`
		ConfidenceScore float64 `json:"confidence_score"`
		AssessedAt      string  `json:"assessed_at"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return models.RiskAssessment{}, err
	}

	id, err := uuid.Parse(payload.AssessmentID)
	if err != nil {
		return models.RiskAssessment{}, fmt.Errorf("bad assessment_id: %w", err)
	}
	analysisID, err := uuid.Parse(payload.AnalysisID)
	if err != nil {
		return models.RiskAssessment{}, fmt.Errorf("bad analysis_id: %w", err)
	}
	patientID, err := uuid.Parse(payload.PatientID)
	if err != nil {
		return models.RiskAssessment{}, fmt.Errorf("bad patient_id: %w", err)
	}
	assessedAt, err := time.Parse(time.RFC3339, payload.AssessedAt)
	if err != nil {
		assessedAt = event.Timestamp
	}

	return models.RiskAssessment{
		ID:              id,
		AnalysisID:      analysisID,
		PatientID:       patientID,
		DiseaseType:     payload.DiseaseType,
		RiskLevel:       payload.RiskLevel,
		ConfidenceScore: payload.ConfidenceScore,
		AssessedAt:      assessedAt,
	}, nil
}
