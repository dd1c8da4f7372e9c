package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/retinacare/platform/pkg/common/models"
	"github.com/retinacare/platform/pkg/risk"
)

type nopPublisher struct{}

func (nopPublisher) PublishEvent(ctx context.Context, eventType, source string, data map[string]interface{}) error {
	return nil
}

type nopImages struct{}

func (nopImages) GetImage(ctx context.Context, id uuid.UUID) (models.RetinalImage, error) {
	return models.RetinalImage{ID: id}, nil
}

func TestNewServiceRequiresCollaborators(t *testing.T) {
	cases := []struct {
		name      string
		repo      *Repository
		images    ImageSource
		publisher EventPublisher
	}{
		{"nil repository", nil, nopImages{}, nopPublisher{}},
		{"nil image source", &Repository{}, nil, nopPublisher{}},
		{"nil publisher", &Repository{}, nopImages{}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewService(tc.repo, tc.images, tc.publisher)
			var confErr *risk.ConfigurationError
			if !errors.As(err, &confErr) {
				t.Fatalf("got %v, want *risk.ConfigurationError", err)
			}
		})
	}
}

func TestCreateAnalysisRejectsUnknownStatus(t *testing.T) {
	service := &Service{images: nopImages{}, publisher: nopPublisher{}}

	_, err := service.CreateAnalysis(context.Background(), models.CreateAnalysisRequest{
		ImageID:      uuid.New(),
		ModelVersion: "retina-v2",
		Status:       "archived",
	})
	var validation *ValidationError
	if !errors.As(err, &validation) || validation.Field != "status" {
		t.Fatalf("got %v, want status validation error", err)
	}
}

func TestCreateAnalysisRequiresModelVersion(t *testing.T) {
	service := &Service{images: nopImages{}, publisher: nopPublisher{}}

	_, err := service.CreateAnalysis(context.Background(), models.CreateAnalysisRequest{ImageID: uuid.New()})
	var validation *ValidationError
	if !errors.As(err, &validation) || validation.Field != "model_version" {
		t.Fatalf("got %v, want model_version validation error", err)
	}
}

func TestCreateResultRejectsUnknownRiskLevel(t *testing.T) {
	service := &Service{images: nopImages{}, publisher: nopPublisher{}}

	_, err := service.CreateResult(context.Background(), uuid.New(), models.CreateResultRequest{
		DiseaseType:     "glaucoma",
		RiskLevel:       "severe",
		ConfidenceScore: 90,
	})
	var invalid *risk.InvalidRiskLevelError
	if !errors.As(err, &invalid) {
		t.Fatalf("got %v, want *risk.InvalidRiskLevelError", err)
	}
}

func TestCreateResultRejectsConfidenceOutOfRange(t *testing.T) {
	service := &Service{images: nopImages{}, publisher: nopPublisher{}}

	for _, score := range []float64{-0.5, 100.5} {
		_, err := service.CreateResult(context.Background(), uuid.New(), models.CreateResultRequest{
			DiseaseType:     "glaucoma",
			RiskLevel:       "high",
			ConfidenceScore: score,
		})
		var validation *ValidationError
		if !errors.As(err, &validation) || validation.Field != "confidence_score" {
			t.Fatalf("score %v: got %v, want confidence validation error", score, err)
		}
	}
}

func TestCompleteRejectsNegativeDuration(t *testing.T) {
	service := &Service{images: nopImages{}, publisher: nopPublisher{}}

	err := service.Complete(context.Background(), uuid.New(), -1)
	var validation *ValidationError
	if !errors.As(err, &validation) || validation.Field != "processing_seconds" {
		t.Fatalf("got %v, want processing_seconds validation error", err)
	}
}
