package analysis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/retinacare/platform/pkg/common/models"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type analysisModel struct {
	ID                uuid.UUID `gorm:"primaryKey;column:id"`
	ImageID           uuid.UUID `gorm:"column:image_id;index"`
	PatientID         uuid.UUID `gorm:"column:patient_id;index"`
	ModelVersion      string    `gorm:"column:model_version"`
	Status            string    `gorm:"column:status;index"`
	AnalysisTime      time.Time `gorm:"column:analysis_time"`
	ProcessingSeconds *int      `gorm:"column:processing_seconds"`
}

func (analysisModel) TableName() string { return "ai_analyses" }

// assessmentModel carries patient_id denormalized from the owning
// analysis so clinic-wide reads stay a single join through patients
// instead of one query per analysis.
type assessmentModel struct {
	ID              uuid.UUID `gorm:"primaryKey;column:id"`
	AnalysisID      uuid.UUID `gorm:"column:analysis_id;index"`
	PatientID       uuid.UUID `gorm:"column:patient_id;index"`
	DiseaseType     string    `gorm:"column:disease_type"`
	RiskLevel       string    `gorm:"column:risk_level;index"`
	ConfidenceScore float64   `gorm:"column:confidence_score"`
	AssessedAt      time.Time `gorm:"column:assessed_at;index"`
}

func (assessmentModel) TableName() string { return "risk_assessments" }

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&analysisModel{}, &assessmentModel{})
}

func (r *Repository) CreateAnalysis(ctx context.Context, imageID, patientID uuid.UUID, modelVersion, status string) (models.Analysis, error) {
	row := &analysisModel{
		ID:           uuid.New(),
		ImageID:      imageID,
		PatientID:    patientID,
		ModelVersion: modelVersion,
		Status:       status,
		AnalysisTime: time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return models.Analysis{}, err
	}
	return toAnalysis(row), nil
}

func (r *Repository) GetAnalysis(ctx context.Context, id uuid.UUID) (models.Analysis, error) {
	var row analysisModel
	result := r.db.WithContext(ctx).First(&row, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return models.Analysis{}, ErrNotFound
	}
	if result.Error != nil {
		return models.Analysis{}, result.Error
	}
	return toAnalysis(&row), nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, processingSeconds *int) error {
	updates := map[string]interface{}{"status": status}
	if processingSeconds != nil {
		updates["processing_seconds"] = *processingSeconds
	}
	result := r.db.WithContext(ctx).Model(&analysisModel{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) ListAnalysesByPatient(ctx context.Context, patientID uuid.UUID) ([]models.Analysis, error) {
	var rows []analysisModel
	if err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("analysis_time ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	analyses := make([]models.Analysis, 0, len(rows))
	for i := range rows {
		analyses = append(analyses, toAnalysis(&rows[i]))
	}
	return analyses, nil
}

// Statistics aggregates the analysis lifecycle in SQL rather than
// loading rows and counting in Go.
func (r *Repository) Statistics(ctx context.Context) (models.AnalysisStatistics, error) {
	var stats models.AnalysisStatistics
	row := r.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*) AS total_analyses,
			COUNT(*) FILTER (WHERE status = 'pending') AS pending,
			COUNT(*) FILTER (WHERE status = 'processing') AS processing,
			COUNT(*) FILTER (WHERE status = 'completed') AS completed,
			COUNT(*) FILTER (WHERE status = 'failed') AS failed,
			COALESCE(AVG(processing_seconds), 0) AS avg_processing_secs
		FROM ai_analyses`).Row()
	if err := row.Scan(&stats.TotalAnalyses, &stats.Pending, &stats.Processing,
		&stats.Completed, &stats.Failed, &stats.AvgProcessingSecs); err != nil {
		return models.AnalysisStatistics{}, err
	}
	return stats, nil
}

func (r *Repository) CreateAssessment(ctx context.Context, a models.RiskAssessment) (models.RiskAssessment, error) {
	row := &assessmentModel{
		ID:              a.ID,
		AnalysisID:      a.AnalysisID,
		PatientID:       a.PatientID,
		DiseaseType:     a.DiseaseType,
		RiskLevel:       a.RiskLevel,
		ConfidenceScore: a.ConfidenceScore,
		AssessedAt:      a.AssessedAt,
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return models.RiskAssessment{}, err
	}
	return toAssessment(row), nil
}

func (r *Repository) ListByAnalysis(ctx context.Context, analysisID uuid.UUID) ([]models.RiskAssessment, error) {
	var rows []assessmentModel
	if err := r.db.WithContext(ctx).
		Where("analysis_id = ?", analysisID).
		Order("assessed_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toAssessments(rows), nil
}

// ListByClinic fetches every assessment reachable from the clinic's
// patients with a single join. Ordering matches the timeline sort used
// downstream so repeated runs over unchanged data stay byte-identical.
func (r *Repository) ListByClinic(ctx context.Context, clinicID uuid.UUID, start, end time.Time) ([]models.RiskAssessment, error) {
	query := `
		SELECT r.id, r.analysis_id, r.patient_id, r.disease_type,
		       r.risk_level, r.confidence_score, r.assessed_at
		FROM risk_assessments r
		JOIN patients p ON p.id = r.patient_id
		WHERE p.clinic_id = ?`
	args := []interface{}{clinicID}
	if !start.IsZero() {
		query += " AND r.assessed_at >= ?"
		args = append(args, start)
	}
	if !end.IsZero() {
		query += " AND r.assessed_at <= ?"
		args = append(args, end)
	}
	query += " ORDER BY r.assessed_at ASC, r.analysis_id ASC"

	var rows []assessmentModel
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return toAssessments(rows), nil
}

func (r *Repository) ListByPatient(ctx context.Context, patientID uuid.UUID, start, end time.Time) ([]models.RiskAssessment, error) {
	tx := r.db.WithContext(ctx).Where("patient_id = ?", patientID)
	if !start.IsZero() {
		tx = tx.Where("assessed_at >= ?", start)
	}
	if !end.IsZero() {
		tx = tx.Where("assessed_at <= ?", end)
	}

	var rows []assessmentModel
	if err := tx.Order("assessed_at ASC, analysis_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toAssessments(rows), nil
}

func toAnalysis(row *analysisModel) models.Analysis {
	return models.Analysis{
		ID:                row.ID,
		ImageID:           row.ImageID,
		PatientID:         row.PatientID,
		ModelVersion:      row.ModelVersion,
		Status:            row.Status,
		AnalysisTime:      row.AnalysisTime,
		ProcessingSeconds: row.ProcessingSeconds,
	}
}

func toAssessment(row *assessmentModel) models.RiskAssessment {
	return models.RiskAssessment{
		ID:              row.ID,
		AnalysisID:      row.AnalysisID,
		PatientID:       row.PatientID,
		DiseaseType:     row.DiseaseType,
		RiskLevel:       row.RiskLevel,
		ConfidenceScore: row.ConfidenceScore,
		AssessedAt:      row.AssessedAt,
	}
}

func toAssessments(rows []assessmentModel) []models.RiskAssessment {
	assessments := make([]models.RiskAssessment, 0, len(rows))
	for i := range rows {
		assessments = append(assessments, toAssessment(&rows[i]))
	}
	return assessments
}
