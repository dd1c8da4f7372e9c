package models

import (
	"time"

	"github.com/google/uuid"
)

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // risk.assessment.created, analysis.completed
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// RiskAssessment is the immutable fact produced when an AI analysis
// yields a result for a retinal image. It is never mutated after
// creation; patient timelines and clinic snapshots are views over
// many assessments.
type RiskAssessment struct {
	ID              uuid.UUID `json:"id"`
	AnalysisID      uuid.UUID `json:"analysis_id"`
	PatientID       uuid.UUID `json:"patient_id"`
	DiseaseType     string    `json:"disease_type"`
	RiskLevel       string    `json:"risk_level"` // low, medium, high, critical
	ConfidenceScore float64   `json:"confidence_score"`
	AssessedAt      time.Time `json:"assessed_at"`
}

// ClinicRiskSnapshot is a point-in-time aggregate over every
// assessment reachable from a clinic's patients.
type ClinicRiskSnapshot struct {
	ClinicID          uuid.UUID          `json:"clinic_id"`
	Counts            map[string]int     `json:"counts"`
	Percentages       map[string]float64 `json:"percentages"`
	Total             int                `json:"total"`
	AverageConfidence float64            `json:"average_confidence"`
	MinConfidence     float64            `json:"min_confidence"`
	MaxConfidence     float64            `json:"max_confidence"`
	// HighRiskPatients is capped for response size; TotalHighRiskCount
	// is the exact uncapped figure. Consumers needing the full set must
	// page through the patient listing endpoints instead.
	HighRiskPatients   []HighRiskPatient `json:"high_risk_patients"`
	TotalHighRiskCount int               `json:"total_high_risk_count"`
	GeneratedAt        time.Time         `json:"generated_at"`
}

type HighRiskPatient struct {
	PatientID      uuid.UUID `json:"patient_id"`
	WorstRiskLevel string    `json:"worst_risk_level"`
	DiseaseType    string    `json:"disease_type"`
	LastAssessedAt time.Time `json:"last_assessed_at"`
}

// PatientTrendSummary composes the headline trend with descriptive
// statistics over one patient's windowed timeline. Dates, RiskLevels
// and ConfidenceScores are parallel arrays in timeline order for
// client-side charting and must stay index-aligned.
type PatientTrendSummary struct {
	PatientID         uuid.UUID      `json:"patient_id"`
	PeriodDays        int            `json:"period_days"`
	TotalAssessments  int            `json:"total_assessments"`
	RiskDistribution  map[string]int `json:"risk_distribution"`
	AverageConfidence float64        `json:"average_confidence"`
	Dates             []string       `json:"dates"`
	RiskLevels        []string       `json:"risk_levels"`
	ConfidenceScores  []float64      `json:"confidence_scores"`
	Trend             string         `json:"trend"` // improving, worsening, stable, no_data
}

// AbnormalTrendReport is the clinic-wide view of worsening patients.
// RiskIncreases compares each patient's first and last assessment in
// the window; SuddenSpikes lists every adjacent low/medium to
// high/critical jump. The two granularities are intentionally
// different signals.
type AbnormalTrendReport struct {
	ClinicID           uuid.UUID      `json:"clinic_id"`
	RiskIncreases      []RiskIncrease `json:"risk_increases"`
	SuddenSpikes       []SuddenSpike  `json:"sudden_spikes"`
	TotalAbnormalCases int            `json:"total_abnormal_cases"`
	TotalRiskIncreases int            `json:"total_risk_increases"`
	TotalSuddenSpikes  int            `json:"total_sudden_spikes"`
}

type RiskIncrease struct {
	PatientID         uuid.UUID `json:"patient_id"`
	FromRisk          string    `json:"from_risk"`
	ToRisk            string    `json:"to_risk"`
	IncreaseMagnitude int       `json:"increase_magnitude"`
}

type SuddenSpike struct {
	PatientID  uuid.UUID `json:"patient_id"`
	Date       string    `json:"date"`
	FromRisk   string    `json:"from_risk"`
	ToRisk     string    `json:"to_risk"`
	Confidence float64   `json:"confidence"`
}

// Clinic entities
type Clinic struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type Patient struct {
	ID          uuid.UUID  `json:"id"`
	ClinicID    uuid.UUID  `json:"clinic_id"`
	AccountID   *uuid.UUID `json:"account_id,omitempty"`
	FullName    string     `json:"full_name"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type RetinalImage struct {
	ID         uuid.UUID `json:"id"`
	PatientID  uuid.UUID `json:"patient_id"`
	ImageType  string    `json:"image_type"` // fundus, oct
	FileURL    string    `json:"file_url"`
	Status     string    `json:"status"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Analysis lifecycle statuses
const (
	AnalysisPending    = "pending"
	AnalysisProcessing = "processing"
	AnalysisCompleted  = "completed"
	AnalysisFailed     = "failed"
)

type Analysis struct {
	ID                uuid.UUID `json:"id"`
	ImageID           uuid.UUID `json:"image_id"`
	PatientID         uuid.UUID `json:"patient_id"`
	ModelVersion      string    `json:"model_version"`
	Status            string    `json:"status"`
	AnalysisTime      time.Time `json:"analysis_time"`
	ProcessingSeconds *int      `json:"processing_seconds,omitempty"`
}

type AnalysisStatistics struct {
	TotalAnalyses      int     `json:"total_analyses"`
	Pending            int     `json:"pending"`
	Processing         int     `json:"processing"`
	Completed          int     `json:"completed"`
	Failed             int     `json:"failed"`
	AvgProcessingSecs  float64 `json:"avg_processing_seconds"`
}

// Account roles relevant to alert routing
const (
	RoleDoctor        = "doctor"
	RoleClinicManager = "clinic_manager"
	RolePatient       = "patient"
)

type Account struct {
	ID       uuid.UUID  `json:"id"`
	ClinicID *uuid.UUID `json:"clinic_id,omitempty"`
	Role     string     `json:"role"`
	Email    string     `json:"email"`
	FullName string     `json:"full_name"`
}

type Notification struct {
	ID        uuid.UUID              `json:"id"`
	AccountID uuid.UUID              `json:"account_id"`
	Type      string                 `json:"type"`
	Title     string                 `json:"title"`
	Body      string                 `json:"body"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Read      bool                   `json:"read"`
	CreatedAt time.Time              `json:"created_at"`
}

// API requests
type CreateAnalysisRequest struct {
	ImageID      uuid.UUID `json:"image_id"`
	ModelVersion string    `json:"model_version"`
	Status       string    `json:"status,omitempty"`
}

type CreateResultRequest struct {
	DiseaseType     string  `json:"disease_type"`
	RiskLevel       string  `json:"risk_level"`
	ConfidenceScore float64 `json:"confidence_score"`
}

type CompleteAnalysisRequest struct {
	ProcessingSeconds int `json:"processing_seconds"`
}

type CreatePatientRequest struct {
	ClinicID    uuid.UUID  `json:"clinic_id"`
	FullName    string     `json:"full_name"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
}

type CreateImageRequest struct {
	PatientID uuid.UUID `json:"patient_id"`
	ImageType string    `json:"image_type"`
	FileURL   string    `json:"file_url"`
}
