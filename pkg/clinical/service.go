package clinical

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/retinacare/platform/pkg/common/models"
	"github.com/retinacare/platform/pkg/risk"
)

// AssessmentSource supplies flattened risk assessment lists. The
// production implementation assembles each list with one batched,
// joined query so the aggregation itself stays free of I/O.
type AssessmentSource interface {
	ListByClinic(ctx context.Context, clinicID uuid.UUID, start, end time.Time) ([]models.RiskAssessment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, start, end time.Time) ([]models.RiskAssessment, error)
}

// Service derives clinic snapshots, patient trend summaries and
// abnormal-trend reports. All outputs are recomputed from the source
// on every call; nothing is cached or persisted.
type Service struct {
	assessments AssessmentSource

	highRiskCap       int
	abnormalCap       int
	defaultWindowDays int
}

func NewService(assessments AssessmentSource, highRiskCap, abnormalCap, defaultWindowDays int) (*Service, error) {
	if assessments == nil {
		return nil, &risk.ConfigurationError{Component: "clinical.Service", Missing: "AssessmentSource"}
	}
	if highRiskCap <= 0 {
		highRiskCap = risk.DefaultHighRiskCap
	}
	if abnormalCap <= 0 {
		abnormalCap = risk.DefaultAbnormalCap
	}
	if defaultWindowDays <= 0 {
		defaultWindowDays = 90
	}
	return &Service{
		assessments:       assessments,
		highRiskCap:       highRiskCap,
		abnormalCap:       abnormalCap,
		defaultWindowDays: defaultWindowDays,
	}, nil
}

// ClinicSnapshot aggregates every assessment currently reachable from
// the clinic's patients into bucketed counts, percentages and the
// bounded high-risk patient list.
func (s *Service) ClinicSnapshot(ctx context.Context, clinicID uuid.UUID) (models.ClinicRiskSnapshot, error) {
	assessments, err := s.assessments.ListByClinic(ctx, clinicID, time.Time{}, time.Time{})
	if err != nil {
		return models.ClinicRiskSnapshot{}, err
	}
	snapshot, err := risk.BuildClinicSnapshot(clinicID, assessments, s.highRiskCap)
	if err != nil {
		return models.ClinicRiskSnapshot{}, err
	}
	snapshot.GeneratedAt = time.Now().UTC()
	return snapshot, nil
}

// PatientTrend builds the trend summary over the trailing window of
// the given number of days (service default when days <= 0).
func (s *Service) PatientTrend(ctx context.Context, patientID uuid.UUID, days int) (models.PatientTrendSummary, error) {
	if days <= 0 {
		days = s.defaultWindowDays
	}
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)
	return s.patientTrend(ctx, patientID, start, end, days)
}

// PatientTrendRange builds the trend summary over an explicit window.
func (s *Service) PatientTrendRange(ctx context.Context, patientID uuid.UUID, start, end time.Time) (models.PatientTrendSummary, error) {
	if err := risk.ValidateWindow(start, end); err != nil {
		return models.PatientTrendSummary{}, err
	}
	days := 0
	if !start.IsZero() && !end.IsZero() {
		days = daysInclusive(start, end)
	}
	return s.patientTrend(ctx, patientID, start, end, days)
}

// daysInclusive counts calendar days covered by the window, both
// endpoints included: May 1 through May 10 is 10 days.
func daysInclusive(start, end time.Time) int {
	s := start.UTC().Truncate(24 * time.Hour)
	e := end.UTC().Truncate(24 * time.Hour)
	return int(e.Sub(s).Hours()/24) + 1
}

func (s *Service) patientTrend(ctx context.Context, patientID uuid.UUID, start, end time.Time, days int) (models.PatientTrendSummary, error) {
	timeline, err := s.assessments.ListByPatient(ctx, patientID, start, end)
	if err != nil {
		return models.PatientTrendSummary{}, err
	}
	return risk.BuildPatientSummary(patientID, days, timeline)
}

// AbnormalTrends runs the trend detector across every patient in the
// clinic over the trailing window and reports risk increases and
// sudden spikes, capped with exact totals.
func (s *Service) AbnormalTrends(ctx context.Context, clinicID uuid.UUID, days int) (models.AbnormalTrendReport, error) {
	if days <= 0 {
		days = s.defaultWindowDays
	}
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	assessments, err := s.assessments.ListByClinic(ctx, clinicID, start, end)
	if err != nil {
		return models.AbnormalTrendReport{}, err
	}

	return risk.BuildAbnormalTrendReport(clinicID, groupByPatient(assessments), s.abnormalCap)
}

// groupByPatient splits a flattened clinic-wide list into per-patient
// timelines with a deterministic patient order.
func groupByPatient(assessments []models.RiskAssessment) []risk.PatientTimeline {
	byPatient := make(map[uuid.UUID][]models.RiskAssessment)
	for _, a := range assessments {
		byPatient[a.PatientID] = append(byPatient[a.PatientID], a)
	}

	timelines := make([]risk.PatientTimeline, 0, len(byPatient))
	for patientID, timeline := range byPatient {
		timelines = append(timelines, risk.PatientTimeline{PatientID: patientID, Assessments: timeline})
	}
	sort.Slice(timelines, func(i, j int) bool {
		return strings.Compare(timelines[i].PatientID.String(), timelines[j].PatientID.String()) < 0
	})
	return timelines
}
