package risk

import (
	"github.com/google/uuid"
	"github.com/retinacare/platform/pkg/common/models"
)

// DefaultAbnormalCap bounds the risk_increases and sudden_spikes lists
// in a clinic-wide abnormal trend report. Exact uncapped totals are
// reported alongside.
const DefaultAbnormalCap = 10

// PatientTimeline pairs a patient with their windowed assessments.
type PatientTimeline struct {
	PatientID   uuid.UUID
	Assessments []models.RiskAssessment
}

// BuildPatientSummary composes the trend classification with
// descriptive statistics over one patient's windowed timeline. The
// input is sorted in place per the timeline ordering invariant.
func BuildPatientSummary(patientID uuid.UUID, periodDays int, timeline []models.RiskAssessment) (models.PatientTrendSummary, error) {
	SortTimeline(timeline)

	summary := models.PatientTrendSummary{
		PatientID:        patientID,
		PeriodDays:       periodDays,
		TotalAssessments: len(timeline),
		RiskDistribution: make(map[string]int, 4),
		Dates:            make([]string, 0, len(timeline)),
		RiskLevels:       make([]string, 0, len(timeline)),
		ConfidenceScores: make([]float64, 0, len(timeline)),
	}
	for _, level := range Levels() {
		summary.RiskDistribution[string(level)] = 0
	}

	var confidenceSum float64
	for _, a := range timeline {
		level, err := ParseLevel(a.RiskLevel)
		if err != nil {
			return models.PatientTrendSummary{}, err
		}
		summary.RiskDistribution[string(level)]++
		summary.Dates = append(summary.Dates, a.AssessedAt.Format("2006-01-02"))
		summary.RiskLevels = append(summary.RiskLevels, string(level))
		summary.ConfidenceScores = append(summary.ConfidenceScores, a.ConfidenceScore)
		confidenceSum += a.ConfidenceScore
	}
	if len(timeline) > 0 {
		summary.AverageConfidence = round2(confidenceSum / float64(len(timeline)))
	}

	trend, err := ClassifyTrend(timeline)
	if err != nil {
		return models.PatientTrendSummary{}, err
	}
	summary.Trend = trend

	return summary, nil
}

// BuildAbnormalTrendReport runs the trend detector across every
// patient timeline in a clinic and collects global risk increases and
// pairwise sudden spikes. Each list is independently capped for
// response-size control; TotalAbnormalCases counts every patient with
// at least one abnormal signal regardless of the caps.
func BuildAbnormalTrendReport(clinicID uuid.UUID, timelines []PatientTimeline, limit int) (models.AbnormalTrendReport, error) {
	if limit <= 0 {
		limit = DefaultAbnormalCap
	}

	report := models.AbnormalTrendReport{
		ClinicID:      clinicID,
		RiskIncreases: make([]models.RiskIncrease, 0),
		SuddenSpikes:  make([]models.SuddenSpike, 0),
	}

	for _, tl := range timelines {
		SortTimeline(tl.Assessments)

		increase, err := DetectRiskIncrease(tl.Assessments)
		if err != nil {
			return models.AbnormalTrendReport{}, err
		}
		spikes, err := DetectSuddenSpikes(tl.Assessments)
		if err != nil {
			return models.AbnormalTrendReport{}, err
		}

		if increase != nil {
			report.TotalRiskIncreases++
			if len(report.RiskIncreases) < limit {
				report.RiskIncreases = append(report.RiskIncreases, *increase)
			}
		}
		for _, spike := range spikes {
			report.TotalSuddenSpikes++
			if len(report.SuddenSpikes) < limit {
				report.SuddenSpikes = append(report.SuddenSpikes, spike)
			}
		}
		if increase != nil || len(spikes) > 0 {
			report.TotalAbnormalCases++
		}
	}

	return report, nil
}
