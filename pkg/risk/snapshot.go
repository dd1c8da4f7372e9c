package risk

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/retinacare/platform/pkg/common/models"
)

// DefaultHighRiskCap bounds the high_risk_patients list in a clinic
// snapshot. The cap is a presentation limit, not a correctness
// constraint: TotalHighRiskCount always carries the exact figure and
// consumers needing the full set must page through the uncapped
// patient queries.
const DefaultHighRiskCap = 10

type patientWorst struct {
	patientID      uuid.UUID
	worstOrdinal   int
	worstLevel     Level
	diseaseType    string
	lastAssessedAt time.Time
}

// BuildClinicSnapshot aggregates a flattened list of assessments into
// a point-in-time clinic snapshot in a single pass. The caller is
// expected to assemble the list with one batched fetch; this function
// performs no I/O and is deterministic for a fixed input set.
//
// Any assessment carrying a risk level outside the enum fails the
// whole call; records are never silently dropped from the aggregate.
func BuildClinicSnapshot(clinicID uuid.UUID, assessments []models.RiskAssessment, limit int) (models.ClinicRiskSnapshot, error) {
	if limit <= 0 {
		limit = DefaultHighRiskCap
	}

	counts := make(map[string]int, 4)
	percentages := make(map[string]float64, 4)
	for _, level := range Levels() {
		counts[string(level)] = 0
		percentages[string(level)] = 0
	}

	var (
		confidenceSum float64
		minConfidence float64
		maxConfidence float64
	)
	worstByPatient := make(map[uuid.UUID]*patientWorst)

	for i, a := range assessments {
		level, err := ParseLevel(a.RiskLevel)
		if err != nil {
			return models.ClinicRiskSnapshot{}, err
		}
		counts[string(level)]++

		if i == 0 {
			minConfidence = a.ConfidenceScore
			maxConfidence = a.ConfidenceScore
		} else {
			minConfidence = math.Min(minConfidence, a.ConfidenceScore)
			maxConfidence = math.Max(maxConfidence, a.ConfidenceScore)
		}
		confidenceSum += a.ConfidenceScore

		worst, ok := worstByPatient[a.PatientID]
		if !ok {
			worst = &patientWorst{patientID: a.PatientID}
			worstByPatient[a.PatientID] = worst
		}
		if ordinal := level.Ordinal(); ordinal > worst.worstOrdinal {
			worst.worstOrdinal = ordinal
			worst.worstLevel = level
			worst.diseaseType = a.DiseaseType
		}
		if a.AssessedAt.After(worst.lastAssessedAt) {
			worst.lastAssessedAt = a.AssessedAt
		}
	}

	total := len(assessments)
	if total > 0 {
		for level, count := range counts {
			percentages[level] = round2(float64(count) / float64(total) * 100)
		}
	}

	highRisk := make([]*patientWorst, 0)
	for _, worst := range worstByPatient {
		if worst.worstOrdinal >= High.Ordinal() {
			highRisk = append(highRisk, worst)
		}
	}
	sort.Slice(highRisk, func(i, j int) bool {
		if highRisk[i].worstOrdinal != highRisk[j].worstOrdinal {
			return highRisk[i].worstOrdinal > highRisk[j].worstOrdinal
		}
		if !highRisk[i].lastAssessedAt.Equal(highRisk[j].lastAssessedAt) {
			return highRisk[i].lastAssessedAt.After(highRisk[j].lastAssessedAt)
		}
		return strings.Compare(highRisk[i].patientID.String(), highRisk[j].patientID.String()) < 0
	})

	totalHighRisk := len(highRisk)
	if len(highRisk) > limit {
		highRisk = highRisk[:limit]
	}

	patients := make([]models.HighRiskPatient, 0, len(highRisk))
	for _, worst := range highRisk {
		patients = append(patients, models.HighRiskPatient{
			PatientID:      worst.patientID,
			WorstRiskLevel: string(worst.worstLevel),
			DiseaseType:    worst.diseaseType,
			LastAssessedAt: worst.lastAssessedAt,
		})
	}

	snapshot := models.ClinicRiskSnapshot{
		ClinicID:           clinicID,
		Counts:             counts,
		Percentages:        percentages,
		Total:              total,
		HighRiskPatients:   patients,
		TotalHighRiskCount: totalHighRisk,
	}
	if total > 0 {
		snapshot.AverageConfidence = round2(confidenceSum / float64(total))
		snapshot.MinConfidence = round2(minConfidence)
		snapshot.MaxConfidence = round2(maxConfidence)
	}
	return snapshot, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
