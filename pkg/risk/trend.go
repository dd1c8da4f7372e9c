package risk

import (
	"sort"
	"strings"

	"github.com/retinacare/platform/pkg/common/models"
)

// Trend labels for a patient's windowed timeline.
const (
	TrendNoData    = "no_data"
	TrendStable    = "stable"
	TrendImproving = "improving"
	TrendWorsening = "worsening"
)

// SortTimeline orders assessments ascending by assessed_at; records
// sharing a timestamp are tie-broken by analysis ID ascending so that
// every derived result is deterministic for a fixed input set.
func SortTimeline(timeline []models.RiskAssessment) {
	sort.SliceStable(timeline, func(i, j int) bool {
		if !timeline[i].AssessedAt.Equal(timeline[j].AssessedAt) {
			return timeline[i].AssessedAt.Before(timeline[j].AssessedAt)
		}
		return strings.Compare(timeline[i].AnalysisID.String(), timeline[j].AnalysisID.String()) < 0
	})
}

// ClassifyTrend labels the overall direction of an ordered timeline.
//
// The headline label compares only the first and last record;
// intermediate fluctuation is ignored. This mirrors the behavior the
// product has always shipped and is a known simplification, kept
// deliberately: DetectSuddenSpikes carries the pairwise signal.
func ClassifyTrend(timeline []models.RiskAssessment) (string, error) {
	if len(timeline) == 0 {
		return TrendNoData, nil
	}
	if len(timeline) == 1 {
		return TrendStable, nil
	}

	first, err := Ordinal(timeline[0].RiskLevel)
	if err != nil {
		return "", err
	}
	last, err := Ordinal(timeline[len(timeline)-1].RiskLevel)
	if err != nil {
		return "", err
	}

	switch {
	case last > first:
		return TrendWorsening, nil
	case last < first:
		return TrendImproving, nil
	default:
		return TrendStable, nil
	}
}

// DetectSuddenSpikes scans every adjacent pair in the ordered timeline
// and reports each jump from low/medium directly to high/critical.
// All spikes are reported, not just the first. The reverse transition
// never fires.
func DetectSuddenSpikes(timeline []models.RiskAssessment) ([]models.SuddenSpike, error) {
	var spikes []models.SuddenSpike
	for i := 1; i < len(timeline); i++ {
		prev, curr := timeline[i-1], timeline[i]

		prevLevel, err := ParseLevel(prev.RiskLevel)
		if err != nil {
			return nil, err
		}
		currLevel, err := ParseLevel(curr.RiskLevel)
		if err != nil {
			return nil, err
		}

		if prevLevel.Ordinal() <= Medium.Ordinal() && currLevel.Ordinal() >= High.Ordinal() {
			spikes = append(spikes, models.SuddenSpike{
				PatientID:  curr.PatientID,
				Date:       curr.AssessedAt.Format("2006-01-02"),
				FromRisk:   string(prevLevel),
				ToRisk:     string(currLevel),
				Confidence: curr.ConfidenceScore,
			})
		}
	}
	return spikes, nil
}

// DetectRiskIncrease compares the first and last assessment of the
// ordered timeline and reports the global increase, if any. This is a
// coarser signal than the pairwise spike scan and the two are kept
// intentionally separate.
func DetectRiskIncrease(timeline []models.RiskAssessment) (*models.RiskIncrease, error) {
	if len(timeline) < 2 {
		return nil, nil
	}

	first := timeline[0]
	last := timeline[len(timeline)-1]

	firstLevel, err := ParseLevel(first.RiskLevel)
	if err != nil {
		return nil, err
	}
	lastLevel, err := ParseLevel(last.RiskLevel)
	if err != nil {
		return nil, err
	}

	magnitude := lastLevel.Ordinal() - firstLevel.Ordinal()
	if magnitude <= 0 {
		return nil, nil
	}

	return &models.RiskIncrease{
		PatientID:         last.PatientID,
		FromRisk:          string(firstLevel),
		ToRisk:            string(lastLevel),
		IncreaseMagnitude: magnitude,
	}, nil
}
