package risk

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/retinacare/platform/pkg/common/models"
)

func assessment(patientID uuid.UUID, level string, at time.Time) models.RiskAssessment {
	return models.RiskAssessment{
		ID:              uuid.New(),
		AnalysisID:      uuid.New(),
		PatientID:       patientID,
		DiseaseType:     "diabetic_retinopathy",
		RiskLevel:       level,
		ConfidenceScore: 90,
		AssessedAt:      at,
	}
}

func day(n int) time.Time {
	return time.Date(2026, time.March, n, 12, 0, 0, 0, time.UTC)
}

func TestClassifyTrendBoundaries(t *testing.T) {
	patient := uuid.New()

	trend, err := ClassifyTrend(nil)
	if err != nil || trend != TrendNoData {
		t.Fatalf("empty timeline: got (%q, %v), want no_data", trend, err)
	}

	single := []models.RiskAssessment{assessment(patient, "critical", day(1))}
	trend, err = ClassifyTrend(single)
	if err != nil || trend != TrendStable {
		t.Fatalf("single record: got (%q, %v), want stable", trend, err)
	}
}

func TestClassifyTrendUsesFirstAndLastOnly(t *testing.T) {
	patient := uuid.New()
	cases := []struct {
		name   string
		levels []string
		want   string
	}{
		{"worsening", []string{"low", "medium", "high"}, TrendWorsening},
		{"improving", []string{"high", "low"}, TrendImproving},
		{"stable equal endpoints", []string{"medium", "critical", "medium"}, TrendStable},
		{"intermediate dip ignored", []string{"low", "critical", "low", "high"}, TrendWorsening},
	}
	for _, tc := range cases {
		timeline := make([]models.RiskAssessment, 0, len(tc.levels))
		for i, level := range tc.levels {
			timeline = append(timeline, assessment(patient, level, day(i+1)))
		}
		trend, err := ClassifyTrend(timeline)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if trend != tc.want {
			t.Fatalf("%s: trend = %q, want %q", tc.name, trend, tc.want)
		}
	}
}

func TestClassifyTrendRejectsUnknownLevel(t *testing.T) {
	patient := uuid.New()
	timeline := []models.RiskAssessment{
		assessment(patient, "low", day(1)),
		assessment(patient, "extreme", day(2)),
	}
	if _, err := ClassifyTrend(timeline); err == nil {
		t.Fatal("expected error for unknown risk level")
	}
}

func TestDetectSuddenSpikes(t *testing.T) {
	patient := uuid.New()

	// low→medium must not fire; medium→high must.
	timeline := []models.RiskAssessment{
		assessment(patient, "low", day(1)),
		assessment(patient, "medium", day(2)),
		assessment(patient, "high", day(3)),
	}
	spikes, err := DetectSuddenSpikes(timeline)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(spikes) != 1 {
		t.Fatalf("got %d spikes, want 1", len(spikes))
	}
	if spikes[0].FromRisk != "medium" || spikes[0].ToRisk != "high" {
		t.Fatalf("spike = %s→%s, want medium→high", spikes[0].FromRisk, spikes[0].ToRisk)
	}
	if spikes[0].Date != "2026-03-03" {
		t.Fatalf("spike date = %q, want 2026-03-03", spikes[0].Date)
	}
}

func TestDetectSuddenSpikesNeverFiresOnRecovery(t *testing.T) {
	patient := uuid.New()
	timeline := []models.RiskAssessment{
		assessment(patient, "high", day(1)),
		assessment(patient, "low", day(2)),
	}
	spikes, err := DetectSuddenSpikes(timeline)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(spikes) != 0 {
		t.Fatalf("got %d spikes, want 0", len(spikes))
	}
}

func TestDetectSuddenSpikesReportsEveryJump(t *testing.T) {
	patient := uuid.New()
	timeline := []models.RiskAssessment{
		assessment(patient, "low", day(1)),
		assessment(patient, "critical", day(2)),
		assessment(patient, "medium", day(3)),
		assessment(patient, "high", day(4)),
	}
	spikes, err := DetectSuddenSpikes(timeline)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(spikes) != 2 {
		t.Fatalf("got %d spikes, want 2", len(spikes))
	}
}

func TestDetectRiskIncrease(t *testing.T) {
	patient := uuid.New()

	timeline := []models.RiskAssessment{
		assessment(patient, "low", day(1)),
		assessment(patient, "medium", day(2)),
		assessment(patient, "critical", day(3)),
	}
	increase, err := DetectRiskIncrease(timeline)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if increase == nil {
		t.Fatal("expected a risk increase")
	}
	if increase.FromRisk != "low" || increase.ToRisk != "critical" || increase.IncreaseMagnitude != 3 {
		t.Fatalf("increase = %+v, want low→critical magnitude 3", increase)
	}

	recovered := []models.RiskAssessment{
		assessment(patient, "high", day(1)),
		assessment(patient, "low", day(2)),
	}
	increase, err = DetectRiskIncrease(recovered)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if increase != nil {
		t.Fatalf("recovery reported as increase: %+v", increase)
	}

	if increase, _ := DetectRiskIncrease(timeline[:1]); increase != nil {
		t.Fatal("single-record timeline must not report an increase")
	}
}

func TestSortTimelineTieBreaksByAnalysisID(t *testing.T) {
	patient := uuid.New()
	at := day(5)

	a := assessment(patient, "low", at)
	b := assessment(patient, "high", at)
	if a.AnalysisID.String() > b.AnalysisID.String() {
		a, b = b, a
	}

	timeline := []models.RiskAssessment{b, a}
	SortTimeline(timeline)
	if timeline[0].AnalysisID != a.AnalysisID {
		t.Fatal("co-timestamped records must order by analysis ID ascending")
	}
}
