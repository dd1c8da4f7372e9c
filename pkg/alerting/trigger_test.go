package alerting

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/retinacare/platform/pkg/common/models"
)

type fakeDirectory struct {
	patient models.Patient
	staff   []models.Account
	err     error
}

func (f *fakeDirectory) GetPatient(ctx context.Context, id uuid.UUID) (models.Patient, error) {
	if f.err != nil {
		return models.Patient{}, f.err
	}
	return f.patient, nil
}

func (f *fakeDirectory) ListClinicStaff(ctx context.Context, clinicID uuid.UUID) ([]models.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.staff, nil
}

type delivery struct {
	channel   string
	recipient uuid.UUID
}

type recordingDispatcher struct {
	mu         sync.Mutex
	deliveries []delivery
	failFor    uuid.UUID
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, channel string, recipient models.Account, alert Alert) error {
	if recipient.ID == d.failFor {
		return errors.New("smtp timeout")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deliveries = append(d.deliveries, delivery{channel: channel, recipient: recipient.ID})
	return nil
}

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(ctx context.Context, accountID uuid.UUID, limit int) bool { return false }

type recordingLimiter struct {
	limits []int
}

func (l *recordingLimiter) Allow(ctx context.Context, accountID uuid.UUID, limit int) bool {
	l.limits = append(l.limits, limit)
	return true
}

func staffAccount(clinicID uuid.UUID, role, email string) models.Account {
	return models.Account{ID: uuid.New(), ClinicID: &clinicID, Role: role, Email: email}
}

func highRiskAssessment(patientID uuid.UUID, level string) models.RiskAssessment {
	return models.RiskAssessment{
		ID:              uuid.New(),
		AnalysisID:      uuid.New(),
		PatientID:       patientID,
		DiseaseType:     "diabetic_retinopathy",
		RiskLevel:       level,
		ConfidenceScore: 93.5,
		AssessedAt:      time.Now().UTC(),
	}
}

func TestShouldAlert(t *testing.T) {
	cases := []struct {
		level string
		want  bool
	}{
		{"low", false},
		{"medium", false},
		{"high", true},
		{"critical", true},
		{"HIGH", true},
		{"severe", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := ShouldAlert(tc.level); got != tc.want {
			t.Errorf("ShouldAlert(%q) = %v, want %v", tc.level, got, tc.want)
		}
	}
}

func TestTriggerNotifiesClinicStaff(t *testing.T) {
	clinic := uuid.New()
	patient := models.Patient{ID: uuid.New(), ClinicID: clinic, FullName: "Aiko Tanaka"}
	doctor := staffAccount(clinic, "doctor", "doc@clinic.test")
	manager := staffAccount(clinic, "clinic_manager", "mgr@clinic.test")
	receptionist := staffAccount(clinic, "receptionist", "desk@clinic.test")

	dispatcher := &recordingDispatcher{}
	trigger, err := NewTrigger(
		&fakeDirectory{patient: patient, staff: []models.Account{doctor, manager, receptionist}},
		dispatcher, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	trigger.HandleAssessment(context.Background(), highRiskAssessment(patient.ID, "critical"))

	// doctor and manager on all three channels; receptionist excluded
	if len(dispatcher.deliveries) != 6 {
		t.Fatalf("deliveries = %d, want 6: %+v", len(dispatcher.deliveries), dispatcher.deliveries)
	}
	for _, d := range dispatcher.deliveries {
		if d.recipient == receptionist.ID {
			t.Fatal("receptionist must not receive high-risk alerts")
		}
	}
}

func TestTriggerIgnoresBelowThreshold(t *testing.T) {
	clinic := uuid.New()
	patient := models.Patient{ID: uuid.New(), ClinicID: clinic}
	dispatcher := &recordingDispatcher{}
	trigger, _ := NewTrigger(
		&fakeDirectory{patient: patient, staff: []models.Account{staffAccount(clinic, "doctor", "doc@clinic.test")}},
		dispatcher, nil, nil)

	trigger.HandleAssessment(context.Background(), highRiskAssessment(patient.ID, "medium"))

	if len(dispatcher.deliveries) != 0 {
		t.Fatalf("medium risk must not alert, got %+v", dispatcher.deliveries)
	}
}

func TestTriggerAtMostOncePerRecipient(t *testing.T) {
	clinic := uuid.New()
	patient := models.Patient{ID: uuid.New(), ClinicID: clinic}
	doctor := staffAccount(clinic, "doctor", "doc@clinic.test")

	dispatcher := &recordingDispatcher{}
	trigger, _ := NewTrigger(
		&fakeDirectory{patient: patient, staff: []models.Account{doctor}},
		dispatcher, nil, nil)

	assessment := highRiskAssessment(patient.ID, "high")
	trigger.HandleAssessment(context.Background(), assessment)
	trigger.HandleAssessment(context.Background(), assessment) // redelivery

	if len(dispatcher.deliveries) != 3 {
		t.Fatalf("redelivered assessment must not re-alert, got %d deliveries", len(dispatcher.deliveries))
	}

	// a different assessment for the same patient alerts again
	trigger.HandleAssessment(context.Background(), highRiskAssessment(patient.ID, "high"))
	if len(dispatcher.deliveries) != 6 {
		t.Fatalf("new assessment must alert, got %d deliveries", len(dispatcher.deliveries))
	}
}

func TestTriggerSwallowsDispatchFailures(t *testing.T) {
	clinic := uuid.New()
	patient := models.Patient{ID: uuid.New(), ClinicID: clinic}
	doctor := staffAccount(clinic, "doctor", "doc@clinic.test")
	manager := staffAccount(clinic, "clinic_manager", "mgr@clinic.test")

	dispatcher := &recordingDispatcher{failFor: doctor.ID}
	trigger, _ := NewTrigger(
		&fakeDirectory{patient: patient, staff: []models.Account{doctor, manager}},
		dispatcher, nil, nil)

	trigger.HandleAssessment(context.Background(), highRiskAssessment(patient.ID, "critical"))

	// doctor's channels failed; manager still got all three
	if len(dispatcher.deliveries) != 3 {
		t.Fatalf("deliveries = %d, want 3", len(dispatcher.deliveries))
	}
	for _, d := range dispatcher.deliveries {
		if d.recipient != manager.ID {
			t.Fatalf("unexpected recipient %s", d.recipient)
		}
	}
}

func TestTriggerSkipsWhenDirectoryFails(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	trigger, _ := NewTrigger(&fakeDirectory{err: errors.New("db down")}, dispatcher, nil, nil)

	trigger.HandleAssessment(context.Background(), highRiskAssessment(uuid.New(), "critical"))

	if len(dispatcher.deliveries) != 0 {
		t.Fatal("directory failure must suppress, not crash or deliver")
	}
}

func TestTriggerPassesPolicyFrequencyLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policies.yaml")
	content := `policies:
  - name: high_risk_alert
    recipient_roles: [doctor]
    channels: [in_app]
    priority: urgent
    frequency_limit_per_day: 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	policies, err := LoadPolicies(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clinic := uuid.New()
	patient := models.Patient{ID: uuid.New(), ClinicID: clinic}
	limiter := &recordingLimiter{}
	trigger, err := NewTrigger(
		&fakeDirectory{patient: patient, staff: []models.Account{staffAccount(clinic, "doctor", "doc@clinic.test")}},
		&recordingDispatcher{}, limiter, policies)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	trigger.HandleAssessment(context.Background(), highRiskAssessment(patient.ID, "critical"))

	// the limiter must see the file-overridden limit, not a default
	if len(limiter.limits) != 1 || limiter.limits[0] != 3 {
		t.Fatalf("limiter saw limits %v, want [3]", limiter.limits)
	}
}

func TestTriggerHonorsRateLimiter(t *testing.T) {
	clinic := uuid.New()
	patient := models.Patient{ID: uuid.New(), ClinicID: clinic}
	dispatcher := &recordingDispatcher{}
	trigger, _ := NewTrigger(
		&fakeDirectory{patient: patient, staff: []models.Account{staffAccount(clinic, "doctor", "doc@clinic.test")}},
		dispatcher, denyAllLimiter{}, nil)

	trigger.HandleAssessment(context.Background(), highRiskAssessment(patient.ID, "high"))

	if len(dispatcher.deliveries) != 0 {
		t.Fatal("rate-limited recipient must not be notified")
	}
}
