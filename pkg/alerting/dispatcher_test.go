package alerting

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

func TestToNotificationRoundTripsPayload(t *testing.T) {
	alert := Alert{
		AssessmentID: uuid.New(),
		PatientID:    uuid.New(),
		PatientName:  "Aiko Tanaka",
		RiskLevel:    "critical",
		Priority:     PriorityUrgent,
	}
	payload, err := json.Marshal(alert)
	if err != nil {
		t.Fatal(err)
	}

	row := &notificationModel{
		ID:        uuid.New(),
		AccountID: uuid.New(),
		Type:      PolicyHighRiskAlert,
		Title:     alert.Title(),
		Body:      alert.Body(),
		Payload:   datatypes.JSON(payload),
		CreatedAt: time.Now().UTC(),
	}

	n := toNotification(row)
	if n.ID != row.ID || n.AccountID != row.AccountID {
		t.Fatalf("identity fields lost: %+v", n)
	}
	if n.Payload["risk_level"] != "critical" {
		t.Fatalf("payload = %v, want risk_level critical", n.Payload)
	}
}

func TestToNotificationToleratesCorruptPayload(t *testing.T) {
	row := &notificationModel{
		ID:        uuid.New(),
		AccountID: uuid.New(),
		Type:      PolicyHighRiskAlert,
		Title:     "High risk assessment",
		Payload:   datatypes.JSON([]byte("{not valid json")),
		CreatedAt: time.Now().UTC(),
	}

	n := toNotification(row)
	if n.ID != row.ID || n.Title != row.Title {
		t.Fatalf("notification fields lost on corrupt payload: %+v", n)
	}
	if n.Payload != nil {
		t.Fatalf("corrupt payload must be dropped, got %v", n.Payload)
	}
}
