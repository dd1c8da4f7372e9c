package alerting

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/retinacare/platform/pkg/common/logger"
	"github.com/retinacare/platform/pkg/common/models"
	"github.com/retinacare/platform/pkg/risk"
)

// PatientDirectory resolves the people behind an assessment: the
// patient and the clinic staff who should hear about it. Satisfied by
// clinical.Repository.
type PatientDirectory interface {
	GetPatient(ctx context.Context, id uuid.UUID) (models.Patient, error)
	ListClinicStaff(ctx context.Context, clinicID uuid.UUID) ([]models.Account, error)
}

// ShouldAlert reports whether a risk level warrants immediate staff
// notification. Unknown levels never alert.
func ShouldAlert(level string) bool {
	ordinal, err := risk.Ordinal(level)
	if err != nil {
		return false
	}
	return ordinal >= risk.High.Ordinal()
}

// Trigger turns high-risk assessments into staff notifications.
//
// Delivery is strictly best-effort: a dispatch or lookup failure is
// logged and swallowed so alerting can never poison the event stream
// or the result write path. Each (assessment, recipient) pair is
// notified at most once per process lifetime.
type Trigger struct {
	directory  PatientDirectory
	dispatcher NotificationDispatcher
	limiter    RateLimiter
	policy     CommunicationPolicy

	mu   sync.Mutex
	sent map[string]struct{}
}

func NewTrigger(directory PatientDirectory, dispatcher NotificationDispatcher, limiter RateLimiter, policies *PolicySet) (*Trigger, error) {
	if directory == nil {
		return nil, &risk.ConfigurationError{Component: "alerting.Trigger", Missing: "PatientDirectory"}
	}
	if dispatcher == nil {
		return nil, &risk.ConfigurationError{Component: "alerting.Trigger", Missing: "NotificationDispatcher"}
	}
	if policies == nil {
		policies = DefaultPolicies()
	}
	policy, ok := policies.Get(PolicyHighRiskAlert)
	if !ok {
		return nil, &risk.ConfigurationError{Component: "alerting.Trigger", Missing: "high_risk_alert policy"}
	}
	return &Trigger{
		directory:  directory,
		dispatcher: dispatcher,
		limiter:    limiter,
		policy:     policy,
		sent:       make(map[string]struct{}),
	}, nil
}

// HandleAssessment evaluates one assessment and notifies clinic staff
// when it crosses the alert threshold. It never returns a delivery
// error; the only work it refuses is nothing at all.
func (t *Trigger) HandleAssessment(ctx context.Context, assessment models.RiskAssessment) {
	if !ShouldAlert(assessment.RiskLevel) {
		return
	}

	log := logger.Log.WithFields(map[string]interface{}{
		"assessment_id": assessment.ID,
		"patient_id":    assessment.PatientID,
		"risk_level":    assessment.RiskLevel,
	})

	patient, err := t.directory.GetPatient(ctx, assessment.PatientID)
	if err != nil {
		log.WithError(err).Error("alert skipped: failed to resolve patient")
		return
	}

	staff, err := t.directory.ListClinicStaff(ctx, patient.ClinicID)
	if err != nil {
		log.WithError(err).Error("alert skipped: failed to resolve clinic staff")
		return
	}
	if len(staff) == 0 {
		log.WithField("clinic_id", patient.ClinicID).Warn("high-risk assessment has no staff to notify")
		return
	}

	alert := Alert{
		AssessmentID: assessment.ID,
		PatientID:    patient.ID,
		PatientName:  patient.FullName,
		DiseaseType:  assessment.DiseaseType,
		RiskLevel:    assessment.RiskLevel,
		Confidence:   assessment.ConfidenceScore,
		Priority:     t.policy.Priority,
	}

	for _, recipient := range staff {
		if !t.wantsRole(recipient.Role) {
			continue
		}
		if !t.markSent(assessment.ID, recipient.ID) {
			continue
		}
		if t.limiter != nil && !t.limiter.Allow(ctx, recipient.ID, t.policy.FrequencyLimitPerDay) {
			continue
		}
		for _, channel := range t.policy.Channels {
			if err := t.dispatcher.Dispatch(ctx, channel, recipient, alert); err != nil {
				log.WithError(err).WithFields(map[string]interface{}{
					"channel":   channel,
					"recipient": recipient.ID,
				}).Error("alert dispatch failed")
			}
		}
	}
}

func (t *Trigger) wantsRole(role string) bool {
	for _, r := range t.policy.RecipientRoles {
		if r == role {
			return true
		}
	}
	return false
}

// markSent records the pair and reports whether it was new.
func (t *Trigger) markSent(assessmentID, accountID uuid.UUID) bool {
	key := assessmentID.String() + ":" + accountID.String()
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, dup := t.sent[key]; dup {
		return false
	}
	t.sent[key] = struct{}{}
	return true
}
