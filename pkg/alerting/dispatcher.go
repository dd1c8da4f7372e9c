package alerting

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/retinacare/platform/pkg/common/logger"
	"github.com/retinacare/platform/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NotificationDispatcher delivers one alert to one recipient over one
// channel. Implementations must be safe for concurrent use.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, channel string, recipient models.Account, alert Alert) error
}

// Alert is the rendered payload handed to dispatchers.
type Alert struct {
	AssessmentID uuid.UUID `json:"assessment_id"`
	PatientID    uuid.UUID `json:"patient_id"`
	PatientName  string    `json:"patient_name"`
	DiseaseType  string    `json:"disease_type"`
	RiskLevel    string    `json:"risk_level"`
	Confidence   float64   `json:"confidence"`
	Priority     string    `json:"priority"`
}

func (a Alert) Title() string {
	return fmt.Sprintf("High risk assessment: %s", a.PatientName)
}

func (a Alert) Body() string {
	return fmt.Sprintf("%s screening for %s came back %s (%.1f%% confidence). Review the patient's timeline.",
		a.DiseaseType, a.PatientName, a.RiskLevel, a.Confidence)
}

type notificationModel struct {
	ID        uuid.UUID      `gorm:"primaryKey;column:id"`
	AccountID uuid.UUID      `gorm:"column:account_id;index"`
	Type      string         `gorm:"column:type"`
	Title     string         `gorm:"column:title"`
	Body      string         `gorm:"column:body"`
	Payload   datatypes.JSON `gorm:"column:payload"`
	Read      bool           `gorm:"column:read"`
	CreatedAt time.Time      `gorm:"column:created_at"`
}

func (notificationModel) TableName() string { return "notifications" }

// InAppDispatcher persists in-app notifications; email and SMS are
// handed to a gateway stub that only logs until a real provider is
// wired in.
type InAppDispatcher struct {
	db *gorm.DB
}

func NewInAppDispatcher(db *gorm.DB) *InAppDispatcher {
	return &InAppDispatcher{db: db}
}

func (d *InAppDispatcher) AutoMigrate() error {
	return d.db.AutoMigrate(&notificationModel{})
}

func (d *InAppDispatcher) Dispatch(ctx context.Context, channel string, recipient models.Account, alert Alert) error {
	switch channel {
	case ChannelInApp:
		payload, err := json.Marshal(alert)
		if err != nil {
			return err
		}
		row := &notificationModel{
			ID:        uuid.New(),
			AccountID: recipient.ID,
			Type:      PolicyHighRiskAlert,
			Title:     alert.Title(),
			Body:      alert.Body(),
			Payload:   datatypes.JSON(payload),
			CreatedAt: time.Now().UTC(),
		}
		return d.db.WithContext(ctx).Create(row).Error
	case ChannelEmail, ChannelSMS:
		// Provider integration pending; record the send intent.
		logger.Log.WithFields(map[string]interface{}{
			"channel":       channel,
			"recipient":     recipient.Email,
			"assessment_id": alert.AssessmentID,
			"risk_level":    alert.RiskLevel,
		}).Info("alert queued for external delivery")
		return nil
	default:
		return fmt.Errorf("unknown notification channel %q", channel)
	}
}

func (d *InAppDispatcher) ListForAccount(ctx context.Context, accountID uuid.UUID) ([]models.Notification, error) {
	var rows []notificationModel
	if err := d.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	notifications := make([]models.Notification, 0, len(rows))
	for i := range rows {
		notifications = append(notifications, toNotification(&rows[i]))
	}
	return notifications, nil
}

// toNotification tolerates a corrupt payload column: the notification
// is still returned, the payload is dropped, and the corruption is
// logged.
func toNotification(row *notificationModel) models.Notification {
	n := models.Notification{
		ID:        row.ID,
		AccountID: row.AccountID,
		Type:      row.Type,
		Title:     row.Title,
		Body:      row.Body,
		Read:      row.Read,
		CreatedAt: row.CreatedAt,
	}
	if len(row.Payload) > 0 {
		if err := json.Unmarshal(row.Payload, &n.Payload); err != nil {
			logger.Log.WithError(err).WithField("notification_id", row.ID).
				Warn("corrupt notification payload")
		}
	}
	return n
}

// RateLimiter caps how many alerts one recipient receives per day.
// The limit comes from the communication policy governing the alert;
// implementations fall back to their own default when it is not
// positive.
type RateLimiter interface {
	Allow(ctx context.Context, accountID uuid.UUID, limit int) bool
}

// RedisRateLimiter keeps a per-recipient daily counter. Redis being
// unreachable must never suppress a clinical alert, so errors log and
// allow.
type RedisRateLimiter struct {
	client       *redis.Client
	defaultLimit int
}

func NewRedisRateLimiter(client *redis.Client, defaultLimit int) *RedisRateLimiter {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	return &RedisRateLimiter{client: client, defaultLimit: defaultLimit}
}

func (l *RedisRateLimiter) Allow(ctx context.Context, accountID uuid.UUID, limit int) bool {
	if limit <= 0 {
		limit = l.defaultLimit
	}
	key := fmt.Sprintf("alerts:daily:%s:%s", accountID, time.Now().UTC().Format("2006-01-02"))

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		logger.Log.WithError(err).WithField("account_id", accountID).
			Warn("alert rate limiter unavailable, allowing")
		return true
	}
	if count == 1 {
		l.client.Expire(ctx, key, 24*time.Hour)
	}
	if count > int64(limit) {
		logger.Log.WithFields(map[string]interface{}{
			"account_id": accountID,
			"count":      count,
			"limit":      limit,
		}).Warn("daily alert limit reached for recipient")
		return false
	}
	return true
}
