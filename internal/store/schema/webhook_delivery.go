package schema

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookDeliveryStatus is the status of a webhook delivery
type WebhookDeliveryStatus string

const (
	// WebhookDeliveryStatusPending marks a delivery still being attempted
	WebhookDeliveryStatusPending WebhookDeliveryStatus = "pending"
	// WebhookDeliveryStatusSuccess marks a delivery acknowledged by the client
	WebhookDeliveryStatusSuccess WebhookDeliveryStatus = "success"
	// WebhookDeliveryStatusFailed marks a delivery abandoned after retries
	WebhookDeliveryStatusFailed WebhookDeliveryStatus = "failed"
)

// WebhookDelivery represents the webhook_deliveries table - audit log of
// event delivery attempts per client.
type WebhookDelivery struct {
	// ID is an auto-incrementing sequence number
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// ClientID is the webhook client this delivery is for
	ClientID string `gorm:"column:client_id;not null;type:varchar(36);index"`
	// EventID is the delivered registry event's ULID
	EventID string `gorm:"column:event_id;not null;type:varchar(26);index"`
	// EventType is the delivered event type
	EventType string `gorm:"column:event_type;not null;type:text"`
	// Payload is the signed webhook payload as JSON
	Payload datatypes.JSON `gorm:"column:payload;not null;type:jsonb"`
	// DeliveryStatus is pending, success or failed
	DeliveryStatus WebhookDeliveryStatus `gorm:"column:delivery_status;not null;default:pending"`
	// Attempts is the number of delivery attempts made
	Attempts int `gorm:"column:attempts;not null;default:0"`
	// LastAttemptAt is the timestamp of the most recent attempt
	LastAttemptAt *time.Time `gorm:"column:last_attempt_at;type:timestamptz"`
	// ResponseStatus is the HTTP status code from the endpoint
	ResponseStatus *int `gorm:"column:response_status"`
	// ErrorMessage contains error details if delivery failed
	ErrorMessage string `gorm:"column:error_message;type:text"`
	// CreatedAt is the record creation timestamp
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the last modification timestamp
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the WebhookDelivery model
func (WebhookDelivery) TableName() string {
	return "webhook_deliveries"
}
