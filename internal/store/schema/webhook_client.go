package schema

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookClient represents the webhook_clients table - observers registered to
// receive registry events.
type WebhookClient struct {
	// ID is an auto-incrementing sequence number
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// ClientID is a unique identifier for the webhook client (UUID)
	ClientID string `gorm:"column:client_id;not null;unique;type:varchar(36)"`
	// WebhookURL is the HTTPS endpoint where events will be delivered
	WebhookURL string `gorm:"column:webhook_url;not null;type:text"`
	// WebhookSecret is the key used for HMAC-SHA256 signature generation
	WebhookSecret string `gorm:"column:webhook_secret;not null;type:text"`
	// EventFilters is a JSON array of event types this client wants
	// (e.g. ["area.registered", "image.sold"] or ["*"] for all)
	EventFilters datatypes.JSON `gorm:"column:event_filters;not null;type:jsonb"`
	// IsActive indicates whether this client should receive deliveries
	IsActive bool `gorm:"column:is_active;not null;default:true"`
	// RetryMaxAttempts is the delivery attempt ceiling before giving up
	RetryMaxAttempts int `gorm:"column:retry_max_attempts;not null;default:5"`
	// CreatedAt is the registration timestamp
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the last modification timestamp
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the WebhookClient model
func (WebhookClient) TableName() string {
	return "webhook_clients"
}
