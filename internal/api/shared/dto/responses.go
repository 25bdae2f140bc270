package dto

import (
	"encoding/json"
	"time"
)

// AreaResponse represents a protected area record
type AreaResponse struct {
	AreaID                uint64          `json:"area_id"`
	Name                  string          `json:"name"`
	Description           string          `json:"description"`
	Photo                 string          `json:"photo"`
	GeoJSON               json.RawMessage `json:"geo_json,omitempty"`
	Country               string          `json:"country"`
	LastDetectionDate     *string         `json:"last_detection_date,omitempty"`
	TotalExtension        *string         `json:"total_extension,omitempty"`
	DetectionDates        []string        `json:"detection_dates,omitempty"`
	ForestCoverExtensions []string        `json:"forest_cover_extensions,omitempty"`
	RegisteredBy          string          `json:"registered_by"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// ListAreasResponse represents a paginated area listing
type ListAreasResponse struct {
	Areas []AreaResponse `json:"areas"`
	Total uint64         `json:"total"`
}

// ImageResponse represents a satellite image record
type ImageResponse struct {
	ImageID   uint64    `json:"image_id"`
	AreaID    uint64    `json:"area_id"`
	AreaName  string    `json:"area_name"`
	URI       string    `json:"uri"`
	Price     string    `json:"price"`
	Sold      bool      `json:"sold"`
	Seller    string    `json:"seller"`
	Owner     string    `json:"owner,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListImagesResponse represents a paginated image listing
type ListImagesResponse struct {
	Images []ImageResponse `json:"images"`
	Total  uint64          `json:"total"`
}

// EventResponse represents an event journal row
type EventResponse struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	TxID      string          `json:"tx_id"`
	Digest    string          `json:"digest"`
	Payload   json.RawMessage `json:"payload"`
	EmittedAt time.Time       `json:"emitted_at"`
}

// ListEventsResponse represents a paginated event listing
type ListEventsResponse struct {
	Events []EventResponse `json:"events"`
	Total  uint64          `json:"total"`
}

// BalanceResponse represents an account balance
type BalanceResponse struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

// ParameterResponse represents a global scalar parameter
type ParameterResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// WithdrawResponse represents a completed withdrawal
type WithdrawResponse struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

// RoleResponse represents a role membership check
type RoleResponse struct {
	Role    string `json:"role"`
	Address string `json:"address"`
	Held    bool   `json:"held"`
}

// TokenResponse represents token ownership state
type TokenResponse struct {
	TokenID  uint64 `json:"token_id"`
	Owner    string `json:"owner"`
	Approved string `json:"approved,omitempty"`
	URI      string `json:"uri"`
}

// CreateWebhookClientResponse represents the response for creating a webhook client
type CreateWebhookClientResponse struct {
	ClientID         string    `json:"client_id"`
	WebhookURL       string    `json:"webhook_url"`
	WebhookSecret    string    `json:"webhook_secret"`
	EventFilters     []string  `json:"event_filters"`
	IsActive         bool      `json:"is_active"`
	RetryMaxAttempts int       `json:"retry_max_attempts"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
