package dto

import (
	"encoding/json"
	"fmt"
	"net/url"

	apierrors "github.com/biorbit/biorbit/internal/api/shared/errors"
	"github.com/biorbit/biorbit/internal/domain"
	"github.com/biorbit/biorbit/internal/webhook"
)

// DefaultRetryMaxAttempts is applied when a webhook client omits the ceiling
const DefaultRetryMaxAttempts = 5

// RegisterAreaRequest represents the request body for registering a protected area
type RegisterAreaRequest struct {
	Payment     string          `json:"payment"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Photo       string          `json:"photo"`
	GeoJSON     json.RawMessage `json:"geo_json,omitempty"`
	Country     string          `json:"country"`
}

// Validate validates the request body
func (r *RegisterAreaRequest) Validate() error {
	if r.Name == "" {
		return apierrors.NewValidationError("name is required")
	}
	if r.Payment == "" {
		return apierrors.NewValidationError("payment is required")
	}
	if _, err := domain.NewAmount(r.Payment); err != nil {
		return apierrors.NewValidationError(fmt.Sprintf("invalid payment: %s", r.Payment))
	}
	return nil
}

// RecordMonitoringRequest represents the request body for recording monitoring data
type RecordMonitoringRequest struct {
	Name                  string   `json:"name"`
	LastDetectionDate     string   `json:"last_detection_date"`
	TotalExtension        string   `json:"total_extension"`
	DetectionDates        []string `json:"detection_dates"`
	ForestCoverExtensions []string `json:"forest_cover_extensions"`
}

// Validate validates the request body
func (r *RecordMonitoringRequest) Validate() error {
	if r.Name == "" {
		return apierrors.NewValidationError("name is required")
	}
	if r.LastDetectionDate == "" {
		return apierrors.NewValidationError("last_detection_date is required")
	}
	if len(r.DetectionDates) != len(r.ForestCoverExtensions) {
		return apierrors.NewValidationError("detection_dates and forest_cover_extensions must have the same length")
	}
	return nil
}

// MintImageRequest represents the request body for minting a satellite image
type MintImageRequest struct {
	AreaID   *uint64 `json:"area_id"`
	AreaName string  `json:"area_name"`
	URI      string  `json:"uri"`
}

// Validate validates the request body
func (r *MintImageRequest) Validate() error {
	if r.AreaID == nil {
		return apierrors.NewValidationError("area_id is required")
	}
	if r.AreaName == "" {
		return apierrors.NewValidationError("area_name is required")
	}
	if r.URI == "" {
		return apierrors.NewValidationError("uri is required")
	}
	return nil
}

// BuyImageRequest represents the request body for buying a satellite image
type BuyImageRequest struct {
	Payment string `json:"payment"`
}

// Validate validates the request body
func (r *BuyImageRequest) Validate() error {
	if r.Payment == "" {
		return apierrors.NewValidationError("payment is required")
	}
	if _, err := domain.NewAmount(r.Payment); err != nil {
		return apierrors.NewValidationError(fmt.Sprintf("invalid payment: %s", r.Payment))
	}
	return nil
}

// SetParameterRequest represents the request body for updating a global parameter
type SetParameterRequest struct {
	Value string `json:"value"`
}

// Validate validates the request body
func (r *SetParameterRequest) Validate() error {
	if r.Value == "" {
		return apierrors.NewValidationError("value is required")
	}
	if _, err := domain.NewAmount(r.Value); err != nil {
		return apierrors.NewValidationError(fmt.Sprintf("invalid value: %s", r.Value))
	}
	return nil
}

// RoleRequest represents the request body for granting or revoking a role
type RoleRequest struct {
	Role    string `json:"role"`
	Address string `json:"address"`
}

// Validate validates the request body
func (r *RoleRequest) Validate() error {
	if r.Role == "" {
		return apierrors.NewValidationError("role is required")
	}
	if !domain.IsValidRole(domain.Role(r.Role)) {
		return apierrors.NewValidationError(fmt.Sprintf("unknown role: %s", r.Role))
	}
	if _, err := domain.ParseAddress(r.Address); err != nil {
		return apierrors.NewValidationError(fmt.Sprintf("invalid address: %s", r.Address))
	}
	return nil
}

// ApproveTokenRequest represents the request body for approving a token spender
type ApproveTokenRequest struct {
	Approved string `json:"approved"`
}

// Validate validates the request body
func (r *ApproveTokenRequest) Validate() error {
	if _, err := domain.ParseAddress(r.Approved); err != nil {
		return apierrors.NewValidationError(fmt.Sprintf("invalid address: %s", r.Approved))
	}
	return nil
}

// SetOperatorApprovalRequest represents the request body for a blanket operator approval
type SetOperatorApprovalRequest struct {
	Operator string `json:"operator"`
	Approved bool   `json:"approved"`
}

// Validate validates the request body
func (r *SetOperatorApprovalRequest) Validate() error {
	if _, err := domain.ParseAddress(r.Operator); err != nil {
		return apierrors.NewValidationError(fmt.Sprintf("invalid operator: %s", r.Operator))
	}
	return nil
}

// CreateWebhookClientRequest represents the request body for creating a webhook client
type CreateWebhookClientRequest struct {
	WebhookURL       string   `json:"webhook_url"`
	EventFilters     []string `json:"event_filters"`
	RetryMaxAttempts *int     `json:"retry_max_attempts,omitempty"`
}

// Validate validates the request body
func (r *CreateWebhookClientRequest) Validate(debug bool) error {
	if r.WebhookURL == "" {
		return apierrors.NewValidationError("webhook_url is required")
	}

	u, err := url.Parse(r.WebhookURL)
	if err != nil || u.Host == "" {
		return apierrors.NewValidationError("webhook_url must be a valid URL")
	}
	if debug {
		if u.Scheme != "http" && u.Scheme != "https" {
			return apierrors.NewValidationError("webhook_url must be an HTTP(S) URL")
		}
	} else if u.Scheme != "https" {
		return apierrors.NewValidationError("webhook_url must be an HTTPS URL")
	}

	if len(r.EventFilters) == 0 {
		return apierrors.NewValidationError("event_filters is required")
	}
	for _, filter := range r.EventFilters {
		if filter == webhook.EventTypeWildcard {
			continue
		}
		if !domain.IsValidEventType(domain.EventType(filter)) {
			return apierrors.NewValidationError(fmt.Sprintf("unknown event type: %s", filter))
		}
	}

	if r.RetryMaxAttempts != nil && *r.RetryMaxAttempts < 1 {
		return apierrors.NewValidationError("retry_max_attempts must be at least 1")
	}

	return nil
}
