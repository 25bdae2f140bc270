package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gowebpki/jcs"
)

// EventType identifies a registry state change
type EventType string

const (
	EventAreaRegistered      EventType = "area.registered"
	EventMonitoringRecorded  EventType = "area.monitoring_recorded"
	EventImageMinted         EventType = "image.minted"
	EventImageListed         EventType = "image.listed"
	EventImageSold           EventType = "image.sold"
	EventParameterUpdated    EventType = "params.updated"
	EventFundsWithdrawn      EventType = "funds.withdrawn"
	EventRoleGranted         EventType = "role.granted"
	EventRoleRevoked         EventType = "role.revoked"
	EventTokenApproved       EventType = "token.approved"
	EventOperatorApprovalSet EventType = "token.operator_set"
)

// IsValidEventType reports whether t names a known event type
func IsValidEventType(t EventType) bool {
	switch t {
	case EventAreaRegistered, EventMonitoringRecorded,
		EventImageMinted, EventImageListed, EventImageSold,
		EventParameterUpdated, EventFundsWithdrawn,
		EventRoleGranted, EventRoleRevoked,
		EventTokenApproved, EventOperatorApprovalSet:
		return true
	}
	return false
}

// Event is a typed notification appended to the journal on every state change
// and published to observers after commit.
type Event struct {
	// EventID is a ULID, time-sortable and unique
	EventID string `json:"event_id"`
	// Type is the event type
	Type EventType `json:"type"`
	// TxID identifies the invocation that produced the event
	TxID string `json:"tx_id"`
	// Digest is the hex SHA-256 of the JCS-canonicalized payload
	Digest string `json:"digest"`
	// Timestamp is when the state change was committed
	Timestamp time.Time `json:"timestamp"`
	// Payload is the event-specific record
	Payload json.RawMessage `json:"payload"`
}

// NewEvent builds an Event, serializing and digesting the payload.
// The digest is computed over the canonical (RFC 8785) JSON form so observers
// can verify payload integrity independent of key ordering.
func NewEvent(eventID string, typ EventType, txID string, ts time.Time, payload any) (*Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize event payload: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return &Event{
		EventID:   eventID,
		Type:      typ,
		TxID:      txID,
		Digest:    hex.EncodeToString(sum[:]),
		Timestamp: ts,
		Payload:   raw,
	}, nil
}

// AreaRegisteredPayload carries the full area record, the six-field
// notification shape.
type AreaRegisteredPayload struct {
	AreaID      uint64          `json:"area_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Photo       string          `json:"photo"`
	GeoJSON     json.RawMessage `json:"geo_json"`
	Country     string          `json:"country"`
	Donor       Address         `json:"donor"`
	Donation    Amount          `json:"donation"`
}

// MonitoringRecordedPayload notifies a monitoring-data append
type MonitoringRecordedPayload struct {
	AreaID            uint64    `json:"area_id"`
	Name              string    `json:"name"`
	LastDetectionDate string    `json:"last_detection_date"`
	TotalExtension    string    `json:"total_extension"`
	DetectionDates    []string  `json:"detection_dates"`
	ForestCover       []string  `json:"forest_cover_extensions"`
	Recorder          Address   `json:"recorder"`
	RecordedAt        time.Time `json:"recorded_at"`
}

// ImageMintedPayload notifies a satellite image mint
type ImageMintedPayload struct {
	ImageID  uint64  `json:"image_id"`
	AreaID   uint64  `json:"area_id"`
	AreaName string  `json:"area_name"`
	URI      string  `json:"uri"`
	Price    Amount  `json:"price"`
	Seller   Address `json:"seller"`
}

// ImageListedPayload notifies an escrow transfer to the registry
type ImageListedPayload struct {
	ImageID uint64  `json:"image_id"`
	Seller  Address `json:"seller"`
}

// ImageSoldPayload notifies a completed purchase
type ImageSoldPayload struct {
	ImageID uint64  `json:"image_id"`
	Buyer   Address `json:"buyer"`
	Seller  Address `json:"seller"`
	Price   Amount  `json:"price"`
}

// ParameterUpdatedPayload notifies a donation/price change
type ParameterUpdatedPayload struct {
	Key      string `json:"key"`
	Previous Amount `json:"previous"`
	Current  Amount `json:"current"`
}

// FundsWithdrawnPayload notifies a registry balance drain
type FundsWithdrawnPayload struct {
	To     Address `json:"to"`
	Amount Amount  `json:"amount"`
}

// RoleChangedPayload notifies a role grant or revocation
type RoleChangedPayload struct {
	Role    Role    `json:"role"`
	Address Address `json:"address"`
	By      Address `json:"by"`
}

// TokenApprovedPayload notifies a per-token approval
type TokenApprovedPayload struct {
	TokenID  uint64  `json:"token_id"`
	Owner    Address `json:"owner"`
	Approved Address `json:"approved"`
}

// OperatorApprovalPayload notifies an operator approval change
type OperatorApprovalPayload struct {
	Owner    Address `json:"owner"`
	Operator Address `json:"operator"`
	Approved bool    `json:"approved"`
}
