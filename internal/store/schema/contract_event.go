package schema

import (
	"time"

	"gorm.io/datatypes"
)

// ContractEvent represents the contract_events table - the append-only journal
// of registry state changes. Rows are written inside the same transaction as
// the state change they describe and published to observers after commit.
type ContractEvent struct {
	// ID is an auto-incrementing sequence number
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// EventID is a ULID, time-sortable and unique
	EventID string `gorm:"column:event_id;not null;uniqueIndex;type:varchar(26)"`
	// EventType is the registry event type (e.g. "area.registered")
	EventType string `gorm:"column:event_type;not null;type:text;index"`
	// TxID identifies the invocation that produced the event
	TxID string `gorm:"column:tx_id;not null;type:varchar(36);index"`
	// Digest is the hex SHA-256 of the canonicalized payload
	Digest string `gorm:"column:digest;not null;type:varchar(64)"`
	// Payload is the event record as JSON
	Payload datatypes.JSON `gorm:"column:payload;not null;type:jsonb"`
	// CreatedAt is the commit timestamp
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the ContractEvent model
func (ContractEvent) TableName() string {
	return "contract_events"
}
