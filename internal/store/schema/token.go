package schema

import "time"

// Token represents the tokens table - ownership bookkeeping for satellite
// image tokens. The token id equals the image id it tokenizes.
type Token struct {
	// TokenID is the token identifier (equal to the image id)
	TokenID uint64 `gorm:"column:token_id;primaryKey;autoIncrement:false"`
	// Owner is the current owner's address
	Owner string `gorm:"column:owner;not null;type:text;index"`
	// Approved is the single address approved for this token, if any
	Approved *string `gorm:"column:approved;type:text"`
	// URI is the metadata pointer attached at mint
	URI string `gorm:"column:uri;not null;type:text"`
	// CreatedAt is the mint timestamp
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp of the last transfer or approval
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Token model
func (Token) TableName() string {
	return "tokens"
}

// OperatorApproval represents the operator_approvals table - blanket transfer
// approvals from an owner to an operator, the escrow precondition for selling.
type OperatorApproval struct {
	// ID is the internal database primary key
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Owner is the granting address
	Owner string `gorm:"column:owner;not null;type:text;uniqueIndex:idx_operator_approvals_owner_operator,priority:1"`
	// Operator is the approved address
	Operator string `gorm:"column:operator;not null;type:text;uniqueIndex:idx_operator_approvals_owner_operator,priority:2"`
	// CreatedAt is the approval timestamp
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the OperatorApproval model
func (OperatorApproval) TableName() string {
	return "operator_approvals"
}
