package schema

import "time"

// AccountBalance represents the account_balances table - on-ledger value held
// per address. The registry's own address accumulates donations and purchase
// payments until withdrawn.
type AccountBalance struct {
	// Address is the account address
	Address string `gorm:"column:address;primaryKey;type:text"`
	// Balance is the held value (decimal string, wei scale)
	Balance string `gorm:"column:balance;not null;type:numeric(78,0)"`
	// UpdatedAt is the timestamp of the last credit or debit
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the AccountBalance model
func (AccountBalance) TableName() string {
	return "account_balances"
}

// ValueTransfer represents the value_transfers table - append-only journal of
// every value movement the registry performs.
type ValueTransfer struct {
	// ID is the internal database primary key
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// TxID identifies the invocation that moved the value
	TxID string `gorm:"column:tx_id;not null;type:varchar(36);index"`
	// FromAddress is the debited account (empty for external funds entering)
	FromAddress string `gorm:"column:from_address;type:text"`
	// ToAddress is the credited account
	ToAddress string `gorm:"column:to_address;not null;type:text"`
	// Amount is the transferred value (decimal string, wei scale)
	Amount string `gorm:"column:amount;not null;type:numeric(78,0)"`
	// Reason labels the transfer (donation, purchase, payout, withdrawal)
	Reason string `gorm:"column:reason;not null;type:text"`
	// CreatedAt is the transfer timestamp
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the ValueTransfer model
func (ValueTransfer) TableName() string {
	return "value_transfers"
}
