package schema

import "time"

// Donor represents the donors table - append-only record of contributions to a
// protected area. The same address may appear more than once.
type Donor struct {
	// ID is the internal database primary key
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// AreaID references the funded area
	AreaID uint64 `gorm:"column:area_id;not null;index"`
	// Address is the donor's account address
	Address string `gorm:"column:address;not null;type:text;index"`
	// Amount is the donated value (decimal string, wei scale)
	Amount string `gorm:"column:amount;not null;type:numeric(78,0)"`
	// CreatedAt is the donation timestamp
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Donor model
func (Donor) TableName() string {
	return "donors"
}
