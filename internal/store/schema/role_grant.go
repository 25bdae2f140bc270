package schema

import "time"

// RoleGrant represents the role_grants table - addresses holding registry roles
type RoleGrant struct {
	// ID is the internal database primary key
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Role is the granted role name (default_admin, admin)
	Role string `gorm:"column:role;not null;type:text;uniqueIndex:idx_role_grants_role_address,priority:1"`
	// Address is the holder's account address
	Address string `gorm:"column:address;not null;type:text;uniqueIndex:idx_role_grants_role_address,priority:2"`
	// GrantedBy is the default admin that issued the grant
	GrantedBy string `gorm:"column:granted_by;not null;type:text"`
	// CreatedAt is the grant timestamp
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the RoleGrant model
func (RoleGrant) TableName() string {
	return "role_grants"
}
