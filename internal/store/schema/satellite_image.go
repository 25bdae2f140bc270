package schema

import "time"

// SatelliteImage represents the satellite_images table - tokenized imagery
// tied to a protected area. ImageID doubles as the token id; ids are
// zero-based, gapless and allocated from their own sequence.
type SatelliteImage struct {
	// ImageID is the registry-assigned identifier and token id
	ImageID uint64 `gorm:"column:image_id;primaryKey;autoIncrement:false"`
	// AreaID references the owning area
	AreaID uint64 `gorm:"column:area_id;not null;index"`
	// AreaName is the owning area's name, kept as an integrity back-reference
	AreaName string `gorm:"column:area_name;not null;type:text;index"`
	// URI is the off-chain content pointer for the imagery
	URI string `gorm:"column:uri;not null;type:text"`
	// Price is the sale price stamped at mint (decimal string, wei scale)
	Price string `gorm:"column:price;not null;type:numeric(78,0)"`
	// Sold flips exactly once, false to true, on a successful purchase
	Sold bool `gorm:"column:sold;not null;default:false"`
	// Seller is the minting admin's address
	Seller string `gorm:"column:seller;not null;type:text"`
	// CreatedAt is the mint timestamp
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp of the last state transition
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the SatelliteImage model
func (SatelliteImage) TableName() string {
	return "satellite_images"
}
