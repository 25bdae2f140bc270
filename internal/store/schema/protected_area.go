package schema

import (
	"time"

	"gorm.io/datatypes"
)

// ProtectedArea represents the protected_areas table - the registry of
// monitored locations. AreaID is allocated from a locked sequence, zero-based
// and gapless; rows are never deleted.
type ProtectedArea struct {
	// AreaID is the registry-assigned identifier, allocated at creation and never reused
	AreaID uint64 `gorm:"column:area_id;primaryKey;autoIncrement:false"`
	// Name is globally unique among all areas
	Name string `gorm:"column:name;not null;uniqueIndex;type:text"`
	// Description is free-form descriptive text
	Description string `gorm:"column:description;type:text"`
	// Photo is an off-chain content pointer for the area's cover image
	Photo string `gorm:"column:photo;type:text"`
	// GeoJSON is the area footprint geometry
	GeoJSON datatypes.JSON `gorm:"column:geo_json;type:jsonb"`
	// Country is the ISO country name the area belongs to
	Country string `gorm:"column:country;type:text"`
	// LastDetectionDate is the monitoring snapshot date; nil until monitoring
	// data is recorded, populated exactly once
	LastDetectionDate *string `gorm:"column:last_detection_date;type:text"`
	// TotalExtension is the monitored surface extension snapshot
	TotalExtension *string `gorm:"column:total_extension;type:text"`
	// DetectionDates is the ordered series of detection dates
	DetectionDates datatypes.JSON `gorm:"column:detection_dates;type:jsonb"`
	// ForestCoverExtensions is the series parallel to DetectionDates
	ForestCoverExtensions datatypes.JSON `gorm:"column:forest_cover_extensions;type:jsonb"`
	// RegisteredBy is the donor address whose payment created the area
	RegisteredBy string `gorm:"column:registered_by;not null;type:text"`
	// CreatedAt is the registration timestamp
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp of the last monitoring update
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`

	// Associations
	Donors            []Donor            `gorm:"foreignKey:AreaID;references:AreaID;constraint:OnDelete:CASCADE"`
	MonitoringUpdates []MonitoringUpdate `gorm:"foreignKey:AreaID;references:AreaID;constraint:OnDelete:CASCADE"`
	Images            []SatelliteImage   `gorm:"foreignKey:AreaID;references:AreaID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the ProtectedArea model
func (ProtectedArea) TableName() string {
	return "protected_areas"
}
