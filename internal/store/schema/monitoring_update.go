package schema

import (
	"time"

	"gorm.io/datatypes"
)

// MonitoringUpdate represents the monitoring_updates table - the append-only
// audit trail of admin monitoring submissions per area.
type MonitoringUpdate struct {
	// ID is the internal database primary key
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// AreaID references the monitored area
	AreaID uint64 `gorm:"column:area_id;not null;index"`
	// LastDetectionDate is the submitted snapshot date
	LastDetectionDate string `gorm:"column:last_detection_date;not null;type:text"`
	// TotalExtension is the submitted surface extension
	TotalExtension string `gorm:"column:total_extension;not null;type:text"`
	// DetectionDates is the submitted detection-date series
	DetectionDates datatypes.JSON `gorm:"column:detection_dates;type:jsonb"`
	// ForestCoverExtensions is the series parallel to DetectionDates
	ForestCoverExtensions datatypes.JSON `gorm:"column:forest_cover_extensions;type:jsonb"`
	// Recorder is the admin address that submitted the update
	Recorder string `gorm:"column:recorder;not null;type:text"`
	// CreatedAt is the submission timestamp
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the MonitoringUpdate model
func (MonitoringUpdate) TableName() string {
	return "monitoring_updates"
}
