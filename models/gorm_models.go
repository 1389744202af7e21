// models/gorm_models.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// GormTrackPoint 轨迹点模型
type GormTrackPoint struct {
	gorm.Model
	DeviceID   string             `gorm:"index:idx_device_recorded;not null"`
	RoomID     string             `gorm:"index;not null"`
	Coords     map[string]float64 `gorm:"type:jsonb;serializer:json;not null"`
	RecordedAt time.Time          `gorm:"index:idx_device_recorded;not null"`
}

func (GormTrackPoint) TableName() string {
	return "track_points"
}
