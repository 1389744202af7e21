// persistence/interface.go
package persistence

import (
	"fmt"

	"github.com/wfunc/radarserver/models"
)

// TelemetryStore 轨迹存储接口
//
// The store keeps an append-only log of accepted position updates per device.
// Live room state is never written here: rooms are memory-only and vanish on
// restart.
type TelemetryStore interface {
	SaveTrackPoint(point *models.TrackPoint) error
	LoadTrack(deviceID string, limit int) ([]models.TrackPoint, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)
