// services/telemetry_service.go
package services

import (
	"github.com/wfunc/radarserver/models"
	"github.com/wfunc/radarserver/persistence"
)

const defaultTrackLimit = 100

// TelemetryService records accepted position updates and answers track
// queries. Construct with a nil store to disable persistence: recording
// becomes a no-op, which keeps the live feed independent of the database.
type TelemetryService struct {
	store persistence.TelemetryStore
}

func NewTelemetryService(store persistence.TelemetryStore) *TelemetryService {
	return &TelemetryService{store: store}
}

// RecordPosition appends one track point. Best-effort by contract: callers
// log failures but never fail the broadcast that triggered the write.
func (s *TelemetryService) RecordPosition(deviceID, roomID string, pos *models.Position) error {
	if s == nil || s.store == nil {
		return nil
	}
	point := &models.TrackPoint{
		DeviceID:   deviceID,
		RoomID:     roomID,
		Coords:     pos.Coords,
		RecordedAt: pos.TS,
	}
	return s.store.SaveTrackPoint(point)
}

// DeviceTrack returns the most recent track points for a device.
func (s *TelemetryService) DeviceTrack(deviceID string, limit int) ([]models.TrackPoint, error) {
	if s == nil || s.store == nil {
		return nil, persistence.ErrRecordNotFound
	}
	if limit <= 0 || limit > 1000 {
		limit = defaultTrackLimit
	}
	return s.store.LoadTrack(deviceID, limit)
}
