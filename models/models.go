// models/models.go
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Role of a participant within a room.
type Role string

const (
	RoleHost   Role = "host"
	RoleViewer Role = "viewer"
)

func (r Role) Valid() bool {
	return r == RoleHost || r == RoleViewer
}

// Position is an opaque bundle of numeric coordinate fields (planar x/y,
// range/angle, lat/lon; the coordinator does not interpret them) plus the
// server-assigned timestamp. A Position is replaced on update, never mutated
// in place, so snapshots referencing it can be marshaled outside any lock.
type Position struct {
	Coords map[string]float64
	TS     time.Time
}

func (p *Position) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(p.Coords)+1)
	for k, v := range p.Coords {
		out[k] = v
	}
	out["ts"] = p.TS.UnixMilli()
	return json.Marshal(out)
}

func (p *Position) UnmarshalJSON(data []byte) error {
	var fields map[string]float64
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if ts, ok := fields["ts"]; ok {
		p.TS = time.UnixMilli(int64(ts))
		delete(fields, "ts")
	}
	p.Coords = fields
	return nil
}

// ParsePosition validates a raw position payload: it must be a JSON object
// whose values are all numbers. A client-supplied "ts" field is discarded;
// the server clock is authoritative.
func ParsePosition(raw json.RawMessage) (*Position, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty position payload")
	}
	var p Position
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	if p.Coords == nil {
		return nil, fmt.Errorf("position payload is not an object")
	}
	p.TS = time.Time{}
	return &p, nil
}

// Participant is one connected member of a room. Role is fixed at join time;
// a rejoin with a different role produces a new record.
type Participant struct {
	ConnID string
	Role   Role
	Pos    *Position
}

// HostView and MemberView are the sanitized per-participant projections used
// in broadcast snapshots. Nothing beyond identity, role and position leaks.
type HostView struct {
	ConnID string    `json:"connectionId"`
	Pos    *Position `json:"pos"`
}

type MemberView struct {
	ConnID string    `json:"connectionId"`
	Role   Role      `json:"role"`
	Pos    *Position `json:"pos"`
}

// RoomSnapshot is the broadcast payload sent under the room-state event.
type RoomSnapshot struct {
	Host    *HostView    `json:"host"`
	Members []MemberView `json:"members"`
}

// TrackPoint 设备轨迹记录
type TrackPoint struct {
	DeviceID   string             `json:"device_id"`
	RoomID     string             `json:"room_id"`
	Coords     map[string]float64 `json:"coords"`
	RecordedAt time.Time          `json:"recorded_at"`
}
