// room/coordinator.go
package room

import (
	"sync"
	"time"

	"github.com/wfunc/radarserver/logger"
	"github.com/wfunc/radarserver/models"
	"github.com/wfunc/radarserver/monitor"
)

// Broadcaster delivers a room snapshot to a set of connections.
// Delivery must be best-effort per recipient: one failed send must not block
// or fail the others. Defined here to break the import cycle between room
// and broadcast.
type Broadcaster interface {
	BroadcastRoomState(connIDs []string, snap *models.RoomSnapshot) error
}

// Coordinator translates join / update-position / disconnect events into
// registry mutations and decides what to broadcast. A single mutex serializes
// all events: each one is applied to completion before the next is looked at,
// so no partial state is ever observable.
type Coordinator struct {
	registry    *Registry
	broadcaster Broadcaster
	metrics     *monitor.Monitor
	now         func() time.Time
	mutex       sync.Mutex
}

func NewCoordinator(registry *Registry, b Broadcaster, m *monitor.Monitor) *Coordinator {
	return &Coordinator{
		registry:    registry,
		broadcaster: b,
		metrics:     m,
		now:         time.Now,
	}
}

// Join registers connID in roomID with the given role, creating the room on
// first contact. A join with role host takes over the host slot no matter who
// held it: last writer wins, and the previous host's member record is left
// untouched. Rejoining simply overwrites the connection's record.
// Returns false when the event is malformed and was dropped.
func (c *Coordinator) Join(connID, roomID string, role models.Role) bool {
	if connID == "" || roomID == "" || !role.Valid() {
		return false
	}

	c.mutex.Lock()
	r := c.registry.GetOrCreate(roomID)

	p := &models.Participant{ConnID: connID, Role: role}
	r.putMember(p)

	if role == models.RoleHost {
		r.Host = p
	} else if r.Host != nil && r.Host.ConnID == connID {
		// The current host rejoined as a viewer: its new record supersedes
		// the old one, so the host slot is vacated rather than left pointing
		// at a stale record.
		r.Host = nil
	}

	ids, snap := r.ConnIDs(), r.Snapshot()
	c.bumpMetrics()
	c.mutex.Unlock()

	c.broadcast(ids, snap)
	return true
}

// UpdatePosition stores a new position for connID in roomID and fans the
// room snapshot out. The stored timestamp is always the server clock at
// processing time; whatever the client sent is discarded. Updates for
// unknown rooms or from connections that never joined are benign no-ops.
func (c *Coordinator) UpdatePosition(connID, roomID string, pos *models.Position) bool {
	if connID == "" || roomID == "" || pos == nil || pos.Coords == nil {
		return false
	}

	c.mutex.Lock()
	r, exists := c.registry.Get(roomID)
	if !exists {
		// Room was garbage-collected since the sender last heard from us.
		c.mutex.Unlock()
		return false
	}

	var target *models.Participant
	if r.Host != nil && r.Host.ConnID == connID {
		target = r.Host
	} else if p, ok := r.Member(connID); ok {
		target = p
	}
	if target == nil {
		c.mutex.Unlock()
		return false
	}

	pos.TS = c.now()
	target.Pos = pos

	ids, snap := r.ConnIDs(), r.Snapshot()
	c.bumpMetrics()
	c.mutex.Unlock()

	c.broadcast(ids, snap)
	return true
}

// Ingest feeds a telemetry point from the request/response path into the
// same fan-out as a live connection's update. A device that never joined
// over a socket is enrolled as a viewer member on first contact.
func (c *Coordinator) Ingest(deviceID, roomID string, pos *models.Position) bool {
	if deviceID == "" || roomID == "" || pos == nil || pos.Coords == nil {
		return false
	}

	c.mutex.Lock()
	r := c.registry.GetOrCreate(roomID)

	p, exists := r.Member(deviceID)
	if !exists {
		p = &models.Participant{ConnID: deviceID, Role: models.RoleViewer}
		r.putMember(p)
	}

	pos.TS = c.now()
	p.Pos = pos

	ids, snap := r.ConnIDs(), r.Snapshot()
	c.bumpMetrics()
	c.mutex.Unlock()

	c.broadcast(ids, snap)
	return true
}

// Disconnect removes connID from every room it is found in. Rooms left
// empty are dropped from the registry with no farewell broadcast; rooms
// with members remaining get the updated snapshot. Disconnecting an unknown
// connection is a no-op.
func (c *Coordinator) Disconnect(connID string) {
	if connID == "" {
		return
	}

	type outbound struct {
		ids  []string
		snap *models.RoomSnapshot
	}
	var outs []outbound

	c.mutex.Lock()
	// Every room is scanned rather than just the ones the connection joined,
	// to stay robust against bookkeeping drift.
	for _, r := range c.registry.all() {
		removed := r.removeMember(connID)
		if r.Host != nil && r.Host.ConnID == connID {
			r.Host = nil
			removed = true
		}
		if !removed {
			continue
		}
		if r.Empty() {
			c.registry.RemoveIfEmpty(r.ID)
			continue
		}
		outs = append(outs, outbound{r.ConnIDs(), r.Snapshot()})
	}
	c.bumpMetrics()
	c.mutex.Unlock()

	for _, o := range outs {
		c.broadcast(o.ids, o.snap)
	}
}

// Stats returns the number of tracked rooms and participants across them.
func (c *Coordinator) Stats() (rooms, participants int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	all := c.registry.all()
	for _, r := range all {
		participants += r.MemberCount()
	}
	return len(all), participants
}

// RoomStats describes one room for operational queries.
type RoomStats struct {
	RoomID  string
	Members int
	HostID  string
}

func (c *Coordinator) RoomStats(roomID string) (RoomStats, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	r, exists := c.registry.Get(roomID)
	if !exists {
		return RoomStats{}, false
	}
	stats := RoomStats{RoomID: r.ID, Members: r.MemberCount()}
	if r.Host != nil {
		stats.HostID = r.Host.ConnID
	}
	return stats, true
}

// broadcast is fire-and-forget: the mutation that triggered it has already
// been applied and is never rolled back.
func (c *Coordinator) broadcast(ids []string, snap *models.RoomSnapshot) {
	if c.broadcaster == nil {
		return
	}
	if err := c.broadcaster.BroadcastRoomState(ids, snap); err != nil {
		logger.Log.Warnf("Broadcast failed: %v", err)
	}
	c.metrics.IncBroadcastsSent()
}

func (c *Coordinator) bumpMetrics() {
	c.metrics.SetActiveRooms(c.registry.Count())
}
