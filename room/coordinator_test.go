package room

import (
	"testing"
	"time"

	"github.com/wfunc/radarserver/models"
)

// MockBroadcaster is a test double for the Broadcaster interface. It records
// every delivery request.
type MockBroadcaster struct {
	calls []broadcastCall
}

type broadcastCall struct {
	ids  []string
	snap *models.RoomSnapshot
}

func (m *MockBroadcaster) BroadcastRoomState(connIDs []string, snap *models.RoomSnapshot) error {
	m.calls = append(m.calls, broadcastCall{connIDs, snap})
	return nil
}

func (m *MockBroadcaster) last(t *testing.T) broadcastCall {
	t.Helper()
	if len(m.calls) == 0 {
		t.Fatal("Expected at least one broadcast")
	}
	return m.calls[len(m.calls)-1]
}

func newTestCoordinator() (*Coordinator, *MockBroadcaster) {
	b := &MockBroadcaster{}
	c := NewCoordinator(NewRegistry(), b, nil)
	return c, b
}

func pos(fields map[string]float64) *models.Position {
	return &models.Position{Coords: fields}
}

func TestJoin_HostAndViewer(t *testing.T) {
	c, b := newTestCoordinator()

	if !c.Join("c1", "r1", models.RoleHost) {
		t.Fatal("Join host should be accepted")
	}
	if !c.Join("c2", "r1", models.RoleViewer) {
		t.Fatal("Join viewer should be accepted")
	}

	call := b.last(t)
	if len(call.ids) != 2 || call.ids[0] != "c1" || call.ids[1] != "c2" {
		t.Errorf("Expected broadcast to [c1 c2], got %v", call.ids)
	}
	if call.snap.Host == nil || call.snap.Host.ConnID != "c1" {
		t.Errorf("Expected host c1, got %+v", call.snap.Host)
	}
	if len(call.snap.Members) != 2 {
		t.Fatalf("Expected 2 members, got %d", len(call.snap.Members))
	}
	if call.snap.Members[0].Role != models.RoleHost || call.snap.Members[1].Role != models.RoleViewer {
		t.Errorf("Unexpected member roles: %+v", call.snap.Members)
	}

	if len(b.calls) != 2 {
		t.Errorf("Expected one broadcast per join, got %d", len(b.calls))
	}
}

func TestJoin_RejectsMalformed(t *testing.T) {
	c, b := newTestCoordinator()

	if c.Join("c1", "", models.RoleHost) {
		t.Error("Join with empty room ID should be dropped")
	}
	if c.Join("c1", "r1", models.Role("admin")) {
		t.Error("Join with unknown role should be dropped")
	}
	if c.Join("", "r1", models.RoleViewer) {
		t.Error("Join with empty connection ID should be dropped")
	}

	if c.registry.Count() != 0 {
		t.Errorf("No room should exist after rejected joins, got %d", c.registry.Count())
	}
	if len(b.calls) != 0 {
		t.Errorf("No broadcast expected, got %d", len(b.calls))
	}
}

func TestJoin_HostLastWriterWins(t *testing.T) {
	c, b := newTestCoordinator()

	c.Join("c1", "r1", models.RoleHost)
	c.Join("c2", "r1", models.RoleHost)

	call := b.last(t)
	if call.snap.Host == nil || call.snap.Host.ConnID != "c2" {
		t.Fatalf("Expected host slot taken over by c2, got %+v", call.snap.Host)
	}
	// The displaced host is demoted but keeps its member record.
	if len(call.snap.Members) != 2 {
		t.Fatalf("Expected both connections to remain members, got %d", len(call.snap.Members))
	}
	if call.snap.Members[0].ConnID != "c1" {
		t.Errorf("Expected c1 still present as member, got %+v", call.snap.Members[0])
	}
}

func TestJoin_HostRecordAliasesMemberRecord(t *testing.T) {
	c, _ := newTestCoordinator()

	c.Join("c1", "r1", models.RoleHost)

	r, exists := c.registry.Get("r1")
	if !exists {
		t.Fatal("Room r1 should exist")
	}
	member, exists := r.Member("c1")
	if !exists {
		t.Fatal("Host must also be reachable via members")
	}
	if r.Host != member {
		t.Error("Host slot and member record must be the same participant")
	}
	if r.Host.Role != models.RoleHost {
		t.Errorf("Host record should carry the host role, got %s", r.Host.Role)
	}
}

func TestJoin_HostRejoinAsViewerClearsHostSlot(t *testing.T) {
	c, b := newTestCoordinator()

	c.Join("c1", "r1", models.RoleHost)
	c.Join("c1", "r1", models.RoleViewer)

	call := b.last(t)
	if call.snap.Host != nil {
		t.Errorf("Host slot should be vacated after the host rejoins as viewer, got %+v", call.snap.Host)
	}
	if len(call.snap.Members) != 1 || call.snap.Members[0].Role != models.RoleViewer {
		t.Errorf("Expected single viewer record, got %+v", call.snap.Members)
	}
}

func TestUpdatePosition_StampsServerTime(t *testing.T) {
	c, b := newTestCoordinator()
	stamp := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return stamp }

	c.Join("c1", "r1", models.RoleHost)
	c.Join("c2", "r1", models.RoleViewer)

	// Client-supplied timestamps are discarded.
	p := pos(map[string]float64{"x": 1, "y": 2})
	p.TS = time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)

	if !c.UpdatePosition("c2", "r1", p) {
		t.Fatal("Update from a member should be accepted")
	}

	call := b.last(t)
	if call.snap.Members[1].Pos == nil {
		t.Fatal("c2 position should be set")
	}
	if !call.snap.Members[1].Pos.TS.Equal(stamp) {
		t.Errorf("Expected server stamp %v, got %v", stamp, call.snap.Members[1].Pos.TS)
	}
	if call.snap.Members[1].Pos.Coords["x"] != 1 || call.snap.Members[1].Pos.Coords["y"] != 2 {
		t.Errorf("Unexpected coords: %v", call.snap.Members[1].Pos.Coords)
	}
	if call.snap.Members[0].Pos != nil {
		t.Errorf("c1 position should still be absent, got %+v", call.snap.Members[0].Pos)
	}
}

func TestUpdatePosition_HostSlotAndMemberAgree(t *testing.T) {
	c, b := newTestCoordinator()

	c.Join("c1", "r1", models.RoleHost)
	c.UpdatePosition("c1", "r1", pos(map[string]float64{"x": 3}))

	call := b.last(t)
	if call.snap.Host.Pos == nil || call.snap.Host.Pos.Coords["x"] != 3 {
		t.Errorf("Host slot position not updated: %+v", call.snap.Host)
	}
	if call.snap.Members[0].Pos == nil || call.snap.Members[0].Pos.Coords["x"] != 3 {
		t.Errorf("Member record position not updated: %+v", call.snap.Members[0])
	}
}

func TestUpdatePosition_TimestampsMonotonic(t *testing.T) {
	c, b := newTestCoordinator()
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	c.Join("c1", "r1", models.RoleHost)

	var prev time.Time
	for i := 0; i < 5; i++ {
		c.UpdatePosition("c1", "r1", pos(map[string]float64{"x": float64(i)}))
		ts := b.last(t).snap.Host.Pos.TS
		if ts.Before(prev) {
			t.Fatalf("Timestamp went backwards: %v after %v", ts, prev)
		}
		prev = ts
		clock = clock.Add(time.Second)
	}
}

func TestUpdatePosition_UnknownRoomIsNoOp(t *testing.T) {
	c, b := newTestCoordinator()

	if c.UpdatePosition("c9", "r1", pos(map[string]float64{"x": 0, "y": 0})) {
		t.Error("Update against an unknown room should be a no-op")
	}
	if c.registry.Count() != 0 {
		t.Error("No room should be created by a stray update")
	}
	if len(b.calls) != 0 {
		t.Errorf("No broadcast expected, got %d", len(b.calls))
	}
}

func TestUpdatePosition_NonMemberIgnored(t *testing.T) {
	c, b := newTestCoordinator()

	c.Join("c1", "r1", models.RoleHost)
	sent := len(b.calls)

	if c.UpdatePosition("c9", "r1", pos(map[string]float64{"x": 1})) {
		t.Error("Update from a connection that never joined should be ignored")
	}
	if len(b.calls) != sent {
		t.Errorf("No broadcast expected for an ignored update, got %d new", len(b.calls)-sent)
	}
}

func TestDisconnect_HostLeavesRoomSurvives(t *testing.T) {
	c, b := newTestCoordinator()

	c.Join("c1", "r1", models.RoleHost)
	c.Join("c2", "r1", models.RoleViewer)
	c.Disconnect("c1")

	call := b.last(t)
	if call.snap.Host != nil {
		t.Errorf("Expected host cleared, got %+v", call.snap.Host)
	}
	if len(call.snap.Members) != 1 || call.snap.Members[0].ConnID != "c2" {
		t.Errorf("Expected only c2 to remain, got %+v", call.snap.Members)
	}
	if _, exists := c.registry.Get("r1"); !exists {
		t.Error("Room r1 should still exist while c2 is a member")
	}
}

func TestDisconnect_LastMemberRemovesRoomSilently(t *testing.T) {
	c, b := newTestCoordinator()

	c.Join("c1", "r1", models.RoleHost)
	c.Join("c2", "r1", models.RoleViewer)
	c.Disconnect("c1")
	sent := len(b.calls)

	c.Disconnect("c2")

	if _, exists := c.registry.Get("r1"); exists {
		t.Error("Room r1 should be removed once the last member leaves")
	}
	if len(b.calls) != sent {
		t.Errorf("No broadcast expected for an emptied room, got %d new", len(b.calls)-sent)
	}
}

func TestDisconnect_Idempotent(t *testing.T) {
	c, b := newTestCoordinator()

	c.Join("c1", "r1", models.RoleHost)
	c.Join("c2", "r1", models.RoleViewer)
	c.Disconnect("c1")
	sent := len(b.calls)

	c.Disconnect("c1")

	if len(b.calls) != sent {
		t.Errorf("Second disconnect should be a no-op, got %d new broadcasts", len(b.calls)-sent)
	}
	stats, exists := c.RoomStats("r1")
	if !exists || stats.Members != 1 {
		t.Errorf("Room state changed by repeated disconnect: %+v exists=%v", stats, exists)
	}
}

func TestDisconnect_RemovesFromEveryRoom(t *testing.T) {
	c, _ := newTestCoordinator()

	c.Join("c1", "r1", models.RoleHost)
	c.Join("c1", "r2", models.RoleViewer)
	c.Join("c2", "r2", models.RoleHost)

	c.Disconnect("c1")

	if _, exists := c.registry.Get("r1"); exists {
		t.Error("r1 should be gone: c1 was its only member")
	}
	stats, exists := c.RoomStats("r2")
	if !exists || stats.Members != 1 || stats.HostID != "c2" {
		t.Errorf("r2 should keep c2 as host, got %+v exists=%v", stats, exists)
	}
}

func TestIngest_EnrollsDeviceAsViewer(t *testing.T) {
	c, b := newTestCoordinator()

	c.Join("c1", "r1", models.RoleHost)

	if !c.Ingest("device-1", "r1", pos(map[string]float64{"range": 20.5, "angle": 135})) {
		t.Fatal("Ingest should be accepted")
	}

	call := b.last(t)
	if len(call.snap.Members) != 2 {
		t.Fatalf("Expected device enrolled as member, got %+v", call.snap.Members)
	}
	device := call.snap.Members[1]
	if device.ConnID != "device-1" || device.Role != models.RoleViewer {
		t.Errorf("Expected device-1 as viewer, got %+v", device)
	}
	if device.Pos == nil || device.Pos.Coords["range"] != 20.5 {
		t.Errorf("Device position not applied: %+v", device.Pos)
	}

	// A second point updates in place instead of re-enrolling.
	c.Ingest("device-1", "r1", pos(map[string]float64{"range": 21, "angle": 140}))
	call = b.last(t)
	if len(call.snap.Members) != 2 {
		t.Errorf("Repeated ingest must not duplicate the member, got %d", len(call.snap.Members))
	}
}

func TestStats(t *testing.T) {
	c, _ := newTestCoordinator()

	c.Join("c1", "r1", models.RoleHost)
	c.Join("c2", "r1", models.RoleViewer)
	c.Join("c3", "r2", models.RoleHost)

	rooms, participants := c.Stats()
	if rooms != 2 || participants != 3 {
		t.Errorf("Expected 2 rooms / 3 participants, got %d / %d", rooms, participants)
	}

	stats, exists := c.RoomStats("r1")
	if !exists || stats.Members != 2 || stats.HostID != "c1" {
		t.Errorf("Unexpected r1 stats: %+v exists=%v", stats, exists)
	}
	if _, exists := c.RoomStats("nope"); exists {
		t.Error("RoomStats for an unknown room should report absence")
	}
}
