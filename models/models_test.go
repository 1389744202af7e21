package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParsePosition_Valid(t *testing.T) {
	pos, err := ParsePosition([]byte(`{"x":12.3,"y":-4.5}`))
	if err != nil {
		t.Fatalf("ParsePosition failed: %v", err)
	}
	if pos.Coords["x"] != 12.3 || pos.Coords["y"] != -4.5 {
		t.Errorf("Unexpected coords: %v", pos.Coords)
	}
	if !pos.TS.IsZero() {
		t.Errorf("Timestamp should be unset until the server stamps it, got %v", pos.TS)
	}
}

func TestParsePosition_ClientTimestampDiscarded(t *testing.T) {
	pos, err := ParsePosition([]byte(`{"range":20.5,"angle":135,"ts":1690000000000}`))
	if err != nil {
		t.Fatalf("ParsePosition failed: %v", err)
	}
	if !pos.TS.IsZero() {
		t.Errorf("Client ts must be discarded, got %v", pos.TS)
	}
	if _, exists := pos.Coords["ts"]; exists {
		t.Error("ts must not survive as a coordinate field")
	}
}

func TestParsePosition_Malformed(t *testing.T) {
	cases := []string{
		`{"x":"east"}`, // non-numeric field
		`[1,2]`,        // not an object
		`null`,
		`42`,
		``,
	}
	for _, raw := range cases {
		if _, err := ParsePosition([]byte(raw)); err == nil {
			t.Errorf("ParsePosition(%q) should fail", raw)
		}
	}
}

func TestPosition_MarshalIncludesServerStamp(t *testing.T) {
	pos := &Position{
		Coords: map[string]float64{"x": 1},
		TS:     time.UnixMilli(1690000000000),
	}

	data, err := json.Marshal(pos)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var out map[string]float64
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if out["x"] != 1 {
		t.Errorf("Coordinate field lost: %v", out)
	}
	if int64(out["ts"]) != 1690000000000 {
		t.Errorf("Expected ts 1690000000000, got %v", out["ts"])
	}
}

func TestRoomSnapshot_WireShape(t *testing.T) {
	snap := &RoomSnapshot{
		Host: &HostView{ConnID: "c1"},
		Members: []MemberView{
			{ConnID: "c1", Role: RoleHost},
			{ConnID: "c2", Role: RoleViewer, Pos: &Position{Coords: map[string]float64{"x": 1}}},
		},
	}

	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var out struct {
		Host *struct {
			ConnID string `json:"connectionId"`
		} `json:"host"`
		Members []struct {
			ConnID string `json:"connectionId"`
			Role   string `json:"role"`
		} `json:"members"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if out.Host == nil || out.Host.ConnID != "c1" {
		t.Errorf("Unexpected host: %+v", out.Host)
	}
	if len(out.Members) != 2 || out.Members[1].Role != "viewer" {
		t.Errorf("Unexpected members: %+v", out.Members)
	}

	// An empty room's snapshot serializes host as null.
	data, _ = json.Marshal(&RoomSnapshot{Members: []MemberView{}})
	if string(data) != `{"host":null,"members":[]}` {
		t.Errorf("Unexpected empty snapshot: %s", data)
	}
}

func TestRole_Valid(t *testing.T) {
	if !RoleHost.Valid() || !RoleViewer.Valid() {
		t.Error("host and viewer are valid roles")
	}
	if Role("admin").Valid() || Role("").Valid() {
		t.Error("Unknown roles must be rejected")
	}
}
