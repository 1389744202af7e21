// room/room.go
package room

import (
	"time"

	"github.com/wfunc/radarserver/models"
)

// Room 是一个广播组：一个可选的 host 加上任意数量的 viewer。
//
// The host participant is stored twice: in the Host slot for O(1) lookup and
// in members like everyone else. Both always reference the SAME record, and
// only the Coordinator mutates either, so they cannot drift.
type Room struct {
	ID        string
	Host      *models.Participant
	CreatedAt time.Time

	members map[string]*models.Participant
	order   []string // join order, keeps snapshots stable
}

func newRoom(id string) *Room {
	return &Room{
		ID:        id,
		CreatedAt: time.Now(),
		members:   make(map[string]*models.Participant),
	}
}

func (r *Room) Member(connID string) (*models.Participant, bool) {
	p, exists := r.members[connID]
	return p, exists
}

func (r *Room) MemberCount() int {
	return len(r.members)
}

// Empty reports whether the room has neither members nor a host. An empty
// room must not survive in the registry.
func (r *Room) Empty() bool {
	return len(r.members) == 0 && r.Host == nil
}

// putMember inserts or replaces a participant record. A replaced connection
// keeps its original position in the join order.
func (r *Room) putMember(p *models.Participant) {
	if _, exists := r.members[p.ConnID]; !exists {
		r.order = append(r.order, p.ConnID)
	}
	r.members[p.ConnID] = p
}

func (r *Room) removeMember(connID string) bool {
	if _, exists := r.members[connID]; !exists {
		return false
	}
	delete(r.members, connID)
	for i, id := range r.order {
		if id == connID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// ConnIDs returns every member connection ID in join order, host included.
func (r *Room) ConnIDs() []string {
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// Snapshot builds the sanitized broadcast payload. Internal bookkeeping such
// as which slot is authoritative for the host is not exposed.
func (r *Room) Snapshot() *models.RoomSnapshot {
	snap := &models.RoomSnapshot{
		Members: make([]models.MemberView, 0, len(r.order)),
	}
	if r.Host != nil {
		snap.Host = &models.HostView{
			ConnID: r.Host.ConnID,
			Pos:    r.Host.Pos,
		}
	}
	for _, id := range r.order {
		p := r.members[id]
		snap.Members = append(snap.Members, models.MemberView{
			ConnID: p.ConnID,
			Role:   p.Role,
			Pos:    p.Pos,
		})
	}
	return snap
}
