// broadcast/broadcast.go
package broadcast

import (
	"encoding/json"

	"github.com/wfunc/radarserver/logger"
	"github.com/wfunc/radarserver/models"
	"github.com/wfunc/radarserver/network"
	"github.com/wfunc/radarserver/session"
)

// RoomStateBroadcaster delivers room snapshots to live sessions under the
// room-state message type. It implements room.Broadcaster.
type RoomStateBroadcaster struct {
	sessionManager *session.Manager
}

func NewRoomStateBroadcaster(sessionManager *session.Manager) *RoomStateBroadcaster {
	return &RoomStateBroadcaster{
		sessionManager: sessionManager,
	}
}

func (b *RoomStateBroadcaster) BroadcastRoomState(connIDs []string, snap *models.RoomSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	for _, id := range connIDs {
		s, exists := b.sessionManager.Get(id)
		if !exists {
			// Members enrolled through the coords endpoint have no live
			// socket; they are senders only.
			continue
		}
		if err := s.Send(network.MsgTypeRoomState, data); err != nil {
			// Best effort per recipient: a dead socket must not starve the
			// rest of the room. The heartbeat sweep will reap it.
			logger.Log.Debugf("Send to session %s failed: %v", id, err)
			continue
		}
	}

	return nil
}
