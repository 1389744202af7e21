package network

import "encoding/json"

const (
	MsgTypeHeartbeat = 1
	MsgTypeJoinRoom  = 101
	MsgTypeUpdatePos = 102
	MsgTypeRoomState = 301
)

// JoinRequest is the payload of MsgTypeJoinRoom.
type JoinRequest struct {
	RoomID string `json:"roomId"`
	Role   string `json:"role"`
}

// UpdatePosRequest is the payload of MsgTypeUpdatePos. Pos stays raw until
// validated by models.ParsePosition.
type UpdatePosRequest struct {
	RoomID string          `json:"roomId"`
	Pos    json.RawMessage `json:"pos"`
}
