package models

import "time"

// Channel event kinds emitted after successful lifecycle transitions.
const (
	EventRoomStateChange   = "room_state_change"
	EventPlayerJoined      = "player_joined"
	EventPlayerLeft        = "player_left"
	EventPlayerReadyChange = "player_ready_change"
	EventGameStatusChange  = "game_status_change"
	EventChatMessage       = "chat_message"
)

// ChannelEvent is the envelope delivered on a room channel. Data is either a
// full RoomSnapshot or a minimal delta matching the event kind; clients
// needing full consistency re-fetch the room snapshot by number.
type ChannelEvent struct {
	EventKind  string    `json:"event_kind"`
	RoomNumber string    `json:"room_number"`
	Timestamp  time.Time `json:"timestamp"`
	Data       any       `json:"data"`
}

// NewChannelEvent stamps an event envelope with the current time.
func NewChannelEvent(kind, roomNumber string, data any) ChannelEvent {
	return ChannelEvent{
		EventKind:  kind,
		RoomNumber: roomNumber,
		Timestamp:  time.Now(),
		Data:       data,
	}
}
