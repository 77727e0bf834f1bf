package redis

import "time"

// RoomState is the lightweight room record cached in Redis. Socket handlers
// consult it for existence/status checks without touching PostgreSQL; the
// authoritative aggregate always lives in the room store.
type RoomState struct {
	RoomNumber     string    `json:"room_number"`
	RoomName       string    `json:"room_name"`
	RoomStatus     string    `json:"room_status"`
	MaxPlayers     int       `json:"max_players"`
	CurrentPlayers int       `json:"current_players"`
	SpectatorCount int       `json:"spectator_count"`
	HasPassword    bool      `json:"has_password"`
	AllowSpectate  bool      `json:"allow_spectate"`
	UpdatedAt      time.Time `json:"updated_at"`
}
