package redis

import "time"

// ChatMessage is one chat line kept in the capped per-room history list.
type ChatMessage struct {
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}
