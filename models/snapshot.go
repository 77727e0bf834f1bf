package models

import (
	"sort"
	"time"

	postgres "Majiang/models/postgres"
)

// SeatSnapshot is the wire representation of one seat in a room.
type SeatSnapshot struct {
	PlayerID   string     `json:"player_id"`
	PlayerName string     `json:"player_name"`
	Avatar     string     `json:"avatar,omitempty"`
	Position   int        `json:"position"`
	Status     string     `json:"status"`
	Ready      bool       `json:"ready"`
	Spectator  bool       `json:"spectator"`
	TotalScore int        `json:"total_score"`
	WinsCount  int        `json:"wins_count"`
	JoinedAt   time.Time  `json:"joined_at"`
	ReadyAt    *time.Time `json:"ready_at,omitempty"`
}

// GameConfigSummary is the reduced rule-config view carried by snapshots.
type GameConfigSummary struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	PlayerCount int    `json:"player_count"`
}

// RoomSnapshot is the full client-facing view of a room. The password itself
// is never serialized, only the has_password flag.
type RoomSnapshot struct {
	RoomNumber     string             `json:"room_number"`
	RoomName       string             `json:"room_name"`
	RoomStatus     string             `json:"room_status"`
	MaxPlayers     int                `json:"max_players"`
	CurrentPlayers int                `json:"current_players"`
	SpectatorCount int                `json:"spectator_count"`
	HasPassword    bool               `json:"has_password"`
	AllowSpectate  bool               `json:"allow_spectate"`
	CreatorID      string             `json:"creator_id"`
	Seats          []SeatSnapshot     `json:"seats"`
	GameConfig     *GameConfigSummary `json:"game_config,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
	ExpiresAt      *time.Time         `json:"expires_at,omitempty"`
}

// NewSeatSnapshot maps a seat entity to its wire form.
func NewSeatSnapshot(s *postgres.Seat) SeatSnapshot {
	return SeatSnapshot{
		PlayerID:   s.PlayerID,
		PlayerName: s.PlayerName,
		Avatar:     s.PlayerAvatar,
		Position:   s.Position,
		Status:     s.SeatStatus,
		Ready:      s.IsReady(),
		Spectator:  s.Spectator,
		TotalScore: s.TotalScore,
		WinsCount:  s.WinsCount,
		JoinedAt:   s.JoinedAt,
		ReadyAt:    s.ReadyAt,
	}
}

// NewRoomSnapshot maps a room aggregate (seats preloaded) to its wire form.
// Seats are ordered by position, spectators last.
func NewRoomSnapshot(room *postgres.Room) *RoomSnapshot {
	seats := make([]SeatSnapshot, 0, len(room.Seats))
	for _, s := range room.Seats {
		seats = append(seats, NewSeatSnapshot(s))
	}
	sort.Slice(seats, func(i, j int) bool {
		if seats[i].Spectator != seats[j].Spectator {
			return !seats[i].Spectator
		}
		return seats[i].Position < seats[j].Position
	})

	snap := &RoomSnapshot{
		RoomNumber:     room.RoomNumber,
		RoomName:       room.RoomName,
		RoomStatus:     room.RoomStatus,
		MaxPlayers:     room.MaxPlayers,
		CurrentPlayers: room.CurrentPlayers,
		SpectatorCount: room.SpectatorCount,
		HasPassword:    room.HasPassword(),
		AllowSpectate:  room.AllowSpectate,
		CreatorID:      room.CreatorID,
		Seats:          seats,
		CreatedAt:      room.CreatedAt,
		UpdatedAt:      room.UpdatedAt,
		ExpiresAt:      room.ExpiresAt,
	}
	if room.GameConfig.ID != 0 {
		snap.GameConfig = &GameConfigSummary{
			ID:          room.GameConfig.ID,
			Name:        room.GameConfig.ConfigName,
			PlayerCount: room.GameConfig.PlayerCount,
		}
	}
	return snap
}
