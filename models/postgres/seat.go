package postgres

import (
	"time"
)

// Seat status values, mirroring the player presence inside one room.
const (
	SeatStatusOnline  = "ONLINE"
	SeatStatusReady   = "READY"
	SeatStatusPlaying = "PLAYING"
	SeatStatusOffline = "OFFLINE"
)

// SpectatorPosition is the position shared by every spectator seat. Player
// seats occupy 1..MaxPlayers, pairwise distinct within a room.
const SpectatorPosition = 0

/*
 * 'Seat' represents one player's (or spectator's) membership inside a room.
 * It never survives the room and never moves across rooms: it is created on
 * join and deleted on leave or room teardown.
 */
// NOTE: composite primary key, one seat per (room, player)
type Seat struct {
	RoomID       uint   `gorm:"primaryKey;not null"`
	PlayerID     string `gorm:"primaryKey;size:36;not null;index"`
	PlayerName   string `gorm:"size:20;not null"`
	PlayerAvatar string `gorm:"size:200"`
	Position     int    `gorm:"not null"`
	SeatStatus   string `gorm:"size:10;not null;default:'ONLINE';index"`
	Spectator    bool   `gorm:"not null;default:false"`
	TotalScore   int    `gorm:"not null;default:0"`
	WinsCount    int    `gorm:"not null;default:0"`
	ReadyAt      *time.Time
	JoinedAt     time.Time `gorm:"default:CURRENT_TIMESTAMP"`
	LastActiveAt time.Time `gorm:"default:CURRENT_TIMESTAMP"`

	// Relationship with the containing room
	Room Room `gorm:"foreignKey:RoomID"`
}

func (s *Seat) IsReady() bool {
	return s.SeatStatus == SeatStatusReady
}

func (s *Seat) IsPlaying() bool {
	return s.SeatStatus == SeatStatusPlaying
}

// SetReady stamps the ready time the moment the seat becomes ready.
func (s *Seat) SetReady(now time.Time) {
	s.SeatStatus = SeatStatusReady
	s.ReadyAt = &now
	s.LastActiveAt = now
}

func (s *Seat) SetOnline(now time.Time) {
	s.SeatStatus = SeatStatusOnline
	s.ReadyAt = nil
	s.LastActiveAt = now
}

func (s *Seat) SetPlaying(now time.Time) {
	s.SeatStatus = SeatStatusPlaying
	s.LastActiveAt = now
}

// ResetForNewGame puts the seat back into the pre-ready state between rounds.
func (s *Seat) ResetForNewGame(now time.Time) {
	s.SeatStatus = SeatStatusOnline
	s.ReadyAt = nil
	s.LastActiveAt = now
}
