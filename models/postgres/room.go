package postgres

import (
	"time"

	"gorm.io/datatypes"
)

// Room status values. A room starts WAITING, alternates between WAITING and
// PLAYING across game rounds, and ends up FINISHED exactly once.
const (
	RoomStatusWaiting  = "WAITING"
	RoomStatusPlaying  = "PLAYING"
	RoomStatusFinished = "FINISHED"
)

/*
 * 'Room' defines the structure of a mahjong game room. The room number is the
 * externally visible identifier (distinct from the storage key), unique across
 * all live rooms. It contains references to GameConfig and the Seats currently
 * occupying it.
 */
type Room struct {
	ID           uint   `gorm:"primaryKey"`
	RoomNumber   string `gorm:"uniqueIndex;size:8;not null"`
	RoomName     string `gorm:"size:50"`
	PasswordHash string `gorm:"size:60"` // bcrypt hash, empty when the room is open
	CreatorID    string `gorm:"size:36;not null;index:idx_rooms_creator"`
	MaxPlayers   int    `gorm:"not null;default:4"`
	// CurrentPlayers counts non-spectator seats only
	CurrentPlayers int            `gorm:"not null;default:0"`
	SpectatorCount int            `gorm:"not null;default:0"`
	RoomStatus     string         `gorm:"size:10;not null;default:'WAITING';index:idx_rooms_status"`
	AllowSpectate  bool           `gorm:"not null;default:true"`
	GameConfigID   uint           `gorm:"index"`
	GameData       datatypes.JSON `gorm:"type:jsonb;default:'{}'"` // opaque round payload, stored and forwarded uninterpreted
	ExpiresAt      *time.Time     `gorm:"index:idx_rooms_expires"`
	CreatedAt      time.Time      `gorm:"default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time

	// Relationships
	GameConfig GameConfig `gorm:"foreignKey:GameConfigID"`
	Seats      []*Seat    `gorm:"foreignKey:RoomID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// IsFull reports whether every player position is taken.
func (r *Room) IsFull() bool {
	return r.CurrentPlayers >= r.MaxPlayers
}

// CanJoin reports whether a non-spectator may still enter the room.
func (r *Room) CanJoin() bool {
	return r.RoomStatus == RoomStatusWaiting && !r.IsFull()
}

// CanStart reports whether the room satisfies the minimum start condition.
// Readiness of individual seats is checked separately by the lifecycle service.
func (r *Room) CanStart() bool {
	return r.RoomStatus == RoomStatusWaiting && r.CurrentPlayers >= 2
}

func (r *Room) HasPassword() bool {
	return r.PasswordHash != ""
}

func (r *Room) IsExpired(now time.Time) bool {
	return r.ExpiresAt != nil && now.After(*r.ExpiresAt)
}

// ActiveSeats returns the non-spectator seats of the room.
func (r *Room) ActiveSeats() []*Seat {
	seats := make([]*Seat, 0, len(r.Seats))
	for _, s := range r.Seats {
		if !s.Spectator {
			seats = append(seats, s)
		}
	}
	return seats
}

// SeatOf returns the seat held by the given player, or nil.
func (r *Room) SeatOf(playerID string) *Seat {
	for _, s := range r.Seats {
		if s.PlayerID == playerID {
			return s
		}
	}
	return nil
}
