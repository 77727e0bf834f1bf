package postgres

import (
	"time"
)

/*
 * 'ChatMessage' is one chat line inside a room. Content is stored as-is;
 * filtering is handled by an external collaborator before it reaches us.
 */
type ChatMessage struct {
	ID         uint      `gorm:"primaryKey"`
	RoomID     uint      `gorm:"not null;index"`
	PlayerID   string    `gorm:"size:36;not null"`
	PlayerName string    `gorm:"size:20;not null"`
	Content    string    `gorm:"size:500;not null"`
	CreatedAt  time.Time `gorm:"default:CURRENT_TIMESTAMP"`

	Room Room `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE"`
}
