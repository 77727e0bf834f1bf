package postgres

import (
	"time"

	"gorm.io/datatypes"
)

/*
 * 'PlayerProfile' is the durable identity of a guest player. Seats reference
 * it by PlayerID; the profile outlives any single room.
 */
type PlayerProfile struct {
	ID         string         `gorm:"primaryKey;size:36;not null"`
	Nickname   string         `gorm:"size:20;not null;uniqueIndex"`
	Avatar     string         `gorm:"size:200"`
	Statistics datatypes.JSON `gorm:"type:jsonb;default:'{}'"` // opaque cross-game stats
	CreatedAt  time.Time      `gorm:"default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time
}
