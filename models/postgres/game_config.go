package postgres

import (
	"time"

	"gorm.io/datatypes"
)

/*
 * 'GameConfig' is the rule-configuration a room references. The room container
 * only consumes the fields below; the full rule set (tile legality, scoring)
 * lives in ExtraConfig as an opaque blob for the external rule engine.
 */
type GameConfig struct {
	ID              uint           `gorm:"primaryKey"`
	ConfigName      string         `gorm:"size:50;not null"`
	PlayerCount     int            `gorm:"not null;default:4"`
	AllowSpectate   bool           `gorm:"not null;default:true"`
	RoomExpiryHours int            `gorm:"not null;default:24"`
	IsDefault       bool           `gorm:"not null;default:false;index"`
	ExtraConfig     datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
	CreatedAt       time.Time      `gorm:"default:CURRENT_TIMESTAMP"`
}

// ActualPlayerCount clamps the configured player count into the supported
// 2..4 range.
func (c *GameConfig) ActualPlayerCount() int {
	if c.PlayerCount < 2 || c.PlayerCount > 4 {
		return 4
	}
	return c.PlayerCount
}
