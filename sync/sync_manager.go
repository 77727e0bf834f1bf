package sync

import (
	models "Majiang/models/redis"
	"Majiang/services/redis"
	"Majiang/services/redis/utils"
	"database/sql"
	"fmt"
	"log"
	"time"
)

type SyncManager struct {
	redisClient *redis.RedisClient
	db          *sql.DB
}

// NewSyncManager creates a new instance of the synchronization manager
func NewSyncManager(redisClient *redis.RedisClient, db *sql.DB) *SyncManager {
	return &SyncManager{
		redisClient: redisClient,
		db:          db,
	}
}

// SyncRoomState rebuilds the cached state of a single room from PostgreSQL.
// Used after a cache miss or when the cached copy is suspected stale.
func (sm *SyncManager) SyncRoomState(roomNumber string) error {
	query := `
		SELECT room_name, room_status, max_players, current_players,
		       spectator_count, password_hash, allow_spectate
		FROM rooms
		WHERE room_number = $1
	`

	var state models.RoomState
	var passwordHash string
	err := sm.db.QueryRow(query, roomNumber).Scan(
		&state.RoomName,
		&state.RoomStatus,
		&state.MaxPlayers,
		&state.CurrentPlayers,
		&state.SpectatorCount,
		&passwordHash,
		&state.AllowSpectate,
	)
	if err == sql.ErrNoRows {
		// Room no longer exists, drop whatever the cache holds for it
		return sm.redisClient.DeleteRoomState(roomNumber)
	}
	if err != nil {
		return fmt.Errorf("error reading room %s from PostgreSQL: %v", roomNumber, err)
	}

	state.RoomNumber = roomNumber
	state.HasPassword = passwordHash != ""
	state.UpdatedAt = time.Now()

	if err := sm.redisClient.SaveRoomState(&state); err != nil {
		return fmt.Errorf("error writing room %s state to Redis: %v", roomNumber, err)
	}
	return nil
}

// ReconcileCache walks every cached room-state key and drops the ones whose
// room no longer exists in PostgreSQL, refreshing the ones that do. Run at
// startup so the cache never outlives the rooms it describes.
func (sm *SyncManager) ReconcileCache() error {
	keys, err := sm.redisClient.ScanRoomStateKeys()
	if err != nil {
		return fmt.Errorf("error scanning cached room states: %v", err)
	}

	var stale, refreshed int
	for _, key := range keys {
		roomNumber := utils.RoomNumberFromStateKey(key)
		if roomNumber == "" {
			continue
		}

		var exists bool
		err := sm.db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM rooms WHERE room_number = $1)`,
			roomNumber,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("error checking room %s in PostgreSQL: %v", roomNumber, err)
		}

		if !exists {
			if err := sm.redisClient.DeleteRoomState(roomNumber); err != nil {
				return fmt.Errorf("error purging stale room %s: %v", roomNumber, err)
			}
			stale++
			continue
		}

		if err := sm.SyncRoomState(roomNumber); err != nil {
			return err
		}
		refreshed++
	}

	log.Printf("[SYNC] cache reconciled: %d refreshed, %d purged", refreshed, stale)
	return nil
}
