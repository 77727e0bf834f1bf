package redis

import (
	"fmt"
)

// CleanupKeys removes the specified keys from Redis
func (rc *RedisClient) CleanupKeys(keys []string) error {
	for _, key := range keys {
		if err := rc.Client.Del(rc.Ctx, key).Err(); err != nil {
			return fmt.Errorf("failed to cleanup Redis key %s: %v", key, err)
		}
	}
	return nil
}

// ScanRoomStateKeys returns every cached room-state key currently in Redis.
// Used by the sync manager to reconcile the cache against PostgreSQL.
func (rc *RedisClient) ScanRoomStateKeys() ([]string, error) {
	var keys []string
	iter := rc.Client.Scan(rc.Ctx, 0, "room:*:state", 0).Iterator()
	for iter.Next(rc.Ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan room state keys: %v", err)
	}
	return keys, nil
}
