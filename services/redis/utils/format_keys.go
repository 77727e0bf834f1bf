package utils

/**
 * This file contains utility functions to format the keys for Redis
 * (key, value) pairs. It avoids having to call "fmt.Sprintf(...)"
 * with the same format spec every time, potentially confusing the key format.
 */

import (
	"fmt"
	"strings"
)

func FormatRoomStateKey(roomNumber string) string {
	return fmt.Sprintf("room:%s:state", roomNumber)
}

// RoomNumberFromStateKey recovers the room number from a "room:<n>:state"
// key. Returns "" when the key does not match the state key format.
func RoomNumberFromStateKey(key string) string {
	if !strings.HasPrefix(key, "room:") || !strings.HasSuffix(key, ":state") {
		return ""
	}
	return strings.TrimSuffix(strings.TrimPrefix(key, "room:"), ":state")
}

func FormatRoomChatKey(roomNumber string) string {
	return fmt.Sprintf("room:%s:chat", roomNumber)
}
