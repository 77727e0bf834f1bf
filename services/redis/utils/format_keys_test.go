package utils_test

import (
	"Majiang/services/redis/utils"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomStateKeyRoundTrip(t *testing.T) {
	key := utils.FormatRoomStateKey("123456")
	assert.Equal(t, "room:123456:state", key)
	assert.Equal(t, "123456", utils.RoomNumberFromStateKey(key))
}

func TestRoomNumberFromStateKeyRejectsOtherKeys(t *testing.T) {
	assert.Equal(t, "", utils.RoomNumberFromStateKey("room:123456:chat"))
	assert.Equal(t, "", utils.RoomNumberFromStateKey("session:abc"))
}

func TestFormatRoomChatKey(t *testing.T) {
	assert.Equal(t, "room:123456:chat", utils.FormatRoomChatKey("123456"))
}
