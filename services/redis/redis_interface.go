package redis

import (
	redis_models "Majiang/models/redis"
	redis_utils "Majiang/services/redis/utils"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// roomStateTTL bounds how long a cached room state may outlive its room.
// Stale entries expire on their own even if an explicit delete was missed.
const roomStateTTL = 24 * time.Hour

// chatHistoryLimit caps the per-room chat history list.
const chatHistoryLimit = 100

// RedisClient handles Redis operations
type RedisClient struct {
	Client *redis.Client
	Ctx    context.Context
}

// NewRedisClient creates a new Redis client instance
func NewRedisClient(Addr string, DB int) *RedisClient {
	var client *redis.Client
	if Addr != "localhost:6379" {
		log.Println("Connecting to remote Redis...")
		opt, err := redis.ParseURL(Addr)
		if err != nil {
			panic("Error parsing Redis URL")
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{
			Addr: Addr,
			DB:   DB,
		})
	}
	return &RedisClient{
		Client: client,
		Ctx:    context.Background(),
	}
}

// SaveRoomState stores the lightweight room state in Redis
// Key format: "room:{number}:state"
func (rc *RedisClient) SaveRoomState(state *redis_models.RoomState) error {
	key := redis_utils.FormatRoomStateKey(state.RoomNumber)
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("error marshaling room state: %v", err)
	}
	return rc.Client.Set(rc.Ctx, key, data, roomStateTTL).Err()
}

// GetRoomState retrieves the cached room state from Redis.
// Returns nil without error when the key does not exist.
func (rc *RedisClient) GetRoomState(roomNumber string) (*redis_models.RoomState, error) {
	key := redis_utils.FormatRoomStateKey(roomNumber)
	data, err := rc.Client.Get(rc.Ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting room state: %v", err)
	}

	var state redis_models.RoomState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("error unmarshaling room state: %v", err)
	}
	return &state, nil
}

// DeleteRoomState removes the cached room state and its chat history
// in one pipeline.
func (rc *RedisClient) DeleteRoomState(roomNumber string) error {
	pipe := rc.Client.Pipeline()
	pipe.Del(rc.Ctx, redis_utils.FormatRoomStateKey(roomNumber))
	pipe.Del(rc.Ctx, redis_utils.FormatRoomChatKey(roomNumber))

	_, err := pipe.Exec(rc.Ctx)
	if err != nil {
		return fmt.Errorf("error deleting room state: %v", err)
	}
	return nil
}

// PushChatMessage appends a chat line to the capped per-room history
// Key format: "room:{number}:chat"
func (rc *RedisClient) PushChatMessage(roomNumber string, msg *redis_models.ChatMessage) error {
	key := redis_utils.FormatRoomChatKey(roomNumber)
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("error marshaling chat message: %v", err)
	}

	pipe := rc.Client.Pipeline()
	pipe.LPush(rc.Ctx, key, data)
	pipe.LTrim(rc.Ctx, key, 0, chatHistoryLimit-1)
	pipe.Expire(rc.Ctx, key, roomStateTTL)

	_, err = pipe.Exec(rc.Ctx)
	if err != nil {
		return fmt.Errorf("error pushing chat message: %v", err)
	}
	return nil
}

// GetChatHistory returns the most recent chat lines, newest first.
func (rc *RedisClient) GetChatHistory(roomNumber string, limit int) ([]redis_models.ChatMessage, error) {
	if limit <= 0 || limit > chatHistoryLimit {
		limit = chatHistoryLimit
	}
	key := redis_utils.FormatRoomChatKey(roomNumber)
	raw, err := rc.Client.LRange(rc.Ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("error getting chat history: %v", err)
	}

	history := make([]redis_models.ChatMessage, 0, len(raw))
	for _, item := range raw {
		var msg redis_models.ChatMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("error unmarshaling chat message: %v", err)
		}
		history = append(history, msg)
	}
	return history, nil
}
