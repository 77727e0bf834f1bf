package rooms_test

import (
	"context"
	"testing"
	"time"

	postgres "Majiang/models/postgres"
	"Majiang/services/rooms"

	"github.com/stretchr/testify/assert"
)

func TestReaperSweepRemovesExpiredRooms(t *testing.T) {
	service, store, _ := newTestService()
	store.SeedConfig(&postgres.GameConfig{
		ID:              9,
		ConfigName:      "short-lived",
		PlayerCount:     4,
		AllowSpectate:   true,
		RoomExpiryHours: -1,
	})

	stale, err := service.CreateRoom(context.Background(), rooms.CreateRoomParams{
		RoomName:     "stale",
		CreatorID:    "alice",
		CreatorName:  "alice",
		GameConfigID: 9,
	})
	assert.NoError(t, err)

	reaper := rooms.NewReaper(service, time.Minute)
	reaper.Sweep(context.Background())

	_, err = service.GetRoom(context.Background(), stale.RoomNumber)
	assert.Equal(t, rooms.KindNotFound, rooms.KindOf(err))
}

func TestReaperRunStopsOnCancel(t *testing.T) {
	service, _, _ := newTestService()
	reaper := rooms.NewReaper(service, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reaper.Run(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop after context cancellation")
	}
}
