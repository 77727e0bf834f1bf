package postgres_test

import (
	"Majiang/models/postgres"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoomCapacityHelpers(t *testing.T) {
	room := postgres.Room{
		RoomStatus:     postgres.RoomStatusWaiting,
		MaxPlayers:     2,
		CurrentPlayers: 1,
	}
	assert.False(t, room.IsFull())
	assert.True(t, room.CanJoin())
	assert.False(t, room.CanStart())

	room.CurrentPlayers = 2
	assert.True(t, room.IsFull())
	assert.False(t, room.CanJoin())
	assert.True(t, room.CanStart())

	room.RoomStatus = postgres.RoomStatusPlaying
	assert.False(t, room.CanJoin())
	assert.False(t, room.CanStart())
}

func TestRoomExpiry(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.False(t, (&postgres.Room{}).IsExpired(now))
	assert.True(t, (&postgres.Room{ExpiresAt: &past}).IsExpired(now))
	assert.False(t, (&postgres.Room{ExpiresAt: &future}).IsExpired(now))
}

func TestRoomSeatLookups(t *testing.T) {
	room := postgres.Room{
		Seats: []*postgres.Seat{
			{PlayerID: "alice", Position: 1},
			{PlayerID: "watcher", Position: postgres.SpectatorPosition, Spectator: true},
		},
	}

	assert.NotNil(t, room.SeatOf("alice"))
	assert.Nil(t, room.SeatOf("nobody"))
	assert.Len(t, room.ActiveSeats(), 1)
	assert.Equal(t, "alice", room.ActiveSeats()[0].PlayerID)
}

func TestSeatStatusTransitions(t *testing.T) {
	now := time.Now()
	seat := postgres.Seat{SeatStatus: postgres.SeatStatusOnline}

	seat.SetReady(now)
	assert.True(t, seat.IsReady())
	assert.NotNil(t, seat.ReadyAt)

	seat.SetPlaying(now)
	assert.True(t, seat.IsPlaying())

	seat.ResetForNewGame(now)
	assert.Equal(t, postgres.SeatStatusOnline, seat.SeatStatus)
	assert.Nil(t, seat.ReadyAt)

	seat.SetReady(now)
	seat.SetOnline(now)
	assert.False(t, seat.IsReady())
	assert.Nil(t, seat.ReadyAt)
}

func TestGameConfigActualPlayerCount(t *testing.T) {
	assert.Equal(t, 4, (&postgres.GameConfig{PlayerCount: 0}).ActualPlayerCount())
	assert.Equal(t, 4, (&postgres.GameConfig{PlayerCount: 9}).ActualPlayerCount())
	assert.Equal(t, 2, (&postgres.GameConfig{PlayerCount: 2}).ActualPlayerCount())
	assert.Equal(t, 3, (&postgres.GameConfig{PlayerCount: 3}).ActualPlayerCount())
}
