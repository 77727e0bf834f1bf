package rooms_test

import (
	postgres "Majiang/models/postgres"
	"Majiang/services/rooms"
	"testing"

	"github.com/stretchr/testify/assert"
)

func seatAt(playerID string, position int) *postgres.Seat {
	return &postgres.Seat{
		PlayerID:   playerID,
		PlayerName: playerID,
		Position:   position,
		SeatStatus: postgres.SeatStatusOnline,
	}
}

func TestAllocateSeatLowestFreePosition(t *testing.T) {
	room := &postgres.Room{
		MaxPlayers: 4,
		Seats: []*postgres.Seat{
			seatAt("p1", 1),
			seatAt("p3", 3),
		},
	}

	position, err := rooms.AllocateSeat(room)
	assert.NoError(t, err)
	assert.Equal(t, 2, position)
}

func TestAllocateSeatIgnoresSpectators(t *testing.T) {
	spectator := seatAt("watcher", postgres.SpectatorPosition)
	spectator.Spectator = true

	room := &postgres.Room{
		MaxPlayers: 2,
		Seats:      []*postgres.Seat{spectator},
	}

	position, err := rooms.AllocateSeat(room)
	assert.NoError(t, err)
	assert.Equal(t, 1, position)
}

func TestAllocateSeatRoomFull(t *testing.T) {
	room := &postgres.Room{
		MaxPlayers: 2,
		Seats: []*postgres.Seat{
			seatAt("p1", 1),
			seatAt("p2", 2),
		},
	}

	_, err := rooms.AllocateSeat(room)
	assert.Error(t, err)
	assert.Equal(t, rooms.KindRoomFull, rooms.KindOf(err))
}

func TestAllocateSeatDeterministic(t *testing.T) {
	room := &postgres.Room{
		MaxPlayers: 4,
		Seats:      []*postgres.Seat{seatAt("p2", 2)},
	}

	first, err := rooms.AllocateSeat(room)
	assert.NoError(t, err)
	second, err := rooms.AllocateSeat(room)
	assert.NoError(t, err)
	assert.Equal(t, first, second)
}
