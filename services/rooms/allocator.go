package rooms

import (
	postgres "Majiang/models/postgres"
)

// AllocateSeat returns the lowest-numbered free player position in 1..MaxPlayers.
// Pure function over the room snapshot: given the same aggregate it always
// returns the same answer, which keeps lifecycle operations idempotent under
// retry. Returns a RoomFull error when every position is held.
func AllocateSeat(room *postgres.Room) (int, error) {
	for position := 1; position <= room.MaxPlayers; position++ {
		occupied := false
		for _, seat := range room.Seats {
			if !seat.Spectator && seat.Position == position {
				occupied = true
				break
			}
		}
		if !occupied {
			return position, nil
		}
	}
	return 0, E(KindRoomFull, "room is full")
}
