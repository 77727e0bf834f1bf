package rooms

import (
	"context"
	"time"

	postgres "Majiang/models/postgres"
)

// RoomFilter selects rooms for listing. Zero values mean "no filter".
type RoomFilter struct {
	Status     string
	PublicOnly bool // only rooms without a password
	Page       int  // 1-based
	Size       int
}

// RoomStore is the durable mapping from room number to the Room aggregate.
// Every method observes the context deadline; implementations map storage
// timeouts to Kind Unavailable and absent rows to Kind NotFound.
//
// Mutating methods are each atomic (all-or-nothing); serialization of
// competing mutations on the same room is the RoomRegistry's job, not the
// store's.
type RoomStore interface {
	// GetByNumber loads a room with its seats and game config preloaded.
	GetByNumber(ctx context.Context, roomNumber string) (*postgres.Room, error)
	// NumberTaken reports whether a live room already owns the number.
	NumberTaken(ctx context.Context, roomNumber string) (bool, error)
	// Create persists a new room together with its initial seats.
	Create(ctx context.Context, room *postgres.Room) error
	// SaveRoom persists the room row only.
	SaveRoom(ctx context.Context, room *postgres.Room) error
	// SaveSeat persists one seat row.
	SaveSeat(ctx context.Context, seat *postgres.Seat) error
	// SaveSeats persists the room row and all given seats in one commit.
	SaveSeats(ctx context.Context, room *postgres.Room, seats []*postgres.Seat) error
	// AddSeat inserts a seat and the updated room counts in one commit.
	AddSeat(ctx context.Context, room *postgres.Room, seat *postgres.Seat) error
	// RemoveSeat deletes a seat and persists the updated room in one commit.
	RemoveSeat(ctx context.Context, room *postgres.Room, seat *postgres.Seat) error
	// Delete removes the room and cascades deletion of all its seats.
	Delete(ctx context.Context, room *postgres.Room) error
	// List returns rooms matching the filter, newest first.
	List(ctx context.Context, filter RoomFilter) ([]*postgres.Room, error)
	// ListExpired returns rooms whose expiry lies before now.
	ListExpired(ctx context.Context, now time.Time) ([]*postgres.Room, error)
	// FindByPlayer returns the room holding a seat for the player, if any.
	FindByPlayer(ctx context.Context, playerID string) (*postgres.Room, error)
	// GetConfig loads a rule configuration by id.
	GetConfig(ctx context.Context, id uint) (*postgres.GameConfig, error)
	// DefaultConfig loads the seeded default rule configuration.
	DefaultConfig(ctx context.Context) (*postgres.GameConfig, error)
	// SaveChatMessage appends one chat line for a room.
	SaveChatMessage(ctx context.Context, msg *postgres.ChatMessage) error
}
