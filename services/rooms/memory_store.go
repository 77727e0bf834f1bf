package rooms

import (
	"context"
	"sort"
	"sync"
	"time"

	postgres "Majiang/models/postgres"
)

// MemoryStore is an in-memory RoomStore used by tests and local development.
// It hands out deep copies so callers mutate freely and commit explicitly,
// matching the read-mutate-persist cycle of the PostgreSQL store.
type MemoryStore struct {
	mu      sync.RWMutex
	nextID  uint
	rooms   map[uint]*postgres.Room // keyed by storage id, seats embedded
	configs map[uint]*postgres.GameConfig
	chat    []*postgres.ChatMessage
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		rooms:   make(map[uint]*postgres.Room),
		configs: make(map[uint]*postgres.GameConfig),
	}
	s.configs[1] = &postgres.GameConfig{
		ID:              1,
		ConfigName:      "standard",
		PlayerCount:     4,
		AllowSpectate:   true,
		RoomExpiryHours: 24,
		IsDefault:       true,
	}
	return s
}

// SeedConfig installs an additional rule configuration for tests.
func (s *MemoryStore) SeedConfig(config *postgres.GameConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *config
	s.configs[config.ID] = &cp
}

func copySeat(seat *postgres.Seat) *postgres.Seat {
	cp := *seat
	cp.Room = postgres.Room{}
	if seat.ReadyAt != nil {
		t := *seat.ReadyAt
		cp.ReadyAt = &t
	}
	return &cp
}

func copyRoom(room *postgres.Room) *postgres.Room {
	cp := *room
	if room.ExpiresAt != nil {
		t := *room.ExpiresAt
		cp.ExpiresAt = &t
	}
	cp.Seats = make([]*postgres.Seat, 0, len(room.Seats))
	for _, seat := range room.Seats {
		cp.Seats = append(cp.Seats, copySeat(seat))
	}
	return &cp
}

func (s *MemoryStore) findByNumber(roomNumber string) *postgres.Room {
	for _, room := range s.rooms {
		if room.RoomNumber == roomNumber {
			return room
		}
	}
	return nil
}

func (s *MemoryStore) GetByNumber(ctx context.Context, roomNumber string) (*postgres.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, Wrap(KindUnavailable, "storage timeout", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	room := s.findByNumber(roomNumber)
	if room == nil {
		return nil, E(KindNotFound, "room not found")
	}
	cp := copyRoom(room)
	if config, ok := s.configs[room.GameConfigID]; ok {
		cp.GameConfig = *config
	}
	return cp, nil
}

func (s *MemoryStore) NumberTaken(ctx context.Context, roomNumber string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, Wrap(KindUnavailable, "storage timeout", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findByNumber(roomNumber) != nil, nil
}

func (s *MemoryStore) Create(ctx context.Context, room *postgres.Room) error {
	if err := ctx.Err(); err != nil {
		return Wrap(KindUnavailable, "storage timeout", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	room.ID = s.nextID
	room.CreatedAt = time.Now()
	room.UpdatedAt = room.CreatedAt
	for _, seat := range room.Seats {
		seat.RoomID = room.ID
		seat.JoinedAt = room.CreatedAt
		seat.LastActiveAt = room.CreatedAt
	}
	s.rooms[room.ID] = copyRoom(room)
	return nil
}

func (s *MemoryStore) SaveRoom(ctx context.Context, room *postgres.Room) error {
	if err := ctx.Err(); err != nil {
		return Wrap(KindUnavailable, "storage timeout", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.rooms[room.ID]
	if !ok {
		return E(KindNotFound, "room not found")
	}
	room.UpdatedAt = time.Now()
	cp := copyRoom(room)
	cp.Seats = stored.Seats
	s.rooms[room.ID] = cp
	return nil
}

func (s *MemoryStore) saveSeatLocked(seat *postgres.Seat) error {
	stored, ok := s.rooms[seat.RoomID]
	if !ok {
		return E(KindNotFound, "room not found")
	}
	for i, existing := range stored.Seats {
		if existing.PlayerID == seat.PlayerID {
			stored.Seats[i] = copySeat(seat)
			return nil
		}
	}
	return E(KindNotFound, "seat not found")
}

func (s *MemoryStore) SaveSeat(ctx context.Context, seat *postgres.Seat) error {
	if err := ctx.Err(); err != nil {
		return Wrap(KindUnavailable, "storage timeout", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveSeatLocked(seat)
}

func (s *MemoryStore) SaveSeats(ctx context.Context, room *postgres.Room, seats []*postgres.Seat) error {
	if err := s.SaveRoom(ctx, room); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, seat := range seats {
		if err := s.saveSeatLocked(seat); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) AddSeat(ctx context.Context, room *postgres.Room, seat *postgres.Seat) error {
	if err := ctx.Err(); err != nil {
		return Wrap(KindUnavailable, "storage timeout", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.rooms[room.ID]
	if !ok {
		return E(KindNotFound, "room not found")
	}
	seat.RoomID = room.ID
	seat.JoinedAt = time.Now()
	seat.LastActiveAt = seat.JoinedAt
	stored.Seats = append(stored.Seats, copySeat(seat))

	room.UpdatedAt = time.Now()
	cp := copyRoom(room)
	cp.Seats = stored.Seats
	s.rooms[room.ID] = cp
	return nil
}

func (s *MemoryStore) RemoveSeat(ctx context.Context, room *postgres.Room, seat *postgres.Seat) error {
	if err := ctx.Err(); err != nil {
		return Wrap(KindUnavailable, "storage timeout", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.rooms[room.ID]
	if !ok {
		return E(KindNotFound, "room not found")
	}
	kept := stored.Seats[:0]
	removed := false
	for _, existing := range stored.Seats {
		if existing.PlayerID == seat.PlayerID {
			removed = true
			continue
		}
		kept = append(kept, existing)
	}
	if !removed {
		return E(KindNotFound, "seat not found")
	}
	stored.Seats = kept

	room.UpdatedAt = time.Now()
	cp := copyRoom(room)
	cp.Seats = stored.Seats
	s.rooms[room.ID] = cp
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, room *postgres.Room) error {
	if err := ctx.Err(); err != nil {
		return Wrap(KindUnavailable, "storage timeout", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[room.ID]; !ok {
		return E(KindNotFound, "room not found")
	}
	delete(s.rooms, room.ID)
	kept := s.chat[:0]
	for _, msg := range s.chat {
		if msg.RoomID != room.ID {
			kept = append(kept, msg)
		}
	}
	s.chat = kept
	return nil
}

func (s *MemoryStore) List(ctx context.Context, filter RoomFilter) ([]*postgres.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, Wrap(KindUnavailable, "storage timeout", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*postgres.Room
	for _, room := range s.rooms {
		if filter.Status != "" && room.RoomStatus != filter.Status {
			continue
		}
		if filter.PublicOnly && room.HasPassword() {
			continue
		}
		result = append(result, copyRoom(room))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if filter.Size > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * filter.Size
		if start >= len(result) {
			return nil, nil
		}
		end := start + filter.Size
		if end > len(result) {
			end = len(result)
		}
		result = result[start:end]
	}
	return result, nil
}

func (s *MemoryStore) ListExpired(ctx context.Context, now time.Time) ([]*postgres.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, Wrap(KindUnavailable, "storage timeout", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var expired []*postgres.Room
	for _, room := range s.rooms {
		if room.IsExpired(now) {
			expired = append(expired, copyRoom(room))
		}
	}
	return expired, nil
}

func (s *MemoryStore) FindByPlayer(ctx context.Context, playerID string) (*postgres.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, Wrap(KindUnavailable, "storage timeout", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, room := range s.rooms {
		for _, seat := range room.Seats {
			if seat.PlayerID == playerID {
				return copyRoom(room), nil
			}
		}
	}
	return nil, E(KindNotFound, "player is not in any room")
}

func (s *MemoryStore) GetConfig(ctx context.Context, id uint) (*postgres.GameConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, Wrap(KindUnavailable, "storage timeout", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	config, ok := s.configs[id]
	if !ok {
		return nil, E(KindNotFound, "game config not found")
	}
	cp := *config
	return &cp, nil
}

func (s *MemoryStore) DefaultConfig(ctx context.Context) (*postgres.GameConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, Wrap(KindUnavailable, "storage timeout", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, config := range s.configs {
		if config.IsDefault {
			cp := *config
			return &cp, nil
		}
	}
	return nil, E(KindNotFound, "default game config not found")
}

func (s *MemoryStore) SaveChatMessage(ctx context.Context, msg *postgres.ChatMessage) error {
	if err := ctx.Err(); err != nil {
		return Wrap(KindUnavailable, "storage timeout", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[msg.RoomID]; !ok {
		return E(KindNotFound, "room not found")
	}
	cp := *msg
	s.chat = append(s.chat, &cp)
	return nil
}
