package rooms

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"Majiang/models"
	postgres "Majiang/models/postgres"
	redis_models "Majiang/models/redis"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Broadcaster fans out channel events to every session subscribed to a room.
// Delivery is at-most-once and best-effort; a session that misses an event
// recovers by re-fetching the room snapshot.
type Broadcaster interface {
	Publish(roomNumber string, eventKind string, data any)
	PublishExcept(roomNumber string, excludedPlayerID string, eventKind string, data any)
}

// StateCache keeps a lightweight copy of room state for fast existence and
// status checks. Best-effort: cache failures are logged, never surfaced.
type StateCache interface {
	SaveRoomState(state *redis_models.RoomState) error
	DeleteRoomState(roomNumber string) error
}

// Service is the room lifecycle state machine. Every mutation runs under the
// per-room serialization unit and re-validates its preconditions against the
// freshly loaded aggregate before committing, so concurrent operations on the
// same room can never act on stale reads.
type Service struct {
	store       RoomStore
	registry    *Registry
	broadcaster Broadcaster
	cache       StateCache
}

func NewService(store RoomStore, registry *Registry, broadcaster Broadcaster, cache StateCache) *Service {
	return &Service{
		store:       store,
		registry:    registry,
		broadcaster: broadcaster,
		cache:       cache,
	}
}

// CreateRoomParams carries the creation inputs. MaxPlayers outside 2..4 falls
// back to the rule configuration's player count.
type CreateRoomParams struct {
	RoomName      string
	CreatorID     string
	CreatorName   string
	CreatorAvatar string
	MaxPlayers    int
	Password      string
	GameConfigID  uint
}

// JoinRoomParams carries the join inputs for players and spectators alike.
type JoinRoomParams struct {
	RoomNumber   string
	PlayerID     string
	PlayerName   string
	PlayerAvatar string
	Password     string
	AsSpectator  bool
}

const maxNumberAttempts = 100

// generateRoomNumber allocates a fresh 6-digit room number, collision-checked
// against the store. After too many collisions it falls back to a
// high-entropy identifier so creation cannot loop forever.
func (s *Service) generateRoomNumber(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		number := fmt.Sprintf("%06d", rand.Intn(1000000))
		taken, err := s.store.NumberTaken(ctx, number)
		if err != nil {
			return "", err
		}
		if !taken {
			return number, nil
		}
	}
	return strings.ToUpper(uuid.NewString()[:8]), nil
}

// CreateRoom allocates a room number, creates the room in WAITING state and
// auto-seats the creator at position 1.
func (s *Service) CreateRoom(ctx context.Context, params CreateRoomParams) (*models.RoomSnapshot, error) {
	var config *postgres.GameConfig
	var err error
	if params.GameConfigID != 0 {
		config, err = s.store.GetConfig(ctx, params.GameConfigID)
	} else {
		config, err = s.store.DefaultConfig(ctx)
	}
	if err != nil {
		return nil, err
	}

	maxPlayers := params.MaxPlayers
	if maxPlayers < 2 || maxPlayers > 4 {
		maxPlayers = config.ActualPlayerCount()
	}

	passwordHash := ""
	if params.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, Wrap(KindInternal, "error hashing room password", err)
		}
		passwordHash = string(hash)
	}

	roomNumber, err := s.generateRoomNumber(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	expiresAt := now.Add(time.Duration(config.RoomExpiryHours) * time.Hour)
	room := &postgres.Room{
		RoomNumber:     roomNumber,
		RoomName:       params.RoomName,
		PasswordHash:   passwordHash,
		CreatorID:      params.CreatorID,
		MaxPlayers:     maxPlayers,
		CurrentPlayers: 1,
		RoomStatus:     postgres.RoomStatusWaiting,
		AllowSpectate:  config.AllowSpectate,
		GameConfigID:   config.ID,
		ExpiresAt:      &expiresAt,
		Seats: []*postgres.Seat{{
			PlayerID:     params.CreatorID,
			PlayerName:   params.CreatorName,
			PlayerAvatar: params.CreatorAvatar,
			Position:     1, // creator always takes position 1
			SeatStatus:   postgres.SeatStatusOnline,
		}},
	}

	err = s.registry.WithRoom(roomNumber, func() error {
		// re-check under the serialization unit: another creator could have
		// raced us to the same number between generation and commit
		taken, err := s.store.NumberTaken(ctx, roomNumber)
		if err != nil {
			return err
		}
		if taken {
			return E(KindUnavailable, "room number collision, retry")
		}
		return s.store.Create(ctx, room)
	})
	if err != nil {
		return nil, err
	}
	room.GameConfig = *config

	log.Printf("[ROOM] Room created: number=%s, creator=%s, capacity=%d",
		roomNumber, params.CreatorID, maxPlayers)
	s.refreshCache(room)
	return models.NewRoomSnapshot(room), nil
}

// JoinRoom seats a player (lowest free position) or a spectator (position 0)
// in the room. Exactly one of two concurrent joins racing for the last seat
// can win; the loser observes RoomFull.
func (s *Service) JoinRoom(ctx context.Context, params JoinRoomParams) (*models.RoomSnapshot, error) {
	var snapshot *models.RoomSnapshot
	var joined postgres.Seat

	err := s.registry.WithRoom(params.RoomNumber, func() error {
		room, err := s.store.GetByNumber(ctx, params.RoomNumber)
		if err != nil {
			return err
		}

		if params.AsSpectator {
			if room.RoomStatus == postgres.RoomStatusFinished {
				return E(KindInvalidState, "room is finished")
			}
		} else if room.RoomStatus != postgres.RoomStatusWaiting {
			return E(KindInvalidState, "room is not accepting players")
		}

		if room.HasPassword() {
			err := bcrypt.CompareHashAndPassword([]byte(room.PasswordHash), []byte(params.Password))
			if err != nil {
				return E(KindForbidden, "wrong room password")
			}
		}

		if room.SeatOf(params.PlayerID) != nil {
			return E(KindAlreadyMember, "player is already in this room")
		}

		now := time.Now()
		seat := &postgres.Seat{
			RoomID:       room.ID,
			PlayerID:     params.PlayerID,
			PlayerName:   params.PlayerName,
			PlayerAvatar: params.PlayerAvatar,
			SeatStatus:   postgres.SeatStatusOnline,
			JoinedAt:     now,
			LastActiveAt: now,
		}

		if params.AsSpectator {
			if !room.AllowSpectate {
				return E(KindRoomFull, "room does not allow spectators")
			}
			seat.Position = postgres.SpectatorPosition
			seat.Spectator = true
			room.SpectatorCount++
		} else {
			if room.IsFull() {
				return E(KindRoomFull, "room is full")
			}
			position, err := AllocateSeat(room)
			if err != nil {
				return err
			}
			seat.Position = position
			room.CurrentPlayers++
		}

		if err := s.store.AddSeat(ctx, room, seat); err != nil {
			return err
		}
		room.Seats = append(room.Seats, seat)
		joined = *seat
		snapshot = models.NewRoomSnapshot(room)
		s.refreshCache(room)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[JOIN] Player joined: player=%s, room=%s, position=%d, spectator=%t",
		params.PlayerID, params.RoomNumber, joined.Position, joined.Spectator)
	s.publishExcept(params.RoomNumber, params.PlayerID, models.EventPlayerJoined, map[string]any{
		"player_id":   joined.PlayerID,
		"player_name": joined.PlayerName,
		"position":    joined.Position,
		"spectator":   joined.Spectator,
	})
	s.publish(params.RoomNumber, models.EventRoomStateChange, snapshot)
	return snapshot, nil
}

// LeaveRoom removes the player's seat. Non-spectators cannot leave while the
// game is in progress; that is deliberate policy, not an oversight. When the
// creator leaves a room that still has occupants, creatorship transfers to
// the occupant holding the lowest seat position.
func (s *Service) LeaveRoom(ctx context.Context, roomNumber, playerID string) error {
	var snapshot *models.RoomSnapshot
	var wasSpectator bool

	err := s.registry.WithRoom(roomNumber, func() error {
		room, err := s.store.GetByNumber(ctx, roomNumber)
		if err != nil {
			return err
		}

		seat := room.SeatOf(playerID)
		if seat == nil {
			return E(KindNotFound, "player is not in this room")
		}
		if !seat.Spectator && room.RoomStatus == postgres.RoomStatusPlaying {
			return E(KindInvalidState, "cannot leave while the game is in progress")
		}

		wasSpectator = seat.Spectator
		if seat.Spectator {
			if room.SpectatorCount > 0 {
				room.SpectatorCount--
			}
		} else {
			if room.CurrentPlayers > 0 {
				room.CurrentPlayers--
			}
		}

		remaining := make([]*postgres.Seat, 0, len(room.Seats)-1)
		for _, existing := range room.Seats {
			if existing.PlayerID != playerID {
				remaining = append(remaining, existing)
			}
		}
		room.Seats = remaining

		if playerID == room.CreatorID && room.CurrentPlayers > 0 {
			var lowest *postgres.Seat
			for _, candidate := range room.ActiveSeats() {
				if lowest == nil || candidate.Position < lowest.Position {
					lowest = candidate
				}
			}
			if lowest != nil {
				room.CreatorID = lowest.PlayerID
				log.Printf("[LEAVE] Creator role transferred: room=%s, new_creator=%s",
					roomNumber, lowest.PlayerID)
			}
		}

		if err := s.store.RemoveSeat(ctx, room, seat); err != nil {
			return err
		}
		snapshot = models.NewRoomSnapshot(room)
		s.refreshCache(room)
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("[LEAVE] Player left: player=%s, room=%s, spectator=%t",
		playerID, roomNumber, wasSpectator)
	s.publishExcept(roomNumber, playerID, models.EventPlayerLeft, map[string]any{
		"player_id": playerID,
		"spectator": wasSpectator,
	})
	s.publish(roomNumber, models.EventRoomStateChange, snapshot)
	return nil
}

// SetReady flips the seat between READY and ONLINE. Spectators cannot change
// readiness. Repeating the current state is a no-op, not an error. Once every
// non-spectator seat is ready and at least two players are seated, the room
// transitions to PLAYING.
func (s *Service) SetReady(ctx context.Context, roomNumber, playerID string, ready bool) (*models.RoomSnapshot, error) {
	var snapshot *models.RoomSnapshot
	var started bool

	err := s.registry.WithRoom(roomNumber, func() error {
		room, err := s.store.GetByNumber(ctx, roomNumber)
		if err != nil {
			return err
		}

		seat := room.SeatOf(playerID)
		if seat == nil {
			return E(KindNotFound, "player is not in this room")
		}
		if seat.Spectator {
			return E(KindInvalidState, "spectators cannot change readiness")
		}

		// no-op guard: repeating the present state must not fail, even when a
		// previous ready call already started the game
		if ready && (seat.IsReady() || seat.IsPlaying()) ||
			!ready && seat.SeatStatus == postgres.SeatStatusOnline {
			snapshot = models.NewRoomSnapshot(room)
			return nil
		}
		if room.RoomStatus != postgres.RoomStatusWaiting {
			return E(KindInvalidState, "room is not waiting for players")
		}

		now := time.Now()
		if ready {
			seat.SetReady(now)
		} else {
			seat.SetOnline(now)
		}
		if err := s.store.SaveSeat(ctx, seat); err != nil {
			return err
		}

		started, err = s.maybeStartGame(ctx, room)
		if err != nil {
			return err
		}
		snapshot = models.NewRoomSnapshot(room)
		s.refreshCache(room)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(roomNumber, models.EventPlayerReadyChange, map[string]any{
		"player_id": playerID,
		"ready":     ready,
	})
	if started {
		log.Printf("[GAME] Game started: room=%s", roomNumber)
		s.publish(roomNumber, models.EventGameStatusChange, map[string]any{
			"room_status": postgres.RoomStatusPlaying,
		})
	}
	s.publish(roomNumber, models.EventRoomStateChange, snapshot)
	return snapshot, nil
}

// maybeStartGame performs the implicit WAITING -> PLAYING transition once all
// non-spectator seats are ready and at least two players are seated. Called
// with the room lock held.
func (s *Service) maybeStartGame(ctx context.Context, room *postgres.Room) (bool, error) {
	if !room.CanStart() {
		return false, nil
	}
	active := room.ActiveSeats()
	for _, seat := range active {
		if !seat.IsReady() {
			return false, nil
		}
	}

	now := time.Now()
	room.RoomStatus = postgres.RoomStatusPlaying
	for _, seat := range active {
		seat.SetPlaying(now)
	}
	if err := s.store.SaveSeats(ctx, room, active); err != nil {
		return false, err
	}
	return true, nil
}

// EndGame performs the PLAYING -> WAITING transition: rooms are reused across
// rounds rather than recreated, so seats are reset for the next one.
func (s *Service) EndGame(ctx context.Context, roomNumber string) (*models.RoomSnapshot, error) {
	var snapshot *models.RoomSnapshot

	err := s.registry.WithRoom(roomNumber, func() error {
		room, err := s.store.GetByNumber(ctx, roomNumber)
		if err != nil {
			return err
		}
		if room.RoomStatus != postgres.RoomStatusPlaying {
			return E(KindInvalidState, "no game in progress")
		}

		now := time.Now()
		room.RoomStatus = postgres.RoomStatusWaiting
		active := room.ActiveSeats()
		for _, seat := range active {
			seat.ResetForNewGame(now)
		}
		if err := s.store.SaveSeats(ctx, room, active); err != nil {
			return err
		}
		snapshot = models.NewRoomSnapshot(room)
		s.refreshCache(room)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[GAME] Game ended: room=%s", roomNumber)
	s.publish(roomNumber, models.EventGameStatusChange, map[string]any{
		"room_status": postgres.RoomStatusWaiting,
	})
	s.publish(roomNumber, models.EventRoomStateChange, snapshot)
	return snapshot, nil
}

// CloseRoom moves the room to FINISHED and tears it down, cascading deletion
// of all seats. Irreversible. Only the creator may close a room; an empty
// actorID bypasses the check for internal callers.
func (s *Service) CloseRoom(ctx context.Context, roomNumber, actorID string) error {
	err := s.registry.WithRoom(roomNumber, func() error {
		room, err := s.store.GetByNumber(ctx, roomNumber)
		if err != nil {
			return err
		}
		if actorID != "" && actorID != room.CreatorID {
			return E(KindForbidden, "only the creator can close the room")
		}
		if room.RoomStatus == postgres.RoomStatusPlaying {
			return E(KindInvalidState, "cannot close the room while the game is in progress")
		}
		room.RoomStatus = postgres.RoomStatusFinished
		if err := s.store.Delete(ctx, room); err != nil {
			return err
		}
		if s.cache != nil {
			if err := s.cache.DeleteRoomState(roomNumber); err != nil {
				log.Printf("[CACHE-ERROR] Error deleting room state: room=%s, err=%v", roomNumber, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("[ROOM] Room closed: number=%s", roomNumber)
	s.publish(roomNumber, models.EventRoomStateChange, map[string]any{
		"room_status": postgres.RoomStatusFinished,
	})
	return nil
}

// GetRoom returns the current snapshot of the room.
func (s *Service) GetRoom(ctx context.Context, roomNumber string) (*models.RoomSnapshot, error) {
	room, err := s.store.GetByNumber(ctx, roomNumber)
	if err != nil {
		return nil, err
	}
	return models.NewRoomSnapshot(room), nil
}

// GetPlayerRoom returns the snapshot of the room the player is seated in.
func (s *Service) GetPlayerRoom(ctx context.Context, playerID string) (*models.RoomSnapshot, error) {
	room, err := s.store.FindByPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	return models.NewRoomSnapshot(room), nil
}

// ListRooms returns snapshots of the rooms matching the filter.
func (s *Service) ListRooms(ctx context.Context, filter RoomFilter) ([]*models.RoomSnapshot, error) {
	roomList, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	snapshots := make([]*models.RoomSnapshot, 0, len(roomList))
	for _, room := range roomList {
		snapshots = append(snapshots, models.NewRoomSnapshot(room))
	}
	return snapshots, nil
}

// CleanupExpiredRooms tears down every room whose expiry has passed, through
// the same per-room serialization as any client-triggered mutation. Failures
// are logged and left for the next sweep; the count of reaped rooms is
// returned.
func (s *Service) CleanupExpiredRooms(ctx context.Context) (int, error) {
	expired, err := s.store.ListExpired(ctx, time.Now())
	if err != nil {
		return 0, err
	}

	reaped := 0
	for _, candidate := range expired {
		roomNumber := candidate.RoomNumber
		err := s.registry.WithRoom(roomNumber, func() error {
			room, err := s.store.GetByNumber(ctx, roomNumber)
			if err != nil {
				return err
			}
			// re-validate: an activity extension may have moved the expiry
			if !room.IsExpired(time.Now()) {
				return nil
			}
			room.RoomStatus = postgres.RoomStatusFinished
			if err := s.store.Delete(ctx, room); err != nil {
				return err
			}
			if s.cache != nil {
				if err := s.cache.DeleteRoomState(roomNumber); err != nil {
					log.Printf("[CACHE-ERROR] Error deleting room state: room=%s, err=%v", roomNumber, err)
				}
			}
			reaped++
			s.publish(roomNumber, models.EventRoomStateChange, map[string]any{
				"room_status": postgres.RoomStatusFinished,
				"reason":      "expired",
			})
			return nil
		})
		if err != nil {
			log.Printf("[REAPER-ERROR] Error reaping room %s: %v", roomNumber, err)
		}
	}
	return reaped, nil
}

// PostChat persists one chat line and fans it out on the room channel. The
// content is stored and forwarded as-is.
func (s *Service) PostChat(ctx context.Context, roomNumber, playerID, content string) (*postgres.ChatMessage, error) {
	room, err := s.store.GetByNumber(ctx, roomNumber)
	if err != nil {
		return nil, err
	}
	seat := room.SeatOf(playerID)
	if seat == nil {
		return nil, E(KindNotFound, "player is not in this room")
	}

	msg := &postgres.ChatMessage{
		RoomID:     room.ID,
		PlayerID:   playerID,
		PlayerName: seat.PlayerName,
		Content:    content,
	}
	if err := s.store.SaveChatMessage(ctx, msg); err != nil {
		return nil, err
	}

	s.publish(roomNumber, models.EventChatMessage, map[string]any{
		"player_id":   playerID,
		"player_name": seat.PlayerName,
		"content":     content,
	})
	return msg, nil
}

func (s *Service) publish(roomNumber, eventKind string, data any) {
	if s.broadcaster != nil {
		s.broadcaster.Publish(roomNumber, eventKind, data)
	}
}

func (s *Service) publishExcept(roomNumber, excludedPlayerID, eventKind string, data any) {
	if s.broadcaster != nil {
		s.broadcaster.PublishExcept(roomNumber, excludedPlayerID, eventKind, data)
	}
}

func (s *Service) refreshCache(room *postgres.Room) {
	if s.cache == nil {
		return
	}
	state := &redis_models.RoomState{
		RoomNumber:     room.RoomNumber,
		RoomName:       room.RoomName,
		RoomStatus:     room.RoomStatus,
		MaxPlayers:     room.MaxPlayers,
		CurrentPlayers: room.CurrentPlayers,
		SpectatorCount: room.SpectatorCount,
		HasPassword:    room.HasPassword(),
		AllowSpectate:  room.AllowSpectate,
		UpdatedAt:      time.Now(),
	}
	if err := s.cache.SaveRoomState(state); err != nil {
		log.Printf("[CACHE-ERROR] Error caching room state: room=%s, err=%v", room.RoomNumber, err)
	}
}
