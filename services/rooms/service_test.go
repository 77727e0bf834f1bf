package rooms_test

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	postgres "Majiang/models/postgres"
	redis_models "Majiang/models/redis"
	"Majiang/services/rooms"

	"github.com/stretchr/testify/assert"
)

// fakeBroadcaster records every published event kind, in order.
type fakeBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeBroadcaster) Publish(roomNumber string, eventKind string, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, eventKind)
}

func (f *fakeBroadcaster) PublishExcept(roomNumber string, excludedPlayerID string, eventKind string, data any) {
	f.Publish(roomNumber, eventKind, data)
}

func (f *fakeBroadcaster) kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

// fakeCache records saves and deletes keyed by room number.
type fakeCache struct {
	mu      sync.Mutex
	states  map[string]*redis_models.RoomState
	deleted []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{states: make(map[string]*redis_models.RoomState)}
}

func (f *fakeCache) SaveRoomState(state *redis_models.RoomState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[state.RoomNumber] = state
	return nil
}

func (f *fakeCache) DeleteRoomState(roomNumber string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.states, roomNumber)
	f.deleted = append(f.deleted, roomNumber)
	return nil
}

func newTestService() (*rooms.Service, *rooms.MemoryStore, *fakeBroadcaster) {
	store := rooms.NewMemoryStore()
	broadcaster := &fakeBroadcaster{}
	service := rooms.NewService(store, rooms.NewRegistry(), broadcaster, newFakeCache())
	return service, store, broadcaster
}

func createRoom(t *testing.T, service *rooms.Service, creator string, maxPlayers int, password string) string {
	t.Helper()
	snapshot, err := service.CreateRoom(context.Background(), rooms.CreateRoomParams{
		RoomName:    "test room",
		CreatorID:   creator,
		CreatorName: creator,
		MaxPlayers:  maxPlayers,
		Password:    password,
	})
	if err != nil {
		t.Fatalf("Error creating room: %v", err)
	}
	return snapshot.RoomNumber
}

func join(service *rooms.Service, roomNumber, playerID, password string, spectator bool) error {
	_, err := service.JoinRoom(context.Background(), rooms.JoinRoomParams{
		RoomNumber:  roomNumber,
		PlayerID:    playerID,
		PlayerName:  playerID,
		Password:    password,
		AsSpectator: spectator,
	})
	return err
}

func TestCreateRoomSeatsCreator(t *testing.T) {
	service, _, _ := newTestService()

	roomNumber := createRoom(t, service, "alice", 4, "")
	assert.Len(t, roomNumber, 6)

	snapshot, err := service.GetRoom(context.Background(), roomNumber)
	assert.NoError(t, err)
	assert.Equal(t, postgres.RoomStatusWaiting, snapshot.RoomStatus)
	assert.Equal(t, "alice", snapshot.CreatorID)
	assert.Equal(t, 1, snapshot.CurrentPlayers)
	assert.Equal(t, 4, snapshot.MaxPlayers)
	assert.False(t, snapshot.HasPassword)
	assert.NotNil(t, snapshot.ExpiresAt)

	assert.Len(t, snapshot.Seats, 1)
	assert.Equal(t, "alice", snapshot.Seats[0].PlayerID)
	assert.Equal(t, 1, snapshot.Seats[0].Position)
	assert.Equal(t, postgres.SeatStatusOnline, snapshot.Seats[0].Status)
}

func TestCreateRoomClampsCapacityToConfig(t *testing.T) {
	service, _, _ := newTestService()

	roomNumber := createRoom(t, service, "alice", 9, "")
	snapshot, err := service.GetRoom(context.Background(), roomNumber)
	assert.NoError(t, err)
	assert.Equal(t, 4, snapshot.MaxPlayers)
}

func TestGetRoomNotFound(t *testing.T) {
	service, _, _ := newTestService()

	_, err := service.GetRoom(context.Background(), "999999")
	assert.Error(t, err)
	assert.Equal(t, rooms.KindNotFound, rooms.KindOf(err))
}

func TestJoinRoomAssignsLowestFreePosition(t *testing.T) {
	service, _, _ := newTestService()
	roomNumber := createRoom(t, service, "alice", 4, "")

	assert.NoError(t, join(service, roomNumber, "bob", "", false))
	assert.NoError(t, join(service, roomNumber, "carol", "", false))

	// bob leaves; the next joiner takes his freed position, not a new one
	assert.NoError(t, service.LeaveRoom(context.Background(), roomNumber, "bob"))
	assert.NoError(t, join(service, roomNumber, "dave", "", false))

	snapshot, err := service.GetRoom(context.Background(), roomNumber)
	assert.NoError(t, err)
	positions := map[string]int{}
	for _, seat := range snapshot.Seats {
		positions[seat.PlayerID] = seat.Position
	}
	assert.Equal(t, 1, positions["alice"])
	assert.Equal(t, 2, positions["dave"])
	assert.Equal(t, 3, positions["carol"])
}

func TestJoinRoomAlreadyMember(t *testing.T) {
	service, _, _ := newTestService()
	roomNumber := createRoom(t, service, "alice", 4, "")

	err := join(service, roomNumber, "alice", "", false)
	assert.Error(t, err)
	assert.Equal(t, rooms.KindAlreadyMember, rooms.KindOf(err))
}

func TestJoinRoomPassword(t *testing.T) {
	service, _, _ := newTestService()
	roomNumber := createRoom(t, service, "alice", 4, "sekrit")

	err := join(service, roomNumber, "bob", "wrong", false)
	assert.Error(t, err)
	assert.Equal(t, rooms.KindForbidden, rooms.KindOf(err))

	assert.NoError(t, join(service, roomNumber, "bob", "sekrit", false))

	snapshot, err := service.GetRoom(context.Background(), roomNumber)
	assert.NoError(t, err)
	assert.True(t, snapshot.HasPassword)
	assert.Equal(t, 2, snapshot.CurrentPlayers)
}

func TestJoinRoomFull(t *testing.T) {
	service, _, _ := newTestService()
	roomNumber := createRoom(t, service, "alice", 2, "")

	assert.NoError(t, join(service, roomNumber, "bob", "", false))

	err := join(service, roomNumber, "carol", "", false)
	assert.Error(t, err)
	assert.Equal(t, rooms.KindRoomFull, rooms.KindOf(err))
}

func TestConcurrentJoinsExactlyOneWinsLastSeat(t *testing.T) {
	service, _, _ := newTestService()
	roomNumber := createRoom(t, service, "alice", 2, "")

	const contenders = 16
	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = join(service, roomNumber, fmt.Sprintf("player-%d", i), "", false)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.Equal(t, rooms.KindRoomFull, rooms.KindOf(err))
		}
	}
	assert.Equal(t, 1, winners)

	snapshot, err := service.GetRoom(context.Background(), roomNumber)
	assert.NoError(t, err)
	assert.Equal(t, 2, snapshot.CurrentPlayers)
}

func TestSpectatorJoinAndLeave(t *testing.T) {
	service, _, _ := newTestService()
	roomNumber := createRoom(t, service, "alice", 2, "")
	assert.NoError(t, join(service, roomNumber, "bob", "", false))

	// the room is full for players but still open for spectators
	assert.NoError(t, join(service, roomNumber, "watcher", "", true))

	snapshot, err := service.GetRoom(context.Background(), roomNumber)
	assert.NoError(t, err)
	assert.Equal(t, 1, snapshot.SpectatorCount)
	assert.Equal(t, 2, snapshot.CurrentPlayers)

	for _, seat := range snapshot.Seats {
		if seat.PlayerID == "watcher" {
			assert.True(t, seat.Spectator)
			assert.Equal(t, postgres.SpectatorPosition, seat.Position)
		}
	}

	assert.NoError(t, service.LeaveRoom(context.Background(), roomNumber, "watcher"))
	snapshot, err = service.GetRoom(context.Background(), roomNumber)
	assert.NoError(t, err)
	assert.Equal(t, 0, snapshot.SpectatorCount)
}

func TestLeaveRoomTransfersCreator(t *testing.T) {
	service, _, _ := newTestService()
	roomNumber := createRoom(t, service, "alice", 4, "")
	assert.NoError(t, join(service, roomNumber, "bob", "", false))
	assert.NoError(t, join(service, roomNumber, "carol", "", false))

	assert.NoError(t, service.LeaveRoom(context.Background(), roomNumber, "alice"))

	snapshot, err := service.GetRoom(context.Background(), roomNumber)
	assert.NoError(t, err)
	// bob sits at position 2, the lowest remaining
	assert.Equal(t, "bob", snapshot.CreatorID)
	assert.Equal(t, 2, snapshot.CurrentPlayers)
}

func TestLeaveRoomNotMember(t *testing.T) {
	service, _, _ := newTestService()
	roomNumber := createRoom(t, service, "alice", 4, "")

	err := service.LeaveRoom(context.Background(), roomNumber, "stranger")
	assert.Error(t, err)
	assert.Equal(t, rooms.KindNotFound, rooms.KindOf(err))
}

func startGame(t *testing.T, service *rooms.Service, roomNumber string, players ...string) {
	t.Helper()
	for _, player := range players {
		if _, err := service.SetReady(context.Background(), roomNumber, player, true); err != nil {
			t.Fatalf("Error setting %s ready: %v", player, err)
		}
	}
}

func TestSetReadyStartsGameWhenAllReady(t *testing.T) {
	service, _, broadcaster := newTestService()
	roomNumber := createRoom(t, service, "alice", 2, "")
	assert.NoError(t, join(service, roomNumber, "bob", "", false))

	snapshot, err := service.SetReady(context.Background(), roomNumber, "alice", true)
	assert.NoError(t, err)
	assert.Equal(t, postgres.RoomStatusWaiting, snapshot.RoomStatus)

	snapshot, err = service.SetReady(context.Background(), roomNumber, "bob", true)
	assert.NoError(t, err)
	assert.Equal(t, postgres.RoomStatusPlaying, snapshot.RoomStatus)
	for _, seat := range snapshot.Seats {
		assert.Equal(t, postgres.SeatStatusPlaying, seat.Status)
	}
	assert.Contains(t, broadcaster.kinds(), "game_status_change")
}

func TestSetReadyIdempotent(t *testing.T) {
	service, _, _ := newTestService()
	roomNumber := createRoom(t, service, "alice", 4, "")
	assert.NoError(t, join(service, roomNumber, "bob", "", false))

	_, err := service.SetReady(context.Background(), roomNumber, "alice", true)
	assert.NoError(t, err)
	_, err = service.SetReady(context.Background(), roomNumber, "alice", true)
	assert.NoError(t, err)

	_, err = service.SetReady(context.Background(), roomNumber, "alice", false)
	assert.NoError(t, err)
	_, err = service.SetReady(context.Background(), roomNumber, "alice", false)
	assert.NoError(t, err)

	snapshot, err := service.GetRoom(context.Background(), roomNumber)
	assert.NoError(t, err)
	assert.Equal(t, postgres.RoomStatusWaiting, snapshot.RoomStatus)
}

func TestSetReadyAfterStartIsNoOp(t *testing.T) {
	service, _, _ := newTestService()
	roomNumber := createRoom(t, service, "alice", 2, "")
	assert.NoError(t, join(service, roomNumber, "bob", "", false))
	startGame(t, service, roomNumber, "alice", "bob")

	// repeating ready after the implicit start must not fail
	snapshot, err := service.SetReady(context.Background(), roomNumber, "alice", true)
	assert.NoError(t, err)
	assert.Equal(t, postgres.RoomStatusPlaying, snapshot.RoomStatus)

	// un-readying mid-game is a real state violation
	_, err = service.SetReady(context.Background(), roomNumber, "alice", false)
	assert.Error(t, err)
	assert.Equal(t, rooms.KindInvalidState, rooms.KindOf(err))
}

func TestSetReadySpectatorForbidden(t *testing.T) {
	service, _, _ := newTestService()
	roomNumber := createRoom(t, service, "alice", 4, "")
	assert.NoError(t, join(service, roomNumber, "watcher", "", true))

	_, err := service.SetReady(context.Background(), roomNumber, "watcher", true)
	assert.Error(t, err)
	assert.Equal(t, rooms.KindInvalidState, rooms.KindOf(err))
}

func TestSetReadyNeedsTwoPlayers(t *testing.T) {
	service, _, _ := newTestService()
	roomNumber := createRoom(t, service, "alice", 4, "")

	snapshot, err := service.SetReady(context.Background(), roomNumber, "alice", true)
	assert.NoError(t, err)
	assert.Equal(t, postgres.RoomStatusWaiting, snapshot.RoomStatus)
}

func TestLeaveForbiddenMidGame(t *testing.T) {
	service, _, _ := newTestService()
	roomNumber := createRoom(t, service, "alice", 2, "")
	assert.NoError(t, join(service, roomNumber, "bob", "", false))
	assert.NoError(t, join(service, roomNumber, "watcher", "", true))
	startGame(t, service, roomNumber, "alice", "bob")

	err := service.LeaveRoom(context.Background(), roomNumber, "bob")
	assert.Error(t, err)
	assert.Equal(t, rooms.KindInvalidState, rooms.KindOf(err))

	// spectators are free to go at any time
	assert.NoError(t, service.LeaveRoom(context.Background(), roomNumber, "watcher"))
}

func TestJoinForbiddenMidGame(t *testing.T) {
	service, _, _ := newTestService()
	roomNumber := createRoom(t, service, "alice", 2, "")
	assert.NoError(t, join(service, roomNumber, "bob", "", false))
	startGame(t, service, roomNumber, "alice", "bob")

	err := join(service, roomNumber, "carol", "", false)
	assert.Error(t, err)
	assert.Equal(t, rooms.KindInvalidState, rooms.KindOf(err))

	// spectators may still come in while the game runs
	assert.NoError(t, join(service, roomNumber, "watcher", "", true))
}

func TestEndGameResetsSeats(t *testing.T) {
	service, _, _ := newTestService()
	roomNumber := createRoom(t, service, "alice", 2, "")
	assert.NoError(t, join(service, roomNumber, "bob", "", false))
	startGame(t, service, roomNumber, "alice", "bob")

	snapshot, err := service.EndGame(context.Background(), roomNumber)
	assert.NoError(t, err)
	assert.Equal(t, postgres.RoomStatusWaiting, snapshot.RoomStatus)
	for _, seat := range snapshot.Seats {
		assert.Equal(t, postgres.SeatStatusOnline, seat.Status)
		assert.False(t, seat.Ready)
	}

	// the room is reusable: everybody can ready up again
	startGame(t, service, roomNumber, "alice", "bob")
	snapshot, err = service.GetRoom(context.Background(), roomNumber)
	assert.NoError(t, err)
	assert.Equal(t, postgres.RoomStatusPlaying, snapshot.RoomStatus)
}

func TestEndGameWithoutGame(t *testing.T) {
	service, _, _ := newTestService()
	roomNumber := createRoom(t, service, "alice", 2, "")

	_, err := service.EndGame(context.Background(), roomNumber)
	assert.Error(t, err)
	assert.Equal(t, rooms.KindInvalidState, rooms.KindOf(err))
}

func TestCloseRoomDeletes(t *testing.T) {
	service, _, _ := newTestService()
	roomNumber := createRoom(t, service, "alice", 4, "")
	assert.NoError(t, join(service, roomNumber, "bob", "", false))

	err := service.CloseRoom(context.Background(), roomNumber, "bob")
	assert.Error(t, err)
	assert.Equal(t, rooms.KindForbidden, rooms.KindOf(err))

	assert.NoError(t, service.CloseRoom(context.Background(), roomNumber, "alice"))

	_, err = service.GetRoom(context.Background(), roomNumber)
	assert.Error(t, err)
	assert.Equal(t, rooms.KindNotFound, rooms.KindOf(err))
}

func TestCloseRoomForbiddenMidGame(t *testing.T) {
	service, _, _ := newTestService()
	roomNumber := createRoom(t, service, "alice", 2, "")
	assert.NoError(t, join(service, roomNumber, "bob", "", false))
	startGame(t, service, roomNumber, "alice", "bob")

	err := service.CloseRoom(context.Background(), roomNumber, "alice")
	assert.Error(t, err)
	assert.Equal(t, rooms.KindInvalidState, rooms.KindOf(err))
}

func TestGetPlayerRoom(t *testing.T) {
	service, _, _ := newTestService()
	roomNumber := createRoom(t, service, "alice", 4, "")

	snapshot, err := service.GetPlayerRoom(context.Background(), "alice")
	assert.NoError(t, err)
	assert.Equal(t, roomNumber, snapshot.RoomNumber)

	_, err = service.GetPlayerRoom(context.Background(), "nobody")
	assert.Error(t, err)
	assert.Equal(t, rooms.KindNotFound, rooms.KindOf(err))
}

func TestListRoomsFilters(t *testing.T) {
	service, _, _ := newTestService()
	createRoom(t, service, "alice", 4, "")
	createRoom(t, service, "bob", 4, "sekrit")

	all, err := service.ListRooms(context.Background(), rooms.RoomFilter{})
	assert.NoError(t, err)
	assert.Len(t, all, 2)

	public, err := service.ListRooms(context.Background(), rooms.RoomFilter{PublicOnly: true})
	assert.NoError(t, err)
	assert.Len(t, public, 1)
	assert.Equal(t, "alice", public[0].CreatorID)

	waiting, err := service.ListRooms(context.Background(), rooms.RoomFilter{Status: postgres.RoomStatusPlaying})
	assert.NoError(t, err)
	assert.Empty(t, waiting)
}

func TestCleanupExpiredRooms(t *testing.T) {
	service, store, _ := newTestService()
	store.SeedConfig(&postgres.GameConfig{
		ID:              7,
		ConfigName:      "short-lived",
		PlayerCount:     4,
		AllowSpectate:   true,
		RoomExpiryHours: -1, // already expired on creation
	})

	expired, err := service.CreateRoom(context.Background(), rooms.CreateRoomParams{
		RoomName:     "stale",
		CreatorID:    "alice",
		CreatorName:  "alice",
		GameConfigID: 7,
	})
	assert.NoError(t, err)
	fresh := createRoom(t, service, "bob", 4, "")

	reaped, err := service.CleanupExpiredRooms(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, reaped)

	_, err = service.GetRoom(context.Background(), expired.RoomNumber)
	assert.Equal(t, rooms.KindNotFound, rooms.KindOf(err))

	_, err = service.GetRoom(context.Background(), fresh)
	assert.NoError(t, err)
}

func TestPostChat(t *testing.T) {
	service, _, broadcaster := newTestService()
	roomNumber := createRoom(t, service, "alice", 4, "")

	msg, err := service.PostChat(context.Background(), roomNumber, "alice", "hello")
	assert.NoError(t, err)
	assert.Equal(t, "alice", msg.PlayerName)
	assert.Contains(t, broadcaster.kinds(), "chat_message")

	_, err = service.PostChat(context.Background(), roomNumber, "stranger", "hello")
	assert.Error(t, err)
	assert.Equal(t, rooms.KindNotFound, rooms.KindOf(err))
}

func TestJoinPublishesEvents(t *testing.T) {
	service, _, broadcaster := newTestService()
	roomNumber := createRoom(t, service, "alice", 4, "")

	assert.NoError(t, join(service, roomNumber, "bob", "", false))
	kinds := broadcaster.kinds()
	assert.Contains(t, kinds, "player_joined")
	assert.Contains(t, kinds, "room_state_change")

	assert.NoError(t, service.LeaveRoom(context.Background(), roomNumber, "bob"))
	assert.Contains(t, broadcaster.kinds(), "player_left")
}

// Randomized churn: whatever interleaving of joins and leaves happens, the
// occupant count always equals the number of live non-spectator seats.
func TestRandomChurnKeepsCountsConsistent(t *testing.T) {
	service, _, _ := newTestService()
	roomNumber := createRoom(t, service, "creator", 4, "")

	players := []string{"p1", "p2", "p3", "p4", "p5", "p6"}
	inRoom := map[string]bool{}
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		player := players[rng.Intn(len(players))]
		if inRoom[player] {
			err := service.LeaveRoom(context.Background(), roomNumber, player)
			if err == nil {
				inRoom[player] = false
			}
		} else {
			err := join(service, roomNumber, player, "", false)
			if err == nil {
				inRoom[player] = true
			} else {
				assert.Equal(t, rooms.KindRoomFull, rooms.KindOf(err))
			}
		}

		snapshot, err := service.GetRoom(context.Background(), roomNumber)
		assert.NoError(t, err)

		live := 0
		positions := map[int]bool{}
		for _, seat := range snapshot.Seats {
			if seat.Spectator {
				continue
			}
			live++
			assert.False(t, positions[seat.Position], "duplicate position %d", seat.Position)
			positions[seat.Position] = true
			assert.GreaterOrEqual(t, seat.Position, 1)
			assert.LessOrEqual(t, seat.Position, snapshot.MaxPlayers)
		}
		assert.Equal(t, snapshot.CurrentPlayers, live)
	}
}
