package socketio_types

import (
	"log"
	"sync"

	"Majiang/models"

	"github.com/zishang520/socket.io/v2/socket"
)

// Emitter delivers one event to one session. *socket.Socket satisfies it in
// production; tests substitute a recording fake.
type Emitter interface {
	Emit(event string, data ...any) error
}

// Session is one connected client. A player may hold several sessions at once
// (multiple tabs); each subscribes to room channels independently.
type Session struct {
	SessionID string
	PlayerID  string
	Emitter   Emitter
}

// SocketServer is the presence hub: it tracks which session belongs to which
// player and which room channels each session has joined, and fans events out
// to channel subscribers. It only holds transport state — seats live in the
// room store and survive a disconnect, so a player can reconnect into the
// same seat.
type SocketServer struct {
	Sio_server *socket.Server

	mutex sync.RWMutex
	// session id -> session
	sessions map[string]*Session
	// player id -> session ids
	playerSessions map[string]map[string]struct{}
	// room number -> session ids subscribed to that channel
	channels map[string]map[string]struct{}
	// session id -> room numbers, for O(1) disconnect cleanup
	sessionRooms map[string]map[string]struct{}
}

func NewSocketServer() *SocketServer {
	return &SocketServer{
		sessions:       make(map[string]*Session),
		playerSessions: make(map[string]map[string]struct{}),
		channels:       make(map[string]map[string]struct{}),
		sessionRooms:   make(map[string]map[string]struct{}),
	}
}

// Connect registers a session for a player.
func (s *SocketServer) Connect(sessionID, playerID string, emitter Emitter) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.sessions[sessionID] = &Session{
		SessionID: sessionID,
		PlayerID:  playerID,
		Emitter:   emitter,
	}
	if s.playerSessions[playerID] == nil {
		s.playerSessions[playerID] = make(map[string]struct{})
	}
	s.playerSessions[playerID][sessionID] = struct{}{}
}

// Disconnect removes the session from every channel it was subscribed to.
// Transport event only: no seat state is touched.
func (s *SocketServer) Disconnect(sessionID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	for roomNumber := range s.sessionRooms[sessionID] {
		s.dropFromChannel(sessionID, roomNumber)
	}
	delete(s.sessionRooms, sessionID)

	if byPlayer := s.playerSessions[session.PlayerID]; byPlayer != nil {
		delete(byPlayer, sessionID)
		if len(byPlayer) == 0 {
			delete(s.playerSessions, session.PlayerID)
		}
	}
	delete(s.sessions, sessionID)
}

// JoinChannel subscribes the session to a room's channel. Subscription is
// independent of seat membership: a client may subscribe before its seat is
// confirmed.
func (s *SocketServer) JoinChannel(sessionID, roomNumber string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return
	}
	if s.channels[roomNumber] == nil {
		s.channels[roomNumber] = make(map[string]struct{})
	}
	s.channels[roomNumber][sessionID] = struct{}{}
	if s.sessionRooms[sessionID] == nil {
		s.sessionRooms[sessionID] = make(map[string]struct{})
	}
	s.sessionRooms[sessionID][roomNumber] = struct{}{}
}

// LeaveChannel unsubscribes the session from a room's channel.
func (s *SocketServer) LeaveChannel(sessionID, roomNumber string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.dropFromChannel(sessionID, roomNumber)
	if rooms := s.sessionRooms[sessionID]; rooms != nil {
		delete(rooms, roomNumber)
		if len(rooms) == 0 {
			delete(s.sessionRooms, sessionID)
		}
	}
}

// dropFromChannel must be called with the mutex held.
func (s *SocketServer) dropFromChannel(sessionID, roomNumber string) {
	subscribers, ok := s.channels[roomNumber]
	if !ok {
		return
	}
	delete(subscribers, sessionID)
	if len(subscribers) == 0 {
		delete(s.channels, roomNumber)
	}
}

// Publish delivers the event to every session subscribed to the room's
// channel. At-most-once, best-effort: a failed emit is logged and skipped,
// the session recovers by re-fetching the room snapshot.
func (s *SocketServer) Publish(roomNumber string, eventKind string, data any) {
	s.emitToChannel(roomNumber, "", eventKind, data)
}

// PublishExcept is Publish minus every session of one player, so the actor of
// a change does not receive a redundant echo.
func (s *SocketServer) PublishExcept(roomNumber string, excludedPlayerID string, eventKind string, data any) {
	s.emitToChannel(roomNumber, excludedPlayerID, eventKind, data)
}

func (s *SocketServer) emitToChannel(roomNumber, excludedPlayerID, eventKind string, data any) {
	event := models.NewChannelEvent(eventKind, roomNumber, data)

	s.mutex.RLock()
	targets := make([]*Session, 0, len(s.channels[roomNumber]))
	for sessionID := range s.channels[roomNumber] {
		session, ok := s.sessions[sessionID]
		if !ok {
			continue
		}
		if excludedPlayerID != "" && session.PlayerID == excludedPlayerID {
			continue
		}
		targets = append(targets, session)
	}
	s.mutex.RUnlock()

	for _, session := range targets {
		if err := session.Emitter.Emit(eventKind, event); err != nil {
			log.Printf("[HUB-ERROR] Error emitting %s to session %s: %v",
				eventKind, session.SessionID, err)
		}
	}
}

// EmitToPlayer delivers an event to every session of one player.
func (s *SocketServer) EmitToPlayer(playerID string, eventKind string, data any) {
	s.mutex.RLock()
	targets := make([]*Session, 0, len(s.playerSessions[playerID]))
	for sessionID := range s.playerSessions[playerID] {
		if session, ok := s.sessions[sessionID]; ok {
			targets = append(targets, session)
		}
	}
	s.mutex.RUnlock()

	for _, session := range targets {
		if err := session.Emitter.Emit(eventKind, data); err != nil {
			log.Printf("[HUB-ERROR] Error emitting %s to player %s: %v",
				eventKind, playerID, err)
		}
	}
}

// GetSession returns the session registered under the given id.
func (s *SocketServer) GetSession(sessionID string) (*Session, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

// ChannelSize returns the number of sessions subscribed to a room's channel.
func (s *SocketServer) ChannelSize(roomNumber string) int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.channels[roomNumber])
}
