// Package session tracks room membership state on the client: the
// roster, chat history, kill feed, wallet, and connection latency.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/skirmish/client/internal/protocol"
)

// chatLogSize bounds retained chat history.
const chatLogSize = 100

// combatLogSize bounds the retained kill feed.
const combatLogSize = 32

// Member is one roster entry.
type Member struct {
	EntityID uint32
	Name     string
}

// Session is the client's view of its room membership. Roster handlers
// run on the connection's read goroutine while the render loop reads,
// so all state sits behind a mutex.
type Session struct {
	mu sync.RWMutex

	id         uuid.UUID
	playerName string
	clock      clockwork.Clock

	roomID        string
	localEntityID uint32
	joined        bool

	members map[uint32]Member
	chat    []protocol.ChatMessage
	combat  []protocol.CombatEvent
	balance int64

	rtt          time.Duration
	lastPingSent time.Time
}

// New creates a session with a fresh id. The id persists across
// reconnects, which is how the server recognizes a returning client.
func New(playerName string, clock clockwork.Clock) *Session {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Session{
		id:         uuid.New(),
		playerName: playerName,
		clock:      clock,
		members:    make(map[uint32]Member),
	}
}

// ID returns the stable session identifier.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// JoinRequest builds the handshake payload sent on connect and after
// every reconnect.
func (s *Session) JoinRequest() protocol.JoinRequest {
	return protocol.JoinRequest{
		SessionID:  s.id.String(),
		PlayerName: s.playerName,
	}
}

// Joined reports whether a room-state answer has been received.
func (s *Session) Joined() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.joined
}

// LocalEntityID returns the entity id the server assigned, valid once
// Joined reports true.
func (s *Session) LocalEntityID() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.localEntityID
}

// RoomID returns the joined room's identifier.
func (s *Session) RoomID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roomID
}

// Members returns a copy of the current roster.
func (s *Session) Members() []Member {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Member, 0, len(s.members))
	for _, m := range s.members {
		out = append(out, m)
	}
	return out
}

// MemberName resolves an entity id to its display name.
func (s *Session) MemberName(entityID uint32) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[entityID]
	return m.Name, ok
}

// HandleRoomState applies the join answer. A reconnect replays the
// handshake, so the roster resets wholesale rather than merging.
func (s *Session) HandleRoomState(state protocol.RoomState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.roomID = state.RoomID
	s.localEntityID = state.LocalEntityID
	s.joined = true
	s.members = make(map[uint32]Member, len(state.Players))
	for _, p := range state.Players {
		s.members[p.EntityID] = Member{EntityID: p.EntityID, Name: p.Name}
	}
	log.Info().Str("room", state.RoomID).Uint32("entity", state.LocalEntityID).
		Int("players", len(state.Players)).Msg("joined room")
}

// HandlePlayerJoined adds a new roster entry.
func (s *Session) HandlePlayerJoined(ev protocol.PlayerJoinedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[ev.EntityID] = Member{EntityID: ev.EntityID, Name: ev.Name}
}

// HandlePlayerLeft removes a roster entry.
func (s *Session) HandlePlayerLeft(ev protocol.PlayerLeftEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.members, ev.EntityID)
}

// HandleChat appends to the bounded chat history.
func (s *Session) HandleChat(msg protocol.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.chat) == chatLogSize {
		copy(s.chat, s.chat[1:])
		s.chat = s.chat[:chatLogSize-1]
	}
	s.chat = append(s.chat, msg)
}

// Chat returns a copy of the chat history, oldest first.
func (s *Session) Chat() []protocol.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]protocol.ChatMessage, len(s.chat))
	copy(out, s.chat)
	return out
}

// HandleCombatEvent appends to the bounded kill feed.
func (s *Session) HandleCombatEvent(ev protocol.CombatEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.combat) == combatLogSize {
		copy(s.combat, s.combat[1:])
		s.combat = s.combat[:combatLogSize-1]
	}
	s.combat = append(s.combat, ev)
}

// CombatFeed returns a copy of recent combat events, oldest first.
func (s *Session) CombatFeed() []protocol.CombatEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]protocol.CombatEvent, len(s.combat))
	copy(out, s.combat)
	return out
}

// HandleEconomyUpdate records the local wallet balance. Updates for
// other players are ignored.
func (s *Session) HandleEconomyUpdate(up protocol.EconomyUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if up.EntityID != s.localEntityID {
		return
	}
	s.balance = up.Balance
}

// Balance returns the local wallet balance.
func (s *Session) Balance() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balance
}

// PingSent records the moment a ping left, pairing it with the next
// pong for the RTT estimate.
func (s *Session) PingSent() protocol.PingFrame {
	now := s.clock.Now()
	s.mu.Lock()
	s.lastPingSent = now
	s.mu.Unlock()
	return protocol.PingFrame{ClientTime: now.UnixMilli()}
}

// HandlePong updates the RTT estimate from an echoed ping.
func (s *Session) HandlePong(pong protocol.PongFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sent := time.UnixMilli(pong.ClientTime)
	rtt := s.clock.Now().Sub(sent)
	if rtt < 0 {
		return
	}
	s.rtt = rtt
}

// RTT returns the last measured round-trip time, zero before the first
// pong.
func (s *Session) RTT() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rtt
}
