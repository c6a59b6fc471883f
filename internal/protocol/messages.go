package protocol

import "fmt"

// Opcode is the first byte of every wire message. Opcodes at or below
// BinaryOpcodeMax carry fixed-schema binary payloads; everything up to
// OpError carries UTF-8 JSON; OpError is the reserved error envelope.
type Opcode byte

const (
	// High-frequency binary channel
	OpInput             Opcode = 0x01 // Client -> Server
	OpPing              Opcode = 0x02 // Client -> Server
	OpTransform         Opcode = 0x03 // Server -> Client
	OpProjectileSpawn   Opcode = 0x04 // Server -> Client
	OpProjectileBatch   Opcode = 0x05 // Server -> Client
	OpProjectileDestroy Opcode = 0x06 // Server -> Client
	OpPong              Opcode = 0x07 // Server -> Client

	BinaryOpcodeMax Opcode = 0x0F

	// Low-frequency JSON channel
	OpJoinRoom      Opcode = 0x10 // Client -> Server
	OpRoomState     Opcode = 0x11 // Server -> Client
	OpPlayerJoined  Opcode = 0x12 // Server -> Client
	OpPlayerLeft    Opcode = 0x13 // Server -> Client
	OpChat          Opcode = 0x14 // Both directions
	OpCombatEvent   Opcode = 0x15 // Server -> Client
	OpEconomyUpdate Opcode = 0x16 // Server -> Client

	OpError Opcode = 0xFF
)

// IsBinary reports whether the opcode belongs to the fixed-schema
// high-frequency channel.
func (op Opcode) IsBinary() bool {
	return op <= BinaryOpcodeMax
}

func (op Opcode) String() string {
	switch op {
	case OpInput:
		return "input"
	case OpPing:
		return "ping"
	case OpTransform:
		return "transform"
	case OpProjectileSpawn:
		return "projectileSpawn"
	case OpProjectileBatch:
		return "projectileBatch"
	case OpProjectileDestroy:
		return "projectileDestroy"
	case OpPong:
		return "pong"
	case OpJoinRoom:
		return "joinRoom"
	case OpRoomState:
		return "roomState"
	case OpPlayerJoined:
		return "playerJoined"
	case OpPlayerLeft:
		return "playerLeft"
	case OpChat:
		return "chat"
	case OpCombatEvent:
		return "combatEvent"
	case OpEconomyUpdate:
		return "economyUpdate"
	case OpError:
		return "error"
	}
	return fmt.Sprintf("unknown(0x%02x)", byte(op))
}

// Input flags (bit field)
const (
	InputFlagJump   uint8 = 1 << 0
	InputFlagSprint uint8 = 1 << 1
	InputFlagDive   uint8 = 1 << 2
)

// InputFrame is sent once per physics step (34 bytes).
// Delta carries the fixed timestep constant so the server can verify the
// client simulates at the agreed rate.
type InputFrame struct {
	Sequence   uint32
	Delta      float32
	MoveX      float32 // [-1, 1]
	MoveY      float32 // [-1, 1]
	Yaw        float32 // radians
	Pitch      float32 // radians
	Flags      uint8
	ClientTime int64 // Unix ms at capture
}

// TransformSnapshot is an authoritative entity transform (37 bytes).
type TransformSnapshot struct {
	EntityID  uint32
	PosX      float32
	PosY      float32
	PosZ      float32
	Yaw       float32
	VelX      float32
	VelY      float32
	VelZ      float32
	HeadPitch float32
}

// ProjectileSpawn is a single authoritative projectile spawn (37 bytes).
// Server-assigned ids are always positive; negative ids never appear on
// the wire, they are local prediction placeholders.
type ProjectileSpawn struct {
	ProjectileID int32
	OwnerID      uint32
	PosX         float32
	PosY         float32
	PosZ         float32
	DirX         float32
	DirY         float32
	DirZ         float32
	Speed        float32
}

// ProjectileDestroy removes a projectile by id (5 bytes).
type ProjectileDestroy struct {
	ProjectileID int32
}

// PingFrame carries a client timestamp echoed back in PongFrame.
type PingFrame struct {
	ClientTime int64
}

// PongFrame echoes the client timestamp for RTT measurement.
type PongFrame struct {
	ClientTime int64
}

// ErrorEnvelope is the JSON payload of OpError.
type ErrorEnvelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// JoinRequest is the room-join handshake, re-sent after every reconnect.
type JoinRequest struct {
	SessionID  string `json:"sessionId"`
	PlayerName string `json:"playerName"`
}

// RoomState answers a join request with the room roster and the entity id
// assigned to the local player.
type RoomState struct {
	RoomID        string       `json:"roomId"`
	LocalEntityID uint32       `json:"localEntityId"`
	Players       []RoomPlayer `json:"players"`
}

// RoomPlayer describes one roster entry.
type RoomPlayer struct {
	EntityID uint32 `json:"entityId"`
	Name     string `json:"name"`
}

// PlayerJoinedEvent announces a new remote player.
type PlayerJoinedEvent struct {
	EntityID uint32 `json:"entityId"`
	Name     string `json:"name"`
}

// PlayerLeftEvent announces a departed player.
type PlayerLeftEvent struct {
	EntityID uint32 `json:"entityId"`
}

// ChatMessage carries room chat in both directions.
type ChatMessage struct {
	EntityID uint32 `json:"entityId,omitempty"`
	Name     string `json:"name,omitempty"`
	Text     string `json:"text"`
}

// CombatEvent reports a server-resolved hit. Damage is authoritative;
// the client never computes it.
type CombatEvent struct {
	AttackerID uint32  `json:"attackerId"`
	VictimID   uint32  `json:"victimId"`
	Damage     float64 `json:"damage"`
	Headshot   bool    `json:"headshot"`
	Lethal     bool    `json:"lethal"`
}

// EconomyUpdate reports a wallet change (kill rewards, purchases).
type EconomyUpdate struct {
	EntityID uint32 `json:"entityId"`
	Balance  int64  `json:"balance"`
	Delta    int64  `json:"delta"`
	Reason   string `json:"reason,omitempty"`
}

// Error codes
const (
	ErrorCodeInvalidMessage = 1
	ErrorCodeRoomFull       = 2
	ErrorCodeKicked         = 3
	ErrorCodeServerError    = 4
)
