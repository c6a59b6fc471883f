package protocol

import (
	"math"
	"testing"
)

func floatClose(a, b float32) bool {
	return math.Abs(float64(a)-float64(b)) < 1e-6
}

func TestInputFrameRoundTrip(t *testing.T) {
	codec := NewCodec()
	frame := InputFrame{
		Sequence:   4821,
		Delta:      1.0 / 30.0,
		MoveX:      -0.75,
		MoveY:      1.0,
		Yaw:        2.31,
		Pitch:      -0.42,
		Flags:      InputFlagJump | InputFlagSprint,
		ClientTime: 1724800000123,
	}

	decoded, err := codec.DecodeInput(codec.EncodeInput(frame))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.Sequence != frame.Sequence {
		t.Fatalf("expected sequence %d, got %d", frame.Sequence, decoded.Sequence)
	}
	if decoded.ClientTime != frame.ClientTime {
		t.Fatalf("expected client time %d, got %d", frame.ClientTime, decoded.ClientTime)
	}
	if decoded.Flags != frame.Flags {
		t.Fatalf("expected flags %08b, got %08b", frame.Flags, decoded.Flags)
	}
	if !floatClose(decoded.MoveX, frame.MoveX) || !floatClose(decoded.MoveY, frame.MoveY) {
		t.Fatalf("movement axes drifted: got (%f, %f)", decoded.MoveX, decoded.MoveY)
	}
	if !floatClose(decoded.Yaw, frame.Yaw) || !floatClose(decoded.Pitch, frame.Pitch) {
		t.Fatalf("camera angles drifted: got (%f, %f)", decoded.Yaw, decoded.Pitch)
	}
}

func TestTransformRoundTrip(t *testing.T) {
	codec := NewCodec()
	snap := TransformSnapshot{
		EntityID:  42,
		PosX:      103.5, PosY: 7.25, PosZ: -88.125,
		Yaw:       -1.57,
		VelX:      3.2, VelY: -9.8, VelZ: 0.5,
		HeadPitch: 0.33,
	}

	decoded, err := codec.DecodeTransform(codec.EncodeTransform(snap))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.EntityID != snap.EntityID {
		t.Fatalf("expected entity %d, got %d", snap.EntityID, decoded.EntityID)
	}
	fields := [][2]float32{
		{decoded.PosX, snap.PosX}, {decoded.PosY, snap.PosY}, {decoded.PosZ, snap.PosZ},
		{decoded.Yaw, snap.Yaw},
		{decoded.VelX, snap.VelX}, {decoded.VelY, snap.VelY}, {decoded.VelZ, snap.VelZ},
		{decoded.HeadPitch, snap.HeadPitch},
	}
	for i, pair := range fields {
		if !floatClose(pair[0], pair[1]) {
			t.Fatalf("field %d drifted: expected %f, got %f", i, pair[1], pair[0])
		}
	}
}

func TestProjectileSpawnRoundTrip(t *testing.T) {
	codec := NewCodec()
	spawn := ProjectileSpawn{
		ProjectileID: 918,
		OwnerID:      7,
		PosX:         1.5, PosY: 1.62, PosZ: -4.0,
		DirX:         0.0, DirY: 0.1, DirZ: -0.995,
		Speed:        120.0,
	}

	decoded, err := codec.DecodeProjectileSpawn(codec.EncodeProjectileSpawn(spawn))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.ProjectileID != spawn.ProjectileID || decoded.OwnerID != spawn.OwnerID {
		t.Fatalf("identity drifted: got id=%d owner=%d", decoded.ProjectileID, decoded.OwnerID)
	}
	if !floatClose(decoded.Speed, spawn.Speed) {
		t.Fatalf("expected speed %f, got %f", spawn.Speed, decoded.Speed)
	}
	if !floatClose(decoded.DirZ, spawn.DirZ) {
		t.Fatalf("expected dirZ %f, got %f", spawn.DirZ, decoded.DirZ)
	}
}

func TestProjectileBatchRoundTrip(t *testing.T) {
	codec := NewCodec()
	pellets := make([]ProjectileSpawn, 8)
	for i := range pellets {
		pellets[i] = ProjectileSpawn{
			ProjectileID: int32(1000 + i),
			OwnerID:      3,
			PosX:         0.5, PosY: 1.6, PosZ: 0,
			DirX:         float32(i) * 0.01, DirY: 0, DirZ: -1,
			Speed:        90,
		}
	}

	encoded, err := codec.EncodeProjectileBatch(pellets)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	decoded, err := codec.DecodeProjectileBatch(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(decoded) != len(pellets) {
		t.Fatalf("expected %d spawns, got %d", len(pellets), len(decoded))
	}
	for i := range pellets {
		if decoded[i].ProjectileID != pellets[i].ProjectileID {
			t.Fatalf("pellet %d: expected id %d, got %d", i, pellets[i].ProjectileID, decoded[i].ProjectileID)
		}
		if !floatClose(decoded[i].DirX, pellets[i].DirX) {
			t.Fatalf("pellet %d: dirX drifted", i)
		}
	}
}

func TestProjectileDestroyRoundTrip(t *testing.T) {
	codec := NewCodec()
	decoded, err := codec.DecodeProjectileDestroy(codec.EncodeProjectileDestroy(ProjectileDestroy{ProjectileID: 918}))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.ProjectileID != 918 {
		t.Fatalf("expected id 918, got %d", decoded.ProjectileID)
	}
}

func TestPingPongRoundTrip(t *testing.T) {
	codec := NewCodec()
	ping, err := codec.DecodePing(codec.EncodePing(PingFrame{ClientTime: 555}))
	if err != nil {
		t.Fatalf("ping decode failed: %v", err)
	}
	if ping.ClientTime != 555 {
		t.Fatalf("expected client time 555, got %d", ping.ClientTime)
	}
	pong, err := codec.DecodePong(codec.EncodePong(PongFrame{ClientTime: 555}))
	if err != nil {
		t.Fatalf("pong decode failed: %v", err)
	}
	if pong.ClientTime != 555 {
		t.Fatalf("expected echoed time 555, got %d", pong.ClientTime)
	}
}

func TestDecodeRejectsShortBuffers(t *testing.T) {
	codec := NewCodec()
	if _, err := codec.DecodeTransform([]byte{byte(OpTransform), 1, 2}); err != ErrBufferTooSmall {
		t.Fatalf("expected ErrBufferTooSmall, got %v", err)
	}
	if _, err := codec.DecodeInput(nil); err != ErrBufferTooSmall {
		t.Fatalf("expected ErrBufferTooSmall, got %v", err)
	}
	truncated := codec.EncodeProjectileSpawn(ProjectileSpawn{ProjectileID: 1})
	if _, err := codec.DecodeProjectileBatch([]byte{byte(OpProjectileBatch), 2, truncated[1]}); err != ErrBufferTooSmall {
		t.Fatalf("expected ErrBufferTooSmall for truncated batch, got %v", err)
	}
}

func TestDecodeRejectsWrongOpcode(t *testing.T) {
	codec := NewCodec()
	encoded := codec.EncodeTransform(TransformSnapshot{EntityID: 1})
	if _, err := codec.DecodeProjectileSpawn(encoded); err != ErrInvalidMessage {
		t.Fatalf("expected ErrInvalidMessage, got %v", err)
	}
}

func TestOpcodeChannelClassification(t *testing.T) {
	binary := []Opcode{OpInput, OpPing, OpTransform, OpProjectileSpawn, OpProjectileBatch, OpProjectileDestroy, OpPong}
	for _, op := range binary {
		if !op.IsBinary() {
			t.Fatalf("expected %s to classify as binary", op)
		}
	}
	jsonOps := []Opcode{OpJoinRoom, OpRoomState, OpPlayerJoined, OpPlayerLeft, OpChat, OpCombatEvent, OpEconomyUpdate, OpError}
	for _, op := range jsonOps {
		if op.IsBinary() {
			t.Fatalf("expected %s to classify as JSON", op)
		}
	}
}

func TestJSONEnvelopeRoundTrip(t *testing.T) {
	framed, err := EncodeJSON(OpChat, ChatMessage{EntityID: 9, Name: "ana", Text: "push mid"})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if Opcode(framed[0]) != OpChat {
		t.Fatalf("expected opcode %s, got %s", OpChat, Opcode(framed[0]))
	}
	msg, err := DecodeJSON[ChatMessage](framed)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if msg.EntityID != 9 || msg.Text != "push mid" {
		t.Fatalf("payload drifted: %+v", msg)
	}
}

func TestJSONEnvelopeRejectsBinaryOpcode(t *testing.T) {
	if _, err := EncodeJSON(OpTransform, struct{}{}); err == nil {
		t.Fatalf("expected error for binary opcode on JSON channel")
	}
}

func TestErrorEnvelopeRoundTrip(t *testing.T) {
	framed, err := EncodeError(ErrorCodeRoomFull, "room is full")
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if Opcode(framed[0]) != OpError {
		t.Fatalf("expected opcode 0xFF, got 0x%02x", framed[0])
	}
	env, err := DecodeError(framed)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if env.Code != ErrorCodeRoomFull || env.Message != "room is full" {
		t.Fatalf("envelope drifted: %+v", env)
	}
}

func TestMalformedJSONPayloadIsRejected(t *testing.T) {
	data := append([]byte{byte(OpChat)}, []byte(`{"text": `)...)
	if _, err := DecodeJSON[ChatMessage](data); err == nil {
		t.Fatalf("expected error for malformed JSON payload")
	}
}
