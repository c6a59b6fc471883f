package protocol

import (
	"errors"

	crunch "github.com/superwhiskers/crunch/v3"
)

var (
	ErrInvalidMessage = errors.New("invalid message")
	ErrBufferTooSmall = errors.New("buffer too small")
	ErrBatchTooLarge  = errors.New("batch too large")
)

// Wire sizes, opcode byte included.
const (
	inputFrameSize        = 34
	transformSize         = 37
	projectileSpawnSize   = 37
	projectileSpawnBody   = projectileSpawnSize - 1
	projectileDestroySize = 5
	pingFrameSize         = 9

	// MaxBatchSpawns bounds a multi-pellet spawn batch (shotgun blasts).
	MaxBatchSpawns = 32
)

// Codec handles binary encoding/decoding for the high-frequency channel.
// All multi-byte values are little-endian.
type Codec struct{}

// NewCodec creates a new codec.
func NewCodec() *Codec {
	return &Codec{}
}

// EncodeInput encodes a per-step input frame.
func (c *Codec) EncodeInput(frame InputFrame) []byte {
	buf := crunch.NewBuffer()
	buf.Grow(inputFrameSize)
	buf.WriteByteNext(byte(OpInput))
	buf.WriteU32LENext([]uint32{frame.Sequence})
	buf.WriteF32LENext([]float32{frame.Delta, frame.MoveX, frame.MoveY, frame.Yaw, frame.Pitch})
	buf.WriteByteNext(frame.Flags)
	buf.WriteI64LENext([]int64{frame.ClientTime})
	return buf.Bytes()
}

// DecodeInput decodes a per-step input frame.
func (c *Codec) DecodeInput(data []byte) (InputFrame, error) {
	if len(data) < inputFrameSize {
		return InputFrame{}, ErrBufferTooSmall
	}
	if Opcode(data[0]) != OpInput {
		return InputFrame{}, ErrInvalidMessage
	}

	buf := crunch.NewBuffer(data[1:inputFrameSize])
	frame := InputFrame{Sequence: buf.ReadU32LENext(1)[0]}
	f := buf.ReadF32LENext(5)
	frame.Delta, frame.MoveX, frame.MoveY, frame.Yaw, frame.Pitch = f[0], f[1], f[2], f[3], f[4]
	frame.Flags = buf.ReadByteNext()
	frame.ClientTime = buf.ReadI64LENext(1)[0]
	return frame, nil
}

// EncodeTransform encodes an authoritative entity transform.
func (c *Codec) EncodeTransform(snap TransformSnapshot) []byte {
	buf := crunch.NewBuffer()
	buf.Grow(transformSize)
	buf.WriteByteNext(byte(OpTransform))
	buf.WriteU32LENext([]uint32{snap.EntityID})
	buf.WriteF32LENext([]float32{
		snap.PosX, snap.PosY, snap.PosZ,
		snap.Yaw,
		snap.VelX, snap.VelY, snap.VelZ,
		snap.HeadPitch,
	})
	return buf.Bytes()
}

// DecodeTransform decodes an authoritative entity transform.
func (c *Codec) DecodeTransform(data []byte) (TransformSnapshot, error) {
	if len(data) < transformSize {
		return TransformSnapshot{}, ErrBufferTooSmall
	}
	if Opcode(data[0]) != OpTransform {
		return TransformSnapshot{}, ErrInvalidMessage
	}

	buf := crunch.NewBuffer(data[1:transformSize])
	snap := TransformSnapshot{EntityID: buf.ReadU32LENext(1)[0]}
	f := buf.ReadF32LENext(8)
	snap.PosX, snap.PosY, snap.PosZ = f[0], f[1], f[2]
	snap.Yaw = f[3]
	snap.VelX, snap.VelY, snap.VelZ = f[4], f[5], f[6]
	snap.HeadPitch = f[7]
	return snap, nil
}

// EncodeProjectileSpawn encodes a single authoritative spawn.
func (c *Codec) EncodeProjectileSpawn(spawn ProjectileSpawn) []byte {
	buf := crunch.NewBuffer()
	buf.Grow(projectileSpawnSize)
	buf.WriteByteNext(byte(OpProjectileSpawn))
	writeSpawnBody(buf, spawn)
	return buf.Bytes()
}

// DecodeProjectileSpawn decodes a single authoritative spawn.
func (c *Codec) DecodeProjectileSpawn(data []byte) (ProjectileSpawn, error) {
	if len(data) < projectileSpawnSize {
		return ProjectileSpawn{}, ErrBufferTooSmall
	}
	if Opcode(data[0]) != OpProjectileSpawn {
		return ProjectileSpawn{}, ErrInvalidMessage
	}
	return readSpawnBody(crunch.NewBuffer(data[1:projectileSpawnSize])), nil
}

// EncodeProjectileBatch encodes a count-prefixed spawn batch. All spawns in
// a batch share one owner (multi-pellet weapons fire as a unit).
func (c *Codec) EncodeProjectileBatch(spawns []ProjectileSpawn) ([]byte, error) {
	if len(spawns) > MaxBatchSpawns {
		return nil, ErrBatchTooLarge
	}
	buf := crunch.NewBuffer()
	buf.Grow(int64(2 + len(spawns)*projectileSpawnBody))
	buf.WriteByteNext(byte(OpProjectileBatch))
	buf.WriteByteNext(byte(len(spawns)))
	for _, spawn := range spawns {
		writeSpawnBody(buf, spawn)
	}
	return buf.Bytes(), nil
}

// DecodeProjectileBatch decodes a count-prefixed spawn batch.
func (c *Codec) DecodeProjectileBatch(data []byte) ([]ProjectileSpawn, error) {
	if len(data) < 2 {
		return nil, ErrBufferTooSmall
	}
	if Opcode(data[0]) != OpProjectileBatch {
		return nil, ErrInvalidMessage
	}

	count := int(data[1])
	if count > MaxBatchSpawns {
		return nil, ErrBatchTooLarge
	}
	if len(data) < 2+count*projectileSpawnBody {
		return nil, ErrBufferTooSmall
	}

	buf := crunch.NewBuffer(data[2 : 2+count*projectileSpawnBody])
	spawns := make([]ProjectileSpawn, count)
	for i := 0; i < count; i++ {
		spawns[i] = readSpawnBody(buf)
	}
	return spawns, nil
}

// EncodeProjectileDestroy encodes a projectile removal.
func (c *Codec) EncodeProjectileDestroy(msg ProjectileDestroy) []byte {
	buf := crunch.NewBuffer()
	buf.Grow(projectileDestroySize)
	buf.WriteByteNext(byte(OpProjectileDestroy))
	buf.WriteI32LENext([]int32{msg.ProjectileID})
	return buf.Bytes()
}

// DecodeProjectileDestroy decodes a projectile removal.
func (c *Codec) DecodeProjectileDestroy(data []byte) (ProjectileDestroy, error) {
	if len(data) < projectileDestroySize {
		return ProjectileDestroy{}, ErrBufferTooSmall
	}
	if Opcode(data[0]) != OpProjectileDestroy {
		return ProjectileDestroy{}, ErrInvalidMessage
	}
	buf := crunch.NewBuffer(data[1:projectileDestroySize])
	return ProjectileDestroy{ProjectileID: buf.ReadI32LENext(1)[0]}, nil
}

// EncodePing encodes a ping probe.
func (c *Codec) EncodePing(frame PingFrame) []byte {
	return encodeTimestamp(OpPing, frame.ClientTime)
}

// DecodePing decodes a ping probe.
func (c *Codec) DecodePing(data []byte) (PingFrame, error) {
	ts, err := decodeTimestamp(OpPing, data)
	return PingFrame{ClientTime: ts}, err
}

// EncodePong encodes a ping echo.
func (c *Codec) EncodePong(frame PongFrame) []byte {
	return encodeTimestamp(OpPong, frame.ClientTime)
}

// DecodePong decodes a ping echo.
func (c *Codec) DecodePong(data []byte) (PongFrame, error) {
	ts, err := decodeTimestamp(OpPong, data)
	return PongFrame{ClientTime: ts}, err
}

func writeSpawnBody(buf *crunch.Buffer, spawn ProjectileSpawn) {
	buf.WriteI32LENext([]int32{spawn.ProjectileID})
	buf.WriteU32LENext([]uint32{spawn.OwnerID})
	buf.WriteF32LENext([]float32{
		spawn.PosX, spawn.PosY, spawn.PosZ,
		spawn.DirX, spawn.DirY, spawn.DirZ,
		spawn.Speed,
	})
}

func readSpawnBody(buf *crunch.Buffer) ProjectileSpawn {
	spawn := ProjectileSpawn{
		ProjectileID: buf.ReadI32LENext(1)[0],
		OwnerID:      buf.ReadU32LENext(1)[0],
	}
	f := buf.ReadF32LENext(7)
	spawn.PosX, spawn.PosY, spawn.PosZ = f[0], f[1], f[2]
	spawn.DirX, spawn.DirY, spawn.DirZ = f[3], f[4], f[5]
	spawn.Speed = f[6]
	return spawn
}

func encodeTimestamp(op Opcode, ts int64) []byte {
	buf := crunch.NewBuffer()
	buf.Grow(pingFrameSize)
	buf.WriteByteNext(byte(op))
	buf.WriteI64LENext([]int64{ts})
	return buf.Bytes()
}

func decodeTimestamp(op Opcode, data []byte) (int64, error) {
	if len(data) < pingFrameSize {
		return 0, ErrBufferTooSmall
	}
	if Opcode(data[0]) != op {
		return 0, ErrInvalidMessage
	}
	buf := crunch.NewBuffer(data[1:pingFrameSize])
	return buf.ReadI64LENext(1)[0], nil
}
