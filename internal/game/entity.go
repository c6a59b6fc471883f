package game

import (
	"math"

	"github.com/skirmish/client/config"
	"github.com/skirmish/client/internal/protocol"
)

// Ownership describes who drives an entity's motion each tick.
type Ownership uint8

const (
	// OwnershipLocal entities are moved by prediction; server transforms
	// only correct them via the error offset.
	OwnershipLocal Ownership = iota
	// OwnershipRemote entities are moved by interpolating server snapshots.
	OwnershipRemote
)

// snapshotPoint is one authoritative transform sample kept for interpolation.
type snapshotPoint struct {
	Position  Vec3
	Yaw       float64
	HeadPitch float64
}

// Entity is one player-controlled character known to the client.
type Entity struct {
	ID        uint32
	Ownership Ownership

	// Simulation state. For local entities this is the predicted state;
	// for remote entities it mirrors the latest snapshot.
	Position  Vec3
	Velocity  Vec3
	Yaw       float64
	HeadPitch float64
	grounded  bool

	// errorOffset is the remaining visual divergence between where
	// prediction had placed the local entity and where the server put it.
	// It decays toward zero each frame and is added on top of Position
	// when rendering, so corrections never snap on screen.
	errorOffset Vec3

	// Interpolation window for remote entities. prev and latest are the
	// two most recent snapshots; render state is blended between them.
	prev      snapshotPoint
	latest    snapshotPoint
	snapshots int
}

// World owns the entity table. It is written only from the simulation
// goroutine; snapshot handlers run there too, after the drain step.
type World struct {
	entities map[uint32]*Entity
	localID  uint32
	hasLocal bool
	gate     *SnapshotGate
	geometry GeometryQuery
	alpha    float64
}

// NewWorld creates an empty world with the given snapshot admission
// policy. The local entity is registered once the room handshake
// reports its id.
func NewWorld(geometry GeometryQuery, ordering SnapshotOrdering) *World {
	return &World{
		entities: make(map[uint32]*Entity),
		gate:     NewSnapshotGate(ordering),
		geometry: geometry,
	}
}

// SetLocalEntity registers the locally controlled entity. Any state a
// previous session left behind for that id is discarded. Id 0 is a
// valid server assignment.
func (w *World) SetLocalEntity(id uint32, spawn Vec3) *Entity {
	e := &Entity{
		ID:        id,
		Ownership: OwnershipLocal,
		Position:  spawn,
		grounded:  true,
	}
	w.entities[id] = e
	w.localID = id
	w.hasLocal = true
	return e
}

// Local returns the locally controlled entity, or nil before the
// handshake completes.
func (w *World) Local() *Entity {
	if !w.hasLocal {
		return nil
	}
	return w.entities[w.localID]
}

// Entity looks up an entity by id.
func (w *World) Entity(id uint32) (*Entity, bool) {
	e, ok := w.entities[id]
	return e, ok
}

// Remove drops an entity from the table, e.g. when its player leaves.
// Removing the local entity is ignored.
func (w *World) Remove(id uint32) {
	if w.hasLocal && id == w.localID {
		return
	}
	delete(w.entities, id)
	w.gate.Forget(id)
}

// EntityCount reports how many entities the world tracks.
func (w *World) EntityCount() int {
	return len(w.entities)
}

// SetAlpha stores the interpolation fraction for the current render
// frame. It is written once per frame, before any RenderPosition calls.
func (w *World) SetAlpha(alpha float64) {
	w.alpha = alpha
}

// ApplyTransform folds one authoritative transform into the world.
// Unknown remote entities are created implicitly: the join broadcast may
// arrive after the first transform for a new player.
func (w *World) ApplyTransform(snap protocol.TransformSnapshot) {
	if !w.gate.Admit(snap.EntityID, 0) {
		return
	}

	auth := Vec3{X: float64(snap.PosX), Y: float64(snap.PosY), Z: float64(snap.PosZ)}
	vel := Vec3{X: float64(snap.VelX), Y: float64(snap.VelY), Z: float64(snap.VelZ)}

	e, ok := w.entities[snap.EntityID]
	if !ok {
		e = &Entity{ID: snap.EntityID, Ownership: OwnershipRemote}
		e.Position = auth
		e.prev = snapshotPoint{Position: auth, Yaw: float64(snap.Yaw), HeadPitch: float64(snap.HeadPitch)}
		e.latest = e.prev
		e.snapshots = 1
		w.entities[snap.EntityID] = e
		return
	}

	if e.Ownership == OwnershipLocal {
		// Preserve where the entity was drawn, then adopt the server
		// state. The leftover divergence becomes the error offset.
		drawn := e.Position.Add(e.errorOffset)
		e.errorOffset = drawn.Sub(auth)
		e.Position = auth
		e.Velocity = vel
		return
	}

	e.prev = e.latest
	e.latest = snapshotPoint{
		Position:  auth,
		Yaw:       float64(snap.Yaw),
		HeadPitch: float64(snap.HeadPitch),
	}
	e.snapshots++
	e.Position = auth
	e.Velocity = vel
}

// DecayError shrinks the local entity's error offset exponentially.
// The decay never crosses zero, so the correction cannot overshoot, and
// offsets below the snap epsilon collapse outright.
func (w *World) DecayError(frameDelta float64) {
	local := w.Local()
	if local == nil {
		return
	}
	factor := math.Exp(-config.ErrorDecayRate * frameDelta)
	local.errorOffset = local.errorOffset.Scale(factor)
	if local.errorOffset.Length() < config.ErrorSnapEpsilon {
		local.errorOffset = Vec3{}
	}
}

// RenderPosition returns where an entity should be drawn this frame:
// the predicted position plus the decaying correction for the local
// entity, and the interpolated snapshot window for remote ones.
func (w *World) RenderPosition(id uint32) (Vec3, bool) {
	e, ok := w.entities[id]
	if !ok {
		return Vec3{}, false
	}
	if e.Ownership == OwnershipLocal {
		return e.Position.Add(e.errorOffset), true
	}
	if e.snapshots < 2 {
		return e.latest.Position, true
	}
	return Lerp(e.prev.Position, e.latest.Position, w.alpha), true
}

// RenderYaw returns the facing to draw an entity with, blended the same
// way as RenderPosition for remote entities.
func (w *World) RenderYaw(id uint32) (float64, bool) {
	e, ok := w.entities[id]
	if !ok {
		return 0, false
	}
	if e.Ownership == OwnershipLocal {
		return e.Yaw, true
	}
	if e.snapshots < 2 {
		return e.latest.Yaw, true
	}
	return lerpAngle(e.prev.Yaw, e.latest.Yaw, w.alpha), true
}

// lerpAngle interpolates along the shorter arc so a yaw flip across the
// ±pi seam does not spin the character the long way round.
func lerpAngle(a, b, t float64) float64 {
	diff := math.Mod(b-a+3*math.Pi, 2*math.Pi) - math.Pi
	return a + diff*t
}
