package game

import (
	"math"

	"github.com/skirmish/client/config"
)

// GeometryQuery answers the two world-geometry questions prediction
// needs. Implementations must be pure with respect to the simulation:
// the same query during replay must return the same answer.
type GeometryQuery interface {
	// GroundHeight returns the walkable surface height under (x, z).
	GroundHeight(x, z float64) float64
	// ResolveCollision pushes a capsule center out of static geometry
	// and returns the corrected position.
	ResolveCollision(pos Vec3, radius float64) Vec3
}

// FlatGround is the trivial geometry: an infinite plane at y=0 with no
// obstacles. Useful for headless runs and tests.
type FlatGround struct{}

func (FlatGround) GroundHeight(x, z float64) float64 { return 0 }

func (FlatGround) ResolveCollision(p Vec3, r float64) Vec3 { return p }

// PredictLocal advances the locally controlled entity by one fixed step
// using a captured input sample. The same routine the server runs, so a
// lag-free connection produces zero correction offsets.
func (w *World) PredictLocal(sample InputSample) {
	e := w.Local()
	if e == nil {
		return
	}

	dt := sample.Delta
	e.Yaw = sample.Yaw
	e.HeadPitch = sample.Pitch

	// Camera-relative wish direction on the ground plane.
	forward := Vec3{X: math.Sin(sample.Yaw), Z: math.Cos(sample.Yaw)}
	right := Vec3{X: forward.Z, Z: -forward.X}
	wish := right.Scale(sample.MoveX).Add(forward.Scale(sample.MoveY))
	if wish.Length() > 1 {
		wish = wish.Normalized()
	}

	speed := float64(config.WalkSpeed)
	if sample.Sprint {
		speed = config.SprintSpeed
	}
	e.Velocity.X = wish.X * speed
	e.Velocity.Z = wish.Z * speed

	if sample.Dive && e.grounded {
		dir := wish
		if dir.Length() == 0 {
			dir = forward
		}
		e.Velocity.X += dir.X * config.DiveImpulse
		e.Velocity.Z += dir.Z * config.DiveImpulse
	}

	if sample.Jump && e.grounded {
		e.Velocity.Y = config.JumpVelocity
		e.grounded = false
	}
	if !e.grounded {
		e.Velocity.Y -= config.Gravity * dt
	}

	e.Position = e.Position.Add(e.Velocity.Scale(dt))

	ground := w.geometry.GroundHeight(e.Position.X, e.Position.Z)
	if e.Position.Y <= ground+config.GroundSnapRange && e.Velocity.Y <= 0 {
		e.Position.Y = ground
		e.Velocity.Y = 0
		e.grounded = true
	} else {
		e.grounded = false
	}

	e.Position = w.geometry.ResolveCollision(e.Position, config.PlayerRadius)
}

// EyePosition returns the local entity's eye point, where aiming rays
// and fired projectiles originate.
func (w *World) EyePosition() (Vec3, bool) {
	e := w.Local()
	if e == nil {
		return Vec3{}, false
	}
	return e.Position.Add(Vec3{Y: config.HeadHeight}), true
}

// AimDirection converts the local yaw and head pitch into a unit aim
// vector.
func (w *World) AimDirection() (Vec3, bool) {
	e := w.Local()
	if e == nil {
		return Vec3{}, false
	}
	cp := math.Cos(e.HeadPitch)
	return Vec3{
		X: math.Sin(e.Yaw) * cp,
		Y: math.Sin(e.HeadPitch),
		Z: math.Cos(e.Yaw) * cp,
	}, true
}
