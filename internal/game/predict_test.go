package game

import (
	"math"
	"testing"

	"github.com/skirmish/client/config"
)

func stepSample(state InputState, dt float64) InputSample {
	return InputSample{
		Delta:  dt,
		MoveX:  state.MoveX,
		MoveY:  state.MoveY,
		Yaw:    state.Yaw,
		Pitch:  state.Pitch,
		Jump:   state.Jump,
		Sprint: state.Sprint,
		Dive:   state.Dive,
	}
}

func TestPredictionMovesForwardAtWalkSpeed(t *testing.T) {
	w := NewWorld(FlatGround{}, OrderingArrival)
	w.SetLocalEntity(1, Vec3{})

	dt := 1.0 / 30.0
	for i := 0; i < 30; i++ {
		w.PredictLocal(stepSample(InputState{MoveY: 1}, dt))
	}

	// Yaw 0 faces +z; one second of walking covers WalkSpeed units.
	local := w.Local()
	if math.Abs(local.Position.Z-config.WalkSpeed) > 1e-6 {
		t.Fatalf("z = %v after 1s walk, want %v", local.Position.Z, config.WalkSpeed)
	}
	if math.Abs(local.Position.X) > 1e-9 {
		t.Fatalf("x = %v, want straight line", local.Position.X)
	}
}

func TestSprintOutrunsWalk(t *testing.T) {
	dt := 1.0 / 30.0
	run := func(sprint bool) float64 {
		w := NewWorld(FlatGround{}, OrderingArrival)
		w.SetLocalEntity(1, Vec3{})
		for i := 0; i < 30; i++ {
			w.PredictLocal(stepSample(InputState{MoveY: 1, Sprint: sprint}, dt))
		}
		return w.Local().Position.Z
	}
	if run(true) <= run(false) {
		t.Fatal("sprint did not outrun walking")
	}
}

func TestJumpLeavesGroundAndLands(t *testing.T) {
	w := NewWorld(FlatGround{}, OrderingArrival)
	w.SetLocalEntity(1, Vec3{})
	dt := 1.0 / 30.0

	w.PredictLocal(stepSample(InputState{Jump: true}, dt))
	if w.Local().Position.Y <= 0 {
		t.Fatal("jump did not lift the entity")
	}
	if w.Local().grounded {
		t.Fatal("entity still grounded mid-jump")
	}

	// Holding jump while airborne must not double-jump.
	peak := 0.0
	for i := 0; i < 10; i++ {
		w.PredictLocal(stepSample(InputState{Jump: true}, dt))
		if y := w.Local().Position.Y; y > peak {
			peak = y
		}
	}
	if peak > 1.5 {
		t.Fatalf("double jump: peak y = %v", peak)
	}

	// Release and follow the arc back to the ground.
	for i := 0; i < 60 && !w.Local().grounded; i++ {
		w.PredictLocal(stepSample(InputState{}, dt))
	}
	if !w.Local().grounded {
		t.Fatal("entity never landed")
	}
	if w.Local().Position.Y != 0 {
		t.Fatalf("y = %v after landing, want snapped to ground", w.Local().Position.Y)
	}
}

func TestYawRotatesMovementBasis(t *testing.T) {
	w := NewWorld(FlatGround{}, OrderingArrival)
	w.SetLocalEntity(1, Vec3{})
	dt := 1.0 / 30.0

	// Facing +x (yaw = pi/2), forward input moves along x.
	for i := 0; i < 30; i++ {
		w.PredictLocal(stepSample(InputState{MoveY: 1, Yaw: math.Pi / 2}, dt))
	}
	local := w.Local()
	if math.Abs(local.Position.X-config.WalkSpeed) > 1e-6 {
		t.Fatalf("x = %v walking along yaw pi/2, want %v", local.Position.X, config.WalkSpeed)
	}
	if math.Abs(local.Position.Z) > 1e-6 {
		t.Fatalf("z = %v, want 0", local.Position.Z)
	}
}

func TestDiagonalInputIsNotFaster(t *testing.T) {
	dt := 1.0 / 30.0
	w := NewWorld(FlatGround{}, OrderingArrival)
	w.SetLocalEntity(1, Vec3{})
	for i := 0; i < 30; i++ {
		w.PredictLocal(stepSample(InputState{MoveX: 1, MoveY: 1}, dt))
	}
	dist := w.Local().Position.Length()
	if dist > config.WalkSpeed+1e-6 {
		t.Fatalf("diagonal covered %v in 1s, want at most %v", dist, config.WalkSpeed)
	}
}

func TestAimDirectionFollowsPitch(t *testing.T) {
	w := NewWorld(FlatGround{}, OrderingArrival)
	w.SetLocalEntity(1, Vec3{})
	w.PredictLocal(stepSample(InputState{Pitch: math.Pi / 2}, 1.0/30.0))

	dir, ok := w.AimDirection()
	if !ok {
		t.Fatal("no aim direction for local entity")
	}
	if math.Abs(dir.Y-1) > 1e-6 {
		t.Fatalf("aim = %+v at pitch pi/2, want straight up", dir)
	}
}
