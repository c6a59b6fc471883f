package game

import (
	"math"
	"testing"

	"github.com/jonboulle/clockwork"

	"github.com/skirmish/client/internal/protocol"
)

func TestSchedulerRunsWholeStepsOnly(t *testing.T) {
	step := 0.01
	var ran int
	s := NewScheduler(step, func(dt float64) {
		if dt != step {
			t.Fatalf("step dt = %v, want %v", dt, step)
		}
		ran++
	})

	if got := s.Advance(0.035); got != 3 {
		t.Fatalf("Advance(0.035) = %d steps, want 3", got)
	}
	if ran != 3 {
		t.Fatalf("step fn ran %d times, want 3", ran)
	}
	if a := s.Alpha(); math.Abs(a-0.5) > 1e-9 {
		t.Fatalf("alpha = %v, want 0.5", a)
	}
}

func TestSchedulerCapsFrameDelta(t *testing.T) {
	step := 0.05
	var ran int
	s := NewScheduler(step, func(dt float64) { ran++ })

	// A 10 second stall must not trigger 200 catch-up steps.
	s.Advance(10.0)
	if ran != 5 {
		t.Fatalf("steps after stall = %d, want 5 (0.25s cap / 0.05s step)", ran)
	}
}

func TestSchedulerIgnoresNegativeDelta(t *testing.T) {
	s := NewScheduler(0.01, func(dt float64) {
		t.Fatal("step fn ran for negative frame delta")
	})
	if got := s.Advance(-1); got != 0 {
		t.Fatalf("Advance(-1) = %d steps, want 0", got)
	}
}

func TestSchedulerAlphaStaysInUnitRange(t *testing.T) {
	s := NewScheduler(0.016, func(dt float64) {})
	deltas := []float64{0.001, 0.02, 0.0333, 0.05, 0.007, 0.1}
	for _, d := range deltas {
		s.Advance(d)
		if a := s.Alpha(); a < 0 || a >= 1 {
			t.Fatalf("alpha = %v after Advance(%v), want [0, 1)", a, d)
		}
	}
}

func TestSchedulerFrameHooksRunOncePerFrame(t *testing.T) {
	s := NewScheduler(0.01, func(dt float64) {})
	var hookRuns int
	s.AddFrameHook(func(frameDelta float64) { hookRuns++ })

	s.Advance(0.05)
	s.Advance(0.002)
	if hookRuns != 2 {
		t.Fatalf("frame hook ran %d times, want 2", hookRuns)
	}
}

type staticDevice struct {
	state InputState
}

func (d *staticDevice) Sample() InputState { return d.state }

func TestSimulationSendsOneSamplePerStep(t *testing.T) {
	var sent []protocol.InputFrame
	sim := NewSimulation(SimulationConfig{
		FixedStep: 0.01,
		Transmit:  func(f protocol.InputFrame) { sent = append(sent, f) },
		Device:    &staticDevice{},
		Clock:     clockwork.NewFakeClock(),
	})
	sim.SetLocalEntity(7, Vec3{})

	steps := sim.Advance(0.1)
	if steps != 10 {
		t.Fatalf("Advance(0.1) = %d steps, want 10", steps)
	}
	if len(sent) != steps {
		t.Fatalf("transmitted %d frames for %d steps, want exact 1:1", len(sent), steps)
	}
	for i, f := range sent {
		if f.Sequence != uint32(i+1) {
			t.Fatalf("frame %d has sequence %d, want %d", i, f.Sequence, i+1)
		}
	}
}

func TestSimulationSequenceSurvivesZeroStepFrames(t *testing.T) {
	var sent []protocol.InputFrame
	sim := NewSimulation(SimulationConfig{
		FixedStep: 0.02,
		Transmit:  func(f protocol.InputFrame) { sent = append(sent, f) },
		Device:    &staticDevice{},
		Clock:     clockwork.NewFakeClock(),
	})
	sim.SetLocalEntity(7, Vec3{})

	sim.Advance(0.03) // 1 step
	sim.Advance(0.005) // 0 steps, accumulator grows
	sim.Advance(0.03) // accumulator 0.045 -> 2 steps

	if len(sent) != 3 {
		t.Fatalf("transmitted %d frames, want 3", len(sent))
	}
	for i, f := range sent {
		if f.Sequence != uint32(i+1) {
			t.Fatalf("frame %d has sequence %d, want strictly monotonic from 1", i, f.Sequence)
		}
	}
}

func TestSimulationDrainsEveryFrame(t *testing.T) {
	var budgets []int
	sim := NewSimulation(SimulationConfig{
		FixedStep:   0.01,
		DrainBudget: 16,
		Drain: func(budget int) int {
			budgets = append(budgets, budget)
			return 0
		},
		Device: &staticDevice{},
		Clock:  clockwork.NewFakeClock(),
	})

	sim.Advance(0.015)
	sim.Advance(0.001)
	if len(budgets) != 2 {
		t.Fatalf("drain ran %d times, want once per frame (2)", len(budgets))
	}
	if budgets[0] != 16 {
		t.Fatalf("drain budget = %d, want 16", budgets[0])
	}
}
