package game

import "github.com/skirmish/client/config"

// Scheduler runs the fixed-timestep loop. Each frame it accumulates the
// wall-clock delta (capped so a stall never triggers a runaway catch-up
// burst), executes whole physics steps while the accumulator allows, and
// leaves the fractional remainder as the interpolation alpha for
// render-time blending.
type Scheduler struct {
	step          float64
	maxFrameDelta float64
	accumulator   float64
	alpha         float64

	stepFn   func(dt float64)
	frameFns []func(frameDelta float64)
}

// NewScheduler creates a scheduler. stepFn runs exactly once per physics
// step and must capture exactly one input sample.
func NewScheduler(step float64, stepFn func(dt float64)) *Scheduler {
	if step <= 0 {
		step = config.PhysicsTickInterval
	}
	return &Scheduler{
		step:          step,
		maxFrameDelta: config.MaxFrameDelta,
		stepFn:        stepFn,
	}
}

// AddFrameHook registers a variable-rate hook run once per frame after
// stepping, regardless of how many physics steps the frame executed.
func (s *Scheduler) AddFrameHook(fn func(frameDelta float64)) {
	s.frameFns = append(s.frameFns, fn)
}

// Advance consumes one frame's elapsed time and returns the number of
// physics steps executed.
func (s *Scheduler) Advance(frameDelta float64) int {
	if frameDelta < 0 {
		frameDelta = 0
	}
	if frameDelta > s.maxFrameDelta {
		frameDelta = s.maxFrameDelta
	}

	s.accumulator += frameDelta
	steps := 0
	for s.accumulator >= s.step {
		s.stepFn(s.step)
		s.accumulator -= s.step
		steps++
	}
	s.alpha = s.accumulator / s.step

	for _, fn := range s.frameFns {
		fn(frameDelta)
	}
	return steps
}

// Alpha returns the blend factor in [0, 1) between the last two completed
// simulation states.
func (s *Scheduler) Alpha() float64 {
	return s.alpha
}

// Step returns the fixed timestep in seconds.
func (s *Scheduler) Step() float64 {
	return s.step
}
