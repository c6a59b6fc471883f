package game

import (
	"time"

	"github.com/skirmish/client/internal/protocol"
)

// InputState is the raw device state read by the capture hook each physics
// step: movement axes in [-1, 1], camera angles in radians, action buttons.
type InputState struct {
	MoveX  float64
	MoveY  float64
	Yaw    float64
	Pitch  float64
	Jump   bool
	Sprint bool
	Dive   bool
}

// InputDevice supplies the current device state on demand.
type InputDevice interface {
	Sample() InputState
}

// InputSample is one captured, sequence-stamped input. Exactly one sample
// exists per executed physics step.
type InputSample struct {
	Sequence   uint32
	Delta      float64
	MoveX      float64
	MoveY      float64
	Yaw        float64
	Pitch      float64
	Jump       bool
	Sprint     bool
	Dive       bool
	ClientTime int64
}

// Frame converts a sample to its wire form.
func (s InputSample) Frame() protocol.InputFrame {
	var flags uint8
	if s.Jump {
		flags |= protocol.InputFlagJump
	}
	if s.Sprint {
		flags |= protocol.InputFlagSprint
	}
	if s.Dive {
		flags |= protocol.InputFlagDive
	}
	return protocol.InputFrame{
		Sequence:   s.Sequence,
		Delta:      float32(s.Delta),
		MoveX:      float32(s.MoveX),
		MoveY:      float32(s.MoveY),
		Yaw:        float32(s.Yaw),
		Pitch:      float32(s.Pitch),
		Flags:      flags,
		ClientTime: s.ClientTime,
	}
}

// sequencer stamps strictly monotonic sequence numbers. It is advanced
// only from the step hook, which is what keeps sequence numbers, buffered
// inputs, and simulated steps in 1:1 correspondence. An earlier design
// advanced the counter from input events instead and drifted ahead of the
// simulation whenever events outpaced physics.
type sequencer struct {
	next uint32
}

func (q *sequencer) stamp(state InputState, dt float64, now time.Time) InputSample {
	q.next++
	return InputSample{
		Sequence:   q.next,
		Delta:      dt,
		MoveX:      clampAxis(state.MoveX),
		MoveY:      clampAxis(state.MoveY),
		Yaw:        state.Yaw,
		Pitch:      state.Pitch,
		Jump:       state.Jump,
		Sprint:     state.Sprint,
		Dive:       state.Dive,
		ClientTime: now.UnixMilli(),
	}
}

func clampAxis(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
