// Package plant simulates a ball rolling on a tiltable rail.
//
// The commanded rail angle is applied instantaneously each step (the
// controller output is treated as the angle itself, not an angle rate),
// clamped to the actuation range. The ball accelerates along the rail
// under gravity with linear friction:
//
//	a = Gravity*sin(angle) - Friction*velocity
//
// advanced with forward Euler. Reaching a rail end clamps the position,
// zeros the outward velocity, and latches the OffRail flag; it is a
// reported terminal state, not an error. The model has no hidden
// randomness: identical input sequences from identical initial state
// reproduce identical trajectories.
package plant

import (
	"errors"
	"math"
)

// ErrInvalidInput indicates a non-positive dt or a NaN/Inf control input.
var ErrInvalidInput = errors.New("plant: invalid input")

// State is a read-only snapshot of the simulation, produced once per step.
type State struct {
	Position float64 // signed offset from rail center, meters
	Velocity float64 // m/s along the rail
	Angle    float64 // applied rail tilt, radians
	Time     float64 // simulated clock, seconds
	OffRail  bool    // ball reached a rail end
}

type Rail struct {
	Length   float64 // full rail length; ball travels [-Length/2, Length/2]
	Gravity  float64
	Friction float64 // linear friction coefficient
	MaxAngle float64 // actuation limit, radians

	state State
}

func New(length, gravity, friction, maxAngle float64) *Rail {
	return &Rail{
		Length:   length,
		Gravity:  gravity,
		Friction: friction,
		MaxAngle: maxAngle,
	}
}

// Reset places the ball at rest at offset x0 with a level rail and
// restarts the simulated clock. The OffRail flag is cleared.
func (r *Rail) Reset(x0 float64) {
	r.state = State{Position: x0}
}

// State returns the current snapshot.
func (r *Rail) State() State {
	return r.state
}

// Advance steps the simulation once with the commanded rail angle.
//
// It fails with ErrInvalidInput when dt <= 0 or the control input is
// NaN/Inf, leaving the state untouched.
func (r *Rail) Advance(controlInput, dt float64) (State, error) {
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return r.state, ErrInvalidInput
	}
	if math.IsNaN(controlInput) || math.IsInf(controlInput, 0) {
		return r.state, ErrInvalidInput
	}

	angle := clamp(controlInput, -r.MaxAngle, r.MaxAngle)

	s := r.state
	accel := r.Gravity*math.Sin(angle) - r.Friction*s.Velocity
	s.Velocity += accel * dt
	s.Position += s.Velocity * dt
	s.Angle = angle
	s.Time += dt

	half := r.Length / 2
	if s.Position >= half {
		s.Position = half
		if s.Velocity > 0 {
			s.Velocity = 0
		}
		s.OffRail = true
	} else if s.Position <= -half {
		s.Position = -half
		if s.Velocity < 0 {
			s.Velocity = 0
		}
		s.OffRail = true
	}

	r.state = s
	return s, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
