// Package metrics provides per-run observers for control quality:
// overshoot, settling time, control effort, and steady-state error.
package metrics

import (
	"math"

	"github.com/dkoz/tiltrail/internal/loop"
)

type Metric interface {
	Name() string
	Observe(f loop.Frame)
	Value() float64
	Reset()
}

// Defaults returns the standard set attached to headless runs.
func Defaults() []Metric {
	return []Metric{
		NewOvershoot(),
		NewSettlingTime(0.005),
		NewControlEffort(),
		NewSteadyStateError(),
	}
}

// Overshoot tracks the maximum excursion past the setpoint, measured
// against the sign of the initial error.
type Overshoot struct {
	initErr float64
	first   bool
	max     float64
}

func NewOvershoot() *Overshoot {
	return &Overshoot{first: true}
}

func (o *Overshoot) Name() string { return "overshoot" }

func (o *Overshoot) Observe(f loop.Frame) {
	err := f.Setpoint - f.Position
	if o.first {
		o.initErr = err
		o.first = false
		return
	}
	// Past the setpoint when the error sign has flipped.
	if o.initErr > 0 && err < 0 {
		o.max = math.Max(o.max, -err)
	} else if o.initErr < 0 && err > 0 {
		o.max = math.Max(o.max, err)
	}
}

func (o *Overshoot) Value() float64 { return o.max }

func (o *Overshoot) Reset() {
	o.initErr = 0
	o.first = true
	o.max = 0
}

// SettlingTime reports the time of the last sample whose error exceeded
// the tolerance, i.e. when the response entered its final band.
type SettlingTime struct {
	tolerance     float64
	lastViolation float64
	samples       int
}

func NewSettlingTime(tolerance float64) *SettlingTime {
	return &SettlingTime{tolerance: tolerance}
}

func (s *SettlingTime) Name() string { return "settling_time" }

func (s *SettlingTime) Observe(f loop.Frame) {
	if math.Abs(f.Setpoint-f.Position) > s.tolerance {
		s.lastViolation = f.Time
	}
	s.samples++
}

func (s *SettlingTime) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return s.lastViolation
}

func (s *SettlingTime) Reset() {
	s.lastViolation = 0
	s.samples = 0
}

// ControlEffort reports the mean absolute commanded angle.
type ControlEffort struct {
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{}
}

func (c *ControlEffort) Name() string { return "control_effort" }

func (c *ControlEffort) Observe(f loop.Frame) {
	c.sum += math.Abs(f.Control)
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}

// SteadyStateError reports the absolute tracking error of the final
// observed sample.
type SteadyStateError struct {
	last    float64
	samples int
}

func NewSteadyStateError() *SteadyStateError {
	return &SteadyStateError{}
}

func (s *SteadyStateError) Name() string { return "steady_state_error" }

func (s *SteadyStateError) Observe(f loop.Frame) {
	s.last = math.Abs(f.Setpoint - f.Position)
	s.samples++
}

func (s *SteadyStateError) Value() float64 { return s.last }

func (s *SteadyStateError) Reset() {
	s.last = 0
	s.samples = 0
}
