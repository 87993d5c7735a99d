package pid

import (
	"errors"
	"math"
)

// ErrInvalidInput indicates a non-positive dt or a NaN/Inf input.
var ErrInvalidInput = errors.New("pid: invalid input")

const (
	// DefaultIntegralLimit bounds the integral accumulator (anti-windup).
	DefaultIntegralLimit = 2.0

	// derivativeEpsilon is the smallest dt the derivative term divides by.
	derivativeEpsilon = 1e-9
)

type Controller struct {
	Kp float64
	Ki float64
	Kd float64

	// MaxOutput clamps the control output to [-MaxOutput, MaxOutput].
	// Typically the plant's actuation limit (max rail angle).
	MaxOutput float64

	// IntegralLimit clamps the accumulator to [-IntegralLimit, IntegralLimit].
	IntegralLimit float64

	integral float64
	prevErr  float64
	first    bool
}

func New(kp, ki, kd, maxOutput float64) *Controller {
	return &Controller{
		Kp:            kp,
		Ki:            ki,
		Kd:            kd,
		MaxOutput:     maxOutput,
		IntegralLimit: DefaultIntegralLimit,
		first:         true,
	}
}

// SetGains replaces the proportional, integral, and derivative gains.
// Internal state is kept; changing gains mid-run does not reset the
// accumulator.
func (c *Controller) SetGains(kp, ki, kd float64) {
	c.Kp = kp
	c.Ki = ki
	c.Kd = kd
}

// Compute returns the control output for one tick.
//
// It fails with ErrInvalidInput when dt <= 0 or any input or gain is
// NaN/Inf, leaving internal state untouched. On the first call the
// derivative term is zero since there is no previous error.
func (c *Controller) Compute(measurement, setpoint, dt float64) (float64, error) {
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return 0, ErrInvalidInput
	}
	if !finite(measurement) || !finite(setpoint) ||
		!finite(c.Kp) || !finite(c.Ki) || !finite(c.Kd) {
		return 0, ErrInvalidInput
	}

	err := setpoint - measurement

	integral := clamp(c.integral+err*dt, -c.IntegralLimit, c.IntegralLimit)

	derivative := 0.0
	if !c.first && dt > derivativeEpsilon {
		derivative = (err - c.prevErr) / dt
	}

	out := c.Kp*err + c.Ki*integral + c.Kd*derivative
	out = clamp(out, -c.MaxOutput, c.MaxOutput)

	c.integral = integral
	c.prevErr = err
	c.first = false

	return out, nil
}

// Reset clears integral and derivative state.
func (c *Controller) Reset() {
	c.integral = 0
	c.prevErr = 0
	c.first = true
}

// Integral reports the current accumulator value.
func (c *Controller) Integral() float64 {
	return c.integral
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

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
