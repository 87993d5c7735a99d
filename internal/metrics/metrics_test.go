package metrics

import (
	"math"
	"testing"

	"github.com/dkoz/tiltrail/internal/loop"
	"github.com/dkoz/tiltrail/internal/plant"
)

func frame(pos, setpoint, control, t float64) loop.Frame {
	return loop.Frame{
		State:    plant.State{Position: pos, Time: t},
		Control:  control,
		Setpoint: setpoint,
	}
}

func TestOvershoot(t *testing.T) {
	m := NewOvershoot()

	// Ball approaches setpoint 0.1 from below and overshoots to 0.13.
	m.Observe(frame(0.0, 0.1, 0, 0))
	m.Observe(frame(0.08, 0.1, 0, 0.1))
	m.Observe(frame(0.13, 0.1, 0, 0.2))
	m.Observe(frame(0.11, 0.1, 0, 0.3))
	m.Observe(frame(0.10, 0.1, 0, 0.4))

	if math.Abs(m.Value()-0.03) > 1e-12 {
		t.Errorf("expected overshoot 0.03, got %f", m.Value())
	}
}

func TestOvershootNone(t *testing.T) {
	m := NewOvershoot()

	m.Observe(frame(0.0, 0.1, 0, 0))
	m.Observe(frame(0.05, 0.1, 0, 0.1))
	m.Observe(frame(0.09, 0.1, 0, 0.2))

	if m.Value() != 0 {
		t.Errorf("expected zero overshoot, got %f", m.Value())
	}
}

func TestSettlingTime(t *testing.T) {
	m := NewSettlingTime(0.01)

	m.Observe(frame(0.1, 0, 0, 0.0))
	m.Observe(frame(0.05, 0, 0, 1.0))
	m.Observe(frame(0.005, 0, 0, 2.0))
	m.Observe(frame(0.002, 0, 0, 3.0))

	if m.Value() != 1.0 {
		t.Errorf("expected settling time 1.0, got %f", m.Value())
	}
}

func TestControlEffort(t *testing.T) {
	m := NewControlEffort()

	m.Observe(frame(0, 0, 0.4, 0))
	m.Observe(frame(0, 0, -0.2, 0.1))

	if math.Abs(m.Value()-0.3) > 1e-12 {
		t.Errorf("expected mean effort 0.3, got %f", m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero after reset")
	}
}

func TestSteadyStateError(t *testing.T) {
	m := NewSteadyStateError()

	m.Observe(frame(0.0, 0.1, 0, 0))
	m.Observe(frame(0.097, 0.1, 0, 1.0))

	if math.Abs(m.Value()-0.003) > 1e-12 {
		t.Errorf("expected steady-state error 0.003, got %f", m.Value())
	}
}
