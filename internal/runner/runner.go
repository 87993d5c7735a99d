// Package runner drives the control loop headlessly for a fixed duration
// and collects the trajectory and metrics.
package runner

import (
	"context"
	"fmt"

	"github.com/dkoz/tiltrail/internal/loop"
	"github.com/dkoz/tiltrail/internal/metrics"
)

type Result struct {
	Times      []float64
	Positions  []float64
	Velocities []float64
	Angles     []float64
	Controls   []float64
	Setpoints  []float64

	OffRail      bool
	SkippedTicks int
	Metrics      map[string]float64
}

type Runner struct {
	loop    *loop.Loop
	metrics []metrics.Metric
}

func New(l *loop.Loop, ms ...metrics.Metric) *Runner {
	return &Runner{loop: l, metrics: ms}
}

// Run ticks the loop for duration seconds of simulated time. The run
// ends early when the ball leaves the rail; that is reported on the
// result, not as an error.
func (r *Runner) Run(ctx context.Context, duration float64) (*Result, error) {
	dt := r.loop.Dt()
	if dt <= 0 {
		return nil, fmt.Errorf("runner: dt must be positive, got %f", dt)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("runner: duration must be positive, got %f", duration)
	}

	steps := int(duration / dt)
	result := &Result{
		Times:      make([]float64, 0, steps+1),
		Positions:  make([]float64, 0, steps+1),
		Velocities: make([]float64, 0, steps+1),
		Angles:     make([]float64, 0, steps+1),
		Controls:   make([]float64, 0, steps+1),
		Setpoints:  make([]float64, 0, steps+1),
		Metrics:    make(map[string]float64),
	}

	for _, m := range r.metrics {
		m.Reset()
	}

	record := func(f loop.Frame) {
		result.Times = append(result.Times, f.Time)
		result.Positions = append(result.Positions, f.Position)
		result.Velocities = append(result.Velocities, f.Velocity)
		result.Angles = append(result.Angles, f.Angle)
		result.Controls = append(result.Controls, f.Control)
		result.Setpoints = append(result.Setpoints, f.Setpoint)
	}
	record(r.loop.Snapshot())

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		if err := r.loop.Tick(); err != nil {
			result.SkippedTicks++
			continue
		}

		f := r.loop.Snapshot()
		record(f)
		for _, m := range r.metrics {
			m.Observe(f)
		}

		if f.OffRail {
			result.OffRail = true
			break
		}
	}

	for _, m := range r.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, nil
}
