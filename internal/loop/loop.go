// Package loop orchestrates the control loop: it reads the live parameter
// snapshot, runs the PID controller against the plant, and publishes the
// resulting state for rendering.
//
// Parameter edits and state reads cross goroutines as whole-value atomic
// pointer swaps, so a tick always sees a consistent parameter set and a
// renderer never observes a partially written state.
package loop

import (
	"context"
	"errors"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dkoz/tiltrail/internal/pid"
	"github.com/dkoz/tiltrail/internal/plant"
)

// ErrInvalidParams indicates a NaN/Inf value in a parameter update.
var ErrInvalidParams = errors.New("loop: invalid parameters")

// Params is the immutable tunable-parameter snapshot. The presentation
// layer owns the values; the loop reads one snapshot per tick.
type Params struct {
	Setpoint float64
	Kp       float64
	Ki       float64
	Kd       float64
}

func (p Params) valid() bool {
	for _, v := range []float64{p.Setpoint, p.Kp, p.Ki, p.Kd} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Frame is what the presentation layer consumes each rendered frame.
type Frame struct {
	plant.State
	Control  float64
	Setpoint float64
}

// Observer is notified after every successful tick.
type Observer interface {
	OnTick(f Frame)
}

type Loop struct {
	mu   sync.Mutex
	rail *plant.Rail
	ctrl *pid.Controller
	x0   float64
	dt   float64

	params atomic.Pointer[Params]
	latest atomic.Pointer[Frame]
	paused atomic.Bool

	cancel    atomic.Pointer[context.CancelFunc]
	observers []Observer
	logger    *log.Logger
}

func New(rail *plant.Rail, ctrl *pid.Controller, dt, x0 float64, p Params) *Loop {
	l := &Loop{
		rail:   rail,
		ctrl:   ctrl,
		x0:     x0,
		dt:     dt,
		logger: log.Default(),
	}
	l.params.Store(&p)
	rail.Reset(x0)
	frame := Frame{State: rail.State(), Setpoint: p.Setpoint}
	l.latest.Store(&frame)
	return l
}

// AddObserver registers an observer. Not safe to call once Run has started.
func (l *Loop) AddObserver(o Observer) {
	l.observers = append(l.observers, o)
}

// SetLogger replaces the warning logger.
func (l *Loop) SetLogger(logger *log.Logger) {
	l.logger = logger
}

// SetParams swaps in a new parameter snapshot, applied before the next
// tick. NaN/Inf values are rejected and the previous snapshot is kept.
func (l *Loop) SetParams(p Params) error {
	if !p.valid() {
		return ErrInvalidParams
	}
	l.params.Store(&p)
	return nil
}

// Params returns the current parameter snapshot.
func (l *Loop) Params() Params {
	return *l.params.Load()
}

// Snapshot returns the most recent frame. Rendering may skip or repeat
// frames; it never sees a torn state.
func (l *Loop) Snapshot() Frame {
	return *l.latest.Load()
}

// Dt reports the fixed simulated timestep.
func (l *Loop) Dt() float64 {
	return l.dt
}

// Tick advances the control loop by one fixed step: controller first,
// then plant, then the published frame. An error means the tick was
// skipped and no state changed.
func (l *Loop) Tick() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	p := *l.params.Load()
	l.ctrl.SetGains(p.Kp, p.Ki, p.Kd)

	u, err := l.ctrl.Compute(l.rail.State().Position, p.Setpoint, l.dt)
	if err != nil {
		return err
	}

	s, err := l.rail.Advance(u, l.dt)
	if err != nil {
		return err
	}

	frame := Frame{State: s, Control: u, Setpoint: p.Setpoint}
	l.latest.Store(&frame)
	for _, o := range l.observers {
		o.OnTick(frame)
	}
	return nil
}

// Run paces Tick with a wall-clock ticker until the context is canceled
// or Stop is called. A failed tick is skipped with a logged warning; the
// loop itself never terminates from a single bad tick.
func (l *Loop) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	l.cancel.Store(&cancel)
	defer cancel()

	interval := time.Duration(l.dt * float64(time.Second))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if l.paused.Load() {
				continue
			}
			if err := l.Tick(); err != nil {
				l.logger.Printf("tiltrail: skipping tick: %v", err)
			}
		}
	}
}

// Pause stops tick advancement while retaining all state. Pausing an
// already-paused loop is a no-op.
func (l *Loop) Pause() {
	l.paused.Store(true)
}

// Resume restarts tick advancement. A no-op when not paused.
func (l *Loop) Resume() {
	l.paused.Store(false)
}

// Paused reports whether the loop is paused.
func (l *Loop) Paused() bool {
	return l.paused.Load()
}

// Reset reinitializes the plant state and the controller's internal
// state without restarting the process. Parameters are kept.
func (l *Loop) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rail.Reset(l.x0)
	l.ctrl.Reset()
	p := *l.params.Load()
	frame := Frame{State: l.rail.State(), Setpoint: p.Setpoint}
	l.latest.Store(&frame)
}

// Stop cancels a running Run. Safe to call at any point between ticks
// and when the loop is not running; never leaves state partially updated.
func (l *Loop) Stop() {
	if cancel := l.cancel.Load(); cancel != nil {
		(*cancel)()
	}
}
