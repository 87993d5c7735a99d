package loop_test

import (
	"context"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dkoz/tiltrail/internal/loop"
	"github.com/dkoz/tiltrail/internal/pid"
	"github.com/dkoz/tiltrail/internal/plant"
)

func newLoop(dt, x0 float64, p loop.Params) *loop.Loop {
	rail := plant.New(0.5, 9.8, 0.1, 0.66)
	ctrl := pid.New(p.Kp, p.Ki, p.Kd, rail.MaxAngle)
	return loop.New(rail, ctrl, dt, x0, p)
}

var _ = Describe("Loop", func() {
	Describe("Tick", func() {
		It("stabilizes the ball near the setpoint", func() {
			// Kp=2, Kd=0.5, ball starting at 0.1 with setpoint 0.
			l := newLoop(0.01, 0.1, loop.Params{Setpoint: 0, Kp: 2.0, Ki: 0, Kd: 0.5})

			maxAngle := 0.0
			for i := 0; i < 500; i++ {
				Expect(l.Tick()).To(Succeed())
				maxAngle = math.Max(maxAngle, math.Abs(l.Snapshot().Angle))
			}

			Expect(math.Abs(l.Snapshot().Position)).To(BeNumerically("<", 0.01))
			Expect(maxAngle).To(BeNumerically("<=", 0.66))
			Expect(l.Snapshot().OffRail).To(BeFalse())
		})

		It("publishes control and setpoint with each frame", func() {
			l := newLoop(0.01, -0.1, loop.Params{Setpoint: 0.1, Kp: 5.0})

			Expect(l.Tick()).To(Succeed())
			frame := l.Snapshot()
			Expect(frame.Setpoint).To(Equal(0.1))
			Expect(frame.Control).To(BeNumerically(">", 0))
			Expect(frame.Time).To(BeNumerically("~", 0.01, 1e-12))
		})

		It("skips the tick and keeps state on invalid dt", func() {
			l := newLoop(0, 0.1, loop.Params{Kp: 1.0})
			before := l.Snapshot()

			Expect(l.Tick()).To(MatchError(pid.ErrInvalidInput))
			Expect(l.Snapshot()).To(Equal(before))
		})
	})

	Describe("Reset", func() {
		It("replays an identical trajectory", func() {
			p := loop.Params{Setpoint: 0.1, Kp: 22.0, Ki: 1.2, Kd: 4.5}
			l := newLoop(0.02, -0.22, p)

			first := make([]loop.Frame, 0, 300)
			for i := 0; i < 300; i++ {
				Expect(l.Tick()).To(Succeed())
				first = append(first, l.Snapshot())
			}

			l.Reset()
			Expect(l.Snapshot().Position).To(Equal(-0.22))
			Expect(l.Snapshot().Time).To(BeZero())

			for i := 0; i < 300; i++ {
				Expect(l.Tick()).To(Succeed())
				Expect(l.Snapshot()).To(Equal(first[i]))
			}
		})
	})

	Describe("SetParams", func() {
		It("applies a whole snapshot before the next tick", func() {
			l := newLoop(0.01, -0.1, loop.Params{Setpoint: 0, Kp: 1.0})

			Expect(l.SetParams(loop.Params{Setpoint: 0.2, Kp: 3.0, Ki: 0.5, Kd: 0.1})).To(Succeed())
			Expect(l.Tick()).To(Succeed())
			Expect(l.Snapshot().Setpoint).To(Equal(0.2))
		})

		It("rejects NaN and Inf values, keeping the previous snapshot", func() {
			p := loop.Params{Setpoint: 0.1, Kp: 2.0}
			l := newLoop(0.01, 0, p)

			Expect(l.SetParams(loop.Params{Setpoint: math.NaN()})).To(MatchError(loop.ErrInvalidParams))
			Expect(l.SetParams(loop.Params{Kp: math.Inf(1)})).To(MatchError(loop.ErrInvalidParams))
			Expect(l.Params()).To(Equal(p))
		})
	})

	Describe("Run", func() {
		It("advances, pauses, resumes, and stops", func() {
			l := newLoop(0.002, -0.1, loop.Params{Setpoint: 0.1, Kp: 22.0, Ki: 1.2, Kd: 4.5})

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			done := make(chan struct{})
			go func() {
				defer close(done)
				l.Run(ctx)
			}()

			Eventually(func() float64 {
				return l.Snapshot().Time
			}).Should(BeNumerically(">", 0))

			l.Pause()
			l.Pause() // idempotent
			Expect(l.Paused()).To(BeTrue())
			frozen := l.Snapshot().Time
			Consistently(func() float64 {
				return l.Snapshot().Time
			}, 50*time.Millisecond).Should(Equal(frozen))

			l.Resume()
			Eventually(func() float64 {
				return l.Snapshot().Time
			}).Should(BeNumerically(">", frozen))

			l.Stop()
			l.Stop() // idempotent
			Eventually(done).Should(BeClosed())
		})
	})
})
