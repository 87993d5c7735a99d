// Package pid implements a discrete-time PID controller.
//
// The controller uses forward-Euler discretization for both the integral
// and derivative terms:
//
//	integral   += error * dt
//	derivative  = (error - prevError) / dt
//	output      = Kp*error + Ki*integral + Kd*derivative
//
// Anti-windup is handled by clamping the integral accumulator to
// [-IntegralLimit, IntegralLimit]; the output itself is clamped to
// [-MaxOutput, MaxOutput]. The derivative is computed from the raw error
// difference, so a setpoint step produces a single-tick derivative kick.
// This is intentional and documented rather than filtered away.
package pid
