package control

import (
	"math"

	"reactord/internal/mathx"
)

// Output bounds for the control signal, in rod-level percentage points.
const (
	OutputMin = -100.0
	OutputMax = 100.0
)

// PID is a discrete proportional-integral-derivative regulator. One
// instance holds the accumulated state for exactly one reactor; instances
// are never shared.
type PID struct {
	Kp float64
	Ki float64
	Kd float64

	// IntegralLimit bounds the accumulator to [-limit, limit] when
	// positive. Zero disables the clamp (accumulation is unbounded).
	IntegralLimit float64

	integral float64
	prevErr  float64
}

func NewPID(kp, ki, kd float64) *PID {
	return &PID{Kp: kp, Ki: ki, Kd: kd}
}

// Compute advances the regulator by one cycle and returns the control
// signal, bounded to [OutputMin, OutputMax]. The error accumulates once
// per call; the poll cadence is the implicit timestep.
func (p *PID) Compute(target, actual float64) float64 {
	err := target - actual

	p.integral += err
	if p.IntegralLimit > 0 {
		p.integral = mathx.Clamp(p.integral, -p.IntegralLimit, p.IntegralLimit)
	}
	derivative := err - p.prevErr
	p.prevErr = err

	u := p.Kp*err + p.Ki*p.integral + p.Kd*derivative
	return mathx.Clamp(u, OutputMin, OutputMax)
}

// Reset clears integral and derivative state. It must be called when a
// reactor leaves a safety shutdown so the next startup does not act on
// stale error history.
func (p *PID) Reset() {
	p.integral = 0
	p.prevErr = 0
}

// State reports the current accumulator and previous error, mainly for
// monitoring and tests.
func (p *PID) State() (integral, prevErr float64) {
	return p.integral, p.prevErr
}

// RodDelta converts a control signal into a whole rod-level step,
// rounding to the nearest level.
func RodDelta(u float64) int {
	return int(math.Round(u))
}
