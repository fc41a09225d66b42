// Package control provides the feedback regulator that trims control rods.
//
// [PID] computes a bounded rod-level correction from a target/actual
// energy-fraction pair each poll cycle:
//
//	pid := control.NewPID(10.0, 0.1, 5.0) // Kp, Ki, Kd
//	u := pid.Compute(0.9, snapshot.EnergyFraction())
//
// The output always lies in [OutputMin, OutputMax]. The integral
// accumulator is unbounded by default; set [PID.IntegralLimit] to guard
// against windup under sustained error.
package control
