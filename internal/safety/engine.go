// Package safety implements the per-cycle interlock sequence for one
// reactor: overflow pause/resume with hysteresis, backup-power relay,
// overheat shutdown, and the PID rod trim. The sequence order is fixed;
// an overheat verdict preempts the rod trim but never the relay update.
//
// The engine mutates the device (active flag, rod levels) and drives the
// relay, but it never terminates the process itself: a fatal condition is
// reported through [Verdict.Fatal] and left to the caller.
package safety

import (
	"fmt"

	"github.com/rs/zerolog"

	"reactord/internal/control"
	"reactord/internal/mathx"
	"reactord/internal/reactor"
	"reactord/internal/report"
)

// Limits are the process-wide safety thresholds, read-only after startup.
type Limits struct {
	// MaxTemperature is the fuel temperature above which the whole
	// process performs an emergency stop.
	MaxTemperature float64

	// BackupThreshold is the energy fraction below which the backup
	// relay is asserted.
	BackupThreshold float64

	// OverflowThreshold is the energy fraction above which an active
	// reactor is paused.
	OverflowThreshold float64

	// OverflowResumeMargin widens the pause band downward: a paused
	// reactor resumes only below OverflowThreshold-OverflowResumeMargin.
	OverflowResumeMargin float64

	// TargetEnergyFraction is the PID setpoint for the rod trim.
	TargetEnergyFraction float64
}

// Action identifies what the engine did to a reactor this cycle.
type Action string

const (
	ActionPaused   Action = "paused"
	ActionResumed  Action = "resumed"
	ActionOverheat Action = "overheat"
	ActionRodTrim  Action = "rod_trim"
)

// Notice is an operator-facing event emitted by the engine.
type Notice struct {
	Action  Action
	Message string
}

// Verdict is the outcome of one interlock pass over one reactor.
type Verdict struct {
	Notices []Notice

	// BackupAsserted mirrors the relay line driven this cycle.
	BackupAsserted bool

	// PIDOutput and RodLevel describe the rod trim. RodLevel is the
	// level written to the device (or the unchanged current level).
	PIDOutput float64
	RodLevel  int

	// Fatal is set by an overheat. The caller must flush reporting for
	// this reactor and halt the process; reactors after this one in the
	// cycle must not be processed.
	Fatal       bool
	FatalReason string
}

// Engine runs the interlock sequence. One engine serves all reactors; the
// per-reactor state lives in the PID instances the caller passes in.
type Engine struct {
	limits Limits
	relay  report.Relay
	log    zerolog.Logger
}

func NewEngine(limits Limits, relay report.Relay, log zerolog.Logger) *Engine {
	if relay == nil {
		relay = report.NullRelay()
	}
	return &Engine{limits: limits, relay: relay, log: log}
}

// Evaluate executes the interlock sequence for one reactor snapshot. The
// steps run in fixed priority order:
//
//  1. overflow pause/resume (hysteresis band keeps the state stable
//     inside [threshold-margin, threshold])
//  2. backup relay, recomputed unconditionally every cycle
//  3. overheat emergency stop (fatal verdict, preempts the rod trim)
//  4. PID rod trim toward the target energy fraction
func (e *Engine) Evaluate(snap reactor.Snapshot, dev reactor.Device, pid *control.PID) Verdict {
	var v Verdict
	v.RodLevel = snap.ControlRodLevel

	frac := snap.EnergyFraction()
	active := snap.Active

	switch {
	case active && frac > e.limits.OverflowThreshold:
		dev.SetActive(false)
		active = false
		v.Notices = append(v.Notices, Notice{
			Action:  ActionPaused,
			Message: fmt.Sprintf("%s paused: energy at %.1f%% of capacity", snap.Identity, frac*100),
		})
		e.log.Warn().Str("reactor", snap.Identity).Float64("energy_fraction", frac).Msg("overflow pause")

	case !active && frac < e.limits.OverflowThreshold-e.limits.OverflowResumeMargin:
		dev.SetActive(true)
		active = true
		pid.Reset()
		v.Notices = append(v.Notices, Notice{
			Action:  ActionResumed,
			Message: fmt.Sprintf("%s resumed: energy down to %.1f%% of capacity", snap.Identity, frac*100),
		})
		e.log.Info().Str("reactor", snap.Identity).Float64("energy_fraction", frac).Msg("overflow resume")
	}

	v.BackupAsserted = frac < e.limits.BackupThreshold
	e.relay.SetSignal(v.BackupAsserted)

	if snap.FuelTemperature > e.limits.MaxTemperature {
		dev.SetActive(false)
		v.Fatal = true
		v.FatalReason = fmt.Sprintf("%s fuel temperature %.1f exceeds limit %.1f",
			snap.Identity, snap.FuelTemperature, e.limits.MaxTemperature)
		v.Notices = append(v.Notices, Notice{
			Action:  ActionOverheat,
			Message: v.FatalReason,
		})
		return v
	}

	v.PIDOutput = pid.Compute(e.limits.TargetEnergyFraction, frac)
	level := mathx.ClampInt(snap.ControlRodLevel+control.RodDelta(v.PIDOutput), 0, 100)
	if level != snap.ControlRodLevel {
		dev.SetAllControlRodLevels(level)
	}
	v.RodLevel = level
	v.Notices = append(v.Notices, Notice{
		Action:  ActionRodTrim,
		Message: fmt.Sprintf("%s rods at %d%%", snap.Identity, level),
	})

	return v
}

// Limits returns the engine's configured thresholds.
func (e *Engine) Limits() Limits { return e.limits }
