// Package loop runs the fixed-cadence control cycle: per tick it
// snapshots every enumerated reactor in stable order, runs the safety
// interlock sequence and PID trim, and dispatches reporting. All control
// decisions execute on the single goroutine inside Run.
package loop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"reactord/internal/config"
	"reactord/internal/control"
	"reactord/internal/reactor"
	"reactord/internal/report"
	"reactord/internal/safety"
)

// FatalError reports the deliberate whole-process emergency stop. One
// overheated reactor halts the controller: the caller logs the reason and
// exits rather than continuing with the remaining units.
type FatalError struct {
	Reactor string
	Reason  string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("emergency stop: %s", e.Reason)
}

// Status is the outcome for one reactor in one cycle. Exactly one of
// Fault or Verdict is meaningful.
type Status struct {
	Snapshot reactor.Snapshot
	Fault    error
	Verdict  safety.Verdict
}

// Cycle is the full outcome of one tick.
type Cycle struct {
	Seq      uint64
	Time     time.Time
	Reactors []Status
	Fatal    *FatalError
}

// Observer receives every completed cycle, synchronously on the control
// goroutine. Observers must not block.
type Observer interface {
	OnCycle(c Cycle)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(c Cycle)

func (f ObserverFunc) OnCycle(c Cycle) { f(c) }

// Stats are cumulative counters over the loop's lifetime.
type Stats struct {
	Cycles  uint64
	Faults  uint64
	Pauses  uint64
	Resumes uint64
}

// Options carry the reporting peripherals. Any nil sink degrades to a
// silent null object.
type Options struct {
	Display  report.Display
	Recorder report.Recorder
	Alerter  report.Alerter
	Relay    report.Relay
	Logger   zerolog.Logger
	Clock    func() time.Time
}

// Loop owns the per-reactor PID store and drives the interlock engine on
// a fixed cadence.
type Loop struct {
	cfg      *config.Config
	devices  []reactor.Device
	engine   *safety.Engine
	pids     map[string]*control.PID
	display  report.Display
	recorder report.Recorder
	alerter  report.Alerter
	log      zerolog.Logger

	observers []Observer
	now       func() time.Time
	seq       uint64
	stats     Stats
}

// New enumerates devices from the provider and builds the loop. Zero
// discovered devices is fatal at startup.
func New(cfg *config.Config, provider reactor.Provider, opts Options) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	devices, err := provider.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerate reactors: %w", err)
	}
	if len(devices) == 0 {
		return nil, errors.New("no reactor devices found")
	}

	if opts.Display == nil {
		opts.Display = report.NullDisplay()
	}
	if opts.Recorder == nil {
		opts.Recorder = report.NullRecorder()
	}
	if opts.Alerter == nil {
		opts.Alerter = report.NullAlerter()
	}
	if opts.Relay == nil {
		opts.Relay = report.NullRelay()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	limits := safety.Limits{
		MaxTemperature:       cfg.MaxTemperature,
		BackupThreshold:      cfg.BackupThreshold,
		OverflowThreshold:    cfg.OverflowThreshold,
		OverflowResumeMargin: cfg.OverflowResumeMargin,
		TargetEnergyFraction: cfg.TargetEnergyFraction,
	}

	return &Loop{
		cfg:      cfg,
		devices:  devices,
		engine:   safety.NewEngine(limits, opts.Relay, opts.Logger),
		pids:     make(map[string]*control.PID),
		display:  opts.Display,
		recorder: opts.Recorder,
		alerter:  opts.Alerter,
		log:      opts.Logger,
		now:      opts.Clock,
	}, nil
}

func (l *Loop) AddObserver(o Observer) {
	l.observers = append(l.observers, o)
}

// Stats returns a copy of the lifetime counters.
func (l *Loop) Stats() Stats { return l.stats }

// pidFor returns the regulator owned by the named reactor, creating it on
// first observation. Regulators live as long as the process.
func (l *Loop) pidFor(identity string) *control.PID {
	pid, ok := l.pids[identity]
	if !ok {
		pid = control.NewPID(l.cfg.PID.Kp, l.cfg.PID.Ki, l.cfg.PID.Kd)
		pid.IntegralLimit = l.cfg.PID.IntegralLimit
		l.pids[identity] = pid
	}
	return pid
}

// Run executes ticks at the configured cadence until the context is
// cancelled or a fatal condition stops the process. It returns a
// *FatalError for an emergency stop and the context error otherwise.
func (l *Loop) Run(ctx context.Context) error {
	interval := time.Duration(l.cfg.PollInterval * float64(time.Second))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := l.Tick(); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick processes every reactor once, in enumeration order. A fatal
// verdict flushes reporting for the triggering reactor and returns
// without touching the reactors after it.
func (l *Loop) Tick() (Cycle, error) {
	l.seq++
	l.stats.Cycles++
	c := Cycle{Seq: l.seq, Time: l.now()}

	for _, dev := range l.devices {
		snap, err := reactor.Take(dev)
		if err != nil {
			// recoverable data fault: skip interlock math for this unit,
			// report it, retry next cycle
			l.stats.Faults++
			l.log.Warn().Str("reactor", dev.Identity()).Err(err).Msg("telemetry fault, skipping cycle")
			c.Reactors = append(c.Reactors, Status{
				Snapshot: reactor.Snapshot{Identity: dev.Identity()},
				Fault:    err,
			})
			continue
		}

		v := l.engine.Evaluate(snap, dev, l.pidFor(snap.Identity))
		l.countActions(v)
		st := Status{Snapshot: snap, Verdict: v}
		c.Reactors = append(c.Reactors, st)

		if err := l.recorder.Append(report.Record{
			Time:           c.Time,
			Reactor:        snap.Identity,
			EnergyStored:   snap.EnergyStored,
			EnergyCapacity: snap.EnergyCapacity,
			FuelTemp:       snap.FuelTemperature,
			CasingTemp:     snap.CasingTemperature,
			RodLevel:       v.RodLevel,
			Active:         dev.Active(),
		}); err != nil {
			l.log.Warn().Str("reactor", snap.Identity).Err(err).Msg("record append failed")
		}

		if v.Fatal {
			c.Fatal = &FatalError{Reactor: snap.Identity, Reason: v.FatalReason}
			l.flushFatal(c)
			return c, c.Fatal
		}
	}

	l.display.Render(l.formatCycle(c))
	l.notify(c)
	return c, nil
}

func (l *Loop) countActions(v safety.Verdict) {
	for _, n := range v.Notices {
		switch n.Action {
		case safety.ActionPaused:
			l.stats.Pauses++
		case safety.ActionResumed:
			l.stats.Resumes++
		}
	}
}

// flushFatal pushes the emergency report to every sink before the caller
// halts: display, log, and the alert broadcast.
func (l *Loop) flushFatal(c Cycle) {
	l.log.Error().Str("reactor", c.Fatal.Reactor).Msg(c.Fatal.Reason)
	l.alerter.Broadcast(c.Fatal.Reason, l.cfg.Alerts.Channel)
	l.display.Render(l.formatCycle(c))
	l.notify(c)
}

func (l *Loop) notify(c Cycle) {
	for _, o := range l.observers {
		o.OnCycle(c)
	}
}

func (l *Loop) formatCycle(c Cycle) []string {
	lines := []string{
		fmt.Sprintf("== reactord  cycle %d  %s", c.Seq, c.Time.Format("15:04:05")),
	}

	backup := false
	for _, st := range c.Reactors {
		if st.Fault != nil {
			lines = append(lines, fmt.Sprintf("FAULT  %-10s %v", st.Snapshot.Identity, st.Fault))
			continue
		}

		snap := st.Snapshot
		state := "RUN"
		if !snap.Active {
			state = "IDLE"
		}
		line := fmt.Sprintf("%-6s %-10s energy %5.1f%%  fuel %7.1f  rods %3d%%",
			state, snap.Identity, snap.EnergyFraction()*100, snap.FuelTemperature, st.Verdict.RodLevel)

		for _, n := range st.Verdict.Notices {
			switch n.Action {
			case safety.ActionPaused:
				line = "PAUSED " + line[7:]
			case safety.ActionOverheat:
				lines = append(lines, "CRITICAL "+n.Message)
			}
		}
		lines = append(lines, line)

		if st.Verdict.BackupAsserted {
			backup = true
		}
	}

	lines = append(lines, fmt.Sprintf("-- backup power: %s", onOff(backup)))
	return lines
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
