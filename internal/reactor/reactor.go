// Package reactor defines the capability contract a reactor unit must
// satisfy and the per-cycle telemetry snapshot the control loop operates
// on. The package is dependency-free so that hardware bridges and
// synthetic test devices satisfy the same interface.
package reactor

import "fmt"

// Device is one controllable reactor unit. Reads may be issued any number
// of times per cycle in any order; writes are idempotent and
// last-write-wins.
type Device interface {
	Identity() string

	EnergyStored() float64
	EnergyCapacity() float64
	FuelTemperature() float64
	CasingTemperature() float64
	FuelAmount() float64
	WasteAmount() float64

	ControlRodLevel() int
	SetAllControlRodLevels(level int)

	Active() bool
	SetActive(active bool)
}

// Provider enumerates the reactor devices available to the control loop.
// Enumeration order must be stable so operator-facing output does not
// jitter between cycles.
type Provider interface {
	Devices() ([]Device, error)
}

// Snapshot is an immutable view of one reactor's telemetry, taken fresh
// at the start of each cycle.
type Snapshot struct {
	Identity          string
	EnergyStored      float64
	EnergyCapacity    float64
	FuelTemperature   float64
	CasingTemperature float64
	FuelAmount        float64
	WasteAmount       float64
	ControlRodLevel   int
	Active            bool
}

// EnergyFraction is EnergyStored/EnergyCapacity. Valid snapshots always
// have a positive capacity; Take rejects the rest.
func (s Snapshot) EnergyFraction() float64 {
	return s.EnergyStored / s.EnergyCapacity
}

// FaultError marks telemetry that cannot be acted on this cycle. The loop
// logs it, skips interlock math for the unit, and retries next cycle.
type FaultError struct {
	Reactor string
	Reason  string
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("reactor %s: telemetry fault: %s", e.Reactor, e.Reason)
}

// Take reads a full snapshot from dev and validates it. A zero or
// negative energy capacity and negative telemetry values are data faults,
// not crashes.
func Take(dev Device) (Snapshot, error) {
	s := Snapshot{
		Identity:          dev.Identity(),
		EnergyStored:      dev.EnergyStored(),
		EnergyCapacity:    dev.EnergyCapacity(),
		FuelTemperature:   dev.FuelTemperature(),
		CasingTemperature: dev.CasingTemperature(),
		FuelAmount:        dev.FuelAmount(),
		WasteAmount:       dev.WasteAmount(),
		ControlRodLevel:   dev.ControlRodLevel(),
		Active:            dev.Active(),
	}

	if err := s.validate(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

func (s Snapshot) validate() error {
	fault := func(reason string) error {
		return &FaultError{Reactor: s.Identity, Reason: reason}
	}
	switch {
	case s.EnergyCapacity <= 0:
		return fault(fmt.Sprintf("energy capacity %.1f is not positive", s.EnergyCapacity))
	case s.EnergyStored < 0:
		return fault(fmt.Sprintf("negative energy stored %.1f", s.EnergyStored))
	case s.EnergyStored > s.EnergyCapacity:
		return fault(fmt.Sprintf("energy stored %.1f exceeds capacity %.1f", s.EnergyStored, s.EnergyCapacity))
	case s.FuelAmount < 0:
		return fault(fmt.Sprintf("negative fuel amount %.1f", s.FuelAmount))
	case s.WasteAmount < 0:
		return fault(fmt.Sprintf("negative waste amount %.1f", s.WasteAmount))
	case s.ControlRodLevel < 0 || s.ControlRodLevel > 100:
		return fault(fmt.Sprintf("control rod level %d outside [0,100]", s.ControlRodLevel))
	}
	return nil
}
