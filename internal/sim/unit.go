// Package sim provides synthetic reactor devices: plain settable units
// for tests and a parameterized dynamic model for demo runs without
// hardware attached.
package sim

import "reactord/internal/reactor"

// Unit is an in-memory reactor device with directly settable telemetry.
// Tests mutate its fields between control cycles.
type Unit struct {
	ID         string
	Stored     float64
	Capacity   float64
	FuelTemp   float64
	CasingTemp float64
	Fuel       float64
	Waste      float64
	Rod        int
	Running    bool

	// Write counters, handy for asserting idempotent command dispatch.
	RodWrites    int
	ActiveWrites int
}

// NewUnit returns a healthy mid-charge unit.
func NewUnit(id string) *Unit {
	return &Unit{
		ID:         id,
		Stored:     5_000_000,
		Capacity:   10_000_000,
		FuelTemp:   600,
		CasingTemp: 300,
		Fuel:       1000,
		Waste:      0,
		Rod:        50,
		Running:    true,
	}
}

func (u *Unit) Identity() string           { return u.ID }
func (u *Unit) EnergyStored() float64      { return u.Stored }
func (u *Unit) EnergyCapacity() float64    { return u.Capacity }
func (u *Unit) FuelTemperature() float64   { return u.FuelTemp }
func (u *Unit) CasingTemperature() float64 { return u.CasingTemp }
func (u *Unit) FuelAmount() float64        { return u.Fuel }
func (u *Unit) WasteAmount() float64       { return u.Waste }
func (u *Unit) ControlRodLevel() int       { return u.Rod }

func (u *Unit) SetAllControlRodLevels(level int) {
	u.Rod = level
	u.RodWrites++
}

func (u *Unit) Active() bool { return u.Running }

func (u *Unit) SetActive(active bool) {
	u.Running = active
	u.ActiveWrites++
}

// Plant is a fixed, ordered collection of devices satisfying
// [reactor.Provider].
type Plant struct {
	devices []reactor.Device
}

func NewPlant(devices ...reactor.Device) *Plant {
	return &Plant{devices: devices}
}

func (p *Plant) Devices() ([]reactor.Device, error) {
	return p.devices, nil
}
