package sim

import (
	"fmt"
	"math/rand"
	"time"

	"reactord/internal/reactor"
)

// ModelParams tune the demo reactor dynamics.
type ModelParams struct {
	Capacity    float64 // energy buffer size
	GenRate     float64 // energy per second at rods fully withdrawn
	DrainRate   float64 // constant external draw per second
	HeatRate    float64 // fuel temperature per second at full output
	CoolRate    float64 // passive cooling per second
	AmbientTemp float64
	FuelBurn    float64 // fuel consumed per second at full output
}

func DefaultModelParams() ModelParams {
	return ModelParams{
		Capacity:    10_000_000,
		GenRate:     400_000,
		DrainRate:   150_000,
		HeatRate:    45,
		CoolRate:    30,
		AmbientTemp: 20,
		FuelBurn:    0.8,
	}
}

// ModelUnit is a reactor with simple energy-balance and thermal dynamics:
// output scales with rod withdrawal while active, the buffer drains at a
// constant rate, and fuel temperature relaxes between heating and
// cooling. State advances lazily when energy is sampled, so a snapshot
// read sees one consistent instant per cycle.
type ModelUnit struct {
	Unit
	params ModelParams

	now  func() time.Time
	last time.Time
	rng  *rand.Rand
}

func NewModelUnit(id string, params ModelParams, seed int64) *ModelUnit {
	m := &ModelUnit{
		Unit:   *NewUnit(id),
		params: params,
		now:    time.Now,
		rng:    rand.New(rand.NewSource(seed)),
	}
	m.Capacity = params.Capacity
	m.Stored = params.Capacity * 0.5
	m.FuelTemp = params.AmbientTemp
	m.CasingTemp = params.AmbientTemp
	return m
}

// SetClock injects a time source for deterministic tests.
func (m *ModelUnit) SetClock(now func() time.Time) { m.now = now }

// EnergyStored advances the model by the wall-clock time elapsed since
// the previous sample, then reports the buffer level. The control loop
// samples energy first in each snapshot, so all other reads within the
// cycle observe the same advanced state.
func (m *ModelUnit) EnergyStored() float64 {
	t := m.now()
	if !m.last.IsZero() {
		m.advance(t.Sub(m.last).Seconds())
	}
	m.last = t
	return m.Stored
}

func (m *ModelUnit) advance(dt float64) {
	if dt <= 0 {
		return
	}

	output := 0.0
	if m.Running && m.Fuel > 0 {
		output = float64(100-m.Rod) / 100.0
	}

	gen := output * m.params.GenRate
	drain := m.params.DrainRate * (0.9 + 0.2*m.rng.Float64())

	m.Stored += (gen - drain) * dt
	if m.Stored < 0 {
		m.Stored = 0
	}
	if m.Stored > m.Capacity {
		m.Stored = m.Capacity
	}

	m.FuelTemp += (output*m.params.HeatRate - m.params.CoolRate*(m.FuelTemp-m.params.AmbientTemp)/1000) * dt
	if m.FuelTemp < m.params.AmbientTemp {
		m.FuelTemp = m.params.AmbientTemp
	}
	m.CasingTemp = m.params.AmbientTemp + (m.FuelTemp-m.params.AmbientTemp)*0.4

	m.Fuel -= output * m.params.FuelBurn * dt
	if m.Fuel < 0 {
		m.Fuel = 0
	}
	m.Waste += output * m.params.FuelBurn * dt
}

// NewModelPlant builds n model reactors with distinct identities and
// seeds, in stable enumeration order.
func NewModelPlant(n int, params ModelParams, seed int64) *Plant {
	devices := make([]reactor.Device, 0, n)
	for i := 0; i < n; i++ {
		devices = append(devices, NewModelUnit(fmt.Sprintf("unit-%d", i), params, seed+int64(i)))
	}
	return NewPlant(devices...)
}
