package report

import "github.com/rs/zerolog"

// LogRecorder appends telemetry records as structured log events.
type LogRecorder struct {
	log zerolog.Logger
}

func NewLogRecorder(log zerolog.Logger) *LogRecorder {
	return &LogRecorder{log: log}
}

func (r *LogRecorder) Append(rec Record) error {
	r.log.Info().
		Time("ts", rec.Time).
		Str("reactor", rec.Reactor).
		Float64("energy_stored", rec.EnergyStored).
		Float64("energy_capacity", rec.EnergyCapacity).
		Float64("fuel_temp", rec.FuelTemp).
		Float64("casing_temp", rec.CasingTemp).
		Int("rod_level", rec.RodLevel).
		Bool("active", rec.Active).
		Msg("telemetry")
	return nil
}

// LogAlerter broadcasts alerts to the log stream. It stands in for a
// wireless broadcaster when none is attached but alerts should still be
// visible.
type LogAlerter struct {
	log zerolog.Logger
}

func NewLogAlerter(log zerolog.Logger) *LogAlerter {
	return &LogAlerter{log: log}
}

func (a *LogAlerter) Broadcast(message, channel string) {
	a.log.Error().Str("channel", channel).Msg(message)
}
