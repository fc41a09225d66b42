// Package report defines the output surfaces the control loop writes to:
// the operator display, the append-only telemetry record sink, the alert
// broadcaster, and the backup-power relay. Every surface has a null
// implementation; a missing peripheral is never an error.
package report

import "time"

// Display renders ordered operator-facing lines. Implementations truncate
// each line to their width and drop lines beyond their height.
type Display interface {
	Render(lines []string)
}

// Record is one appended telemetry observation.
type Record struct {
	Time           time.Time
	Reactor        string
	EnergyStored   float64
	EnergyCapacity float64
	FuelTemp       float64
	CasingTemp     float64
	RodLevel       int
	Active         bool
}

// Recorder appends telemetry records, best-effort.
type Recorder interface {
	Append(rec Record) error
}

// Alerter broadcasts a message on a channel, fire-and-forget. Only
// invoked on critical conditions.
type Alerter interface {
	Broadcast(message, channel string)
}

// Relay drives a single binary output line.
type Relay interface {
	SetSignal(on bool)
}

type nullDisplay struct{}

func (nullDisplay) Render([]string) {}

type nullRecorder struct{}

func (nullRecorder) Append(Record) error { return nil }

type nullAlerter struct{}

func (nullAlerter) Broadcast(string, string) {}

type nullRelay struct{}

func (nullRelay) SetSignal(bool) {}

// Null sinks for absent peripherals.
func NullDisplay() Display   { return nullDisplay{} }
func NullRecorder() Recorder { return nullRecorder{} }
func NullAlerter() Alerter   { return nullAlerter{} }
func NullRelay() Relay       { return nullRelay{} }

// MultiRecorder fans one record out to several sinks. The first error
// wins but every sink still sees the record.
func MultiRecorder(sinks ...Recorder) Recorder {
	return multiRecorder(sinks)
}

type multiRecorder []Recorder

func (m multiRecorder) Append(rec Record) error {
	var first error
	for _, s := range m {
		if err := s.Append(rec); err != nil && first == nil {
			first = err
		}
	}
	return first
}
