// Package telemetry exposes the controller's state as Prometheus metrics
// on an optional HTTP listener. The exporter observes control cycles and
// updates per-reactor gauges; absent scrapers cost nothing.
package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"reactord/internal/loop"
	"reactord/internal/safety"
)

// Exporter implements [loop.Observer] and serves /metrics.
type Exporter struct {
	registry *prometheus.Registry

	energyFraction *prometheus.GaugeVec
	fuelTemp       *prometheus.GaugeVec
	casingTemp     *prometheus.GaugeVec
	rodLevel       *prometheus.GaugeVec
	active         *prometheus.GaugeVec
	backup         prometheus.Gauge

	cycles  prometheus.Counter
	faults  prometheus.Counter
	pauses  prometheus.Counter
	resumes prometheus.Counter
}

func New() *Exporter {
	reg := prometheus.NewRegistry()
	labels := []string{"reactor"}

	e := &Exporter{
		registry: reg,
		energyFraction: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "reactord_energy_fraction",
			Help: "Stored energy as a fraction of capacity.",
		}, labels),
		fuelTemp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "reactord_fuel_temperature",
			Help: "Fuel temperature as reported by the reactor.",
		}, labels),
		casingTemp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "reactord_casing_temperature",
			Help: "Casing temperature as reported by the reactor.",
		}, labels),
		rodLevel: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "reactord_control_rod_level",
			Help: "Control rod insertion level in percent.",
		}, labels),
		active: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "reactord_active",
			Help: "1 when the reactor is active, 0 when paused.",
		}, labels),
		backup: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reactord_backup_power_asserted",
			Help: "1 while the backup relay is asserted.",
		}),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reactord_cycles_total",
			Help: "Control cycles executed.",
		}),
		faults: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reactord_telemetry_faults_total",
			Help: "Telemetry faults that skipped a reactor for one cycle.",
		}),
		pauses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reactord_overflow_pauses_total",
			Help: "Overflow pauses issued.",
		}),
		resumes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reactord_overflow_resumes_total",
			Help: "Overflow resumes issued.",
		}),
	}

	reg.MustRegister(e.energyFraction, e.fuelTemp, e.casingTemp, e.rodLevel,
		e.active, e.backup, e.cycles, e.faults, e.pauses, e.resumes)
	return e
}

// OnCycle updates the gauges from one completed cycle.
func (e *Exporter) OnCycle(c loop.Cycle) {
	e.cycles.Inc()

	backup := false
	for _, st := range c.Reactors {
		if st.Fault != nil {
			e.faults.Inc()
			continue
		}
		snap := st.Snapshot
		e.energyFraction.WithLabelValues(snap.Identity).Set(snap.EnergyFraction())
		e.fuelTemp.WithLabelValues(snap.Identity).Set(snap.FuelTemperature)
		e.casingTemp.WithLabelValues(snap.Identity).Set(snap.CasingTemperature)
		e.rodLevel.WithLabelValues(snap.Identity).Set(float64(st.Verdict.RodLevel))
		e.active.WithLabelValues(snap.Identity).Set(boolGauge(snap.Active))

		if st.Verdict.BackupAsserted {
			backup = true
		}
		for _, n := range st.Verdict.Notices {
			switch n.Action {
			case safety.ActionPaused:
				e.pauses.Inc()
			case safety.ActionResumed:
				e.resumes.Inc()
			}
		}
	}
	e.backup.Set(boolGauge(backup))
}

// Serve blocks on an HTTP listener exposing /metrics until ctx ends.
func (e *Exporter) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Registry exposes the underlying registry for tests.
func (e *Exporter) Registry() *prometheus.Registry { return e.registry }

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
