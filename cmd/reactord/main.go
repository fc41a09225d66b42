package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"reactord/internal/config"
	"reactord/internal/history"
	"reactord/internal/loop"
	"reactord/internal/report"
	"reactord/internal/sim"
	"reactord/internal/telemetry"
	"reactord/internal/tui"
)

const version = "0.3.0"

var (
	configFile string
	logLevel   string

	simCount int
	simSeed  int64
	interval float64
	maxTemp  float64
	kp       float64
	ki       float64
	kd       float64
	target   float64

	historyDB string
	reactorID string
	limit     int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "reactord",
		Short: "closed-loop reactor safety controller",
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml or toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides config)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the control loop",
		RunE:  runController,
	}
	addControlFlags(runCmd)

	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "run the control loop with a live terminal monitor",
		RunE:  runMonitor,
	}
	addControlFlags(monitorCmd)

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "inspect recorded telemetry",
	}
	historyCmd.PersistentFlags().StringVar(&historyDB, "db", "reactord.db", "history database path")
	historyCmd.PersistentFlags().StringVar(&reactorID, "reactor", "", "filter by reactor identity")
	historyCmd.PersistentFlags().IntVar(&limit, "limit", 50, "maximum records (0 for all)")

	historyListCmd := &cobra.Command{
		Use:   "list",
		Short: "list recent records",
		RunE:  listHistory,
	}
	historyExportCmd := &cobra.Command{
		Use:   "export",
		Short: "export records as CSV to stdout",
		RunE:  exportHistory,
	}
	historyPlotCmd := &cobra.Command{
		Use:   "plot [reactor]",
		Short: "plot a reactor's energy fraction over time",
		Args:  cobra.ExactArgs(1),
		RunE:  plotHistory,
	}
	historyCmd.AddCommand(historyListCmd, historyExportCmd, historyPlotCmd)

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "configuration helpers",
	}
	configInitCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write a default config file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "reactord.yaml"
			if len(args) > 0 {
				path = args[0]
			}
			if err := config.Save(path, config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}
	configCmd.AddCommand(configInitCmd)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("reactord " + version)
		},
	}

	rootCmd.AddCommand(runCmd, monitorCmd, historyCmd, configCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addControlFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&simCount, "sim", 0, "run against N simulated reactors instead of hardware")
	cmd.Flags().Int64Var(&simSeed, "seed", time.Now().UnixNano(), "simulation seed")
	cmd.Flags().Float64Var(&interval, "interval", config.DefaultPollInterval, "poll interval in seconds")
	cmd.Flags().Float64Var(&maxTemp, "max-temp", config.DefaultMaxTemperature, "emergency shutdown fuel temperature")
	cmd.Flags().Float64Var(&kp, "kp", config.DefaultKp, "pid kp")
	cmd.Flags().Float64Var(&ki, "ki", config.DefaultKi, "pid ki")
	cmd.Flags().Float64Var(&kd, "kd", config.DefaultKd, "pid kd")
	cmd.Flags().Float64Var(&target, "target", config.DefaultTargetFraction, "target energy fraction")
}

// loadConfig layers defaults, then the config file, then explicitly set
// flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("interval") {
		cfg.PollInterval = interval
	}
	if cmd.Flags().Changed("max-temp") {
		cfg.MaxTemperature = maxTemp
	}
	if cmd.Flags().Changed("kp") {
		cfg.PID.Kp = kp
	}
	if cmd.Flags().Changed("ki") {
		cfg.PID.Ki = ki
	}
	if cmd.Flags().Changed("kd") {
		cfg.PID.Kd = kd
	}
	if cmd.Flags().Changed("target") {
		cfg.TargetEnergyFraction = target
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func initLogger(cfg *config.Config) zerolog.Logger {
	if !cfg.Logging.Enabled {
		return zerolog.Nop()
	}
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).Level(level).With().Timestamp().Str("app", "reactord").Logger()
}

// provider returns the device source. The shipped binary discovers
// simulated plants only; hardware deployments embed internal/loop behind
// their own reactor.Provider.
func provider() (*sim.Plant, error) {
	if simCount <= 0 {
		return nil, errors.New("no device provider configured: pass --sim N to run a simulated plant")
	}
	return sim.NewModelPlant(simCount, sim.DefaultModelParams(), simSeed), nil
}

func buildLoop(log zerolog.Logger, cfg *config.Config, display report.Display) (*loop.Loop, func(), error) {
	plant, err := provider()
	if err != nil {
		return nil, nil, err
	}

	recorders := []report.Recorder{}
	cleanup := func() {}
	if cfg.Logging.Enabled {
		recorders = append(recorders, report.NewLogRecorder(log))
	}
	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, nil, err
		}
		recorders = append(recorders, store)
		cleanup = func() { store.Close() }
	}

	var recorder report.Recorder = report.NullRecorder()
	if len(recorders) > 0 {
		recorder = report.MultiRecorder(recorders...)
	}

	l, err := loop.New(cfg, plant, loop.Options{
		Display:  display,
		Recorder: recorder,
		Alerter:  report.NewLogAlerter(log),
		Logger:   log,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return l, cleanup, nil
}

func runController(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := initLogger(cfg)

	display := report.NewConsole(os.Stdout, cfg.Display.Width, cfg.Display.Height)
	l, cleanup, err := buildLoop(log, cfg, display)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		exporter := telemetry.New()
		l.AddObserver(exporter)
		go func() {
			if err := exporter.Serve(ctx, cfg.Metrics.Listen); err != nil {
				log.Warn().Err(err).Msg("metrics listener failed")
			}
		}()
	}

	log.Info().Float64("interval", cfg.PollInterval).Msg("control loop starting")
	err = l.Run(ctx)

	stats := l.Stats()
	summary := log.Info().
		Uint64("cycles", stats.Cycles).
		Uint64("faults", stats.Faults).
		Uint64("pauses", stats.Pauses).
		Uint64("resumes", stats.Resumes)

	var fatal *loop.FatalError
	if errors.As(err, &fatal) {
		summary.Msg("control loop halted")
		log.Error().Str("reactor", fatal.Reactor).Msg(fatal.Reason)
		os.Exit(1)
	}
	summary.Msg("control loop stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// the monitor owns the terminal; the console writer would fight it
	cfg.Logging.Enabled = false
	log := zerolog.Nop()

	l, cleanup, err := buildLoop(log, cfg, report.NullDisplay())
	if err != nil {
		return err
	}
	defer cleanup()

	feed := tui.NewFeed()
	l.AddObserver(feed)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)

	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()

	uiErr := tui.Run(feed)
	cancel()
	runErr := <-errc

	var fatal *loop.FatalError
	if errors.As(runErr, &fatal) {
		fmt.Fprintln(os.Stderr, fatal.Error())
		os.Exit(1)
	}
	return uiErr
}

func listHistory(cmd *cobra.Command, args []string) error {
	store, err := history.Open(historyDB)
	if err != nil {
		return err
	}
	defer store.Close()

	recs, err := store.List(reactorID, limit)
	if err != nil {
		return err
	}
	for _, r := range recs {
		frac := 0.0
		if r.EnergyCapacity > 0 {
			frac = r.EnergyStored / r.EnergyCapacity
		}
		fmt.Printf("%s  %-10s energy %5.1f%%  fuel %7.1f  rods %3d%%  active=%t\n",
			r.Time.Format(time.RFC3339), r.Reactor, frac*100, r.FuelTemp, r.RodLevel, r.Active)
	}
	return nil
}

func exportHistory(cmd *cobra.Command, args []string) error {
	store, err := history.Open(historyDB)
	if err != nil {
		return err
	}
	defer store.Close()

	recs, err := store.List(reactorID, limit)
	if err != nil {
		return err
	}

	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	if err := w.Write([]string{"time", "reactor", "energy_stored", "energy_capacity", "fuel_temp", "casing_temp", "rod_level", "active"}); err != nil {
		return err
	}
	for _, r := range recs {
		row := []string{
			r.Time.Format(time.RFC3339),
			r.Reactor,
			strconv.FormatFloat(r.EnergyStored, 'f', 1, 64),
			strconv.FormatFloat(r.EnergyCapacity, 'f', 1, 64),
			strconv.FormatFloat(r.FuelTemp, 'f', 1, 64),
			strconv.FormatFloat(r.CasingTemp, 'f', 1, 64),
			strconv.Itoa(r.RodLevel),
			strconv.FormatBool(r.Active),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func plotHistory(cmd *cobra.Command, args []string) error {
	store, err := history.Open(historyDB)
	if err != nil {
		return err
	}
	defer store.Close()

	recs, err := store.List(args[0], limit)
	if err != nil {
		return err
	}
	if len(recs) < 2 {
		return fmt.Errorf("not enough records for %s", args[0])
	}

	// List returns newest first; plot oldest to newest
	data := make([]float64, len(recs))
	for i, r := range recs {
		frac := 0.0
		if r.EnergyCapacity > 0 {
			frac = r.EnergyStored / r.EnergyCapacity
		}
		data[len(recs)-1-i] = frac
	}

	graph := asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("%s energy fraction (%d samples)", args[0], len(data))),
	)
	fmt.Println(graph)
	return nil
}
