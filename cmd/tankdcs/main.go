package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/log"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/tankdcs/internal/config"
	"github.com/san-kum/tankdcs/internal/dashboard"
	"github.com/san-kum/tankdcs/internal/metrics"
	"github.com/san-kum/tankdcs/internal/scenario"
	"github.com/san-kum/tankdcs/internal/storage"
	"github.com/san-kum/tankdcs/internal/supervisor"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	configFile string
	preset     string
	seed       uint64
	tanks      int
	gain       float64
	noise      float64
	dt         float64
	period     time.Duration
	logLevel   string
	logFile    string
	theme      string
	targetStep float64
	// run
	scenarioFile string
	ticks        int
	noSave       bool
	// sweep
	runs     int
	parallel int
)

// main registers the commands and runs the dashboard when no subcommand is given.
func main() {
	rootCmd := &cobra.Command{
		Use:          "tankdcs",
		Short:        "multi-tank level control DCS simulator",
		SilenceUsage: true,
		RunE:         runDashboard,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dataDir, "data", ".tankdcs", "data directory")
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&preset, "preset", "", "use preset configuration")
	pf.Uint64Var(&seed, "seed", 0, "random seed")
	pf.IntVar(&tanks, "tanks", config.DefaultTanks, "number of tanks")
	pf.Float64Var(&gain, "gain", 0, "control correction gain (1/s)")
	pf.Float64Var(&noise, "noise", 0, "process noise half-width")
	pf.Float64Var(&dt, "dt", config.DefaultDt, "simulated seconds per tick")
	pf.StringVar(&logLevel, "log-level", "info", "log level (debug|info|warn|error)")

	dashFlags := func(c *cobra.Command) {
		c.Flags().DurationVar(&period, "period", config.DefaultTickPeriod, "wall-clock tick period")
		c.Flags().StringVar(&theme, "theme", dashboard.ThemeControlRoom.Name,
			"color theme ("+strings.Join(dashboard.ThemeNames(), "|")+")")
		c.Flags().Float64Var(&targetStep, "step", 5, "setpoint change per key press")
		c.Flags().StringVar(&logFile, "log-file", "", "write logs to this file while the dashboard runs")
	}
	dashFlags(rootCmd)

	dashCmd := &cobra.Command{
		Use:   "dash",
		Short: "run the live dashboard",
		RunE:  runDashboard,
	}
	dashFlags(dashCmd)

	runCmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "run a scenario headless and save it",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScenario,
	}
	runCmd.Flags().StringVar(&scenarioFile, "file", "", "scenario file (yaml)")
	runCmd.Flags().IntVar(&ticks, "ticks", 0, "override scenario length")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	sweepCmd := &cobra.Command{
		Use:   "sweep [scenario]",
		Short: "run a scenario over consecutive seeds in parallel",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	sweepCmd.Flags().StringVar(&scenarioFile, "file", "", "scenario file (yaml)")
	sweepCmd.Flags().IntVar(&ticks, "ticks", 0, "override scenario length")
	sweepCmd.Flags().IntVar(&runs, "runs", 16, "number of seeds")
	sweepCmd.Flags().IntVar(&parallel, "parallel", 0, "concurrent runs (0 = one per CPU)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot tank levels of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range config.ListPresets() {
				cfg := config.GetPreset(p)
				fmt.Printf("  %-10s %d tanks, gain %.2f, noise %.1f, period %s\n", p, len(cfg.Tanks), cfg.Gain, cfg.Noise, cfg.TickPeriod)
			}
			return nil
		},
	}

	scenariosCmd := &cobra.Command{
		Use:   "scenarios",
		Short: "list built-in scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range scenario.ListBuiltin() {
				sc, err := scenario.Builtin(name)
				if err != nil {
					return err
				}
				fmt.Printf("  %-8s %4d ticks  %s\n", name, sc.Ticks, sc.Description)
			}
			return nil
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "configuration helpers",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "write the effective configuration to a yaml file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := config.Save(args[0], cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", args[0])
			return nil
		},
	})

	rootCmd.AddCommand(dashCmd, runCmd, sweepCmd, listCmd, plotCmd, exportCSVCmd, exportJSONCmd, presetsCmd, scenariosCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig layers preset, config file and changed flags, in that order.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.LoadInto(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("tanks") {
		cfg.WithTankCount(tanks)
	}
	if flags.Changed("gain") {
		cfg.Gain = gain
	}
	if flags.Changed("noise") {
		cfg.Noise = noise
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Lookup("period") != nil && flags.Changed("period") {
		cfg.TickPeriod = period
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(w io.Writer) (*log.Logger, error) {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		return nil, err
	}
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		Prefix:          "tankdcs",
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	}), nil
}

func runDashboard(cmd *cobra.Command, args []string) error {
	if !slices.Contains(dashboard.ThemeNames(), theme) {
		return fmt.Errorf("unknown theme: %s (available: %v)", theme, dashboard.ThemeNames())
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// the dashboard owns the terminal; logs go to a file or nowhere
	out := io.Discard
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	logger, err := newLogger(out)
	if err != nil {
		return err
	}

	sup, err := supervisor.New(cfg, supervisor.WithLogger(logger))
	if err != nil {
		return err
	}

	return dashboard.Run(sup, cfg,
		dashboard.WithLogger(logger),
		dashboard.WithTheme(theme),
		dashboard.WithTargetStep(targetStep),
	)
}

// pickScenario resolves --file, a built-in name, or the demo scenario.
func pickScenario(args []string) (*scenario.Scenario, error) {
	var (
		sc  *scenario.Scenario
		err error
	)
	switch {
	case scenarioFile != "":
		sc, err = scenario.LoadScenario(scenarioFile)
	case len(args) == 1:
		sc, err = scenario.Builtin(args[0])
	default:
		sc, err = scenario.Builtin("demo")
	}
	if err != nil {
		return nil, err
	}
	if ticks > 0 {
		sc.Ticks = ticks
	}
	return sc, nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	sc, err := pickScenario(args)
	if err != nil {
		return err
	}

	sup, err := supervisor.New(cfg, supervisor.WithLogger(logger))
	if err != nil {
		return err
	}
	rec := storage.NewRecorder()
	rec.Seed(sup.Snapshots())
	collector := metrics.Defaults()
	sup.AddObserver(rec)
	sup.AddObserver(collector)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Info("running scenario", "name", sc.Name, "ticks", sc.Ticks, "tanks", len(cfg.Tanks), "seed", cfg.Seed)
	start := time.Now()
	out, err := scenario.Run(ctx, sup, sc, cfg.Dt)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	for _, rej := range out.Rejected {
		logger.Warn("command rejected", "err", rej)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TANK\tLEVEL\tTARGET\tRANGE\tSTATUS\tOVERFLOW")
	for _, s := range out.Final {
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.0f-%.0f\t%s\t%v\n", s.Name, s.Level, s.Target, s.Low, s.High, s.Status, s.Overflow)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	vals := collector.Values()
	fmt.Printf("\ncompleted %d ticks in %v\n", sup.Ticks(), elapsed)
	fmt.Println("metrics:")
	for _, name := range []string{"stable_ratio", "alarm_events", "control_effort", "max_deviation"} {
		fmt.Printf("  %s: %.4f\n", name, vals[name])
	}

	if noSave {
		return nil
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(storage.RunMetadata{
		Scenario: sc.Name,
		Seed:     cfg.Seed,
		Dt:       cfg.Dt,
		Metrics:  vals,
	}, rec.History())
	if err != nil {
		return err
	}
	fmt.Printf("run id: %s\n", runID)
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	sc, err := pickScenario(args)
	if err != nil {
		return err
	}

	ens := scenario.NewEnsemble(cfg, sc, runs)
	ens.SetLogger(logger)
	if parallel > 0 {
		ens.SetParallelism(parallel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Info("running sweep", "scenario", sc.Name, "runs", runs, "first_seed", cfg.Seed)
	start := time.Now()
	results, err := ens.Run(ctx, cfg.Dt)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tMEAN\tMIN\tMAX")
	for _, name := range []string{"stable_ratio", "alarm_events", "control_effort", "max_deviation"} {
		sum := scenario.Summarize(results, name)
		fmt.Fprintf(w, "%s\t%.4f\t%.4f\t%.4f\n", name, sum.Mean, sum.Min, sum.Max)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d runs of %q in %v\n", len(results), sc.Name, time.Since(start))
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tTIME\tTICKS\tTANKS\tSEED\tSTABLE")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%.1f%%\n",
			run.ID,
			run.Scenario,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Ticks,
			len(run.Tanks),
			run.Seed,
			run.Metrics["stable_ratio"]*100,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	hist, err := st.LoadHistory(runID)
	if err != nil {
		return err
	}

	if hist.Len() == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scenario: %s\n", meta.Scenario)
	fmt.Printf("samples: %d\n\n", hist.Len())

	for i, name := range hist.Names {
		targets := make([]float64, hist.Len())
		for k := range hist.Targets {
			targets[k] = hist.Targets[k][i]
		}
		graph := asciigraph.PlotMany([][]float64{hist.Series(i), targets},
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.SeriesColors(asciigraph.Green, asciigraph.Red),
			asciigraph.Caption(name+" level vs target"),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	hist, err := st.LoadHistory(args[0])
	if err != nil {
		return err
	}
	if hist.Len() == 0 {
		return fmt.Errorf("no data to export")
	}
	return storage.WriteCSV(os.Stdout, hist)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	hist, err := st.LoadHistory(runID)
	if err != nil {
		return err
	}

	return storage.ExportJSON(os.Stdout, meta, hist)
}
