package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/braketilt/internal/automation"
	"github.com/san-kum/braketilt/internal/config"
	"github.com/san-kum/braketilt/internal/export"
	"github.com/san-kum/braketilt/internal/metrics"
	"github.com/san-kum/braketilt/internal/optim"
	"github.com/san-kum/braketilt/internal/sim"
	"github.com/san-kum/braketilt/internal/storage"
	"github.com/san-kum/braketilt/internal/tui"
	"github.com/spf13/cobra"
)

var (
	dataDir string
	verbose bool

	configFile string
	preset     string
	strength   float64
	lingering  float64
	seed       int64
	noise      float64
	dt         float64
	duration   float64
	save       bool

	outPath string
	runs    int

	sweepParams []string
	sweepMetric string
	maximize    bool
	top         int
)

var logger = log.New(os.Stderr, "btsim: ", 0)

func main() {
	rootCmd := &cobra.Command{
		Use:          "btsim",
		Short:        "brake-tilt controller simulation lab",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return tui.RunLive(nil)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".btsim", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log hold-tilt and override transitions")

	runCmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "run a scenario and store the trace",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScenario,
	}
	addScenarioFlags(runCmd)
	runCmd.Flags().BoolVar(&save, "save", true, "store the run under the data directory")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a stored run to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	exportPlotCmd := &cobra.Command{
		Use:   "export-plot [run_id]",
		Short: "render a stored run to png, svg or pdf",
		Args:  cobra.ExactArgs(1),
		RunE:  exportPlot,
	}
	exportPlotCmd.Flags().StringVarP(&outPath, "out", "o", "", "output image (default <run_id>.png)")

	sweepCmd := &cobra.Command{
		Use:   "sweep [scenario]",
		Short: "grid search over brake-tilt tuning",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	addScenarioFlags(sweepCmd)
	sweepCmd.Flags().StringArrayVarP(&sweepParams, "param", "p", []string{"strength=0:20:21"}, "parameter range name=lo:hi:n (repeatable)")
	sweepCmd.Flags().StringVar(&sweepMetric, "metric", "peak_setpoint", "metric to rank by")
	sweepCmd.Flags().BoolVar(&maximize, "max", false, "rank highest first")
	sweepCmd.Flags().IntVar(&top, "top", 10, "rows to print")

	ensembleCmd := &cobra.Command{
		Use:   "ensemble [scenario]",
		Short: "repeat a noisy scenario under consecutive seeds",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runEnsemble,
	}
	addScenarioFlags(ensembleCmd)
	ensembleCmd.Flags().IntVarP(&runs, "runs", "n", 20, "number of runs")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list scenario presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			for _, name := range config.ListPresets() {
				p := config.Presets[name]
				fmt.Fprintf(w, "%s\t%.2fs\t%s\n", name, p.RunDuration(), p.Description)
			}
			return w.Flush()
		},
	}

	initConfigCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "write a scenario config to edit",
		Args:  cobra.MaximumNArgs(1),
		RunE:  initConfig,
	}
	initConfigCmd.Flags().StringVar(&preset, "preset", "", "start from a preset")

	liveCmd := &cobra.Command{
		Use:   "live [scenario]",
		Short: "play a scenario in real time",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && preset == "" && configFile == "" {
				return tui.RunLive(nil)
			}
			cfg, err := loadConfig(cmd, args)
			if err != nil {
				return err
			}
			return tui.RunLive(cfg)
		},
	}
	addScenarioFlags(liveCmd)

	batchCmd := &cobra.Command{
		Use:   "batch [file]",
		Short: "run a yaml batch of scenarios",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportJSONCmd, exportPlotCmd, sweepCmd, ensembleCmd, batchCmd, presetsCmd, initConfigCmd, liveCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Print(err)
		os.Exit(1)
	}
}

func addScenarioFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "scenario preset")
	cmd.Flags().Float64Var(&strength, "strength", config.DefaultStrength, "brake-tilt strength (0 disables)")
	cmd.Flags().Float64Var(&lingering, "lingering", config.DefaultLingering, "release slowdown divisor")
	cmd.Flags().Int64Var(&seed, "seed", 0, "noise seed")
	cmd.Flags().Float64Var(&noise, "noise", 0, "pitch noise std dev (deg)")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "control period (s)")
	cmd.Flags().Float64Var(&duration, "time", 0, "duration, 0 for the whole scenario")
}

// loadConfig resolves preset, then config file, then explicit flags.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	name := preset
	if len(args) > 0 {
		name = args[0]
	}

	var cfg *config.Config
	switch {
	case configFile != "":
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	case name != "":
		cfg = config.GetPreset(name)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %s)", name, strings.Join(config.ListPresets(), ", "))
		}
	default:
		cfg = config.DefaultConfig()
	}

	flags := cmd.Flags()
	if flags.Changed("strength") {
		cfg.BrakeTilt.Strength = strength
	}
	if flags.Changed("lingering") {
		cfg.BrakeTilt.Lingering = lingering
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("noise") {
		cfg.Noise.Pitch = noise
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func simConfig(cfg *config.Config) sim.Config {
	return sim.Config{Dt: cfg.Dt, Duration: cfg.Duration, Seed: cfg.Seed, ValidateState: true}
}

func newSimulator(cfg *config.Config) *sim.Simulator {
	s := sim.New(cfg.Tuning(), cfg.Scenario(), cfg.Response, cfg.Noise)
	if verbose {
		s.AddObserver(sim.NewTransitionLogger(logger))
	}
	return s
}

func runScenario(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	s := newSimulator(cfg)
	for _, m := range metrics.Default() {
		s.AddMetric(m)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	fmt.Printf("running %s (strength %.1f)...\n", cfg.Name, cfg.BrakeTilt.Strength)
	start := time.Now()

	result, err := s.Run(ctx, simConfig(cfg))
	if err != nil {
		return err
	}
	for _, e := range result.Errors {
		logger.Print(e)
	}

	fmt.Printf("completed in %v\n", time.Since(start))
	fmt.Printf("steps: %d\n", len(result.Steps))

	if save {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(cfg, result)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}

	printMetrics(result.Metrics)
	fmt.Println()
	fmt.Println(traceGraph(result.Steps, "setpoint (deg)"))
	return nil
}

func printMetrics(m map[string]float64) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %-18s %.6f\n", name, m[name])
	}
}

func traceGraph(steps []sim.Step, caption string) string {
	if len(steps) == 0 {
		return "no data"
	}
	setpoints := make([]float64, len(steps))
	for i, s := range steps {
		setpoints[i] = float64(s.State.Setpoint)
	}
	return asciigraph.Plot(setpoints,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
	)
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
	fmt.Fprintln(w, "ID\tSCENARIO\tTIME\tDURATION\tSTRENGTH\tHOLDS\tPEAK")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.1f\t%.0f\t%.2f\n",
			run.ID,
			run.Scenario,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Strength,
			run.Metrics["hold_activations"],
			run.Metrics["peak_setpoint"],
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
	steps, err := st.LoadTrace(runID)
	if err != nil {
		return err
	}
	if len(steps) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scenario: %s\n", meta.Scenario)
	fmt.Printf("samples: %d\n\n", len(steps))

	target := make([]float64, len(steps))
	setpoint := make([]float64, len(steps))
	pitch := make([]float64, len(steps))
	for i, s := range steps {
		target[i] = float64(s.State.Target)
		setpoint[i] = float64(s.State.Setpoint)
		pitch[i] = float64(s.Pitch)
	}

	fmt.Println(asciigraph.PlotMany([][]float64{target, setpoint},
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.SeriesColors(asciigraph.DarkGray, asciigraph.Blue),
		asciigraph.Caption("target / setpoint (deg)"),
	))
	fmt.Println()
	fmt.Println(asciigraph.Plot(pitch,
		asciigraph.Height(8),
		asciigraph.Width(80),
		asciigraph.Caption("pitch (deg)"),
	))
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	steps, err := st.LoadTrace(runID)
	if err != nil {
		return err
	}

	if outPath == "" {
		return export.WriteJSON(os.Stdout, *meta, steps)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := export.WriteJSON(f, *meta, steps); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", outPath)
	return nil
}

func exportPlot(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	steps, err := st.LoadTrace(runID)
	if err != nil {
		return err
	}

	path := outPath
	if path == "" {
		path = runID + ".png"
	}
	title := fmt.Sprintf("%s  strength %.1f", meta.Scenario, meta.Strength)
	if err := export.PlotTrace(path, title, steps); err != nil {
		return err
	}
	fmt.Printf("plot written to %s\n", path)
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	base, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(sweepParams))
	ranges := make([][]float64, 0, len(sweepParams))
	for _, p := range sweepParams {
		name, bounds, ok := strings.Cut(p, "=")
		if !ok {
			return fmt.Errorf("param %q: want name=lo:hi:n", p)
		}
		values, err := optim.ParseRange(bounds)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}

	build := func(params map[string]float64) (*sim.Simulator, error) {
		cfg := base.Clone()
		for k, v := range params {
			if err := cfg.Set(k, v); err != nil {
				return nil, err
			}
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		s := sim.New(cfg.Tuning(), cfg.Scenario(), cfg.Response, cfg.Noise)
		for _, m := range metrics.Default() {
			s.AddMetric(m)
		}
		return s, nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	start := time.Now()
	points, err := optim.NewGridSearch(names, ranges).Search(ctx, build, simConfig(base), sweepMetric, maximize)
	if err != nil {
		return err
	}
	fmt.Printf("%d points on %s in %v\n\n", len(points), base.Name, time.Since(start))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(strings.Join(names, "\t"))+"\t"+strings.ToUpper(sweepMetric)+"\tHOLDS\tMAX_STEP")
	for i, p := range points {
		if top > 0 && i >= top {
			break
		}
		for _, name := range names {
			fmt.Fprintf(w, "%.3g\t", p.Params[name])
		}
		fmt.Fprintf(w, "%.4f\t%.0f\t%.4f\n", p.Value, p.Metrics["hold_activations"], p.Metrics["max_step"])
	}
	return w.Flush()
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if runs < 1 {
		return fmt.Errorf("runs must be positive, got %d", runs)
	}
	if cfg.Noise.Pitch == 0 && cfg.Noise.AccelDiff == 0 {
		logger.Print("no noise configured, every run will be identical (set --noise)")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	ens := sim.NewEnsemble(sim.New(cfg.Tuning(), cfg.Scenario(), cfg.Response, cfg.Noise), runs, cfg.Seed, metrics.Default)

	start := time.Now()
	results, err := ens.Run(ctx, simConfig(cfg))
	if err != nil {
		return err
	}
	fmt.Printf("%d runs of %s in %v\n\n", len(results), cfg.Name, time.Since(start))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tMEAN\tSTD\tMIN\tMAX")
	for _, s := range metrics.Summarize(results) {
		fmt.Fprintf(w, "%s\t%.4f\t%.4f\t%.4f\t%.4f\n", s.Name, s.Mean, s.Std, s.Min, s.Max)
	}
	return w.Flush()
}

func runBatch(cmd *cobra.Command, args []string) error {
	batch, err := automation.LoadBatch(args[0])
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	outcomes, err := automation.RunBatch(ctx, batch, st, os.Stdout)
	if err != nil {
		return err
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tSCENARIO\tRUN ID\tHOLDS\tPEAK\tSUPPRESSED")
	for i, o := range outcomes {
		id := o.RunID
		if id == "" {
			id = "-"
		}
		m := o.Result.Metrics
		fmt.Fprintf(w, "%d\t%s\t%s\t%.0f\t%.2f\t%.0f\n", i+1, o.Scenario, id, m["hold_activations"], m["peak_setpoint"], m["suppressed_cycles"])
	}
	return w.Flush()
}

func initConfig(cmd *cobra.Command, args []string) error {
	path := "braketilt.yaml"
	if len(args) > 0 {
		path = args[0]
	}

	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return fmt.Errorf("unknown preset: %s", preset)
		}
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
