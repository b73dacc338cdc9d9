package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"

	"github.com/san-kum/roar/internal/config"
	"github.com/san-kum/roar/internal/integrators"
	"github.com/san-kum/roar/internal/metrics"
	"github.com/san-kum/roar/internal/report"
	"github.com/san-kum/roar/internal/sim"
	"github.com/san-kum/roar/internal/sizing"
	"github.com/san-kum/roar/internal/storage"
)

var (
	dataDir string
	verbose bool
	// engine selection
	configFile string
	preset     string
	// simulation overrides
	dt              float64
	integrator      string
	maxPortDiameter float64
	minWeb          float64
	maxTime         float64
	maxSteps        int
	// output
	outFile string
	column  string
	noSave  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "roar",
		Short:         "hybrid rocket engine sizing and burn simulation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".roar", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log solver and run progress to stderr")

	sizeCmd := &cobra.Command{
		Use:   "size",
		Short: "size an engine from its design spec",
		Args:  cobra.NoArgs,
		RunE:  sizeEngine,
	}
	engineFlags(sizeCmd)

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "size an engine and simulate its burn",
		Args:  cobra.NoArgs,
		RunE:  simulateBurn,
	}
	engineFlags(simulateCmd)
	simulateCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep (s)")
	simulateCmd.Flags().StringVar(&integrator, "integrator", config.DefaultIntegrator, "integrator ("+strings.Join(integrators.Names(), ", ")+")")
	simulateCmd.Flags().Float64Var(&maxPortDiameter, "max-port-diameter", 0, "stop when the port reaches this diameter (m), 0 disables")
	simulateCmd.Flags().Float64Var(&minWeb, "min-web", 0, "stop when the web is thinner than this (m), 0 disables")
	simulateCmd.Flags().Float64Var(&maxTime, "max-time", 0, "stop after this burn time (s), 0 disables")
	simulateCmd.Flags().IntVar(&maxSteps, "max-steps", sim.DefaultMaxSteps, "step budget")
	simulateCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored trajectory",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&column, "column", "", "plot one column ("+strings.Join(sim.Columns, ", ")+")")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a stored run as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export a stored trajectory as csv",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	compareCmd := &cobra.Command{
		Use:   "compare [integrator...]",
		Short: "simulate one engine with several integrators side by side",
		RunE:  compareIntegrators,
	}
	engineFlags(compareCmd)
	compareCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep (s)")
	compareCmd.Flags().Float64Var(&maxTime, "max-time", 0, "stop after this burn time (s), 0 disables")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list engine presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	rootCmd.AddCommand(sizeCmd, simulateCmd, compareCmd, listCmd, plotCmd, exportJSONCmd, exportCSVCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func engineFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "engine config file (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "start from a preset engine")
}

func newLogger() log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	if verbose {
		return level.NewFilter(logger, level.AllowDebug())
	}
	return level.NewFilter(logger, level.AllowWarn())
}

// loadConfig resolves the engine: preset (or the reference engine), then the
// config file, then any flag the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		var err error
		cfg, err = config.LoadOnto(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Simulation.Dt = dt
	}
	if flags.Changed("integrator") {
		cfg.Simulation.Integrator = integrator
	}
	if flags.Changed("max-port-diameter") {
		cfg.Simulation.Termination.MaxPortDiameter = maxPortDiameter
	}
	if flags.Changed("min-web") {
		cfg.Simulation.Termination.MinWebThickness = minWeb
	}
	if flags.Changed("max-time") {
		cfg.Simulation.Termination.MaxBurnTime = maxTime
	}
	if flags.Changed("max-steps") {
		cfg.Simulation.Termination.MaxSteps = maxSteps
	}
	return cfg, nil
}

func sizeEngine(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	result, err := sizing.Size(cfg.DesignSpec())
	if err != nil {
		return err
	}
	fmt.Println(report.SizingTable(result))
	return nil
}

func simulateBurn(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	seed, err := sizing.Size(cfg.DesignSpec())
	if err != nil {
		return err
	}
	integ, err := cfg.Integrator()
	if err != nil {
		return err
	}
	chem, err := cfg.Chemistry()
	if err != nil {
		return err
	}

	opts := []sim.Option{sim.WithIntegrator(integ), sim.WithLogger(logger)}
	if chem != nil {
		opts = append(opts, sim.WithChemistry(chem))
	}
	simulator := sim.New(seed, opts...)
	for _, m := range metrics.Defaults(seed.Spec.G0.SI()) {
		simulator.AddMetric(m)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	simCfg := cfg.SimConfig()
	fmt.Printf("simulating %s (%s, dt=%g s)...\n", cfg.Name, integ.Name(), simCfg.Dt)
	start := time.Now()

	result, runErr := simulator.Run(ctx, simCfg)
	if result == nil {
		return runErr
	}
	elapsed := time.Since(start)

	fmt.Println(report.SizingTable(seed))
	fmt.Println(report.TrajectorySummary(result))
	fmt.Printf("completed in %v\n", elapsed)

	if !noSave && len(result.States) > 0 {
		st := storage.New(dataDir)
		runID, err := st.Save(cfg.Name, simCfg, integ.Name(), seed, result)
		if err != nil {
			return err
		}
		level.Info(logger).Log("msg", "run stored", "id", runID, "dir", dataDir)
		fmt.Printf("run id: %s\n", runID)
	}
	return runErr
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	names := args
	if len(names) == 0 {
		names = integrators.Names()
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	seed, err := sizing.Size(cfg.DesignSpec())
	if err != nil {
		return err
	}

	simCfg := cfg.SimConfig()
	variants := make([]sim.Variant, 0, len(names))
	for _, name := range names {
		integ, err := integrators.Lookup(name)
		if err != nil {
			return err
		}
		variants = append(variants, sim.Variant{Name: name, Integrator: integ, Config: simCfg})
	}

	opts := []sim.Option{sim.WithLogger(newLogger())}
	chem, err := cfg.Chemistry()
	if err != nil {
		return err
	}
	if chem != nil {
		opts = append(opts, sim.WithChemistry(chem))
	}
	g0 := seed.Spec.G0.SI()
	ens := sim.NewEnsemble(seed, func() []sim.Metric { return metrics.Defaults(g0) }, opts...)

	fmt.Printf("comparing integrators for %s (dt=%g s)\n\n", cfg.Name, simCfg.Dt)
	start := time.Now()
	results, runErr := ens.Run(context.Background(), variants)
	elapsed := time.Since(start)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEG\tSTATUS\tBURN\tIMPULSE\tISP\tSTEPS")
	for i, res := range results {
		if res == nil {
			fmt.Fprintf(w, "%s\terror\t\t\t\t\n", variants[i].Name)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%.3fs\t%.1f N*s\t%.1f s\t%d\n",
			variants[i].Name,
			res.Status,
			res.Final().Time,
			res.Metrics["total_impulse"],
			res.Metrics["delivered_isp"],
			res.Steps,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\ncompleted in %v\n", elapsed)
	return runErr
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
	fmt.Fprintln(w, "ID\tENGINE\tTIME\tBURN\tDT\tINTEG\tSTATUS\tIMPULSE")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%s\t%s\t%.0f N*s\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.BurnTime,
			run.Dt,
			run.Integrator,
			run.Status,
			run.Metrics["total_impulse"],
		)
	}

	return w.Flush()
}

var plotCaptions = map[string]string{
	"thrust":           "thrust (N)",
	"pressure_chamber": "chamber pressure (Pa)",
	"port_diameter":    "port diameter (m)",
	"of":               "O/F",
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	states, err := st.LoadTrajectory(runID)
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("engine: %s\n", meta.Name)
	fmt.Printf("status: %s\n", meta.Status)
	fmt.Printf("samples: %d\n\n", len(states))

	result := &sim.Result{States: states}
	columns := []string{"thrust", "pressure_chamber", "port_diameter", "of"}
	if column != "" {
		columns = []string{column}
	}
	for _, c := range columns {
		data := result.Series(c)
		if data == nil {
			return fmt.Errorf("unknown column: %s", c)
		}
		caption, ok := plotCaptions[c]
		if !ok {
			caption = c
		}
		fmt.Println(report.Plot(data, caption+" vs time", 80, 10))
		fmt.Println()
	}
	return nil
}

func output() (io.WriteCloser, error) {
	if outFile == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(outFile)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func exportJSON(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	states, err := st.LoadTrajectory(runID)
	if err != nil {
		return err
	}
	values, err := st.LoadSizing(runID)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	w, err := output()
	if err != nil {
		return err
	}
	defer w.Close()

	result := &sim.Result{States: states, Status: meta.Status, Steps: meta.Steps, Metrics: meta.Metrics}
	if err := storage.ExportJSON(w, meta.Name, meta.Integrator, meta.Dt, values, result); err != nil {
		return err
	}
	return w.Close()
}

func exportCSV(cmd *cobra.Command, args []string) error {
	states, err := storage.New(dataDir).LoadTrajectory(args[0])
	if err != nil {
		return err
	}

	w, err := output()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := storage.WriteCSV(w, states); err != nil {
		return err
	}
	return w.Close()
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tIMPULSE\tTHRUST\tINTEG\tDT")
	for _, name := range config.ListPresets() {
		cfg := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%gs\n",
			name,
			cfg.Engine.TotalImpulse,
			cfg.Engine.ThrustAverage,
			cfg.Simulation.Integrator,
			cfg.Simulation.Dt,
		)
	}
	return w.Flush()
}
