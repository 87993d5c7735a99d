package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/dkoz/tiltrail/internal/config"
	"github.com/dkoz/tiltrail/internal/export"
	"github.com/dkoz/tiltrail/internal/loop"
	"github.com/dkoz/tiltrail/internal/metrics"
	"github.com/dkoz/tiltrail/internal/pid"
	"github.com/dkoz/tiltrail/internal/plant"
	"github.com/dkoz/tiltrail/internal/runner"
	"github.com/dkoz/tiltrail/internal/storage"
	"github.com/dkoz/tiltrail/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string

	setpoint      float64
	kp            float64
	ki            float64
	kd            float64
	dt            float64
	duration      float64
	railLength    float64
	gravity       float64
	friction      float64
	maxAngle      float64
	integralLimit float64
	x0            float64
	fps           int

	outFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tiltrail",
		Short: "PID-balanced ball on a tiltable rail",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Default to the live dashboard when no command given.
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			return runLiveView(cfg)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".tiltrail", "data directory")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "interactive dashboard with live parameter tuning",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			return runLiveView(cfg)
		},
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "headless fixed-duration run",
		RunE:  runHeadless,
	}

	for _, cmd := range []*cobra.Command{rootCmd, liveCmd, runCmd} {
		addTuningFlags(cmd)
	}
	runCmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration (s)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a saved run in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	renderCmd := &cobra.Command{
		Use:   "render [run_id]",
		Short: "render a saved run to a PNG chart",
		Args:  cobra.ExactArgs(1),
		RunE:  renderRun,
	}
	renderCmd.Flags().StringVar(&outFile, "out", "run.png", "output image path")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a saved run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export a saved run as CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSVRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available tuning presets",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				fmt.Printf("%-12s kp=%-6.1f ki=%-5.1f kd=%-5.1f setpoint=%+.2f x0=%+.2f\n",
					name, cfg.Kp, cfg.Ki, cfg.Kd, cfg.Setpoint, cfg.InitialOffset)
			}
		},
	}

	rootCmd.AddCommand(liveCmd, runCmd, listCmd, plotCmd, renderCmd, exportCmd, exportCSVCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addTuningFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use a named tuning preset")
	cmd.Flags().Float64Var(&setpoint, "setpoint", config.DefaultSetpoint, "target ball position (m)")
	cmd.Flags().Float64Var(&kp, "kp", config.DefaultKp, "proportional gain")
	cmd.Flags().Float64Var(&ki, "ki", config.DefaultKi, "integral gain")
	cmd.Flags().Float64Var(&kd, "kd", config.DefaultKd, "derivative gain")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep (s)")
	cmd.Flags().Float64Var(&railLength, "rail-length", config.DefaultRailLength, "rail length (m)")
	cmd.Flags().Float64Var(&gravity, "gravity", config.DefaultGravity, "gravity (m/s^2)")
	cmd.Flags().Float64Var(&friction, "friction", config.DefaultFriction, "linear friction coefficient")
	cmd.Flags().Float64Var(&maxAngle, "max-angle", config.DefaultMaxAngle, "actuation limit (rad)")
	cmd.Flags().Float64Var(&integralLimit, "integral-limit", config.DefaultIntegralLimit, "anti-windup clamp band")
	cmd.Flags().Float64Var(&x0, "x0", config.DefaultInitialOffset, "initial ball offset (m)")
	cmd.Flags().IntVar(&fps, "fps", config.DefaultFPS, "dashboard frame rate")
}

// resolveConfig layers preset, config file, and explicitly set flags, in
// that order of increasing precedence.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("setpoint") {
		cfg.Setpoint = setpoint
	}
	if flags.Changed("kp") {
		cfg.Kp = kp
	}
	if flags.Changed("ki") {
		cfg.Ki = ki
	}
	if flags.Changed("kd") {
		cfg.Kd = kd
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("rail-length") {
		cfg.RailLength = railLength
	}
	if flags.Changed("gravity") {
		cfg.Gravity = gravity
	}
	if flags.Changed("friction") {
		cfg.Friction = friction
	}
	if flags.Changed("max-angle") {
		cfg.MaxAngle = maxAngle
	}
	if flags.Changed("integral-limit") {
		cfg.IntegralLimit = integralLimit
	}
	if flags.Changed("x0") {
		cfg.InitialOffset = x0
	}
	if flags.Changed("fps") {
		cfg.FPS = fps
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildLoop(cfg *config.Config) *loop.Loop {
	rail := plant.New(cfg.RailLength, cfg.Gravity, cfg.Friction, cfg.MaxAngle)
	ctrl := pid.New(cfg.Kp, cfg.Ki, cfg.Kd, cfg.MaxAngle)
	ctrl.IntegralLimit = cfg.IntegralLimit
	params := loop.Params{Setpoint: cfg.Setpoint, Kp: cfg.Kp, Ki: cfg.Ki, Kd: cfg.Kd}
	return loop.New(rail, ctrl, cfg.Dt, cfg.InitialOffset, params)
}

func runLiveView(cfg *config.Config) error {
	return viz.Run(buildLoop(cfg), cfg.RailLength, cfg.FPS)
}

func runHeadless(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	r := runner.New(buildLoop(cfg), metrics.Defaults()...)

	fmt.Println("running simulation...")
	start := time.Now()

	result, err := r.Run(context.Background(), cfg.Duration)
	if err != nil {
		return err
	}

	elapsed := time.Since(start)

	runID, err := st.Save(cfg.Dt, cfg.Duration, cfg.Setpoint, cfg.Kp, cfg.Ki, cfg.Kd, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", len(result.Times))
	if result.OffRail {
		fmt.Println("ball fell off the rail")
	}
	fmt.Println("\nmetrics:")
	for name, val := range result.Metrics {
		fmt.Printf("  %s: %.6f\n", name, val)
	}

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
	fmt.Fprintln(w, "ID\tTIME\tDURATION\tDT\tSETPOINT\tKP\tKI\tKD\tOFF RAIL")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%.2fs\t%.4fs\t%+.3f\t%.1f\t%.1f\t%.1f\t%v\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Setpoint,
			run.Kp,
			run.Ki,
			run.Kd,
			run.OffRail,
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

	series, err := st.LoadSeries(runID)
	if err != nil {
		return err
	}
	if len(series.Times) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("samples: %d\n\n", len(series.Times))

	graph := asciigraph.PlotMany(
		[][]float64{series.Setpoints, series.Positions},
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption("setpoint / position (m)"),
	)
	fmt.Println(graph)
	fmt.Println()

	graph = asciigraph.Plot(series.Angles,
		asciigraph.Height(8),
		asciigraph.Width(80),
		asciigraph.Caption("rail angle (rad)"),
	)
	fmt.Println(graph)

	return nil
}

func renderRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	series, err := st.LoadSeries(runID)
	if err != nil {
		return err
	}

	if err := export.RenderPNG(outFile, series); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", outFile)
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	series, err := st.LoadSeries(runID)
	if err != nil {
		return err
	}

	return storage.ExportJSON(os.Stdout, meta, series)
}

func exportCSVRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	series, err := st.LoadSeries(runID)
	if err != nil {
		return err
	}

	result := &runner.Result{
		Times:      series.Times,
		Positions:  series.Positions,
		Velocities: series.Velocities,
		Angles:     series.Angles,
		Controls:   series.Controls,
		Setpoints:  series.Setpoints,
	}
	return storage.WriteCSV(os.Stdout, result)
}
