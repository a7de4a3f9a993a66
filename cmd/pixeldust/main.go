package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/pixeldust/internal/config"
	"github.com/san-kum/pixeldust/internal/engine"
	"github.com/san-kum/pixeldust/internal/host"
	"github.com/san-kum/pixeldust/internal/logger"
	"github.com/san-kum/pixeldust/internal/metrics"
	"github.com/san-kum/pixeldust/internal/monitor"
	"github.com/san-kum/pixeldust/internal/preview"
	"github.com/san-kum/pixeldust/internal/watch"
)

var (
	dataDir    string
	configFile string
	preset     string
	logLevel   string
	watchAsset bool
	// bench
	benchFrames int
	saveRun     bool
	jsonOut     bool
	svgOut      string
	// script sweep
	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepSteps int
	// config
	listPresets bool
)

// main registers the pixeldust commands and runs the GL window when no
// subcommand is given.
func main() {
	rootCmd := &cobra.Command{
		Use:          "pixeldust [image]",
		Short:        "images as particle fields that scatter from the pointer",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE:         runWindow,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".pixeldust", "data directory for saved runs")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "start from a named preset")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&watchAsset, "watch", false, "re-sample the image when it changes")

	runCmd := &cobra.Command{
		Use:   "run [image]",
		Short: "open the OpenGL window",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runWindow,
	}

	previewCmd := &cobra.Command{
		Use:   "preview [image]",
		Short: "open the raylib software preview",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPreview,
	}

	monitorCmd := &cobra.Command{
		Use:   "monitor [image]",
		Short: "run the field headless in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runMonitor,
	}

	sampleCmd := &cobra.Command{
		Use:   "sample [images...]",
		Short: "sample images and report particle counts",
		Args:  cobra.MinimumNArgs(1),
		RunE:  sampleImages,
	}
	sampleCmd.Flags().StringVar(&svgOut, "svg", "", "write a snapshot of each field into this directory")

	benchCmd := &cobra.Command{
		Use:   "bench [image]",
		Short: "time headless frames and plot the displacement decay",
		Args:  cobra.ExactArgs(1),
		RunE:  benchField,
	}
	benchCmd.Flags().IntVar(&benchFrames, "frames", 240, "frames of pointer circling before release")
	benchCmd.Flags().BoolVar(&saveRun, "save", false, "save the run under --data")
	benchCmd.Flags().BoolVar(&jsonOut, "json", false, "print the run as json")
	benchCmd.Flags().StringVar(&svgOut, "svg", "", "write the displacement trace to this svg file")

	scriptCmd := &cobra.Command{
		Use:   "script [file]",
		Short: "replay a yaml pointer script and print its metrics",
		Args:  cobra.ExactArgs(1),
		RunE:  runScript,
	}
	scriptCmd.Flags().StringVar(&sweepParam, "sweep", "", "physics parameter to sweep")
	scriptCmd.Flags().Float64Var(&sweepMin, "min", 0, "sweep start")
	scriptCmd.Flags().Float64Var(&sweepMax, "max", 0, "sweep end")
	scriptCmd.Flags().IntVar(&sweepSteps, "steps", 5, "sweep steps")
	scriptCmd.Flags().BoolVar(&saveRun, "save", false, "save each run under --data")
	scriptCmd.Flags().BoolVar(&jsonOut, "json", false, "print each run as json")

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "list saved runs",
		RunE:  listRuns,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a saved run as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "print the effective configuration",
		RunE:  printConfig,
	}
	configCmd.Flags().BoolVar(&listPresets, "presets", false, "list preset names")

	rootCmd.AddCommand(runCmd, previewCmd, monitorCmd, sampleCmd, benchCmd, scriptCmd, runsCmd, exportCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig layers the preset, the config file and the image argument, in
// that order, over the defaults.
func loadConfig(args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if len(args) > 0 {
		cfg.Asset = args[0]
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

func setup(args []string) (*config.Config, *zap.Logger, error) {
	cfg, err := loadConfig(args)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// startWatch re-samples cfg.Asset into eng on change when --watch is set.
func startWatch(ctx context.Context, eng *engine.Engine, cfg *config.Config, log *zap.Logger) (func(), error) {
	if !watchAsset || cfg.Asset == "" {
		return func() {}, nil
	}
	w, err := watch.New(cfg.Asset, func(path string) { eng.Load(path) }, log)
	if err != nil {
		return nil, err
	}
	w.Start(ctx)
	return func() { w.Stop() }, nil
}

func runWindow(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(args)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stop func()
	win := host.New(cfg, log)
	err = win.Run(func(eng *engine.Engine) {
		s, werr := startWatch(ctx, eng, cfg, log)
		if werr != nil {
			log.Warn("asset watch disabled", zap.Error(werr))
			return
		}
		stop = s
	})
	if stop != nil {
		stop()
	}
	return err
}

func runPreview(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(args)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng := engine.New(nil, cfg, log)
	stop, err := startWatch(ctx, eng, cfg, log)
	if err != nil {
		return err
	}
	defer stop()

	return preview.Run(eng, cfg, log)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	// the terminal belongs to bubbletea, so only errors go to stderr
	if logLevel == "" {
		cfg.Log.Level = "error"
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	rec := metrics.NewRecorder(cfg.FieldParams(), metrics.DefaultTraceCapacity)
	eng := engine.New(nil, cfg, log, engine.WithObserver(rec))
	defer eng.Dispose()

	w, h := cfg.Sampler.Width, cfg.Sampler.Height
	eng.Resize(w, h, 1)
	if err := eng.Start(); err != nil {
		return err
	}
	stop, err := startWatch(ctx, eng, cfg, log)
	if err != nil {
		return err
	}
	defer stop()

	return monitor.Run(monitor.NewModel(eng, rec, w, h, cfg.Asset))
}

func printConfig(cmd *cobra.Command, args []string) error {
	if listPresets {
		for _, name := range config.ListPresets() {
			fmt.Println(name)
		}
		return nil
	}

	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}
