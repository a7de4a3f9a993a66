package main

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/pixeldust/internal/config"
	"github.com/san-kum/pixeldust/internal/export"
	"github.com/san-kum/pixeldust/internal/metrics"
	"github.com/san-kum/pixeldust/internal/sampler"
	"github.com/san-kum/pixeldust/internal/script"
	"github.com/san-kum/pixeldust/internal/storage"
)

type sampled struct {
	path    string
	res     *sampler.Result
	elapsed time.Duration
	err     error
}

func sampleImages(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	opts := cfg.SamplerOptions()

	results := make([]sampled, len(args))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(runtime.NumCPU())
	for i, path := range args {
		i, path := i, path
		g.Go(func() error {
			start := time.Now()
			res, err := sampler.Load(ctx, path, opts)
			// a bad image is reported in its row, not fatal to the batch
			results[i] = sampled{path: path, res: res, elapsed: time.Since(start), err: err}
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "IMAGE\tPARTICLES\tSURFACE\tTIME\tERROR")
	for _, r := range results {
		if r.err != nil {
			fmt.Fprintf(w, "%s\t-\t-\t%v\t%v\n", r.path, r.elapsed.Round(time.Microsecond), r.err)
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%dx%d\t%v\t\n", r.path, r.res.Count(), r.res.Width, r.res.Height, r.elapsed.Round(time.Microsecond))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if svgOut == "" {
		return nil
	}
	if err := os.MkdirAll(svgOut, 0755); err != nil {
		return err
	}
	for _, r := range results {
		if r.err != nil {
			continue
		}
		positions := centered(r.res)
		svg := export.FieldToSVG(positions, r.res.Colors, r.res.Width, r.res.Height, cfg.Render.PointSize/2, cfg.Render.Background)
		name := strings.TrimSuffix(filepath.Base(r.path), filepath.Ext(r.path)) + ".svg"
		if err := os.WriteFile(filepath.Join(svgOut, name), []byte(svg), 0644); err != nil {
			return err
		}
	}
	fmt.Printf("snapshots written to %s\n", svgOut)
	return nil
}

// centered places sampled offsets on their own surface.
func centered(res *sampler.Result) []float32 {
	out := make([]float32, len(res.Offsets))
	cx, cy := float32(res.Width)/2, float32(res.Height)/2
	for i := 0; i < len(out); i += 2 {
		out[i] = res.Offsets[i] + cx
		out[i+1] = res.Offsets[i+1] + cy
	}
	return out
}

// benchScenario circles the pointer around the middle of the field, then
// lets go and waits for the field to settle.
func benchScenario(asset string, frames int) *script.Scenario {
	return &script.Scenario{
		Name:   "bench",
		Asset:  asset,
		Settle: true,
		Strokes: []script.Stroke{
			{Action: "circle", Radius: 40, Frames: frames},
			{Action: "leave", Frames: 1},
		},
	}
}

func benchField(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(args)
	if err != nil {
		return err
	}
	defer log.Sync()

	sc := benchScenario(cfg.Asset, benchFrames)
	runner := script.NewRunner(cfg, log)

	start := time.Now()
	res, err := runner.Run(cmd.Context(), sc)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if jsonOut {
		return storage.ExportJSON(os.Stdout, toRun(res, cfg))
	}

	fmt.Printf("benchmarking %s\n\n", res.Asset)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PARTICLES\tFRAMES\tTIME\tNS/FRAME\tNS/PARTICLE")
	perFrame := elapsed.Nanoseconds() / int64(max(res.Frames, 1))
	fmt.Fprintf(w, "%d\t%d\t%v\t%d\t%.2f\n", res.Particles, res.Frames, elapsed.Round(time.Millisecond),
		perFrame, float64(perFrame)/float64(max(res.Particles, 1)))
	if err := w.Flush(); err != nil {
		return err
	}

	printResult(res)

	series := seriesOf(res.Samples)
	if len(series) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(series,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("max displacement per frame"),
		))
	}

	if svgOut != "" {
		if err := os.WriteFile(svgOut, []byte(export.TraceToSVG(series, 800, 200, cfg.Sampler.Accent)), 0644); err != nil {
			return err
		}
	}
	if saveRun {
		return save(toRun(res, cfg), log)
	}
	return nil
}

func runScript(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(nil)
	if err != nil {
		return err
	}
	defer log.Sync()

	sc, err := script.LoadScenario(args[0])
	if err != nil {
		return err
	}
	// asset paths are relative to the script file
	if sc.Asset != "" && !filepath.IsAbs(sc.Asset) {
		sc.Asset = filepath.Join(filepath.Dir(args[0]), sc.Asset)
	}
	runner := script.NewRunner(cfg, log)

	if sweepParam != "" {
		return runSweep(cmd.Context(), runner, sc, log)
	}

	res, err := runner.Run(cmd.Context(), sc)
	if err != nil {
		return err
	}
	runCfg, err := runner.Configure(sc)
	if err != nil {
		return err
	}
	if jsonOut {
		return storage.ExportJSON(os.Stdout, toRun(res, runCfg))
	}

	fmt.Printf("scenario: %s\n", res.Name)
	if sc.Description != "" {
		fmt.Printf("%s\n", sc.Description)
	}
	fmt.Printf("asset: %s (%d particles)\n", res.Asset, res.Particles)
	fmt.Printf("frames: %d  settled: %v\n", res.Frames, res.Settled)
	printResult(res)

	if saveRun {
		return save(toRun(res, runCfg), log)
	}
	return nil
}

func runSweep(ctx context.Context, runner *script.Runner, sc *script.Scenario, log *zap.Logger) error {
	results, err := runner.Sweep(ctx, sc, script.Sweep{
		Param: sweepParam,
		Min:   sweepMin,
		Max:   sweepMax,
		Steps: sweepSteps,
	})
	if err != nil {
		return err
	}

	names := metricNames(results[0].Result.Metrics)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprint(w, strings.ToUpper(sweepParam))
	for _, n := range names {
		fmt.Fprintf(w, "\t%s", strings.ToUpper(n))
	}
	fmt.Fprintln(w)
	for _, r := range results {
		fmt.Fprintf(w, "%.4f", r.Value)
		for _, n := range names {
			fmt.Fprintf(w, "\t%.4f", r.Result.Metrics[n])
		}
		fmt.Fprintln(w)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if !saveRun {
		return nil
	}
	for _, r := range results {
		run := *sc
		run.Params = map[string]float64{sweepParam: r.Value}
		for k, v := range sc.Params {
			if k != sweepParam {
				run.Params[k] = v
			}
		}
		runCfg, err := runner.Configure(&run)
		if err != nil {
			return err
		}
		stored := toRun(r.Result, runCfg)
		stored.Name = fmt.Sprintf("%s_%s_%g", r.Result.Name, sweepParam, r.Value)
		if err := save(stored, log); err != nil {
			return err
		}
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
	fmt.Fprintln(w, "ID\tASSET\tTIME\tPARTICLES\tFRAMES\tPEAK\tSETTLE")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.2f\t%.0f\n",
			run.ID,
			filepath.Base(run.Asset),
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Particles,
			run.Frames,
			run.Metrics["peak_displacement"],
			run.Metrics["settle_frames"],
		)
	}
	return w.Flush()
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	samples, err := st.LoadTrace(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(os.Stdout, &storage.Run{
		Name:      meta.Name,
		Asset:     meta.Asset,
		Particles: meta.Particles,
		Frames:    meta.Frames,
		Params:    meta.Params,
		Metrics:   meta.Metrics,
		Samples:   samples,
	})
}

func toRun(res *script.Result, cfg *config.Config) *storage.Run {
	return &storage.Run{
		Name:      res.Name,
		Asset:     res.Asset,
		Particles: res.Particles,
		Frames:    res.Frames,
		Params:    cfg.FieldParams(),
		Metrics:   res.Metrics,
		Samples:   res.Samples,
	}
}

func save(run *storage.Run, log *zap.Logger) error {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	id, err := st.Save(run)
	if err != nil {
		return err
	}
	log.Info("run saved", zap.String("id", id), zap.String("dir", dataDir))
	fmt.Printf("run id: %s\n", id)
	return nil
}

func printResult(res *script.Result) {
	fmt.Println("\nmetrics:")
	for _, name := range metricNames(res.Metrics) {
		fmt.Printf("  %s: %.6f\n", name, res.Metrics[name])
	}
}

func seriesOf(samples []metrics.Sample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.MaxDisplacement
	}
	return out
}

func metricNames(m map[string]float64) []string {
	return slices.Sorted(maps.Keys(m))
}
