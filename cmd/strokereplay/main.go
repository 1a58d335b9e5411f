// Package main is the entry point for strokereplay, which plays a stroke
// scenario against an in-memory canvas and prints the result together with
// the undo history.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/tidwall/sjson"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/dshills/strokeundo/internal/canvas"
	"github.com/dshills/strokeundo/internal/config"
	"github.com/dshills/strokeundo/internal/engine/history"
	"github.com/dshills/strokeundo/internal/engine/stroke"
	"github.com/dshills/strokeundo/internal/logging"
	"github.com/dshills/strokeundo/internal/scenario"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	formatText = "text"
	formatJSON = "json"
)

type options struct {
	configPath string
	format     string
	logLevel   string
	watch      bool
	metrics    bool
	path       string
}

func main() {
	os.Exit(run())
}

func run() int {
	opts, code, done := parseFlags(os.Args[1:], os.Stderr)
	if done {
		return code
	}

	cfg, err := config.Load(config.WithFile(opts.configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading config: %v\n", err)
		return 1
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	logging.SetLogger(logging.New(cfg.Logging()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var reader *sdkmetric.ManualReader
	runnerOpts := []stroke.Option{stroke.WithQueueSize(cfg.Strokes.QueueSize)}
	if opts.metrics {
		reader = sdkmetric.NewManualReader()
		runnerOpts = append(runnerOpts, stroke.WithMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))))
	}

	runner, err := stroke.NewRunner(runnerOpts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if err := runner.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := runner.Stop(stopCtx); err != nil {
			logging.Logger().Warn("stopping runner", "error", err)
		}
	}()

	sc, err := scenario.LoadFile(opts.path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	play := func(ctx context.Context, sc *scenario.Scenario) error {
		return replay(ctx, runner, cfg, sc, opts.format, os.Stdout)
	}
	if err := play(ctx, sc); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if !opts.watch {
			return 1
		}
	}

	if opts.watch {
		w, err := scenario.NewWatcher(opts.path, cfg.DebounceDelay())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		defer w.Close()
		fmt.Fprintf(os.Stderr, "watching %s, press Ctrl-C to stop\n", opts.path)
		if err := w.Run(ctx, play); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	if reader != nil {
		if err := dumpMetrics(context.Background(), reader, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}
	return 0
}

// replay plays sc on a fresh canvas and history and prints the result.
func replay(ctx context.Context, runner *stroke.Runner, cfg *config.Config, sc *scenario.Scenario, format string, out io.Writer) error {
	c, err := sc.NewCanvas()
	if err != nil {
		return err
	}
	store := history.NewSurrogateStoreWithStack(history.NewStack(cfg.History.UndoLimit))
	player := scenario.NewPlayer(runner, store, c)
	defer player.Close()

	playErr := player.Play(ctx, sc)
	if errors.Is(playErr, context.Canceled) {
		return playErr
	}

	var report string
	switch format {
	case formatJSON:
		report, err = jsonReport(sc, c, store, player)
		if err != nil {
			return err
		}
	default:
		report = textReport(sc, c, store, player)
	}
	fmt.Fprint(out, report)
	return playErr
}

func scenarioName(sc *scenario.Scenario) string {
	if sc.Name == "" {
		return "scenario"
	}
	return sc.Name
}

func textReport(sc *scenario.Scenario, c *canvas.Canvas, store *history.SurrogateStore, player *scenario.Player) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", scenarioName(sc))
	b.WriteString(c.Render())
	b.WriteString("-- history --\n")
	for i, e := range store.Stack().Info() {
		marker := " "
		if !e.Applied {
			marker = "~"
		}
		fmt.Fprintf(&b, "%s %2d %s\n", marker, i+1, e.Text)
	}
	fmt.Fprintf(&b, "recorded %d, replayed %d\n", player.Added(), player.Executed())
	return b.String()
}

// jsonReport renders the result as a single JSON document.
func jsonReport(sc *scenario.Scenario, c *canvas.Canvas, store *history.SurrogateStore, player *scenario.Player) (string, error) {
	doc := "{}"
	set := func(path string, value any) error {
		var err error
		doc, err = sjson.Set(doc, path, value)
		if err != nil {
			return fmt.Errorf("building report: %w", err)
		}
		return nil
	}

	rows := strings.Split(strings.TrimSuffix(c.Render(), "\n"), "\n")
	if err := set("name", scenarioName(sc)); err != nil {
		return "", err
	}
	if err := set("canvas", rows); err != nil {
		return "", err
	}
	if err := set("history", []any{}); err != nil {
		return "", err
	}
	for _, e := range store.Stack().Info() {
		entry := map[string]any{"text": e.Text, "applied": e.Applied}
		if err := set("history.-1", entry); err != nil {
			return "", err
		}
	}
	if err := set("clean", store.Stack().IsClean()); err != nil {
		return "", err
	}
	if err := set("recorded", player.Added()); err != nil {
		return "", err
	}
	if err := set("replayed", player.Executed()); err != nil {
		return "", err
	}
	return doc + "\n", nil
}

func dumpMetrics(ctx context.Context, reader *sdkmetric.ManualReader, out io.Writer) error {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return fmt.Errorf("collecting metrics: %w", err)
	}
	fmt.Fprintln(out, "-- metrics --")
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				var total int64
				for _, dp := range data.DataPoints {
					total += dp.Value
				}
				fmt.Fprintf(out, "%s %d\n", m.Name, total)
			case metricdata.Histogram[float64]:
				var count uint64
				var sum float64
				for _, dp := range data.DataPoints {
					count += dp.Count
					sum += dp.Sum
				}
				fmt.Fprintf(out, "%s count=%d sum=%g\n", m.Name, count, sum)
			}
		}
	}
	return nil
}

// parseFlags returns done when the process should exit with code.
func parseFlags(args []string, stderr io.Writer) (opts options, code int, done bool) {
	fs := flag.NewFlagSet("strokereplay", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var showVersion bool
	fs.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	fs.StringVar(&opts.configPath, "c", "", "Path to configuration file (shorthand)")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.BoolVar(&opts.watch, "watch", false, "Replay the scenario whenever it changes")
	fs.BoolVar(&opts.watch, "w", false, "Replay the scenario whenever it changes (shorthand)")
	fs.StringVar(&opts.format, "format", formatText, "Report format (text, json)")
	fs.BoolVar(&opts.metrics, "metrics", false, "Print stroke runner metrics on exit")
	fs.BoolVar(&showVersion, "version", false, "Show version information")
	fs.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "strokereplay - replay paint strokes through the undo history\n\n")
		fmt.Fprintf(stderr, "Usage: strokereplay [options] scenario.yaml\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return opts, 0, true
		}
		return opts, 2, true
	}

	if showVersion {
		fmt.Printf("strokereplay %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		return opts, 0, true
	}

	switch opts.logLevel {
	case "", "debug", "info", "warn", "error":
	default:
		fmt.Fprintf(stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", opts.logLevel)
		return opts, 1, true
	}

	switch opts.format {
	case formatText, formatJSON:
	default:
		fmt.Fprintf(stderr, "Error: invalid format %q (must be text or json)\n", opts.format)
		return opts, 1, true
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return opts, 2, true
	}
	opts.path = fs.Arg(0)
	return opts, 0, false
}
