package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"constellations/application/engine"
	"constellations/application/snapshot"
	"constellations/domain/core/valueobjects"
	"constellations/infrastructure/config"
	"constellations/infrastructure/render/svg"
	"constellations/infrastructure/source"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// renderOptions are the flags of the render command.
type renderOptions struct {
	in            string
	out           string
	sourceURL     string
	layoutPath    string
	chronological bool
	compact       bool
	textOnly      bool
	width         float64
	height        float64
	maxTicks      int
	timeout       time.Duration
	verbose       bool
}

// measurePasses bounds the paint/settle rounds spent on card measurement.
const measurePasses = 3

func newRenderCmd() *cobra.Command {
	opts := renderOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Lay out a snapshot and write it as SVG",
		Example: `  constellations render --in graph.json --out graph.svg
  constellations render --source https://example.org/graph.json --chronological --out timeline.svg
  cat graph.json | constellations render --in - > graph.svg`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newCLILogger(opts.verbose)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			out := cmd.OutOrStdout()
			if opts.out != "" && opts.out != "-" {
				f, err := os.Create(opts.out)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return runRender(cmd.Context(), opts, out, logger)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.in, "in", "", `snapshot JSON file, "-" for stdin`)
	flags.StringVar(&opts.out, "out", "", "output SVG file (default stdout)")
	flags.StringVar(&opts.sourceURL, "source", "", "snapshot location, file path or http(s) URL (default SNAPSHOT_SOURCE_URL)")
	flags.StringVar(&opts.layoutPath, "layout", "", "layout tuning YAML file")
	flags.BoolVar(&opts.chronological, "chronological", false, "lay out along a timeline")
	flags.BoolVar(&opts.compact, "compact", false, "use compact node sizes")
	flags.BoolVar(&opts.textOnly, "text-only", false, "draw cards without images")
	flags.Float64Var(&opts.width, "width", 0, "viewport width (default 800)")
	flags.Float64Var(&opts.height, "height", 0, "viewport height (default 600)")
	flags.IntVar(&opts.maxTicks, "max-ticks", 600, "upper bound on simulation ticks per settle")
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Second, "timeout for fetching the snapshot")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log progress to stderr")
	cmd.MarkFlagsMutuallyExclusive("in", "source")
	return cmd
}

// runRender fetches the snapshot, settles the layout headlessly and writes
// the fitted SVG to out.
func runRender(ctx context.Context, opts renderOptions, out io.Writer, logger *zap.Logger) error {
	doc, err := loadDocument(ctx, opts, logger)
	if err != nil {
		return err
	}

	layout, err := config.LoadLayoutConfig(opts.layoutPath)
	if err != nil {
		return err
	}

	nodes, links, err := doc.Entities()
	if err != nil {
		return err
	}

	style := svg.DefaultStyle()
	style.Fit = true
	scene := svg.NewScene(style)

	eng := engine.New(layout, logger,
		engine.WithOptions(engineOptions(opts)),
		engine.WithScene(scene))
	defer eng.Close()

	result, err := eng.ApplySnapshot(nodes, links)
	if err != nil {
		return err
	}
	if result.DroppedLinks > 0 {
		logger.Warn("Links to unknown nodes dropped", zap.Int("count", result.DroppedLinks))
	}

	if err := settle(ctx, eng, opts.maxTicks); err != nil {
		return err
	}

	stats := scene.Stats()
	logger.Info("Layout settled",
		zap.Int("nodes", result.Nodes),
		zap.Int("links", result.Links),
		zap.Int("elements", stats.Elements),
		zap.Uint64("seq", scene.Seq()))

	_, err = scene.WriteTo(out)
	return err
}

// settle ticks and paints until the simulation is cold and no card
// measurement is waiting. Each measurement correction reheats the layout, so
// the loop is bounded.
func settle(ctx context.Context, eng *engine.Engine, maxTicks int) error {
	for pass := 0; ; pass++ {
		eng.Settle(maxTicks)
		if _, err := eng.Paint(ctx, time.Now()); err != nil {
			return err
		}
		if !eng.MeasurementPending() || pass >= measurePasses {
			break
		}
	}
	eng.Settle(maxTicks)
	_, err := eng.Paint(ctx, time.Now())
	return err
}

func engineOptions(opts renderOptions) engine.Options {
	eo := engine.DefaultOptions()
	if opts.chronological {
		eo.Mode = valueobjects.ModeChronological
	}
	eo.Compact = opts.compact
	eo.TextOnly = opts.textOnly
	if opts.width > 0 {
		eo.ViewportWidth = opts.width
	}
	if opts.height > 0 {
		eo.ViewportHeight = opts.height
	}
	return eo
}

func loadDocument(ctx context.Context, opts renderOptions, logger *zap.Logger) (*snapshot.Document, error) {
	location := opts.in
	if location == "" {
		location = opts.sourceURL
	}
	if location == "" {
		location = os.Getenv("SNAPSHOT_SOURCE_URL")
	}
	if location == "" {
		return nil, fmt.Errorf("no snapshot given: use --in or --source")
	}

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	logger.Info("Loading snapshot", zap.String("location", location))
	return source.New(location, opts.timeout, logger).Fetch(ctx)
}

// newCLILogger logs to stderr so stdout can carry the SVG.
func newCLILogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	return cfg.Build()
}
