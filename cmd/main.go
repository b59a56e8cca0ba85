package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/cli/browser"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Zachdehooge/choropleth-slider/internal/choropleth"
	"github.com/Zachdehooge/choropleth-slider/internal/config"
	"github.com/Zachdehooge/choropleth-slider/internal/fetcher"
	"github.com/Zachdehooge/choropleth-slider/internal/frames"
	"github.com/Zachdehooge/choropleth-slider/internal/generator"
	"github.com/Zachdehooge/choropleth-slider/internal/geojson"
	"github.com/Zachdehooge/choropleth-slider/internal/logger"
)

var (
	dataSource   string
	framesSource string
	outputFile   string
	configFile   string
	layerName    string
	noEmbed      bool
	zoomOnClick  bool
	smoothFactor float64
	verbose      bool
	logLevel     string
	logFormat    string
	watchMode    bool
	openBrowser  bool

	// openFile is replaced in tests.
	openFile = browser.OpenFile
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "choropleth-slider",
		Short: "Generate a time-slider choropleth map",
		Long: `choropleth-slider reads GeoJSON features and a frames file describing
per-timestamp styles and tooltips, and generates a static HTML page with a
Leaflet map animated by a time slider.`,
		PersistentPreRunE: setup,
		Run: func(cmd *cobra.Command, args []string) {
			cfg := mustConfig(cmd)

			if err := generateMap(cmd, cfg); err != nil {
				cmd.PrintErrln(fmt.Errorf("failed to generate map: %w", err))
				os.Exit(1)
			}

			if openBrowser {
				if err := openFile(cfg.Output); err != nil {
					cmd.PrintErrln(fmt.Errorf("failed to open browser: %w", err))
				}
			}

			if watchMode {
				if err := runWatchMode(cmd, cfg); err != nil {
					cmd.PrintErrln(fmt.Errorf("watch failed: %w", err))
					os.Exit(1)
				}
			}
		},
	}

	// Flags
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&dataSource, "data", "d", "", "GeoJSON file path or URL")
	pf.StringVarP(&framesSource, "frames", "f", "", "Frames file (YAML or JSON) path or URL")
	pf.StringVarP(&configFile, "config", "c", "", "TOML config file")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&logFormat, "log-format", "logfmt", "Log format: logfmt or json")
	rootCmd.MarkPersistentFlagRequired("data")
	rootCmd.MarkPersistentFlagRequired("frames")

	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output HTML file path")
	rootCmd.Flags().StringVar(&layerName, "name", "", "Layer name shown in layer controls")
	rootCmd.Flags().BoolVar(&noEmbed, "no-embed", false, "Fetch the data URL from the browser instead of inlining it")
	rootCmd.Flags().BoolVar(&zoomOnClick, "zoom-on-click", false, "Zoom to a feature when it is clicked")
	rootCmd.Flags().Float64Var(&smoothFactor, "smooth-factor", 1.0, "Polyline simplification per zoom level")
	rootCmd.Flags().BoolVar(&watchMode, "watch", false, "Regenerate whenever a local input file changes")
	rootCmd.Flags().BoolVar(&openBrowser, "open", false, "Open the generated map in the default browser")

	// Additional commands
	addInspectCmd(rootCmd)

	return rootCmd
}

var loadedConfig *config.Config

// setup loads configuration and installs the logger before any command runs.
func setup(cmd *cobra.Command, args []string) error {
	config.LoadDotEnv(".env")

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("output") {
		cfg.Output = outputFile
	}

	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	if verbose {
		level = "debug"
	}
	if _, err := logger.Setup(os.Stderr, level, logFormat); err != nil {
		return fmt.Errorf("invalid logging flags: %w", err)
	}

	loadedConfig = cfg
	return nil
}

func mustConfig(cmd *cobra.Command) *config.Config {
	if loadedConfig == nil {
		cmd.PrintErrln("configuration not loaded")
		os.Exit(1)
	}
	return loadedConfig
}

// loadSources fetches the GeoJSON and frames documents in parallel.
func loadSources(ctx context.Context, cfg *config.Config) (*geojson.FeatureCollection, *frames.File, error) {
	f := fetcher.New(cfg.Fetch.Timeout.Duration, cfg.Fetch.Retries)

	var rawData, rawFrames []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := f.Fetch(gctx, dataSource)
		rawData = b
		return err
	})
	g.Go(func() error {
		b, err := f.Fetch(gctx, framesSource)
		rawFrames = b
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	fc, err := geojson.Decode(rawData)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", dataSource, err)
	}
	fr, err := frames.Decode(rawFrames)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", framesSource, err)
	}
	return fc, fr, nil
}

// buildLayer merges config, flags and the frames file into a layer.
func buildLayer(cmd *cobra.Command, cfg *config.Config, fc *geojson.FeatureCollection, fr *frames.File) (*choropleth.TimeSliderChoropleth, error) {
	base := choropleth.DefaultOptions()
	base.MapName = cfg.Map.Var
	base.Name = cfg.Layer.Name
	base.ZoomOnClick = cfg.Layer.ZoomOnClick
	base.SmoothFactor = cfg.Layer.SmoothFactor
	if cfg.Layer.Overlay != nil {
		base.Overlay = *cfg.Layer.Overlay
	}
	if cfg.Layer.Control != nil {
		base.Control = *cfg.Layer.Control
	}
	if cfg.Layer.Show != nil {
		base.Show = *cfg.Layer.Show
	}

	flags := cmd.Flags()
	if flags.Changed("name") {
		base.Name = layerName
	}
	if flags.Changed("zoom-on-click") {
		base.ZoomOnClick = zoomOnClick
	}
	if flags.Changed("smooth-factor") {
		sf := smoothFactor
		base.SmoothFactor = &sf
	}
	if noEmbed {
		base.Embed = false
		base.EmbedURL = dataSource
		if !fetcher.IsURL(dataSource) {
			slog.Warn("data is not a URL; the page must be served next to it", "component", "cli", "data", dataSource)
		}
	}

	opts, timestamps, err := fr.Options(fc, base)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", framesSource, err)
	}
	return choropleth.New(fc, timestamps, opts)
}

// generateMap builds the layer and writes the HTML page
func generateMap(cmd *cobra.Command, cfg *config.Config) error {
	if verbose {
		cmd.Println(fmt.Sprintf("Loading %s and %s...", dataSource, framesSource))
	}

	fc, fr, err := loadSources(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to load sources: %w", err)
	}

	layer, err := buildLayer(cmd, cfg, fc, fr)
	if err != nil {
		return err
	}

	if verbose {
		cmd.Println(fmt.Sprintf("Generating HTML to %s...", cfg.Output))
	}

	page := generator.Page{
		Title:       cfg.Map.Title,
		Tiles:       cfg.Map.Tiles,
		Attribution: cfg.Map.Attribution,
		Center:      cfg.Map.Center,
		Zoom:        cfg.Map.Zoom,
	}
	if err := generator.GenerateMapHTML(cmd.Context(), page, layer, cfg.Output); err != nil {
		return fmt.Errorf("failed to generate HTML: %w", err)
	}

	cmd.Println(color.GreenString("Map with %d features and %d frames saved to %s",
		layer.NumRegions(), len(layer.Timestamps()), cfg.Output))
	return nil
}

// watchTargets resolves the local input files to watch. URLs are skipped.
func watchTargets(sources ...string) (map[string]bool, error) {
	watched := map[string]bool{}
	for _, src := range sources {
		if src == "" || fetcher.IsURL(src) {
			continue
		}
		abs, err := filepath.Abs(src)
		if err != nil {
			return nil, err
		}
		watched[abs] = true
	}
	if len(watched) == 0 {
		return nil, fmt.Errorf("nothing to watch: all inputs are URLs")
	}
	return watched, nil
}

// triggersRegeneration reports whether ev is a write to a watched file.
// Events for other files in the same directories are ignored.
func triggersRegeneration(watched map[string]bool, ev fsnotify.Event) bool {
	return watched[ev.Name] && (ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create))
}

// runWatchMode regenerates the map whenever a local input file changes
func runWatchMode(cmd *cobra.Command, cfg *config.Config) error {
	watched, err := watchTargets(dataSource, framesSource, configFile)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch directories so editors that replace files are still seen.
	dirs := map[string]bool{}
	for path := range watched {
		dirs[filepath.Dir(path)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	cmd.Println("Watch mode activated. Press Ctrl+C to stop.")
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("watcher error", "component", "watch", "err", err)
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !triggersRegeneration(watched, ev) {
				continue
			}
			slog.Debug("input changed", "component", "watch", "file", ev.Name, "op", ev.Op.String())
			if ev.Name == mustAbs(configFile) {
				reloaded, err := config.Load(configFile)
				if err != nil {
					cmd.PrintErrln(fmt.Errorf("config reload failed: %w", err))
					continue
				}
				if cmd.Flags().Changed("output") {
					reloaded.Output = outputFile
				}
				cfg = reloaded
			}
			if err := generateMap(cmd, cfg); err != nil {
				cmd.PrintErrln(fmt.Errorf("update failed: %w", err))
			}
		}
	}
}

func mustAbs(path string) string {
	if path == "" {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// addInspectCmd adds an 'inspect' subcommand to summarize the inputs without generating HTML
func addInspectCmd(rootCmd *cobra.Command) {
	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Summarize features, frames and tooltips",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := mustConfig(cmd)

			fc, fr, err := loadSources(cmd.Context(), cfg)
			if err != nil {
				cmd.PrintErrln(fmt.Errorf("failed to load sources: %w", err))
				os.Exit(1)
			}
			layer, err := buildLayer(cmd, cfg, fc, fr)
			if err != nil {
				cmd.PrintErrln(err)
				os.Exit(1)
			}

			printSummary(cmd, layer)
		},
	}

	rootCmd.AddCommand(inspectCmd)
}

func printSummary(cmd *cobra.Command, layer *choropleth.TimeSliderChoropleth) {
	heading := color.New(color.Bold).SprintFunc()
	timestamps := layer.Timestamps()
	first := time.Unix(timestamps[0], 0).UTC()
	last := time.Unix(timestamps[len(timestamps)-1], 0).UTC()

	cmd.Println(heading("Layer:"), layer.LayerName())
	cmd.Println(heading("Features:"), humanize.Comma(int64(layer.NumRegions())))
	cmd.Println(heading("Frames:"), len(timestamps))
	cmd.Println(heading("Range:"), fmt.Sprintf("%s to %s (%s)",
		first.Format(time.RFC3339), last.Format(time.RFC3339),
		strings.TrimSpace(humanize.RelTime(first, last, "", ""))))

	tooltips := layer.Tooltips()
	if tooltips == nil {
		cmd.Println(heading("Tooltips:"), "none")
		return
	}
	cmd.Println(heading("Tooltips:"))
	for _, ts := range timestamps {
		t := tooltips[ts]
		desc := string(t.Kind)
		switch {
		case t.Kind == choropleth.KindList:
			desc = fmt.Sprintf("list of %d", len(t.Entries))
		case t.Script:
			desc = "single (property table)"
		case t.Text == nil:
			desc = "single (none)"
		}
		cmd.Println("---")
		cmd.Println(fmt.Sprintf("%d (%s): %s", ts, time.Unix(ts, 0).UTC().Format(time.RFC3339), desc))
	}
}
