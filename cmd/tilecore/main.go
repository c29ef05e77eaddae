// tilecore runs Tiled maps with scripted events: walk around, talk to
// characters and trigger map events from a terminal.
// Usage: tilecore [--version] [--plain] [--script <file>] [--events <file>]
// [--config <file>] [--debug] [--check] <map.tmx>...
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/nathoo/tilecore/cli"
	"github.com/nathoo/tilecore/config"
	"github.com/nathoo/tilecore/engine"
	"github.com/nathoo/tilecore/engine/events"
	"github.com/nathoo/tilecore/engine/session"
	"github.com/nathoo/tilecore/engine/tilemap"
	"github.com/nathoo/tilecore/loader"
	"github.com/nathoo/tilecore/observe"
	"github.com/nathoo/tilecore/plugin"
	"github.com/nathoo/tilecore/tui"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = "Usage: tilecore [--version] [--plain] [--script <file>] [--events <file>] [--config <file>] [--debug] [--check] <map.tmx>...\n"

type options struct {
	plain      bool
	debug      bool
	check      bool
	scriptFile string // command playback
	eventsFile string // YAML events merged onto the start map
	configFile string
	maps       []string
}

func main() {
	opts, ok := parseArgs(os.Args[1:])
	if !ok {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseArgs(args []string) (options, bool) {
	var opts options
	needValue := func(i int, flag string) {
		if i+1 >= len(args) {
			fmt.Fprintf(os.Stderr, "%s requires a file path\n", flag)
			os.Exit(1)
		}
	}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version":
			fmt.Printf("tilecore %s (commit %s, built %s)\n", version, commit, date)
			return opts, false
		case "--plain":
			opts.plain = true
		case "--debug":
			opts.debug = true
		case "--check":
			opts.check = true
		case "--script":
			needValue(i, "--script")
			i++
			opts.scriptFile = args[i]
		case "--events":
			needValue(i, "--events")
			i++
			opts.eventsFile = args[i]
		case "--config":
			needValue(i, "--config")
			i++
			opts.configFile = args[i]
		default:
			if strings.HasPrefix(args[i], "--") {
				fmt.Fprintf(os.Stderr, "unknown flag %s\n%s", args[i], usage)
				os.Exit(1)
			}
			opts.maps = append(opts.maps, args[i])
		}
	}

	if len(opts.maps) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
	return opts, true
}

func run(ctx context.Context, opts options) error {
	cfg := config.Default()
	if opts.configFile != "" {
		var err error
		if cfg, err = config.Load(opts.configFile); err != nil {
			return err
		}
	}
	if opts.debug {
		cfg.DebugConditions = true
		cfg.LogLevel = "debug"
	}

	interactive := opts.scriptFile == "" && !opts.check && !opts.plain && isTerminal()
	log, err := newLogger(cfg, interactive, opts.debug)
	if err != nil {
		return err
	}
	defer log.Sync()

	// Built-in verbs plus Lua plugins.
	catalog := engine.BuiltinCatalog()
	if len(cfg.Plugins) > 0 {
		host, err := plugin.Load(cfg.Plugins, catalog, log)
		if err != nil {
			return err
		}
		defer host.Close()
		log.Info("plugins loaded", zap.Strings("verbs", host.Verbs()))
	}

	loadOpts := loader.Options{TileSize: cfg.RenderTileSize(), Log: log}

	if opts.check {
		return check(ctx, opts.maps, loadOpts, catalog)
	}

	start := opts.maps[0]
	eng := engine.New(engine.Options{
		Game:    filepath.Base(filepath.Dir(start)),
		World:   cfg.World(),
		Maps:    mapLoader(start, opts.eventsFile, loadOpts),
		Catalog: catalog,
		Player:  cfg.PlayerStart(),
		Seed:    cfg.RNGSeed,
		FPS:     cfg.FPS,
		Debug:   cfg.DebugConditions,
		Log:     log,
	})
	if err := eng.Start(ctx, mapName(start)); err != nil {
		return fmt.Errorf("starting %s: %w", start, err)
	}

	// Script mode: open file, force plain, echo commands.
	if opts.scriptFile != "" {
		f, err := os.Open(opts.scriptFile)
		if err != nil {
			return fmt.Errorf("opening script: %w", err)
		}
		defer f.Close()
		c := cli.New(eng, cfg.SaveDir)
		c.In = f
		c.EchoInput = true
		c.Debug = cfg.DebugConditions
		c.Run(ctx)
		return nil
	}

	// Use plain CLI if --plain flag or stdout is not a terminal.
	if !interactive {
		c := cli.New(eng, cfg.SaveDir)
		c.Debug = cfg.DebugConditions
		c.Run(ctx)
		return nil
	}

	return tui.Run(ctx, eng, cfg.SaveDir)
}

// mapLoader resolves map names next to the start map. The events file, if
// any, is merged onto the start map only.
func mapLoader(start, eventsFile string, opts loader.Options) session.MapLoader {
	dir := loader.Dir{Root: filepath.Dir(start), Opts: opts}
	startName := mapName(start)
	return session.MapLoaderFunc(func(name string) (*tilemap.Map, error) {
		if name == startName && eventsFile != "" {
			o := opts
			o.ScriptPath = eventsFile
			return loader.Load(start, o)
		}
		return dir.LoadMap(name)
	})
}

func mapName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// check loads and validates every map, printing findings. It fails when any
// map has errors.
func check(ctx context.Context, paths []string, opts loader.Options, catalog *events.Catalog) error {
	maps, err := loader.LoadAll(ctx, paths, opts)
	if err != nil {
		return err
	}
	failed := 0
	for _, m := range maps {
		ve := loader.Validate(m, catalog)
		if ve == nil {
			fmt.Printf("%s: ok (%d events)\n", m.Filename, len(m.AllEvents()))
			continue
		}
		for _, w := range ve.Warnings {
			fmt.Printf("%s: warning: %s\n", m.Filename, w)
		}
		for _, e := range ve.Errors {
			fmt.Printf("%s: error: %s\n", m.Filename, e)
		}
		if len(ve.Errors) > 0 {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d maps failed validation", failed, len(maps))
	}
	return nil
}

// newLogger logs to stderr, or to a file beside the saves while the TUI
// owns the terminal.
func newLogger(cfg *config.Config, interactive, development bool) (*zap.Logger, error) {
	path := ""
	if interactive {
		if err := os.MkdirAll(cfg.SaveDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", cfg.SaveDir, err)
		}
		path = filepath.Join(cfg.SaveDir, "tilecore.log")
	}
	return observe.NewLogger(cfg.LogLevel, path, development)
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
