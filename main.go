package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/Knuttatutta/mind-to-model/logging"
)

// Version is set at build time via -ldflags
var Version = "dev"

// AppOptions holds the parsed command line.
type AppOptions struct {
	Input      string
	ConfigFile string
	DBPath     string
	PlanFile   string
	PlanFormat string
	PlanLevel  int
	GeoJSON    string
	SplitDir   string
	MqttMode   bool
	HttpMode   bool
	HttpPort   int
	Verbose    bool
}

// Application is what run dispatches to. *App implements it.
type Application interface {
	ApplyOptions(opts AppOptions)
	RunSplit() error
	RunBuild() error
	RunService() error
}

func main() {
	if err := run(os.Args[1:], os.Stdout, NewApp()); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatalf("mind-to-model: %v", err)
	}
}

func run(args []string, out io.Writer, app Application) error {
	fs := flag.NewFlagSet("mind-to-model", flag.ContinueOnError)
	fs.SetOutput(out)

	var opts AppOptions
	fs.StringVar(&opts.Input, "input", "", "Building JSON file to reconstruct")
	fs.StringVar(&opts.ConfigFile, "config", "", "Path to configuration file (default: built-in defaults)")
	fs.StringVar(&opts.DBPath, "db", "", "SQLite document file (default: in-memory document)")
	fs.StringVar(&opts.PlanFile, "plan", "", "Write a plan drawing of one level to this file")
	fs.StringVar(&opts.PlanFormat, "format", "svg", "Plan format: svg or png")
	fs.IntVar(&opts.PlanLevel, "plan-level", 0, "Index of the level drawn by --plan and --geojson")
	fs.StringVar(&opts.GeoJSON, "geojson", "", "Write the plan level as GeoJSON to this file")
	fs.StringVar(&opts.SplitDir, "split", "", "Write walls.json and floors.json of the input to this directory")
	fs.BoolVar(&opts.MqttMode, "mqtt", false, "Publish the run report to the configured MQTT broker")
	fs.BoolVar(&opts.HttpMode, "http", false, "Serve the document over HTTP after the build")
	fs.IntVar(&opts.HttpPort, "http-port", 8080, "HTTP server port")
	fs.BoolVar(&opts.Verbose, "verbose", false, "Log debug output")
	showVersion := fs.Bool("version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprintf(out, "mind-to-model version: %s\n", Version)
	if *showVersion {
		return nil
	}

	switch opts.PlanFormat {
	case "svg", "png":
	default:
		return fmt.Errorf("unknown plan format %q (want svg or png)", opts.PlanFormat)
	}

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	app.ApplyOptions(opts)

	if opts.Input == "" && !opts.HttpMode {
		fmt.Fprintln(out, "Use --input FILE to reconstruct a building")
		fmt.Fprintln(out, "Use --db FILE to keep the document in SQLite")
		fmt.Fprintln(out, "Use --plan FILE [--format svg|png] [--plan-level N] to draw a level")
		fmt.Fprintln(out, "Use --geojson FILE to export a level as GeoJSON")
		fmt.Fprintln(out, "Use --split DIR to split walls and floors into separate files")
		fmt.Fprintln(out, "Use --mqtt to publish the run report")
		fmt.Fprintln(out, "Use --http to serve the document over HTTP")
		return nil
	}

	if opts.SplitDir != "" {
		if opts.Input == "" {
			return errors.New("--split needs --input")
		}
		if err := app.RunSplit(); err != nil {
			return err
		}
	}

	if opts.Input != "" {
		if err := app.RunBuild(); err != nil {
			return err
		}
	}

	if opts.HttpMode {
		return app.RunService()
	}
	return nil
}
