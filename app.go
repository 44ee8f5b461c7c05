package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Knuttatutta/mind-to-model/building"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// App encapsulates the application state and dependencies
type App struct {
	Config *building.Config
	Doc    building.Document
	Report *building.Report
	Out    io.Writer

	// NewClient connects to the report broker; replaced in tests.
	NewClient func(cfg building.MQTTConfig, timeout time.Duration) (mqtt.Client, error)

	closeDoc func() error

	// CLI Flags (effectively dependencies)
	Input      string
	ConfigFile string
	DBPath     string
	PlanFile   string
	PlanFormat string
	PlanLevel  int
	GeoJSON    string
	SplitDir   string
	HttpPort   int
	MqttMode   bool
	HttpMode   bool
}

// NewApp creates a new App instance
func NewApp() *App {
	return &App{
		Out:        os.Stdout,
		NewClient:  building.NewMQTTClient,
		PlanFormat: "svg",
	}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.Input = opts.Input
	a.ConfigFile = opts.ConfigFile
	a.DBPath = opts.DBPath
	a.PlanFile = opts.PlanFile
	a.PlanFormat = opts.PlanFormat
	a.PlanLevel = opts.PlanLevel
	a.GeoJSON = opts.GeoJSON
	a.SplitDir = opts.SplitDir
	a.HttpPort = opts.HttpPort
	a.MqttMode = opts.MqttMode
	a.HttpMode = opts.HttpMode
}

// loadConfig reads the config file once; no file means defaults.
func (a *App) loadConfig() (*building.Config, error) {
	if a.Config != nil {
		return a.Config, nil
	}
	if a.ConfigFile == "" {
		a.Config = building.DefaultConfig()
		return a.Config, nil
	}
	cfg, err := building.LoadConfig(a.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", a.ConfigFile, err)
	}
	log.Printf("Loaded config from %s", a.ConfigFile)
	a.Config = cfg
	return cfg, nil
}

// openDocument opens the host document once: SQLite when --db is set,
// otherwise an in-memory document seeded with the config catalog.
func (a *App) openDocument(cfg *building.Config) (building.Document, error) {
	if a.Doc != nil {
		return a.Doc, nil
	}
	if a.DBPath == "" {
		a.Doc = building.NewMemoryDocument(cfg.Catalog)
		return a.Doc, nil
	}
	doc, err := building.OpenSQLiteDocument(context.Background(), a.DBPath, cfg.Catalog)
	if err != nil {
		return nil, err
	}
	log.Printf("Opened document %s", a.DBPath)
	a.Doc = doc
	a.closeDoc = doc.Close
	return doc, nil
}

// Close releases the document.
func (a *App) Close() error {
	if a.closeDoc == nil {
		return nil
	}
	err := a.closeDoc()
	a.closeDoc = nil
	return err
}

// RunSplit writes the walls and floors of the input to separate files.
func (a *App) RunSplit() error {
	model, err := building.ParseModelFile(a.Input)
	if err != nil {
		return err
	}
	paths, err := building.SplitComponents(model, a.SplitDir)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintf(a.Out, "Wrote %s\n", p)
	}
	return nil
}

// RunBuild reconstructs the input building, prints the report and writes the
// requested exports. A failed run is returned as an error after the report
// has been printed and published.
func (a *App) RunBuild() error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	model, err := building.ParseModelFile(a.Input)
	if err != nil {
		return err
	}
	doc, err := a.openDocument(cfg)
	if err != nil {
		return err
	}
	if !a.HttpMode {
		defer a.Close()
	}

	report, runErr := building.Run(doc, model, cfg)
	a.Report = report
	fmt.Fprintln(a.Out, report.Summary())

	if a.MqttMode {
		if err := a.publish(cfg, report); err != nil {
			log.Printf("Error publishing report: %v", err)
		}
	}
	if runErr != nil {
		return runErr
	}

	conv, err := cfg.Converter()
	if err != nil {
		return err
	}
	if a.PlanFile != "" || a.GeoJSON != "" {
		level, err := a.planLevel(a.PlanLevel)
		if err != nil {
			return err
		}
		if a.PlanFile != "" {
			if err := writePlan(doc, level, a.PlanFile, a.PlanFormat); err != nil {
				return err
			}
			fmt.Fprintf(a.Out, "Wrote plan of %s to %s\n", level.Name, a.PlanFile)
		}
		if a.GeoJSON != "" {
			if err := writeGeoJSON(doc, level, conv, a.GeoJSON); err != nil {
				return err
			}
			fmt.Fprintf(a.Out, "Wrote GeoJSON of %s to %s\n", level.Name, a.GeoJSON)
		}
	}
	return nil
}

func (a *App) publish(cfg *building.Config, report *building.Report) error {
	client, err := a.NewClient(cfg.MQTT, 5*time.Second)
	if err != nil {
		return err
	}
	if client == nil {
		return errors.New("MQTT broker not configured")
	}
	defer client.Disconnect(250)
	return building.NewReportPublisher(client, cfg.MQTT).PublishReport(report)
}

// planLevel returns the n-th level of the document.
func (a *App) planLevel(n int) (building.Level, error) {
	levels, err := a.Doc.Levels()
	if err != nil {
		return building.Level{}, err
	}
	if n < 0 || n >= len(levels) {
		return building.Level{}, fmt.Errorf("plan level %d out of range (document has %d levels)", n, len(levels))
	}
	return levels[n], nil
}

func writePlan(doc building.Document, level building.Level, path, format string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	r := building.NewPlanRenderer(doc, level)
	if format == "png" {
		err = r.RenderToPNG(f)
	} else {
		err = r.RenderToSVG(f)
	}
	if err != nil {
		return fmt.Errorf("rendering plan: %w", err)
	}
	return f.Close()
}

func writeGeoJSON(doc building.Document, level building.Level, conv building.UnitConverter, path string) error {
	fc, err := building.PlanFeatureCollection(doc, level, conv)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling GeoJSON: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// RunService serves the document read-only until interrupted.
func (a *App) RunService() error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	if _, err := a.openDocument(cfg); err != nil {
		return err
	}
	defer a.Close()
	conv, err := cfg.Converter()
	if err != nil {
		return err
	}

	server := newHTTPServer(a, conv)
	go func() {
		addr := fmt.Sprintf("0.0.0.0:%d", a.HttpPort)
		log.Printf("[HTTP] Starting server on %s", addr)
		if err := server.Listen(addr); err != nil {
			log.Printf("[HTTP] Server error: %v", err)
		}
	}()

	fmt.Fprintf(a.Out, "\nHTTP endpoints (port %d):\n", a.HttpPort)
	fmt.Fprintln(a.Out, "  GET /health            - Health check")
	fmt.Fprintln(a.Out, "  GET /report            - Last run report")
	fmt.Fprintln(a.Out, "  GET /levels            - Document levels")
	fmt.Fprintln(a.Out, "  GET /plan.svg?level=N  - Plan drawing")
	fmt.Fprintln(a.Out, "  GET /plan.png?level=N  - Plan raster")
	fmt.Fprintln(a.Out, "  GET /plan.geojson?level=N - Plan as GeoJSON")
	fmt.Fprintln(a.Out, "\nPress Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Fprintln(a.Out, "\nShutting down service...")
	if err := server.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Printf("[HTTP] Shutdown error: %v", err)
	}
	return nil
}
