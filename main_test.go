package main

import (
	"bytes"
	"errors"
	"flag"
	"strings"
	"testing"
)

type mockApp struct {
	opts   AppOptions
	called []string
	err    error
}

func newMockApp() *mockApp {
	return &mockApp{}
}

func (m *mockApp) ApplyOptions(opts AppOptions) { m.opts = opts }
func (m *mockApp) RunSplit() error              { m.called = append(m.called, "RunSplit"); return m.err }
func (m *mockApp) RunBuild() error              { m.called = append(m.called, "RunBuild"); return m.err }
func (m *mockApp) RunService() error            { m.called = append(m.called, "RunService"); return m.err }

func TestRun_Flags(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantCalled []string
		verifyOpts func(*testing.T, AppOptions)
	}{
		{
			name:       "Build",
			args:       []string{"--input", "tower.json", "--config", "cfg.yaml", "--db", "tower.db"},
			wantCalled: []string{"RunBuild"},
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if opts.Input != "tower.json" {
					t.Errorf("expected Input tower.json, got %s", opts.Input)
				}
				if opts.ConfigFile != "cfg.yaml" {
					t.Errorf("expected ConfigFile cfg.yaml, got %s", opts.ConfigFile)
				}
				if opts.DBPath != "tower.db" {
					t.Errorf("expected DBPath tower.db, got %s", opts.DBPath)
				}
			},
		},
		{
			name:       "Plan",
			args:       []string{"--input", "tower.json", "--plan", "plan.png", "--format", "png", "--plan-level", "1", "--geojson", "plan.geojson"},
			wantCalled: []string{"RunBuild"},
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if opts.PlanFile != "plan.png" || opts.PlanFormat != "png" {
					t.Errorf("expected plan.png as png, got %s as %s", opts.PlanFile, opts.PlanFormat)
				}
				if opts.PlanLevel != 1 {
					t.Errorf("expected PlanLevel 1, got %d", opts.PlanLevel)
				}
				if opts.GeoJSON != "plan.geojson" {
					t.Errorf("expected GeoJSON plan.geojson, got %s", opts.GeoJSON)
				}
			},
		},
		{
			name:       "Split",
			args:       []string{"--input", "tower.json", "--split", "out"},
			wantCalled: []string{"RunSplit", "RunBuild"},
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if opts.SplitDir != "out" {
					t.Errorf("expected SplitDir out, got %s", opts.SplitDir)
				}
			},
		},
		{
			name:       "MqttMode",
			args:       []string{"--input", "tower.json", "--mqtt"},
			wantCalled: []string{"RunBuild"},
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if !opts.MqttMode {
					t.Error("expected MqttMode true")
				}
			},
		},
		{
			name:       "HttpWithBuild",
			args:       []string{"--input", "tower.json", "--http", "--http-port", "9090"},
			wantCalled: []string{"RunBuild", "RunService"},
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if !opts.HttpMode {
					t.Error("expected HttpMode true")
				}
				if opts.HttpPort != 9090 {
					t.Errorf("expected HttpPort 9090, got %d", opts.HttpPort)
				}
			},
		},
		{
			name:       "HttpOnly",
			args:       []string{"--http", "--db", "tower.db"},
			wantCalled: []string{"RunService"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newMockApp()
			var out bytes.Buffer
			if err := run(tt.args, &out, app); err != nil {
				t.Fatalf("run failed: %v", err)
			}

			if strings.Join(app.called, ",") != strings.Join(tt.wantCalled, ",") {
				t.Errorf("called %v, want %v", app.called, tt.wantCalled)
			}
			if tt.verifyOpts != nil {
				tt.verifyOpts(t, app.opts)
			}
		})
	}
}

func TestRun_Help(t *testing.T) {
	app := newMockApp()
	var out bytes.Buffer
	err := run([]string{"--help"}, &out, app)
	if !errors.Is(err, flag.ErrHelp) {
		t.Errorf("expected flag.ErrHelp, got %v", err)
	}
	if !strings.Contains(out.String(), "Usage of mind-to-model") {
		t.Errorf("expected usage info in output, got: %s", out.String())
	}
}

func TestRun_Default(t *testing.T) {
	app := newMockApp()
	var out bytes.Buffer
	if err := run([]string{}, &out, app); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if !strings.Contains(out.String(), "mind-to-model version: "+Version) {
		t.Errorf("expected output to contain version, got: %s", out.String())
	}
	if !strings.Contains(out.String(), "--input FILE") {
		t.Errorf("expected usage hints, got: %s", out.String())
	}
	if len(app.called) != 0 {
		t.Errorf("expected nothing to run, got %v", app.called)
	}
}

func TestRun_Version(t *testing.T) {
	app := newMockApp()
	var out bytes.Buffer
	if err := run([]string{"--version", "--input", "tower.json"}, &out, app); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(app.called) != 0 {
		t.Errorf("--version should not build, got %v", app.called)
	}
}

func TestRun_Errors(t *testing.T) {
	t.Run("unknown format", func(t *testing.T) {
		err := run([]string{"--input", "x.json", "--format", "pdf"}, &bytes.Buffer{}, newMockApp())
		if err == nil || !strings.Contains(err.Error(), "pdf") {
			t.Errorf("expected format error, got %v", err)
		}
	})

	t.Run("split without input", func(t *testing.T) {
		err := run([]string{"--split", "out", "--http"}, &bytes.Buffer{}, newMockApp())
		if err == nil {
			t.Error("expected error for --split without --input")
		}
	})

	t.Run("failed build", func(t *testing.T) {
		app := newMockApp()
		app.err = errors.New("boom")
		err := run([]string{"--input", "x.json", "--http"}, &bytes.Buffer{}, app)
		if err == nil {
			t.Fatal("expected build error")
		}
		if strings.Join(app.called, ",") != "RunBuild" {
			t.Errorf("service must not start after a failed build, called %v", app.called)
		}
	})
}

func TestMain_Execute(t *testing.T) {
	if Version == "" {
		t.Error("expected Version to be set")
	}
}
