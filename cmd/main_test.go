package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fsnotify/fsnotify"
)

func TestGenerateCommand(t *testing.T) {
	out := filepath.Join(t.TempDir(), "map.html")

	cmd := newRootCmd()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stdout)
	cmd.SetArgs([]string{
		"--data", "testdata/states.geojson",
		"--frames", "testdata/frames.yaml",
		"--output", out,
		"--name", "Unemployment",
		"--zoom-on-click",
		"--log-level", "error",
	})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	if !strings.Contains(stdout.String(), "Map with 2 features and 2 frames saved to") {
		t.Errorf("unexpected output: %s", stdout.String())
	}

	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("map not written: %v", err)
	}
	html := string(raw)
	for _, want := range []string{
		`switch(feature.properties["name"])`,
		`case "Georgia": `,
		"_highlighter(feature)",
		"_tooltip_renderers",
		".bindPopup(function(layer)",
		"fitBounds",
		`{"Unemployment": time_slider_choropleth_`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("expected generated page to contain %q", want)
		}
	}
}

func TestInspectCommand(t *testing.T) {
	cmd := newRootCmd()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stdout)
	cmd.SetArgs([]string{
		"inspect",
		"--data", "testdata/states.geojson",
		"--frames", "testdata/frames.yaml",
		"--log-level", "error",
	})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	got := stdout.String()
	for _, want := range []string{
		"Features: 2",
		"Frames: 2",
		"1700000000 (2023-11-14T22:13:20Z): list of 2",
		"1700086400 (2023-11-15T22:13:20Z): single (property table)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in output:\n%s", want, got)
		}
	}
}

func TestGenerateCommandOpensBrowser(t *testing.T) {
	var opened string
	orig := openFile
	openFile = func(path string) error {
		opened = path
		return nil
	}
	t.Cleanup(func() { openFile = orig })

	out := filepath.Join(t.TempDir(), "map.html")
	cmd := newRootCmd()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stdout)
	cmd.SetArgs([]string{
		"--data", "testdata/states.geojson",
		"--frames", "testdata/frames.yaml",
		"--output", out,
		"--open",
		"--log-level", "error",
	})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if opened != out {
		t.Errorf("expected browser to open %s, got %q", out, opened)
	}
}

func TestWatchTargets(t *testing.T) {
	watched, err := watchTargets("testdata/states.geojson", "https://example.com/frames.yaml", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	abs, _ := filepath.Abs("testdata/states.geojson")
	if len(watched) != 1 || !watched[abs] {
		t.Errorf("expected only %s to be watched, got %v", abs, watched)
	}

	if _, err := watchTargets("https://example.com/a.geojson", ""); err == nil {
		t.Error("expected error when every input is a URL")
	}
}

func TestTriggersRegeneration(t *testing.T) {
	watched := map[string]bool{"/data/states.geojson": true}
	tests := []struct {
		name string
		ev   fsnotify.Event
		want bool
	}{
		{name: "write to input", ev: fsnotify.Event{Name: "/data/states.geojson", Op: fsnotify.Write}, want: true},
		{name: "input replaced", ev: fsnotify.Event{Name: "/data/states.geojson", Op: fsnotify.Create}, want: true},
		{name: "chmod only", ev: fsnotify.Event{Name: "/data/states.geojson", Op: fsnotify.Chmod}, want: false},
		{name: "removed", ev: fsnotify.Event{Name: "/data/states.geojson", Op: fsnotify.Remove}, want: false},
		{name: "sibling file", ev: fsnotify.Event{Name: "/data/map.html", Op: fsnotify.Write}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := triggersRegeneration(watched, tt.ev); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
