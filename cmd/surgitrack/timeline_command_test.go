package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"surgitrack/internal/timeline"
)

func TestTimelineDemo(t *testing.T) {
	out, _, err := runCLI(t, []string{"timeline", "--demo"}, "")
	if err != nil {
		t.Fatalf("timeline --demo: %v", err)
	}
	for _, event := range timeline.DemoEvents() {
		requireContains(t, out, event.Action)
	}
	requireContains(t, out, "Events: 6")
}

func TestTimelineDemoJSON(t *testing.T) {
	out, _, err := runCLI(t, []string{"timeline", "--demo", "--json"}, "")
	if err != nil {
		t.Fatalf("timeline --demo --json: %v", err)
	}
	var payload struct {
		Summary timeline.Summary `json:"summary"`
		Events  []timeline.Event `json:"events"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if payload.Summary.Count != len(timeline.DemoEvents()) || len(payload.Events) != payload.Summary.Count {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestTimelineFromFiles(t *testing.T) {
	dir := t.TempDir()
	eventsPath := filepath.Join(dir, "events.json")
	if err := os.WriteFile(eventsPath, []byte(`{"events":[{"timestamp":"00:01","frame":15,"action":"Forceps picked up","confidence":0.9}]}`), 0o644); err != nil {
		t.Fatalf("write events: %v", err)
	}
	transitionsPath := filepath.Join(dir, "transitions.json")
	if err := os.WriteFile(transitionsPath, []byte(`{"fps":30,"transitions":[
		{"frame":30,"object":"Scalpel","state":"off_tray","confidence":0.8},
		{"frame":60,"object":"Scalpel","state":"off_tray","confidence":0.8},
		{"frame":90,"object":"Scalpel","state":"on_tray","confidence":0.7}
	]}`), 0o644); err != nil {
		t.Fatalf("write transitions: %v", err)
	}

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{name: "events", args: []string{"timeline", eventsPath}, want: []string{"Forceps picked up", "Events: 1"}},
		{name: "transitions", args: []string{"timeline", "--transitions", transitionsPath}, want: []string{"Scalpel picked up", "Scalpel placed back", "Events: 2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := runCLI(t, tt.args, "")
			if err != nil {
				t.Fatalf("timeline: %v", err)
			}
			for _, want := range tt.want {
				requireContains(t, out, want)
			}
		})
	}
}

func TestTimelineRequiresInput(t *testing.T) {
	if _, _, err := runCLI(t, []string{"timeline"}, ""); err == nil {
		t.Fatal("expected error without a file or --demo")
	}
	if _, _, err := runCLI(t, []string{"timeline", filepath.Join(t.TempDir(), "missing.json")}, ""); err == nil {
		t.Fatal("expected error for a missing file")
	}
}
