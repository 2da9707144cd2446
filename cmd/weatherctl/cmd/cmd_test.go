package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/smukkama/weather-monitor/internal/database"
	"github.com/smukkama/weather-monitor/internal/monitor"
)

func TestRootCommand_RegistersSubcommands(t *testing.T) {
	want := map[string]bool{"migrate": false, "cycle": false, "resolve": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %s not registered", name)
		}
	}
}

func TestResolve_RejectsInvalidID(t *testing.T) {
	for _, arg := range []string{"abc", "0", "-3"} {
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetErr(&out)
		rootCmd.SetArgs([]string{"resolve", "--", arg})

		err := rootCmd.Execute()
		if err == nil || !strings.Contains(err.Error(), "invalid alert id") {
			t.Errorf("resolve %s: expected invalid id error, got %v", arg, err)
		}
	}
}

func TestWriteReport(t *testing.T) {
	start := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	report := &monitor.CycleReport{
		StartedAt:  start,
		FinishedAt: start.Add(3 * time.Second),
		Results: []monitor.CityResult{
			{City: "Paris", Stage: monitor.StageDone, Alerts: []*database.Alert{{ID: 1}}},
			{City: "Atlantis", Stage: monitor.StageFetch, Err: errors.New("city not found")},
		},
	}

	var buf bytes.Buffer
	if err := writeReport(&buf, report); err != nil {
		t.Fatalf("writeReport failed: %v", err)
	}

	var out reportOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(out.Cities) != 2 {
		t.Fatalf("Expected 2 cities, got %d", len(out.Cities))
	}
	if out.Cities[0].Alerts != 1 || out.Cities[0].Error != "" {
		t.Errorf("Unexpected Paris entry: %+v", out.Cities[0])
	}
	if out.Cities[1].Stage != monitor.StageFetch || out.Cities[1].Error != "city not found" {
		t.Errorf("Unexpected Atlantis entry: %+v", out.Cities[1])
	}
}
