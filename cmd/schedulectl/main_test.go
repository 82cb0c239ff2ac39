package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

const sampleSchedule = `name: Spring Block
start_date: "2025-03-05"
schedule:
  total_weeks: 2
  sessions_per_week: 2
  session_templates:
    - day_of_week: mon
      time: "09:00"
      duration_minutes: 50
    - day_of_week: thu
      time: "14:30"
      duration_minutes: 45
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeSchedule(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schedule.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write schedule: %v", err)
	}
	return path
}

func TestRootCommandName(t *testing.T) {
	if newRootCmd().Use != "schedulectl" {
		t.Fatalf("unexpected root command name %q", newRootCmd().Use)
	}
}

func TestBuildPreview(t *testing.T) {
	doc, err := parsePreviewFile([]byte(sampleSchedule))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out, err := buildPreview(doc, time.Now())
	if err != nil {
		t.Fatalf("buildPreview: %v", err)
	}

	if out.Total != 4 || len(out.Sessions) != 4 {
		t.Fatalf("expected 4 sessions, got total=%d len=%d", out.Total, len(out.Sessions))
	}
	if out.Milestones.Middle != 2 || out.Milestones.Final != 4 {
		t.Errorf("milestones = %+v, want middle 2 final 4", out.Milestones)
	}

	wantDates := []string{"2025-03-03", "2025-03-06", "2025-03-10", "2025-03-13"}
	for i, s := range out.Sessions {
		if s.Date != wantDates[i] {
			t.Errorf("session %d date = %s, want %s", i+1, s.Date, wantDates[i])
		}
	}
	if out.Sessions[0].SessionNumber != "1 - Spring Block" {
		t.Errorf("session number = %q", out.Sessions[0].SessionNumber)
	}
	if out.Sessions[1].Milestone != "middle" || out.Sessions[3].Milestone != "final" {
		t.Errorf("milestone markers = %q, %q", out.Sessions[1].Milestone, out.Sessions[3].Milestone)
	}
	if out.Sessions[0].Milestone != "" {
		t.Errorf("session 1 should not be a milestone, got %q", out.Sessions[0].Milestone)
	}
}

func TestBuildPreview_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  previewFile
	}{
		{"missing name", previewFile{}},
		{"zero weeks", previewFile{Name: "x"}},
		{"bad start", func() previewFile {
			d, _ := parsePreviewFile([]byte(sampleSchedule))
			d.StartDate = "03/05/2025"
			return d
		}()},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := buildPreview(tc.doc, time.Now()); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestPreviewCommand_Table(t *testing.T) {
	path := writeSchedule(t, sampleSchedule)

	out, err := run(t, "preview", "--file", path)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	for _, want := range []string{"SESSION", "1 - Spring Block", "2025-03-03", "Mon", "final", "4 sessions"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPreviewCommand_YAMLWithOverrides(t *testing.T) {
	path := writeSchedule(t, sampleSchedule)

	out, err := run(t, "preview", "--file", path, "--name", "Autumn", "--start", "2025-09-01", "--output", "yaml")
	if err != nil {
		t.Fatalf("preview: %v", err)
	}

	var got previewOutput
	if err := yaml.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("unmarshal output: %v\n%s", err, out)
	}
	if got.Name != "Autumn" || len(got.Sessions) != 4 {
		t.Fatalf("unexpected output: %+v", got)
	}
	// 2025-09-01 is a Monday, so the first slot lands on the anchor.
	if got.Sessions[0].Date != "2025-09-01" || got.Sessions[0].SessionNumber != "1 - Autumn" {
		t.Errorf("first session = %+v", got.Sessions[0])
	}
}

func TestPreviewCommand_Errors(t *testing.T) {
	if _, err := run(t, "preview"); err == nil {
		t.Error("expected error without --file")
	}
	path := writeSchedule(t, sampleSchedule)
	if _, err := run(t, "preview", "--file", path, "--output", "xml"); err == nil {
		t.Error("expected error for unknown output")
	}
	bad := writeSchedule(t, "name: x\nschedule: [1, 2\n")
	if _, err := run(t, "preview", "--file", bad); err == nil {
		t.Error("expected parse error")
	}
}

func TestMilestonesCommand(t *testing.T) {
	out, err := run(t, "milestones", "--total", "23")
	if err != nil {
		t.Fatalf("milestones: %v", err)
	}
	if out != "middle: 12\nfinal: 23\n" {
		t.Errorf("output = %q", out)
	}
	if _, err := run(t, "milestones"); err == nil {
		t.Error("expected error without --total")
	}
}

func TestDecodeCommand(t *testing.T) {
	out, err := run(t, "decode", "12 - Spring Block")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if strings.TrimSpace(out) != "12" {
		t.Errorf("output = %q", out)
	}
	if _, err := run(t, "decode", "not a number"); err == nil {
		t.Error("expected error for undecodable value")
	}
}

func TestReconcileCommand_Validation(t *testing.T) {
	t.Setenv("THERAPYTRACK_MONGO_URI", "")
	if _, err := run(t, "reconcile"); err == nil {
		t.Error("expected error without a mongo uri")
	}
	if _, err := run(t, "reconcile", "--mongo-uri", "mongodb://localhost:27017", "--limit", "0"); err == nil {
		t.Error("expected error for zero limit")
	}
	if _, err := run(t, "reconcile", "--mongo-uri", "mongodb://localhost:27017", "--stale-after", "-1m"); err == nil {
		t.Error("expected error for negative stale-after")
	}
}
