package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dalemusser/therapytrack/internal/app/system/milestones"
	"github.com/dalemusser/therapytrack/internal/app/system/recurrence"
	"github.com/dalemusser/therapytrack/internal/app/system/sessionnum"
	"github.com/dalemusser/therapytrack/internal/domain/models"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// previewFile is the YAML document read by preview. Name and StartDate may
// be overridden on the command line.
type previewFile struct {
	Name      string              `yaml:"name"`
	StartDate string              `yaml:"start_date"`
	Schedule  models.ScheduleSpec `yaml:"schedule"`
}

type previewSession struct {
	SessionNumber   string `yaml:"session_number"`
	Date            string `yaml:"date"`
	Time            string `yaml:"time,omitempty"`
	DurationMinutes int    `yaml:"duration_minutes"`
	Title           string `yaml:"title"`
	Milestone       string `yaml:"milestone,omitempty"`
}

type previewOutput struct {
	Name       string                `yaml:"name"`
	Total      int                   `yaml:"total_sessions"`
	Milestones milestones.Milestones `yaml:"milestones"`
	Sessions   []previewSession      `yaml:"sessions"`
}

func newPreviewCmd() *cobra.Command {
	var file, start, name, output string

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Print the sessions a schedule would generate without writing anything",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			raw, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			doc, err := parsePreviewFile(raw)
			if err != nil {
				return err
			}
			if name != "" {
				doc.Name = name
			}
			if start != "" {
				doc.StartDate = start
			}

			out, err := buildPreview(doc, time.Now())
			if err != nil {
				return err
			}
			switch output {
			case "yaml":
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				if err := enc.Encode(out); err != nil {
					return err
				}
				return enc.Close()
			case "table", "":
				return writePreviewTable(cmd.OutOrStdout(), out)
			default:
				return fmt.Errorf("unknown output %q (want table or yaml)", output)
			}
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML file holding the schedule")
	cmd.Flags().StringVar(&start, "start", "", "Anchor date (YYYY-MM-DD); defaults to today")
	cmd.Flags().StringVar(&name, "name", "", "Folder name used in session numbers")
	cmd.Flags().StringVar(&output, "output", "table", "Output format: table or yaml")
	return cmd
}

func parsePreviewFile(raw []byte) (previewFile, error) {
	var doc previewFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return previewFile{}, fmt.Errorf("parse schedule: %w", err)
	}
	return doc, nil
}

// buildPreview validates doc and expands it. today is used when doc has no
// start date.
func buildPreview(doc previewFile, today time.Time) (previewOutput, error) {
	name := strings.TrimSpace(doc.Name)
	if name == "" {
		return previewOutput{}, fmt.Errorf("folder name is required")
	}
	if err := recurrence.Validate(doc.Schedule); err != nil {
		return previewOutput{}, err
	}

	anchor := today
	if doc.StartDate != "" {
		t, err := time.ParseInLocation(recurrence.DateLayout, doc.StartDate, time.Local)
		if err != nil {
			return previewOutput{}, fmt.Errorf("start date must be YYYY-MM-DD: %w", err)
		}
		anchor = t
	}

	total := recurrence.Total(doc.Schedule)
	ms := milestones.For(total)
	out := previewOutput{Name: name, Total: total, Milestones: ms}
	for _, o := range recurrence.Generate(doc.Schedule, anchor) {
		ps := previewSession{
			SessionNumber:   sessionnum.Encode(o.Ordinal, name),
			Date:            o.DateString(),
			Time:            o.Time,
			DurationMinutes: o.DurationMinutes,
			Title:           o.Title,
		}
		switch o.Ordinal {
		case ms.Final:
			ps.Milestone = "final"
		case ms.Middle:
			ps.Milestone = "middle"
		}
		out.Sessions = append(out.Sessions, ps)
	}
	return out, nil
}

func writePreviewTable(w io.Writer, out previewOutput) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tDATE\tDAY\tTIME\tMINUTES\tMILESTONE")
	for _, s := range out.Sessions {
		day := ""
		if t, err := time.Parse(recurrence.DateLayout, s.Date); err == nil {
			day = t.Weekday().String()[:3]
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", s.SessionNumber, s.Date, day, s.Time, s.DurationMinutes, s.Milestone)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d sessions, middle milestone %d, final milestone %d\n", out.Total, out.Milestones.Middle, out.Milestones.Final)
	return err
}
