package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/trialscope/internal/analytics"
	"github.com/spigell/trialscope/internal/eligibility"
	"github.com/spigell/trialscope/internal/export"
	"github.com/spigell/trialscope/internal/report"
	"github.com/spigell/trialscope/internal/trials"
)

const (
	topSponsors  = 10
	topCountries = 10
)

// outputOptions are the flags shared by the commands that print trial sets.
type outputOptions struct {
	Interactive bool
	Export      string
	Format      string
	HTML        string
	// ReportBy lists fields printed as full distributions after the dashboard.
	ReportBy []string
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("interactive", "i", false, "ask for missing input and offer follow-up actions")
	cmd.Flags().StringP("export", "o", "", "write the result table to this file")
	cmd.Flags().String("format", "", "export format: csv or xlsx (default is taken from the export file extension)")
	cmd.Flags().String("html", "", "write an HTML report to this file")
	cmd.Flags().Int("top", 20, "how many trials to list")
}

func outputOptionsFromFlags(cmd *cobra.Command) outputOptions {
	interactive, _ := cmd.Flags().GetBool("interactive")
	exportPath, _ := cmd.Flags().GetString("export")
	format, _ := cmd.Flags().GetString("format")
	html, _ := cmd.Flags().GetString("html")

	return outputOptions{
		Interactive: interactive,
		Export:      strings.TrimSpace(exportPath),
		Format:      strings.TrimSpace(format),
		HTML:        strings.TrimSpace(html),
	}
}

func exportFormat(path, format string) (export.Format, error) {
	if format != "" {
		return export.ParseFormat(format)
	}
	return export.FormatFromPath(path)
}

// runAll runs the writers in order and stops at the first error.
func runAll(steps ...func() error) error {
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) barWidth() int {
	if s.config.Report.BarWidth <= 0 {
		return report.DefaultBarWidth
	}
	return s.config.Report.BarWidth
}

func distributions(t *trials.Trials) []report.Distribution {
	return []report.Distribution{
		{Title: "Trials by phase", Counts: analytics.CountBy(t, analytics.FieldPhase)},
		{Title: "Trials by status", Counts: analytics.CountBy(t, analytics.FieldStatus)},
		{Title: "Top sponsors", Counts: analytics.Top(analytics.CountBy(t, analytics.FieldSponsor), topSponsors)},
		{Title: "Top countries", Counts: analytics.Top(analytics.CountBy(t, analytics.FieldCountry), topCountries)},
	}
}

func (s *session) section(title string) func() error {
	return func() error {
		_, err := fmt.Fprintf(s.out, "\n== %s ==\n", title)
		return err
	}
}

// writeDashboard prints metrics, distributions and the preview table.
func (s *session) writeDashboard(t *trials.Trials) error {
	steps := []func() error{
		s.section("Summary"),
		func() error { return report.WriteSummary(s.out, analytics.Summarize(t)) },
	}

	for _, d := range distributions(t) {
		steps = append(steps,
			func() error { _, err := fmt.Fprintln(s.out); return err },
			func() error { return report.WriteDistribution(s.out, d.Title, d.Counts, s.barWidth()) },
		)
	}

	steps = append(steps,
		s.section(fmt.Sprintf("First %d of %d trials", len(t.Head(s.top())), t.Len())),
		func() error { return report.WriteTrials(s.out, t.Head(s.top())) },
	)

	return runAll(steps...)
}

// writeMatches prints the disclaimer, label counts, the best matches and the criteria of
// the top trial.
func (s *session) writeMatches(r *eligibility.Results) error {
	steps := []func() error{
		func() error { return report.WriteDisclaimer(s.out) },
		s.section("Eligibility"),
		func() error { return report.WriteLabelCounts(s.out, r.Counts()) },
		s.section(fmt.Sprintf("Top %d of %d matches", len(r.Top(s.top())), r.Len())),
		func() error { return report.WriteMatches(s.out, r.Top(s.top())) },
	}

	if best := r.Best(); best != nil {
		steps = append(steps,
			s.section("Top trial"),
			func() error { return report.WriteCriteria(s.out, best.Trial) },
		)
	}

	return runAll(steps...)
}

func (s *session) dashboardData(term string, t *trials.Trials, r *eligibility.Results) *report.DashboardData {
	data := &report.DashboardData{
		Term:          term,
		GeneratedAt:   time.Now(),
		Summary:       analytics.Summarize(t),
		Distributions: distributions(t),
		Trials:        t.Head(s.top()),
	}

	if r != nil {
		data.Matches = r.Top(s.top())
		data.LabelCounts = r.Counts()
	}
	return data
}

func (s *session) exportTrials(path, format string, t *trials.Trials) error {
	f, err := exportFormat(path, format)
	if err != nil {
		return err
	}

	write, err := export.Trials(f, t)
	if err != nil {
		return err
	}

	if err := export.ToFile(path, write); err != nil {
		return err
	}

	s.logger.Info("exported trials", zap.String("filename", path), zap.String("format", string(f)), zap.Int("count", t.Len()))
	return nil
}

func (s *session) exportMatches(path, format string, r *eligibility.Results) error {
	f, err := exportFormat(path, format)
	if err != nil {
		return err
	}

	write, err := export.Matches(f, r)
	if err != nil {
		return err
	}

	if err := export.ToFile(path, write); err != nil {
		return err
	}

	s.logger.Info("exported matches", zap.String("filename", path), zap.String("format", string(f)), zap.Int("count", r.Len()))
	return nil
}

func (s *session) writeHTMLFile(ctx context.Context, path string, data *report.DashboardData) error {
	err := export.ToFile(path, func(w io.Writer) error {
		return report.WriteHTML(ctx, w, data)
	})
	if err != nil {
		return err
	}

	s.logger.Info("saved html report", zap.String("filename", path))
	return nil
}

func (s *session) dumpTrials(t *trials.Trials) error {
	filename, err := t.DumpToTmpFile()
	if err != nil {
		return fmt.Errorf("dump results to file: %w", err)
	}
	s.logger.Info("dumping result to file", zap.String("filename", filename))
	return nil
}
