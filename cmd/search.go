package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/trialscope/internal/analytics"
	"github.com/spigell/trialscope/internal/filtering"
	"github.com/spigell/trialscope/internal/registry"
	"github.com/spigell/trialscope/internal/report"
	"github.com/spigell/trialscope/internal/trials"
)

const (
	PromptReportByPhase   = "Report by phase"
	PromptReportByStatus  = "Report by status"
	PromptReportBySponsor = "Report by sponsor"
	PromptReportByCountry = "Report by country"
	PromptChangeFilters   = "Change filters"
	PromptNewSearch       = "New search"
	PromptExportCSV       = "Export to CSV"
	PromptExportXLSX      = "Export to XLSX"
	PromptSaveHTML        = "Save HTML report"
	PromptTrialsToFile    = "Dump trials to file"
	PromptExit            = "Exit"
)

var searchActions = []string{
	PromptReportByPhase,
	PromptReportByStatus,
	PromptReportBySponsor,
	PromptReportByCountry,
	PromptChangeFilters,
	PromptNewSearch,
	PromptExportCSV,
	PromptExportXLSX,
	PromptSaveHTML,
	PromptTrialsToFile,
	PromptExit,
}

var reportFields = map[string]analytics.Field{
	PromptReportByPhase:   analytics.FieldPhase,
	PromptReportByStatus:  analytics.FieldStatus,
	PromptReportBySponsor: analytics.FieldSponsor,
	PromptReportByCountry: analytics.FieldCountry,
}

var searchCmd = &cobra.Command{
	Use:   "search [term]",
	Short: "Search the registry and show a dashboard of the matching trials",
	Example: `  trialscope search "type 2 diabetes" --phase PHASE3 --status RECRUITING
  trialscope search asthma --country germany -o asthma.xlsx --html asthma.html
  trialscope search -i`,
	Run: func(cmd *cobra.Command, args []string) {
		bindCommandFlags(cmd)
		config, l := setup(cmd)
		applyEnrollmentFlags(cmd, config.Filters)

		opts := outputOptionsFromFlags(cmd)
		opts.ReportBy, _ = cmd.Flags().GetStringSlice("report-by")

		if err := search(cmd.Context(), config, l, cmd.OutOrStdout(), termFromArgs(args), opts); err != nil {
			if errors.Is(err, registry.ErrEmptyTerm) {
				l.Fatal("exiting", zap.Error(err), zap.String("hint", "pass a search term or use --interactive"))
			}
			l.Fatal("exiting", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)

	addFilterFlags(searchCmd)
	addOutputFlags(searchCmd)

	searchCmd.Flags().StringSlice("report-by", nil, "also print the full distribution by phase, status, sponsor or country")
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("phase", "", "phase to keep, e.g. PHASE2 (default All)")
	cmd.Flags().String("status", "", "recruitment status to keep, e.g. RECRUITING (default All)")
	cmd.Flags().String("country", "", "keep trials whose country contains this text")
	cmd.Flags().String("sponsor", "", "keep trials whose lead sponsor contains this text")
	cmd.Flags().Int("min-enrollment", 0, "minimum enrollment, inclusive")
	cmd.Flags().Int("max-enrollment", 0, "maximum enrollment, inclusive")
	cmd.Flags().StringSlice("skip-filter", nil, "turn off configured filters by name: phase, country, sponsor, status, enrollment")
}

// bindCommandFlags binds the flags of the running command only. search and match share
// flag names, so binding both in init would leave one of them unbound.
func bindCommandFlags(cmd *cobra.Command) {
	bindings := map[string]string{
		"filters.phase":          "phase",
		"filters.status":         "status",
		"filters.country":        "country",
		"filters.sponsor":        "sponsor",
		"filters.skip":           "skip-filter",
		"report.top":             "top",
		"profile.age":            "age",
		"profile.diagnosis":      "diagnosis",
		"profile.pregnant":       "pregnant",
		"profile.renal-disease":  "renal-disease",
		"profile.cancer-history": "cancer-history",
	}

	for key, name := range bindings {
		if flag := cmd.Flags().Lookup(name); flag != nil {
			viper.BindPFlag(key, flag)
		}
	}
}

// applyEnrollmentFlags sets enrollment bounds from flags given explicitly. They are not bound
// to viper because an unset bound must stay nil rather than become zero.
func applyEnrollmentFlags(cmd *cobra.Command, c *filtering.Criteria) {
	if cmd.Flags().Changed("min-enrollment") {
		n, _ := cmd.Flags().GetInt("min-enrollment")
		c.MinEnrollment = &n
	}
	if cmd.Flags().Changed("max-enrollment") {
		n, _ := cmd.Flags().GetInt("max-enrollment")
		c.MaxEnrollment = &n
	}
}

// search is the dashboard flow: fetch, normalize, filter, then summarize and list.
func search(ctx context.Context, config *Config, base *zap.Logger, out io.Writer, term string, opts outputOptions) error {
	s := newSession("search", config, base, out)

	var err error
	if term == "" && opts.Interactive {
		if term, err = promptTerm(); err != nil {
			return err
		}
	}
	if term == "" {
		return registry.ErrEmptyTerm
	}

	fields, err := parseFields(opts.ReportBy)
	if err != nil {
		return err
	}

	criteria := config.Filters
	if opts.Interactive {
		if criteria, err = promptCriteria(criteria); err != nil {
			return err
		}
	}

	all, filtered, err := s.load(ctx, term, criteria)
	if err != nil {
		return err
	}

	if filtered.Len() == 0 {
		s.logger.Info("exiting", zap.String("reason", "no trials found"))
		_, err := fmt.Fprintln(out, "No trials found.")
		return err
	}

	if err := s.writeDashboard(filtered); err != nil {
		return err
	}

	for _, field := range fields {
		if err := s.writeFieldReport(filtered, field); err != nil {
			return err
		}
	}

	if opts.Export != "" {
		if err := s.exportTrials(opts.Export, opts.Format, filtered); err != nil {
			return err
		}
	}

	if opts.HTML != "" {
		if err := s.writeHTMLFile(ctx, opts.HTML, s.dashboardData(term, filtered, nil)); err != nil {
			return err
		}
	}

	if !opts.Interactive {
		return nil
	}

	return s.actionLoop(searchActions, func(action string) error {
		s.logger.Info("current list of trials", zap.Int("count", filtered.Len()))

		next, err := s.handleSearchAction(ctx, action, term, all, filtered, criteria)
		if err != nil {
			return err
		}
		if next != nil {
			filtered, criteria = next.trials, next.criteria
			if next.all != nil {
				term, all = next.term, next.all
			}
		}
		return nil
	})
}

// refiltered is the state after an action changed the filters or the search term.
type refiltered struct {
	term     string
	all      *trials.Trials
	trials   *trials.Trials
	criteria *filtering.Criteria
}

func parseFields(names []string) ([]analytics.Field, error) {
	fields := make([]analytics.Field, 0, len(names))
	for _, name := range names {
		f, err := analytics.ParseField(name)
		if err != nil {
			return nil, fmt.Errorf("report-by: %w", err)
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// newSearch asks for another term and loads it with the current criteria. The session client
// is reused, so a term searched before is served from the memo.
func (s *session) newSearch(ctx context.Context, criteria *filtering.Criteria) (string, *trials.Trials, *trials.Trials, error) {
	term, err := promptTerm()
	if err != nil {
		return "", nil, nil, err
	}

	all, filtered, err := s.load(ctx, term, criteria)
	if err != nil {
		return "", nil, nil, err
	}
	return term, all, filtered, nil
}

func (s *session) handleSearchAction(ctx context.Context, action, term string, all, filtered *trials.Trials, criteria *filtering.Criteria) (*refiltered, error) {
	if field, ok := reportFields[action]; ok {
		return nil, s.writeFieldReport(filtered, field)
	}

	switch action {
	case PromptChangeFilters:
		c, err := promptCriteria(criteria)
		if err != nil {
			return nil, err
		}
		if err := filtering.FromCriteria(c, nil).Validate(); err != nil {
			s.logger.Warn("invalid filters, keeping the previous ones", zap.Error(err))
			return nil, nil
		}
		next, err := s.filter(ctx, all, c)
		if err != nil {
			return nil, err
		}
		if err := s.writeDashboard(next); err != nil {
			return nil, err
		}
		return &refiltered{trials: next, criteria: c}, nil
	case PromptNewSearch:
		term, all, next, err := s.newSearch(ctx, criteria)
		if err != nil {
			return nil, err
		}
		if err := s.writeDashboard(next); err != nil {
			return nil, err
		}
		return &refiltered{term: term, all: all, trials: next, criteria: criteria}, nil
	case PromptExportCSV, PromptExportXLSX:
		ext := "csv"
		if action == PromptExportXLSX {
			ext = "xlsx"
		}
		path, err := ask("File name", s.defaultFileName("trials", ext), nil)
		if err != nil {
			return nil, err
		}
		return nil, s.exportTrials(path, ext, filtered)
	case PromptSaveHTML:
		path, err := ask("File name", s.defaultFileName("trials", "html"), nil)
		if err != nil {
			return nil, err
		}
		return nil, s.writeHTMLFile(ctx, path, s.dashboardData(term, filtered, nil))
	case PromptTrialsToFile:
		return nil, s.dumpTrials(filtered)
	case PromptExit:
		s.logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return nil, errExit
	default:
		return nil, fmt.Errorf("invalid action: %s", action)
	}
}

func (s *session) writeFieldReport(t *trials.Trials, field analytics.Field) error {
	return runAll(
		func() error { _, err := fmt.Fprintln(s.out); return err },
		func() error {
			return report.WriteDistribution(s.out, "Trials by "+string(field), analytics.CountBy(t, field), s.barWidth())
		},
	)
}
