package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/trialscope/internal/eligibility"
	"github.com/spigell/trialscope/internal/registry"
	"github.com/spigell/trialscope/internal/report"
	"github.com/spigell/trialscope/internal/trials"
	"github.com/spigell/trialscope/internal/utils"
)

const PromptShowCriteria = "Show criteria of a trial"

var matchActions = []string{
	PromptShowCriteria,
	PromptNewSearch,
	PromptExportCSV,
	PromptExportXLSX,
	PromptSaveHTML,
	PromptExit,
}

var errAgeRequired = errors.New("patient age is required: pass --age, set profile.age or use --profile-file")

// matchOptions adds the profile sources to the output flags.
type matchOptions struct {
	outputOptions
	ProfileFile string
	// AgeSet is true when the age came from a flag, the environment or the config file.
	AgeSet bool
}

var matchCmd = &cobra.Command{
	Use:   "match [term]",
	Short: "Search the registry and rank the trials for a patient profile",
	Example: `  trialscope match "breast cancer" --age 52 --diagnosis "breast cancer" --cancer-history
  trialscope match diabetes --profile-file patient.yaml --status RECRUITING -o matches.csv
  trialscope match -i`,
	Run: func(cmd *cobra.Command, args []string) {
		bindCommandFlags(cmd)
		config, l := setup(cmd)
		applyEnrollmentFlags(cmd, config.Filters)

		profileFile, _ := cmd.Flags().GetString("profile-file")
		opts := matchOptions{
			outputOptions: outputOptionsFromFlags(cmd),
			ProfileFile:   strings.TrimSpace(profileFile),
			AgeSet:        viper.IsSet("profile.age"),
		}

		if err := match(cmd.Context(), config, l, cmd.OutOrStdout(), termFromArgs(args), opts); err != nil {
			if errors.Is(err, registry.ErrEmptyTerm) {
				l.Fatal("exiting", zap.Error(err), zap.String("hint", "pass a search term or use --interactive"))
			}
			l.Fatal("exiting", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	addFilterFlags(matchCmd)
	addOutputFlags(matchCmd)

	matchCmd.Flags().Int("age", 0, "patient age in years")
	matchCmd.Flags().String("diagnosis", "", "patient diagnosis, matched against inclusion criteria")
	matchCmd.Flags().Bool("pregnant", false, "patient is pregnant")
	matchCmd.Flags().Bool("renal-disease", false, "patient has renal disease")
	matchCmd.Flags().Bool("cancer-history", false, "patient has a history of cancer")
	matchCmd.Flags().StringP("profile-file", "p", "", "YAML file with the patient profile")
}

// resolveProfile picks the profile from the file, the prompts or the configuration, in that
// order of preference.
func resolveProfile(opts matchOptions, configured *eligibility.Profile) (*eligibility.Profile, error) {
	if opts.ProfileFile != "" {
		return eligibility.LoadProfile(opts.ProfileFile)
	}

	if opts.Interactive {
		return promptProfile(configured)
	}

	if !opts.AgeSet {
		return nil, errAgeRequired
	}

	p := *configured
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// match is the matcher flow: fetch, normalize, filter, then score and rank for one profile.
func match(ctx context.Context, config *Config, base *zap.Logger, out io.Writer, term string, opts matchOptions) error {
	s := newSession("match", config, base, out)

	var err error
	if term == "" && opts.Interactive {
		if term, err = promptTerm(); err != nil {
			return err
		}
	}
	if term == "" {
		return registry.ErrEmptyTerm
	}

	profile, err := resolveProfile(opts, config.Profile)
	if err != nil {
		return err
	}
	s.logger.Debug("patient profile",
		zap.Int("age", profile.Age),
		zap.String("diagnosis", utils.Truncate(profile.Diagnosis, 80)),
		zap.Bool("pregnant", profile.Pregnant),
		zap.Bool("renal_disease", profile.RenalDisease),
		zap.Bool("cancer_history", profile.CancerHistory),
	)

	criteria := config.Filters
	if opts.Interactive {
		if criteria, err = promptCriteria(criteria); err != nil {
			return err
		}
	}

	_, filtered, err := s.load(ctx, term, criteria)
	if err != nil {
		return err
	}

	if filtered.Len() == 0 {
		s.logger.Info("exiting", zap.String("reason", "no trials found"))
		_, err := fmt.Fprintln(out, "No trials found.")
		return err
	}

	results := s.rank(filtered, profile)
	if err := s.writeMatches(results); err != nil {
		return err
	}

	if opts.Export != "" {
		if err := s.exportMatches(opts.Export, opts.Format, results); err != nil {
			return err
		}
	}

	if opts.HTML != "" {
		if err := s.writeHTMLFile(ctx, opts.HTML, s.dashboardData(term, filtered, results)); err != nil {
			return err
		}
	}

	if !opts.Interactive {
		return nil
	}

	return s.actionLoop(matchActions, func(action string) error {
		switch action {
		case PromptShowCriteria:
			return s.showCriteria(results, filtered)
		case PromptNewSearch:
			next, _, found, err := s.newSearch(ctx, criteria)
			if err != nil {
				return err
			}
			term, filtered, results = next, found, s.rank(found, profile)
			return s.writeMatches(results)
		case PromptExportCSV, PromptExportXLSX:
			ext := "csv"
			if action == PromptExportXLSX {
				ext = "xlsx"
			}
			path, err := ask("File name", s.defaultFileName("matches", ext), nil)
			if err != nil {
				return err
			}
			return s.exportMatches(path, ext, results)
		case PromptSaveHTML:
			path, err := ask("File name", s.defaultFileName("matches", "html"), nil)
			if err != nil {
				return err
			}
			return s.writeHTMLFile(ctx, path, s.dashboardData(term, filtered, results))
		case PromptExit:
			s.logger.Info("exiting", zap.String("reason", "got exit from prompt"))
			return errExit
		default:
			return fmt.Errorf("invalid action: %s", action)
		}
	})
}

func (s *session) rank(t *trials.Trials, profile *eligibility.Profile) *eligibility.Results {
	results := eligibility.Rank(t, profile)
	counts := results.Counts()
	s.logger.Info("ranked trials",
		zap.Int("count", results.Len()),
		zap.Int("likely", counts[eligibility.LikelyEligible]),
		zap.Int("possibly", counts[eligibility.PossiblyEligible]),
		zap.Int("not", counts[eligibility.NotEligible]),
	)
	return results
}

// showCriteria lets the user pick one of the listed matches and prints its criteria.
func (s *session) showCriteria(results *eligibility.Results, t *trials.Trials) error {
	for {
		top := results.Top(s.top())
		items := make([]string, 0, len(top)+1)
		for _, a := range top {
			items = append(items, fmt.Sprintf("%s %d %s / %s", a.Trial.ID, a.Score, a.Label, utils.Truncate(a.Trial.Title, 60)))
		}

		selected, err := selectOne("Choose a trial and press ENTER", append(items, PromptBack))
		if err != nil {
			return err
		}
		if selected == PromptBack {
			return nil
		}

		id := strings.Split(selected, " ")[0]
		trial := t.FindByID(id)
		if trial == nil {
			return fmt.Errorf("there is no such trial id %s", id)
		}

		if err := report.WriteCriteria(s.out, trial); err != nil {
			return err
		}
	}
}
