package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/trialscope/internal/filtering"
	"github.com/spigell/trialscope/internal/logger"
	"github.com/spigell/trialscope/internal/registry"
	"github.com/spigell/trialscope/internal/trials"
)

var errExit = errors.New("exit requested")

// session is the state of one command invocation. Every search of the invocation goes through
// the same registry client.
type session struct {
	command string
	runID   string
	config  *Config
	// base carries the command and run id; logger adds the current term on top of it.
	base    *zap.Logger
	logger  *zap.Logger
	client  *registry.Client
	out     io.Writer
}

func newSession(command string, config *Config, base *zap.Logger, out io.Writer) *session {
	runID := uuid.NewString()
	l := logger.WithCommonFields(base, command, "", runID)

	return &session{
		command: command,
		runID:   runID,
		config:  config,
		base:    l,
		logger:  l,
		client:  registry.New(*config.Registry, l),
		out:     out,
	}
}

// setup builds the logger and config from viper the way every command needs them.
func setup(cmd *cobra.Command) (*Config, *zap.Logger) {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		l.Fatal("getting a config", zap.Error(err))
	}

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	l.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	l.Info("starting the trialscope", zap.String("version", version), zap.String("command", cmd.Name()))

	return config, l
}

// termFromArgs joins the positional words into one search term.
func termFromArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// fetch gets the studies for the term and normalizes them. A blank term fails before any
// network access.
func (s *session) fetch(ctx context.Context, term string) (*trials.Trials, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, registry.ErrEmptyTerm
	}

	s.logger = logger.WithTerm(s.base, term)
	s.logger.Info("starting the search")

	studies, err := s.client.Fetch(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("fetch studies: %w", err)
	}

	all := trials.FromStudies(studies)
	if skipped := len(studies) - all.Len(); skipped > 0 {
		s.logger.Warn("skipping studies without id", zap.Int("count", skipped))
	}
	s.logger.Info("getting trials", zap.Int("count", all.Len()))

	return all, nil
}

// filter applies the criteria to the fetched set. The fetched set is left intact so the
// criteria can be changed without another fetch.
func (s *session) filter(ctx context.Context, all *trials.Trials, criteria *filtering.Criteria) (*trials.Trials, error) {
	filters := filtering.FromCriteria(criteria, s.logger)
	if criteria.IsEmpty() {
		s.logger.Info("no filters given, keeping every trial", zap.Int("count", all.Len()))
	} else {
		for _, st := range filters.Describe() {
			if st.Enabled {
				s.logger.Debug("filter enabled", zap.String("name", st.Name), zap.Any("details", st.Details))
			}
		}
	}

	filtered, err := filters.RunFilters(ctx, all)
	if err != nil {
		return nil, fmt.Errorf("filtering failed: %w", err)
	}
	return filtered, nil
}

// load validates the criteria, then runs fetch and filter.
func (s *session) load(ctx context.Context, term string, criteria *filtering.Criteria) (*trials.Trials, *trials.Trials, error) {
	if err := filtering.FromCriteria(criteria, nil).Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid filters: %w", err)
	}

	all, err := s.fetch(ctx, term)
	if err != nil {
		return nil, nil, err
	}

	filtered, err := s.filter(ctx, all, criteria)
	if err != nil {
		return nil, nil, err
	}
	return all, filtered, nil
}

// actionLoop asks for the next action until the handler returns errExit or an error.
func (s *session) actionLoop(items []string, handle func(action string) error) error {
	for {
		action, err := selectOne("What next?", items)
		if err != nil {
			return err
		}

		if err := handle(action); err != nil {
			if errors.Is(err, errExit) {
				return nil
			}
			return err
		}
	}
}

// top returns the configured list length.
func (s *session) top() int {
	if s.config.Report.Top <= 0 {
		return 20
	}
	return s.config.Report.Top
}

func (s *session) defaultFileName(kind, ext string) string {
	return fmt.Sprintf("%s-%s-%s.%s", app, kind, s.runID[:8], ext)
}
