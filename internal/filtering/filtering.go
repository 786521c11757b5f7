package filtering

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/trialscope/internal/trials"
)

// Filter represents a single filtering step applied to trials.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate() error
	Apply(ctx context.Context, t *trials.Trials) (*trials.Trials, Step, error)
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

// statusProvider is implemented by filters that can supply detailed status information.
type statusProvider interface {
	Status() Status
}

// Filtering runs a fixed chain of steps. Every enabled step must accept a trial for it to
// survive, so the order of steps does not change the result.
type Filtering struct {
	steps   []Filter
	unknown []string
	logger  *zap.Logger
}

func New(steps []Filter, logger *zap.Logger) *Filtering {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filtering{steps: steps, logger: logger}
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
// It reports whether such a filter exists.
func (f *Filtering) DisableByName(name, reason string) bool {
	found := false
	for _, step := range f.steps {
		if step.Name() == name {
			step.Disable(reason)
			found = true
		}
	}
	return found
}

// Validate checks every enabled step before anything is filtered.
func (f *Filtering) Validate() error {
	if len(f.unknown) > 0 {
		return fmt.Errorf("unknown filter to skip: %s", strings.Join(f.unknown, ", "))
	}

	for _, step := range f.steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(); err != nil {
			return fmt.Errorf("%s: %w", step.Name(), err)
		}
	}
	return nil
}

// RunFilters executes the enabled steps sequentially. The input collection is never modified.
func (f *Filtering) RunFilters(ctx context.Context, t *trials.Trials) (*trials.Trials, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	if t == nil {
		t = trials.New()
	}

	for _, step := range f.steps {
		if !step.IsEnabled() {
			f.logger.Debug("filter disabled", zap.String("name", step.Name()))
			continue
		}

		next, info, err := step.Apply(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		f.logger.Info("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		t = next
	}

	return t, nil
}

// Describe returns status entries for the configured filters.
func (f *Filtering) Describe() []Status {
	statuses := make([]Status, 0, len(f.steps))
	for _, step := range f.steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}

// selectStep keeps the trials accepted by keep and reports the counts.
func selectStep(t *trials.Trials, keep func(*trials.Trial) bool) (*trials.Trials, Step) {
	initial := t.Len()
	next := t.Select(keep)
	return next, Step{Initial: initial, Dropped: initial - next.Len(), Left: next.Len()}
}
