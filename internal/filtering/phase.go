package filtering

import (
	"context"
	"strings"

	"github.com/spigell/trialscope/internal/trials"
)

type phaseFilter struct {
	enabled bool
	reason  string
	phase   string
}

// NewPhase keeps trials whose phase contains the selected token, so "PHASE2" also matches
// "PHASE2, PHASE3". "All" or an empty value disables the step.
func NewPhase(phase string) Filter {
	f := &phaseFilter{enabled: true, phase: trials.NormalizeToken(phase)}
	if trials.IsAll(phase) {
		f.Disable("any phase")
	}
	return f
}

func (f *phaseFilter) Name() string { return "phase" }

func (f *phaseFilter) Disable(reason string) {
	f.enabled = false
	f.reason = reason
}

func (f *phaseFilter) IsEnabled() bool { return f.enabled }

func (f *phaseFilter) Validate() error { return nil }

func (f *phaseFilter) Apply(_ context.Context, t *trials.Trials) (*trials.Trials, Step, error) {
	next, step := selectStep(t, func(trial *trials.Trial) bool {
		return strings.Contains(strings.ToUpper(trial.Phase), f.phase)
	})
	return next, step, nil
}

func (f *phaseFilter) Status() Status {
	details := map[string]string{}
	if f.enabled {
		details["phase"] = f.phase
	}
	return Status{Name: f.Name(), Enabled: f.enabled, Reason: f.reason, Details: details}
}
