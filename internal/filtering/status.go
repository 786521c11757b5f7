package filtering

import (
	"context"

	"github.com/spigell/trialscope/internal/trials"
)

type statusFilter struct {
	enabled bool
	reason  string
	status  string
}

// NewStatus keeps trials with exactly the given recruitment status.
func NewStatus(status string) Filter {
	f := &statusFilter{enabled: true, status: trials.NormalizeToken(status)}
	if trials.IsAll(status) {
		f.Disable("any status")
	}
	return f
}

func (f *statusFilter) Name() string { return "status" }

func (f *statusFilter) Disable(reason string) {
	f.enabled = false
	f.reason = reason
}

func (f *statusFilter) IsEnabled() bool { return f.enabled }

func (f *statusFilter) Validate() error { return nil }

func (f *statusFilter) Apply(_ context.Context, t *trials.Trials) (*trials.Trials, Step, error) {
	next, step := selectStep(t, func(trial *trials.Trial) bool {
		return trials.NormalizeToken(trial.Status) == f.status
	})
	return next, step, nil
}

func (f *statusFilter) Status() Status {
	details := map[string]string{}
	if f.enabled {
		details["status"] = f.status
	}
	return Status{Name: f.Name(), Enabled: f.enabled, Reason: f.reason, Details: details}
}
