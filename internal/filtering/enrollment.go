package filtering

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spigell/trialscope/internal/trials"
)

type enrollmentFilter struct {
	enabled bool
	reason  string
	min     *int
	max     *int
}

// NewEnrollment keeps trials with enrollment inside [min, max], both inclusive. A nil bound is
// open. With both bounds nil the step is disabled. Trials with unknown enrollment never pass
// an enabled step.
func NewEnrollment(lower, upper *int) Filter {
	f := &enrollmentFilter{enabled: true, min: lower, max: upper}
	if lower == nil && upper == nil {
		f.Disable("no enrollment bounds")
	}
	return f
}

func (f *enrollmentFilter) Name() string { return "enrollment" }

func (f *enrollmentFilter) Disable(reason string) {
	f.enabled = false
	f.reason = reason
}

func (f *enrollmentFilter) IsEnabled() bool { return f.enabled }

func (f *enrollmentFilter) Validate() error {
	if f.min != nil && *f.min < 0 {
		return fmt.Errorf("minimum enrollment must not be negative, got %d", *f.min)
	}
	if f.max != nil && *f.max < 0 {
		return fmt.Errorf("maximum enrollment must not be negative, got %d", *f.max)
	}
	if f.min != nil && f.max != nil && *f.min > *f.max {
		return fmt.Errorf("minimum enrollment %d is greater than maximum %d", *f.min, *f.max)
	}
	return nil
}

func (f *enrollmentFilter) Apply(_ context.Context, t *trials.Trials) (*trials.Trials, Step, error) {
	next, step := selectStep(t, f.inRange)
	return next, step, nil
}

func (f *enrollmentFilter) inRange(trial *trials.Trial) bool {
	if trial.Enrollment == nil {
		return false
	}

	n := *trial.Enrollment
	if f.min != nil && n < *f.min {
		return false
	}
	if f.max != nil && n > *f.max {
		return false
	}
	return true
}

func (f *enrollmentFilter) Status() Status {
	details := map[string]string{}
	if f.min != nil {
		details["min"] = strconv.Itoa(*f.min)
	}
	if f.max != nil {
		details["max"] = strconv.Itoa(*f.max)
	}
	return Status{Name: f.Name(), Enabled: f.enabled, Reason: f.reason, Details: details}
}
