package filtering

import (
	"context"
	"strings"

	"github.com/spigell/trialscope/internal/textmatch"
	"github.com/spigell/trialscope/internal/trials"
)

// textFilter matches a free-text field with a case-insensitive substring.
type textFilter struct {
	name    string
	enabled bool
	reason  string
	needle  string
	field   func(*trials.Trial) string
}

// NewCountry keeps trials whose country contains the given text, ignoring case.
func NewCountry(country string) Filter {
	return newTextFilter("country", country, func(t *trials.Trial) string { return t.Country })
}

// NewSponsor keeps trials whose lead sponsor contains the given text, ignoring case.
func NewSponsor(sponsor string) Filter {
	return newTextFilter("sponsor", sponsor, func(t *trials.Trial) string { return t.Sponsor })
}

func newTextFilter(name, needle string, field func(*trials.Trial) string) *textFilter {
	f := &textFilter{
		name:    name,
		enabled: true,
		needle:  strings.TrimSpace(needle),
		field:   field,
	}
	if f.needle == "" {
		f.Disable("no " + name + " given")
	}
	return f
}

func (f *textFilter) Name() string { return f.name }

func (f *textFilter) Disable(reason string) {
	f.enabled = false
	f.reason = reason
}

func (f *textFilter) IsEnabled() bool { return f.enabled }

func (f *textFilter) Validate() error { return nil }

func (f *textFilter) Apply(_ context.Context, t *trials.Trials) (*trials.Trials, Step, error) {
	needle := textmatch.Fold(f.needle)
	next, step := selectStep(t, func(trial *trials.Trial) bool {
		return strings.Contains(textmatch.Fold(f.field(trial)), needle)
	})
	return next, step, nil
}

func (f *textFilter) Status() Status {
	details := map[string]string{}
	if f.enabled {
		details[f.name] = f.needle
	}
	return Status{Name: f.name, Enabled: f.enabled, Reason: f.reason, Details: details}
}
