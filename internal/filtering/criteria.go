package filtering

import (
	"strings"

	"go.uber.org/zap"
)

// Criteria carries the user's filter selections. Zero values leave a dimension unfiltered.
type Criteria struct {
	Phase         string `mapstructure:"phase" yaml:"phase"`
	Country       string `mapstructure:"country" yaml:"country"`
	Sponsor       string `mapstructure:"sponsor" yaml:"sponsor"`
	Status        string `mapstructure:"status" yaml:"status"`
	MinEnrollment *int   `mapstructure:"enrollment-min" yaml:"enrollment-min"`
	MaxEnrollment *int   `mapstructure:"enrollment-max" yaml:"enrollment-max"`
	// Skip names filters to turn off for one run without clearing their values.
	Skip []string `mapstructure:"skip" yaml:"skip"`
}

// Steps returns the standard chain for the criteria.
func (c *Criteria) Steps() []Filter {
	if c == nil {
		c = &Criteria{}
	}

	return []Filter{
		NewPhase(c.Phase),
		NewCountry(c.Country),
		NewSponsor(c.Sponsor),
		NewStatus(c.Status),
		NewEnrollment(c.MinEnrollment, c.MaxEnrollment),
	}
}

// IsEmpty reports whether no dimension is filtered once skipped filters are turned off.
func (c *Criteria) IsEmpty() bool {
	for _, st := range FromCriteria(c, nil).Describe() {
		if st.Enabled {
			return false
		}
	}
	return true
}

// FromCriteria builds the runner for the criteria. Names in Skip that match no filter are
// reported by Validate.
func FromCriteria(c *Criteria, logger *zap.Logger) *Filtering {
	f := New(c.Steps(), logger)
	if c == nil {
		return f
	}

	for _, name := range c.Skip {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if !f.DisableByName(name, "skipped") {
			f.unknown = append(f.unknown, name)
		}
	}
	return f
}

