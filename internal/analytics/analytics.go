package analytics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spigell/trialscope/internal/trials"
)

// Field names a trial attribute that can be counted.
type Field string

const (
	FieldPhase   Field = "phase"
	FieldStatus  Field = "status"
	FieldSponsor Field = "sponsor"
	FieldCountry Field = "country"
)

// Fields lists the countable attributes.
var Fields = []Field{FieldPhase, FieldStatus, FieldSponsor, FieldCountry}

// Summary holds the headline metrics of a trial set.
type Summary struct {
	Total           int `json:"total"`
	UniqueSponsors  int `json:"unique_sponsors"`
	PhasesCovered   int `json:"phases_covered"`
	AvgEnrollment   int `json:"avg_enrollment"`
	KnownEnrollment int `json:"known_enrollment"`
}

// Count is the number of trials sharing one value.
type Count struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Summarize computes the headline metrics. Unknown values are not counted as distinct
// sponsors or phases, and the enrollment mean covers known enrollments only.
func Summarize(t *trials.Trials) Summary {
	s := Summary{Total: t.Len()}
	if t == nil {
		return s
	}

	sponsors := map[string]struct{}{}
	phases := map[string]struct{}{}
	total := 0

	for _, trial := range t.Items {
		if trial.Sponsor != "" {
			sponsors[trial.Sponsor] = struct{}{}
		}
		if trial.Phase != "" {
			phases[trial.Phase] = struct{}{}
		}
		if trial.Enrollment != nil {
			total += *trial.Enrollment
			s.KnownEnrollment++
		}
	}

	s.UniqueSponsors = len(sponsors)
	s.PhasesCovered = len(phases)
	if s.KnownEnrollment > 0 {
		s.AvgEnrollment = total / s.KnownEnrollment
	}

	return s
}

// ParseField validates a field name given by the user.
func ParseField(name string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Fields {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown field %q", name)
}

// CountBy counts trials per value of the field, skipping unknown values. The result is sorted
// by count descending, then by value.
func CountBy(t *trials.Trials, field Field) []Count {
	get := accessor(field)
	if get == nil || t == nil {
		return []Count{}
	}

	counts := map[string]int{}
	for _, trial := range t.Items {
		if v := get(trial); v != "" {
			counts[v]++
		}
	}

	out := make([]Count, 0, len(counts))
	for v, n := range counts {
		out = append(out, Count{Value: v, Count: n})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})

	return out
}

// Top returns at most n first counts.
func Top(counts []Count, n int) []Count {
	if n <= 0 || n >= len(counts) {
		return counts
	}
	return counts[:n]
}

func accessor(field Field) func(*trials.Trial) string {
	switch field {
	case FieldPhase:
		return func(t *trials.Trial) string { return t.Phase }
	case FieldStatus:
		return func(t *trials.Trial) string { return t.Status }
	case FieldSponsor:
		return func(t *trials.Trial) string { return t.Sponsor }
	case FieldCountry:
		return func(t *trials.Trial) string { return t.Country }
	default:
		return nil
	}
}
