package trials

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/spigell/trialscope/internal/registry"
)

// ExclusionMarker separates inclusion from exclusion criteria in the registry's combined text.
const ExclusionMarker = "Exclusion Criteria:"

const phaseSeparator = ", "

// Normalize maps a raw study into a Trial. It reports false when the study has no id.
func Normalize(study *registry.Study) (*Trial, bool) {
	id := strings.TrimSpace(study.NCTID())
	if id == "" {
		return nil, false
	}

	inclusion, exclusion, found := SplitEligibility(study.EligibilityCriteria())

	return &Trial{
		ID:           id,
		Title:        strings.TrimSpace(study.BriefTitle()),
		Phase:        JoinPhases(study.Phases()),
		Sponsor:      strings.TrimSpace(study.LeadSponsor()),
		Status:       strings.TrimSpace(study.OverallStatus()),
		Enrollment:   CoerceEnrollment(study.EnrollmentCount()),
		Country:      strings.TrimSpace(study.FirstCountry()),
		Inclusion:    inclusion,
		Exclusion:    exclusion,
		HasExclusion: found,
	}, true
}

// FromStudies normalizes studies in order, dropping the ones without an id.
func FromStudies(studies []*registry.Study) *Trials {
	items := make([]*Trial, 0, len(studies))
	for _, study := range studies {
		if trial, ok := Normalize(study); ok {
			items = append(items, trial)
		}
	}
	return &Trials{Items: items}
}

// SplitEligibility splits on the first ExclusionMarker. Without a marker the whole text is
// inclusion text and found is false.
func SplitEligibility(text string) (inclusion, exclusion string, found bool) {
	before, after, found := strings.Cut(text, ExclusionMarker)
	if !found {
		return text, "", false
	}
	return before, after, true
}

// JoinPhases renders the phase list as one string. A study may list several phases.
func JoinPhases(phases []string) string {
	cleaned := make([]string, 0, len(phases))
	for _, phase := range phases {
		if p := NormalizeToken(phase); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return strings.Join(cleaned, phaseSeparator)
}

// CoerceEnrollment turns the raw count into a non-negative integer. Anything else, including
// absent values, yields nil rather than zero.
func CoerceEnrollment(v any) *int {
	var f float64

	switch val := v.(type) {
	case nil:
		return nil
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case float64:
		f = val
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > math.MaxInt32 {
		return nil
	}

	n := int(f)
	return &n
}
