package eligibility

import (
	"sort"
	"strconv"
	"strings"

	"github.com/spigell/trialscope/internal/textmatch"
	"github.com/spigell/trialscope/internal/trials"
)

type Label string

const (
	LikelyEligible   Label = "Likely Eligible"
	PossiblyEligible Label = "Possibly Eligible"
	NotEligible      Label = "Not Eligible"
)

// Labels lists every label from best to worst.
var Labels = []Label{LikelyEligible, PossiblyEligible, NotEligible}

const (
	diagnosisWeight = 3
	ageWeight       = 1
	pregnancyWeight = -5
	renalWeight     = -4
	cancerWeight    = -4

	likelyThreshold   = 3
	possiblyThreshold = 1
)

const (
	ReasonPregnancy = "Pregnancy exclusion"
	ReasonRenal     = "Renal exclusion"
	ReasonCancer    = "Cancer exclusion"
)

var (
	pregnancyKeywords = []string{"pregnant"}
	renalKeywords     = []string{"renal", "kidney"}
	cancerKeywords    = []string{"cancer", "malignancy"}
)

// Assessment is the score of one trial for one profile.
type Assessment struct {
	Trial   *trials.Trial
	Score   int
	Label   Label
	Reasons []string
}

// Evaluate scores a single trial. It is a keyword heuristic over the eligibility text and
// reads nothing but its arguments. The diagnosis is trimmed and compared with Unicode case
// folding, so " Diabetes " matches "diabetes" and "STRASSE" matches "straße".
func Evaluate(trial *trials.Trial, p *Profile) *Assessment {
	a := &Assessment{Trial: trial, Reasons: []string{}}
	if trial == nil || p == nil {
		a.Label = Classify(0)
		return a
	}

	if d := p.diagnosis(); d != "" && textmatch.Contains(trial.Inclusion, d) {
		a.Score += diagnosisWeight
	}

	if AgeMentioned(trial.Inclusion, p.Age) {
		a.Score += ageWeight
	}

	if trial.HasExclusion {
		if p.Pregnant && textmatch.ContainsAny(trial.Exclusion, pregnancyKeywords...) {
			a.Score += pregnancyWeight
			a.Reasons = append(a.Reasons, ReasonPregnancy)
		}
		if p.RenalDisease && textmatch.ContainsAny(trial.Exclusion, renalKeywords...) {
			a.Score += renalWeight
			a.Reasons = append(a.Reasons, ReasonRenal)
		}
		if p.CancerHistory && textmatch.ContainsAny(trial.Exclusion, cancerKeywords...) {
			a.Score += cancerWeight
			a.Reasons = append(a.Reasons, ReasonCancer)
		}
	}

	a.Label = Classify(a.Score)
	return a
}

// AgeMentioned reports whether the decimal age occurs anywhere in the text. It matches digit
// sequences, not age ranges: age 5 matches "15 mg" and age 0 matches any zero.
func AgeMentioned(text string, age int) bool {
	if text == "" {
		return false
	}
	return strings.Contains(text, strconv.Itoa(age))
}

func Classify(score int) Label {
	switch {
	case score >= likelyThreshold:
		return LikelyEligible
	case score >= possiblyThreshold:
		return PossiblyEligible
	default:
		return NotEligible
	}
}

// Rank scores every trial and sorts by descending score. Equal scores keep the input order.
func Rank(t *trials.Trials, p *Profile) *Results {
	items := make([]*Assessment, 0, t.Len())
	if t != nil {
		for _, trial := range t.Items {
			items = append(items, Evaluate(trial, p))
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})

	return &Results{Items: items}
}
