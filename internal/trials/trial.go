package trials

import (
	"encoding/json"
	"os"
)

// Trial is one normalized registry entry. Empty text fields mean the registry did not provide
// the value; Enrollment is nil when the count was absent or not numeric.
type Trial struct {
	ID         string `json:"nct_id"`
	Title      string `json:"title,omitempty"`
	Phase      string `json:"phase,omitempty"`
	Sponsor    string `json:"sponsor,omitempty"`
	Status     string `json:"status,omitempty"`
	Enrollment *int   `json:"enrollment,omitempty"`
	Country    string `json:"country,omitempty"`
	Inclusion  string `json:"inclusion,omitempty"`
	Exclusion  string `json:"exclusion,omitempty"`
	// HasExclusion is false when the eligibility text carried no exclusion marker. In that case
	// the whole text is in Inclusion and no exclusion rule can apply.
	HasExclusion bool `json:"has_exclusion"`
}

type Trials struct {
	Items []*Trial
}

func New(items ...*Trial) *Trials {
	return &Trials{Items: items}
}

func (t *Trials) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Items)
}

func (t *Trials) FindByID(id string) *Trial {
	if t == nil {
		return nil
	}

	for _, trial := range t.Items {
		if trial.ID == id {
			return trial
		}
	}
	return nil
}

func (t *Trials) IDs() []string {
	ids := make([]string, 0, t.Len())
	if t == nil {
		return ids
	}

	for _, trial := range t.Items {
		ids = append(ids, trial.ID)
	}
	return ids
}

// Select returns a new collection with the trials keep accepts, in their original order.
// The receiver is never modified.
func (t *Trials) Select(keep func(*Trial) bool) *Trials {
	selected := make([]*Trial, 0, t.Len())
	if t == nil {
		return &Trials{Items: selected}
	}

	for _, trial := range t.Items {
		if keep(trial) {
			selected = append(selected, trial)
		}
	}

	return &Trials{Items: selected}
}

// Head returns at most n first trials.
func (t *Trials) Head(n int) []*Trial {
	if t == nil || n <= 0 {
		return nil
	}
	if n > len(t.Items) {
		n = len(t.Items)
	}
	return t.Items[:n]
}

func (t *Trials) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "trials_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t); err != nil {
		return "", err
	}
	return file.Name(), nil
}
