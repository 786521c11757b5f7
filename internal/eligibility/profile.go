package eligibility

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	MinAge = 0
	MaxAge = 120
)

// Profile describes the patient a trial list is scored against.
type Profile struct {
	Age           int    `mapstructure:"age" yaml:"age"`
	Diagnosis     string `mapstructure:"diagnosis" yaml:"diagnosis"`
	Pregnant      bool   `mapstructure:"pregnant" yaml:"pregnant"`
	RenalDisease  bool   `mapstructure:"renal-disease" yaml:"renal-disease"`
	CancerHistory bool   `mapstructure:"cancer-history" yaml:"cancer-history"`
}

func (p *Profile) Validate() error {
	if p == nil {
		return fmt.Errorf("profile is required")
	}
	if p.Age < MinAge || p.Age > MaxAge {
		return fmt.Errorf("age must be between %d and %d, got %d", MinAge, MaxAge, p.Age)
	}
	return nil
}

// diagnosis returns the trimmed diagnosis. Whitespace-only input counts as no diagnosis.
func (p *Profile) diagnosis() string {
	return strings.TrimSpace(p.Diagnosis)
}

// LoadProfile reads a YAML profile file. Unknown keys are rejected.
func LoadProfile(path string) (*Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	profile := &Profile{}
	if err := dec.Decode(profile); err != nil {
		return nil, fmt.Errorf("decode profile file %s: %w", path, err)
	}

	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return profile, nil
}
