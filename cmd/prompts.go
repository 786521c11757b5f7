package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"

	"github.com/spigell/trialscope/internal/eligibility"
	"github.com/spigell/trialscope/internal/filtering"
	"github.com/spigell/trialscope/internal/trials"
)

const (
	PromptYes  = "Yes"
	PromptNo   = "No"
	PromptBack = "back"
)

func selectOne(label string, items []string) (string, error) {
	prompt := promptui.Select{
		Label: label,
		Items: items,
		Size:  len(items),
	}

	_, selected, err := prompt.Run()
	return selected, err
}

func ask(label, def string, validate promptui.ValidateFunc) (string, error) {
	prompt := promptui.Prompt{
		Label:     label,
		Default:   def,
		AllowEdit: true,
		Validate:  validate,
	}
	return prompt.Run()
}

func askYesNo(label string, def bool) (bool, error) {
	items := []string{PromptNo, PromptYes}
	if def {
		items = []string{PromptYes, PromptNo}
	}

	answer, err := selectOne(label, items)
	return answer == PromptYes, err
}

func validateTerm(input string) error {
	if strings.TrimSpace(input) == "" {
		return errors.New("enter a search term")
	}
	return nil
}

func validateAge(input string) error {
	age, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return errors.New("age must be a whole number")
	}
	if age < eligibility.MinAge || age > eligibility.MaxAge {
		return fmt.Errorf("age must be between %d and %d", eligibility.MinAge, eligibility.MaxAge)
	}
	return nil
}

// validateOptionalCount accepts an empty string or a non-negative integer.
func validateOptionalCount(input string) error {
	_, err := parseOptionalCount(input)
	return err
}

func parseOptionalCount(input string) (*int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}

	n, err := strconv.Atoi(input)
	if err != nil || n < 0 {
		return nil, errors.New("enter a non-negative whole number or leave empty")
	}
	return &n, nil
}

func countText(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

// promptTerm blocks until a non-blank term is entered.
func promptTerm() (string, error) {
	term, err := ask("Search term (condition, drug or keyword)", "", validateTerm)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(term), nil
}

// promptCriteria asks for every filter, offering the current values as defaults.
func promptCriteria(current *filtering.Criteria) (*filtering.Criteria, error) {
	c := *current
	// every answer is explicit, so nothing stays skipped
	c.Skip = nil

	phase, err := selectOne("Phase", append([]string{trials.All}, trials.Phases...))
	if err != nil {
		return nil, err
	}
	c.Phase = phase

	status, err := selectOne("Recruitment status", append([]string{trials.All}, trials.Statuses...))
	if err != nil {
		return nil, err
	}
	c.Status = status

	if c.Country, err = ask("Country contains (empty for any)", current.Country, nil); err != nil {
		return nil, err
	}
	if c.Sponsor, err = ask("Sponsor contains (empty for any)", current.Sponsor, nil); err != nil {
		return nil, err
	}

	minText, err := ask("Minimum enrollment (empty for none)", countText(current.MinEnrollment), validateOptionalCount)
	if err != nil {
		return nil, err
	}
	maxText, err := ask("Maximum enrollment (empty for none)", countText(current.MaxEnrollment), validateOptionalCount)
	if err != nil {
		return nil, err
	}

	// both already passed validation
	c.MinEnrollment, _ = parseOptionalCount(minText)
	c.MaxEnrollment, _ = parseOptionalCount(maxText)

	return &c, nil
}

// promptProfile asks for the patient profile, offering the current values as defaults.
func promptProfile(current *eligibility.Profile) (*eligibility.Profile, error) {
	p := *current

	ageText, err := ask("Patient age", strconv.Itoa(current.Age), validateAge)
	if err != nil {
		return nil, err
	}
	p.Age, _ = strconv.Atoi(strings.TrimSpace(ageText))

	if p.Diagnosis, err = ask("Diagnosis (free text)", current.Diagnosis, nil); err != nil {
		return nil, err
	}
	if p.Pregnant, err = askYesNo("Pregnant?", current.Pregnant); err != nil {
		return nil, err
	}
	if p.RenalDisease, err = askYesNo("Renal disease?", current.RenalDisease); err != nil {
		return nil, err
	}
	if p.CancerHistory, err = askYesNo("History of cancer?", current.CancerHistory); err != nil {
		return nil, err
	}

	return &p, nil
}
