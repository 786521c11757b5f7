// Package export writes trial sets and match results as CSV or XLSX.
package export

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/spigell/trialscope/internal/eligibility"
	"github.com/spigell/trialscope/internal/trials"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var ErrUnknownFormat = eris.New("unknown export format")

// WriteFunc writes one export document.
type WriteFunc func(w io.Writer) error

type trialRow struct {
	ID         string `csv:"nct_id"`
	Title      string `csv:"title"`
	Phase      string `csv:"phase"`
	Sponsor    string `csv:"sponsor"`
	Status     string `csv:"status"`
	Enrollment *int   `csv:"enrollment"`
	Country    string `csv:"country"`
	Inclusion  string `csv:"inclusion"`
	Exclusion  string `csv:"exclusion"`
}

type matchRow struct {
	ID         string `csv:"nct_id"`
	Title      string `csv:"title"`
	Phase      string `csv:"phase"`
	Sponsor    string `csv:"sponsor"`
	Status     string `csv:"status"`
	Enrollment *int   `csv:"enrollment"`
	Country    string `csv:"country"`
	Inclusion  string `csv:"inclusion"`
	Exclusion  string `csv:"exclusion"`
	Score      int    `csv:"score"`
	Label      string `csv:"label"`
	Reasons    string `csv:"reasons"`
}

func newTrialRow(t *trials.Trial) trialRow {
	return trialRow{
		ID:         t.ID,
		Title:      t.Title,
		Phase:      t.Phase,
		Sponsor:    t.Sponsor,
		Status:     t.Status,
		Enrollment: t.Enrollment,
		Country:    t.Country,
		Inclusion:  strings.TrimSpace(t.Inclusion),
		Exclusion:  strings.TrimSpace(t.Exclusion),
	}
}

func trialRows(t *trials.Trials) []trialRow {
	rows := make([]trialRow, 0, t.Len())
	if t == nil {
		return rows
	}
	for _, trial := range t.Items {
		rows = append(rows, newTrialRow(trial))
	}
	return rows
}

func matchRows(r *eligibility.Results) []matchRow {
	rows := make([]matchRow, 0, r.Len())
	if r == nil {
		return rows
	}
	for _, a := range r.Items {
		t := newTrialRow(a.Trial)
		rows = append(rows, matchRow{
			ID:         t.ID,
			Title:      t.Title,
			Phase:      t.Phase,
			Sponsor:    t.Sponsor,
			Status:     t.Status,
			Enrollment: t.Enrollment,
			Country:    t.Country,
			Inclusion:  t.Inclusion,
			Exclusion:  t.Exclusion,
			Score:      a.Score,
			Label:      string(a.Label),
			Reasons:    a.ReasonsText(),
		})
	}
	return rows
}

// ParseFormat accepts a format name, case-insensitive.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatCSV, FormatXLSX:
		return f, nil
	default:
		return "", eris.Wrapf(ErrUnknownFormat, "%q", name)
	}
}

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Trials returns the writer of the trial set in the given format.
func Trials(format Format, t *trials.Trials) (WriteFunc, error) {
	rows := trialRows(t)
	switch format {
	case FormatCSV:
		return func(w io.Writer) error { return writeCSV(w, trialRow{}, rows) }, nil
	case FormatXLSX:
		return func(w io.Writer) error { return writeXLSX(w, "Trials", trialRow{}, rows) }, nil
	default:
		return nil, eris.Wrapf(ErrUnknownFormat, "%q", format)
	}
}

// Matches returns the writer of scored results in the given format, in ranking order.
func Matches(format Format, r *eligibility.Results) (WriteFunc, error) {
	rows := matchRows(r)
	switch format {
	case FormatCSV:
		return func(w io.Writer) error { return writeCSV(w, matchRow{}, rows) }, nil
	case FormatXLSX:
		return func(w io.Writer) error { return writeXLSX(w, "Matches", matchRow{}, rows) }, nil
	default:
		return nil, eris.Wrapf(ErrUnknownFormat, "%q", format)
	}
}

// ToFile creates or truncates path and writes the document into it.
func ToFile(path string, write WriteFunc) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create export file %s", path)
	}

	if err := write(f); err != nil {
		f.Close()
		return eris.Wrapf(err, "write export file %s", path)
	}

	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "close export file %s", path)
	}
	return nil
}
