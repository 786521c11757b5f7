package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/spigell/trialscope/internal/eligibility"
	"github.com/spigell/trialscope/internal/trials"
)

var (
	trialHeader = []string{"nct_id", "title", "phase", "sponsor", "status", "enrollment", "country", "inclusion", "exclusion"}
	matchHeader = append(append([]string{}, trialHeader...), "score", "label", "reasons")
)

func intPtr(n int) *int { return &n }

func fixture() *trials.Trials {
	return trials.New(
		&trials.Trial{
			ID: "NCT1", Title: "Metformin, \"new\" dosing", Phase: "PHASE2, PHASE3", Sponsor: "Acme",
			Status: "RECRUITING", Enrollment: intPtr(120), Country: "France",
			Inclusion: "diabetes\nage 45 ", Exclusion: " pregnant", HasExclusion: true,
		},
		&trials.Trial{ID: "NCT2"},
	)
}

func readCSV(t *testing.T, raw []byte) [][]string {
	t.Helper()

	records, err := csv.NewReader(bytes.NewReader(raw)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestTrialsCSV(t *testing.T) {
	write, err := Trials(FormatCSV, fixture())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, write(&buf))

	records := readCSV(t, buf.Bytes())
	require.Len(t, records, 3)
	assert.Equal(t, trialHeader, records[0])
	assert.Equal(t, []string{"NCT1", "Metformin, \"new\" dosing", "PHASE2, PHASE3", "Acme", "RECRUITING", "120", "France", "diabetes\nage 45", "pregnant"}, records[1])
	assert.Equal(t, []string{"NCT2", "", "", "", "", "", "", "", ""}, records[2])
}

func TestTrialsCSVEmptyHasHeader(t *testing.T) {
	write, err := Trials(FormatCSV, trials.New())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, write(&buf))

	records := readCSV(t, buf.Bytes())
	require.Len(t, records, 1)
	assert.Equal(t, trialHeader, records[0])
}

func TestMatchesCSV(t *testing.T) {
	results := eligibility.Rank(fixture(), &eligibility.Profile{Age: 45, Diagnosis: "diabetes", Pregnant: true})

	write, err := Matches(FormatCSV, results)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, write(&buf))

	records := readCSV(t, buf.Bytes())
	require.Len(t, records, 3)
	assert.Equal(t, matchHeader, records[0])

	// NCT1: +3 diagnosis +1 age -5 pregnancy
	assert.Equal(t, "NCT2", records[1][0])
	assert.Equal(t, []string{"0", string(eligibility.NotEligible), ""}, records[1][9:])
	assert.Equal(t, "NCT1", records[2][0])
	assert.Equal(t, []string{"-1", string(eligibility.NotEligible), eligibility.ReasonPregnancy}, records[2][9:])
}

func TestTrialsXLSX(t *testing.T) {
	write, err := Trials(FormatXLSX, fixture())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, write(&buf))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)

	sheet := f.Sheets[0]
	assert.Equal(t, "Trials", sheet.Name)
	require.Len(t, sheet.Rows, 3)

	header := make([]string, 0, len(sheet.Rows[0].Cells))
	for _, c := range sheet.Rows[0].Cells {
		header = append(header, c.String())
	}
	assert.Equal(t, trialHeader, header)

	assert.Equal(t, "NCT1", sheet.Rows[1].Cells[0].String())
	n, err := sheet.Rows[1].Cells[5].Int()
	require.NoError(t, err)
	assert.Equal(t, 120, n)
}

func TestMatchesXLSX(t *testing.T) {
	results := eligibility.Rank(fixture(), &eligibility.Profile{Age: 30, Diagnosis: "diabetes"})

	write, err := Matches(FormatXLSX, results)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, write(&buf))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)

	sheet := f.Sheets[0]
	assert.Equal(t, "Matches", sheet.Name)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "NCT1", sheet.Rows[1].Cells[0].String())

	score, err := sheet.Rows[1].Cells[9].Int()
	require.NoError(t, err)
	assert.Equal(t, 3, score)
	assert.Equal(t, string(eligibility.LikelyEligible), sheet.Rows[1].Cells[10].String())
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = ParseFormat("pdf")
	assert.True(t, eris.Is(err, ErrUnknownFormat))

	f, err = FormatFromPath("/tmp/out.csv")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = FormatFromPath("/tmp/out")
	assert.Error(t, err)

	_, err = Trials(Format("pdf"), fixture())
	assert.True(t, eris.Is(err, ErrUnknownFormat))
	_, err = Matches(Format("pdf"), nil)
	assert.True(t, eris.Is(err, ErrUnknownFormat))
}

func TestToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trials.csv")

	write, err := Trials(FormatCSV, fixture())
	require.NoError(t, err)
	require.NoError(t, ToFile(path, write))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, readCSV(t, raw), 3)

	err = ToFile(filepath.Join(t.TempDir(), "missing", "dir", "x.csv"), write)
	assert.Error(t, err)
}
