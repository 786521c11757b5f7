package cmd

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/trialscope/internal/eligibility"
	"github.com/spigell/trialscope/internal/registry"
	"github.com/spigell/trialscope/internal/report"
)

const registryFixture = `{
  "totalCount": 4,
  "studies": [
    {"protocolSection": {
      "identificationModule": {"nctId": "NCT00000001", "briefTitle": "Metformin for adults aged 45 and over"},
      "statusModule": {"overallStatus": "RECRUITING"},
      "sponsorCollaboratorsModule": {"leadSponsor": {"name": "Acme Pharma"}},
      "designModule": {"phases": ["PHASE3"], "enrollmentInfo": {"count": 300}},
      "eligibilityModule": {"eligibilityCriteria": "Inclusion Criteria:\n* type 2 diabetes\n* age 45 to 70\nExclusion Criteria:\n* pregnant"},
      "contactsLocationsModule": {"locations": [{"country": "United States"}]}
    }},
    {"protocolSection": {
      "identificationModule": {"nctId": "NCT00000002", "briefTitle": "Diet study"},
      "statusModule": {"overallStatus": "COMPLETED"},
      "sponsorCollaboratorsModule": {"leadSponsor": {"name": "Beta University"}},
      "designModule": {"phases": ["PHASE2"], "enrollmentInfo": {"count": 40}},
      "eligibilityModule": {"eligibilityCriteria": "Adults with diabetes"},
      "contactsLocationsModule": {"locations": [{"country": "Canada"}]}
    }},
    {"protocolSection": {
      "identificationModule": {"nctId": "NCT00000003", "briefTitle": "Kidney outcomes"},
      "statusModule": {"overallStatus": "RECRUITING"},
      "eligibilityModule": {"eligibilityCriteria": "Inclusion Criteria: obesity Exclusion Criteria: renal failure"}
    }},
    {"protocolSection": {"statusModule": {"overallStatus": "RECRUITING"}}}
  ]
}`

type fakeRegistry struct {
	*httptest.Server
	hits atomic.Int32
}

func newFakeRegistry(t *testing.T, status int, body string) *fakeRegistry {
	t.Helper()

	f := &fakeRegistry{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(f.Close)
	return f
}

func testConfig(t *testing.T, url string) *Config {
	t.Helper()

	v := viper.New()
	setDefaults(v)

	config, err := decodeConfig(v)
	require.NoError(t, err)

	config.Registry.URL = url
	config.Registry.RateLimit = -1
	return config
}

func intPtr(n int) *int { return &n }

func TestSearchRendersDashboardAndFiles(t *testing.T) {
	srv := newFakeRegistry(t, http.StatusOK, registryFixture)
	config := testConfig(t, srv.URL)

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "trials.csv")
	htmlPath := filepath.Join(dir, "trials.html")

	var out bytes.Buffer
	err := search(context.Background(), config, zap.NewNop(), &out, "diabetes", outputOptions{Export: csvPath, HTML: htmlPath})
	require.NoError(t, err)
	assert.EqualValues(t, 1, srv.hits.Load())

	text := out.String()
	assert.Contains(t, text, "== Summary ==")
	assert.Contains(t, text, "Trials by phase")
	assert.Contains(t, text, "Top sponsors")
	assert.Contains(t, text, "First 3 of 3 trials")
	for _, id := range []string{"NCT00000001", "NCT00000002", "NCT00000003"} {
		assert.Contains(t, text, id)
	}
	assert.NotContains(t, text, report.Disclaimer)

	raw, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewReader(raw)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "nct_id", records[0][0])

	page, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	assert.Contains(t, string(page), "NCT00000001")
}

func TestSearchAppliesConfiguredFilters(t *testing.T) {
	srv := newFakeRegistry(t, http.StatusOK, registryFixture)
	config := testConfig(t, srv.URL)
	config.Filters.Status = "recruiting"
	config.Filters.MinEnrollment = intPtr(100)

	var out bytes.Buffer
	require.NoError(t, search(context.Background(), config, zap.NewNop(), &out, "diabetes", outputOptions{}))

	text := out.String()
	assert.Contains(t, text, "First 1 of 1 trials")
	assert.Contains(t, text, "NCT00000001")
	assert.NotContains(t, text, "NCT00000002")
	assert.NotContains(t, text, "NCT00000003")
}

func TestSessionServesRepeatedSearchFromMemo(t *testing.T) {
	srv := newFakeRegistry(t, http.StatusOK, registryFixture)
	config := testConfig(t, srv.URL)

	s := newSession("search", config, zap.NewNop(), &bytes.Buffer{})

	_, first, err := s.load(context.Background(), "diabetes", config.Filters)
	require.NoError(t, err)
	_, again, err := s.load(context.Background(), "diabetes", config.Filters)
	require.NoError(t, err)

	assert.EqualValues(t, 1, srv.hits.Load())
	assert.Equal(t, first.IDs(), again.IDs())

	_, _, err = s.load(context.Background(), "asthma", config.Filters)
	require.NoError(t, err)
	assert.EqualValues(t, 2, srv.hits.Load())
}

func TestSessionLogsCarryRunFields(t *testing.T) {
	srv := newFakeRegistry(t, http.StatusOK, registryFixture)
	config := testConfig(t, srv.URL)

	core, logs := observer.New(zapcore.InfoLevel)
	s := newSession("match", config, zap.New(core), &bytes.Buffer{})

	_, _, err := s.load(context.Background(), "diabetes", config.Filters)
	require.NoError(t, err)
	_, _, err = s.load(context.Background(), "asthma", config.Filters)
	require.NoError(t, err)

	started := logs.FilterMessage("starting the search").All()
	require.Len(t, started, 2)

	for i, term := range []string{"diabetes", "asthma"} {
		ctx := started[i].ContextMap()
		assert.Equal(t, "match", ctx["command"])
		assert.Equal(t, s.runID, ctx["run_id"])
		assert.Equal(t, term, ctx["term"])
	}

	assert.Equal(t, 2, logs.FilterMessage("no filters given, keeping every trial").Len())
}

func TestSearchSkipsConfiguredFilters(t *testing.T) {
	srv := newFakeRegistry(t, http.StatusOK, registryFixture)
	config := testConfig(t, srv.URL)
	config.Filters.Status = "COMPLETED"
	config.Filters.Skip = []string{"status"}

	var out bytes.Buffer
	require.NoError(t, search(context.Background(), config, zap.NewNop(), &out, "diabetes", outputOptions{}))
	assert.Contains(t, out.String(), "First 3 of 3 trials")

	config.Filters.Skip = []string{"title"}
	err := search(context.Background(), config, zap.NewNop(), &out, "diabetes", outputOptions{})
	require.Error(t, err)
	assert.EqualValues(t, 1, srv.hits.Load())
}

func TestSearchReportBy(t *testing.T) {
	srv := newFakeRegistry(t, http.StatusOK, registryFixture)
	config := testConfig(t, srv.URL)

	var out bytes.Buffer
	require.NoError(t, search(context.Background(), config, zap.NewNop(), &out, "diabetes", outputOptions{ReportBy: []string{"Sponsor"}}))
	assert.Contains(t, out.String(), "Trials by sponsor")

	err := search(context.Background(), config, zap.NewNop(), &out, "diabetes", outputOptions{ReportBy: []string{"title"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report-by")
	assert.EqualValues(t, 1, srv.hits.Load())
}

func TestSearchEmptyTermMakesNoRequest(t *testing.T) {
	srv := newFakeRegistry(t, http.StatusOK, registryFixture)
	config := testConfig(t, srv.URL)

	var out bytes.Buffer
	err := search(context.Background(), config, zap.NewNop(), &out, "", outputOptions{})
	assert.True(t, errors.Is(err, registry.ErrEmptyTerm))

	err = match(context.Background(), config, zap.NewNop(), &out, "", matchOptions{AgeSet: true})
	assert.True(t, errors.Is(err, registry.ErrEmptyTerm))

	assert.Zero(t, srv.hits.Load())
	assert.Empty(t, out.String())
}

func TestSearchInvalidFiltersFailBeforeFetch(t *testing.T) {
	srv := newFakeRegistry(t, http.StatusOK, registryFixture)
	config := testConfig(t, srv.URL)
	config.Filters.MinEnrollment = intPtr(10)
	config.Filters.MaxEnrollment = intPtr(5)

	var out bytes.Buffer
	err := search(context.Background(), config, zap.NewNop(), &out, "diabetes", outputOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filters")
	assert.Zero(t, srv.hits.Load())
}

func TestSearchRegistryFailureMeansNoTrials(t *testing.T) {
	srv := newFakeRegistry(t, http.StatusInternalServerError, "")
	config := testConfig(t, srv.URL)

	var out bytes.Buffer
	require.NoError(t, search(context.Background(), config, zap.NewNop(), &out, "diabetes", outputOptions{}))
	assert.Equal(t, "No trials found.\n", out.String())
}

func TestMatchRanksTrials(t *testing.T) {
	srv := newFakeRegistry(t, http.StatusOK, registryFixture)
	config := testConfig(t, srv.URL)
	config.Profile = &eligibility.Profile{Age: 45, Diagnosis: "diabetes", RenalDisease: true}

	exportPath := filepath.Join(t.TempDir(), "matches.csv")

	var out bytes.Buffer
	err := match(context.Background(), config, zap.NewNop(), &out, "diabetes", matchOptions{
		outputOptions: outputOptions{Export: exportPath},
		AgeSet:        true,
	})
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, report.Disclaimer)
	assert.Contains(t, text, "Top 3 of 3 matches")
	assert.Contains(t, text, "Criteria of NCT00000001")

	first := strings.Index(text, "NCT00000001")
	second := strings.Index(text, "NCT00000002")
	third := strings.Index(text, "NCT00000003")
	assert.Less(t, first, second)
	assert.Less(t, second, third)
	assert.Contains(t, text, eligibility.ReasonRenal)

	raw, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewReader(raw)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)

	// diagnosis +3, age +1
	assert.Equal(t, []string{"NCT00000001", "4", string(eligibility.LikelyEligible), ""}, []string{records[1][0], records[1][9], records[1][10], records[1][11]})
	// diagnosis +3, no exclusion section
	assert.Equal(t, []string{"NCT00000002", "3", string(eligibility.LikelyEligible), ""}, []string{records[2][0], records[2][9], records[2][10], records[2][11]})
	// renal exclusion -4
	assert.Equal(t, []string{"NCT00000003", "-4", string(eligibility.NotEligible), eligibility.ReasonRenal}, []string{records[3][0], records[3][9], records[3][10], records[3][11]})
}

func TestMatchRequiresAge(t *testing.T) {
	srv := newFakeRegistry(t, http.StatusOK, registryFixture)
	config := testConfig(t, srv.URL)

	var out bytes.Buffer
	err := match(context.Background(), config, zap.NewNop(), &out, "diabetes", matchOptions{})
	assert.ErrorIs(t, err, errAgeRequired)
	assert.Zero(t, srv.hits.Load())
}

func TestMatchProfileFile(t *testing.T) {
	srv := newFakeRegistry(t, http.StatusOK, registryFixture)
	config := testConfig(t, srv.URL)

	path := filepath.Join(t.TempDir(), "patient.yaml")
	require.NoError(t, os.WriteFile(path, []byte("age: 30\ndiagnosis: obesity\n"), 0o600))

	var out bytes.Buffer
	err := match(context.Background(), config, zap.NewNop(), &out, "diabetes", matchOptions{ProfileFile: path})
	require.NoError(t, err)

	text := out.String()
	assert.Less(t, strings.Index(text, "NCT00000003"), strings.Index(text, "NCT00000001"))
}

func TestResolveProfileValidatesAge(t *testing.T) {
	_, err := resolveProfile(matchOptions{AgeSet: true}, &eligibility.Profile{Age: 130})
	assert.Error(t, err)

	p, err := resolveProfile(matchOptions{AgeSet: true}, &eligibility.Profile{Age: 0})
	require.NoError(t, err)
	assert.Zero(t, p.Age)
}

func TestDecodeConfig(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
registry:
  timeout: 10s
  cache:
    enabled: false
filters:
  country: germany
  enrollment-min: 50
profile:
  age: 61
  renal-disease: true
report:
  top: 5
`)))

	config, err := decodeConfig(v)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, config.Registry.Timeout)
	assert.Equal(t, 200, config.Registry.PageSize)
	assert.False(t, config.Registry.Cache.Enabled)
	assert.Equal(t, time.Hour, config.Registry.Cache.TTL)

	assert.Equal(t, "All", config.Filters.Phase)
	assert.Equal(t, "germany", config.Filters.Country)
	require.NotNil(t, config.Filters.MinEnrollment)
	assert.Equal(t, 50, *config.Filters.MinEnrollment)
	assert.Nil(t, config.Filters.MaxEnrollment)

	assert.Equal(t, 61, config.Profile.Age)
	assert.True(t, config.Profile.RenalDisease)

	assert.Equal(t, 5, config.Report.Top)
	assert.Equal(t, 40, config.Report.BarWidth)
}

func TestValidators(t *testing.T) {
	assert.NoError(t, validateTerm(" asthma "))
	assert.Error(t, validateTerm("   "))

	assert.NoError(t, validateAge("45"))
	assert.Error(t, validateAge("121"))
	assert.Error(t, validateAge("forty"))

	n, err := parseOptionalCount(" 12 ")
	require.NoError(t, err)
	assert.Equal(t, 12, *n)

	n, err = parseOptionalCount("")
	require.NoError(t, err)
	assert.Nil(t, n)

	assert.Error(t, validateOptionalCount("-1"))
	assert.Equal(t, "", countText(nil))
	assert.Equal(t, "7", countText(intPtr(7)))
}

func TestExportFormat(t *testing.T) {
	f, err := exportFormat("out.xlsx", "")
	require.NoError(t, err)
	assert.EqualValues(t, "xlsx", f)

	f, err = exportFormat("out.txt", "csv")
	require.NoError(t, err)
	assert.EqualValues(t, "csv", f)

	_, err = exportFormat("out.txt", "")
	assert.Error(t, err)
}

func TestTermFromArgs(t *testing.T) {
	assert.Equal(t, "lung cancer", termFromArgs([]string{"lung", "cancer"}))
	assert.Empty(t, termFromArgs(nil))
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, Execute())
	assert.Equal(t, "trialscope version: unknown\n", out.String())
}
