// Package report renders trial sets and match results for the terminal and as an HTML page.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spigell/trialscope/internal/analytics"
	"github.com/spigell/trialscope/internal/eligibility"
	"github.com/spigell/trialscope/internal/trials"
	"github.com/spigell/trialscope/internal/utils"
)

// Disclaimer is shown together with every eligibility result.
const Disclaimer = "For research and educational use only. Scores come from keyword matching " +
	"over registry text and are not medical advice. Confirm eligibility with the study team."

const (
	DefaultBarWidth = 40
	barRune         = "█"
	titleWidth      = 60
	criteriaWidth   = 2000
	unknown         = "-"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return unknown
	}
	return s
}

// cell flattens free text into one table cell so embedded newlines and tabs cannot break the
// column layout.
func cell(s string, width int) string {
	return orUnknown(utils.Truncate(utils.OneLine(s), width))
}

func enrollmentText(n *int) string {
	if n == nil {
		return unknown
	}
	return strconv.Itoa(*n)
}

func WriteSummary(w io.Writer, s analytics.Summary) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "Total trials\t%d\n", s.Total)
	fmt.Fprintf(tw, "Avg enrollment\t%d\t(%d with known enrollment)\n", s.AvgEnrollment, s.KnownEnrollment)
	fmt.Fprintf(tw, "Unique sponsors\t%d\n", s.UniqueSponsors)
	fmt.Fprintf(tw, "Phases covered\t%d\n", s.PhasesCovered)
	return tw.Flush()
}

// BarLength scales count against peak into at most width cells. Non-zero counts get at least one cell.
func BarLength(count, peak, width int) int {
	if count <= 0 || peak <= 0 || width <= 0 {
		return 0
	}
	n := count * width / peak
	if n == 0 {
		n = 1
	}
	return n
}

// WriteDistribution prints a horizontal bar chart of the counts.
func WriteDistribution(w io.Writer, title string, counts []analytics.Count, width int) error {
	if width <= 0 {
		width = DefaultBarWidth
	}

	tw := newTable(w)
	fmt.Fprintf(tw, "%s\n", title)
	if len(counts) == 0 {
		fmt.Fprintf(tw, "  no data\n")
		return tw.Flush()
	}

	peak := peakCount(counts)
	for _, c := range counts {
		bar := strings.Repeat(barRune, BarLength(c.Count, peak, width))
		fmt.Fprintf(tw, "  %s\t%s %d\n", cell(c.Value, titleWidth), bar, c.Count)
	}
	return tw.Flush()
}

func peakCount(counts []analytics.Count) int {
	peak := 0
	for _, c := range counts {
		if c.Count > peak {
			peak = c.Count
		}
	}
	return peak
}

// WriteTrials prints a preview table of the trials.
func WriteTrials(w io.Writer, items []*trials.Trial) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "NCT ID\tPHASE\tSTATUS\tENROLLMENT\tSPONSOR\tCOUNTRY\tTITLE")
	for _, t := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID,
			cell(t.Phase, titleWidth),
			cell(t.Status, titleWidth),
			enrollmentText(t.Enrollment),
			cell(t.Sponsor, 30),
			cell(t.Country, titleWidth),
			cell(t.Title, titleWidth),
		)
	}
	return tw.Flush()
}

// WriteMatches prints scored trials in the given order.
func WriteMatches(w io.Writer, items []*eligibility.Assessment) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "NCT ID\tSCORE\tLABEL\tREASONS\tPHASE\tTITLE")
	for _, a := range items {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n",
			a.Trial.ID,
			a.Score,
			a.Label,
			cell(a.ReasonsText(), titleWidth),
			cell(a.Trial.Phase, titleWidth),
			cell(a.Trial.Title, titleWidth),
		)
	}
	return tw.Flush()
}

// WriteLabelCounts prints the number of trials per label, best label first.
func WriteLabelCounts(w io.Writer, counts map[eligibility.Label]int) error {
	tw := newTable(w)
	for _, l := range eligibility.Labels {
		fmt.Fprintf(tw, "%s\t%d\n", l, counts[l])
	}
	return tw.Flush()
}

// WriteCriteria prints the eligibility text of one trial.
func WriteCriteria(w io.Writer, t *trials.Trial) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Criteria of %s %s\n\n", t.ID, t.Title)
	fmt.Fprintf(&b, "Inclusion:\n%s\n\n", orUnknown(utils.Truncate(t.Inclusion, criteriaWidth)))
	if t.HasExclusion {
		fmt.Fprintf(&b, "Exclusion:\n%s\n", orUnknown(utils.Truncate(t.Exclusion, criteriaWidth)))
	} else {
		fmt.Fprintf(&b, "Exclusion:\n%s\n", "no exclusion criteria section")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func WriteDisclaimer(w io.Writer) error {
	_, err := fmt.Fprintf(w, "NOTE: %s\n\n", Disclaimer)
	return err
}
