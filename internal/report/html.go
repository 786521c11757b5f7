package report

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/a-h/templ"

	"github.com/spigell/trialscope/internal/analytics"
	"github.com/spigell/trialscope/internal/eligibility"
	"github.com/spigell/trialscope/internal/trials"
	"github.com/spigell/trialscope/internal/utils"
)

// Distribution is one titled bar chart.
type Distribution struct {
	Title  string
	Counts []analytics.Count
}

// DashboardData is everything the HTML page shows. Matches and LabelCounts are optional.
type DashboardData struct {
	Term          string
	GeneratedAt   time.Time
	Summary       analytics.Summary
	Distributions []Distribution
	Trials        []*trials.Trial
	Matches       []*eligibility.Assessment
	LabelCounts   map[eligibility.Label]int
}

const pageStyle = `body{font-family:system-ui,sans-serif;margin:2rem;color:#1d2433}
.metrics{display:flex;gap:1rem;margin-bottom:2rem}
.metric{border:1px solid #d0d7e2;border-radius:6px;padding:.75rem 1rem;min-width:10rem}
.metric b{display:block;font-size:1.6rem}
.bar{background:#3b6fd8;height:.9rem;display:inline-block;vertical-align:middle}
table{border-collapse:collapse;width:100%;margin-bottom:2rem}
td,th{border-bottom:1px solid #e3e8ef;padding:.3rem .5rem;text-align:left;vertical-align:top}
.note{background:#fff6d6;border:1px solid #e8d48a;padding:.75rem;border-radius:6px}`

// page accumulates the first write error so components can be written without checks on
// every fragment.
type page struct {
	ctx context.Context
	w   io.Writer
	err error
}

func (p *page) raw(s string) {
	if p.err == nil {
		_, p.err = io.WriteString(p.w, s)
	}
}

func (p *page) text(s string) {
	p.raw(templ.EscapeString(s))
}

func (p *page) render(c templ.Component) {
	if p.err == nil {
		p.err = c.Render(p.ctx, p.w)
	}
}

func component(fn func(p *page)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &page{ctx: ctx, w: w}
		fn(p)
		return p.err
	})
}

// Dashboard renders the complete HTML page.
func Dashboard(data *DashboardData) templ.Component {
	return component(func(p *page) {
		p.raw("<!DOCTYPE html><html lang=\"en\"><head><meta charset=\"utf-8\"><title>")
		p.text("trialscope: " + data.Term)
		p.raw("</title><style>" + pageStyle + "</style></head><body><h1>")
		p.text(data.Term)
		p.raw("</h1>")
		if !data.GeneratedAt.IsZero() {
			p.raw("<p>Generated ")
			p.text(data.GeneratedAt.Format(time.RFC1123))
			p.raw("</p>")
		}

		p.render(metrics(data.Summary))
		for _, d := range data.Distributions {
			p.render(barChart(d))
		}

		if data.LabelCounts != nil || len(data.Matches) > 0 {
			p.raw("<p class=\"note\">")
			p.text(Disclaimer)
			p.raw("</p>")
			p.render(labelCounts(data.LabelCounts))
			p.render(matchesTable(data.Matches))
		}

		p.render(trialsTable(data.Trials))
		p.raw("</body></html>")
	})
}

func metrics(s analytics.Summary) templ.Component {
	return component(func(p *page) {
		p.raw("<div class=\"metrics\">")
		for _, m := range []struct {
			name  string
			value int
		}{
			{"Total trials", s.Total},
			{"Avg enrollment", s.AvgEnrollment},
			{"Unique sponsors", s.UniqueSponsors},
			{"Phases covered", s.PhasesCovered},
		} {
			p.raw("<div class=\"metric\"><b>")
			p.text(strconv.Itoa(m.value))
			p.raw("</b>")
			p.text(m.name)
			p.raw("</div>")
		}
		p.raw("</div>")
	})
}

func barChart(d Distribution) templ.Component {
	return component(func(p *page) {
		p.raw("<h2>")
		p.text(d.Title)
		p.raw("</h2>")
		if len(d.Counts) == 0 {
			p.raw("<p>No data</p>")
			return
		}

		peak := peakCount(d.Counts)
		p.raw("<table>")
		for _, c := range d.Counts {
			p.raw("<tr><td>")
			p.text(c.Value)
			p.raw(fmt.Sprintf("</td><td><span class=\"bar\" style=\"width:%dpx\"></span> ", BarLength(c.Count, peak, 400)))
			p.text(strconv.Itoa(c.Count))
			p.raw("</td></tr>")
		}
		p.raw("</table>")
	})
}

func labelCounts(counts map[eligibility.Label]int) templ.Component {
	return component(func(p *page) {
		p.raw("<h2>Eligibility</h2><table>")
		for _, l := range eligibility.Labels {
			p.raw("<tr><td>")
			p.text(string(l))
			p.raw("</td><td>")
			p.text(strconv.Itoa(counts[l]))
			p.raw("</td></tr>")
		}
		p.raw("</table>")
	})
}

func matchesTable(items []*eligibility.Assessment) templ.Component {
	return component(func(p *page) {
		p.raw("<h2>Top matches</h2><table><tr><th>NCT ID</th><th>Score</th><th>Label</th><th>Reasons</th><th>Title</th></tr>")
		for _, a := range items {
			p.raw("<tr><td>")
			p.text(a.Trial.ID)
			p.raw("</td><td>")
			p.text(strconv.Itoa(a.Score))
			p.raw("</td><td>")
			p.text(string(a.Label))
			p.raw("</td><td>")
			p.text(a.ReasonsText())
			p.raw("</td><td>")
			p.text(a.Trial.Title)
			p.raw("</td></tr>")
		}
		p.raw("</table>")
	})
}

func trialsTable(items []*trials.Trial) templ.Component {
	return component(func(p *page) {
		p.raw("<h2>Trials</h2><table><tr><th>NCT ID</th><th>Phase</th><th>Status</th><th>Enrollment</th><th>Sponsor</th><th>Country</th><th>Title</th></tr>")
		for _, t := range items {
			for i, cell := range []string{
				t.ID,
				t.Phase,
				t.Status,
				enrollmentText(t.Enrollment),
				t.Sponsor,
				t.Country,
				utils.Truncate(t.Title, 120),
			} {
				if i == 0 {
					p.raw("<tr>")
				}
				p.raw("<td>")
				p.text(cell)
				p.raw("</td>")
			}
			p.raw("</tr>")
		}
		p.raw("</table>")
	})
}

// WriteHTML renders the dashboard page into w.
func WriteHTML(ctx context.Context, w io.Writer, data *DashboardData) error {
	return Dashboard(data).Render(ctx, w)
}
