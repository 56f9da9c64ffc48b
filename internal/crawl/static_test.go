package crawl

import (
	"context"
	"fmt"
	"html"
	"strings"
	"testing"

	"github.com/jimezsa/jobcrawl/internal/browser"
	"github.com/jimezsa/jobcrawl/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listing struct {
	id, href, title, company, salary string
	noDetail                         bool
}

func resultsHTML(listings ...listing) string {
	var b strings.Builder
	b.WriteString("<html><body><div id=\"mosaic\">")
	for _, l := range listings {
		l.title, l.company = html.EscapeString(l.title), html.EscapeString(l.company)
		if l.href != "" {
			fmt.Fprintf(&b, `<div class="cardOutline"><h2><a data-jk="%s" href="%s">%s</a></h2></div>`, l.id, l.href, l.title)
		} else {
			fmt.Fprintf(&b, `<div class="cardOutline"><h2><a data-jk="%s">%s</a></h2></div>`, l.id, l.title)
		}
	}
	b.WriteString(`</div><div class="jobsearch-RightPane"></div>`)
	for _, l := range listings {
		l.title, l.company = html.EscapeString(l.title), html.EscapeString(l.company)
		if l.noDetail {
			continue
		}
		fmt.Fprintf(&b, `<script type="text/html" data-detail-for="%s"><div class="jobsearch-JobComponent">`, l.id)
		fmt.Fprintf(&b, `<h2 class="jobsearch-JobInfoHeader-title">%s</h2>`, l.title)
		fmt.Fprintf(&b, `<div data-testid="inlineHeader-companyName">%s</div>`, l.company)
		b.WriteString(`<div data-testid="inlineHeader-companyLocation">München</div>`)
		if l.salary != "" {
			fmt.Fprintf(&b, `<div id="salaryInfoAndJobType"><span>%s</span></div>`, l.salary)
		}
		fmt.Fprintf(&b, `<div id="jobDescriptionText"><p>About %s</p></div>`, l.title)
		b.WriteString(`</div></script>`)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func TestStaticSessionEndToEnd(t *testing.T) {
	pages := map[string]string{
		"0": resultsHTML(
			listing{id: "a1", href: "/rc/clk?jk=a1", title: "Go Developer", company: "Acme", salary: "€70,000"},
			listing{id: "b2", title: "Site Reliability Engineer", company: "Initech"},
			listing{id: "c3", title: "Broken", company: "Nobody", noDetail: true},
		),
		"10": resultsHTML(
			listing{id: "d4", title: "Backend <Engineer>", company: "Globex & Co", salary: "$120k"},
		),
	}
	loader := browser.LoaderFunc(func(_ context.Context, target string) (string, error) {
		for start, page := range pages {
			if strings.HasSuffix(target, "start="+start) {
				return page, nil
			}
		}
		return "", fmt.Errorf("no page for %s", target)
	})
	session := browser.NewStaticSession(loader, browser.StaticOptions{})
	sink := &memSink{}
	o := NewOrchestrator(session, sink, Options{
		Site:   Indeed(""),
		Timing: fastTiming(),
		Logger: zerolog.Nop(),
	})

	summary, err := o.Run(context.Background(), models.SearchSpec{Query: "go", Location: "Berlin", PageCount: 3})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Records)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.FailedPages)
	require.Equal(t, []string{"Go Developer", "Site Reliability Engineer", "Backend <Engineer>"}, titles(sink.records))

	first := sink.records[0]
	assert.Equal(t, "Acme", models.Value(first.Company))
	assert.Equal(t, "München", models.Value(first.Location))
	assert.Equal(t, "€70,000", models.Value(first.Salary))
	assert.Equal(t, "About Go Developer", models.Value(first.Description))
	assert.Equal(t, "https://www.indeed.com/rc/clk?jk=a1", models.Value(first.URL))

	second := sink.records[1]
	assert.Nil(t, second.Salary)
	assert.Equal(t, "https://www.indeed.com/viewjob?jk=b2", models.Value(second.URL))

	assert.Equal(t, "Globex & Co", models.Value(sink.records[2].Company))
}
