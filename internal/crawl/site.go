package crawl

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jimezsa/jobcrawl/internal/models"
)

// Field pairs a record field with its locator inside the detail content.
type Field struct {
	Name     string
	Selector string
}

// Site holds the locators of one results interface.
type Site struct {
	BaseURL string

	CardSelector string
	// LinkSelector finds the listing anchor inside a card; IDAttr is the
	// listing identifier carried by that anchor.
	LinkSelector string
	IDAttr       string

	PaneSelector string
	// ContentSelector is the container fields are read from; ReadySelector
	// signals that the container finished rendering.
	ContentSelector string
	ReadySelector   string

	Fields []Field
}

// Indeed returns the locators of the Indeed results page for a country code.
func Indeed(country string) Site {
	return Site{
		BaseURL:         BaseURL(country),
		CardSelector:    "div.cardOutline",
		LinkSelector:    "a[data-jk]",
		IDAttr:          "data-jk",
		PaneSelector:    "div.jobsearch-RightPane",
		ContentSelector: "div.jobsearch-JobComponent",
		ReadySelector:   "div.jobsearch-JobComponent h2.jobsearch-JobInfoHeader-title",
		Fields: []Field{
			{Name: "title", Selector: "h2.jobsearch-JobInfoHeader-title"},
			{Name: "company", Selector: "[data-testid='inlineHeader-companyName']"},
			{Name: "location", Selector: "[data-testid='inlineHeader-companyLocation']"},
			{Name: "salary", Selector: "#salaryInfoAndJobType span"},
			{Name: "description", Selector: "#jobDescriptionText"},
		},
	}
}

// BaseURL maps a country code onto its Indeed host.
func BaseURL(country string) string {
	country = strings.TrimSpace(strings.ToLower(country))
	if country == "" || country == "usa" || country == "us" || country == "www" {
		return "https://www.indeed.com"
	}
	return fmt.Sprintf("https://%s.indeed.com", country)
}

// SearchURL builds the results URL of one page. Free text is form encoded, so
// spaces become '+'.
func (s Site) SearchURL(spec models.SearchSpec, page models.PageRequest) string {
	values := url.Values{}
	values.Set("q", spec.Query)
	values.Set("l", spec.Location)
	values.Set("start", strconv.Itoa(page.Offset))
	return fmt.Sprintf("%s/jobs?%s", strings.TrimRight(s.BaseURL, "/"), values.Encode())
}

// ViewURL is the canonical listing URL for an identifier.
func (s Site) ViewURL(id string) string {
	return fmt.Sprintf("%s/viewjob?jk=%s", strings.TrimRight(s.BaseURL, "/"), url.QueryEscape(id))
}

// Timing bounds every wait and settle delay of a crawl.
type Timing struct {
	List    time.Duration
	Detail  time.Duration
	Content time.Duration
	// Change bounds the wait for the pane to show a different listing than
	// the one extracted last.
	Change time.Duration
	Poll   time.Duration

	ListSettle   time.Duration
	ScrollSettle time.Duration
	ClickSettle  time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		List:         20 * time.Second,
		Detail:       10 * time.Second,
		Content:      15 * time.Second,
		Change:       3 * time.Second,
		Poll:         100 * time.Millisecond,
		ListSettle:   time.Second,
		ScrollSettle: 300 * time.Millisecond,
		ClickSettle:  500 * time.Millisecond,
	}
}
