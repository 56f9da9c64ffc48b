package crawl

import (
	"context"
	"net/url"
	"strings"

	"github.com/jimezsa/jobcrawl/internal/browser"
	"github.com/jimezsa/jobcrawl/internal/models"
)

// Extractor reads a fixed ordered set of fields from the detail content.
type Extractor struct {
	Fields []Field
}

// Extract returns a fully shaped record. A field that cannot be located or
// reads empty is null; nothing is logged. The only error returned is a
// session-fatal one, so a dead browser never yields a fabricated record.
func (e Extractor) Extract(ctx context.Context, content browser.Element) (models.JobRecord, error) {
	var record models.JobRecord
	for _, field := range e.Fields {
		value, err := fieldText(ctx, content, field.Selector)
		if err != nil {
			if browser.IsFatal(err) {
				return models.JobRecord{}, err
			}
			continue
		}
		record.Set(field.Name, models.String(value))
	}
	return record, nil
}

func fieldText(ctx context.Context, content browser.Element, selector string) (string, error) {
	if content == nil {
		return "", browser.ErrNotFound
	}
	el, err := content.Query(ctx, selector)
	if err != nil {
		return "", err
	}
	return browser.TextOf(ctx, el)
}

// URLResolver derives the listing URL of a card.
type URLResolver struct {
	Site Site
}

// Resolve prefers the anchor's href, falls back to the canonical view URL of
// the listing identifier, and returns nil when neither exists.
func (r URLResolver) Resolve(ctx context.Context, card browser.Element) (*string, error) {
	if card == nil {
		return nil, nil
	}
	link, err := card.Query(ctx, r.Site.LinkSelector)
	if err != nil {
		return nil, fatalOnly(err)
	}

	href, _, err := link.Attribute(ctx, "href")
	if err != nil {
		return nil, fatalOnly(err)
	}
	if href = strings.TrimSpace(href); href != "" {
		return models.String(absoluteURL(r.Site.BaseURL, href)), nil
	}

	id, _, err := link.Attribute(ctx, r.Site.IDAttr)
	if err != nil {
		return nil, fatalOnly(err)
	}
	if id = strings.TrimSpace(id); id != "" {
		return models.String(r.Site.ViewURL(id)), nil
	}
	return nil, nil
}

func fatalOnly(err error) error {
	if browser.IsFatal(err) {
		return err
	}
	return nil
}

func absoluteURL(base string, href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}
