package crawl

import (
	"context"

	"github.com/jimezsa/jobcrawl/internal/browser"
)

// ResolveCard re-queries the live card list and returns the card at position.
// ok is false when the list is now shorter than position; that is a skip, not
// an error. Handles are never cached between calls.
func ResolveCard(ctx context.Context, session browser.Session, selector string, position int) (browser.Element, bool, error) {
	if position < 0 {
		return nil, false, nil
	}
	cards, err := session.QueryAll(ctx, selector)
	if err != nil {
		return nil, false, err
	}
	if position >= len(cards) {
		return nil, false, nil
	}
	return cards[position], true, nil
}
