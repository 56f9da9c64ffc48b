package crawl

import (
	"context"
	"time"

	"github.com/cespare/xxhash/v2"
)

// fingerprint identifies the listing currently shown in the detail content.
func fingerprint(text string) uint64 {
	return xxhash.Sum64String(text)
}

// sleep blocks for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
