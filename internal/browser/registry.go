package browser

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jimezsa/jobcrawl/internal/models"
)

const (
	DriverChromedp = "chromedp"
	DriverRod      = "rod"
	DriverStatic   = "static"
)

type opener func(ctx context.Context, cfg models.SessionConfig) (Session, error)

var drivers = map[string]opener{
	DriverChromedp: OpenChromedp,
	DriverRod:      OpenRod,
	DriverStatic: func(_ context.Context, cfg models.SessionConfig) (Session, error) {
		if cfg.Fixtures == "" {
			return nil, fmt.Errorf("static driver requires a fixtures directory")
		}
		return NewStaticSession(DirLoader{Dir: cfg.Fixtures}, StaticOptions{}), nil
	},
}

// Drivers lists the registered driver names.
func Drivers() []string {
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NormalizeDriver lower-cases and trims a driver name.
func NormalizeDriver(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Open starts a session with the named driver.
func Open(ctx context.Context, driver string, cfg models.SessionConfig) (Session, error) {
	open, ok := drivers[NormalizeDriver(driver)]
	if !ok {
		return nil, fmt.Errorf("unknown driver %q (want one of %s)", driver, strings.Join(Drivers(), ", "))
	}
	return open(ctx, cfg)
}
