package models

import "time"

// SessionConfig contains the options used to open a browser session.
type SessionConfig struct {
	Headless    bool
	UserDataDir string
	ChromePath  string
	UserAgent   string
	// Fixtures is the directory of saved result pages for the static driver.
	Fixtures string
	// StartupTimeout bounds launching the browser and loading about:blank.
	StartupTimeout time.Duration
}
