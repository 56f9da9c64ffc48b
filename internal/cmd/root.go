package cmd

import (
	"github.com/alecthomas/kong"
)

type CLI struct {
	Color   string `help:"Color output: auto, always, never." enum:"auto,always,never" default:"auto"`
	JSON    bool   `help:"JSON log lines on stderr and JSON export output; disables colors."`
	Plain   bool   `help:"TSV export output; disables colors."`
	Verbose bool   `help:"Enable debug logging."`

	VersionFlag kong.VersionFlag `name:"version" help:"Print version."`

	Crawl   CrawlCmd   `cmd:"" help:"Crawl Indeed result pages in a browser and write NDJSON records."`
	Export  ExportCmd  `cmd:"" help:"Convert an NDJSON record file to table, csv, tsv, json or md."`
	Seen    SeenCmd    `cmd:"" help:"Seen records utilities."`
	Config  ConfigCmd  `cmd:"" help:"Manage configuration."`
	Version VersionCmd `cmd:"" help:"Print version."`
}

func NewCLI() *CLI {
	return &CLI{}
}
