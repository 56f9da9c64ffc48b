package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jimezsa/jobcrawl/internal/export"
	"github.com/muesli/termenv"
)

type ExportCmd struct {
	Input  string `arg:"" help:"NDJSON record file written by crawl."`
	Format string `help:"Output format: table, csv, tsv, json, jsonl, md." enum:",table,csv,tsv,json,jsonl,md,markdown" default:""`
	Links  string `help:"Table link display: short or full." enum:"short,full" default:"full"`
	Output string `name:"output" short:"o" help:"Write output to a file."`
}

func (c *ExportCmd) Run(ctx *Context) error {
	records, err := export.ReadRecords(c.Input)
	if err != nil {
		return fmt.Errorf("read %s: %w", c.Input, err)
	}

	outputPath := strings.TrimSpace(c.Output)
	if outputPath != "" && pathsEqual(outputPath, c.Input) {
		return fmt.Errorf("--output path must differ from the input")
	}
	format, err := resolveFormat(ctx, c.Format, outputPath)
	if err != nil {
		return err
	}

	writer := ctx.Out
	if outputPath != "" {
		if dir := filepath.Dir(outputPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		file, err := os.Create(outputPath)
		if err != nil {
			return err
		}
		defer file.Close()
		writer = file
	}

	colorEnabled := outputPath == "" && ctx.UI != nil && ctx.UI.ColorEnabled
	hyperlinks := colorEnabled && isTTY(writer)
	linkStyle := export.LinkStyleShort
	if strings.EqualFold(c.Links, string(export.LinkStyleFull)) {
		linkStyle = export.LinkStyleFull
	}
	return export.WriteRecords(writer, records, format, export.WriteOptions{
		ColorEnabled: colorEnabled,
		Hyperlinks:   hyperlinks,
		LinkStyle:    linkStyle,
	})
}

// resolveFormat picks the export format: global --json/--plain win, then
// --format, then csv for files and table for terminals.
func resolveFormat(ctx *Context, format string, outputPath string) (export.Format, error) {
	if ctx.JSONOutput {
		return export.FormatJSON, nil
	}
	if ctx.PlainText {
		return export.FormatTSV, nil
	}
	if strings.TrimSpace(format) != "" {
		return export.ParseFormat(format)
	}
	if outputPath != "" {
		switch strings.ToLower(filepath.Ext(outputPath)) {
		case ".json":
			return export.FormatJSON, nil
		case ".md":
			return export.FormatMarkdown, nil
		case ".tsv":
			return export.FormatTSV, nil
		}
		return export.FormatCSV, nil
	}
	if isTTY(ctx.Out) {
		return export.FormatTable, nil
	}
	return export.FormatCSV, nil
}

func isTTY(out io.Writer) bool {
	output := termenv.NewOutput(out)
	return output.ColorProfile() != termenv.Ascii
}
