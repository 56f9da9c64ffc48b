package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"text/tabwriter"

	"github.com/jimezsa/jobcrawl/internal/models"
	"github.com/muesli/termenv"
)

type Format string

const (
	FormatTable    Format = "table"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatJSONL    Format = "jsonl"
	FormatMarkdown Format = "md"
	FormatTSV      Format = "tsv"
)

// Formats lists every supported output format.
var Formats = []Format{FormatTable, FormatCSV, FormatTSV, FormatJSON, FormatJSONL, FormatMarkdown}

// ParseFormat maps a user-supplied name to a Format.
func ParseFormat(value string) (Format, error) {
	name := Format(strings.ToLower(strings.TrimSpace(value)))
	if name == "" {
		return FormatTable, nil
	}
	if name == "markdown" {
		return FormatMarkdown, nil
	}
	if name == "ndjson" {
		return FormatJSONL, nil
	}
	for _, f := range Formats {
		if f == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q", value)
}

type WriteOptions struct {
	ColorEnabled bool
	Hyperlinks   bool
	LinkStyle    LinkStyle
}

type LinkStyle string

const (
	LinkStyleShort LinkStyle = "short"
	LinkStyleFull  LinkStyle = "full"
)

func WriteRecords(w io.Writer, records []models.JobRecord, format Format, opts WriteOptions) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, records)
	case FormatJSONL:
		rw := NewRecordWriter(w)
		for _, record := range records {
			if err := rw.Write(record); err != nil {
				return err
			}
		}
		return rw.Close()
	case FormatCSV:
		return writeCSV(w, records, ',')
	case FormatTSV:
		return writeCSV(w, records, '\t')
	case FormatMarkdown:
		return writeMarkdown(w, records)
	default:
		return writeTable(w, records, opts)
	}
}

func writeJSON(w io.Writer, records []models.JobRecord) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(records)
}

func writeCSV(w io.Writer, records []models.JobRecord, delim rune) error {
	writer := csv.NewWriter(w)
	writer.Comma = delim
	if err := writer.Write(models.RecordFields); err != nil {
		return err
	}
	for _, record := range records {
		row := make([]string, 0, len(models.RecordFields))
		for _, name := range models.RecordFields {
			row = append(row, models.Value(record.Get(name)))
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeTable(w io.Writer, records []models.JobRecord, opts WriteOptions) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(tableHeader(), "\t"))
	output := termenv.NewOutput(w)
	for _, record := range records {
		fmt.Fprintln(tw, strings.Join(tableRow(record, output, opts), "\t"))
	}
	return tw.Flush()
}

func writeMarkdown(w io.Writer, records []models.JobRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No results.")
		return err
	}
	for _, record := range records {
		urlLine := "  URL: -"
		if link := safe(record.URL); link != "-" {
			urlLine = fmt.Sprintf("  URL: [Open listing](<%s>)", link)
		}
		lines := []string{
			fmt.Sprintf("- **%s** (%s)", safe(record.Title), safe(record.Company)),
			fmt.Sprintf("  Location: %s", safe(record.Location)),
			urlLine,
		}
		if record.Salary != nil {
			lines = append(lines, fmt.Sprintf("  Salary: %s", safe(record.Salary)))
		}
		if record.Description != nil {
			lines = append(lines, fmt.Sprintf("  Summary: %s", summary(*record.Description)))
		}
		for _, line := range lines {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}

// safe renders a nullable field on one line, "-" for null.
func safe(value *string) string {
	text := strings.Join(strings.Fields(models.Value(value)), " ")
	if text == "" {
		return "-"
	}
	return text
}

func summary(description string) string {
	const maxLen = 200
	text := strings.Join(strings.Fields(description), " ")
	runes := []rune(text)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return text
}

func tableHeader() []string {
	return []string{
		"title",
		"company",
		"location",
		"salary",
		"url",
	}
}

func tableRow(record models.JobRecord, output *termenv.Output, opts WriteOptions) []string {
	const linkColor = "#87CEEB"

	link := models.Value(record.URL)
	displayURL := "-"
	if link != "" {
		displayURL = link
		if opts.LinkStyle == LinkStyleShort && opts.Hyperlinks {
			displayURL = shortURLLabel(link)
		}
		if opts.ColorEnabled {
			displayURL = output.String(displayURL).Foreground(output.Color(linkColor)).String()
		}
		if opts.Hyperlinks {
			displayURL = hyperlink(link, displayURL)
		}
	}
	return []string{
		safe(record.Title),
		safe(record.Company),
		safe(record.Location),
		safe(record.Salary),
		displayURL,
	}
}

func hyperlink(url string, text string) string {
	const esc = "\x1b"
	return esc + "]8;;" + url + esc + "\\" + text + esc + "]8;;" + esc + "\\"
}

func shortURLLabel(raw string) string {
	const maxLen = 60
	label := strings.TrimSpace(raw)
	if parsed, err := url.Parse(raw); err == nil {
		host := strings.TrimPrefix(parsed.Host, "www.")
		if host != "" {
			label = host + parsed.Path
		}
	}
	label = strings.TrimSpace(label)
	if label == "" {
		label = raw
	}
	if len(label) > maxLen {
		label = label[:maxLen-3] + "..."
	}
	return label
}
