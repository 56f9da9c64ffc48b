package cmd

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jimezsa/jobcrawl/internal/export"
	"github.com/jimezsa/jobcrawl/internal/models"
	"github.com/jimezsa/jobcrawl/internal/seen"
)

func record(title, company, link string) models.JobRecord {
	return models.JobRecord{
		Title:   models.String(title),
		Company: models.String(company),
		URL:     models.String(link),
	}
}

func TestResolveFormatRespectsGlobalFlags(t *testing.T) {
	ctx := &Context{Out: io.Discard, JSONOutput: true}
	got, err := resolveFormat(ctx, "csv", "jobs.csv")
	if err != nil || got != export.FormatJSON {
		t.Fatalf("resolveFormat() = %q, %v; want json", got, err)
	}

	ctx = &Context{Out: io.Discard, PlainText: true}
	got, err = resolveFormat(ctx, "", "")
	if err != nil || got != export.FormatTSV {
		t.Fatalf("resolveFormat() = %q, %v; want tsv", got, err)
	}

	ctx = &Context{Out: io.Discard}
	got, err = resolveFormat(ctx, "", "report.md")
	if err != nil || got != export.FormatMarkdown {
		t.Fatalf("resolveFormat() = %q, %v; want md from extension", got, err)
	}
	got, err = resolveFormat(ctx, "", "")
	if err != nil || got != export.FormatCSV {
		t.Fatalf("resolveFormat() = %q, %v; want csv for non-tty", got, err)
	}
}

func TestExportCommandWritesCSV(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "jobs.jsonl")
	if err := export.WriteRecordsFile(input, []models.JobRecord{
		record("Go Developer", "Acme", "https://www.indeed.com/viewjob?jk=1"),
		{},
	}); err != nil {
		t.Fatalf("WriteRecordsFile() error = %v", err)
	}

	ctx, _, _ := testContext()
	output := filepath.Join(dir, "out", "jobs.csv")
	if err := (&ExportCmd{Input: input, Output: output}).Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 || lines[0] != "title,company,location,salary,description,url" {
		t.Fatalf("unexpected csv:\n%s", data)
	}

	if err := (&ExportCmd{Input: input, Output: input}).Run(ctx); err == nil {
		t.Fatalf("expected error when output overwrites input")
	}
}

func TestUpdateSeenHistoryCreatesFileAndMerges(t *testing.T) {
	dir := t.TempDir()
	seenPath := filepath.Join(dir, "seen.jsonl")
	inputPath := filepath.Join(dir, "new.jsonl")

	write := func(records ...models.JobRecord) {
		t.Helper()
		if err := export.WriteRecordsFile(inputPath, records); err != nil {
			t.Fatalf("WriteRecordsFile() error = %v", err)
		}
	}
	readSeen := func() []models.JobRecord {
		t.Helper()
		got, err := seen.ReadRecords(seenPath)
		if err != nil {
			t.Fatalf("ReadRecords() error = %v", err)
		}
		return got
	}

	write(record("Hardware Engineer", "Acme", "https://example.com/1"))
	if _, err := updateSeenHistory(seenPath, inputPath, seenPath); err != nil {
		t.Fatalf("updateSeenHistory() error = %v", err)
	}
	if got := readSeen(); len(got) != 1 {
		t.Fatalf("len(seen) = %d, want 1", len(got))
	}

	if _, err := updateSeenHistory(seenPath, inputPath, seenPath); err != nil {
		t.Fatalf("updateSeenHistory() (2nd) error = %v", err)
	}
	if got := readSeen(); len(got) != 1 {
		t.Fatalf("len(seen) after 2nd update = %d, want 1", len(got))
	}

	write(
		record("Hardware Engineer", "Acme", "https://example.com/1"),
		record("Embedded Engineer", "Beta", "https://example.com/2"),
	)
	stats, err := updateSeenHistory(seenPath, inputPath, seenPath)
	if err != nil {
		t.Fatalf("updateSeenHistory() (3rd) error = %v", err)
	}
	if got := readSeen(); len(got) != 2 || stats.Added != 1 {
		t.Fatalf("len(seen) = %d added = %d, want 2 and 1", len(got), stats.Added)
	}
}

func TestSeenDiffCommand(t *testing.T) {
	dir := t.TempDir()
	newPath := filepath.Join(dir, "new.jsonl")
	seenPath := filepath.Join(dir, "seen.jsonl")
	outPath := filepath.Join(dir, "unseen.jsonl")

	if err := export.WriteRecordsFile(newPath, []models.JobRecord{
		record("A", "Acme", "https://www.indeed.com/viewjob?jk=1"),
		record("B", "Beta", "https://www.indeed.com/viewjob?jk=2"),
	}); err != nil {
		t.Fatalf("write new: %v", err)
	}
	if err := export.WriteRecordsFile(seenPath, []models.JobRecord{
		record("A", "Acme", "https://www.indeed.com/viewjob?jk=1&from=serp"),
	}); err != nil {
		t.Fatalf("write seen: %v", err)
	}

	ctx, out, _ := testContext()
	if err := (&SeenDiffCmd{New: newPath, Seen: seenPath, Out: outPath, Stats: true}).Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	unseen, err := seen.ReadRecords(outPath)
	if err != nil {
		t.Fatalf("read unseen: %v", err)
	}
	if len(unseen) != 1 || models.Value(unseen[0].Title) != "B" {
		t.Fatalf("unexpected unseen records: %+v", unseen)
	}
	if !strings.Contains(out.String(), "unseen_emitted=1") {
		t.Fatalf("unexpected stats %q", out.String())
	}

	if err := (&SeenDiffCmd{New: newPath, Seen: seenPath, Out: seenPath}).Run(ctx); err == nil {
		t.Fatalf("expected error when --out overwrites --seen")
	}
}

func TestVersionCommand(t *testing.T) {
	ctx, out, _ := testContext()
	ctx.Version = "1.2.3"
	if err := (&VersionCmd{}).Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.String() != "jobcrawl 1.2.3\n" {
		t.Fatalf("unexpected version output %q", out.String())
	}

	out.Reset()
	ctx.JSONOutput = true
	if err := (&VersionCmd{}).Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), `"version":"1.2.3"`) {
		t.Fatalf("unexpected json version output %q", out.String())
	}
}
