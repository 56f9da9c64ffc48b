package cmd

import (
	"fmt"

	"github.com/jimezsa/jobcrawl/internal/seen"
)

type SeenCmd struct {
	Diff   SeenDiffCmd   `cmd:"" help:"Write unseen records (A-B) to NDJSON."`
	Update SeenUpdateCmd `cmd:"" help:"Merge new records into the seen history."`
}

type SeenDiffCmd struct {
	New   string `name:"new" required:"" help:"Path to new records NDJSON file (A)."`
	Seen  string `name:"seen" required:"" help:"Path to seen records NDJSON file (B). Missing file is treated as empty."`
	Out   string `name:"out" required:"" help:"Output path for unseen records NDJSON file (C)."`
	Stats bool   `name:"stats" help:"Print comparison stats."`
}

type SeenUpdateCmd struct {
	Seen  string `name:"seen" required:"" help:"Path to seen records NDJSON file (B). Missing file is treated as empty."`
	Input string `name:"input" required:"" help:"Path to input records NDJSON file to merge into seen history."`
	Out   string `name:"out" help:"Output path for updated seen history. Defaults to --seen."`
	Stats bool   `name:"stats" help:"Print merge stats."`
}

func (c *SeenDiffCmd) Run(ctx *Context) error {
	if pathsEqual(c.Out, c.New) || pathsEqual(c.Out, c.Seen) {
		return fmt.Errorf("--out path must differ from --new and --seen")
	}
	newRecords, err := seen.ReadRecords(c.New)
	if err != nil {
		return fmt.Errorf("read --new: %w", err)
	}
	seenRecords, err := seen.ReadRecordsAllowMissing(c.Seen)
	if err != nil {
		return fmt.Errorf("read --seen: %w", err)
	}

	unseen, stats := seen.Diff(newRecords, seenRecords)
	if err := seen.WriteRecords(c.Out, unseen); err != nil {
		return fmt.Errorf("write --out: %w", err)
	}

	if c.Stats {
		_, err := fmt.Fprintf(
			ctx.Out,
			"total_new=%d total_seen=%d invalid_skipped=%d unseen_emitted=%d\n",
			stats.TotalNew,
			stats.TotalSeen,
			stats.InvalidSkipped(),
			stats.Unseen,
		)
		return err
	}

	return nil
}

func (c *SeenUpdateCmd) Run(ctx *Context) error {
	out := c.Out
	if out == "" {
		out = c.Seen
	}
	stats, err := updateSeenHistory(c.Seen, c.Input, out)
	if err != nil {
		return err
	}

	if c.Stats {
		_, err := fmt.Fprintf(
			ctx.Out,
			"total_seen=%d total_input=%d invalid_skipped=%d added=%d total_out=%d\n",
			stats.TotalSeen,
			stats.TotalInput,
			stats.InvalidSkipped(),
			stats.Added,
			stats.TotalOut,
		)
		return err
	}

	return nil
}

func updateSeenHistory(seenPath, inputPath, outPath string) (seen.MergeStats, error) {
	seenRecords, err := seen.ReadRecordsAllowMissing(seenPath)
	if err != nil {
		return seen.MergeStats{}, fmt.Errorf("read --seen: %w", err)
	}
	input, err := seen.ReadRecords(inputPath)
	if err != nil {
		return seen.MergeStats{}, fmt.Errorf("read --input: %w", err)
	}

	merged, stats := seen.Merge(seenRecords, input)
	if err := seen.WriteRecords(outPath, merged); err != nil {
		return stats, fmt.Errorf("write --out: %w", err)
	}
	return stats, nil
}
