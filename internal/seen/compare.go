package seen

import (
	"net/url"
	"strings"

	"github.com/jimezsa/jobcrawl/internal/models"
)

const keySeparator = "::"

// DiffStats captures stats for A-B unseen filtering.
type DiffStats struct {
	TotalNew    int
	TotalSeen   int
	InvalidNew  int
	InvalidSeen int
	Unseen      int
}

// InvalidSkipped returns the total invalid records skipped during comparison.
func (s DiffStats) InvalidSkipped() int {
	return s.InvalidNew + s.InvalidSeen
}

// MergeStats captures stats for seen history updates.
type MergeStats struct {
	TotalSeen    int
	TotalInput   int
	InvalidSeen  int
	InvalidInput int
	Added        int
	TotalOut     int
}

// InvalidSkipped returns the total invalid records skipped during merge.
func (s MergeStats) InvalidSkipped() int {
	return s.InvalidSeen + s.InvalidInput
}

// Normalize lowercases and collapses whitespace.
func Normalize(value string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(value)))
	return strings.Join(fields, " ")
}

// NormalizeURL reduces a listing URL to host, path and the jk job id, so the
// tracking parameters Indeed appends don't defeat dedupe.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return Normalize(raw)
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
	key := host + strings.TrimSuffix(parsed.Path, "/")
	if jk := parsed.Query().Get("jk"); jk != "" {
		key += "?jk=" + jk
	}
	return key
}

// Key identifies a record: its normalized url, else title+company.
func Key(record models.JobRecord) (string, bool) {
	if key := NormalizeURL(models.Value(record.URL)); key != "" {
		return key, true
	}
	title := Normalize(models.Value(record.Title))
	company := Normalize(models.Value(record.Company))
	if title == "" || company == "" {
		return "", false
	}
	return title + keySeparator + company, true
}

// Diff returns unseen records from newRecords using existing seenRecords keys.
func Diff(newRecords []models.JobRecord, seenRecords []models.JobRecord) ([]models.JobRecord, DiffStats) {
	stats := DiffStats{
		TotalNew:  len(newRecords),
		TotalSeen: len(seenRecords),
	}

	seenKeys := make(map[string]struct{}, len(seenRecords))
	for _, record := range seenRecords {
		key, ok := Key(record)
		if !ok {
			stats.InvalidSeen++
			continue
		}
		seenKeys[key] = struct{}{}
	}

	newKeys := make(map[string]struct{}, len(newRecords))
	unseen := make([]models.JobRecord, 0, len(newRecords))
	for _, record := range newRecords {
		key, ok := Key(record)
		if !ok {
			stats.InvalidNew++
			continue
		}
		if _, exists := newKeys[key]; exists {
			continue
		}
		newKeys[key] = struct{}{}
		if _, exists := seenKeys[key]; exists {
			continue
		}
		unseen = append(unseen, record)
	}

	stats.Unseen = len(unseen)
	return unseen, stats
}

// Merge appends unique input records into the seen history.
// Existing seen entries win collisions.
func Merge(existingSeen []models.JobRecord, input []models.JobRecord) ([]models.JobRecord, MergeStats) {
	stats := MergeStats{
		TotalSeen:  len(existingSeen),
		TotalInput: len(input),
	}

	keys := make(map[string]struct{}, len(existingSeen)+len(input))
	out := make([]models.JobRecord, 0, len(existingSeen)+len(input))

	for _, record := range existingSeen {
		key, ok := Key(record)
		if !ok {
			stats.InvalidSeen++
			out = append(out, record)
			continue
		}
		if _, exists := keys[key]; exists {
			continue
		}
		keys[key] = struct{}{}
		out = append(out, record)
	}

	for _, record := range input {
		key, ok := Key(record)
		if !ok {
			stats.InvalidInput++
			continue
		}
		if _, exists := keys[key]; exists {
			continue
		}
		keys[key] = struct{}{}
		out = append(out, record)
		stats.Added++
	}

	stats.TotalOut = len(out)
	return out, stats
}
