package seen

import (
	"errors"
	"os"

	"github.com/jimezsa/jobcrawl/internal/export"
	"github.com/jimezsa/jobcrawl/internal/models"
)

// ReadRecords reads an NDJSON record file.
func ReadRecords(path string) ([]models.JobRecord, error) {
	return export.ReadRecords(path)
}

// ReadRecordsAllowMissing treats a missing file as empty history.
func ReadRecordsAllowMissing(path string) ([]models.JobRecord, error) {
	records, err := ReadRecords(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []models.JobRecord{}, nil
		}
		return nil, err
	}
	return records, nil
}

// WriteRecords replaces path with records, one JSON object per line.
func WriteRecords(path string, records []models.JobRecord) error {
	return export.WriteRecordsFile(path, records)
}
