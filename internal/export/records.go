package export

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jimezsa/jobcrawl/internal/models"
)

// RecordWriter writes newline-delimited JSON records, flushing after every
// record so that an aborted run keeps everything written so far.
type RecordWriter struct {
	closer  io.Closer
	writer  *bufio.Writer
	encoder *json.Encoder
	count   int
	mu      sync.Mutex
}

// OpenRecordWriter creates path (and its directory). Existing content is
// truncated unless appendMode is set.
func OpenRecordWriter(path string, appendMode bool) (*RecordWriter, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("path is required")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendMode {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}

	w := NewRecordWriter(f)
	w.closer = f
	return w, nil
}

// NewRecordWriter writes records to w. Close flushes but leaves w open.
func NewRecordWriter(w io.Writer) *RecordWriter {
	buffer := bufio.NewWriter(w)
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	return &RecordWriter{writer: buffer, encoder: encoder}
}

func (rw *RecordWriter) Write(record models.JobRecord) error {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if err := rw.encoder.Encode(record); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := rw.writer.Flush(); err != nil {
		return fmt.Errorf("flush record: %w", err)
	}
	rw.count++
	return nil
}

// Count returns the number of records written.
func (rw *RecordWriter) Count() int {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.count
}

func (rw *RecordWriter) Close() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if err := rw.writer.Flush(); err != nil {
		return fmt.Errorf("flush records: %w", err)
	}
	if rw.closer != nil {
		return rw.closer.Close()
	}
	return nil
}

// ReadRecords reads a newline-delimited JSON record file. Blank lines are
// skipped; a malformed line is reported with its line number.
func ReadRecords(path string) ([]models.JobRecord, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("path is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeRecords(f)
}

func DecodeRecords(r io.Reader) ([]models.JobRecord, error) {
	records := []models.JobRecord{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		var record models.JobRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// WriteRecordsFile replaces path with records.
func WriteRecordsFile(path string, records []models.JobRecord) error {
	w, err := OpenRecordWriter(path, false)
	if err != nil {
		return err
	}
	for _, record := range records {
		if err := w.Write(record); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
