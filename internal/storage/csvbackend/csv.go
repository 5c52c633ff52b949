package csvbackend

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/strategicvalueplus/scout/internal/storage"
)

// ensure csvBackend implements storage.Backend
var _ storage.Backend = (*csvBackend)(nil)

type csvBackend struct {
	mu   sync.Mutex
	file *os.File
}

// headers defines the CSV column order
var headers = []string{
	"id",
	"request_id",
	"source",
	"keywords",
	"location",
	"count",
	"total",
	"success",
	"authenticated",
	"duration_ms",
	"created_at",
	"error",
}

// New creates a new CSV-backed storage.Backend.
func New(filePath string) (storage.Backend, error) {
	// Open file for appending, create if it doesn't exist
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("csvbackend: open: %w", err)
	}

	// Check if file is empty to write headers
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("csvbackend: stat: %w", err)
	}

	if info.Size() == 0 {
		w := csv.NewWriter(f)
		if err := w.Write(headers); err != nil {
			f.Close()
			return nil, fmt.Errorf("csvbackend: write header: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("csvbackend: write header: %w", err)
		}
	}

	return &csvBackend{
		file: f,
	}, nil
}

func (b *csvBackend) Save(ctx context.Context, run *storage.SearchRun) error {
	authed := ""
	if run.Authenticated != nil {
		authed = strconv.FormatBool(*run.Authenticated)
	}

	record := []string{
		run.ID,
		run.RequestID,
		run.Source,
		run.Keywords,
		run.Location,
		strconv.Itoa(run.Count),
		strconv.Itoa(run.Total),
		strconv.FormatBool(run.Success),
		authed,
		strconv.FormatInt(run.Duration.Milliseconds(), 10),
		run.CreatedAt.Format(time.RFC3339Nano),
		run.Error,
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// Ensure we're at the end of the file for appending (just in case)
	if _, err := b.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("csvbackend: seek: %w", err)
	}

	w := csv.NewWriter(b.file)
	if err := w.Write(record); err != nil {
		return fmt.Errorf("csvbackend: write run: %w", err)
	}
	w.Flush()

	if err := w.Error(); err != nil {
		return fmt.Errorf("csvbackend: write run: %w", err)
	}

	return nil
}

func (b *csvBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.SearchRun, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Seek to the beginning of the file to read all entries
	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("csvbackend: seek: %w", err)
	}
	defer func() {
		// Restore pointer to end for writing
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	r := csv.NewReader(b.file)

	// Read headers
	if _, err := r.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return []*storage.SearchRun{}, nil
		}
		return nil, fmt.Errorf("csvbackend: read header: %w", err)
	}

	var matched []*storage.SearchRun
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvbackend: read row: %w", err)
		}

		if len(record) != len(headers) {
			continue // skip malformed rows
		}

		run := parseRow(record)
		if filter.Match(run) {
			matched = append(matched, run)
		}
	}

	slices.Reverse(matched)
	return filter.Page(matched), nil
}

func parseRow(record []string) *storage.SearchRun {
	count, _ := strconv.Atoi(record[5])
	total, _ := strconv.Atoi(record[6])
	success, _ := strconv.ParseBool(record[7])
	durationMs, _ := strconv.ParseInt(record[9], 10, 64)
	createdAt, _ := time.Parse(time.RFC3339Nano, record[10])

	run := &storage.SearchRun{
		ID:        record[0],
		RequestID: record[1],
		Source:    record[2],
		Keywords:  record[3],
		Location:  record[4],
		Count:     count,
		Total:     total,
		Success:   success,
		Duration:  time.Duration(durationMs) * time.Millisecond,
		CreatedAt: createdAt,
		Error:     record[11],
	}
	if v, err := strconv.ParseBool(record[8]); err == nil {
		run.Authenticated = &v
	}
	return run
}

func (b *csvBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
