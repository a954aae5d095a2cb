package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const maxLineBytes = 1 << 20

// Record is one decoded log line. Raw keeps the original text.
type Record struct {
	Time      string `json:"ts"`
	Level     string `json:"level"`
	Msg       string `json:"msg"`
	Component string `json:"component"`
	RunID     string `json:"run_id"`
	Raw       string `json:"-"`
}

// Parse decodes a JSON log line. Lines that are not JSON objects are
// rejected.
func Parse(line string) (Record, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "{") {
		return Record{}, false
	}
	var rec Record
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		return Record{}, false
	}
	rec.Raw = line
	return rec, true
}

// Filter selects records. Empty strings match everything; the zero MinLevel
// is info, so debug records need an explicit slog.LevelDebug.
type Filter struct {
	RunID     string
	Component string
	MinLevel  slog.Level
}

// Match reports whether rec passes every set criterion.
func (f Filter) Match(rec Record) bool {
	if f.RunID != "" && rec.RunID != f.RunID {
		return false
	}
	if f.Component != "" && !strings.EqualFold(rec.Component, f.Component) {
		return false
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(rec.Level)); err == nil && level < f.MinLevel {
		return false
	}
	return true
}

// Last returns up to limit of the newest matching records in file order and
// the offset just past the end of the file. A missing file yields no records.
func Last(path string, limit int, f Filter) ([]Record, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		offset, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, offset, nil
	}

	ring := make([]Record, limit)
	count, idx := 0, 0
	offset, err := scan(file, func(rec Record) {
		if !f.Match(rec) {
			return
		}
		ring[idx] = rec
		idx = (idx + 1) % limit
		count = min(count+1, limit)
	})
	if err != nil {
		return nil, 0, err
	}

	records := make([]Record, count)
	if count == limit {
		for i := range records {
			records[i] = ring[(idx+i)%limit]
		}
	} else {
		copy(records, ring[:count])
	}
	return records, offset, nil
}

// Follow emits matching records appended after offset until ctx is done or
// emit fails. It returns nil when ctx is cancelled.
func Follow(ctx context.Context, path string, offset int64, f Filter, poll time.Duration, emit func(Record) error) error {
	if poll <= 0 {
		poll = 250 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		next, err := readFrom(path, offset, func(rec Record) error {
			if !f.Match(rec) {
				return nil
			}
			return emit(rec)
		})
		if err != nil {
			return err
		}
		offset = next

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func readFrom(path string, offset int64, emit func(Record) error) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}

	var emitErr error
	next, err := scan(file, func(rec Record) {
		if emitErr == nil {
			emitErr = emit(rec)
		}
	})
	if err != nil {
		return offset, err
	}
	if emitErr != nil {
		return next, emitErr
	}
	return next, nil
}

// scan decodes complete lines from the current position and returns the
// offset after the last complete line.
func scan(file *os.File, fn func(Record)) (int64, error) {
	start, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("seek log file: %w", err)
	}
	reader := bufio.NewReaderSize(file, 64*1024)
	offset := start
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				// A partial trailing line is read again on the next pass.
				return offset, nil
			}
			return offset, fmt.Errorf("read log file: %w", err)
		}
		offset += int64(len(line))
		if len(line) > maxLineBytes {
			continue
		}
		if rec, ok := Parse(line); ok {
			fn(rec)
		}
	}
}
