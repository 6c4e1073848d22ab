package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/FranksOps/cse/internal/page"
)

// csvHeader defines the column order.
var csvHeader = []string{
	"id",
	"url",
	"status",
	"status_code",
	"bytes",
	"duration_ms",
	"detected_bot",
	"detection_src",
	"created_at",
	"error",
	"text",
}

type csvSink struct {
	mu          sync.Mutex
	w           *csv.Writer
	preview     int
	wroteHeader bool
}

func newCSVSink(w io.Writer, preview int) *csvSink {
	return &csvSink{w: csv.NewWriter(w), preview: preview}
}

func (s *csvSink) Write(rec *page.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.wroteHeader {
		if err := s.w.Write(csvHeader); err != nil {
			return fmt.Errorf("output: write csv header: %w", err)
		}
		s.wroteHeader = true
	}

	row := []string{
		rec.ID,
		rec.URL,
		string(rec.Status),
		strconv.Itoa(rec.StatusCode),
		strconv.Itoa(rec.Bytes),
		strconv.FormatInt(rec.Duration.Milliseconds(), 10),
		strconv.FormatBool(rec.DetectedBot),
		rec.DetectionSrc,
		rec.CreatedAt.Format(time.RFC3339Nano),
		rec.Cause(),
		rec.Preview(s.preview),
	}
	if err := s.w.Write(row); err != nil {
		return fmt.Errorf("output: write csv row: %w", err)
	}
	// Flush per row so output streams as pages complete.
	s.w.Flush()
	return s.w.Error()
}

// Flush writes the header when no record was written.
func (s *csvSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.wroteHeader {
		if err := s.w.Write(csvHeader); err != nil {
			return fmt.Errorf("output: write csv header: %w", err)
		}
		s.wroteHeader = true
	}
	s.w.Flush()
	return s.w.Error()
}
