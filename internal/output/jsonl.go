package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/FranksOps/cse/internal/page"
)

// jsonRecord is the wire form of a page.Record. The error is flattened to
// its message.
type jsonRecord struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	Status       string    `json:"status"`
	Text         string    `json:"text"`
	Error        string    `json:"error,omitempty"`
	StatusCode   int       `json:"status_code,omitempty"`
	ContentType  string    `json:"content_type,omitempty"`
	Bytes        int       `json:"bytes"`
	DetectedBot  bool      `json:"detected_bot"`
	DetectionSrc string    `json:"detection_src,omitempty"`
	DurationMS   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

type jsonlSink struct {
	mu      sync.Mutex
	w       io.Writer
	preview int
}

func (s *jsonlSink) Write(rec *page.Record) error {
	data, err := json.Marshal(jsonRecord{
		ID:           rec.ID,
		URL:          rec.URL,
		Status:       string(rec.Status),
		Text:         rec.Preview(s.preview),
		Error:        rec.Cause(),
		StatusCode:   rec.StatusCode,
		ContentType:  rec.ContentType,
		Bytes:        rec.Bytes,
		DetectedBot:  rec.DetectedBot,
		DetectionSrc: rec.DetectionSrc,
		DurationMS:   rec.Duration.Milliseconds(),
		CreatedAt:    rec.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("output: marshal record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("output: write jsonl: %w", err)
	}
	return nil
}

func (s *jsonlSink) Flush() error { return nil }
