package output

import (
	"fmt"
	"io"
	"sync"

	"github.com/FranksOps/cse/internal/page"
)

// textSink prints the link on one line followed by its text.
type textSink struct {
	mu      sync.Mutex
	w       io.Writer
	preview int
}

func (s *textSink) Write(rec *page.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintf(s.w, "%s\n%s\n", rec.URL, rec.Preview(s.preview)); err != nil {
		return fmt.Errorf("output: write text: %w", err)
	}
	return nil
}

func (s *textSink) Flush() error { return nil }
