package page

import (
	"time"
	"unicode/utf8"
)

// Status is the outcome of extracting one page.
type Status string

const (
	// StatusExtracted means the page was fetched and produced text.
	StatusExtracted Status = "extracted"
	// StatusEmpty means the page was fetched and parsed but no text survived
	// the extraction policy.
	StatusEmpty Status = "empty"
	// StatusFailed means the page could not be fetched or parsed. Err holds
	// the cause.
	StatusFailed Status = "failed"
)

// Record pairs a URL with the text extracted from it. Text is empty unless
// Status is StatusExtracted.
type Record struct {
	ID           string
	URL          string
	Status       Status
	Text         string
	Err          error
	StatusCode   int
	ContentType  string
	Bytes        int
	DetectedBot  bool
	DetectionSrc string // e.g. "Cloudflare", "Akamai", "PerimeterX", "DataDome"
	Duration     time.Duration
	CreatedAt    time.Time
}

// Failed reports whether the record carries a fetch or parse failure.
func (r *Record) Failed() bool {
	return r.Status == StatusFailed
}

// Cause returns the failure message, or "" for successful records.
func (r *Record) Cause() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Preview returns at most n runes of Text. n <= 0 returns the full text.
func (r *Record) Preview(n int) string {
	if n <= 0 || utf8.RuneCountInString(r.Text) <= n {
		return r.Text
	}
	i := 0
	for pos := range r.Text {
		if i == n {
			return r.Text[:pos] + "..."
		}
		i++
	}
	return r.Text
}
