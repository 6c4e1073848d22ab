// Package output renders extracted pages to a writer.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/FranksOps/cse/internal/page"
)

// Format names an output encoding.
type Format string

const (
	FormatText  Format = "text"
	FormatJSONL Format = "jsonl"
	FormatCSV   Format = "csv"
)

// Formats lists the supported formats.
var Formats = []Format{FormatText, FormatJSONL, FormatCSV}

// ParseFormat maps a flag value to a Format. "" means FormatText.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSONL, FormatCSV:
		return f, nil
	default:
		return "", fmt.Errorf("output: unknown format %q", s)
	}
}

// Sink receives records in the order they should appear.
type Sink interface {
	Write(rec *page.Record) error
	// Flush writes out anything buffered. The underlying writer is not
	// closed.
	Flush() error
}

// New returns a Sink for format writing to w. preview truncates the text
// of each record to that many runes; 0 keeps it whole.
func New(format Format, w io.Writer, preview int) (Sink, error) {
	switch format {
	case FormatText, "":
		return &textSink{w: w, preview: preview}, nil
	case FormatJSONL:
		return &jsonlSink{w: w, preview: preview}, nil
	case FormatCSV:
		return newCSVSink(w, preview), nil
	default:
		return nil, fmt.Errorf("output: unknown format %q", format)
	}
}
