package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/template"
	"time"

	"github.com/FranksOps/cse/internal/page"
)

// Summary aggregates the outcome of one search-and-extract run.
type Summary struct {
	Query           string         `json:"query"`
	Links           int            `json:"links"`
	Extracted       int            `json:"extracted"`
	Empty           int            `json:"empty"`
	Failed          int            `json:"failed"`
	TotalDetections int            `json:"total_detections"`
	StatusCodes     map[int]int    `json:"status_codes"`
	DetectionsBySrc map[string]int `json:"detections_by_src"`
	TotalBytes      int64          `json:"total_bytes"`
	TotalChars      int            `json:"total_chars"`
	StartTime       time.Time      `json:"start_time"`
	EndTime         time.Time      `json:"end_time"`
	Duration        time.Duration  `json:"duration_ns"`
}

// GenerateSummary tallies records. links is the number of links collected,
// which can exceed len(records) when a run is cancelled.
func GenerateSummary(query string, links int, records []*page.Record, start, end time.Time) Summary {
	s := Summary{
		Query:           query,
		Links:           links,
		StatusCodes:     make(map[int]int),
		DetectionsBySrc: make(map[string]int),
		StartTime:       start,
		EndTime:         end,
		Duration:        end.Sub(start),
	}

	for _, r := range records {
		switch r.Status {
		case page.StatusExtracted:
			s.Extracted++
		case page.StatusEmpty:
			s.Empty++
		case page.StatusFailed:
			s.Failed++
		}
		if r.DetectedBot {
			s.TotalDetections++
			s.DetectionsBySrc[r.DetectionSrc]++
		}
		if r.StatusCode > 0 {
			s.StatusCodes[r.StatusCode]++
		}
		s.TotalBytes += int64(r.Bytes)
		s.TotalChars += len([]rune(r.Text))
	}

	return s
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("report: encode json: %w", err)
	}
	return nil
}

var textReport = template.Must(template.New("textReport").Parse(`Search Summary
--------------
Query:         {{.Query}}
Time:          {{.StartTime.Format "2006-01-02 15:04:05"}} - {{.EndTime.Format "2006-01-02 15:04:05"}}
Duration:      {{.Duration}}
Links:         {{.Links}}
Extracted:     {{.Extracted}}
Empty:         {{.Empty}}
Failed:        {{.Failed}}
Total Bytes:   {{.TotalBytes}} bytes
Total Chars:   {{.TotalChars}}

Status Codes:
{{- range $code, $count := .StatusCodes}}
  {{$code}}: {{$count}}
{{- else}}
  None
{{- end}}

Detections: {{.TotalDetections}}
{{- range $src, $count := .DetectionsBySrc}}
  {{$src}}: {{$count}}
{{- else}}
  None
{{- end}}
`))

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	if err := textReport.Execute(w, summary); err != nil {
		return fmt.Errorf("report: render text: %w", err)
	}
	return nil
}
