// Package extract turns an HTML document into the flattened visible text of
// its primary content.
package extract

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// Mode selects how the content container is chosen.
type Mode string

const (
	// ModeMain strips boilerplate elements and reads the first <main>, else
	// the first <article>, else <body>.
	ModeMain Mode = "main"
	// ModeBody reads the raw text of every <body> without stripping anything.
	ModeBody Mode = "body"
)

// DefaultMinLineLength is the line-length floor used by ModeMain. Shorter
// lines are mostly menu entries, breadcrumbs and button labels.
const DefaultMinLineLength = 50

// DefaultStripTags are removed before text extraction in ModeMain.
var DefaultStripTags = []string{"script", "style", "nav", "footer", "aside", "form"}

// Policy controls extraction.
type Policy struct {
	Mode Mode
	// StripTags are removed from the document before reading text. Ignored
	// in ModeBody.
	StripTags []string
	// MinLineLength drops lines with fewer runes. Zero keeps every
	// non-blank line.
	MinLineLength int
}

// DefaultPolicy returns the reference policy.
func DefaultPolicy() Policy {
	return PolicyFor(ModeMain)
}

// PolicyFor returns the stock policy for a mode.
func PolicyFor(m Mode) Policy {
	if m == ModeBody {
		return Policy{Mode: ModeBody}
	}
	return Policy{
		Mode:          ModeMain,
		StripTags:     append([]string(nil), DefaultStripTags...),
		MinLineLength: DefaultMinLineLength,
	}
}

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeMain, ModeBody:
		return m, nil
	case "":
		return ModeMain, nil
	default:
		return "", fmt.Errorf("extract: unknown mode %q", s)
	}
}

// FromReader parses r as HTML and applies the policy.
func (p Policy) FromReader(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("extract: parse html: %w", err)
	}
	return p.FromDocument(doc), nil
}

// FromDocument applies the policy to an already parsed document. The
// document is modified when StripTags is non-empty.
func (p Policy) FromDocument(doc *goquery.Document) string {
	if p.Mode == ModeBody {
		var parts []string
		doc.Find("body").Each(func(_ int, s *goquery.Selection) {
			if text := p.clean(s.Text()); text != "" {
				parts = append(parts, text)
			}
		})
		return strings.Join(parts, "\n")
	}

	if len(p.StripTags) > 0 {
		doc.Find(strings.Join(p.StripTags, ", ")).Remove()
	}
	return p.clean(container(doc).Text())
}

// container picks the primary content element.
func container(doc *goquery.Document) *goquery.Selection {
	for _, sel := range []string{"main", "article", "body"} {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			return s
		}
	}
	return doc.Selection
}

// clean trims every line, drops blank ones and those under the length floor.
func (p Policy) clean(text string) string {
	var kept []string
	for _, line := range strings.FieldsFunc(text, isLineBreak) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if p.MinLineLength > 0 && utf8.RuneCountInString(line) < p.MinLineLength {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// isLineBreak reports the Unicode line boundaries plus the ASCII file, group
// and record separators.
func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}
