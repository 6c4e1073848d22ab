package bypass

import (
	"bytes"
	"net/http"
	"slices"
	"strings"
)

// Response is the part of an HTTP exchange the detectors look at.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Signature describes how a bot protection vendor announces a block or
// challenge page. A response matches when its status is one of Statuses and
// any one of the server, header or body markers is present.
type Signature struct {
	Source      string
	Statuses    []int
	Servers     []string // lower-case substrings of the Server header
	Headers     []string // presence of any of these headers
	BodyMarkers []string
}

// DefaultSignatures covers the vendors most often seen in front of search
// result pages.
var DefaultSignatures = []Signature{
	{
		Source:   "Cloudflare",
		Statuses: []int{http.StatusForbidden, http.StatusServiceUnavailable},
		Servers:  []string{"cloudflare"},
		BodyMarkers: []string{
			"cf-browser-verification",
			"cloudflare-nginx",
			"cf-turnstile",
			"Attention Required! | Cloudflare",
		},
	},
	{
		Source:      "Akamai",
		Statuses:    []int{http.StatusForbidden},
		Servers:     []string{"akamai"},
		BodyMarkers: []string{"Reference #\x00Access Denied"},
	},
	{
		Source:      "DataDome",
		Statuses:    []int{http.StatusForbidden},
		Servers:     []string{"datadome"},
		Headers:     []string{"X-DataDome", "X-DataDome-Response"},
		BodyMarkers: []string{"geo.captcha-delivery.com", "datadome"},
	},
	{
		Source:      "PerimeterX",
		Statuses:    []int{http.StatusForbidden},
		Headers:     []string{"X-Px-Captcha"},
		BodyMarkers: []string{"client.perimeterx.net", "px-captcha", "_pxBlock"},
	},
}

// Detect returns the source of the first signature the response matches.
func Detect(resp Response, signatures []Signature) (source string, detected bool) {
	for _, sig := range signatures {
		if sig.matches(resp) {
			return sig.Source, true
		}
	}
	return "", false
}

func (s Signature) matches(resp Response) bool {
	if !slices.Contains(s.Statuses, resp.StatusCode) {
		return false
	}

	server := strings.ToLower(resp.Header.Get("Server"))
	for _, marker := range s.Servers {
		if strings.Contains(server, marker) {
			return true
		}
	}
	for _, h := range s.Headers {
		if resp.Header.Get(h) != "" {
			return true
		}
	}
	for _, marker := range s.BodyMarkers {
		if containsAll(resp.Body, marker) {
			return true
		}
	}
	return false
}

// containsAll treats NUL as a separator so one marker can require several
// fragments anywhere in the body.
func containsAll(body []byte, marker string) bool {
	for _, part := range strings.Split(marker, "\x00") {
		if !bytes.Contains(body, []byte(part)) {
			return false
		}
	}
	return true
}
