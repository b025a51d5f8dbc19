// Package detector decides when a plain page fetch must be repeated through
// the headless browser.
package detector

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Nergy-TCGeneric/Zipline/internal/boj"
)

// DefaultMinHTMLBytes is used when no threshold is configured.
const DefaultMinHTMLBytes = 2048

// DefaultKeywords mark the interstitial served instead of the real page.
var DefaultKeywords = []string{
	"just a moment...",
	"challenge-platform",
	"cf-challenge",
	"enable javascript and cookies to continue",
}

// DefaultSelectors lists, per page kind, the elements a usable page has.
var DefaultSelectors = map[boj.PageKind][]string{
	boj.PageSteps:   {"table tbody"},
	boj.PageStep:    {"table tbody"},
	boj.PageProblem: {"#problem_title", "#problem-info"},
	boj.PageSubmit:  {"form"},
	boj.PageStatus:  {"#status-table"},
}

// Heuristic flags pages that are too short, carry a challenge keyword, or
// lack the elements expected for their kind.
type Heuristic struct {
	minHTMLBytes int
	keywords     [][]byte
	selectors    map[boj.PageKind][]string
}

// NewHeuristic creates a detector. A zero minBytes uses DefaultMinHTMLBytes,
// a negative one disables the length check. Nil keywords or selectors fall
// back to the defaults.
func NewHeuristic(minBytes int, keywords []string, selectors map[boj.PageKind][]string) *Heuristic {
	if minBytes == 0 {
		minBytes = DefaultMinHTMLBytes
	}
	if keywords == nil {
		keywords = DefaultKeywords
	}
	if selectors == nil {
		selectors = DefaultSelectors
	}
	lower := make([][]byte, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		lower = append(lower, bytes.ToLower([]byte(kw)))
	}
	return &Heuristic{minHTMLBytes: minBytes, keywords: lower, selectors: selectors}
}

// ShouldPromote reports whether resp needs a browser re-fetch. Only 200
// responses are considered; anything else is an answer in its own right.
func (h *Heuristic) ShouldPromote(req boj.Request, resp boj.Response) bool {
	if h == nil || resp.StatusCode != http.StatusOK {
		return false
	}
	switch {
	case len(resp.Body) == 0:
		return true
	case h.minHTMLBytes > 0 && len(resp.Body) < h.minHTMLBytes:
		return true
	case h.containsKeywords(resp.Body):
		return true
	default:
		return h.missingSelectors(req.Kind, resp.Body)
	}
}

func (h *Heuristic) containsKeywords(body []byte) bool {
	if len(h.keywords) == 0 {
		return false
	}
	lowerBody := bytes.ToLower(body)
	for _, kw := range h.keywords {
		if bytes.Contains(lowerBody, kw) {
			return true
		}
	}
	return false
}

func (h *Heuristic) missingSelectors(kind boj.PageKind, body []byte) bool {
	selectors := h.selectors[kind]
	if len(selectors) == 0 {
		return false
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return true
	}
	for _, sel := range selectors {
		if sel == "" {
			continue
		}
		if doc.Find(sel).Length() == 0 {
			return true
		}
	}
	return false
}
