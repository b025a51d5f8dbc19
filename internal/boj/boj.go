// Package boj talks to the Baekjoon Online Judge: it fetches pages through a
// pluggable Fetcher, hands them to the extractors, and posts submissions.
package boj

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the site root.
const DefaultBaseURL = "https://www.acmicpc.net"

// PageKind names the kind of page a request targets. It labels metrics and
// snapshot paths and selects the shape check used for headless promotion.
type PageKind string

// Pages the client reads.
const (
	PageSteps   PageKind = "steps"
	PageStep    PageKind = "step"
	PageProblem PageKind = "problem"
	PageSubmit  PageKind = "submit"
	PageStatus  PageKind = "status"
)

// Request describes one page fetch. A non-nil Form turns it into a POST.
type Request struct {
	Kind    PageKind
	URL     string
	Form    url.Values
	Headers http.Header
}

// Method is the HTTP method the request implies.
func (r Request) Method() string {
	if r.Form != nil {
		return http.MethodPost
	}
	return http.MethodGet
}

// Response is a fetched page.
type Response struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}

// Fetcher retrieves a page. Implementations map a 404 to ErrNotFound.
type Fetcher interface {
	Fetch(ctx context.Context, request Request) (Response, error)
}

// HeadlessDetector decides whether a plain fetch came back unusable and
// should be retried through a browser.
type HeadlessDetector interface {
	ShouldPromote(request Request, resp Response) bool
}

// SnapshotStore keeps raw pages for later inspection and returns a URI.
type SnapshotStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Routes builds site URLs.
type Routes struct {
	base string
}

// NewRoutes validates base and trims any trailing slash.
func NewRoutes(base string) (Routes, error) {
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Routes{}, fmt.Errorf("invalid base url %q", base)
	}
	return Routes{base: strings.TrimRight(base, "/")}, nil
}

// Steps is the category index.
func (r Routes) Steps() string { return r.base + "/step" }

// Step lists the problems of one category.
func (r Routes) Step(id int) string { return r.base + "/step/" + strconv.Itoa(id) }

// Problem is a problem page.
func (r Routes) Problem(id int) string { return r.base + "/problem/" + strconv.Itoa(id) }

// Submit is the submit form of a problem; the same URL accepts the POST.
func (r Routes) Submit(id int) string { return r.base + "/submit/" + strconv.Itoa(id) }

// Status lists a user's submissions, optionally for one problem.
func (r Routes) Status(user string, problemID int) string {
	q := url.Values{}
	if user != "" {
		q.Set("user_id", user)
	}
	if problemID > 0 {
		q.Set("problem_id", strconv.Itoa(problemID))
	}
	if len(q) == 0 {
		return r.base + "/status"
	}
	return r.base + "/status?" + q.Encode()
}
