// Package headless re-fetches pages through headless Chrome when the plain
// response is a challenge or an unrendered shell.
package headless

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/Nergy-TCGeneric/Zipline/internal/boj"
)

// ChallengeSelector matches the interstitial shown while the site checks the
// browser. Rendering waits until it is gone.
const ChallengeSelector = "#challenge-form, #challenge-running"

const defaultNavTimeout = 45 * time.Second

// ErrFormUnsupported is returned for POST requests; submissions never go
// through the browser.
var ErrFormUnsupported = errors.New("headless fetcher does not post forms")

// Config controls the browser session.
type Config struct {
	UserAgent         string
	NavigationTimeout time.Duration
}

// Fetcher implements boj.Fetcher with one Chrome process per client. Every
// Fetch opens a fresh tab carrying the request's session cookies.
type Fetcher struct {
	cfg         Config
	allocator   context.Context
	allocCancel context.CancelFunc
}

// NewChromedp starts the allocator. Chrome itself is launched lazily on the
// first Fetch.
func NewChromedp(cfg Config) (*Fetcher, error) {
	if cfg.NavigationTimeout < 0 {
		return nil, fmt.Errorf("navigation timeout must be >= 0")
	}
	if cfg.NavigationTimeout == 0 {
		cfg.NavigationTimeout = defaultNavTimeout
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("enable-automation", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &Fetcher{cfg: cfg, allocator: allocCtx, allocCancel: allocCancel}, nil
}

// Close shuts the browser down.
func (f *Fetcher) Close() {
	f.allocCancel()
}

// Fetch renders request.URL and returns the document once the challenge
// interstitial is gone.
func (f *Fetcher) Fetch(ctx context.Context, request boj.Request) (boj.Response, error) {
	if request.Form != nil {
		return boj.Response{}, ErrFormUnsupported
	}
	cookies, err := sessionCookies(request.URL, request.Headers)
	if err != nil {
		return boj.Response{}, err
	}

	tabCtx, closeTab := chromedp.NewContext(f.allocator)
	defer closeTab()
	tabCtx, cancel := context.WithTimeout(tabCtx, f.cfg.NavigationTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var status documentStatus
	chromedp.ListenTarget(tabCtx, status.observe)

	start := time.Now()
	var html string
	err = chromedp.Run(tabCtx,
		f.session(cookies),
		chromedp.Navigate(request.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.WaitNotPresent(ChallengeSelector, chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return boj.Response{}, fmt.Errorf("render %s: %w", request.URL, err)
	}

	code := status.code()
	if code == http.StatusNotFound {
		return boj.Response{}, fmt.Errorf("%w: %s", boj.ErrNotFound, request.URL)
	}
	return boj.Response{
		URL:          request.URL,
		StatusCode:   code,
		Body:         []byte(html),
		Duration:     time.Since(start),
		UsedHeadless: true,
	}, nil
}

func (f *Fetcher) session(cookies []*network.CookieParam) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if f.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(f.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		if len(cookies) > 0 {
			if err := network.SetCookies(cookies).Do(ctx); err != nil {
				return fmt.Errorf("set session cookies: %w", err)
			}
		}
		return nil
	})
}

// sessionCookies turns the Cookie header the client attaches into browser
// cookies bound to the request's host.
func sessionCookies(rawURL string, headers http.Header) ([]*network.CookieParam, error) {
	line := headers.Get("Cookie")
	if line == "" {
		return nil, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("cookie scope for %q: invalid url", rawURL)
	}
	parsed, err := http.ParseCookie(line)
	if err != nil {
		return nil, fmt.Errorf("parse session cookie: %w", err)
	}
	out := make([]*network.CookieParam, 0, len(parsed))
	for _, c := range parsed {
		out = append(out, &network.CookieParam{
			Name:   c.Name,
			Value:  c.Value,
			Domain: u.Hostname(),
			Path:   "/",
			Secure: u.Scheme == "https",
		})
	}
	return out, nil
}

// documentStatus keeps the status of the last top-level document response.
// Events arrive on the chromedp listener goroutine.
type documentStatus struct {
	status atomic.Int64
}

func (d *documentStatus) observe(ev any) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	d.status.Store(resp.Response.Status)
}

// code defaults to 200 when no document response was seen, which happens
// when the page is served from cache.
func (d *documentStatus) code() int {
	if s := d.status.Load(); s != 0 {
		return int(s)
	}
	return http.StatusOK
}
