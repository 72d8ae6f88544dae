// Package verify checks that a deployed frontend draft URL serves the app.
package verify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds each request.
const DefaultTimeout = 10 * time.Second

// DeepLinkPath is a client-side route the SPA fallback must serve.
const DeepLinkPath = "/student/dashboard"

type Level string

const (
	Pass Level = "pass"
	Warn Level = "warn"
	Fail Level = "fail"
)

type Check struct {
	Name        string
	URL         string
	Status      int
	ContentType string
	Level       Level
	Detail      string
}

type Report struct {
	Checks []Check
}

// Passed is false when any check failed. Warnings do not fail the run.
func (r Report) Passed() bool {
	for _, c := range r.Checks {
		if c.Level == Fail {
			return false
		}
	}
	return true
}

type Verifier struct {
	Client *http.Client
}

func New() *Verifier {
	return &Verifier{Client: &http.Client{Timeout: DefaultTimeout}}
}

// Run fetches the root page and the deep link concurrently. A bad URL is
// returned as an error; unreachable hosts become failed checks.
func (v *Verifier) Run(ctx context.Context, draftURL string) (Report, error) {
	base, err := url.Parse(draftURL)
	if err != nil {
		return Report{}, fmt.Errorf("invalid URL %q: %w", draftURL, err)
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return Report{}, fmt.Errorf("invalid URL %q: need an http or https URL with a host", draftURL)
	}
	deep := base.ResolveReference(&url.URL{Path: DeepLinkPath})

	checks := make([]Check, 2)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		checks[0] = v.checkRoot(gctx, base.String())
		return nil
	})
	g.Go(func() error {
		checks[1] = v.checkDeepLink(gctx, deep.String())
		return nil
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	return Report{Checks: checks}, nil
}

func (v *Verifier) checkRoot(ctx context.Context, target string) Check {
	c := Check{Name: "root", URL: target}
	status, ctype, body, err := v.fetch(ctx, target)
	c.Status, c.ContentType = status, ctype
	switch {
	case err != nil:
		c.Level, c.Detail = Fail, "unreachable: "+err.Error()
	case status != http.StatusOK:
		c.Level, c.Detail = Fail, fmt.Sprintf("expected HTTP 200, got %d", status)
	case strings.Contains(strings.ToLower(body), "not found"):
		c.Level, c.Detail = Fail, `page contains "Not Found"; deployment did not complete`
	case !strings.Contains(body, `<div id="root">`) && !strings.Contains(body, `<div id='root'>`):
		c.Level, c.Detail = Fail, `missing <div id="root">`
	default:
		c.Level, c.Detail = Pass, "serves app HTML"
	}
	return c
}

func (v *Verifier) checkDeepLink(ctx context.Context, target string) Check {
	c := Check{Name: "deep link", URL: target}
	status, ctype, _, err := v.fetch(ctx, target)
	c.Status, c.ContentType = status, ctype
	switch {
	case err != nil:
		c.Level, c.Detail = Fail, "unreachable: "+err.Error()
	case status == http.StatusOK || status == http.StatusNotFound:
		c.Level, c.Detail = Pass, "deep link handled"
	default:
		c.Level, c.Detail = Warn, fmt.Sprintf("HTTP %d; SPA fallback may be misconfigured", status)
	}
	return c
}

func (v *Verifier) fetch(ctx context.Context, target string) (int, string, string, error) {
	client := v.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, "", "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, "", "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return resp.StatusCode, resp.Header.Get("Content-Type"), "", err
	}
	return resp.StatusCode, resp.Header.Get("Content-Type"), string(body), nil
}
