package browser

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/playwright-community/playwright-go"
)

const (
	navigationTimeoutMS = 60_000
	waitTimeoutMS       = 15_000
	renderAttempts      = 2
)

// Renderer drives a headless browser to produce fully rendered DOMs for
// listing search pages. It is a caller-owned resource: construct it, render
// as many pages as needed, then Close. No package-level browser state.
type Renderer struct {
	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
	started bool
}

func NewRenderer() *Renderer {
	return &Renderer{}
}

func (r *Renderer) ensureStarted() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}

	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
		Args: []string{
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	})
	if err != nil {
		pw.Stop()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	r.pw = pw
	r.browser = browser
	r.started = true
	return nil
}

// Render navigates to url, optionally waits for waitFor to appear, and
// returns the parsed DOM plus the raw HTML. Navigation failures are retried
// once; a missing waitFor selector is not fatal because some pages render
// fine without it.
func (r *Renderer) Render(ctx context.Context, url, waitFor string) (*goquery.Document, string, error) {
	if err := r.ensureStarted(); err != nil {
		return nil, "", err
	}

	var lastErr error
	for attempt := 1; attempt <= renderAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}

		html, err := r.renderOnce(url, waitFor)
		if err != nil {
			lastErr = err
			log.Printf("Render attempt %d/%d failed for %s: %v", attempt, renderAttempts, url, err)
			if attempt < renderAttempts {
				select {
				case <-ctx.Done():
					return nil, "", ctx.Err()
				case <-time.After(2 * time.Second):
				}
			}
			continue
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return nil, "", fmt.Errorf("parsing rendered page: %w", err)
		}
		return doc, html, nil
	}

	return nil, "", fmt.Errorf("rendering %s: %w", url, lastErr)
}

func (r *Renderer) renderOnce(url, waitFor string) (string, error) {
	page, err := r.browser.NewPage()
	if err != nil {
		return "", fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	_, err = page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(navigationTimeoutMS),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return "", fmt.Errorf("navigation failed: %w", err)
	}

	if waitFor != "" {
		_, err = page.WaitForSelector(waitFor, playwright.PageWaitForSelectorOptions{
			Timeout: playwright.Float(waitTimeoutMS),
		})
		if err != nil {
			log.Printf("Selector %q did not appear on %s, reading DOM anyway", waitFor, url)
		}
	}

	html, err := page.Content()
	if err != nil {
		return "", fmt.Errorf("reading page content: %w", err)
	}
	return html, nil
}

func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		r.browser.Close()
		r.browser = nil
	}
	if r.pw != nil {
		r.pw.Stop()
		r.pw = nil
	}
	r.started = false
}
