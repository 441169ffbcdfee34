package scraper

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Browser is the Playwright fallback for pages that block plain HTTP
// fetches. One headless Chromium instance is shared; pages are opened per
// fetch and serialized so the marketplace sees one browser, not a fleet.
type Browser struct {
	mu          sync.Mutex
	pw          *playwright.Playwright
	browser     playwright.Browser
	initialized bool
}

func NewBrowser() *Browser {
	return &Browser{}
}

func (b *Browser) ensure() error {
	if b.initialized {
		return nil
	}

	var err error
	b.pw, err = playwright.Run()
	if err != nil {
		return fmt.Errorf("start playwright: %w", err)
	}

	b.browser, err = b.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	})
	if err != nil {
		b.pw.Stop()
		b.pw = nil
		return fmt.Errorf("launch browser: %w", err)
	}

	b.initialized = true
	return nil
}

// FetchHTML loads the URL in the headless browser and returns the rendered
// page content. waitMS gives client-side price widgets time to settle.
func (b *Browser) FetchHTML(ctx context.Context, url string, waitMS int) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ensure(); err != nil {
		return "", err
	}

	page, err := b.browser.NewPage(playwright.BrowserNewPageOptions{
		UserAgent: playwright.String(defaultUserAgent),
	})
	if err != nil {
		return "", fmt.Errorf("new page: %w", err)
	}
	defer page.Close()

	deadline := 60 * time.Second
	if d, ok := ctx.Deadline(); ok {
		if remain := time.Until(d); remain < deadline {
			deadline = remain
		}
	}

	if _, err := page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(float64(deadline.Milliseconds())),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return "", fmt.Errorf("goto: %w", err)
	}

	if waitMS > 0 {
		page.WaitForTimeout(float64(waitMS))
	}

	html, err := page.Content()
	if err != nil {
		return "", fmt.Errorf("page content: %w", err)
	}
	return html, nil
}

func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			log.Printf("Warning: browser close: %v", err)
		}
		b.browser = nil
	}
	if b.pw != nil {
		b.pw.Stop()
		b.pw = nil
	}
	b.initialized = false
}
