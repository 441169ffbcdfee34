package httputil

import (
	"net/http"
	"net/url"
	"time"
)

type Clients struct {
	Scraping *http.Client // optionally proxied, for marketplace pages
	API      *http.Client // direct, for Telegram/Brevo APIs
}

// NewClients builds the two HTTP clients the daemon uses. The scraping client
// never follows redirects so delisted-product redirects stay visible.
func NewClients(proxyURL string, scrapeTimeout time.Duration) *Clients {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyURL != "" {
		if parsed, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	}

	scraping := &http.Client{
		Timeout:   scrapeTimeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	return &Clients{
		Scraping: scraping,
		API:      &http.Client{Timeout: 30 * time.Second},
	}
}
