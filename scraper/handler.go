package scraper

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"pricemonitor/config"
	"pricemonitor/httputil"
	"pricemonitor/services"
)

var (
	ErrNoHandler = errors.New("no handler for url")

	// ErrPriceNotFound means the page loaded but no selector or JSON-LD
	// block yielded a price. Counts as a scrape failure.
	ErrPriceNotFound = errors.New("price not found on page")

	// ErrBlocked means the marketplace refused the plain HTTP fetch
	// (403/429). The browser fallback retries these.
	ErrBlocked = errors.New("fetch blocked by marketplace")
)

// Handler scrapes one marketplace. Implementations are safe for concurrent
// use by the worker pool.
type Handler interface {
	ID() string
	Matches(host string) bool
	Scrape(ctx context.Context, productURL string) (*services.Observation, error)
}

// Registry maps product URLs to the handler for their marketplace.
type Registry struct {
	handlers []Handler
}

func NewRegistry(cfg *config.Config, clients *httputil.Clients, browser *Browser) *Registry {
	r := &Registry{}
	for _, mp := range cfg.Marketplaces {
		switch mp.ID {
		case "mercadolivre":
			r.handlers = append(r.handlers, NewMercadoLivre(mp, clients.Scraping, browser))
		}
	}
	return r
}

// HandlerFor returns the handler whose marketplace owns the URL's host.
func (r *Registry) HandlerFor(productURL string) (Handler, error) {
	u, err := url.Parse(productURL)
	if err != nil {
		return nil, ErrNoHandler
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range r.handlers {
		if h.Matches(host) {
			return h, nil
		}
	}
	return nil, ErrNoHandler
}
