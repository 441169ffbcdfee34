package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"pricemonitor/config"
	"pricemonitor/models"
	"pricemonitor/services"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var (
	jsonldOffersRe = regexp.MustCompile(`"offers"[^}]*"price"\s*:\s*"?([0-9.]+)"?`)
	jsonldPriceRe  = regexp.MustCompile(`"price"\s*:\s*"?([0-9.]+)"?`)
	jsonldNameRe   = regexp.MustCompile(`"name"\s*:\s*"([^"]+)"`)
	discountRe     = regexp.MustCompile(`(\d+)\s*%`)
)

// MercadoLivre scrapes mercadolivre.com.br product pages. Selector lists come
// from the marketplace YAML so layout changes are a config edit, not a
// rebuild.
type MercadoLivre struct {
	cfg     *config.MarketplaceConfig
	client  *http.Client
	browser *Browser

	// simple spacing between fetches so the periodic cycle does not
	// hammer the marketplace
	mu        sync.Mutex
	lastFetch time.Time
}

func NewMercadoLivre(cfg *config.MarketplaceConfig, client *http.Client, browser *Browser) *MercadoLivre {
	return &MercadoLivre{cfg: cfg, client: client, browser: browser}
}

func (h *MercadoLivre) ID() string {
	return h.cfg.ID
}

func (h *MercadoLivre) Matches(host string) bool {
	for _, domain := range h.cfg.Domains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

func (h *MercadoLivre) Scrape(ctx context.Context, productURL string) (*services.Observation, error) {
	h.rateLimit()

	html, err := h.fetch(ctx, productURL)
	if err == ErrBlocked && h.browser != nil && h.cfg.BrowserFallback {
		html, err = h.browser.FetchHTML(ctx, productURL, h.cfg.BrowserWaitMS)
	}
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	obs, err := h.Parse(doc)
	if err != nil {
		return nil, err
	}
	obs.At = time.Now()
	return obs, nil
}

func (h *MercadoLivre) fetch(ctx context.Context, productURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, productURL, nil)
	if err != nil {
		return "", err
	}

	ua := defaultUserAgent
	if h.cfg.UserAgentOverride != "" {
		ua = h.cfg.UserAgentOverride
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if h.cfg.AcceptLanguage != "" {
		req.Header.Set("Accept-Language", h.cfg.AcceptLanguage)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		return "", ErrBlocked
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Parse extracts the observation from a product page document. Split from
// Scrape so fixture HTML can exercise it directly.
func (h *MercadoLivre) Parse(doc *goquery.Document) (*services.Observation, error) {
	price, ok := h.currentPrice(doc)
	if !ok {
		return nil, ErrPriceNotFound
	}

	obs := &services.Observation{
		Price:    price,
		Title:    h.title(doc),
		ImageURL: h.image(doc),
	}

	if prev, ok := firstAmount(doc, h.cfg.PreviousSelectors); ok && prev > price {
		obs.OriginalPrice = &prev
	}
	if pct, ok := h.discount(doc); ok {
		obs.DiscountPercent = &pct
	}
	return obs, nil
}

// currentPrice prefers the promo price block; without one it takes the lowest
// of every candidate, since when a listing shows several amounts the lowest
// is the buyable one. JSON-LD is the last resort.
func (h *MercadoLivre) currentPrice(doc *goquery.Document) (models.Cents, bool) {
	if price, ok := firstAmount(doc, h.cfg.PromoSelectors); ok {
		return price, true
	}

	var min models.Cents
	found := false
	for _, sel := range h.cfg.PriceSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if price, ok := amountFrom(s); ok {
				if !found || price < min {
					min = price
					found = true
				}
			}
		})
		if found {
			break
		}
	}
	if found {
		return min, true
	}

	if meta := doc.Find("meta[property='product:price:amount']").First(); meta.Length() > 0 {
		if v, err := strconv.ParseFloat(meta.AttrOr("content", ""), 64); err == nil && v > 0 {
			return models.CentsFromFloat(v), true
		}
	}

	if h.cfg.JSONLDPriceEnabled {
		return jsonldPrice(doc)
	}
	return 0, false
}

func (h *MercadoLivre) title(doc *goquery.Document) string {
	for _, sel := range h.cfg.TitleSelectors {
		if t := strings.TrimSpace(doc.Find(sel).First().Text()); t != "" {
			return t
		}
	}

	var name string
	doc.Find("script[type='application/ld+json']").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if m := jsonldNameRe.FindStringSubmatch(s.Text()); len(m) > 1 {
			name = m[1]
			return false
		}
		return true
	})
	return name
}

func (h *MercadoLivre) image(doc *goquery.Document) string {
	for _, sel := range h.cfg.ImageSelectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		for _, attr := range []string{"content", "data-zoom", "src"} {
			if v, ok := node.Attr(attr); ok && v != "" {
				return v
			}
		}
	}
	return ""
}

func (h *MercadoLivre) discount(doc *goquery.Document) (int, bool) {
	for _, sel := range h.cfg.DiscountSelectors {
		text := strings.TrimSpace(doc.Find(sel).First().Text())
		if m := discountRe.FindStringSubmatch(text); len(m) > 1 {
			pct, err := strconv.Atoi(m[1])
			if err == nil && pct > 0 && pct < 100 {
				return pct, true
			}
		}
	}
	return 0, false
}

func (h *MercadoLivre) rateLimit() {
	if h.cfg.RateLimitMS <= 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	gap := time.Duration(h.cfg.RateLimitMS) * time.Millisecond
	if wait := gap - time.Since(h.lastFetch); wait > 0 {
		time.Sleep(wait)
	}
	h.lastFetch = time.Now()
}

// firstAmount returns the first parseable amount matched by the selector
// list, in order.
func firstAmount(doc *goquery.Document, selectors []string) (models.Cents, bool) {
	for _, sel := range selectors {
		var price models.Cents
		found := false
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if p, ok := amountFrom(s); ok {
				price = p
				found = true
				return false
			}
			return true
		})
		if found {
			return price, true
		}
	}
	return 0, false
}

// amountFrom reads a price from a fraction node, picking up the centavo
// superscript next to it when present. Mercado Livre renders "R$ 1.234,56"
// as <span class="...__fraction">1.234</span><span class="...__cents">56</span>.
func amountFrom(s *goquery.Selection) (models.Cents, bool) {
	fraction := strings.TrimSpace(s.Text())
	if fraction == "" {
		return 0, false
	}

	cents := strings.TrimSpace(s.Parent().Find(".andes-money-amount__cents").First().Text())
	raw := fraction
	if cents != "" {
		raw = fraction + "," + cents
	}

	price, err := models.ParseBRL(raw)
	if err != nil || price <= 0 {
		return 0, false
	}
	return price, true
}

func jsonldPrice(doc *goquery.Document) (models.Cents, bool) {
	var price models.Cents
	found := false
	doc.Find("script[type='application/ld+json']").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		m := jsonldOffersRe.FindStringSubmatch(text)
		if len(m) < 2 {
			m = jsonldPriceRe.FindStringSubmatch(text)
		}
		if len(m) > 1 {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil && v > 0 {
				price = models.CentsFromFloat(v)
				found = true
				return false
			}
		}
		return true
	})
	return price, found
}
