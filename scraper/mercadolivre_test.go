package scraper

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"pricemonitor/config"
)

func loadDoc(t *testing.T, name string) *goquery.Document {
	t.Helper()
	path := filepath.Join("testdata", name)
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to read fixture %s: %v", name, err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		t.Fatalf("failed to parse fixture %s: %v", name, err)
	}
	return doc
}

func testHandler() *MercadoLivre {
	return NewMercadoLivre(&config.MarketplaceConfig{
		ID:      "mercadolivre",
		Domains: []string{"mercadolivre.com.br", "mercadolibre.com"},
		TitleSelectors: []string{
			"h1.ui-pdp-title",
		},
		PromoSelectors: []string{
			".ui-pdp-price__second-line .andes-money-amount__fraction",
		},
		PriceSelectors: []string{
			"[data-testid='price'] .andes-money-amount__fraction",
			".ui-pdp-price__first-line .andes-money-amount__fraction",
			".andes-money-amount__fraction",
		},
		PreviousSelectors: []string{
			".andes-money-amount--previous-price .andes-money-amount__fraction",
		},
		DiscountSelectors: []string{
			".ui-pdp-price__second-line .andes-money-amount__discount",
			".andes-money-amount__discount",
		},
		ImageSelectors: []string{
			"meta[property='og:image']",
			".ui-pdp-gallery__figure img",
		},
		JSONLDPriceEnabled: true,
	}, nil, nil)
}

func TestParse_PromoListing(t *testing.T) {
	obs, err := testHandler().Parse(loadDoc(t, "mercadolivre_promo.html"))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if obs.Price != 284905 {
		t.Fatalf("price = %d, want 284905", obs.Price)
	}
	if obs.Title != "Notebook Gamer Acer Nitro 5 I5 16gb Rtx 3050" {
		t.Fatalf("unexpected title %q", obs.Title)
	}
	if obs.OriginalPrice == nil || *obs.OriginalPrice != 399990 {
		t.Fatalf("originalPrice = %v, want 399990", obs.OriginalPrice)
	}
	if obs.DiscountPercent == nil || *obs.DiscountPercent != 28 {
		t.Fatalf("discountPercent = %v, want 28", obs.DiscountPercent)
	}
	if obs.ImageURL != "https://http2.mlstatic.com/D_NQ_NP_912835-MLB.webp" {
		t.Fatalf("unexpected image %q", obs.ImageURL)
	}
}

func TestParse_SimpleListing(t *testing.T) {
	obs, err := testHandler().Parse(loadDoc(t, "mercadolivre_simple.html"))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if obs.Price != 7990 {
		t.Fatalf("price = %d, want 7990", obs.Price)
	}
	if obs.Title != "Mouse Sem Fio Logitech M170" {
		t.Fatalf("unexpected title %q", obs.Title)
	}
	if obs.OriginalPrice != nil {
		t.Fatalf("no promo means no original price, got %v", *obs.OriginalPrice)
	}
	if obs.DiscountPercent != nil {
		t.Fatalf("no promo means no discount, got %v", *obs.DiscountPercent)
	}
}

func TestParse_JSONLDFallback(t *testing.T) {
	obs, err := testHandler().Parse(loadDoc(t, "mercadolivre_jsonld.html"))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if obs.Price != 32900 {
		t.Fatalf("price = %d, want 32900", obs.Price)
	}
	if obs.Title != "Echo Dot 5ª Geração Alexa" {
		t.Fatalf("unexpected title %q", obs.Title)
	}
}

func TestParse_NoPriceFails(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(
		strings.NewReader(`<html><body><h1 class="ui-pdp-title">Sem preço</h1></body></html>`))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}

	if _, err := testHandler().Parse(doc); err != ErrPriceNotFound {
		t.Fatalf("err = %v, want ErrPriceNotFound", err)
	}
}

func TestMatches(t *testing.T) {
	h := testHandler()
	for host, want := range map[string]bool{
		"mercadolivre.com.br":         true,
		"produto.mercadolivre.com.br": true,
		"www.mercadolibre.com":        true,
		"amazon.com.br":               false,
		"mercadolivre.com.br.evil.io": false,
	} {
		if got := h.Matches(host); got != want {
			t.Fatalf("Matches(%q) = %v, want %v", host, got, want)
		}
	}
}
