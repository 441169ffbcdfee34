package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"pricemonitor/config"
	"pricemonitor/models"
)

// FreeProductLimit caps how many products an unverified account can track.
const FreeProductLimit = 7

const defaultHistoryLimit = 30

type ProductStore interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	UpdateProduct(ctx context.Context, p *models.Product) error
	GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetProductByUserAndURL(ctx context.Context, userID uuid.UUID, url string) (*models.Product, error)
	GetProductsByUser(ctx context.Context, userID uuid.UUID) ([]models.Product, error)
	CountProductsByUser(ctx context.Context, userID uuid.UUID) (int, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SnapshotHistory(ctx context.Context, productID uuid.UUID, since *time.Time, limit int) ([]models.PriceSnapshot, error)
}

// Enqueuer hands a product to the scrape pipeline. The scheduler implements
// it; tests use a recording stub.
type Enqueuer interface {
	Enqueue(productID uuid.UUID)
	EnqueueManual(productID uuid.UUID)
}

type ProductService struct {
	store        ProductStore
	marketplaces map[string]*config.MarketplaceConfig
	enqueuer     Enqueuer
}

func NewProductService(store ProductStore, marketplaces map[string]*config.MarketplaceConfig, enqueuer Enqueuer) *ProductService {
	return &ProductService{store: store, marketplaces: marketplaces, enqueuer: enqueuer}
}

// Add registers a URL for monitoring. The product is created in PENDING with
// a placeholder name derived from the URL and resolved by the first scrape,
// which is enqueued before returning. Submitting a URL the user already
// tracks returns the existing product unchanged.
func (s *ProductService) Add(ctx context.Context, userID uuid.UUID, rawURL string) (*models.Product, error) {
	normalized, err := s.normalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.GetProductByUserAndURL(ctx, userID, normalized)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	if !user.EmailVerified {
		count, err := s.store.CountProductsByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		if count >= FreeProductLimit {
			return nil, &QuotaError{Limit: FreeProductLimit, Current: count}
		}
	}

	p := &models.Product{
		ID:        uuid.New(),
		UserID:    userID,
		URL:       normalized,
		Name:      placeholderName(normalized),
		Status:    models.ProductStatusPending,
		CreatedAt: time.Now(),
	}
	if err := s.store.CreateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	if s.enqueuer != nil {
		s.enqueuer.Enqueue(p.ID)
	}
	return p, nil
}

func (s *ProductService) List(ctx context.Context, userID uuid.UUID) ([]models.Product, error) {
	return s.store.GetProductsByUser(ctx, userID)
}

func (s *ProductService) Get(ctx context.Context, userID, productID uuid.UUID) (*models.Product, error) {
	return s.owned(ctx, userID, productID)
}

// History returns snapshots newest first, capped at defaultHistoryLimit when
// the caller does not ask for a specific window.
func (s *ProductService) History(ctx context.Context, userID, productID uuid.UUID, since *time.Time, limit int) ([]models.PriceSnapshot, error) {
	if _, err := s.owned(ctx, userID, productID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.store.SnapshotHistory(ctx, productID, since, limit)
}

func (s *ProductService) Delete(ctx context.Context, userID, productID uuid.UUID) error {
	if _, err := s.owned(ctx, userID, productID); err != nil {
		return err
	}
	return s.store.DeleteProduct(ctx, productID)
}

// Refresh queues an immediate out-of-cycle scrape.
func (s *ProductService) Refresh(ctx context.Context, userID, productID uuid.UUID) error {
	if _, err := s.owned(ctx, userID, productID); err != nil {
		return err
	}
	if s.enqueuer != nil {
		s.enqueuer.EnqueueManual(productID)
	}
	return nil
}

// RefreshAll queues an immediate scrape for every product the user tracks and
// returns how many were queued.
func (s *ProductService) RefreshAll(ctx context.Context, userID uuid.UUID) (int, error) {
	products, err := s.store.GetProductsByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if s.enqueuer == nil {
		return 0, nil
	}
	for _, p := range products {
		s.enqueuer.EnqueueManual(p.ID)
	}
	return len(products), nil
}

// UpdatePrefs sets the notification flags. A nil pointer leaves the stored
// flag as it is.
func (s *ProductService) UpdatePrefs(ctx context.Context, userID, productID uuid.UUID, notifyDrop, notifyIncrease *bool) (*models.Product, error) {
	p, err := s.owned(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	if notifyDrop != nil {
		p.NotifyOnPriceDrop = notifyDrop
	}
	if notifyIncrease != nil {
		p.NotifyOnPriceIncrease = notifyIncrease
	}
	if err := s.store.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProductService) owned(ctx context.Context, userID, productID uuid.UUID) (*models.Product, error) {
	p, err := s.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	if p.UserID != userID {
		return nil, ErrForbidden
	}
	return p, nil
}

// normalizeURL validates that the URL belongs to a configured marketplace and
// strips query string and fragment so tracking parameters never create
// duplicate products.
func (s *ProductService) normalizeURL(rawURL string) (string, error) {
	raw := strings.TrimSpace(rawURL)
	// Pasted links sometimes arrive with the scheme doubled.
	raw = strings.Replace(raw, "https://https://", "https://", 1)
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", ErrInvalidURL
	}

	if s.marketplaceFor(u.Hostname()) == nil {
		return "", ErrInvalidURL
	}

	u.RawQuery = ""
	u.Fragment = ""
	u.Scheme = "https"
	return strings.TrimSuffix(u.String(), "/"), nil
}

func (s *ProductService) marketplaceFor(host string) *config.MarketplaceConfig {
	host = strings.ToLower(host)
	for _, mp := range s.marketplaces {
		for _, domain := range mp.Domains {
			if host == domain || strings.HasSuffix(host, "."+domain) {
				return mp
			}
		}
	}
	return nil
}

// placeholderName derives a readable stand-in from the URL slug, shown until
// the first successful scrape replaces it with the real title.
func placeholderName(normalized string) string {
	u, err := url.Parse(normalized)
	if err != nil {
		return "Produto"
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	best := ""
	for _, seg := range segments {
		if strings.Contains(seg, "-") && len(seg) > len(best) {
			best = seg
		}
	}
	if best == "" {
		return "Produto"
	}

	words := strings.Split(best, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	name := strings.Join(words, " ")
	if len(name) > 120 {
		name = name[:120]
	}
	return name
}
