package services

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"pricemonitor/config"
	"pricemonitor/models"
)

type fakeProductStore struct {
	users     map[uuid.UUID]*models.User
	products  map[uuid.UUID]*models.Product
	byURL     map[string]*models.Product
	snapshots map[uuid.UUID][]models.PriceSnapshot
}

func newFakeProductStore() *fakeProductStore {
	return &fakeProductStore{
		users:     make(map[uuid.UUID]*models.User),
		products:  make(map[uuid.UUID]*models.Product),
		byURL:     make(map[string]*models.Product),
		snapshots: make(map[uuid.UUID][]models.PriceSnapshot),
	}
}

func (f *fakeProductStore) CreateProduct(_ context.Context, p *models.Product) error {
	f.products[p.ID] = p
	f.byURL[p.UserID.String()+"|"+p.URL] = p
	return nil
}

func (f *fakeProductStore) UpdateProduct(_ context.Context, p *models.Product) error {
	f.products[p.ID] = p
	return nil
}

func (f *fakeProductStore) GetProductByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	return f.products[id], nil
}

func (f *fakeProductStore) GetProductByUserAndURL(_ context.Context, userID uuid.UUID, url string) (*models.Product, error) {
	return f.byURL[userID.String()+"|"+url], nil
}

func (f *fakeProductStore) GetProductsByUser(_ context.Context, userID uuid.UUID) ([]models.Product, error) {
	var out []models.Product
	for _, p := range f.products {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProductStore) CountProductsByUser(_ context.Context, userID uuid.UUID) (int, error) {
	n := 0
	for _, p := range f.products {
		if p.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeProductStore) DeleteProduct(_ context.Context, id uuid.UUID) error {
	if p, ok := f.products[id]; ok {
		delete(f.byURL, p.UserID.String()+"|"+p.URL)
		delete(f.products, id)
	}
	return nil
}

func (f *fakeProductStore) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	return f.users[id], nil
}

// SnapshotHistory mirrors the store contract: newest first, optional window,
// optional cap.
func (f *fakeProductStore) SnapshotHistory(_ context.Context, productID uuid.UUID, since *time.Time, limit int) ([]models.PriceSnapshot, error) {
	snaps := append([]models.PriceSnapshot(nil), f.snapshots[productID]...)
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].RecordedAt.After(snaps[j].RecordedAt) })

	var out []models.PriceSnapshot
	for _, s := range snaps {
		if since != nil && s.RecordedAt.Before(*since) {
			continue
		}
		out = append(out, s)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeEnqueuer struct {
	submitted []uuid.UUID
	manual    []uuid.UUID
}

func (f *fakeEnqueuer) Enqueue(id uuid.UUID)       { f.submitted = append(f.submitted, id) }
func (f *fakeEnqueuer) EnqueueManual(id uuid.UUID) { f.manual = append(f.manual, id) }

func testMarketplaces() map[string]*config.MarketplaceConfig {
	return map[string]*config.MarketplaceConfig{
		"mercadolivre": {
			ID:      "mercadolivre",
			Domains: []string{"mercadolivre.com.br", "mercadolibre.com"},
		},
	}
}

func newProductFixture(t *testing.T, verified bool) (*ProductService, *fakeProductStore, *fakeEnqueuer, uuid.UUID) {
	t.Helper()
	store := newFakeProductStore()
	user := &models.User{ID: uuid.New(), Email: "a@b.com", EmailVerified: verified}
	store.users[user.ID] = user
	enq := &fakeEnqueuer{}
	svc := NewProductService(store, testMarketplaces(), enq)
	return svc, store, enq, user.ID
}

func TestAdd_CreatesPendingAndEnqueues(t *testing.T) {
	svc, _, enq, userID := newProductFixture(t, true)

	p, err := svc.Add(context.Background(), userID,
		"https://produto.mercadolivre.com.br/MLB-123-notebook-gamer-acer?ref=xyz#tracking")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if p.Status != models.ProductStatusPending {
		t.Fatalf("status = %s, want PENDING", p.Status)
	}
	if p.URL != "https://produto.mercadolivre.com.br/MLB-123-notebook-gamer-acer" {
		t.Fatalf("query and fragment must be stripped, got %q", p.URL)
	}
	if p.Name == "" || p.Name == "Produto" {
		t.Fatalf("placeholder name should come from the slug, got %q", p.Name)
	}
	if p.CurrentPrice != nil {
		t.Fatal("price must be unset before the first scrape")
	}
	if len(enq.submitted) != 1 || enq.submitted[0] != p.ID {
		t.Fatalf("submit scrape not enqueued: %v", enq.submitted)
	}
}

func TestAdd_RejectsForeignDomain(t *testing.T) {
	svc, _, _, userID := newProductFixture(t, true)

	for _, url := range []string{
		"https://amazon.com.br/dp/B0ABC",
		"https://evil.example/mercadolivre.com.br",
		"not a url at all ://",
	} {
		if _, err := svc.Add(context.Background(), userID, url); !errors.Is(err, ErrInvalidURL) {
			t.Fatalf("Add(%q) err = %v, want ErrInvalidURL", url, err)
		}
	}
}

func TestAdd_DuplicateReturnsExisting(t *testing.T) {
	svc, _, enq, userID := newProductFixture(t, true)

	first, err := svc.Add(context.Background(), userID, "https://mercadolivre.com.br/p/MLB-1")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	// Same listing, different tracking params.
	second, err := svc.Add(context.Background(), userID, "https://mercadolivre.com.br/p/MLB-1?utm_source=x")
	if err != nil {
		t.Fatalf("re-add: %v", err)
	}

	if second.ID != first.ID {
		t.Fatalf("duplicate must return the existing product")
	}
	if len(enq.submitted) != 1 {
		t.Fatalf("duplicate must not enqueue a second scrape, got %d", len(enq.submitted))
	}
}

func TestAdd_UnverifiedQuota(t *testing.T) {
	svc, store, _, userID := newProductFixture(t, false)

	for i := 0; i < FreeProductLimit; i++ {
		p := &models.Product{ID: uuid.New(), UserID: userID, URL: uuid.NewString()}
		store.CreateProduct(context.Background(), p)
	}

	_, err := svc.Add(context.Background(), userID, "https://mercadolivre.com.br/p/MLB-9")
	var quota *QuotaError
	if !errors.As(err, &quota) {
		t.Fatalf("err = %v, want QuotaError", err)
	}
	if quota.Limit != FreeProductLimit || quota.Current != FreeProductLimit {
		t.Fatalf("quota = %+v, want limit and current at %d", quota, FreeProductLimit)
	}
}

func TestAdd_VerifiedBypassesQuota(t *testing.T) {
	svc, store, _, userID := newProductFixture(t, true)

	for i := 0; i < FreeProductLimit+3; i++ {
		p := &models.Product{ID: uuid.New(), UserID: userID, URL: uuid.NewString()}
		store.CreateProduct(context.Background(), p)
	}

	if _, err := svc.Add(context.Background(), userID, "https://mercadolivre.com.br/p/MLB-9"); err != nil {
		t.Fatalf("verified user must not hit the quota: %v", err)
	}
}

func TestDelete_Ownership(t *testing.T) {
	svc, store, _, userID := newProductFixture(t, true)

	p, err := svc.Add(context.Background(), userID, "https://mercadolivre.com.br/p/MLB-1")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := svc.Delete(context.Background(), uuid.New(), p.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign delete err = %v, want ErrForbidden", err)
	}
	if err := svc.Delete(context.Background(), userID, p.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if len(store.products) != 0 {
		t.Fatal("product not deleted")
	}
}

func TestRefresh_EnqueuesManual(t *testing.T) {
	svc, _, enq, userID := newProductFixture(t, true)

	p, err := svc.Add(context.Background(), userID, "https://mercadolivre.com.br/p/MLB-1")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.Refresh(context.Background(), userID, p.ID); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(enq.manual) != 1 || enq.manual[0] != p.ID {
		t.Fatalf("manual refresh not enqueued: %v", enq.manual)
	}
}

func TestHistory_NewestFirstWithDefaultCap(t *testing.T) {
	svc, store, _, userID := newProductFixture(t, true)

	p, err := svc.Add(context.Background(), userID, "https://mercadolivre.com.br/p/MLB-1")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 35; i++ {
		store.snapshots[p.ID] = append(store.snapshots[p.ID], models.PriceSnapshot{
			ID:         int64(i + 1),
			ProductID:  p.ID,
			Price:      models.Cents(10000 + i),
			RecordedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}

	history, err := svc.History(context.Background(), userID, p.ID, nil, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}

	if len(history) != defaultHistoryLimit {
		t.Fatalf("history length = %d, want the default cap %d", len(history), defaultHistoryLimit)
	}
	if history[0].Price != 10034 {
		t.Fatalf("first entry must be the newest, got price %d", history[0].Price)
	}
	for i := 1; i < len(history); i++ {
		if !history[i].RecordedAt.Before(history[i-1].RecordedAt) {
			t.Fatalf("history not strictly newest first at index %d: %v >= %v",
				i, history[i].RecordedAt, history[i-1].RecordedAt)
		}
	}
}

func TestRefreshAll_EnqueuesEveryProduct(t *testing.T) {
	svc, _, enq, userID := newProductFixture(t, true)

	for _, url := range []string{
		"https://mercadolivre.com.br/p/MLB-1",
		"https://mercadolivre.com.br/p/MLB-2",
	} {
		if _, err := svc.Add(context.Background(), userID, url); err != nil {
			t.Fatalf("add %s: %v", url, err)
		}
	}

	queued, err := svc.RefreshAll(context.Background(), userID)
	if err != nil {
		t.Fatalf("refresh all: %v", err)
	}
	if queued != 2 || len(enq.manual) != 2 {
		t.Fatalf("queued = %d, manual jobs = %d, want 2 and 2", queued, len(enq.manual))
	}
}

func TestPlaceholderName(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://produto.mercadolivre.com.br/MLB-123-notebook-gamer-acer-nitro", "MLB 123 Notebook Gamer Acer Nitro"},
		{"https://mercadolivre.com.br/p/MLB123", "Produto"},
	}
	for _, tc := range cases {
		if got := placeholderName(tc.url); got != tc.want {
			t.Fatalf("placeholderName(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}
