package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"pricemonitor/models"
)

type fakeDetectorStore struct {
	snapshots []models.PriceSnapshot
	updated   *models.Product
	err       error
}

func (f *fakeDetectorStore) ApplyObservation(_ context.Context, p *models.Product, snap *models.PriceSnapshot) error {
	if f.err != nil {
		return f.err
	}
	snap.ID = int64(len(f.snapshots) + 1)
	f.snapshots = append(f.snapshots, *snap)
	cp := *p
	f.updated = &cp
	return nil
}

func newTestProduct(current *models.Cents) *models.Product {
	return &models.Product{
		ID:           uuid.New(),
		UserID:       uuid.New(),
		URL:          "https://produto.mercadolivre.com.br/MLB-123",
		Name:         "Notebook",
		Status:       models.ProductStatusActive,
		CurrentPrice: current,
	}
}

func TestEvaluate_FirstObservation(t *testing.T) {
	store := &fakeDetectorStore{}
	d := NewDetector(store)

	p := newTestProduct(nil)
	p.Status = models.ProductStatusPending

	obs := Observation{Price: 250000, Title: "Notebook Gamer", At: time.Now()}
	result, err := d.Evaluate(context.Background(), p, obs)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	if result.Kind != FirstObservation {
		t.Fatalf("kind = %v, want FirstObservation", result.Kind)
	}
	if len(store.snapshots) != 1 || store.snapshots[0].Price != 250000 {
		t.Fatalf("expected one snapshot at 250000, got %+v", store.snapshots)
	}
	if p.CurrentPrice == nil || *p.CurrentPrice != 250000 {
		t.Fatalf("currentPrice = %v, want 250000", p.CurrentPrice)
	}
	if p.LastPrice != nil {
		t.Fatalf("lastPrice should stay nil on first observation, got %v", *p.LastPrice)
	}
	if p.Status != models.ProductStatusActive {
		t.Fatalf("status = %s, want ACTIVE", p.Status)
	}
	if p.Name != "Notebook Gamer" {
		t.Fatalf("name = %q, want scraped title", p.Name)
	}
}

func TestEvaluate_NoChange(t *testing.T) {
	store := &fakeDetectorStore{}
	d := NewDetector(store)

	current := models.Cents(250000)
	last := models.Cents(270000)
	p := newTestProduct(&current)
	p.LastPrice = &last

	result, err := d.Evaluate(context.Background(), p, Observation{Price: 250000, At: time.Now()})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	if result.Kind != NoChange {
		t.Fatalf("kind = %v, want NoChange", result.Kind)
	}
	// The ledger still gets an entry even when nothing changed.
	if len(store.snapshots) != 1 {
		t.Fatalf("expected snapshot appended on no-change, got %d", len(store.snapshots))
	}
	if *p.LastPrice != 270000 {
		t.Fatalf("lastPrice must not mutate on equal price, got %d", *p.LastPrice)
	}
}

func TestEvaluate_Drop(t *testing.T) {
	store := &fakeDetectorStore{}
	d := NewDetector(store)

	current := models.Cents(250000)
	p := newTestProduct(&current)

	result, err := d.Evaluate(context.Background(), p, Observation{Price: 200000, At: time.Now()})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	if result.Kind != Dropped {
		t.Fatalf("kind = %v, want Dropped", result.Kind)
	}
	if result.OldPrice != 250000 || result.NewPrice != 200000 {
		t.Fatalf("result prices = %d -> %d, want 250000 -> 200000", result.OldPrice, result.NewPrice)
	}
	if result.Percent() != 20.0 {
		t.Fatalf("percent = %v, want 20.0", result.Percent())
	}
	if p.LastPrice == nil || *p.LastPrice != 250000 {
		t.Fatalf("lastPrice = %v, want 250000", p.LastPrice)
	}
	if *p.CurrentPrice != 200000 {
		t.Fatalf("currentPrice = %d, want 200000", *p.CurrentPrice)
	}
}

func TestEvaluate_IncreaseRecoversError(t *testing.T) {
	store := &fakeDetectorStore{}
	d := NewDetector(store)

	current := models.Cents(200000)
	p := newTestProduct(&current)
	p.Status = models.ProductStatusError
	p.FailCount = 5

	result, err := d.Evaluate(context.Background(), p, Observation{Price: 220000, At: time.Now()})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	if result.Kind != Increased {
		t.Fatalf("kind = %v, want Increased", result.Kind)
	}
	if p.Status != models.ProductStatusActive {
		t.Fatalf("status = %s, want ACTIVE after successful scrape", p.Status)
	}
	if p.FailCount != 0 {
		t.Fatalf("failCount = %d, want reset to 0", p.FailCount)
	}
}

func TestEvaluate_FailedPersistLeavesNoState(t *testing.T) {
	store := &fakeDetectorStore{err: errors.New("connection reset")}
	d := NewDetector(store)

	current := models.Cents(250000)
	p := newTestProduct(&current)

	_, err := d.Evaluate(context.Background(), p, Observation{Price: 200000, Title: "Notebook Gamer", At: time.Now()})
	if err == nil {
		t.Fatal("expected the store failure to surface")
	}

	if len(store.snapshots) != 0 {
		t.Fatalf("failed persist must not leave snapshots behind, got %d", len(store.snapshots))
	}
	if store.updated != nil {
		t.Fatal("failed persist must not leave a product update behind")
	}
	// The caller's product must be untouched so the next cycle re-evaluates
	// from the same baseline.
	if *p.CurrentPrice != 250000 || p.LastPrice != nil {
		t.Fatalf("product mutated despite failed persist: current=%v last=%v", p.CurrentPrice, p.LastPrice)
	}
	if p.Name != "Notebook" {
		t.Fatalf("name mutated despite failed persist: %q", p.Name)
	}
}

func TestEvaluate_RejectsNonPositivePrice(t *testing.T) {
	store := &fakeDetectorStore{}
	d := NewDetector(store)

	p := newTestProduct(nil)
	if _, err := d.Evaluate(context.Background(), p, Observation{Price: 0, At: time.Now()}); err != ErrInvalidPrice {
		t.Fatalf("err = %v, want ErrInvalidPrice", err)
	}
	if len(store.snapshots) != 0 {
		t.Fatalf("no snapshot may be written for an invalid price")
	}
}
