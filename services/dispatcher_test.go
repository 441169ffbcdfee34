package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"pricemonitor/models"
)

type fakeDispatcherStore struct {
	notifications []models.Notification
	user          *models.User
}

func (f *fakeDispatcherStore) CreateNotification(_ context.Context, n *models.Notification) error {
	n.ID = int64(len(f.notifications) + 1)
	f.notifications = append(f.notifications, *n)
	return nil
}

func (f *fakeDispatcherStore) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	return f.user, nil
}

type recordingChannel struct {
	name string
	sent []models.Notification
	fail bool
}

func (c *recordingChannel) Name() string { return c.name }

func (c *recordingChannel) Send(_ context.Context, _ *models.User, n *models.Notification, _ *models.Product) error {
	if c.fail {
		return errors.New("channel down")
	}
	c.sent = append(c.sent, *n)
	return nil
}

func dispatchProduct() *models.Product {
	return &models.Product{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Name:   "Mouse sem fio",
	}
}

func TestDispatchChange_Drop(t *testing.T) {
	store := &fakeDispatcherStore{user: &models.User{ID: uuid.New()}}
	d := NewDispatcher(store)

	p := dispatchProduct()
	n, err := d.DispatchChange(context.Background(), p, ChangeResult{
		Kind: Dropped, OldPrice: 10000, NewPrice: 8000,
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if n == nil {
		t.Fatal("expected a notification")
	}
	if n.Type != models.NotificationPriceDrop {
		t.Fatalf("type = %s, want PRICE_DROP", n.Type)
	}
	if !strings.Contains(n.Message, "20.0%") {
		t.Fatalf("message should carry the percent, got %q", n.Message)
	}
	if !strings.Contains(n.Message, "R$ 100,00") || !strings.Contains(n.Message, "R$ 80,00") {
		t.Fatalf("message should carry both prices, got %q", n.Message)
	}
	if n.ProductID == nil || *n.ProductID != p.ID {
		t.Fatalf("productID not set on notification")
	}
}

func TestDispatchChange_PreferenceSuppresses(t *testing.T) {
	store := &fakeDispatcherStore{user: &models.User{ID: uuid.New()}}
	d := NewDispatcher(store)

	off := false
	p := dispatchProduct()
	p.NotifyOnPriceIncrease = &off

	n, err := d.DispatchChange(context.Background(), p, ChangeResult{
		Kind: Increased, OldPrice: 8000, NewPrice: 10000,
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if n != nil {
		t.Fatalf("suppressed change must not notify, got %+v", n)
	}
	if len(store.notifications) != 0 {
		t.Fatalf("nothing may be persisted when suppressed")
	}
}

func TestDispatchChange_NilPreferenceDefaultsOn(t *testing.T) {
	store := &fakeDispatcherStore{user: &models.User{ID: uuid.New()}}
	d := NewDispatcher(store)

	p := dispatchProduct() // both preference flags nil
	n, err := d.DispatchChange(context.Background(), p, ChangeResult{
		Kind: Increased, OldPrice: 8000, NewPrice: 10000,
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if n == nil || n.Type != models.NotificationPriceIncrease {
		t.Fatalf("unset preference must default to notifying, got %+v", n)
	}
}

func TestDispatchChange_FirstObservationIgnoresPrefs(t *testing.T) {
	store := &fakeDispatcherStore{user: &models.User{ID: uuid.New()}}
	d := NewDispatcher(store)

	off := false
	p := dispatchProduct()
	p.NotifyOnPriceDrop = &off
	p.NotifyOnPriceIncrease = &off

	n, err := d.DispatchChange(context.Background(), p, ChangeResult{
		Kind: FirstObservation, NewPrice: 9900,
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if n == nil || n.Type != models.NotificationProductAdded {
		t.Fatalf("PRODUCT_ADDED must ignore preferences, got %+v", n)
	}
}

func TestDispatchChange_NoChangeIsSilent(t *testing.T) {
	store := &fakeDispatcherStore{user: &models.User{ID: uuid.New()}}
	d := NewDispatcher(store)

	n, err := d.DispatchChange(context.Background(), dispatchProduct(), ChangeResult{Kind: NoChange})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if n != nil || len(store.notifications) != 0 {
		t.Fatal("NoChange must not notify")
	}
}

func TestDispatch_ChannelFailureDoesNotFail(t *testing.T) {
	user := &models.User{ID: uuid.New()}
	store := &fakeDispatcherStore{user: user}
	broken := &recordingChannel{name: "telegram", fail: true}
	working := &recordingChannel{name: "webhook"}
	d := NewDispatcher(store, broken, working)

	p := dispatchProduct()
	p.UserID = user.ID
	n, err := d.DispatchChange(context.Background(), p, ChangeResult{
		Kind: Dropped, OldPrice: 10000, NewPrice: 9000,
	})
	if err != nil {
		t.Fatalf("channel failure must not surface: %v", err)
	}
	if n == nil {
		t.Fatal("notification must persist despite channel failure")
	}
	if len(working.sent) != 1 {
		t.Fatalf("later channels must still run, sent = %d", len(working.sent))
	}
}

func TestDispatchSystem(t *testing.T) {
	store := &fakeDispatcherStore{user: &models.User{ID: uuid.New()}}
	d := NewDispatcher(store)

	userID := uuid.New()
	n, err := d.DispatchSystem(context.Background(), userID, nil, "Produto indisponível")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if n.Type != models.NotificationSystem {
		t.Fatalf("type = %s, want SYSTEM", n.Type)
	}
	if n.ProductID != nil {
		t.Fatal("account-level system notification must not carry a product")
	}
}
