package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"pricemonitor/models"
)

// Channel is an external delivery target (email, Telegram). Send failures are
// logged and swallowed; the in-app notification record is the source of truth
// and is never rolled back because a channel was down.
type Channel interface {
	Name() string
	Send(ctx context.Context, user *models.User, n *models.Notification, p *models.Product) error
}

type DispatcherStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Dispatcher turns change results and lifecycle events into at most one
// persisted Notification each, honoring per-product preferences, then fans
// out to the configured channels best-effort.
//
// Once-per-change is guaranteed upstream: the detector and dispatcher only
// run under the product's scrape lease, so there is a single writer per
// product and no snapshot is processed twice.
type Dispatcher struct {
	store    DispatcherStore
	channels []Channel
}

func NewDispatcher(store DispatcherStore, channels ...Channel) *Dispatcher {
	return &Dispatcher{store: store, channels: channels}
}

// DispatchChange creates the notification for a price change result.
// Returns (nil, nil) when the result does not notify: NoChange, or a change
// kind the product's preferences opt out of. Preference opt-out still leaves
// the snapshot and product fields updated by the detector.
func (d *Dispatcher) DispatchChange(ctx context.Context, p *models.Product, result ChangeResult) (*models.Notification, error) {
	var ntype models.NotificationType
	var message string

	switch result.Kind {
	case FirstObservation:
		// PRODUCT_ADDED ignores the preference flags.
		ntype = models.NotificationProductAdded
		message = fmt.Sprintf("Produto adicionado: %s está sendo monitorado (%s)",
			p.Name, result.NewPrice)
	case Dropped:
		if !p.NotifyDrop() {
			return nil, nil
		}
		ntype = models.NotificationPriceDrop
		message = fmt.Sprintf("Queda de preço: %s caiu de %s para %s (-%.1f%%)",
			p.Name, result.OldPrice, result.NewPrice, result.Percent())
	case Increased:
		if !p.NotifyIncrease() {
			return nil, nil
		}
		ntype = models.NotificationPriceIncrease
		message = fmt.Sprintf("Aumento de preço: %s subiu de %s para %s (+%.1f%%)",
			p.Name, result.OldPrice, result.NewPrice, result.Percent())
	default:
		return nil, nil
	}

	productID := p.ID
	n := &models.Notification{
		UserID:    p.UserID,
		ProductID: &productID,
		Type:      ntype,
		Message:   message,
		CreatedAt: time.Now(),
	}
	if err := d.store.CreateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}

	d.fanOut(ctx, n, p)
	return n, nil
}

// DispatchSystem creates a SYSTEM notification, which never consults
// preference flags. productID may be nil for account-level events.
func (d *Dispatcher) DispatchSystem(ctx context.Context, userID uuid.UUID, productID *uuid.UUID, message string) (*models.Notification, error) {
	n := &models.Notification{
		UserID:    userID,
		ProductID: productID,
		Type:      models.NotificationSystem,
		Message:   message,
		CreatedAt: time.Now(),
	}
	if err := d.store.CreateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}

	d.fanOut(ctx, n, nil)
	return n, nil
}

func (d *Dispatcher) fanOut(ctx context.Context, n *models.Notification, p *models.Product) {
	if len(d.channels) == 0 {
		return
	}

	user, err := d.store.GetUserByID(ctx, n.UserID)
	if err != nil || user == nil {
		log.Printf("Warning: cannot fan out notification %d, user lookup failed: %v", n.ID, err)
		return
	}

	for _, ch := range d.channels {
		if err := ch.Send(ctx, user, n, p); err != nil {
			log.Printf("Warning: %s delivery failed for notification %d: %v", ch.Name(), n.ID, err)
		}
	}
}
