package client

import (
	"context"
	"log"
	"time"

	"pricemonitor/models"
)

const (
	// fastPollInterval applies while any product is PENDING, so the UI sees
	// the first scrape resolve within seconds of submission.
	fastPollInterval = 3 * time.Second
	slowPollInterval = 30 * time.Second

	unreadPollInterval = 30 * time.Second
)

// ProductsInterval picks the delay until the next product poll based on what
// the last poll returned.
func ProductsInterval(products []models.Product) time.Duration {
	for i := range products {
		if products[i].Status == models.ProductStatusPending {
			return fastPollInterval
		}
	}
	return slowPollInterval
}

// Poller keeps a frontend's product list and unread badge current. Products
// are polled on an adaptive interval; the unread count on a fixed one.
type Poller struct {
	client *Client

	OnProducts func([]models.Product)
	OnUnread   func(int)
}

func NewPoller(client *Client) *Poller {
	return &Poller{client: client}
}

// Run blocks until the context is canceled. Poll errors are logged and the
// loop keeps going at the slow interval.
func (p *Poller) Run(ctx context.Context) {
	go p.pollUnread(ctx)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		interval := slowPollInterval
		products, err := p.client.Products(ctx)
		if err != nil {
			log.Printf("Warning: products poll: %v", err)
		} else {
			interval = ProductsInterval(products)
			if p.OnProducts != nil {
				p.OnProducts(products)
			}
		}
		timer.Reset(interval)
	}
}

func (p *Poller) pollUnread(ctx context.Context) {
	ticker := time.NewTicker(unreadPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := p.client.UnreadCount(ctx)
			if err != nil {
				log.Printf("Warning: unread poll: %v", err)
				continue
			}
			if p.OnUnread != nil {
				p.OnUnread(count)
			}
		}
	}
}
