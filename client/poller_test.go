package client

import (
	"testing"
	"time"

	"pricemonitor/models"
)

func TestProductsInterval(t *testing.T) {
	pending := models.Product{Status: models.ProductStatusPending}
	active := models.Product{Status: models.ProductStatusActive}
	failed := models.Product{Status: models.ProductStatusError}

	cases := []struct {
		name     string
		products []models.Product
		want     time.Duration
	}{
		{"empty", nil, slowPollInterval},
		{"all settled", []models.Product{active, failed}, slowPollInterval},
		{"one pending", []models.Product{active, pending, active}, fastPollInterval},
		{"only pending", []models.Product{pending}, fastPollInterval},
	}

	for _, tc := range cases {
		if got := ProductsInterval(tc.products); got != tc.want {
			t.Fatalf("%s: interval = %v, want %v", tc.name, got, tc.want)
		}
	}
}
