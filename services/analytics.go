package services

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"pricemonitor/storage"
)

var dayNamesPT = [7]string{
	"Domingo", "Segunda", "Terça", "Quarta", "Quinta", "Sexta", "Sábado",
}

const (
	topProductsLimit = 10
	productNameMax   = 50
)

type AnalyticsStore interface {
	CountChangesForUser(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error)
	CountProductsByUser(ctx context.Context, userID uuid.UUID) (int, error)
	ChangeCountsByDate(ctx context.Context, userID uuid.UUID, since time.Time) ([]storage.DateCount, error)
	ChangeCountsByHour(ctx context.Context, userID uuid.UUID, since time.Time) ([]storage.HourCount, error)
	ChangeCountsByDayOfWeek(ctx context.Context, userID uuid.UUID, since time.Time) ([]storage.DOWCount, error)
	TopProductsByChanges(ctx context.Context, userID uuid.UUID, since time.Time, limit int) ([]storage.ProductChangeCount, error)
}

// AnalyticsReport summarizes a user's price changes over a window. Counts are
// real changes (observations that differ from the previous price), never raw
// check volume. Hour buckets always carry all 24 entries so charts render a
// full axis.
type AnalyticsReport struct {
	TotalChanges        int64                        `json:"totalChanges"`
	TotalProducts       int                          `json:"totalProducts"`
	AvgChangesPerDay    float64                      `json:"avgChangesPerDay"`
	ChangesByDate       []storage.DateCount          `json:"changesByDate"`
	ChangesByHour       map[int]int64                `json:"changesByHour"`
	ChangesByDayOfWeek  map[string]int64             `json:"changesByDayOfWeek"`
	TopChangingProducts []storage.ProductChangeCount `json:"topChangingProducts"`
	PeakHour            int                          `json:"peakHour"`
	PeakDayOfWeek       string                       `json:"peakDayOfWeek"`
}

type AnalyticsService struct {
	store AnalyticsStore
}

func NewAnalyticsService(store AnalyticsStore) *AnalyticsService {
	return &AnalyticsService{store: store}
}

// Report builds the change summary for the trailing periodDays window.
func (s *AnalyticsService) Report(ctx context.Context, userID uuid.UUID, periodDays int) (*AnalyticsReport, error) {
	if periodDays <= 0 {
		periodDays = 30
	}
	since := time.Now().AddDate(0, 0, -periodDays)

	total, err := s.store.CountChangesForUser(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	products, err := s.store.CountProductsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	byDate, err := s.store.ChangeCountsByDate(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	byHour, err := s.store.ChangeCountsByHour(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	byDOW, err := s.store.ChangeCountsByDayOfWeek(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	top, err := s.store.TopProductsByChanges(ctx, userID, since, topProductsLimit)
	if err != nil {
		return nil, err
	}

	return assembleReport(periodDays, total, products, byDate, byHour, byDOW, top), nil
}

func assembleReport(periodDays int, total int64, totalProducts int,
	byDate []storage.DateCount, byHour []storage.HourCount,
	byDOW []storage.DOWCount, top []storage.ProductChangeCount) *AnalyticsReport {

	r := &AnalyticsReport{
		TotalChanges:        total,
		TotalProducts:       totalProducts,
		ChangesByDate:       byDate,
		ChangesByHour:       make(map[int]int64, 24),
		ChangesByDayOfWeek:  make(map[string]int64, 7),
		TopChangingProducts: top,
		PeakDayOfWeek:       "Segunda",
	}
	if r.ChangesByDate == nil {
		r.ChangesByDate = []storage.DateCount{}
	}
	if r.TopChangingProducts == nil {
		r.TopChangingProducts = []storage.ProductChangeCount{}
	}
	for i := range r.TopChangingProducts {
		r.TopChangingProducts[i].ProductName = truncateName(r.TopChangingProducts[i].ProductName, productNameMax)
	}

	for h := 0; h < 24; h++ {
		r.ChangesByHour[h] = 0
	}
	for _, name := range dayNamesPT {
		r.ChangesByDayOfWeek[name] = 0
	}

	var peakHourCount int64 = -1
	for _, hc := range byHour {
		if hc.Hour < 0 || hc.Hour > 23 {
			continue
		}
		r.ChangesByHour[hc.Hour] = hc.Count
		if hc.Count > peakHourCount {
			peakHourCount = hc.Count
			r.PeakHour = hc.Hour
		}
	}

	var peakDayCount int64 = -1
	for _, dc := range byDOW {
		if dc.DayOfWeek < 0 || dc.DayOfWeek > 6 {
			continue
		}
		name := dayNamesPT[dc.DayOfWeek]
		r.ChangesByDayOfWeek[name] = dc.Count
		if dc.Count > peakDayCount {
			peakDayCount = dc.Count
			r.PeakDayOfWeek = name
		}
	}

	avg := float64(total) / float64(periodDays)
	r.AvgChangesPerDay = math.Round(avg*10) / 10

	return r
}

func truncateName(name string, max int) string {
	runes := []rune(name)
	if len(runes) <= max {
		return name
	}
	return string(runes[:max-3]) + "..."
}
