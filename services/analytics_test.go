package services

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"pricemonitor/storage"
)

func TestAssembleReport(t *testing.T) {
	byDate := []storage.DateCount{
		{Date: "2026-08-01", Count: 10},
		{Date: "2026-08-02", Count: 5},
	}
	byHour := []storage.HourCount{
		{Hour: 9, Count: 8},
		{Hour: 14, Count: 7},
	}
	byDOW := []storage.DOWCount{
		{DayOfWeek: 0, Count: 3},
		{DayOfWeek: 3, Count: 12},
	}

	r := assembleReport(30, 15, 4, byDate, byHour, byDOW, nil)

	if r.TotalChanges != 15 {
		t.Fatalf("totalChanges = %d, want 15", r.TotalChanges)
	}
	if r.TotalProducts != 4 {
		t.Fatalf("totalProducts = %d, want 4", r.TotalProducts)
	}
	if r.AvgChangesPerDay != 0.5 {
		t.Fatalf("avgChangesPerDay = %v, want 0.5", r.AvgChangesPerDay)
	}
	if len(r.ChangesByHour) != 24 {
		t.Fatalf("hour buckets = %d, want all 24", len(r.ChangesByHour))
	}
	if r.ChangesByHour[9] != 8 || r.ChangesByHour[0] != 0 {
		t.Fatalf("hour counts wrong: %v", r.ChangesByHour)
	}
	if r.PeakHour != 9 {
		t.Fatalf("peakHour = %d, want 9", r.PeakHour)
	}
	if r.PeakDayOfWeek != "Quarta" {
		t.Fatalf("peakDayOfWeek = %q, want Quarta", r.PeakDayOfWeek)
	}
	if len(r.ChangesByDayOfWeek) != 7 {
		t.Fatalf("day buckets = %d, want all 7", len(r.ChangesByDayOfWeek))
	}
	if r.ChangesByDayOfWeek["Domingo"] != 3 || r.ChangesByDayOfWeek["Sábado"] != 0 {
		t.Fatalf("day counts wrong: %v", r.ChangesByDayOfWeek)
	}
	if r.TopChangingProducts == nil {
		t.Fatal("topChangingProducts must serialize as [], not null")
	}
}

func TestAssembleReport_Empty(t *testing.T) {
	r := assembleReport(7, 0, 0, nil, nil, nil, nil)

	if r.AvgChangesPerDay != 0 {
		t.Fatalf("avgChangesPerDay = %v, want 0", r.AvgChangesPerDay)
	}
	if r.PeakDayOfWeek != "Segunda" {
		t.Fatalf("peakDayOfWeek = %q, want the Segunda default with no data", r.PeakDayOfWeek)
	}
	if r.ChangesByDate == nil {
		t.Fatal("changesByDate must serialize as [], not null")
	}
	if len(r.ChangesByHour) != 24 {
		t.Fatalf("hour buckets = %d, want 24 even when empty", len(r.ChangesByHour))
	}
}

func TestAssembleReport_AvgRounding(t *testing.T) {
	// 10 changes over 3 days is 3.333..., shown as 3.3.
	r := assembleReport(3, 10, 1, nil, nil, nil, nil)
	if r.AvgChangesPerDay != 3.3 {
		t.Fatalf("avgChangesPerDay = %v, want 3.3", r.AvgChangesPerDay)
	}
}

func TestAssembleReport_TruncatesLongProductNames(t *testing.T) {
	long := strings.Repeat("Notebook Açaí ", 10)
	top := []storage.ProductChangeCount{
		{ProductID: uuid.New(), ProductName: long, Count: 9},
		{ProductID: uuid.New(), ProductName: "Mouse", Count: 2},
	}

	r := assembleReport(30, 11, 2, nil, nil, nil, top)

	got := r.TopChangingProducts[0].ProductName
	if len([]rune(got)) != productNameMax {
		t.Fatalf("truncated name length = %d runes, want %d", len([]rune(got)), productNameMax)
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("truncated name must end in ellipsis, got %q", got)
	}
	if r.TopChangingProducts[1].ProductName != "Mouse" {
		t.Fatalf("short names must pass through, got %q", r.TopChangingProducts[1].ProductName)
	}
}
