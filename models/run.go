package models

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// ScrapeRun is the audit row for one scheduler cycle (or one manual refresh).
type ScrapeRun struct {
	ID              int64      `json:"id" db:"id"`
	Trigger         string     `json:"trigger" db:"triggered_by"` // periodic, manual, submit
	StartedAt       time.Time  `json:"started_at" db:"started_at"`
	FinishedAt      *time.Time `json:"finished_at" db:"finished_at"`
	Status          RunStatus  `json:"status" db:"status"`
	ProductsChecked int        `json:"products_checked" db:"products_checked"`
	PriceChanges    int        `json:"price_changes" db:"price_changes"`
	Skipped         int        `json:"skipped" db:"skipped"`
	ErrorsCount     int        `json:"errors_count" db:"errors_count"`
}
