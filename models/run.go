package models

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RefreshRun records one pass of the fetch/enrich pipeline.
type RefreshRun struct {
	ID               int64      `json:"id" db:"id"`
	RunID            string     `json:"run_id" db:"run_id"`
	Trigger          string     `json:"trigger" db:"trigger_source"`
	StartedAt        time.Time  `json:"started_at" db:"started_at"`
	FinishedAt       *time.Time `json:"finished_at" db:"finished_at"`
	Status           RunStatus  `json:"status" db:"status"`
	BookingsFetched  int        `json:"bookings_fetched" db:"bookings_fetched"`
	BookingsEnriched int        `json:"bookings_enriched" db:"bookings_enriched"`
	ListingsResolved int        `json:"listings_resolved" db:"listings_resolved"`
	ErrorsCount      int        `json:"errors_count" db:"errors_count"`
	Error            string     `json:"error,omitempty" db:"error"`
}
