package models

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// CollectRun records one collection pass for a city/state query.
type CollectRun struct {
	ID              int64      `json:"id" db:"id"`
	SiteID          string     `json:"site_id" db:"site_id"`
	City            string     `json:"city" db:"city"`
	State           string     `json:"state" db:"state"`
	StartedAt       time.Time  `json:"started_at" db:"started_at"`
	FinishedAt      *time.Time `json:"finished_at" db:"finished_at"`
	Status          RunStatus  `json:"status" db:"status"`
	ListingsFound   int        `json:"listings_found" db:"listings_found"`
	RecordsAccepted int        `json:"records_accepted" db:"records_accepted"`
	RecordsRejected int        `json:"records_rejected" db:"records_rejected"`
	IndexTaskID     string     `json:"index_task_id" db:"index_task_id"`
	ErrorsCount     int        `json:"errors_count" db:"errors_count"`
}

type SiteStats struct {
	SiteID        string     `json:"site_id" db:"site_id"`
	LastRunAt     *time.Time `json:"last_run_at" db:"last_run_at"`
	LastRunStatus string     `json:"last_run_status" db:"last_run_status"`
	TotalRecords  int        `json:"total_records" db:"total_records"`
	SuccessRate   float64    `json:"success_rate" db:"success_rate"`
}
