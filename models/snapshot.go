package models

import "time"

// PageSnapshot is the raw HTML of one rendered listings page, kept so a
// collection pass can be audited or re-extracted after selector drift.
type PageSnapshot struct {
	ID         int64      `json:"id" db:"id"`
	RunID      int64      `json:"run_id" db:"run_id"`
	SiteID     string     `json:"site_id" db:"site_id"`
	City       string     `json:"city" db:"city"`
	State      string     `json:"state" db:"state"`
	URL        string     `json:"url" db:"url"`
	HTML       string     `json:"-" db:"html"`
	S3Key      *string    `json:"s3_key" db:"s3_key"`
	Status     string     `json:"status" db:"status"` // pending, uploaded, failed
	Attempts   int        `json:"attempts" db:"attempts"`
	CapturedAt time.Time  `json:"captured_at" db:"captured_at"`
	UploadedAt *time.Time `json:"uploaded_at" db:"uploaded_at"`
}

const (
	SnapshotStatusPending  = "pending"
	SnapshotStatusUploaded = "uploaded"
	SnapshotStatusFailed   = "failed"
)
