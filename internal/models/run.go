package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// RunReport aggregates the counters for a single sync run
type RunReport struct {
	ID             int64     `json:"id,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	ReposProcessed int       `json:"repos_processed"`
	ReposUpdated   int       `json:"repos_updated"`
	BackupsCreated int       `json:"backups_created"`
	BackupsDeleted int       `json:"backups_deleted"`
	Failures       int       `json:"failures"`
	DiskDeltaBytes int64     `json:"disk_delta_bytes"`
}

// Duration returns the wall-clock duration of the run
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// String returns the JSON string representation of the run report
func (r *RunReport) String() string {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal run report: %v"}`, err)
	}
	return string(data)
}
