package database

import (
	"time"
)

// timeLayout is the on-disk format for DATETIME columns. Values are stored in
// UTC so that lexical and chronological order agree.
const timeLayout = "2006-01-02 15:04:05"

// CheckRecord is a single probe outcome as persisted in proxy_checks
type CheckRecord struct {
	Address      string
	Status       string
	ResponseTime time.Duration
	Error        error
	CheckedAt    time.Time
}

// HistoryStats summarises everything recorded so far
type HistoryStats struct {
	Runs     int            `json:"runs"`
	Checks   int            `json:"checks"`
	Healthy  int            `json:"healthy"`
	ByStatus map[string]int `json:"by_status"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
