package depstat

import "time"

// Stat is the running daily bucket for one deployment. There is at most
// one row per (DeploymentID, StatDate); counters only grow within a day.
//
// Invariant: TotalRequests == SuccessCount + ErrorCount.
// ResponseTimeMs holds the latest sample, not an average.
type Stat struct {
	ID               int64     `json:"id"`
	DeploymentID     int64     `json:"deployment_id"`
	StatDate         time.Time `json:"stat_date"`
	TotalRequests    int64     `json:"total_requests"`
	SuccessCount     int64     `json:"success_count"`
	ErrorCount       int64     `json:"error_count"`
	UptimePercentage float64   `json:"uptime_percentage"`
	ResponseTimeMs   int64     `json:"response_time_ms"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// DayOf truncates t to its UTC calendar day, the bucketing key.
func DayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
