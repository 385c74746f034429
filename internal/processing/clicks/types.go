package clicks

import "time"

type ClickUpdate struct {
	LinkID        string    `json:"linkId"`
	TotalCount    int64     `json:"totalCount"`
	LastTimestamp time.Time `json:"lastTimestamp"`
}

type LogPosition struct {
	ApproxLength   int64         `json:"approxLength"`
	OldestEntryAge time.Duration `json:"oldestEntryAgeNs"`
}

type FailedUpdate struct {
	LinkID string `json:"linkId"`
	Delta  int64  `json:"delta"`
	Error  string `json:"error"`
}

// RunSummary is reported to the caller of a scheduled run. Failures lists at
// most maxReportedFailures entries; Failed is always the full count.
type RunSummary struct {
	Skipped    bool           `json:"skipped"`
	Drained    int            `json:"drained"`
	Updates    int            `json:"updates"`
	Updated    int            `json:"updated"`
	Failed     int            `json:"failed"`
	Batches    int            `json:"batches"`
	Failures   []FailedUpdate `json:"failures,omitempty"`
	Position   *LogPosition   `json:"position,omitempty"`
	Duration   time.Duration  `json:"-"`
	DurationMs int64          `json:"durationMs"`
}
