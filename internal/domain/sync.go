package domain

import "time"

// CycleStats holds statistics about one pipeline tick.
type CycleStats struct {
	RunID     string
	Listed    int
	Detected  int
	Processed int
	Posted    int
	Expired   int
	Errors    int
	Chunks    int
	Duration  time.Duration
}
