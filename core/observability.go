package core

import "time"

// TaskExecutionRecord captures a completed task execution event.
type TaskExecutionRecord struct {
	TaskID        TaskID
	Name          string
	ProcessorName string
	StartedAt     time.Time
	FinishedAt    time.Time
	Duration      time.Duration
	Panicked      bool
}

// ProcessorStats represents runtime observability state for an event processor.
type ProcessorStats struct {
	ID          string
	Name        string
	Pending     int
	Deferred    int
	Running     bool
	Terminating bool
	Executed    int64
	Panicked    int64
	LastTaskAt  time.Time
}
