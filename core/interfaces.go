package core

import (
	"context"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling task panics
// =============================================================================

// PanicHandler is called when a task panics during execution.
// The processor recovers the panic, reports it here and keeps running.
//
// Implementations should be thread-safe; several processors may share one.
type PanicHandler interface {
	// HandlePanic is called on the consumer goroutine of the processor.
	//
	// Parameters:
	// - ctx: The context the task was executed with
	// - processorName: The name of the processor where the panic occurred
	// - panicInfo: The panic value recovered from the task
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(ctx context.Context, processorName string, panicInfo any, stackTrace []byte)
}

// LoggingPanicHandler reports panics through a Logger.
type LoggingPanicHandler struct {
	Logger Logger
}

// HandlePanic logs panic information at error level.
func (h *LoggingPanicHandler) HandlePanic(ctx context.Context, processorName string, panicInfo any, stackTrace []byte) {
	logger := h.Logger
	if logger == nil {
		logger = NewDefaultLogger()
	}
	logger.Error("task panicked",
		F("processor", processorName),
		F("panic", panicInfo),
		F("stack", string(stackTrace)))
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting processor metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods are called on hot paths and should be non-blocking and fast.
type Metrics interface {
	// RecordTaskDuration records how long a task took to execute.
	RecordTaskDuration(processorName string, duration time.Duration)

	// RecordTaskPanic records that a task panicked during execution.
	RecordTaskPanic(processorName string, panicInfo any)

	// RecordQueueDepth records the immediate queue depth observed after a
	// task was dequeued.
	RecordQueueDepth(processorName string, depth int)

	// RecordTimerExpiry records one timer notification converted into a task.
	// overrun is the number of expirations the timer missed before it.
	RecordTimerExpiry(processorName string, overrun int)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

// RecordTaskDuration is a no-op.
func (m *NilMetrics) RecordTaskDuration(processorName string, duration time.Duration) {
}

// RecordTaskPanic is a no-op.
func (m *NilMetrics) RecordTaskPanic(processorName string, panicInfo any) {
}

// RecordQueueDepth is a no-op.
func (m *NilMetrics) RecordQueueDepth(processorName string, depth int) {
}

// RecordTimerExpiry is a no-op.
func (m *NilMetrics) RecordTimerExpiry(processorName string, overrun int) {
}
