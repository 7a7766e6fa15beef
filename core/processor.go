package core

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/xid"
)

// =============================================================================
// ProcessorConfig
// =============================================================================

// ProcessorConfig holds configuration options for EventProcessor.
// All fields are optional; zero values select the defaults.
type ProcessorConfig struct {
	// Name labels logs, metrics and history. Defaults to "processor-<id>".
	Name string

	// Logger defaults to NoOpLogger.
	Logger Logger

	// Metrics defaults to NilMetrics.
	Metrics Metrics

	// PanicHandler defaults to a LoggingPanicHandler on Logger.
	PanicHandler PanicHandler

	// HistoryCapacity is the number of execution records kept. Defaults to 100.
	HistoryCapacity int

	// LockOSThread pins the goroutine started by Start to its OS thread,
	// for handlers that rely on thread-local state (cgo, GUI toolkits).
	LockOSThread bool
}

// DefaultProcessorConfig returns a config with default handlers.
func DefaultProcessorConfig() *ProcessorConfig {
	return &ProcessorConfig{
		Logger:          NewNoOpLogger(),
		Metrics:         &NilMetrics{},
		HistoryCapacity: defaultTaskHistoryCapacity,
	}
}

// =============================================================================
// EventProcessor
// =============================================================================

// EventProcessor executes tasks strictly one at a time, in arrival order, on a
// single consumer goroutine, regardless of which goroutine queued them.
//
// The consumer is either the goroutine calling Run (or the one spawned by
// Start), or a foreign loop pumping the processor with DequeueAndProcess /
// DequeueAndProcessUntilEmpty. Because only one task runs at a time, state
// touched exclusively from handlers needs no further locking.
//
// A processor owns two queues. QueueEvent feeds the immediate queue, which the
// consumer drains. DeferEvent feeds the deferred queue, whose tasks only become
// eligible after an explicit DrainDeferred.
type EventProcessor struct {
	id   string
	name string

	immediate *BlockingQueue[TaskItem]
	deferred  *BlockingQueue[TaskItem]

	// terminating only ever goes false -> true.
	terminating atomic.Bool
	consuming   atomic.Bool

	// stopCtx is cancelled by Terminate to wake a blocked consumer.
	stopCtx    context.Context
	stopCancel context.CancelFunc

	logger       Logger
	metrics      Metrics
	panicHandler PanicHandler
	history      *executionHistory

	executed   atomic.Int64
	panicked   atomic.Int64
	lastTaskAt atomic.Int64

	lockOSThread bool
	startOnce    sync.Once
	done         chan struct{}
}

// NewEventProcessor creates a processor with the default configuration.
// The processor does not consume anything until Run or Start is called, or a
// host loop starts pumping it.
func NewEventProcessor() *EventProcessor {
	return NewEventProcessorWithConfig(DefaultProcessorConfig())
}

// NewEventProcessorWithConfig creates a processor from cfg. A nil cfg is the
// same as DefaultProcessorConfig().
func NewEventProcessorWithConfig(cfg *ProcessorConfig) *EventProcessor {
	if cfg == nil {
		cfg = DefaultProcessorConfig()
	}

	id := xid.New().String()
	p := &EventProcessor{
		id:           id,
		name:         cfg.Name,
		immediate:    NewBlockingQueue[TaskItem](),
		deferred:     NewBlockingQueue[TaskItem](),
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		panicHandler: cfg.PanicHandler,
		history:      newExecutionHistory(cfg.HistoryCapacity),
		lockOSThread: cfg.LockOSThread,
		done:         make(chan struct{}),
	}
	if p.name == "" {
		p.name = "processor-" + id
	}
	if p.logger == nil {
		p.logger = NewNoOpLogger()
	}
	if p.metrics == nil {
		p.metrics = &NilMetrics{}
	}
	if p.panicHandler == nil {
		p.panicHandler = &LoggingPanicHandler{Logger: p.logger}
	}
	p.stopCtx, p.stopCancel = context.WithCancel(context.Background())
	return p
}

// ID returns the processor's unique id.
func (p *EventProcessor) ID() string {
	return p.id
}

// Name returns the processor's name.
func (p *EventProcessor) Name() string {
	return p.name
}

// Logger returns the logger the processor was configured with.
func (p *EventProcessor) Logger() Logger {
	return p.logger
}

// =============================================================================
// Posting
// =============================================================================

// Post pushes a raw task onto the immediate queue. Safe from any goroutine.
// Posting after termination succeeds; the task is simply never run by the
// exited loop.
func (p *EventProcessor) Post(task Task) {
	p.immediate.Push(newTaskItem(task, ""))
}

// Defer pushes a raw task onto the deferred queue.
func (p *EventProcessor) Defer(task Task) {
	p.deferred.Push(newTaskItem(task, ""))
}

// DrainDeferred moves every task currently in the deferred queue to the tail
// of the immediate queue, preserving their relative order, and returns how
// many were moved. The move is a single step with respect to every Post,
// Defer and concurrent drain: drained tasks land after everything already
// immediate and no other push lands between them.
func (p *EventProcessor) DrainDeferred() int {
	return p.deferred.MoveAllTo(p.immediate)
}

// =============================================================================
// Consumer side
// =============================================================================

// Run consumes the immediate queue on the calling goroutine until the
// processor terminates (nil error) or ctx ends (ctx.Err()).
//
// The termination flag is checked between tasks only: a running handler is
// never interrupted, and a handler that never returns blocks the loop.
// Run returns ErrConsumerActive if another consumer is already active.
func (p *EventProcessor) Run(ctx context.Context) error {
	if !p.consuming.CompareAndSwap(false, true) {
		return ErrConsumerActive
	}
	defer p.consuming.Store(false)

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopWake := context.AfterFunc(p.stopCtx, cancel)
	defer stopWake()

	runCtx := context.WithValue(ctx, processorKey, p)

	p.logger.Debug("event processor started", F("processor", p.name), F("id", p.id))
	for !p.terminating.Load() {
		item, err := p.immediate.WaitAndPopContext(waitCtx)
		if err != nil {
			if p.terminating.Load() {
				break
			}
			p.logger.Debug("event processor cancelled", F("processor", p.name), F("error", err))
			return ctx.Err()
		}
		p.execute(runCtx, item)
	}
	p.logger.Debug("event processor terminated",
		F("processor", p.name),
		F("executed", p.executed.Load()),
		F("pending", p.immediate.Len()))
	return nil
}

// Start spawns a dedicated goroutine running Run. Repeated calls are no-ops.
// Done is closed when that goroutine exits.
func (p *EventProcessor) Start() {
	p.startOnce.Do(func() {
		go func() {
			defer close(p.done)
			if p.lockOSThread {
				runtime.LockOSThread()
				defer runtime.UnlockOSThread()
			}
			if err := p.Run(context.Background()); err != nil {
				p.logger.Error("event processor loop failed", F("processor", p.name), F("error", err))
			}
		}()
	})
}

// Done returns a channel closed once the goroutine spawned by Start exits.
// It never closes for a processor that was not started with Start.
func (p *EventProcessor) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the goroutine spawned by Start exits or ctx ends.
func (p *EventProcessor) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Terminate sets the termination flag. The task in flight always finishes;
// the loop exits before dequeuing the next one. A consumer blocked waiting
// for work is woken. The flag is never reset.
func (p *EventProcessor) Terminate() {
	if p.terminating.CompareAndSwap(false, true) {
		p.logger.Debug("event processor terminating", F("processor", p.name))
	}
	p.stopCancel()
}

// IsTerminating reports whether Terminate has been called.
func (p *EventProcessor) IsTerminating() bool {
	return p.terminating.Load()
}

// IsEmpty reports whether the immediate queue was empty at the instant of
// the call. Advisory only.
func (p *EventProcessor) IsEmpty() bool {
	return p.immediate.Empty()
}

// DequeueAndProcess runs at most one queued task on the calling goroutine,
// without blocking. It returns true if a task ran. It is the polling
// counterpart of Run for host loops that cannot dedicate a goroutine, and
// returns false without doing anything while another consumer is active or
// once the processor is terminating, so nothing queued after a Quit runs.
func (p *EventProcessor) DequeueAndProcess() bool {
	if !p.consuming.CompareAndSwap(false, true) {
		return false
	}
	defer p.consuming.Store(false)
	if p.terminating.Load() {
		return false
	}
	return p.processOne()
}

// DequeueAndProcessUntilEmpty runs queued tasks on the calling goroutine until
// the immediate queue is empty or the processor terminates, and returns the
// number of tasks run.
func (p *EventProcessor) DequeueAndProcessUntilEmpty() int {
	if !p.consuming.CompareAndSwap(false, true) {
		return 0
	}
	defer p.consuming.Store(false)

	n := 0
	for !p.terminating.Load() && p.processOne() {
		n++
	}
	return n
}

func (p *EventProcessor) processOne() bool {
	item, ok := p.immediate.TryPop()
	if !ok {
		return false
	}
	p.execute(context.WithValue(context.Background(), processorKey, p), item)
	return true
}

func (p *EventProcessor) execute(ctx context.Context, item TaskItem) {
	p.metrics.RecordQueueDepth(p.name, p.immediate.Len())

	startedAt := time.Now()
	panicked := false
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				panicked = true
				p.panicked.Add(1)
				p.metrics.RecordTaskPanic(p.name, rec)
				p.panicHandler.HandlePanic(ctx, p.name, rec, debug.Stack())
			}
		}()
		item.Task(ctx)
	}()
	finishedAt := time.Now()
	duration := finishedAt.Sub(startedAt)

	p.executed.Add(1)
	p.lastTaskAt.Store(finishedAt.UnixNano())
	p.metrics.RecordTaskDuration(p.name, duration)
	p.history.Add(TaskExecutionRecord{
		TaskID:        item.ID,
		Name:          item.Name,
		ProcessorName: p.name,
		StartedAt:     startedAt,
		FinishedAt:    finishedAt,
		Duration:      duration,
		Panicked:      panicked,
	})
}

// =============================================================================
// Timers
// =============================================================================

// StopTimer disarms t. A notification that fired before the disarm completed
// may still be delivered once after StopTimer returns.
func (p *EventProcessor) StopTimer(t *Timer) error {
	if err := t.stop(); err != nil {
		p.logger.Warn("timer disarm failed", F("processor", p.name), F("timer", t.ID()), F("error", err))
		return err
	}
	return nil
}

// =============================================================================
// Synchronization Methods
// =============================================================================

// WaitIdle blocks until all tasks queued before the call have completed.
// It posts a barrier task and waits for it, so a consumer must be active.
//
// Returns error if:
// - Context is cancelled or deadline exceeded
// - The processor is terminating when WaitIdle is called
func (p *EventProcessor) WaitIdle(ctx context.Context) error {
	if p.IsTerminating() {
		return ErrProcessorTerminated
	}

	done := make(chan struct{})
	p.immediate.Push(newTaskItem(func(context.Context) {
		close(done)
	}, "barrier"))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// =============================================================================
// Observability
// =============================================================================

// Stats returns a snapshot of the processor's runtime state.
func (p *EventProcessor) Stats() ProcessorStats {
	stats := ProcessorStats{
		ID:          p.id,
		Name:        p.name,
		Pending:     p.immediate.Len(),
		Deferred:    p.deferred.Len(),
		Running:     p.consuming.Load(),
		Terminating: p.terminating.Load(),
		Executed:    p.executed.Load(),
		Panicked:    p.panicked.Load(),
	}
	if ns := p.lastTaskAt.Load(); ns != 0 {
		stats.LastTaskAt = time.Unix(0, ns)
	}
	return stats
}

// RecentTasks returns up to limit execution records, newest first.
// limit <= 0 returns everything kept.
func (p *EventProcessor) RecentTasks(limit int) []TaskExecutionRecord {
	return p.history.Recent(limit)
}

// LastTask returns the most recent execution record.
func (p *EventProcessor) LastTask() (TaskExecutionRecord, bool) {
	return p.history.Last()
}
