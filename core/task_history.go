package core

import (
	"reflect"
	"runtime"
	"sync"

	"github.com/rs/xid"
)

const defaultTaskHistoryCapacity = 100

// TaskID identifies one queued task.
type TaskID string

// GenerateTaskID returns a new globally unique, sortable task id.
func GenerateTaskID() TaskID {
	return TaskID(xid.New().String())
}

func (id TaskID) String() string {
	return string(id)
}

// TaskItem is what the processor queues hold: the task plus the metadata
// used for history and logging.
type TaskItem struct {
	ID   TaskID
	Name string
	Task Task
}

func newTaskItem(task Task, name string) TaskItem {
	return TaskItem{
		ID:   GenerateTaskID(),
		Name: resolveTaskName(task, name),
		Task: task,
	}
}

type executionHistory struct {
	mu    sync.Mutex
	items []TaskExecutionRecord
	head  int
	count int
}

func newExecutionHistory(capacity int) *executionHistory {
	if capacity < 1 {
		capacity = defaultTaskHistoryCapacity
	}
	return &executionHistory{items: make([]TaskExecutionRecord, capacity)}
}

func (h *executionHistory) Add(record TaskExecutionRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.items[h.head] = record
	h.head = (h.head + 1) % len(h.items)
	if h.count < len(h.items) {
		h.count++
	}
}

func (h *executionHistory) Recent(limit int) []TaskExecutionRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count == 0 {
		return nil
	}

	if limit <= 0 || limit > h.count {
		limit = h.count
	}

	out := make([]TaskExecutionRecord, 0, limit)
	for i := range limit {
		idx := (h.head - 1 - i + len(h.items)) % len(h.items)
		out = append(out, h.items[idx])
	}
	return out
}

func (h *executionHistory) Last() (TaskExecutionRecord, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count == 0 {
		return TaskExecutionRecord{}, false
	}

	idx := (h.head - 1 + len(h.items)) % len(h.items)
	return h.items[idx], true
}

// eventName names a task after the static type of the event it carries.
func eventName[E any]() string {
	return reflect.TypeFor[E]().String()
}

func resolveTaskName(task Task, explicit string) string {
	if explicit != "" {
		return explicit
	}

	if task == nil {
		return "anonymous"
	}

	pc := reflect.ValueOf(task).Pointer()
	if pc == 0 {
		return "anonymous"
	}

	fn := runtime.FuncForPC(pc)
	if fn == nil || fn.Name() == "" {
		return "anonymous"
	}
	return fn.Name()
}
