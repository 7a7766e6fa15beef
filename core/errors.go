package core

import (
	"errors"
	"fmt"
)

var (
	// ErrConsumerActive is returned when a second consumer tries to run a
	// processor that already has one.
	ErrConsumerActive = errors.New("event processor: consumer already active")

	// ErrProcessorTerminated is returned by operations that need a live
	// consumer once the processor is terminating.
	ErrProcessorTerminated = errors.New("event processor: terminated")

	// ErrTimerClosed is returned when a closed timer is used.
	ErrTimerClosed = errors.New("timer: closed")

	// ErrTimerNotConfigured is returned when a timer is armed without an
	// initial expiry (neither Absolute nor Relative was called).
	ErrTimerNotConfigured = errors.New("timer: no initial expiry configured")

	// ErrTagOutOfRange is returned when a dispatch case uses a tag above the
	// table's last tag.
	ErrTagOutOfRange = errors.New("dispatch: tag out of range")

	// ErrDuplicateTag is returned when two dispatch cases share a tag.
	ErrDuplicateTag = errors.New("dispatch: duplicate tag")

	// ErrUnknownTag matches every *UnknownTagError.
	ErrUnknownTag = errors.New("dispatch: unknown tag")
)

// UnknownTagError reports a tag that no dispatch case is defined for.
type UnknownTagError struct {
	Tag  Tag
	Last Tag
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("dispatch: unknown tag %d (last defined tag %d)", e.Tag, e.Last)
}

// Is makes errors.Is(err, ErrUnknownTag) hold.
func (e *UnknownTagError) Is(target error) bool {
	return target == ErrUnknownTag
}
