package core

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
)

// Tag is the runtime message tag a Dispatcher switches on.
type Tag uint16

// Case associates one tag with one concrete payload type. Cases are built
// with On, OnJSON or OnEvent, which instantiate the handler with the static
// payload type; the Dispatcher itself only ever sees the source type S.
type Case[S any] struct {
	tag      Tag
	typeName string
	invoke   func(ctx context.Context, src S) error
}

// Tag returns the tag the case matches.
func (c Case[S]) Tag() Tag {
	return c.tag
}

// TypeName returns the name of the payload type the case decodes to.
func (c Case[S]) TypeName() string {
	return c.typeName
}

// On builds a case that decodes src into a T and hands it to handle.
func On[T, S any](tag Tag, decode func(S) (T, error), handle func(ctx context.Context, msg T) error) Case[S] {
	name := eventName[T]()
	return Case[S]{
		tag:      tag,
		typeName: name,
		invoke: func(ctx context.Context, src S) error {
			msg, err := decode(src)
			if err != nil {
				return fmt.Errorf("dispatch: decode tag %d as %s: %w", tag, name, err)
			}
			return handle(ctx, msg)
		},
	}
}

// OnJSON builds a case for JSON-encoded payloads.
func OnJSON[T any](tag Tag, handle func(ctx context.Context, msg T) error) Case[[]byte] {
	return On(tag, decodeJSON[T], handle)
}

// OnEvent builds a case that decodes on the dispatching goroutine and queues
// the typed event to p for r. The handler therefore runs on p's consumer.
func OnEvent[T, S any](tag Tag, decode func(S) (T, error), p *EventProcessor, r Receiver[T]) Case[S] {
	return On(tag, decode, func(_ context.Context, msg T) error {
		QueueEvent(p, msg, r)
		return nil
	})
}

func decodeJSON[T any](data []byte) (T, error) {
	var msg T
	if len(data) == 0 {
		return msg, fmt.Errorf("data is empty")
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("json unmarshal failed: %w", err)
	}
	return msg, nil
}

// =============================================================================
// Dispatcher
// =============================================================================

// Dispatcher maps a runtime tag to a statically typed handler.
//
// The table is fixed at construction: tags 0..last form the enumerated range,
// and only tags with a case are defined. Dispatch performs a linear search
// over the cases, which is what the small closed tag sets it is meant for
// want.
type Dispatcher[S any] struct {
	last   Tag
	cases  []Case[S]
	logger Logger
}

// NewDispatcher validates cases against last and builds the table.
// It fails with ErrTagOutOfRange for a tag above last and ErrDuplicateTag for
// a tag defined twice.
func NewDispatcher[S any](last Tag, cases ...Case[S]) (*Dispatcher[S], error) {
	seen := make(map[Tag]string, len(cases))
	for _, c := range cases {
		if c.tag > last {
			return nil, fmt.Errorf("%w: tag %d > last %d (%s)", ErrTagOutOfRange, c.tag, last, c.typeName)
		}
		if prev, ok := seen[c.tag]; ok {
			return nil, fmt.Errorf("%w: tag %d (%s, %s)", ErrDuplicateTag, c.tag, prev, c.typeName)
		}
		seen[c.tag] = c.typeName
	}

	sorted := slices.Clone(cases)
	slices.SortFunc(sorted, func(a, b Case[S]) int {
		return int(a.tag) - int(b.tag)
	})

	return &Dispatcher[S]{
		last:   last,
		cases:  sorted,
		logger: NewNoOpLogger(),
	}, nil
}

// WithLogger returns a copy of d that logs unknown tags to logger.
func (d *Dispatcher[S]) WithLogger(logger Logger) *Dispatcher[S] {
	if logger == nil {
		logger = NewNoOpLogger()
	}
	return &Dispatcher[S]{last: d.last, cases: d.cases, logger: logger}
}

// Dispatch invokes the handler registered for tag with src.
// An undefined tag returns an *UnknownTagError; decode and handler errors are
// returned as they are.
func (d *Dispatcher[S]) Dispatch(ctx context.Context, tag Tag, src S) error {
	for i := range d.cases {
		if d.cases[i].tag == tag {
			return d.cases[i].invoke(ctx, src)
		}
	}
	d.logger.Debug("dispatch: unknown tag", F("tag", tag), F("last", d.last))
	return &UnknownTagError{Tag: tag, Last: d.last}
}

// Defined reports whether tag has a case.
func (d *Dispatcher[S]) Defined(tag Tag) bool {
	_, ok := d.lookup(tag)
	return ok
}

// Last returns the last tag of the enumerated range.
func (d *Dispatcher[S]) Last() Tag {
	return d.last
}

// TypeName returns the payload type name registered for tag, or "" if tag is
// undefined.
func (d *Dispatcher[S]) TypeName(tag Tag) string {
	c, ok := d.lookup(tag)
	if !ok {
		return ""
	}
	return c.typeName
}

// Tags returns the defined tags in ascending order.
func (d *Dispatcher[S]) Tags() []Tag {
	tags := make([]Tag, len(d.cases))
	for i, c := range d.cases {
		tags[i] = c.tag
	}
	return tags
}

func (d *Dispatcher[S]) lookup(tag Tag) (Case[S], bool) {
	for _, c := range d.cases {
		if c.tag == tag {
			return c, true
		}
	}
	return Case[S]{}, false
}
