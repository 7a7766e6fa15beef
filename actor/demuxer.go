package actor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/jerbs/sinema-sub001/core"
)

// Packet is a tagged, still encoded message.
type Packet struct {
	Tag     core.Tag
	Payload []byte
}

// Route decodes JSON payloads for tag into a T and queues them to m.
func Route[T any](tag core.Tag, m Mailbox[T]) core.Case[[]byte] {
	return core.On(tag, decodeJSON[T], func(_ context.Context, msg T) error {
		m.Queue(msg)
		return nil
	})
}

// Demuxer is an actor that turns packets into typed events. Packets are
// decoded on the demuxer's own consumer goroutine while it is running and
// forwarded to the mailbox registered for their tag. Packets arriving while
// the demuxer is not running are dropped and counted.
type Demuxer struct {
	*EventReceiver

	dispatcher *core.Dispatcher[[]byte]
	packets    Mailbox[Packet]

	dispatched atomic.Int64
	dropped    atomic.Int64
	failed     atomic.Int64
}

// NewDemuxer creates an idle demuxer whose tag range ends at last.
func NewDemuxer(cfg *core.ProcessorConfig, hooks Hooks, last core.Tag, routes ...core.Case[[]byte]) (*Demuxer, error) {
	er := NewEventReceiver(cfg, hooks)
	d, err := core.NewDispatcher(last, routes...)
	if err != nil {
		return nil, fmt.Errorf("demuxer %s: %w", er.Name(), err)
	}
	dm := &Demuxer{
		EventReceiver: er,
		dispatcher:    d.WithLogger(er.Logger()),
	}
	dm.packets = NewMailboxFunc(er.EventProcessor, dm.handlePacket)
	return dm, nil
}

// Feed queues pkt for decoding. Safe from any goroutine.
func (d *Demuxer) Feed(pkt Packet) {
	d.packets.Queue(pkt)
}

// Dispatched returns how many packets reached a route.
func (d *Demuxer) Dispatched() int64 {
	return d.dispatched.Load()
}

// Dropped returns how many packets arrived while the demuxer was not running.
func (d *Demuxer) Dropped() int64 {
	return d.dropped.Load()
}

// Failed returns how many packets had an unknown tag or failed to decode.
func (d *Demuxer) Failed() int64 {
	return d.failed.Load()
}

func (d *Demuxer) handlePacket(ctx context.Context, pkt Packet) {
	if !d.IsRunning() {
		d.dropped.Add(1)
		return
	}
	if err := d.dispatcher.Dispatch(ctx, pkt.Tag, pkt.Payload); err != nil {
		d.failed.Add(1)
		d.Logger().Warn("packet rejected",
			core.F("actor", d.Name()),
			core.F("tag", pkt.Tag),
			core.F("error", err))
		return
	}
	d.dispatched.Add(1)
}

func decodeJSON[T any](data []byte) (T, error) {
	var msg T
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("json unmarshal failed: %w", err)
	}
	return msg, nil
}
