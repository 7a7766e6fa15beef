package actor

import (
	"context"
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jerbs/sinema-sub001/core"
)

const (
	tagGreeting core.Tag = 1
	tagVolume   core.Tag = 2
	tagLast     core.Tag = 4
)

type volume struct {
	Level int `json:"level"`
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	Expect(err).NotTo(HaveOccurred())
	return data
}

var _ = Describe("Demuxer", func() {
	var (
		sink      *EventReceiver
		greetings []greeting
		volumes   []volume
		demux     *Demuxer
	)

	BeforeEach(func() {
		greetings = nil
		volumes = nil
		sink = NewEventReceiver(&core.ProcessorConfig{Name: "sink"}, Hooks{})

		var err error
		demux, err = NewDemuxer(&core.ProcessorConfig{Name: "demux"}, Hooks{}, tagLast,
			Route(tagGreeting, NewMailboxFunc(sink.EventProcessor, func(_ context.Context, g greeting) {
				greetings = append(greetings, g)
			})),
			Route(tagVolume, NewMailboxFunc(sink.EventProcessor, func(_ context.Context, v volume) {
				volumes = append(volumes, v)
			})),
		)
		Expect(err).NotTo(HaveOccurred())
	})

	pump := func() {
		demux.DequeueAndProcessUntilEmpty()
		sink.DequeueAndProcessUntilEmpty()
	}

	It("should route packets to typed mailboxes while running", func() {
		demux.QueueStart()
		demux.Feed(Packet{Tag: tagGreeting, Payload: mustJSON(greeting{Text: "hi"})})
		demux.Feed(Packet{Tag: tagVolume, Payload: mustJSON(volume{Level: 7})})
		pump()

		Expect(greetings).To(Equal([]greeting{{Text: "hi"}}))
		Expect(volumes).To(Equal([]volume{{Level: 7}}))
		Expect(demux.Dispatched()).To(Equal(int64(2)))
	})

	It("should drop packets while not running", func() {
		demux.Feed(Packet{Tag: tagGreeting, Payload: mustJSON(greeting{Text: "early"})})
		demux.QueueStart()
		demux.Feed(Packet{Tag: tagGreeting, Payload: mustJSON(greeting{Text: "on time"})})
		demux.QueueStop()
		demux.Feed(Packet{Tag: tagGreeting, Payload: mustJSON(greeting{Text: "late"})})
		pump()

		Expect(greetings).To(Equal([]greeting{{Text: "on time"}}))
		Expect(demux.Dropped()).To(Equal(int64(2)))
	})

	It("should count unknown tags and bad payloads as failed", func() {
		demux.QueueStart()
		demux.Feed(Packet{Tag: 3, Payload: []byte(`{}`)})
		demux.Feed(Packet{Tag: 200, Payload: []byte(`{}`)})
		demux.Feed(Packet{Tag: tagVolume, Payload: []byte(`{"level":`)})
		pump()

		Expect(demux.Failed()).To(Equal(int64(3)))
		Expect(demux.Dispatched()).To(BeZero())
		Expect(volumes).To(BeEmpty())
	})

	It("should reject routes outside the tag range", func() {
		_, err := NewDemuxer(nil, Hooks{}, tagLast,
			Route(tagLast+1, NewMailboxFunc(sink.EventProcessor, func(context.Context, volume) {})),
		)
		Expect(err).To(MatchError(core.ErrTagOutOfRange))
	})
})
