package actor

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/jerbs/sinema-sub001/core"
)

type greeting struct {
	Text string `json:"text"`
}

var _ = Describe("Mailbox", func() {
	var (
		p   *core.EventProcessor
		got []string
	)

	BeforeEach(func() {
		p = core.NewEventProcessor()
		got = nil
	})

	It("should deliver queued events to the bound handler", func() {
		m := NewMailboxFunc(p, func(_ context.Context, g greeting) {
			got = append(got, g.Text)
		})

		m.Queue(greeting{Text: "a"})
		m.Queue(greeting{Text: "b"})
		Expect(p.DequeueAndProcessUntilEmpty()).To(Equal(2))

		Expect(got).To(Equal([]string{"a", "b"}))
		Expect(m.Processor()).To(BeIdenticalTo(p))
	})

	It("should hold deferred events until the deferred queue is drained", func() {
		m := NewMailboxFunc(p, func(_ context.Context, g greeting) {
			got = append(got, g.Text)
		})

		m.Defer(greeting{Text: "later"})
		m.Queue(greeting{Text: "now"})
		p.DequeueAndProcessUntilEmpty()
		Expect(got).To(Equal([]string{"now"}))

		p.DrainDeferred()
		p.DequeueAndProcessUntilEmpty()
		Expect(got).To(Equal([]string{"now", "later"}))
	})

	It("should deliver timer expiries through the processor", func() {
		m := NewMailboxFunc(p, func(_ context.Context, g greeting) {
			got = append(got, g.Text)
		})
		timer, err := core.NewPortableTimer()
		Expect(err).NotTo(HaveOccurred())
		defer timer.Close()

		Expect(m.StartTimer(greeting{Text: "tick"}, timer.Relative(time.Millisecond))).To(Succeed())
		Eventually(func() []string {
			p.DequeueAndProcessUntilEmpty()
			return got
		}).Should(Equal([]string{"tick"}))
		Expect(m.StopTimer(timer)).To(Succeed())
	})
})

var _ = Describe("EventReceiver", func() {
	var (
		mockCtrl *gomock.Controller
		metrics  *MockMetrics
		a        *EventReceiver

		mu     sync.Mutex
		events []string
	)

	record := func(s string) func(context.Context) {
		return func(context.Context) {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, s)
		}
	}

	recorded := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), events...)
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		metrics = NewMockMetrics(mockCtrl)
		events = nil

		a = NewEventReceiver(&core.ProcessorConfig{Name: "receiver", Metrics: metrics}, Hooks{
			OnStart: record("start"),
			OnStop:  record("stop"),
			OnQuit:  record("quit"),
		})
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should start idle", func() {
		Expect(a.State()).To(Equal(StateIdle))
		Expect(a.State().String()).To(Equal("idle"))
	})

	It("should move through Idle, Running and Stopped", func() {
		metrics.EXPECT().RecordQueueDepth("receiver", gomock.Any()).Times(3)
		metrics.EXPECT().RecordTaskDuration("receiver", gomock.Any()).Times(3)

		a.QueueStart()
		a.QueueStart()
		a.QueueStop()
		Expect(a.DequeueAndProcessUntilEmpty()).To(Equal(3))

		Expect(a.State()).To(Equal(StateStopped))
		Expect(recorded()).To(Equal([]string{"start", "stop"}))
	})

	It("should restart from Stopped", func() {
		metrics.EXPECT().RecordQueueDepth(gomock.Any(), gomock.Any()).AnyTimes()
		metrics.EXPECT().RecordTaskDuration(gomock.Any(), gomock.Any()).AnyTimes()

		a.QueueStart()
		a.QueueStop()
		a.QueueStart()
		a.DequeueAndProcessUntilEmpty()

		Expect(a.IsRunning()).To(BeTrue())
		Expect(recorded()).To(Equal([]string{"start", "stop", "start"}))
	})

	It("should ignore Stop while idle", func() {
		metrics.EXPECT().RecordQueueDepth(gomock.Any(), gomock.Any()).AnyTimes()
		metrics.EXPECT().RecordTaskDuration(gomock.Any(), gomock.Any()).AnyTimes()

		a.QueueStop()
		a.DequeueAndProcessUntilEmpty()

		Expect(a.State()).To(Equal(StateIdle))
		Expect(recorded()).To(BeEmpty())
	})

	It("should stop and terminate on Quit", func() {
		metrics.EXPECT().RecordQueueDepth(gomock.Any(), gomock.Any()).AnyTimes()
		metrics.EXPECT().RecordTaskDuration(gomock.Any(), gomock.Any()).AnyTimes()

		a.Start()
		a.QueueStart()
		a.QueueQuit()
		a.QueueStart()

		Eventually(a.Done()).Should(BeClosed())
		Expect(a.IsTerminating()).To(BeTrue())
		Expect(a.State()).To(Equal(StateStopped))
		Expect(recorded()).To(Equal([]string{"start", "stop", "quit"}))
	})

	It("should report handler panics to metrics and keep running", func() {
		metrics.EXPECT().RecordQueueDepth(gomock.Any(), gomock.Any()).AnyTimes()
		metrics.EXPECT().RecordTaskDuration(gomock.Any(), gomock.Any()).AnyTimes()
		metrics.EXPECT().RecordTaskPanic("receiver", "bad greeting").Times(1)

		m := NewMailboxFunc(a.EventProcessor, func(context.Context, greeting) {
			panic("bad greeting")
		})
		m.Queue(greeting{})
		a.QueueStart()
		a.DequeueAndProcessUntilEmpty()

		Expect(a.IsRunning()).To(BeTrue())
	})
})
