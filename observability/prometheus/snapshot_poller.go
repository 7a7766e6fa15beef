package prometheus

import (
	"context"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/jerbs/sinema-sub001/core"
)

// ProcessorSnapshotProvider provides current processor stats snapshots.
// *core.EventProcessor implements it.
type ProcessorSnapshotProvider interface {
	Stats() core.ProcessorStats
}

// SnapshotPoller periodically exports processor Stats() snapshots into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	processorsMu sync.RWMutex
	processors   map[string]ProcessorSnapshotProvider

	pending     *prom.GaugeVec
	deferred    *prom.GaugeVec
	running     *prom.GaugeVec
	terminating *prom.GaugeVec
	executed    *prom.GaugeVec
	panicked    *prom.GaugeVec

	stateMu sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(namespace string, reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if namespace == "" {
		namespace = defaultNamespace
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	gauge := func(name, help string) *prom.GaugeVec {
		return prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, []string{"processor"})
	}

	pending := gauge("processor_pending", "Tasks waiting in the immediate queue.")
	deferred := gauge("processor_deferred", "Tasks waiting in the deferred queue.")
	running := gauge("processor_running", "Consumer state (1=a consumer is active, 0=none).")
	terminating := gauge("processor_terminating", "Termination flag (1=terminating, 0=live).")
	executed := gauge("processor_executed_total", "Executed task count snapshot.")
	panicked := gauge("processor_panicked_total", "Panicked task count snapshot.")

	var err error
	if pending, err = registerCollector(reg, pending); err != nil {
		return nil, err
	}
	if deferred, err = registerCollector(reg, deferred); err != nil {
		return nil, err
	}
	if running, err = registerCollector(reg, running); err != nil {
		return nil, err
	}
	if terminating, err = registerCollector(reg, terminating); err != nil {
		return nil, err
	}
	if executed, err = registerCollector(reg, executed); err != nil {
		return nil, err
	}
	if panicked, err = registerCollector(reg, panicked); err != nil {
		return nil, err
	}

	return &SnapshotPoller{
		interval:    interval,
		processors:  make(map[string]ProcessorSnapshotProvider),
		pending:     pending,
		deferred:    deferred,
		running:     running,
		terminating: terminating,
		executed:    executed,
		panicked:    panicked,
	}, nil
}

// AddProcessor adds or replaces a processor snapshot provider by name.
func (p *SnapshotPoller) AddProcessor(name string, provider ProcessorSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "processor")
	p.processorsMu.Lock()
	p.processors[name] = provider
	p.processorsMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.started {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.started = true
	p.stateMu.Unlock()

	go p.loop(pollCtx, p.done)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.started {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.started = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

// CollectOnce exports one snapshot of every registered processor.
func (p *SnapshotPoller) CollectOnce() {
	p.processorsMu.RLock()
	defer p.processorsMu.RUnlock()

	for name, provider := range p.processors {
		stats := provider.Stats()
		p.pending.WithLabelValues(name).Set(float64(stats.Pending))
		p.deferred.WithLabelValues(name).Set(float64(stats.Deferred))
		p.running.WithLabelValues(name).Set(boolGauge(stats.Running))
		p.terminating.WithLabelValues(name).Set(boolGauge(stats.Terminating))
		p.executed.WithLabelValues(name).Set(float64(stats.Executed))
		p.panicked.WithLabelValues(name).Set(float64(stats.Panicked))
	}
}

func (p *SnapshotPoller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.CollectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.CollectOnce()
		}
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
