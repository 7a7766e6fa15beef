package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jerbs/sinema-sub001/actor"
	"github.com/jerbs/sinema-sub001/config"
	"github.com/jerbs/sinema-sub001/core"
)

// Tick is delivered by the ticker's timer.
type Tick struct{}

// ticker is an actor that counts timer ticks and quits after limit of them.
// Its fields are only touched on its consumer goroutine.
type ticker struct {
	*actor.EventReceiver

	timer *core.Timer
	ticks actor.Mailbox[Tick]
	out   io.Writer
	limit int
	seen  int
}

func newTicker(cfg config.Config, logger core.Logger, metrics core.Metrics, out io.Writer, limit int) (*ticker, error) {
	timer, err := cfg.NewTimer()
	if err != nil {
		return nil, err
	}
	tk := &ticker{timer: timer, out: out, limit: limit}
	tk.EventReceiver = actor.NewEventReceiver(cfg.ProcessorOptions(logger, metrics), actor.Hooks{
		OnStart: tk.onStart,
		OnStop:  tk.onStop,
	})
	tk.ticks = actor.NewMailboxFunc(tk.EventProcessor, tk.onTick)
	return tk, nil
}

func (tk *ticker) onStart(context.Context) {
	if err := tk.ticks.StartTimer(Tick{}, tk.timer); err != nil {
		tk.Logger().Error("ticker cannot arm its timer", core.F("error", err))
		tk.QueueQuit()
	}
}

func (tk *ticker) onStop(context.Context) {
	if err := tk.ticks.StopTimer(tk.timer); err != nil {
		tk.Logger().Error("ticker cannot disarm its timer",
			core.F("timer", tk.timer.ID()),
			core.F("error", err))
	}
}

func (tk *ticker) onTick(context.Context, Tick) {
	// Ticks already queued when the timer was stopped or the limit was hit.
	if !tk.IsRunning() || (tk.limit > 0 && tk.seen >= tk.limit) {
		return
	}
	tk.seen++
	fmt.Fprintf(tk.out, "tick %d (overrun %d)\n", tk.seen, tk.timer.Overrun())
	if tk.limit > 0 && tk.seen >= tk.limit {
		tk.QueueQuit()
	}
}
