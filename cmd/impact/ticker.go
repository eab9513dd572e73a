package main

import (
	"errors"
	"log/slog"

	"github.com/fmal/impact/pkg/reactive"
)

// tickerGraph is the serve demo:
//
//	tick -> parity
//	tick -> window (last 5 ticks) -> average
//	parity, average -> report effect
//	paused gates the report effect
type tickerGraph struct {
	rt      *reactive.Runtime
	tick    *reactive.Signal[int]
	window  *reactive.Signal[[]int]
	paused  *reactive.Signal[bool]
	parity  *reactive.Computed[string]
	average *reactive.Computed[float64]
	report  *reactive.Effect
	reports int
}

const windowSize = 5

func newTickerGraph(rt *reactive.Runtime, logger *slog.Logger) (*tickerGraph, error) {
	g := &tickerGraph{rt: rt}
	g.tick = reactive.NewSignal(rt, 0).Named("tick")
	g.window = reactive.NewSignal(rt, []int{}).Named("window")
	g.paused = reactive.NewSignal(rt, false).Named("paused")

	g.parity = reactive.NewComputed(rt, func() string {
		if g.tick.Get()%2 == 0 {
			return "even"
		}
		return "odd"
	}).Named("parity")

	g.average = reactive.NewComputed(rt, func() float64 {
		w := g.window.Get()
		if len(w) == 0 {
			return 0
		}
		sum := 0
		for _, v := range w {
			sum += v
		}
		return float64(sum) / float64(len(w))
	}).Named("average")

	report, err := rt.Effect(func() error {
		// While paused only the pause flag is a dependency.
		if g.paused.Get() {
			return nil
		}
		g.reports++
		logger.Debug("tick report", "parity", g.parity.Get(), "average", g.average.Get())
		return nil
	}, reactive.EffectName("report"))
	if err != nil {
		return nil, err
	}
	g.report = report
	return g, nil
}

// Tick advances the graph by one step; both writes settle as one pass.
func (g *tickerGraph) Tick() error {
	var werr error
	err := g.rt.Batch(func() {
		incErr := reactive.Inc(g.tick)
		n := g.tick.Peek()
		winErr := g.window.Update(func(w []int) []int {
			next := append(append([]int(nil), w...), n)
			if len(next) > windowSize {
				next = next[len(next)-windowSize:]
			}
			return next
		})
		werr = errors.Join(incErr, winErr)
	})
	return errors.Join(werr, err)
}

// SetPaused toggles reporting.
func (g *tickerGraph) SetPaused(p bool) error {
	return g.paused.Set(p)
}

// Dispose stops the report effect.
func (g *tickerGraph) Dispose() {
	g.report.Dispose()
}
