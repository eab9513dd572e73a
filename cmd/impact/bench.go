package main

import (
	"fmt"
	"time"

	"github.com/fmal/impact/internal/errors"
	"github.com/fmal/impact/pkg/reactive"
	"github.com/spf13/cobra"
)

// benchOptions describe one synthetic graph run.
type benchOptions struct {
	Shape  string
	Size   int
	Writes int
}

// benchResult is what one run measured. Counts exclude graph construction.
type benchResult struct {
	benchOptions
	Runs       int
	Recomputes int
	Duration   time.Duration
}

func benchCmd(flags *globalFlags) *cobra.Command {
	opts := benchOptions{Shape: "chain", Size: 100, Writes: 1000}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure propagation over a synthetic graph",
		Long: `Build a synthetic graph, write its source signal repeatedly, verify
the dependency edges and print what propagation cost.

Shapes:
  chain    src -> c1 -> c2 -> ... -> cN -> effect
  diamond  src -> (c1 ... cN) -> one effect reading all of them
  fanout   src -> ci -> effect_i, N times

Examples:
  impact bench
  impact bench --shape diamond --size 500 --writes 200`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			res, err := runBench(opts, func(instr reactive.Instrumentation) *reactive.Runtime {
				return newRuntime(cfg, newLogger(cmd.ErrOrStderr(), cfg), instr)
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			success(w, "%s graph of %d, %d writes", res.Shape, res.Size, res.Writes)
			info(w, "runs:        %d", res.Runs)
			info(w, "recomputes:  %d", res.Recomputes)
			info(w, "duration:    %s", res.Duration.Round(time.Microsecond))
			if res.Writes > 0 {
				info(w, "per write:   %s", (res.Duration / time.Duration(res.Writes)).Round(time.Nanosecond))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Shape, "shape", opts.Shape, "Graph shape: chain, diamond or fanout")
	cmd.Flags().IntVar(&opts.Size, "size", opts.Size, "Number of computed nodes")
	cmd.Flags().IntVar(&opts.Writes, "writes", opts.Writes, "Number of source writes")

	return cmd
}

// runBench builds the graph on a runtime from newRT, performs the writes
// and checks the edge invariants.
func runBench(opts benchOptions, newRT func(reactive.Instrumentation) *reactive.Runtime) (benchResult, error) {
	res := benchResult{benchOptions: opts}
	if opts.Size < 1 {
		return res, errors.New("E200").WithDetail(fmt.Sprintf("--size must be at least 1, got %d", opts.Size))
	}
	if opts.Writes < 0 {
		return res, errors.New("E200").WithDetail(fmt.Sprintf("--writes must not be negative, got %d", opts.Writes))
	}

	counting := false
	rt := newRT(reactive.InstrumentationFunc(func(ev reactive.Event) {
		if !counting {
			return
		}
		switch ev.Kind {
		case reactive.EventRun:
			res.Runs++
		case reactive.EventRecompute:
			res.Recomputes++
		}
	}))

	src := reactive.NewSignal(rt, 0).Named("src")
	effects, err := buildGraph(rt, src, opts)
	if err != nil {
		return res, errors.FromError(err, "E301")
	}
	defer func() {
		for _, e := range effects {
			e.Dispose()
		}
	}()

	counting = true
	start := time.Now()
	for i := 1; i <= opts.Writes; i++ {
		if err := src.Set(i); err != nil {
			return res, errors.FromError(err, "E301")
		}
	}
	res.Duration = time.Since(start)
	counting = false

	if err := rt.CheckEdges(); err != nil {
		return res, errors.New("E201").Wrap(err)
	}
	return res, nil
}

func buildGraph(rt *reactive.Runtime, src *reactive.Signal[int], opts benchOptions) ([]*reactive.Effect, error) {
	sink := func(read func() int) (*reactive.Effect, error) {
		return rt.Effect(func() error {
			_ = read()
			return nil
		})
	}

	switch opts.Shape {
	case "chain":
		prev := func() int { return src.Get() }
		for i := 0; i < opts.Size; i++ {
			c := reactive.NewComputed(rt, func(p func() int) func() int {
				return func() int { return p() + 1 }
			}(prev))
			prev = c.Get
		}
		e, err := sink(prev)
		return []*reactive.Effect{e}, err

	case "diamond":
		nodes := make([]*reactive.Computed[int], opts.Size)
		for i := range nodes {
			k := i + 1
			nodes[i] = reactive.NewComputed(rt, func() int { return src.Get() * k })
		}
		e, err := sink(func() int {
			total := 0
			for _, c := range nodes {
				total += c.Get()
			}
			return total
		})
		return []*reactive.Effect{e}, err

	case "fanout":
		effects := make([]*reactive.Effect, 0, opts.Size)
		for i := 0; i < opts.Size; i++ {
			k := i
			c := reactive.NewComputed(rt, func() int { return src.Get() + k })
			e, err := sink(c.Get)
			if err != nil {
				return effects, err
			}
			effects = append(effects, e)
		}
		return effects, nil

	default:
		return nil, errors.New("E200").
			WithDetail(fmt.Sprintf("unknown shape %q", opts.Shape)).
			WithSuggestion("Use --shape chain, diamond or fanout")
	}
}
