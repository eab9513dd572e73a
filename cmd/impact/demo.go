package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/fmal/impact/internal/config"
	"github.com/fmal/impact/internal/errors"
	"github.com/fmal/impact/pkg/reactive"
	"github.com/spf13/cobra"
)

func demoCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run the counter and diamond scenarios",
		Long: `Run small reactive graphs and print every effect run.

  counter   count -> doubled -> log; writes 5 twice
  diamond   a -> (b, c) -> log; one write, one consistent run
  batch     x, y -> log; both written in one batch, one run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			rt := newRuntime(cfg, newLogger(cmd.ErrOrStderr(), cfg), nil)
			if err := runDemo(w, rt); err != nil {
				return errors.FromError(err, "E301")
			}
			success(w, "Demo finished")
			return nil
		},
	}
}

// newRuntime creates a runtime configured from cfg.
func newRuntime(cfg *config.Config, logger *slog.Logger, instr reactive.Instrumentation) *reactive.Runtime {
	return reactive.NewRuntime(reactive.Config{
		Logger:          logger,
		Instrumentation: instr,
		MaxRunsPerFlush: cfg.Runtime.MaxRunsPerFlush,
		CheckGoroutine:  cfg.Runtime.CheckGoroutine,
	})
}

func runDemo(w io.Writer, rt *reactive.Runtime) error {
	fmt.Fprintln(w, "counter")
	count := reactive.NewSignal(rt, 0).Named("count")
	doubled := reactive.NewComputed(rt, func() int { return count.Get() * 2 }).Named("doubled")
	counter, err := rt.Effect(func() error {
		info(w, "doubled = %d", doubled.Get())
		return nil
	}, reactive.EffectName("log-doubled"))
	if err != nil {
		return err
	}
	defer counter.Dispose()

	info(w, "set count = 5")
	if err := count.Set(5); err != nil {
		return err
	}
	info(w, "set count = 5 (unchanged)")
	if err := count.Set(5); err != nil {
		return err
	}

	fmt.Fprintln(w, "diamond")
	a := reactive.NewSignal(rt, 1).Named("a")
	b := reactive.NewComputed(rt, func() int { return a.Get() + 1 }).Named("b")
	c := reactive.NewComputed(rt, func() int { return a.Get() * 2 }).Named("c")
	diamond, err := rt.Effect(func() error {
		info(w, "b = %d, c = %d", b.Get(), c.Get())
		return nil
	}, reactive.EffectName("log-diamond"))
	if err != nil {
		return err
	}
	defer diamond.Dispose()

	info(w, "set a = 10")
	if err := a.Set(10); err != nil {
		return err
	}

	fmt.Fprintln(w, "batch")
	x := reactive.NewSignal(rt, 0).Named("x")
	y := reactive.NewSignal(rt, 0).Named("y")
	sum, err := rt.Effect(func() error {
		info(w, "x + y = %d", x.Get()+y.Get())
		return nil
	}, reactive.EffectName("log-sum"))
	if err != nil {
		return err
	}
	defer sum.Dispose()

	info(w, "set x = 1, y = 2 in one batch")
	return rt.Batch(func() {
		_ = x.Set(1)
		_ = y.Set(2)
	})
}
