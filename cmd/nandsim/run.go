// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	ns "github.com/db47h/nandsim"
)

func (a *app) runCmd() *cobra.Command {
	var (
		steps    uint64
		duration time.Duration
	)
	cmd := &cobra.Command{
		Use:         "run [circuit]",
		Short:       "run the simulation until interrupted",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{circuitArg: "1"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), steps, duration)
		},
	}
	cmd.Flags().Uint64Var(&steps, "steps", 0, "stop after this many steps (0: no limit)")
	cmd.Flags().DurationVar(&duration, "duration", 0, "stop after this duration (0: no limit)")
	return cmd
}

func (a *app) run(ctx context.Context, steps uint64, duration time.Duration) error {
	s, err := a.simulator()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Loop(ctx) })
	if steps > 0 {
		g.Go(func() error { return stopAfter(ctx, s, steps, cancel) })
	}
	if a.cfg.ReportInterval > 0 {
		g.Go(func() error { return a.report(ctx, s, a.cfg.ReportInterval) })
	}
	if a.cfg.Running {
		s.Run()
	}

	err = g.Wait()
	s.Stop()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	a.logStats(s)

	if a.cfg.Autosave && s.Modified() {
		if serr := s.SaveFile(a.cfg.Circuit); serr != nil && err == nil {
			err = serr
		}
	}
	return err
}

// stopAfter calls cancel once s has completed n steps.
func stopAfter(ctx context.Context, s *ns.Simulator, n uint64, cancel context.CancelFunc) error {
	t := time.NewTicker(time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if s.StepCount() >= n {
				cancel()
				return nil
			}
		}
	}
}

// report logs the simulation counters every interval.
func (a *app) report(ctx context.Context, s *ns.Simulator, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	var last uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			st := s.Stats()
			a.log.Info("stats",
				zap.Uint64("steps", st.Steps),
				zap.Float64("stepsPerSecond", float64(st.Steps-last)/interval.Seconds()),
				zap.Duration("stepTime", st.StepTime),
				zap.Uint64("opsPerStep", st.OpsPerStep),
				zap.Uint64("opsTotal", st.OpsTotal))
			last = st.Steps
		}
	}
}

func (a *app) logStats(s *ns.Simulator) {
	st := s.Stats()
	a.log.Info("simulation ended",
		zap.Uint64("steps", st.Steps),
		zap.Uint64("opsTotal", st.OpsTotal))
}
