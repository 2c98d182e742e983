// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	ns "github.com/db47h/nandsim"
)

func (a *app) stepCmd() *cobra.Command {
	var (
		n    uint64
		sets []string
		all  bool
		save bool
	)
	cmd := &cobra.Command{
		Use:         "step [circuit]",
		Short:       "apply inputs, step the circuit and print node values",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{circuitArg: "1"},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.simulator()
			if err != nil {
				return err
			}
			for _, set := range sets {
				id, v, err := parseAssign(set)
				if err != nil {
					return err
				}
				if err = s.SetValue(id, v); err != nil {
					return err
				}
			}
			for i := uint64(0); i < n; i++ {
				if err = s.Step(); err != nil {
					return errors.WithMessagef(err, "step %d", i)
				}
			}
			w := cmd.OutOrStdout()
			printStats(w, s.Stats())
			printNodes(w, s.Snapshot(), all)
			if save {
				return s.SaveFile(a.cfg.Circuit)
			}
			return nil
		},
	}
	cmd.Flags().Uint64VarP(&n, "steps", "n", 1, "number of steps")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "set a node value before stepping: id=0|1 (repeatable)")
	cmd.Flags().BoolVar(&all, "all", false, "also print gate pins")
	cmd.Flags().BoolVar(&save, "save", false, "save the circuit after stepping")
	return cmd
}

func printStats(w io.Writer, st ns.Stats) {
	fmt.Fprintf(w, "steps: %d  last step: %v  ops/step: %d  ops total: %d\n",
		st.Steps, st.StepTime, st.OpsPerStep, st.OpsTotal)
}

func printNodes(w io.Writer, snap ns.Snapshot, all bool) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NODE\tVALUE\tGATE\tCLOCK\tDRIVES")
	for _, n := range snap.Nodes {
		if n.Gate != ns.NoGate && !all {
			continue
		}
		gate := "-"
		if n.Gate != ns.NoGate {
			gate = n.Gate.String()
		}
		v := 0
		if n.Value {
			v = 1
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%v\t%v\n", n.ID, v, gate, n.Clock, n.Drives)
	}
	_ = tw.Flush()
}

func (a *app) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "info [circuit]",
		Short:       "print circuit statistics",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{circuitArg: "1"},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.simulator()
			if err != nil {
				return err
			}
			snap := s.Snapshot()
			dirty := 0
			for _, c := range snap.Components {
				if c.Dirty {
					dirty++
				}
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "circuit:     %s\n", a.cfg.Circuit)
			fmt.Fprintf(w, "components:  %d (%d dirty)\n", len(snap.Components), dirty)
			fmt.Fprintf(w, "nodes:       %d\n", len(snap.Nodes))
			fmt.Fprintf(w, "gates:       %d\n", len(snap.Gates))
			fmt.Fprintf(w, "clocks:      %v\n", snap.Clocks)
			fmt.Fprintf(w, "fingerprint: %016x\n", s.Fingerprint())
			return nil
		},
	}
}

func (a *app) traceCmd() *cobra.Command {
	var (
		nodes []string
		n     int
		sets  []string
	)
	cmd := &cobra.Command{
		Use:         "trace [circuit]",
		Short:       "plot node values over successive steps",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{circuitArg: "1"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(nodes) == 0 {
				return errors.New("no node to trace, use --node")
			}
			if n <= 0 {
				return errors.New("--steps must be positive")
			}
			s, err := a.simulator()
			if err != nil {
				return err
			}
			ids := make([]ns.NodeID, len(nodes))
			for i, arg := range nodes {
				if ids[i], err = parseNodeID(arg); err != nil {
					return err
				}
			}
			for _, set := range sets {
				id, v, err := parseAssign(set)
				if err != nil {
					return err
				}
				if err = s.SetValue(id, v); err != nil {
					return err
				}
			}
			data, err := trace(s, ids, n)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), asciigraph.PlotMany(data,
				asciigraph.Height(4*len(ids)),
				asciigraph.Precision(0),
				asciigraph.Caption(fmt.Sprintf("nodes %v over %d steps", ids, n)),
			))
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&nodes, "node", nil, "node ids to trace (repeatable)")
	cmd.Flags().IntVarP(&n, "steps", "n", 32, "number of steps")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "set a node value before tracing: id=0|1 (repeatable)")
	return cmd
}

// trace steps s n times and records the values of ids after each step. Each
// series is offset by 2*index so that the plots do not overlap.
func trace(s *ns.Simulator, ids []ns.NodeID, n int) ([][]float64, error) {
	data := make([][]float64, len(ids))
	for i := range data {
		data[i] = make([]float64, 0, n)
	}
	for k := 0; k < n; k++ {
		if err := s.Step(); err != nil {
			return nil, errors.WithMessagef(err, "step %d", k)
		}
		for i, id := range ids {
			v, err := s.Value(id)
			if err != nil {
				return nil, err
			}
			y := float64(2 * i)
			if v {
				y++
			}
			data[i] = append(data[i], y)
		}
	}
	return data, nil
}
