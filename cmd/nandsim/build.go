// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	ns "github.com/db47h/nandsim"
	"github.com/db47h/nandsim/hwlib"
)

func (a *app) buildCmd() *cobra.Command {
	var chip, out string
	cmd := &cobra.Command{
		Use:   "build file.hdl",
		Short: "compile a chip described in HDL into a circuit file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return &ns.IOError{Op: "read", Path: args[0], Err: err}
			}
			lib, err := hwlib.ParseHDL(args[0], string(src))
			if err != nil {
				return err
			}
			if chip == "" {
				chips := lib.Chips()
				if len(chips) == 0 {
					return errors.Errorf("%s: no chip declared", args[0])
				}
				chip = chips[len(chips)-1]
			}
			if out == "" {
				out = a.cfg.Circuit
			}
			c := ns.NewCircuit()
			inst, err := lib.Mount(c, chip)
			if err != nil {
				return err
			}
			if err = a.settleAndSave(c, out); err != nil {
				return err
			}
			a.log.Info("chip built", zap.String("chip", chip), zap.String("path", out), zap.Int("components", c.Len()))
			printInstance(cmd.OutOrStdout(), inst)
			return nil
		},
	}
	cmd.Flags().StringVar(&chip, "chip", "", "chip to mount (default: last declared)")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output circuit file (default: configured circuit)")
	return cmd
}

// settleAndSave steps c once before saving it. Loading marks every component
// clean, so a circuit saved before its first step would never evaluate its
// gates.
func (a *app) settleAndSave(c *ns.Circuit, path string) error {
	if _, err := c.Step(a.cfg.OpsLimit); err != nil {
		return err
	}
	return c.SaveFile(path)
}

func printInstance(w io.Writer, inst *hwlib.Instance) {
	fmt.Fprintf(w, "%s\n", inst.Name)
	for _, k := range sortedKeys(inst.Inputs) {
		fmt.Fprintf(w, "  in  %-8s %v\n", k, inst.Inputs[k])
	}
	for _, k := range sortedKeys(inst.Outputs) {
		fmt.Fprintf(w, "  out %-8s %v\n", k, inst.Outputs[k])
	}
}

func (a *app) demoCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "write a demo circuit: half adder, full adder and a clocked inverter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = a.cfg.Circuit
			}
			c := ns.NewCircuit()
			parts, err := demo(c)
			if err != nil {
				return err
			}
			if err = a.settleAndSave(c, out); err != nil {
				return err
			}
			a.log.Info("demo circuit written", zap.String("path", out), zap.Int("components", c.Len()))
			for _, p := range parts {
				printInstance(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output circuit file (default: configured circuit)")
	return cmd
}

// demo wires the demo parts into b.
func demo(b hwlib.Builder) ([]*hwlib.Instance, error) {
	var parts []*hwlib.Instance

	in := hwlib.Inputs(b, 2, 0, 0)
	sum, carry, err := hwlib.HalfAdder(b, in[0], in[1])
	if err != nil {
		return nil, err
	}
	parts = append(parts, &hwlib.Instance{
		Name:    "HalfAdder",
		Inputs:  map[string]ns.NodeID{"a": in[0], "b": in[1]},
		Outputs: map[string]ns.NodeID{"sum": sum, "carry": carry},
	})

	in = hwlib.Inputs(b, 3, 0, 200)
	sum, carry, err = hwlib.FullAdder(b, in[0], in[1], in[2])
	if err != nil {
		return nil, err
	}
	parts = append(parts, &hwlib.Instance{
		Name:    "FullAdder",
		Inputs:  map[string]ns.NodeID{"a": in[0], "b": in[1], "c": in[2]},
		Outputs: map[string]ns.NodeID{"sum": sum, "carry": carry},
	})

	clk := b.AddClockNode(0, 400)
	nclk, err := hwlib.Not(b, clk)
	if err != nil {
		return nil, err
	}
	parts = append(parts, &hwlib.Instance{
		Name:    "Blinker",
		Inputs:  map[string]ns.NodeID{"clk": clk},
		Outputs: map[string]ns.NodeID{"out": nclk},
	})
	return parts, nil
}
