// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package hwtest provides utility functions for testing circuits.
//
package hwtest

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	ns "github.com/db47h/nandsim"
	"github.com/db47h/nandsim/hwlib"
)

// OpsLimit caps the evaluations of a single settling step in tests, so that a
// miswired feedback loop fails the test instead of hanging it.
//
const OpsLimit = 1 << 20

// maxExhaustive is the largest input count tested exhaustively. Larger parts
// are tested with random inputs.
const maxExhaustive = 12

// bench wires parts side by side onto shared inputs.
type bench struct {
	c    *ns.Circuit
	ins  []ns.NodeID
	outs [][]ns.NodeID
}

func newBench(t testing.TB, parts ...*hwlib.PartSpec) *bench {
	t.Helper()
	b := &bench{c: ns.NewCircuit()}
	b.ins = hwlib.Inputs(b.c, len(parts[0].Inputs), 0, 0)
	for _, p := range parts {
		out, err := p.Wire(b.c, b.ins...)
		if err != nil {
			t.Fatal(err)
		}
		b.outs = append(b.outs, out)
	}
	return b
}

// set sets the inputs and steps the circuit until it settles.
func (b *bench) set(t testing.TB, in []bool) {
	t.Helper()
	for i, id := range b.ins {
		if err := b.c.SetValue(id, in[i]); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := b.c.Step(OpsLimit); err != nil {
		t.Fatal(err)
	}
}

func (b *bench) read(t testing.TB, part int) []bool {
	t.Helper()
	vs := make([]bool, len(b.outs[part]))
	for i, id := range b.outs[part] {
		v, err := b.c.Value(id)
		if err != nil {
			t.Fatal(err)
		}
		vs[i] = v
	}
	return vs
}

// inputSets returns the input combinations to test for n inputs: all of them
// for small n, all zeros, all ones and random ones otherwise.
func inputSets(n int) [][]bool {
	var sets [][]bool
	if n <= maxExhaustive {
		for i := 0; i < 1<<uint(n); i++ {
			in := make([]bool, n)
			for bit := range in {
				in[bit] = i&(1<<uint(bit)) != 0
			}
			sets = append(sets, in)
		}
		return sets
	}
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	zeros, ones := make([]bool, n), make([]bool, n)
	for i := range ones {
		ones[i] = true
	}
	sets = append(sets, zeros, ones)
	for k := 0; k < 1<<maxExhaustive; k++ {
		in := make([]bool, n)
		for i := range in {
			in[i] = r.Int63()&1 != 0
		}
		sets = append(sets, in)
	}
	return sets
}

func format(names []string, vs []bool) string {
	var b strings.Builder
	for i, n := range names {
		if b.Len() > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%v", n, vs[i])
	}
	return b.String()
}

// TruthTable mounts part in a fresh circuit and checks its outputs against
// fn for every input combination. in holds the input values in the order of
// part.Inputs and fn must return the expected outputs in the order of
// part.Outputs.
//
func TruthTable(t testing.TB, part *hwlib.PartSpec, fn func(in []bool) []bool) {
	t.Helper()
	b := newBench(t, part)
	for _, in := range inputSets(len(part.Inputs)) {
		b.set(t, in)
		got, exp := b.read(t, 0), fn(in)
		for o := range got {
			if got[o] != exp[o] {
				t.Fatalf("%s: %s: expected %s=%v, got %v", part.Name,
					format(part.Inputs, in), part.Outputs[o], exp[o], got[o])
			}
		}
	}
}

// ComparePart takes two parts and compares their outputs given the same
// inputs. Both parts must have the same Input/Output interface.
//
func ComparePart(t testing.TB, part1, part2 *hwlib.PartSpec) {
	t.Helper()
	if len(part1.Inputs) != len(part2.Inputs) {
		t.Fatalf("%s has %d inputs, %s has %d", part1.Name, len(part1.Inputs), part2.Name, len(part2.Inputs))
	}
	if len(part1.Outputs) != len(part2.Outputs) {
		t.Fatalf("%s has %d outputs, %s has %d", part1.Name, len(part1.Outputs), part2.Name, len(part2.Outputs))
	}
	for i := range part1.Inputs {
		if part1.Inputs[i] != part2.Inputs[i] {
			t.Fatalf("part1.Inputs[%d] = %q != part2.Inputs[%d] = %q", i, part1.Inputs[i], i, part2.Inputs[i])
		}
	}
	for i := range part1.Outputs {
		if part1.Outputs[i] != part2.Outputs[i] {
			t.Fatalf("part1.Outputs[%d] = %q != part2.Outputs[%d] = %q", i, part1.Outputs[i], i, part2.Outputs[i])
		}
	}

	start := time.Now()
	b := newBench(t, part1, part2)
	sets := inputSets(len(part1.Inputs))
	for _, in := range sets {
		b.set(t, in)
		o1, o2 := b.read(t, 0), b.read(t, 1)
		for o := range o1 {
			if o1[o] != o2[o] {
				t.Fatalf("%s: expected %s=%v, got %v", format(part1.Inputs, in), part1.Outputs[o], o1[o], o2[o])
			}
		}
	}
	t.Logf("%d components. %d input sets in %v", b.c.Len(), len(sets), time.Since(start))
}
