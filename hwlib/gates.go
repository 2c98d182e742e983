// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package hwlib provides a library of reusable parts built from NAND gates.
//
// Every part is wired into a Builder, usually a *nandsim.Circuit or a
// *nandsim.Simulator, and returns the nodes carrying its outputs. The
// outputs only reflect the inputs once the circuit has been stepped until it
// settles.
//
// Parts do not roll back on error: the gates added before the failure are
// left in place.
//
package hwlib

import (
	ns "github.com/db47h/nandsim"
)

// common pin names
const (
	pA     = "a"
	pB     = "b"
	pC     = "c"
	pIn    = "in"
	pSel   = "sel"
	pOut   = "out"
	pSum   = "sum"
	pCarry = "carry"
)

// A Builder adds entities to a circuit. It is implemented by *nandsim.Circuit
// and *nandsim.Simulator.
//
type Builder interface {
	AddNode(x, y float32) ns.NodeID
	AddClockNode(x, y float32) ns.NodeID
	AddGate(x, y float32) ns.GateID
	GateInputs(id ns.GateID) (in0, in1 ns.NodeID, err error)
	GateOutput(id ns.GateID) (ns.NodeID, error)
	Connect(src, dst ns.NodeID) error
	SetValue(id ns.NodeID, v bool) error
}

// wirer chains part construction and keeps the first error.
type wirer struct {
	b   Builder
	err error
}

// nand adds a gate with its inputs driven by a and b.
func (w *wirer) nand(a, b ns.NodeID) ns.NodeID {
	if w.err != nil {
		return 0
	}
	g := w.b.AddGate(0, 0)
	in0, in1, err := w.b.GateInputs(g)
	if err == nil {
		err = w.b.Connect(a, in0)
	}
	if err == nil {
		err = w.b.Connect(b, in1)
	}
	var out ns.NodeID
	if err == nil {
		out, err = w.b.GateOutput(g)
	}
	w.err = err
	return out
}

func (w *wirer) not(in ns.NodeID) ns.NodeID {
	return w.nand(in, in)
}

func (w *wirer) and(a, b ns.NodeID) ns.NodeID {
	return w.not(w.nand(a, b))
}

func (w *wirer) or(a, b ns.NodeID) ns.NodeID {
	return w.nand(w.not(a), w.not(b))
}

func (w *wirer) nor(a, b ns.NodeID) ns.NodeID {
	return w.not(w.or(a, b))
}

func (w *wirer) xor(a, b ns.NodeID) ns.NodeID {
	n := w.nand(a, b)
	return w.nand(w.nand(a, n), w.nand(b, n))
}

// xnor is !((a|b) & !(a&b)).
func (w *wirer) xnor(a, b ns.NodeID) ns.NodeID {
	return w.nand(w.or(a, b), w.nand(a, b))
}

// Nand wires a single NAND gate.
//
//	Inputs: a, b
//	Outputs: out
//	Function: out = !(a && b)
//
func Nand(b Builder, x, y ns.NodeID) (ns.NodeID, error) {
	w := &wirer{b: b}
	out := w.nand(x, y)
	return out, w.err
}

// Not wires a NOT gate made of one NAND.
//
//	Inputs: in
//	Outputs: out
//	Function: out = !in
//
func Not(b Builder, in ns.NodeID) (ns.NodeID, error) {
	w := &wirer{b: b}
	out := w.not(in)
	return out, w.err
}

// And wires an AND gate made of two NANDs.
//
//	Inputs: a, b
//	Outputs: out
//	Function: out = a && b
//
func And(b Builder, x, y ns.NodeID) (ns.NodeID, error) {
	w := &wirer{b: b}
	out := w.and(x, y)
	return out, w.err
}

// Or wires an OR gate made of three NANDs.
//
//	Inputs: a, b
//	Outputs: out
//	Function: out = a || b
//
func Or(b Builder, x, y ns.NodeID) (ns.NodeID, error) {
	w := &wirer{b: b}
	out := w.or(x, y)
	return out, w.err
}

// Nor wires a NOR gate.
//
//	Inputs: a, b
//	Outputs: out
//	Function: out = !(a || b)
//
func Nor(b Builder, x, y ns.NodeID) (ns.NodeID, error) {
	w := &wirer{b: b}
	out := w.nor(x, y)
	return out, w.err
}

// Xor wires a XOR gate made of four NANDs.
//
//	Inputs: a, b
//	Outputs: out
//	Function: out = a && !b || !a && b
//
func Xor(b Builder, x, y ns.NodeID) (ns.NodeID, error) {
	w := &wirer{b: b}
	out := w.xor(x, y)
	return out, w.err
}

// Xnor wires a XNOR gate.
//
//	Inputs: a, b
//	Outputs: out
//	Function: out = a && b || !a && !b
//
func Xnor(b Builder, x, y ns.NodeID) (ns.NodeID, error) {
	w := &wirer{b: b}
	out := w.xnor(x, y)
	return out, w.err
}

// Or8Way wires an 8 input OR gate.
//
//	Inputs: in[8]
//	Outputs: out
//	Function: out = in[0] || in[1] || ... || in[7]
//
func Or8Way(b Builder, in [8]ns.NodeID) (ns.NodeID, error) {
	w := &wirer{b: b}
	out := w.or(
		w.or(w.or(in[0], in[1]), w.or(in[2], in[3])),
		w.or(w.or(in[4], in[5]), w.or(in[6], in[7])))
	return out, w.err
}
