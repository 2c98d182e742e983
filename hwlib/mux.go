// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	ns "github.com/db47h/nandsim"
)

func (w *wirer) mux(a, b, sel ns.NodeID) ns.NodeID {
	nsel := w.not(sel)
	return w.nand(w.nand(a, nsel), w.nand(b, sel))
}

func (w *wirer) dmux(in, sel ns.NodeID) (a, b ns.NodeID) {
	return w.and(in, w.not(sel)), w.and(in, sel)
}

// Mux wires a multiplexer.
//
//	Inputs: a, b, sel
//	Outputs: out
//	Function: if sel == 0 { out = a } else { out = b }
//
func Mux(bd Builder, a, b, sel ns.NodeID) (ns.NodeID, error) {
	w := &wirer{b: bd}
	out := w.mux(a, b, sel)
	return out, w.err
}

// DMux wires a demultiplexer.
//
//	Inputs: in, sel
//	Outputs: a, b
//	Function: if sel == 0 { a = in; b = 0 } else { a = 0; b = in }
//
func DMux(bd Builder, in, sel ns.NodeID) (a, b ns.NodeID, err error) {
	w := &wirer{b: bd}
	a, b = w.dmux(in, sel)
	return a, b, w.err
}
