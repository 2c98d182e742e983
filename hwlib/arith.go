// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	"github.com/pkg/errors"

	ns "github.com/db47h/nandsim"
)

func (w *wirer) halfAdder(a, b ns.NodeID) (sum, carry ns.NodeID) {
	// the xor shares its first nand with the carry
	n := w.nand(a, b)
	sum = w.nand(w.nand(a, n), w.nand(b, n))
	carry = w.not(n)
	return sum, carry
}

func (w *wirer) fullAdder(a, b, c ns.NodeID) (sum, carry ns.NodeID) {
	s0, c0 := w.halfAdder(a, b)
	sum, c1 := w.halfAdder(s0, c)
	return sum, w.or(c0, c1)
}

// HalfAdder wires a half adder.
//
//	Inputs: a, b
//	Outputs: sum, carry
//	Function: sum = lsb(a + b)
//	          carry = msb(a + b)
//
func HalfAdder(bd Builder, a, b ns.NodeID) (sum, carry ns.NodeID, err error) {
	w := &wirer{b: bd}
	sum, carry = w.halfAdder(a, b)
	return sum, carry, w.err
}

// FullAdder wires a full adder.
//
//	Inputs: a, b, c
//	Outputs: sum, carry
//	Function: sum = lsb(a + b + c)
//	          carry = msb(a + b + c)
//
func FullAdder(bd Builder, a, b, c ns.NodeID) (sum, carry ns.NodeID, err error) {
	w := &wirer{b: bd}
	sum, carry = w.fullAdder(a, b, c)
	return sum, carry, w.err
}

// RippleAdder wires a ripple carry adder over len(a) individual bit nodes.
// Bit 0 is the lsb. a and b must have the same length.
//
//	Inputs: a[n], b[n]
//	Outputs: sum[n], carry
//	Function: sum = a + b
//
func RippleAdder(bd Builder, a, b []ns.NodeID) (sum []ns.NodeID, carry ns.NodeID, err error) {
	if len(a) != len(b) {
		return nil, 0, errors.Errorf("adder operands have different widths: %d and %d", len(a), len(b))
	}
	if len(a) == 0 {
		return nil, 0, errors.New("zero width adder")
	}
	w := &wirer{b: bd}
	sum = make([]ns.NodeID, len(a))
	sum[0], carry = w.halfAdder(a[0], b[0])
	for i := 1; i < len(a); i++ {
		sum[i], carry = w.fullAdder(a[i], b[i], carry)
	}
	if w.err != nil {
		return nil, 0, w.err
	}
	return sum, carry, nil
}
