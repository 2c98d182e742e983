// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package nandsim

import (
	"github.com/pkg/errors"
)

// Step advances the circuit by one tick and returns the number of component
// evaluations it took.
//
// Clock nodes are toggled first, in registration order. Every dirty
// component is then queued in registration order and the queue is drained
// breadth first: a node copies its value to the nodes it drives, a gate
// computes !(in0 && in1) into its output pin. A component is queued again only
// if its value actually changed, so Step always returns on an acyclic
// circuit.
//
// On a combinational loop that never settles (a Nand whose output drives
// both its inputs for instance), Step does not return unless limit is
// non-zero. When more than limit components have been evaluated, Step drops
// the queue and returns ErrUnsettled. Components that were still pending stay
// dirty and are picked up by the next call.
//
func (c *Circuit) Step(limit uint64) (ops uint64, err error) {
	for _, id := range c.clocks {
		n := c.nodes[id]
		n.value = !n.value
		c.touch(id, n, false)
	}

	q := c.queue[:0]
	for id, cp := range c.components {
		if cp != nil && cp.dirty {
			q = append(q, ComponentID(id))
		}
	}
	c.queue = q

	head := 0
	for head < len(c.queue) {
		if limit > 0 && ops >= limit {
			c.queue = c.queue[:0]
			return ops, errors.Wrapf(ErrUnsettled, "gave up after %d evaluations", ops)
		}
		cp := c.components[c.queue[head]]
		head++
		ops++
		cp.dirty = false
		switch id := cp.impl.(type) {
		case NodeID:
			c.evalNode(id)
		case GateID:
			c.evalGate(id)
		}
		// reclaim the consumed part of the queue on long runs.
		if head >= 1024 && head*2 >= len(c.queue) {
			n := copy(c.queue, c.queue[head:])
			c.queue = c.queue[:n]
			head = 0
		}
	}
	c.queue = c.queue[:0]
	return ops, nil
}

func (c *Circuit) evalNode(id NodeID) {
	n := c.nodes[id]
	for _, d := range n.drives {
		dn := c.nodes[d]
		if dn.value != n.value {
			dn.value = n.value
			c.touch(d, dn, true)
		}
	}
}

func (c *Circuit) evalGate(id GateID) {
	g := c.gates[id]
	v := !(c.nodes[g.in0].value && c.nodes[g.in1].value)
	out := c.nodes[g.out]
	if out.value != v {
		out.value = v
		c.touch(g.out, out, true)
	}
}
