// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

/*
Package nandsim is an event-driven logic simulator where every circuit is
built from 2-input NAND gates and single-bit nodes.

A Circuit stores nodes, gates and the clock nodes. Nodes drive other nodes:
when a node is evaluated, every node in its fan-out list takes its value. A
gate owns three nodes, two input pins and an output pin, and computes
out = !(in0 && in1).

Propagation is incremental. Every mutation that may change an output marks
the affected components dirty, and Circuit.Step only evaluates dirty
components, queueing a component again only when its value actually changed.
Each step starts by toggling the clock nodes.

	c := nandsim.NewCircuit()
	a, b := c.AddNode(0, 0), c.AddNode(0, 20)
	g := c.AddGate(50, 0)
	in0, in1, _ := c.GateInputs(g)
	out, _ := c.GateOutput(g)
	c.Connect(a, in0)
	c.Connect(b, in1)
	c.SetValue(a, true)
	c.Step(0)
	v, _ := c.Value(out) // true

A Circuit is not safe for concurrent use. Simulator wraps one behind a mutex
and runs it from a background loop, with run/stop control and step
counters.

Circuits are persisted as JSON or YAML documents (see Circuit.Encode,
Circuit.SaveFile and Circuit.LoadFile). Package hwlib provides common parts
built from NAND gates and a small hardware description language to compose
them.
*/
package nandsim
