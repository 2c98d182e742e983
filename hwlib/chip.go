// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	"sort"

	"github.com/pkg/errors"

	ns "github.com/db47h/nandsim"
	"github.com/db47h/nandsim/internal/hdl"
)

// Constant wire names. A part input wired to "false" is held low, one wired to
// "true" is held high. Part inputs left unconnected are wired to false.
//
const (
	False = "false"
	True  = "true"
)

// A MountFn wires a part into b. in holds the nodes driving the part inputs,
// in the order of PartSpec.Inputs. It returns the nodes carrying the part
// outputs, in the order of PartSpec.Outputs.
//
type MountFn func(b Builder, in []ns.NodeID) ([]ns.NodeID, error)

// A PartSpec describes a part: its name, its pins and how to wire it.
//
type PartSpec struct {
	Name    string
	Inputs  []string
	Outputs []string
	Mount   MountFn
}

// A Conn connects the pin of a part to a wire of the enclosing chip.
//
type Conn struct {
	Pin  string
	Wire string
}

// A Part is an instance of a PartSpec in a chip.
//
type Part struct {
	Spec  *PartSpec
	Conns []Conn
}

// NewPart returns a new part from p and a connection string like
// "a=x, b=y, out=z". Pins are checked by Chip.
//
func (p *PartSpec) NewPart(connections string) (Part, error) {
	cs, err := hdl.ParseConns(connections)
	if err != nil {
		return Part{}, errors.Wrapf(err, "part %s", p.Name)
	}
	part := Part{Spec: p, Conns: make([]Conn, len(cs))}
	for i, c := range cs {
		part.Conns[i] = Conn{Pin: c.Pin, Wire: c.Wire}
	}
	return part, nil
}

// Wire mounts p on its own: it wires the given inputs into b and returns the
// output nodes.
//
func (p *PartSpec) Wire(b Builder, in ...ns.NodeID) ([]ns.NodeID, error) {
	if len(in) != len(p.Inputs) {
		return nil, errors.Errorf("%s: got %d inputs, want %d", p.Name, len(in), len(p.Inputs))
	}
	out, err := p.Mount(b, in)
	if err != nil {
		return nil, errors.WithMessage(err, p.Name)
	}
	if len(out) != len(p.Outputs) {
		return nil, errors.Errorf("%s: mount returned %d outputs, want %d", p.Name, len(out), len(p.Outputs))
	}
	return out, nil
}

func indexOf(pins []string, name string) int {
	for i, n := range pins {
		if n == name {
			return i
		}
	}
	return -1
}

type chip struct {
	PartSpec
	parts []*PartSpec
	ins   [][]string // per part, the wire driving each input
	outs  [][]outWire
}

// outWire connects output k of a part to a wire.
type outWire struct {
	k    int
	wire string
}

// Chip composes existing parts into a new part. The pin names given as
// inputs and outputs are the pins of the new part.
//
// A Xor gate could be created like this:
//
//	nand, _ := Lookup("Nand")
//	p0, _ := nand.NewPart("a=a, b=b, out=nandAB")
//	p1, _ := nand.NewPart("a=a, b=nandAB, out=w0")
//	p2, _ := nand.NewPart("a=b, b=nandAB, out=w1")
//	p3, _ := nand.NewPart("a=w0, b=w1, out=out")
//	xor, err := Chip("Xor", []string{"a", "b"}, []string{"out"}, []Part{p0, p1, p2, p3})
//
// Every wire read by a part input must be a chip input, a constant or be
// driven by exactly one part output. Every chip output must be driven by a
// part output. Feedback wires are allowed.
//
func Chip(name string, inputs, outputs []string, parts []Part) (*PartSpec, error) {
	const (
		wireIn = iota + 1
		wireOut
		wireConst
	)
	kind := map[string]int{False: wireConst, True: wireConst}
	for _, n := range inputs {
		if kind[n] != 0 {
			return nil, errors.Errorf("%s: duplicate or reserved pin name %s", name, n)
		}
		kind[n] = wireIn
	}
	for _, n := range outputs {
		if kind[n] != 0 {
			return nil, errors.Errorf("%s: duplicate or reserved pin name %s", name, n)
		}
		kind[n] = wireOut
	}

	c := &chip{
		PartSpec: PartSpec{Name: name, Inputs: inputs, Outputs: outputs},
		parts:    make([]*PartSpec, len(parts)),
		ins:      make([][]string, len(parts)),
		outs:     make([][]outWire, len(parts)),
	}
	driver := make(map[string]string) // wire -> pin driving it
	for i, p := range parts {
		sp := p.Spec
		if sp == nil {
			return nil, errors.Errorf("%s: part %d has no spec", name, i)
		}
		c.parts[i] = sp
		c.ins[i] = make([]string, len(sp.Inputs))
		for _, cn := range p.Conns {
			pin := sp.Name + "." + cn.Pin
			if k := indexOf(sp.Inputs, cn.Pin); k >= 0 {
				if c.ins[i][k] != "" {
					return nil, errors.Errorf("%s: input pin %s connected more than once", name, pin)
				}
				c.ins[i][k] = cn.Wire
				continue
			}
			k := indexOf(sp.Outputs, cn.Pin)
			if k < 0 {
				return nil, errors.Errorf("%s: invalid pin name %s for part %s", name, cn.Pin, sp.Name)
			}
			switch kind[cn.Wire] {
			case wireIn:
				return nil, errors.Errorf("%s: output pin %s connected to chip input %s", name, pin, cn.Wire)
			case wireConst:
				return nil, errors.Errorf("%s: output pin %s connected to constant %s", name, pin, cn.Wire)
			}
			if d, ok := driver[cn.Wire]; ok {
				return nil, errors.Errorf("%s: wire %s driven by both %s and %s", name, cn.Wire, d, pin)
			}
			driver[cn.Wire] = pin
			c.outs[i] = append(c.outs[i], outWire{k, cn.Wire})
		}
	}

	for i, sp := range c.parts {
		for k, w := range c.ins[i] {
			switch {
			case w == "":
				c.ins[i][k] = False
			case kind[w] == wireIn || kind[w] == wireConst:
			case driver[w] == "":
				return nil, errors.Errorf("%s: pin %s.%s: wire %s not connected to any output", name, sp.Name, sp.Inputs[k], w)
			}
		}
	}
	for _, o := range outputs {
		if driver[o] == "" {
			return nil, errors.Errorf("%s: output %s not connected to any part output", name, o)
		}
	}
	c.PartSpec.Mount = c.mount
	return &c.PartSpec, nil
}

func (c *chip) mount(b Builder, in []ns.NodeID) ([]ns.NodeID, error) {
	var err error
	wires := make(map[string]ns.NodeID, len(in))
	for i, n := range c.Inputs {
		wires[n] = in[i]
	}
	node := func(name string) ns.NodeID {
		if id, ok := wires[name]; ok {
			return id
		}
		id := b.AddNode(0, 0)
		wires[name] = id
		if name == True && err == nil {
			err = b.SetValue(id, true)
		}
		return id
	}

	for i, sp := range c.parts {
		ins := make([]ns.NodeID, len(sp.Inputs))
		for k, w := range c.ins[i] {
			ins[k] = node(w)
		}
		if err != nil {
			return nil, err
		}
		outs, werr := sp.Wire(b, ins...)
		if werr != nil {
			return nil, werr
		}
		for _, o := range c.outs[i] {
			if werr = b.Connect(outs[o.k], node(o.wire)); werr != nil {
				return nil, werr
			}
		}
	}
	out := make([]ns.NodeID, len(c.Outputs))
	for i, o := range c.Outputs {
		out[i] = node(o)
	}
	return out, err
}

func gate1(name string, fn func(w *wirer, in ns.NodeID) ns.NodeID) *PartSpec {
	return &PartSpec{
		Name:    name,
		Inputs:  []string{pIn},
		Outputs: []string{pOut},
		Mount: func(b Builder, in []ns.NodeID) ([]ns.NodeID, error) {
			w := &wirer{b: b}
			out := fn(w, in[0])
			return []ns.NodeID{out}, w.err
		},
	}
}

func gate2(name string, fn func(w *wirer, a, b ns.NodeID) ns.NodeID) *PartSpec {
	return &PartSpec{
		Name:    name,
		Inputs:  []string{pA, pB},
		Outputs: []string{pOut},
		Mount: func(b Builder, in []ns.NodeID) ([]ns.NodeID, error) {
			w := &wirer{b: b}
			out := fn(w, in[0], in[1])
			return []ns.NodeID{out}, w.err
		},
	}
}

func or8Way(b Builder, in []ns.NodeID) ([]ns.NodeID, error) {
	var a [8]ns.NodeID
	copy(a[:], in)
	out, err := Or8Way(b, a)
	return []ns.NodeID{out}, err
}

var builtins = map[string]*PartSpec{}

func register(ps ...*PartSpec) {
	for _, p := range ps {
		builtins[p.Name] = p
	}
}

func init() {
	register(
		gate2("Nand", (*wirer).nand),
		gate1("Not", (*wirer).not),
		gate2("And", (*wirer).and),
		gate2("Or", (*wirer).or),
		gate2("Nor", (*wirer).nor),
		gate2("Xor", (*wirer).xor),
		gate2("Xnor", (*wirer).xnor),
		&PartSpec{
			Name:    "Or8Way",
			Inputs:  []string{"in0", "in1", "in2", "in3", "in4", "in5", "in6", "in7"},
			Outputs: []string{pOut},
			Mount:   or8Way,
		},
		&PartSpec{
			Name:    "Mux",
			Inputs:  []string{pA, pB, pSel},
			Outputs: []string{pOut},
			Mount: func(b Builder, in []ns.NodeID) ([]ns.NodeID, error) {
				out, err := Mux(b, in[0], in[1], in[2])
				return []ns.NodeID{out}, err
			},
		},
		&PartSpec{
			Name:    "DMux",
			Inputs:  []string{pIn, pSel},
			Outputs: []string{pA, pB},
			Mount: func(b Builder, in []ns.NodeID) ([]ns.NodeID, error) {
				a, bb, err := DMux(b, in[0], in[1])
				return []ns.NodeID{a, bb}, err
			},
		},
		&PartSpec{
			Name:    "HalfAdder",
			Inputs:  []string{pA, pB},
			Outputs: []string{pSum, pCarry},
			Mount: func(b Builder, in []ns.NodeID) ([]ns.NodeID, error) {
				s, c, err := HalfAdder(b, in[0], in[1])
				return []ns.NodeID{s, c}, err
			},
		},
		&PartSpec{
			Name:    "FullAdder",
			Inputs:  []string{pA, pB, pC},
			Outputs: []string{pSum, pCarry},
			Mount: func(b Builder, in []ns.NodeID) ([]ns.NodeID, error) {
				s, c, err := FullAdder(b, in[0], in[1], in[2])
				return []ns.NodeID{s, c}, err
			},
		},
	)
}

// Lookup returns the built-in part with the given name.
//
func Lookup(name string) (*PartSpec, bool) {
	p, ok := builtins[name]
	return p, ok
}

// Builtins returns the sorted names of the built-in parts.
//
func Builtins() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
