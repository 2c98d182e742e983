// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	"github.com/pkg/errors"

	ns "github.com/db47h/nandsim"
	"github.com/db47h/nandsim/internal/hdl"
)

// A Library holds the chips compiled from HDL source. Chips can use the
// built-in parts and any chip declared before them.
//
type Library struct {
	parts  map[string]*PartSpec
	clocks map[string][]string
	names  []string
}

// ParseHDL compiles the chips declared in src. name is used in error
// messages.
//
func ParseHDL(name, src string) (*Library, error) {
	chips, err := hdl.Parse(name, src)
	if err != nil {
		return nil, err
	}
	l := &Library{
		parts:  make(map[string]*PartSpec, len(chips)),
		clocks: make(map[string][]string, len(chips)),
	}
	for _, c := range chips {
		if _, ok := l.Lookup(c.Name); ok {
			return nil, errors.Errorf("%s: chip %s redeclared", c.Pos, c.Name)
		}
		parts := make([]Part, len(c.Parts))
		for i, p := range c.Parts {
			sp, ok := l.Lookup(p.Name)
			if !ok {
				return nil, errors.Errorf("%s: unknown part %s", p.Pos, p.Name)
			}
			parts[i] = Part{Spec: sp, Conns: make([]Conn, len(p.Conns))}
			for j, cn := range p.Conns {
				parts[i].Conns[j] = Conn{Pin: cn.Pin, Wire: cn.Wire}
			}
		}
		inputs := make([]string, 0, len(c.In)+len(c.Clock))
		inputs = append(inputs, c.In...)
		inputs = append(inputs, c.Clock...)
		spec, err := Chip(c.Name, inputs, c.Out, parts)
		if err != nil {
			return nil, errors.WithMessage(err, c.Pos.String())
		}
		l.parts[c.Name] = spec
		l.clocks[c.Name] = c.Clock
		l.names = append(l.names, c.Name)
	}
	return l, nil
}

// Lookup returns the chip or built-in part with the given name.
//
func (l *Library) Lookup(name string) (*PartSpec, bool) {
	if p, ok := l.parts[name]; ok {
		return p, true
	}
	return Lookup(name)
}

// Chips returns the names of the compiled chips in declaration order.
//
func (l *Library) Chips() []string {
	return append([]string(nil), l.names...)
}

// An Instance is a part mounted at the top level of a circuit.
//
type Instance struct {
	Name    string
	Inputs  map[string]ns.NodeID
	Outputs map[string]ns.NodeID
}

// Mount wires the named part at the top level of b. Each part input gets a
// free node, or a clock node if the chip declares it with CLOCK.
//
func (l *Library) Mount(b Builder, name string) (*Instance, error) {
	sp, ok := l.Lookup(name)
	if !ok {
		return nil, errors.Errorf("unknown part %s", name)
	}
	clock := make(map[string]bool)
	for _, n := range l.clocks[name] {
		clock[n] = true
	}
	inst := &Instance{
		Name:    name,
		Inputs:  make(map[string]ns.NodeID, len(sp.Inputs)),
		Outputs: make(map[string]ns.NodeID, len(sp.Outputs)),
	}
	in := make([]ns.NodeID, len(sp.Inputs))
	for i, n := range sp.Inputs {
		y := float32(i) * 3 * ns.NodeSize
		if clock[n] {
			in[i] = b.AddClockNode(0, y)
		} else {
			in[i] = b.AddNode(0, y)
		}
		inst.Inputs[n] = in[i]
	}
	out, err := sp.Wire(b, in...)
	if err != nil {
		return nil, err
	}
	for i, n := range sp.Outputs {
		inst.Outputs[n] = out[i]
	}
	return inst, nil
}
