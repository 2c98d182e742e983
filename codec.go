// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package nandsim

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// MaxEntities bounds the ids accepted when decoding a circuit.
//
const MaxEntities = 1 << 22

// Format is a persisted circuit format.
//
type Format int

// Supported formats.
//
const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatFor returns the format matching the extension of path: FormatYAML
// for ".yaml" and ".yml", FormatJSON otherwise.
//
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// persisted document. Ids are wrapped in {"value": n} objects and kinds are
// stored as integers.
type idDoc struct {
	Value uint64 `json:"value" yaml:"value"`
}

type implDoc struct {
	Type  int    `json:"type" yaml:"type"` // 0: node, 1: gate
	Value uint64 `json:"value" yaml:"value"`
}

type componentDoc struct {
	ID     idDoc   `json:"id" yaml:"id"`
	Type   Kind    `json:"type" yaml:"type"`
	ImplID implDoc `json:"implId" yaml:"implId"`
	Dirty  *bool   `json:"dirty,omitempty" yaml:"dirty,omitempty"` // written, ignored on load
	X      float32 `json:"x" yaml:"x"`
	Y      float32 `json:"y" yaml:"y"`
	W      float32 `json:"w" yaml:"w"`
	H      float32 `json:"h" yaml:"h"`
}

type nodeDoc struct {
	ID          idDoc `json:"id" yaml:"id"`
	ComponentID idDoc `json:"componentId" yaml:"componentId"`
	Value       bool  `json:"value,omitempty" yaml:"value,omitempty"`
}

type gateDoc struct {
	ID          idDoc `json:"id" yaml:"id"`
	ComponentID idDoc `json:"componentId" yaml:"componentId"`
	Input0ID    idDoc `json:"input0Id" yaml:"input0Id"`
	Input1ID    idDoc `json:"input1Id" yaml:"input1Id"`
	OutputID    idDoc `json:"outputId" yaml:"outputId"`
}

type document struct {
	Components   *[]componentDoc `json:"components" yaml:"components"`
	Nodes        *[]nodeDoc      `json:"nodes" yaml:"nodes"`
	Gates        *[]gateDoc      `json:"gates" yaml:"gates"`
	DrivingNodes *[][]idDoc      `json:"drivingNodes" yaml:"drivingNodes"`
	ClockNodes   *[]idDoc        `json:"clockNodes" yaml:"clockNodes"`
}

func (c *Circuit) document() *document {
	comps := make([]componentDoc, 0, len(c.components))
	for id, cp := range c.components {
		if cp == nil {
			continue
		}
		d := componentDoc{ID: idDoc{uint64(id)}, Type: cp.impl.Kind(), X: cp.x, Y: cp.y, W: cp.w, H: cp.h}
		dirty := cp.dirty
		d.Dirty = &dirty
		switch v := cp.impl.(type) {
		case NodeID:
			d.ImplID = implDoc{0, uint64(v)}
		case GateID:
			d.ImplID = implDoc{1, uint64(v)}
		}
		comps = append(comps, d)
	}

	nodes := make([]nodeDoc, 0, len(c.nodes))
	driving := make([][]idDoc, len(c.nodes))
	for id, n := range c.nodes {
		driving[id] = []idDoc{}
		if n == nil {
			continue
		}
		nodes = append(nodes, nodeDoc{ID: idDoc{uint64(id)}, ComponentID: idDoc{uint64(n.comp)}, Value: n.value})
		for _, dst := range n.drives {
			driving[id] = append(driving[id], idDoc{uint64(dst)})
		}
	}

	gates := make([]gateDoc, 0, len(c.gates))
	for id, g := range c.gates {
		if g == nil {
			continue
		}
		gates = append(gates, gateDoc{
			ID:          idDoc{uint64(id)},
			ComponentID: idDoc{uint64(g.comp)},
			Input0ID:    idDoc{uint64(g.in0)},
			Input1ID:    idDoc{uint64(g.in1)},
			OutputID:    idDoc{uint64(g.out)},
		})
	}

	clocks := make([]idDoc, 0, len(c.clocks))
	for _, id := range c.clocks {
		clocks = append(clocks, idDoc{uint64(id)})
	}

	return &document{&comps, &nodes, &gates, &driving, &clocks}
}

// circuit validates d and builds a new Circuit from it. Every component of
// the new circuit is clean, whatever the stored dirty flags say.
//
func (d *document) circuit() (*Circuit, error) {
	switch {
	case d.Components == nil:
		return nil, malformed("missing components")
	case d.Nodes == nil:
		return nil, malformed("missing nodes")
	case d.Gates == nil:
		return nil, malformed("missing gates")
	case d.DrivingNodes == nil:
		return nil, malformed("missing drivingNodes")
	case d.ClockNodes == nil:
		return nil, malformed("missing clockNodes")
	}
	comps, nodes, gates, driving := *d.Components, *d.Nodes, *d.Gates, *d.DrivingNodes

	nc := slots(comps, func(v componentDoc) uint64 { return v.ID.Value }, 0)
	nn := slots(nodes, func(v nodeDoc) uint64 { return v.ID.Value }, uint64(len(driving)))
	ng := slots(gates, func(v gateDoc) uint64 { return v.ID.Value }, 0)
	if nc > MaxEntities || nn > MaxEntities || ng > MaxEntities {
		return nil, malformed("too many entities")
	}
	c := &Circuit{
		components: make([]*component, nc),
		nodes:      make([]*node, nn),
		gates:      make([]*gate, ng),
	}

	for _, v := range comps {
		id := v.ID.Value
		if c.components[id] != nil {
			return nil, malformed("duplicate %v", ComponentID(id))
		}
		var impl Impl
		switch {
		case v.Type == KindNode && v.ImplID.Type == 0:
			impl = NodeID(v.ImplID.Value)
		case v.Type == KindGate && v.ImplID.Type == 1:
			impl = GateID(v.ImplID.Value)
		default:
			return nil, malformed("%v: invalid type %d/%d", ComponentID(id), v.Type, v.ImplID.Type)
		}
		c.components[id] = &component{impl: impl, x: v.X, y: v.Y, w: v.W, h: v.H}
	}

	for _, v := range nodes {
		id := NodeID(v.ID.Value)
		if c.nodes[id] != nil {
			return nil, malformed("duplicate %v", id)
		}
		if err := c.checkOwner(ComponentID(v.ComponentID.Value), id); err != nil {
			return nil, err
		}
		c.nodes[id] = &node{comp: ComponentID(v.ComponentID.Value), value: v.Value, gate: NoGate}
	}

	for _, v := range gates {
		id := GateID(v.ID.Value)
		if c.gates[id] != nil {
			return nil, malformed("duplicate %v", id)
		}
		if err := c.checkOwner(ComponentID(v.ComponentID.Value), id); err != nil {
			return nil, err
		}
		g := &gate{
			comp: ComponentID(v.ComponentID.Value),
			in0:  NodeID(v.Input0ID.Value),
			in1:  NodeID(v.Input1ID.Value),
			out:  NodeID(v.OutputID.Value),
		}
		if g.in0 == g.in1 || g.in0 == g.out || g.in1 == g.out {
			return nil, malformed("%v: pins are not distinct", id)
		}
		for _, pin := range [...]NodeID{g.in0, g.in1, g.out} {
			n, err := c.node(pin)
			if err != nil {
				return nil, malformed("%v: pin %v does not exist", id, pin)
			}
			if n.gate != NoGate {
				return nil, malformed("%v: pin %v already belongs to %v", id, pin, n.gate)
			}
			n.gate = id
		}
		c.gates[id] = g
	}

	// every component must be claimed by the node or gate it references.
	for id, cp := range c.components {
		if cp == nil {
			continue
		}
		var ok bool
		switch v := cp.impl.(type) {
		case NodeID:
			ok = uint64(v) < uint64(len(c.nodes)) && c.nodes[v] != nil && c.nodes[v].comp == ComponentID(id)
		case GateID:
			ok = uint64(v) < uint64(len(c.gates)) && c.gates[v] != nil && c.gates[v].comp == ComponentID(id)
		}
		if !ok {
			return nil, malformed("%v references a missing %v", ComponentID(id), cp.impl)
		}
	}

	for src, dsts := range driving {
		n := c.nodes[src]
		if n == nil {
			if len(dsts) > 0 {
				return nil, malformed("removed %v drives other nodes", NodeID(src))
			}
			continue
		}
		for _, dst := range dsts {
			if _, err := c.node(NodeID(dst.Value)); err != nil {
				return nil, malformed("%v drives missing %v", NodeID(src), NodeID(dst.Value))
			}
			n.drives = append(n.drives, NodeID(dst.Value))
		}
	}

	for _, v := range *d.ClockNodes {
		id := NodeID(v.Value)
		n, err := c.node(id)
		if err != nil {
			return nil, malformed("clock %v does not exist", id)
		}
		if n.clock {
			return nil, malformed("duplicate clock %v", id)
		}
		n.clock = true
		c.clocks = append(c.clocks, id)
	}

	return c, nil
}

// checkOwner checks that component id exists and wraps impl.
func (c *Circuit) checkOwner(id ComponentID, impl Impl) error {
	cp, err := c.component(id)
	if err != nil || cp.impl != impl {
		return malformed("%v: bad component %v", impl, id)
	}
	return nil
}

// slots returns the slice length needed to index all entries by id, at least
// least. The result is capped to MaxEntities+1.
func slots[T any](vs []T, id func(T) uint64, least uint64) uint64 {
	n := least
	for _, v := range vs {
		if i := id(v); i >= n {
			n = i + 1
		}
	}
	if n > MaxEntities {
		return MaxEntities + 1
	}
	return n
}

// MarshalJSON implements json.Marshaler.
//
func (c *Circuit) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.document())
}

// UnmarshalJSON implements json.Unmarshaler. On error, c is left unchanged.
//
func (c *Circuit) UnmarshalJSON(data []byte) error {
	var d document
	if err := json.Unmarshal(data, &d); err != nil {
		return malformed("%v", err)
	}
	return c.replace(&d)
}

// MarshalYAML implements yaml.Marshaler.
//
func (c *Circuit) MarshalYAML() (interface{}, error) {
	return c.document(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler. On error, c is left unchanged.
//
func (c *Circuit) UnmarshalYAML(value *yaml.Node) error {
	var d document
	if err := value.Decode(&d); err != nil {
		return malformed("%v", err)
	}
	return c.replace(&d)
}

func (c *Circuit) replace(d *document) error {
	nc, err := d.circuit()
	if err != nil {
		return err
	}
	*c = *nc
	return nil
}

// FromJSON returns a new circuit decoded from data.
//
func FromJSON(data []byte) (*Circuit, error) {
	return decode(data, FormatJSON)
}

func decode(data []byte, f Format) (*Circuit, error) {
	var d document
	switch f {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &d); err != nil {
			return nil, malformed("%v", err)
		}
	default:
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, malformed("%v", err)
		}
	}
	return d.circuit()
}

// Encode writes c to w in the given format.
//
func (c *Circuit) Encode(w io.Writer, f Format) error {
	if f == FormatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(c.document()); err != nil {
			return errors.Wrap(err, "encode yaml")
		}
		return errors.Wrap(enc.Close(), "encode yaml")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return errors.Wrap(enc.Encode(c.document()), "encode json")
}

// Decode reads a circuit in the given format from r.
//
func Decode(r io.Reader, f Format) (*Circuit, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read circuit")
	}
	return decode(data, f)
}

// SaveFile writes the circuit to the named file. The format is picked from
// the file extension (see FormatFor).
//
func (c *Circuit) SaveFile(path string) error {
	var buf bytes.Buffer
	if err := c.Encode(&buf, FormatFor(path)); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return &IOError{Op: "save", Path: path, Err: err}
	}
	return nil
}

// LoadFile replaces the circuit with the content of the named file.
//
// A missing or empty file is not an error: the circuit is left untouched and
// LoadFile returns false. On error, the circuit is left untouched as well.
//
func (c *Circuit) LoadFile(path string) (bool, error) {
	nc, err := readFile(path)
	if nc == nil || err != nil {
		return false, err
	}
	*c = *nc
	return true, nil
}

// readFile returns nil, nil if the file does not exist or is empty.
func readFile(path string) (*Circuit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &IOError{Op: "load", Path: path, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	nc, err := decode(data, FormatFor(path))
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	return nc, nil
}
