// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package nandsim

// Component footprints. Layout values are stored for renderers and never
// interpreted by the engine.
//
const (
	NodeSize float32 = 10
	GateSize float32 = 100
)

// A Component is the generic addressable envelope over a node or a gate.
//
type Component struct {
	ID    ComponentID
	Impl  Impl
	Dirty bool
	X, Y  float32
	W, H  float32
}

// Kind returns the kind of entity wrapped by c.
//
func (c Component) Kind() Kind {
	if c.Impl == nil {
		return KindNone
	}
	return c.Impl.Kind()
}

// A Node is a single-bit signal carrier.
//
type Node struct {
	ID        NodeID
	Component ComponentID
	Value     bool
	// Drives lists the nodes forced to this node's value when it is
	// evaluated.
	Drives []NodeID
	// Gate is the gate owning this node or NoGate.
	Gate  GateID
	Clock bool
}

// A Gate is a 2-input NAND gate. It owns its three pin nodes.
//
type Gate struct {
	ID        GateID
	Component ComponentID
	In0, In1  NodeID
	Out       NodeID
}

type component struct {
	impl       Impl
	dirty      bool
	x, y, w, h float32
}

type node struct {
	comp   ComponentID
	value  bool
	drives []NodeID
	gate   GateID
	clock  bool
}

type gate struct {
	comp          ComponentID
	in0, in1, out NodeID
}

// Circuit is the entity store: it owns all nodes and gates, their topology
// and signal state. Step implements incremental propagation over it.
//
// Removed entities leave a nil slot behind so that ids are never reused.
//
// A Circuit is not safe for concurrent use. See Simulator.
//
type Circuit struct {
	components []*component
	nodes      []*node
	gates      []*gate
	clocks     []NodeID

	queue []ComponentID // propagation work queue
}

// NewCircuit returns an empty circuit.
//
func NewCircuit() *Circuit {
	return new(Circuit)
}

func (c *Circuit) addComponent(impl Impl, dirty bool, x, y, w, h float32) ComponentID {
	id := ComponentID(len(c.components))
	c.components = append(c.components, &component{impl: impl, dirty: dirty, x: x, y: y, w: w, h: h})
	return id
}

func (c *Circuit) addNode(x, y float32, dirty bool, g GateID) NodeID {
	id := NodeID(len(c.nodes))
	half := NodeSize / 2
	comp := c.addComponent(id, dirty, x-half, y-half, NodeSize, NodeSize)
	c.nodes = append(c.nodes, &node{comp: comp, gate: g})
	return id
}

// AddNode adds a node centred on (x, y). Its value is false and it is marked
// dirty.
//
func (c *Circuit) AddNode(x, y float32) NodeID {
	return c.addNode(x, y, true, NoGate)
}

// AddClockNode adds a node like AddNode and registers it as a clock: it
// toggles once at the start of every step.
//
func (c *Circuit) AddClockNode(x, y float32) NodeID {
	id := c.AddNode(x, y)
	c.nodes[id].clock = true
	c.clocks = append(c.clocks, id)
	return id
}

// AddGate adds a NAND gate with its top left corner at (x, y) together with
// its two input pins and output pin. The pins are not marked dirty; the gate
// is, so that the next step computes its output.
//
func (c *Circuit) AddGate(x, y float32) GateID {
	id := GateID(len(c.gates))
	comp := c.addComponent(id, true, x, y, GateSize, GateSize)
	g := &gate{comp: comp}
	c.gates = append(c.gates, g)
	g.in0 = c.addNode(x, y+GateSize*0.3, false, id)
	g.in1 = c.addNode(x, y+GateSize*0.7, false, id)
	g.out = c.addNode(x+GateSize, y+GateSize*0.5, false, id)
	return id
}

func (c *Circuit) node(id NodeID) (*node, error) {
	if uint64(id) >= uint64(len(c.nodes)) || c.nodes[id] == nil {
		return nil, invalidNode(id)
	}
	return c.nodes[id], nil
}

func (c *Circuit) gate(id GateID) (*gate, error) {
	if uint64(id) >= uint64(len(c.gates)) || c.gates[id] == nil {
		return nil, invalidGate(id)
	}
	return c.gates[id], nil
}

func (c *Circuit) component(id ComponentID) (*component, error) {
	if uint64(id) >= uint64(len(c.components)) || c.components[id] == nil {
		return nil, invalidComponent(id)
	}
	return c.components[id], nil
}

// isGateInput reports whether n (with id) is an input pin of its gate.
func (c *Circuit) isGateInput(id NodeID, n *node) bool {
	return n.gate != NoGate && c.gates[n.gate].out != id
}

// touch marks the components owning node id dirty. A gate input pin is also
// owned by its gate. If enqueue is set, the owners are pushed onto the work
// queue.
//
func (c *Circuit) touch(id NodeID, n *node, enqueue bool) {
	c.components[n.comp].dirty = true
	if enqueue {
		c.queue = append(c.queue, n.comp)
	}
	if c.isGateInput(id, n) {
		gc := c.gates[n.gate].comp
		c.components[gc].dirty = true
		if enqueue {
			c.queue = append(c.queue, gc)
		}
	}
}

// Connect makes src drive dst: whenever src is evaluated, dst is set to the
// value of src. src is marked dirty. No cycle check is performed.
//
func (c *Circuit) Connect(src, dst NodeID) error {
	s, err := c.node(src)
	if err != nil {
		return err
	}
	if _, err = c.node(dst); err != nil {
		return err
	}
	s.drives = append(s.drives, dst)
	c.components[s.comp].dirty = true
	return nil
}

// Disconnect removes all src -> dst connections. src is marked dirty.
//
func (c *Circuit) Disconnect(src, dst NodeID) error {
	s, err := c.node(src)
	if err != nil {
		return err
	}
	if _, err = c.node(dst); err != nil {
		return err
	}
	s.drives = removeNodeID(s.drives, dst)
	c.components[s.comp].dirty = true
	return nil
}

// SetValue sets the value of a node. If the value changes, the node is marked
// dirty, as well as its gate if the node is a gate input.
//
func (c *Circuit) SetValue(id NodeID, v bool) error {
	n, err := c.node(id)
	if err != nil {
		return err
	}
	if n.value != v {
		n.value = v
		c.touch(id, n, false)
	}
	return nil
}

// Value returns the value of a node.
//
func (c *Circuit) Value(id NodeID) (bool, error) {
	n, err := c.node(id)
	if err != nil {
		return false, err
	}
	return n.value, nil
}

// Node returns a copy of the given node.
//
func (c *Circuit) Node(id NodeID) (Node, error) {
	n, err := c.node(id)
	if err != nil {
		return Node{}, err
	}
	return c.exportNode(id, n), nil
}

func (c *Circuit) exportNode(id NodeID, n *node) Node {
	return Node{
		ID:        id,
		Component: n.comp,
		Value:     n.value,
		Drives:    append([]NodeID(nil), n.drives...),
		Gate:      n.gate,
		Clock:     n.clock,
	}
}

// Gate returns a copy of the given gate.
//
func (c *Circuit) Gate(id GateID) (Gate, error) {
	g, err := c.gate(id)
	if err != nil {
		return Gate{}, err
	}
	return Gate{ID: id, Component: g.comp, In0: g.in0, In1: g.in1, Out: g.out}, nil
}

// GateInputs returns the input pins of a gate.
//
func (c *Circuit) GateInputs(id GateID) (in0, in1 NodeID, err error) {
	g, err := c.gate(id)
	if err != nil {
		return 0, 0, err
	}
	return g.in0, g.in1, nil
}

// GateOutput returns the output pin of a gate.
//
func (c *Circuit) GateOutput(id GateID) (NodeID, error) {
	g, err := c.gate(id)
	if err != nil {
		return 0, err
	}
	return g.out, nil
}

// Component returns a copy of the given component.
//
func (c *Circuit) Component(id ComponentID) (Component, error) {
	cp, err := c.component(id)
	if err != nil {
		return Component{}, err
	}
	return exportComponent(id, cp), nil
}

func exportComponent(id ComponentID, cp *component) Component {
	return Component{ID: id, Impl: cp.impl, Dirty: cp.dirty, X: cp.x, Y: cp.y, W: cp.w, H: cp.h}
}

// Components returns a copy of all live components in registration order.
//
func (c *Circuit) Components() []Component {
	out := make([]Component, 0, len(c.components))
	for id, cp := range c.components {
		if cp != nil {
			out = append(out, exportComponent(ComponentID(id), cp))
		}
	}
	return out
}

// Nodes returns a copy of all live nodes in id order.
//
func (c *Circuit) Nodes() []Node {
	out := make([]Node, 0, len(c.nodes))
	for id, n := range c.nodes {
		if n != nil {
			out = append(out, c.exportNode(NodeID(id), n))
		}
	}
	return out
}

// Gates returns a copy of all live gates in id order.
//
func (c *Circuit) Gates() []Gate {
	out := make([]Gate, 0, len(c.gates))
	for id, g := range c.gates {
		if g != nil {
			out = append(out, Gate{ID: GateID(id), Component: g.comp, In0: g.in0, In1: g.in1, Out: g.out})
		}
	}
	return out
}

// Clocks returns the clock nodes in registration order.
//
func (c *Circuit) Clocks() []NodeID {
	return append([]NodeID(nil), c.clocks...)
}

// Len returns the number of live components.
//
func (c *Circuit) Len() int {
	n := 0
	for _, cp := range c.components {
		if cp != nil {
			n++
		}
	}
	return n
}

// RemoveComponent removes a node or a gate. Removing a gate also removes its
// pins. Removed nodes are dropped from every fan-out list and from the clock
// set, so no dangling reference is left behind.
//
// Gate pins cannot be removed on their own: ErrGatePin is returned.
//
// Removed ids are never reused by this circuit. The file format only keeps
// tombstones for nodes: once saved and reloaded, the ids of components and
// gates removed from the end of the id range can be allocated again.
//
func (c *Circuit) RemoveComponent(id ComponentID) error {
	cp, err := c.component(id)
	if err != nil {
		return err
	}
	switch impl := cp.impl.(type) {
	case NodeID:
		n := c.nodes[impl]
		if n.gate != NoGate {
			return gatePin(impl, n.gate)
		}
		c.removeNode(impl)
	case GateID:
		g := c.gates[impl]
		c.removeNode(g.in0)
		c.removeNode(g.in1)
		c.removeNode(g.out)
		c.gates[impl] = nil
		c.components[id] = nil
	}
	return nil
}

func (c *Circuit) removeNode(id NodeID) {
	n := c.nodes[id]
	c.components[n.comp] = nil
	c.nodes[id] = nil
	for _, o := range c.nodes {
		if o != nil {
			o.drives = removeNodeID(o.drives, id)
		}
	}
	if n.clock {
		c.clocks = removeNodeID(c.clocks, id)
	}
}

// Reset removes all entities. Ids start again from zero.
//
func (c *Circuit) Reset() {
	*c = Circuit{}
}

// removeNodeID removes all occurrences of id from ids, in place.
func removeNodeID(ids []NodeID, id NodeID) []NodeID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
