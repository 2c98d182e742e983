// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package nandsim

import "strconv"

// A NodeID identifies a node in a Circuit.
//
// Ids are allocated in increasing order and never reused, even after the
// node has been removed.
//
type NodeID uint64

// A GateID identifies a NAND gate in a Circuit.
//
type GateID uint64

// A ComponentID identifies the generic component wrapping a node or gate.
//
type ComponentID uint64

// NoGate is the Gate value of nodes that are not a gate pin.
//
const NoGate = ^GateID(0)

func (id NodeID) String() string      { return "node#" + strconv.FormatUint(uint64(id), 10) }
func (id GateID) String() string      { return "gate#" + strconv.FormatUint(uint64(id), 10) }
func (id ComponentID) String() string { return "component#" + strconv.FormatUint(uint64(id), 10) }

// Impl is the concrete entity wrapped by a Component. It is either a NodeID or
// a GateID.
//
// Use a type switch to get at the concrete id:
//
//	switch id := c.Impl.(type) {
//	case nandsim.NodeID:
//	case nandsim.GateID:
//	}
//
type Impl interface {
	Kind() Kind
	impl()
}

// Kind returns KindNode.
//
func (NodeID) Kind() Kind { return KindNode }
func (NodeID) impl()      {}

// Kind returns KindGate.
//
func (GateID) Kind() Kind { return KindGate }
func (GateID) impl()      {}

// Kind is the kind of entity wrapped by a Component.
//
type Kind int

// Component kinds. The string values match the persisted "type" field.
//
const (
	KindNone Kind = iota
	KindNode
	KindGate
)

var kindNames = [...]string{
	KindNone: "NONE",
	KindNode: "NODE",
	KindGate: "NAND",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}
