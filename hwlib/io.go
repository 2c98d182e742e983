// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	ns "github.com/db47h/nandsim"
)

// A Reader reads node values. It is implemented by *nandsim.Circuit and
// *nandsim.Simulator.
//
type Reader interface {
	Value(id ns.NodeID) (bool, error)
}

// A Writer sets node values.
//
type Writer interface {
	SetValue(id ns.NodeID, v bool) error
}

// Int64 returns the values of the given nodes as an int64. Node 0 is the
// lsb.
//
func Int64(r Reader, pins []ns.NodeID) (int64, error) {
	var out int64
	for bit, id := range pins {
		v, err := r.Value(id)
		if err != nil {
			return 0, err
		}
		if v {
			out |= 1 << uint(bit)
		}
	}
	return out, nil
}

// SetInt64 sets the nodes to the given int64 value. Node 0 is the lsb.
//
func SetInt64(wr Writer, pins []ns.NodeID, v int64) error {
	for bit, id := range pins {
		if err := wr.SetValue(id, v&(1<<uint(bit)) != 0); err != nil {
			return err
		}
	}
	return nil
}

// Inputs adds n free nodes, laid out vertically from (x, y), to be used as
// part inputs.
//
func Inputs(b Builder, n int, x, y float32) []ns.NodeID {
	ids := make([]ns.NodeID, n)
	for i := range ids {
		ids[i] = b.AddNode(x, y+float32(i)*2*ns.NodeSize)
	}
	return ids
}
