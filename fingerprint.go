// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package nandsim

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint returns a hash of the circuit topology: components and their
// layout, gate pins, fan-out lists and clocks. Node values and dirty flags do
// not contribute, so stepping a circuit does not change its fingerprint.
//
func (c *Circuit) Fingerprint() uint64 {
	d := xxhash.New()
	var buf []byte
	put := func(vs ...uint64) {
		for _, v := range vs {
			buf = binary.LittleEndian.AppendUint64(buf, v)
		}
	}
	flush := func() {
		_, _ = d.Write(buf)
		buf = buf[:0]
	}

	put(uint64(len(c.components)))
	for id, cp := range c.components {
		if cp == nil {
			continue
		}
		var impl uint64
		switch v := cp.impl.(type) {
		case NodeID:
			impl = uint64(v)
		case GateID:
			impl = uint64(v)
		}
		put(uint64(id), uint64(cp.impl.Kind()), impl,
			uint64(math.Float32bits(cp.x)), uint64(math.Float32bits(cp.y)),
			uint64(math.Float32bits(cp.w)), uint64(math.Float32bits(cp.h)))
		flush()
	}

	put(uint64(len(c.nodes)))
	for id, n := range c.nodes {
		if n == nil {
			continue
		}
		put(uint64(id), uint64(n.comp), uint64(len(n.drives)))
		for _, dst := range n.drives {
			put(uint64(dst))
		}
		flush()
	}

	put(uint64(len(c.gates)))
	for id, g := range c.gates {
		if g == nil {
			continue
		}
		put(uint64(id), uint64(g.comp), uint64(g.in0), uint64(g.in1), uint64(g.out))
	}
	flush()

	put(uint64(len(c.clocks)))
	for _, id := range c.clocks {
		put(uint64(id))
	}
	flush()
	return d.Sum64()
}
