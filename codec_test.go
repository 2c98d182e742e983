// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package nandsim_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	ns "github.com/db47h/nandsim"
)

// sample builds a small circuit with a clock, a gate, fan-out and a removed
// node in the middle of the id range.
func sample(t *testing.T) *ns.Circuit {
	t.Helper()
	c := ns.NewCircuit()
	clk := c.AddClockNode(10, 10)
	gone := c.AddNode(20, 20)
	g := c.AddGate(100, 0)
	in0, in1, _ := c.GateInputs(g)
	out, _ := c.GateOutput(g)
	dst := c.AddNode(300, 50)
	require.NoError(t, c.Connect(clk, in0))
	require.NoError(t, c.Connect(clk, in1))
	require.NoError(t, c.Connect(out, dst))
	require.NoError(t, c.Connect(gone, dst))
	n, _ := c.Node(gone)
	require.NoError(t, c.RemoveComponent(n.Component))
	_, err := c.Step(0)
	require.NoError(t, err)
	require.NoError(t, c.SetValue(dst, false))
	c.AddNode(400, 400) // dirty until the next step
	return c
}

// assertSameCircuit checks that got is exp as loaded from a document: same
// topology and values, every component clean.
func assertSameCircuit(t *testing.T, exp, got *ns.Circuit) {
	t.Helper()
	comps := exp.Components()
	for i := range comps {
		comps[i].Dirty = false
	}
	assert.Equal(t, comps, got.Components())
	assert.Equal(t, exp.Nodes(), got.Nodes())
	assert.Equal(t, exp.Gates(), got.Gates())
	assert.Equal(t, exp.Clocks(), got.Clocks())
	assert.Equal(t, exp.Fingerprint(), got.Fingerprint())
}

func TestRoundTrip(t *testing.T) {
	for _, f := range []struct {
		name string
		fmt  ns.Format
	}{{"json", ns.FormatJSON}, {"yaml", ns.FormatYAML}} {
		t.Run(f.name, func(t *testing.T) {
			c := sample(t)
			var buf bytes.Buffer
			require.NoError(t, c.Encode(&buf, f.fmt))
			got, err := ns.Decode(&buf, f.fmt)
			require.NoError(t, err)
			assertSameCircuit(t, c, got)
			for _, cp := range got.Components() {
				assert.False(t, cp.Dirty, "%v", cp.ID)
			}

			// both evolve identically
			for i := 0; i < 3; i++ {
				_, err = c.Step(0)
				require.NoError(t, err)
				_, err = got.Step(0)
				require.NoError(t, err)
				assert.Equal(t, c.Nodes(), got.Nodes(), "step %d", i)
			}
		})
	}
}

func TestMarshalers(t *testing.T) {
	c := sample(t)
	data, err := json.Marshal(c)
	require.NoError(t, err)
	var got ns.Circuit
	require.NoError(t, json.Unmarshal(data, &got))
	assertSameCircuit(t, c, &got)

	y, err := yaml.Marshal(c)
	require.NoError(t, err)
	var gy ns.Circuit
	require.NoError(t, yaml.Unmarshal(y, &gy))
	assertSameCircuit(t, c, &gy)

	fc, err := ns.FromJSON(data)
	require.NoError(t, err)
	assertSameCircuit(t, c, fc)
}

func TestLoadResetsDirty(t *testing.T) {
	c := ns.NewCircuit()
	a := c.AddNode(0, 0)
	c.AddGate(100, 0)
	require.NoError(t, c.SetValue(a, true))
	for _, cp := range c.Components() {
		if cp.Impl.Kind() == ns.KindGate || cp.Impl == ns.Impl(a) {
			require.True(t, cp.Dirty, "%v", cp.ID)
		}
	}

	data, err := c.MarshalJSON()
	require.NoError(t, err)
	got, err := ns.FromJSON(data)
	require.NoError(t, err)
	for _, cp := range got.Components() {
		assert.False(t, cp.Dirty, "%v dirty after load", cp.ID)
	}
	assert.True(t, value(t, got, a), "values are kept")

	// nothing is pending: the first step only evaluates what changes
	assert.Zero(t, step(t, got))
}

func TestReloadTombstones(t *testing.T) {
	c := ns.NewCircuit()
	c.AddNode(0, 0)
	g := c.AddGate(100, 0)
	gt, err := c.Gate(g)
	require.NoError(t, err)
	require.NoError(t, c.RemoveComponent(gt.Component))

	data, err := c.MarshalJSON()
	require.NoError(t, err)
	got, err := ns.FromJSON(data)
	require.NoError(t, err)

	// node tombstones survive, trailing gate and component ids do not
	assert.Equal(t, ns.NodeID(4), c.AddNode(0, 0))
	assert.Equal(t, ns.NodeID(4), got.AddNode(0, 0))
	assert.Equal(t, ns.GateID(1), c.AddGate(0, 0))
	assert.Equal(t, ns.GateID(0), got.AddGate(0, 0))
}

func TestDocumentShape(t *testing.T) {
	c := ns.NewCircuit()
	a := c.AddNode(0, 0)
	g := c.AddGate(0, 0)
	in0, _, _ := c.GateInputs(g)
	require.NoError(t, c.Connect(a, in0))
	data, err := json.Marshal(c)
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	for _, k := range []string{"components", "nodes", "gates", "drivingNodes", "clockNodes"} {
		assert.Contains(t, doc, k)
	}
	comps := doc["components"].([]interface{})
	require.Len(t, comps, 5)
	gc := comps[1].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"value": 1.0}, gc["id"])
	assert.Equal(t, 2.0, gc["type"])
	assert.Equal(t, map[string]interface{}{"type": 1.0, "value": 0.0}, gc["implId"])
	driving := doc["drivingNodes"].([]interface{})
	require.Len(t, driving, 4)
	assert.Equal(t, []interface{}{map[string]interface{}{"value": 1.0}}, driving[0])
	assert.Equal(t, []interface{}{}, driving[1])
}

// legacy is a document as written by the original program: no dirty flags
// and no node values.
const legacy = `{
	"components": [
		{"type": 1, "id": {"value": 0}, "implId": {"type": 0, "value": 0}, "x": 0, "y": 0, "w": 10, "h": 10},
		{"type": 2, "id": {"value": 1}, "implId": {"type": 1, "value": 0}, "x": 100, "y": 0, "w": 100, "h": 100},
		{"type": 1, "id": {"value": 2}, "implId": {"type": 0, "value": 1}, "x": 95, "y": 25, "w": 10, "h": 10},
		{"type": 1, "id": {"value": 3}, "implId": {"type": 0, "value": 2}, "x": 95, "y": 65, "w": 10, "h": 10},
		{"type": 1, "id": {"value": 4}, "implId": {"type": 0, "value": 3}, "x": 195, "y": 45, "w": 10, "h": 10}
	],
	"nodes": [
		{"id": {"value": 0}, "componentId": {"value": 0}},
		{"id": {"value": 1}, "componentId": {"value": 2}},
		{"id": {"value": 2}, "componentId": {"value": 3}},
		{"id": {"value": 3}, "componentId": {"value": 4}}
	],
	"gates": [
		{"id": {"value": 0}, "componentId": {"value": 1}, "input0Id": {"value": 1}, "input1Id": {"value": 2}, "outputId": {"value": 3}}
	],
	"drivingNodes": [[{"value": 1}, {"value": 2}], [], [], []],
	"clockNodes": [{"value": 0}]
}`

func TestLegacyDocument(t *testing.T) {
	c, err := ns.FromJSON([]byte(legacy))
	require.NoError(t, err)
	assert.Equal(t, 5, c.Len())
	assert.Equal(t, []ns.NodeID{0}, c.Clocks())
	for _, cp := range c.Components() {
		assert.False(t, cp.Dirty, "absent dirty flags load as clean")
	}
	out := ns.NodeID(3)
	step(t, c)
	assert.True(t, value(t, c, 0))
	assert.False(t, value(t, c, out))
	step(t, c)
	assert.True(t, value(t, c, out))
}

func mutate(t *testing.T, fn func(doc map[string]interface{})) []byte {
	t.Helper()
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(legacy), &doc))
	fn(doc)
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	return data
}

func list(doc map[string]interface{}, key string) []interface{} {
	return doc[key].([]interface{})
}

func obj(v interface{}) map[string]interface{} {
	return v.(map[string]interface{})
}

func TestMalformed(t *testing.T) {
	td := []struct {
		name string
		data []byte
	}{
		{"syntax", []byte(`{"components": [`)},
		{"not an object", []byte(`[]`)},
		{"missing key", mutate(t, func(d map[string]interface{}) { delete(d, "clockNodes") })},
		{"null key", mutate(t, func(d map[string]interface{}) { d["gates"] = nil })},
		{"kind mismatch", mutate(t, func(d map[string]interface{}) { obj(list(d, "components")[1])["type"] = 1 })},
		{"unknown kind", mutate(t, func(d map[string]interface{}) { obj(list(d, "components")[0])["type"] = 7 })},
		{"duplicate component", mutate(t, func(d map[string]interface{}) {
			obj(list(d, "components")[1])["id"] = map[string]interface{}{"value": 0}
		})},
		{"duplicate node", mutate(t, func(d map[string]interface{}) {
			obj(list(d, "nodes")[1])["id"] = map[string]interface{}{"value": 0}
		})},
		{"node bad component", mutate(t, func(d map[string]interface{}) {
			obj(list(d, "nodes")[0])["componentId"] = map[string]interface{}{"value": 1}
		})},
		{"gate pin missing", mutate(t, func(d map[string]interface{}) {
			obj(list(d, "gates")[0])["outputId"] = map[string]interface{}{"value": 9}
		})},
		{"gate pins not distinct", mutate(t, func(d map[string]interface{}) {
			obj(list(d, "gates")[0])["input1Id"] = map[string]interface{}{"value": 1}
		})},
		{"orphan component", mutate(t, func(d map[string]interface{}) {
			d["gates"] = []interface{}{}
		})},
		{"drives missing node", mutate(t, func(d map[string]interface{}) {
			d["drivingNodes"] = []interface{}{[]interface{}{map[string]interface{}{"value": 12}}, []interface{}{}, []interface{}{}, []interface{}{}}
		})},
		{"clock missing", mutate(t, func(d map[string]interface{}) {
			d["clockNodes"] = []interface{}{map[string]interface{}{"value": 8}}
		})},
		{"duplicate clock", mutate(t, func(d map[string]interface{}) {
			d["clockNodes"] = []interface{}{map[string]interface{}{"value": 0}, map[string]interface{}{"value": 0}}
		})},
		{"huge id", mutate(t, func(d map[string]interface{}) {
			obj(list(d, "components")[0])["id"] = map[string]interface{}{"value": 1 << 40}
		})},
	}
	for _, d := range td {
		t.Run(d.name, func(t *testing.T) {
			_, err := ns.FromJSON(d.data)
			require.Error(t, err)
			assert.ErrorIs(t, err, ns.ErrMalformed)

			c := sample(t)
			fp := c.Fingerprint()
			assert.Error(t, json.Unmarshal(d.data, c))
			assert.Equal(t, fp, c.Fingerprint(), "failed load leaves the circuit unchanged")
		})
	}
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"c.json", "c.yaml", "c.yml"} {
		t.Run(name, func(t *testing.T) {
			c := sample(t)
			path := filepath.Join(dir, name)
			require.NoError(t, c.SaveFile(path))
			var got ns.Circuit
			ok, err := got.LoadFile(path)
			require.NoError(t, err)
			assert.True(t, ok)
			assertSameCircuit(t, c, &got)
		})
	}

	t.Run("format", func(t *testing.T) {
		data, err := os.ReadFile(filepath.Join(dir, "c.yaml"))
		require.NoError(t, err)
		assert.Contains(t, string(data), "drivingNodes:")
		data, err = os.ReadFile(filepath.Join(dir, "c.json"))
		require.NoError(t, err)
		assert.Contains(t, string(data), `"drivingNodes": [`)
	})

	t.Run("missing or empty", func(t *testing.T) {
		empty := filepath.Join(dir, "empty.json")
		require.NoError(t, os.WriteFile(empty, []byte(" \n"), 0644))
		for _, path := range []string{filepath.Join(dir, "nope.json"), empty} {
			c := sample(t)
			fp := c.Fingerprint()
			ok, err := c.LoadFile(path)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Equal(t, fp, c.Fingerprint())
		}
	})

	t.Run("corrupt", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"components": []}`), 0644))
		c := sample(t)
		fp := c.Fingerprint()
		ok, err := c.LoadFile(path)
		assert.ErrorIs(t, err, ns.ErrMalformed)
		assert.False(t, ok)
		assert.Equal(t, fp, c.Fingerprint())
	})

	t.Run("io errors", func(t *testing.T) {
		c := sample(t)
		err := c.SaveFile(filepath.Join(dir, "no", "such", "dir.json"))
		assert.ErrorIs(t, err, ns.ErrIO)
		var ioe *ns.IOError
		require.ErrorAs(t, err, &ioe)
		assert.Equal(t, "save", ioe.Op)

		// reading a directory fails
		_, err = c.LoadFile(dir)
		assert.ErrorIs(t, err, ns.ErrIO)
	})
}

func TestFormatFor(t *testing.T) {
	assert.Equal(t, ns.FormatYAML, ns.FormatFor("a/b.YAML"))
	assert.Equal(t, ns.FormatYAML, ns.FormatFor("b.yml"))
	assert.Equal(t, ns.FormatJSON, ns.FormatFor("b.json"))
	assert.Equal(t, ns.FormatJSON, ns.FormatFor("circuit"))
}

func TestFingerprint(t *testing.T) {
	c := sample(t)
	fp := c.Fingerprint()
	_, err := c.Step(0)
	require.NoError(t, err)
	assert.Equal(t, fp, c.Fingerprint(), "stepping does not change the topology")

	a := c.AddNode(0, 0)
	fp2 := c.Fingerprint()
	assert.NotEqual(t, fp, fp2)
	require.NoError(t, c.Connect(a, a))
	assert.NotEqual(t, fp2, c.Fingerprint())
}
