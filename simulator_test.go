// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package nandsim_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	ns "github.com/db47h/nandsim"
)

func TestSimulatorStep(t *testing.T) {
	s := ns.New()
	a := s.AddNode(0, 0)
	g := s.AddGate(0, 0)
	in0, in1, err := s.GateInputs(g)
	require.NoError(t, err)
	out, err := s.GateOutput(g)
	require.NoError(t, err)
	require.NoError(t, s.Connect(a, in0))
	require.NoError(t, s.Connect(a, in1))

	require.NoError(t, s.Step())
	st := s.Stats()
	assert.Equal(t, uint64(1), st.Steps)
	assert.NotZero(t, st.OpsPerStep)
	assert.Equal(t, st.OpsPerStep, st.OpsTotal)
	v, err := s.Value(out)
	require.NoError(t, err)
	assert.True(t, v)

	require.NoError(t, s.SetValue(a, true))
	require.NoError(t, s.Step())
	v, _ = s.Value(out)
	assert.False(t, v)

	require.NoError(t, s.Step())
	assert.Equal(t, uint64(3), s.StepCount())
	assert.Zero(t, s.OpsPerStep())
	assert.Equal(t, st.OpsTotal+6, s.OpsTotalCount())
	assert.True(t, s.StepTime() >= 0)
}

func TestSimulatorRunStop(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := ns.New(ns.WithLogger(zap.New(core)))
	s.AddClockNode(0, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Loop(ctx) }()

	assert.False(t, s.Running())
	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, s.StepCount(), "a stopped simulator does not step")

	s.Run()
	s.Run()
	assert.True(t, s.Running())
	require.Eventually(t, func() bool { return s.StepCount() > 10 }, time.Second, time.Millisecond)

	s.Stop()
	s.Stop()
	n := s.StepCount()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, n, s.StepCount())
	assert.False(t, s.Snapshot().Running)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Loop did not return")
	}
	assert.Equal(t, 1, logs.FilterMessage("simulation started").Len())
	assert.Equal(t, 1, logs.FilterMessage("simulation stopped").Len())
}

func TestSimulatorUnsettled(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	s := ns.New(ns.WithOpsLimit(100), ns.WithLogger(zap.New(core)))
	g := s.AddGate(0, 0)
	in0, in1, _ := s.GateInputs(g)
	out, _ := s.GateOutput(g)
	require.NoError(t, s.Connect(out, in0))
	require.NoError(t, s.Connect(out, in1))

	err := s.Step()
	assert.ErrorIs(t, err, ns.ErrUnsettled)
	assert.Equal(t, uint64(100), s.OpsPerStep())
	assert.Equal(t, uint64(100), s.OpsTotalCount())
	assert.Zero(t, s.StepCount(), "unsettled steps are not counted")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Loop(ctx) }()
	s.Run()
	require.Eventually(t, func() bool { return logs.FilterMessage("step did not settle").Len() > 0 }, time.Second, time.Millisecond)
	s.Stop()
}

// assertConsistent checks that every id held by a snapshot names a live
// entity: fan-out targets, gate pins and owning components.
func assertConsistent(t *testing.T, snap ns.Snapshot) {
	t.Helper()
	comps := make(map[ns.ComponentID]bool, len(snap.Components))
	for _, c := range snap.Components {
		comps[c.ID] = true
	}
	nodes := make(map[ns.NodeID]bool, len(snap.Nodes))
	for _, n := range snap.Nodes {
		nodes[n.ID] = true
	}
	gates := make(map[ns.GateID]bool, len(snap.Gates))
	for _, g := range snap.Gates {
		gates[g.ID] = true
		assert.True(t, comps[g.Component], "%v: missing %v", g.ID, g.Component)
		for _, pin := range []ns.NodeID{g.In0, g.In1, g.Out} {
			assert.True(t, nodes[pin], "%v: pin %v removed", g.ID, pin)
		}
	}
	for _, n := range snap.Nodes {
		assert.True(t, comps[n.Component], "%v: missing %v", n.ID, n.Component)
		if n.Gate != ns.NoGate {
			assert.True(t, gates[n.Gate], "%v: gate %v removed", n.ID, n.Gate)
		}
		for _, d := range n.Drives {
			assert.True(t, nodes[d], "%v drives removed %v", n.ID, d)
		}
	}
	for _, id := range snap.Clocks {
		assert.True(t, nodes[id], "clock %v removed", id)
	}
}

func TestSimulatorConcurrentMutation(t *testing.T) {
	s := ns.New()
	src := s.AddNode(0, 0)
	clk := s.AddClockNode(0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.Loop(ctx)
	}()
	s.Run()

	const n = 300
	var nodes []ns.NodeID
	for i := 0; i < n; i++ {
		d := s.AddNode(0, 0)
		require.NoError(t, s.Connect(src, d))
		g := s.AddGate(0, 0)
		in0, in1, err := s.GateInputs(g)
		require.NoError(t, err)
		require.NoError(t, s.Connect(d, in0))
		require.NoError(t, s.Connect(clk, in1))
		require.NoError(t, s.SetValue(src, i%2 == 0))

		switch i % 3 {
		case 1:
			// drops d from src's fan-out
			nd, err := s.Node(d)
			require.NoError(t, err)
			require.NoError(t, s.RemoveComponent(nd.Component))
		case 2:
			// drops the gate pins from d's and clk's fan-out
			gt, err := s.Gate(g)
			require.NoError(t, err)
			require.NoError(t, s.RemoveComponent(gt.Component))
			nodes = append(nodes, d)
		default:
			nodes = append(nodes, d)
		}
		if i%10 == 0 {
			assertConsistent(t, s.Snapshot())
		}
	}
	require.NoError(t, s.SetValue(src, true))
	s.Stop()
	assertConsistent(t, s.Snapshot())
	require.NoError(t, s.Step())
	for _, d := range nodes {
		v, err := s.Value(d)
		require.NoError(t, err)
		assert.True(t, v)
	}
	snap := s.Snapshot()
	assert.Len(t, snap.Gates, 2*n/3)
	cancel()
	wg.Wait()
}

func TestSimulatorDo(t *testing.T) {
	s := ns.New()
	var out ns.NodeID
	require.NoError(t, s.Do(func(c *ns.Circuit) error {
		g := c.AddGate(0, 0)
		var err error
		out, err = c.GateOutput(g)
		return err
	}))
	require.NoError(t, s.Step())
	v, err := s.Value(out)
	require.NoError(t, err)
	assert.True(t, v)

	snap := s.Snapshot()
	assert.Len(t, snap.Gates, 1)
	assert.Len(t, snap.Nodes, 3)
	assert.Len(t, snap.Components, 4)
	assert.Equal(t, uint64(1), snap.Stats.Steps)
}

func TestSimulatorPersistence(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := ns.New(ns.WithLogger(zap.New(core)))
	assert.False(t, s.Modified())
	a := s.AddNode(0, 0)
	b := s.AddNode(0, 0)
	require.NoError(t, s.Connect(a, b))
	assert.True(t, s.Modified())

	path := filepath.Join(t.TempDir(), "circuit.json")
	require.NoError(t, s.SaveFile(path))
	assert.False(t, s.Modified())
	require.NoError(t, s.Step())
	assert.False(t, s.Modified(), "stepping is not a modification")

	s2 := ns.New(ns.WithLogger(zap.New(core)))
	ok, err := s2.LoadFile(path)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, s2.Modified())
	assert.Equal(t, s.Fingerprint(), s2.Fingerprint())

	ok, err = s2.LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, s.Fingerprint(), s2.Fingerprint())

	assert.Equal(t, 1, logs.FilterMessage("circuit saved").Len())
	assert.Equal(t, 1, logs.FilterMessage("circuit loaded").Len())

	data, err := s.MarshalJSON()
	require.NoError(t, err)
	s3 := ns.New()
	require.NoError(t, s3.LoadJSON(data))
	assert.Equal(t, s.Fingerprint(), s3.Fingerprint())

	// empty input is a no-op, bad input leaves the circuit alone
	require.NoError(t, s3.LoadJSON(nil))
	assert.ErrorIs(t, s3.LoadJSON([]byte(`{}`)), ns.ErrMalformed)
	assert.Equal(t, s.Fingerprint(), s3.Fingerprint())

	s3.Reset()
	assert.Empty(t, s3.Snapshot().Components)
	assert.True(t, s3.Modified())
}

func TestWithCircuit(t *testing.T) {
	c := ns.NewCircuit()
	c.AddGate(0, 0)
	s := ns.New(ns.WithCircuit(c))
	assert.False(t, s.Modified())
	n, err := s.Node(0)
	require.NoError(t, err)
	assert.Equal(t, ns.GateID(0), n.Gate)
	gt, err := s.Gate(0)
	require.NoError(t, err)
	require.NoError(t, s.RemoveComponent(gt.Component))
	_, err = s.Gate(0)
	assert.ErrorIs(t, err, ns.ErrInvalidID)
	require.NoError(t, s.Disconnect(s.AddNode(0, 0), s.AddNode(0, 0)))
}
