// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package nandsim

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Stats holds the simulation counters.
//
type Stats struct {
	Steps      uint64        // number of settled steps
	StepTime   time.Duration // wall clock duration of the last step
	OpsTotal   uint64        // component evaluations since creation
	OpsPerStep uint64        // component evaluations during the last step
}

// A Snapshot is a consistent copy of a circuit's state, suitable for
// rendering.
//
type Snapshot struct {
	Components []Component
	Nodes      []Node
	Gates      []Gate
	Clocks     []NodeID
	Stats      Stats
	Running    bool
}

// An Option configures a Simulator.
//
type Option func(*Simulator)

// WithLogger sets the logger used by the simulator.
//
func WithLogger(l *zap.Logger) Option {
	return func(s *Simulator) { s.log = l }
}

// WithOpsLimit caps the number of component evaluations per step. See
// Circuit.Step. The default of 0 means no limit.
//
func WithOpsLimit(n uint64) Option {
	return func(s *Simulator) { s.limit = n }
}

// WithCircuit sets the initial circuit. The simulator takes ownership of c.
//
func WithCircuit(c *Circuit) Option {
	return func(s *Simulator) { s.c = c }
}

// Simulator wraps a Circuit for concurrent use: one goroutine runs Loop,
// stepping the circuit as fast as possible while running, and others mutate
// and read it.
//
// A single mutex serializes every mutation, read and step, so no goroutine
// ever sees a partially propagated circuit. Counters live under the same
// lock.
//
// If the circuit contains an unstable combinational loop and no ops limit is
// set, Step never returns and every other method blocks on the lock.
//
type Simulator struct {
	mu      sync.Mutex
	c       *Circuit
	stats   Stats
	running bool
	limit   uint64
	saved   uint64 // fingerprint at last load or save
	wake    chan struct{}
	log     *zap.Logger
}

// New returns a new, stopped Simulator.
//
func New(opts ...Option) *Simulator {
	s := &Simulator{
		wake: make(chan struct{}, 1),
		log:  zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.c == nil {
		s.c = NewCircuit()
	}
	s.saved = s.c.Fingerprint()
	return s
}

// Run starts the simulation: Loop starts stepping the circuit.
//
func (s *Simulator) Run() {
	s.mu.Lock()
	was := s.running
	s.running = true
	s.mu.Unlock()
	if !was {
		s.log.Info("simulation started")
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
}

// Stop pauses the simulation.
//
func (s *Simulator) Stop() {
	s.mu.Lock()
	was := s.running
	s.running = false
	s.mu.Unlock()
	if was {
		s.log.Info("simulation stopped")
	}
}

// Running reports whether the simulation is running.
//
func (s *Simulator) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Step advances the simulation by one step and updates the counters. A step
// that returns ErrUnsettled counts its evaluations but is not counted as a
// step.
//
func (s *Simulator) Step() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step()
}

func (s *Simulator) step() error {
	start := time.Now()
	ops, err := s.c.Step(s.limit)
	s.stats.StepTime = time.Since(start)
	s.stats.OpsPerStep = ops
	s.stats.OpsTotal += ops
	if err == nil {
		s.stats.Steps++
	}
	return err
}

// Loop is the simulation goroutine. While running, it steps the circuit
// back to back without pacing. While stopped, it waits for Run. It returns
// ctx.Err() once ctx is done.
//
// Unsettled steps are logged and do not stop the loop.
//
func (s *Simulator) Loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		s.mu.Lock()
		if !s.running {
			s.mu.Unlock()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.wake:
			}
			continue
		}
		err := s.step()
		steps := s.stats.Steps
		s.mu.Unlock()
		if err != nil {
			s.log.Warn("step did not settle", zap.Uint64("settledSteps", steps), zap.Error(err))
		}
	}
}

// Stats returns a copy of the counters.
//
func (s *Simulator) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// StepCount returns the number of settled steps.
//
func (s *Simulator) StepCount() uint64 { return s.Stats().Steps }

// StepTime returns the duration of the last step.
//
func (s *Simulator) StepTime() time.Duration { return s.Stats().StepTime }

// OpsTotalCount returns the total number of component evaluations.
//
func (s *Simulator) OpsTotalCount() uint64 { return s.Stats().OpsTotal }

// OpsPerStep returns the number of component evaluations during the last
// step.
//
func (s *Simulator) OpsPerStep() uint64 { return s.Stats().OpsPerStep }

// Do calls fn with the underlying circuit while holding the lock. It lets
// callers apply several mutations atomically with respect to stepping. fn must
// not retain c.
//
func (s *Simulator) Do(fn func(c *Circuit) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.c)
}

// Snapshot returns a copy of the circuit state and counters.
//
func (s *Simulator) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Components: s.c.Components(),
		Nodes:      s.c.Nodes(),
		Gates:      s.c.Gates(),
		Clocks:     s.c.Clocks(),
		Stats:      s.stats,
		Running:    s.running,
	}
}

// AddNode adds a node. See Circuit.AddNode.
//
func (s *Simulator) AddNode(x, y float32) NodeID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.AddNode(x, y)
}

// AddClockNode adds a clock node. See Circuit.AddClockNode.
//
func (s *Simulator) AddClockNode(x, y float32) NodeID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.AddClockNode(x, y)
}

// AddGate adds a NAND gate. See Circuit.AddGate.
//
func (s *Simulator) AddGate(x, y float32) GateID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.AddGate(x, y)
}

// Connect makes src drive dst. See Circuit.Connect.
//
func (s *Simulator) Connect(src, dst NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Connect(src, dst)
}

// Disconnect removes src -> dst connections. See Circuit.Disconnect.
//
func (s *Simulator) Disconnect(src, dst NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Disconnect(src, dst)
}

// SetValue sets the value of a node. See Circuit.SetValue.
//
func (s *Simulator) SetValue(id NodeID, v bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.SetValue(id, v)
}

// Value returns the value of a node.
//
func (s *Simulator) Value(id NodeID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Value(id)
}

// Node returns a copy of a node.
//
func (s *Simulator) Node(id NodeID) (Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Node(id)
}

// Gate returns a copy of a gate.
//
func (s *Simulator) Gate(id GateID) (Gate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Gate(id)
}

// GateInputs returns the input pins of a gate.
//
func (s *Simulator) GateInputs(id GateID) (in0, in1 NodeID, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.GateInputs(id)
}

// GateOutput returns the output pin of a gate.
//
func (s *Simulator) GateOutput(id GateID) (NodeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.GateOutput(id)
}

// RemoveComponent removes a node or gate. See Circuit.RemoveComponent.
//
func (s *Simulator) RemoveComponent(id ComponentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.RemoveComponent(id)
}

// Reset removes all entities from the circuit. Counters are kept.
//
func (s *Simulator) Reset() {
	s.mu.Lock()
	s.c.Reset()
	s.mu.Unlock()
	s.log.Info("circuit reset")
}

// Fingerprint returns the circuit fingerprint. See Circuit.Fingerprint.
//
func (s *Simulator) Fingerprint() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Fingerprint()
}

// Modified reports whether the circuit topology changed since it was last
// loaded or saved.
//
func (s *Simulator) Modified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Fingerprint() != s.saved
}

// MarshalJSON implements json.Marshaler.
//
func (s *Simulator) MarshalJSON() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.MarshalJSON()
}

// LoadJSON replaces the circuit with the one decoded from data. Empty data is
// a no-op. If data cannot be decoded, the current circuit is left untouched.
//
func (s *Simulator) LoadJSON(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	nc, err := FromJSON(data)
	if err != nil {
		return err
	}
	s.swap(nc)
	return nil
}

func (s *Simulator) swap(nc *Circuit) {
	s.mu.Lock()
	s.c = nc
	s.saved = nc.Fingerprint()
	s.mu.Unlock()
}

// SaveFile writes the circuit to the named file. See Circuit.SaveFile.
//
func (s *Simulator) SaveFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.c.SaveFile(path); err != nil {
		return err
	}
	s.saved = s.c.Fingerprint()
	s.log.Info("circuit saved", zap.String("path", path), zap.Int("components", s.c.Len()))
	return nil
}

// LoadFile replaces the circuit with the content of the named file. A missing
// or empty file is a no-op and LoadFile returns false. On error, the current
// circuit is left untouched.
//
func (s *Simulator) LoadFile(path string) (bool, error) {
	nc, err := readFile(path)
	if err != nil {
		return false, errors.WithMessage(err, "load circuit")
	}
	if nc == nil {
		s.log.Debug("no circuit to load", zap.String("path", path))
		return false, nil
	}
	s.swap(nc)
	s.log.Info("circuit loaded", zap.String("path", path), zap.Int("components", nc.Len()))
	return true, nil
}
