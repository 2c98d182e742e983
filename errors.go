// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package nandsim

import (
	"github.com/pkg/errors"
)

// Error kinds returned by this package. Returned errors wrap one of these and
// can be checked with errors.Is.
//
var (
	// ErrInvalidID is returned when an id references a nonexistent or removed
	// entity.
	ErrInvalidID = errors.New("invalid id")
	// ErrMalformed is returned when a persisted circuit is structurally
	// invalid.
	ErrMalformed = errors.New("malformed circuit data")
	// ErrIO is matched by any *IOError.
	ErrIO = errors.New("i/o failure")
	// ErrUnsettled is returned by Step when the evaluation limit is reached
	// before the circuit has settled.
	ErrUnsettled = errors.New("circuit did not settle")
	// ErrGatePin is returned when trying to remove a gate pin on its own.
	ErrGatePin = errors.New("node is a gate pin")
)

// An IOError records a failed file operation.
//
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string { return e.Op + " " + e.Path + ": " + e.Err.Error() }

// Unwrap returns the underlying error.
//
func (e *IOError) Unwrap() error { return e.Err }

// Is reports whether target is ErrIO.
//
func (e *IOError) Is(target error) bool { return target == ErrIO }

func invalidNode(id NodeID) error {
	return errors.Wrapf(ErrInvalidID, "%v", id)
}

func invalidGate(id GateID) error {
	return errors.Wrapf(ErrInvalidID, "%v", id)
}

func invalidComponent(id ComponentID) error {
	return errors.Wrapf(ErrInvalidID, "%v", id)
}

func malformed(format string, args ...interface{}) error {
	return errors.Wrapf(ErrMalformed, format, args...)
}

func gatePin(id NodeID, g GateID) error {
	return errors.Wrapf(ErrGatePin, "%v belongs to %v", id, g)
}
