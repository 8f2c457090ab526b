// Package workflow declares the legal status transitions for prescriptions,
// purchases and sales.
package workflow

import (
	"errors"
	"fmt"
	"slices"
)

var (
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrUnknownStatus     = errors.New("unknown status")
)

// Machine holds the allowed moves between states of one record kind.
// It is immutable after construction and safe for concurrent use.
type Machine[S ~string] struct {
	name    string
	initial S
	edges   map[S][]S
}

func NewMachine[S ~string](name string, initial S, edges map[S][]S) *Machine[S] {
	copied := make(map[S][]S, len(edges))
	for from, to := range edges {
		copied[from] = slices.Clone(to)
		for _, target := range to {
			if _, ok := copied[target]; !ok {
				if _, declared := edges[target]; !declared {
					copied[target] = nil
				}
			}
		}
	}
	if _, ok := copied[initial]; !ok {
		copied[initial] = nil
	}
	return &Machine[S]{name: name, initial: initial, edges: copied}
}

func (m *Machine[S]) Initial() S {
	return m.initial
}

// Known reports whether s is a state of this machine.
func (m *Machine[S]) Known(s S) bool {
	_, ok := m.edges[s]
	return ok
}

// Terminal reports whether no transition leaves s.
func (m *Machine[S]) Terminal(s S) bool {
	return m.Known(s) && len(m.edges[s]) == 0
}

func (m *Machine[S]) Can(from, to S) bool {
	return slices.Contains(m.edges[from], to)
}

// Next lists the states reachable from s in one step.
func (m *Machine[S]) Next(s S) []S {
	return slices.Clone(m.edges[s])
}

// Transition returns to when the move is legal.
func (m *Machine[S]) Transition(from, to S) (S, error) {
	if !m.Known(from) {
		return from, fmt.Errorf("%s %q: %w", m.name, from, ErrUnknownStatus)
	}
	if !m.Known(to) {
		return from, fmt.Errorf("%s %q: %w", m.name, to, ErrUnknownStatus)
	}
	if !m.Can(from, to) {
		return from, fmt.Errorf("%s %q -> %q: %w", m.name, from, to, ErrIllegalTransition)
	}
	return to, nil
}
