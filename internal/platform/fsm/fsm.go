// Package fsm provides a small table-driven finite state machine used to
// guard status fields at the command boundary.
package fsm

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidTransition is returned (wrapped) when a status change is not in
// the machine's transition table.
var ErrInvalidTransition = errors.New("invalid status transition")

// Machine holds the legal transitions for one status type. Staying in the
// same state is always legal.
type Machine[S ~string] struct {
	name  string
	edges map[S]map[S]struct{}
}

// New builds a machine from an adjacency table. Every state that appears as a
// key or as a target is considered known.
func New[S ~string](name string, table map[S][]S) *Machine[S] {
	m := &Machine[S]{name: name, edges: make(map[S]map[S]struct{}, len(table))}
	for from, tos := range table {
		if m.edges[from] == nil {
			m.edges[from] = make(map[S]struct{})
		}
		for _, to := range tos {
			m.edges[from][to] = struct{}{}
			if m.edges[to] == nil {
				m.edges[to] = make(map[S]struct{})
			}
		}
	}
	return m
}

// Known reports whether s is a state of this machine.
func (m *Machine[S]) Known(s S) bool {
	_, ok := m.edges[s]
	return ok
}

// Can reports whether from -> to is legal.
func (m *Machine[S]) Can(from, to S) bool {
	if !m.Known(from) || !m.Known(to) {
		return false
	}
	if from == to {
		return true
	}
	_, ok := m.edges[from][to]
	return ok
}

// Check returns a wrapped ErrInvalidTransition when from -> to is not legal.
func (m *Machine[S]) Check(from, to S) error {
	if !m.Known(to) {
		return fmt.Errorf("%s: unknown status %q: %w", m.name, to, ErrInvalidTransition)
	}
	if !m.Can(from, to) {
		return fmt.Errorf("%s: %q -> %q: %w", m.name, from, to, ErrInvalidTransition)
	}
	return nil
}

// Next lists the states reachable from s in one step, sorted.
func (m *Machine[S]) Next(s S) []S {
	out := make([]S, 0, len(m.edges[s]))
	for to := range m.edges[s] {
		out = append(out, to)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
