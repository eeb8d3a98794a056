package fsm

import (
	"errors"
	"reflect"
	"testing"
)

type light string

const (
	red    light = "red"
	green  light = "green"
	yellow light = "yellow"
)

func newLights() *Machine[light] {
	return New("light", map[light][]light{
		red:    {green},
		green:  {yellow},
		yellow: {red},
	})
}

func TestMachine_Can(t *testing.T) {
	m := newLights()
	if !m.Can(red, green) {
		t.Error("expected red -> green")
	}
	if m.Can(green, red) {
		t.Error("did not expect green -> red")
	}
	if !m.Can(yellow, yellow) {
		t.Error("self transitions are always legal")
	}
	if m.Can("blue", red) {
		t.Error("unknown source state must be rejected")
	}
}

func TestMachine_Check(t *testing.T) {
	m := newLights()
	if err := m.Check(red, green); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := m.Check(red, yellow)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	err = m.Check(red, "purple")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for unknown target, got %v", err)
	}
}

func TestMachine_Next(t *testing.T) {
	m := New("x", map[light][]light{red: {yellow, green}})
	got := m.Next(red)
	want := []light{green, yellow}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if len(m.Next(green)) != 0 {
		t.Error("green has no outgoing edges")
	}
	if !m.Known(green) {
		t.Error("targets are known states")
	}
}
