// Package menu maps display labels to typed values for wizard steps.
package menu

import (
	"fmt"
	"strings"
)

// Item is one menu entry. Aliases are accepted on input but never displayed.
type Item[T comparable] struct {
	Label   string
	Value   T
	Aliases []string
}

// Menu is an ordered, immutable set of accepted choices.
// Lookup is trimmed and case-insensitive and accepts either the label
// or the string form of the value.
type Menu[T comparable] struct {
	items []Item[T]
	index map[string]T
}

// New builds a menu, rejecting empty menus and ambiguous keys.
func New[T comparable](items ...Item[T]) (*Menu[T], error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("menu: no items")
	}
	m := &Menu[T]{
		items: append([]Item[T](nil), items...),
		index: make(map[string]T, len(items)*2),
	}
	for _, it := range items {
		if normalize(it.Label) == "" {
			return nil, fmt.Errorf("menu: empty label for %v", it.Value)
		}
		keys := []string{normalize(it.Label), normalize(fmt.Sprint(it.Value))}
		for _, a := range it.Aliases {
			keys = append(keys, normalize(a))
		}
		for _, key := range keys {
			if prev, ok := m.index[key]; ok && prev != it.Value {
				return nil, fmt.Errorf("menu: key %q maps to both %v and %v", key, prev, it.Value)
			}
			m.index[key] = it.Value
		}
	}
	return m, nil
}

// Must is New that panics; for package-level menus built from literals.
func Must[T comparable](items ...Item[T]) *Menu[T] {
	m, err := New(items...)
	if err != nil {
		panic(err)
	}
	return m
}

// Lookup resolves raw user input to a value.
func (m *Menu[T]) Lookup(input string) (T, bool) {
	v, ok := m.index[normalize(input)]
	return v, ok
}

// Labels returns the display labels in menu order.
func (m *Menu[T]) Labels() []string {
	out := make([]string, len(m.items))
	for i, it := range m.items {
		out[i] = it.Label
	}
	return out
}

// Label returns the display label for v.
func (m *Menu[T]) Label(v T) (string, bool) {
	for _, it := range m.items {
		if it.Value == v {
			return it.Label, true
		}
	}
	return "", false
}

// Values returns the values in menu order.
func (m *Menu[T]) Values() []T {
	out := make([]T, len(m.items))
	for i, it := range m.items {
		out[i] = it.Value
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
