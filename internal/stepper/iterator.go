package stepper

import (
	"context"
	"fmt"
)

// CountIterator repeats a group a fixed number of times.
type CountIterator struct {
	count     int
	iteration int
}

// NewCountIterator returns an iterator running n passes. n <= 0 runs none.
func NewCountIterator(n int) *CountIterator {
	return &CountIterator{count: n, iteration: -1}
}

func (c *CountIterator) Initialize(context.Context, Invocation) error {
	c.iteration = -1
	return nil
}

func (c *CountIterator) HasNext(context.Context, Invocation) (bool, error) {
	return c.iteration+1 < c.count, nil
}

func (c *CountIterator) Next(context.Context, Invocation) error {
	if c.iteration+1 >= c.count {
		return fmt.Errorf("count iterator exhausted after %d pass(es)", c.count)
	}
	c.iteration++
	return nil
}

func (c *CountIterator) Iteration() int { return c.iteration }

// ListIterator runs one pass per element of the string list stored in data
// under key. The current element is published as PropIterationValue,
// qualified by the iteration id, so steps read it with GetQualifiedString.
type ListIterator struct {
	key       string
	values    []string
	iteration int
}

// NewListIterator returns an iterator over the list stored under key.
func NewListIterator(key string) *ListIterator {
	return &ListIterator{key: key, iteration: -1}
}

// Initialize snapshots the list. A missing key yields zero passes.
func (l *ListIterator) Initialize(_ context.Context, inv Invocation) error {
	l.values = inv.Data.GetStrings(l.key)
	l.iteration = -1
	return nil
}

func (l *ListIterator) HasNext(context.Context, Invocation) (bool, error) {
	return l.iteration+1 < len(l.values), nil
}

func (l *ListIterator) Next(_ context.Context, inv Invocation) error {
	if l.iteration+1 >= len(l.values) {
		return fmt.Errorf("list iterator over %q exhausted", l.key)
	}
	l.iteration++
	SetQualified(inv.Data, IterationID(inv.ID, l.iteration), PropIterationValue, l.values[l.iteration])
	return nil
}

func (l *ListIterator) Iteration() int { return l.iteration }

// Value returns the element of the current pass.
func (l *ListIterator) Value() string {
	if l.iteration < 0 || l.iteration >= len(l.values) {
		return ""
	}
	return l.values[l.iteration]
}
