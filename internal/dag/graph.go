// Package dag holds an explicit task graph and a small in-process runner.
// Tasks exchange data through return values: a task's output is handed to
// every downstream task once it succeeds.
package dag

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrCycle       = errors.New("dag: cycle detected")
	ErrUnknownTask = errors.New("dag: unknown task")
	ErrDuplicate   = errors.New("dag: duplicate task")
)

// Inputs maps upstream task ids to their outputs.
type Inputs map[string]any

// Get returns the output of upstream task id converted to T. It fails when
// the upstream task produced nothing or a value of another type.
func Get[T any](in Inputs, id string) (T, error) {
	var zero T
	v, ok := in[id]
	if !ok {
		return zero, fmt.Errorf("no output from upstream task %q", id)
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("upstream task %q produced %T, want %T", id, v, zero)
	}
	return t, nil
}

type TaskFunc func(ctx context.Context, in Inputs) (any, error)

type Graph struct {
	Name string

	ids        []string
	tasks      map[string]TaskFunc
	upstream   map[string][]string
	downstream map[string][]string
	errs       []error
}

func New(name string) *Graph {
	return &Graph{
		Name:       name,
		tasks:      make(map[string]TaskFunc),
		upstream:   make(map[string][]string),
		downstream: make(map[string][]string),
	}
}

// Add registers a task. Problems are collected and reported by Validate so
// graphs can be declared without checking every call.
func (g *Graph) Add(id string, fn TaskFunc) *Graph {
	switch {
	case id == "":
		g.errs = append(g.errs, errors.New("dag: empty task id"))
	case fn == nil:
		g.errs = append(g.errs, fmt.Errorf("dag: task %q has no function", id))
	case g.tasks[id] != nil:
		g.errs = append(g.errs, fmt.Errorf("%w: %q", ErrDuplicate, id))
	default:
		g.ids = append(g.ids, id)
		g.tasks[id] = fn
	}
	return g
}

// Edge declares that to runs after from succeeds.
func (g *Graph) Edge(from, to string) *Graph {
	for _, id := range g.upstream[to] {
		if id == from {
			return g
		}
	}
	g.upstream[to] = append(g.upstream[to], from)
	g.downstream[from] = append(g.downstream[from], to)
	return g
}

// Chain links ids in sequence: ids[0] → ids[1] → ...
func (g *Graph) Chain(ids ...string) *Graph {
	for i := 1; i < len(ids); i++ {
		g.Edge(ids[i-1], ids[i])
	}
	return g
}

// FanOut makes every id in to depend on from.
func (g *Graph) FanOut(from string, to ...string) *Graph {
	for _, id := range to {
		g.Edge(from, id)
	}
	return g
}

func (g *Graph) Has(id string) bool { return g.tasks[id] != nil }

// Tasks returns task ids in declaration order.
func (g *Graph) Tasks() []string {
	return append([]string(nil), g.ids...)
}

func (g *Graph) Upstream(id string) []string {
	return append([]string(nil), g.upstream[id]...)
}

func (g *Graph) Downstream(id string) []string {
	return append([]string(nil), g.downstream[id]...)
}

func (g *Graph) Validate() error {
	errs := append([]error(nil), g.errs...)

	var edges []string
	for to := range g.upstream {
		edges = append(edges, to)
	}
	sort.Strings(edges)
	for _, to := range edges {
		if !g.Has(to) {
			errs = append(errs, fmt.Errorf("%w: %q (edge target)", ErrUnknownTask, to))
		}
		for _, from := range g.upstream[to] {
			if !g.Has(from) {
				errs = append(errs, fmt.Errorf("%w: %q (upstream of %q)", ErrUnknownTask, from, to))
			}
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if _, err := g.order(); err != nil {
		return err
	}
	return nil
}

// Order returns the task ids in a topological order that depends only on
// declaration order.
func (g *Graph) Order() ([]string, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g.order()
}

func (g *Graph) order() ([]string, error) {
	indegree := make(map[string]int, len(g.ids))
	for _, id := range g.ids {
		indegree[id] = len(g.upstream[id])
	}

	out := make([]string, 0, len(g.ids))
	done := make(map[string]bool, len(g.ids))
	for len(out) < len(g.ids) {
		progressed := false
		for _, id := range g.ids {
			if done[id] || indegree[id] > 0 {
				continue
			}
			done[id] = true
			out = append(out, id)
			for _, next := range g.downstream[id] {
				indegree[next]--
			}
			progressed = true
		}
		if !progressed {
			var stuck []string
			for _, id := range g.ids {
				if !done[id] {
					stuck = append(stuck, id)
				}
			}
			return nil, fmt.Errorf("%w among %s", ErrCycle, strings.Join(stuck, ", "))
		}
	}
	return out, nil
}

// Subgraph returns a graph holding id and all of its ancestors, with the
// edges between them.
func (g *Graph) Subgraph(id string) (*Graph, error) {
	if !g.Has(id) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTask, id)
	}

	keep := map[string]bool{}
	var visit func(string)
	visit = func(n string) {
		if keep[n] {
			return
		}
		keep[n] = true
		for _, up := range g.upstream[n] {
			visit(up)
		}
	}
	visit(id)

	sub := New(g.Name)
	for _, n := range g.ids {
		if keep[n] {
			sub.Add(n, g.tasks[n])
		}
	}
	for _, n := range sub.ids {
		for _, up := range g.upstream[n] {
			sub.Edge(up, n)
		}
	}
	return sub, sub.Validate()
}
