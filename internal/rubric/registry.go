package rubric

import (
	"fmt"
)

// Entry binds a criterion id to its evaluator.
type Entry struct {
	ID        string
	Evaluator Evaluator
}

// Registry is the ordered table of criterion evaluators run on every unit.
type Registry struct {
	entries []Entry
}

type evaluatorFactory func(r *Rubric, c *Criterion, b Brief, s Scorer) Evaluator

var factories = map[Kind]evaluatorFactory{
	KindParagraph: func(r *Rubric, c *Criterion, b Brief, s Scorer) Evaluator {
		return &paragraphEvaluator{rubric: r, criterion: c, brief: b, scorer: s}
	},
	KindPair: func(r *Rubric, c *Criterion, b Brief, s Scorer) Evaluator {
		return &pairEvaluator{rubric: r, criterion: c, brief: b, scorer: s}
	},
}

// NewRegistry builds one evaluator per rubric criterion, in rubric order.
func NewRegistry(r *Rubric, b Brief, s Scorer) (*Registry, error) {
	if b.ExpectedStyle == "" {
		b.ExpectedStyle = DefaultExpectedStyle
	}
	reg := &Registry{}
	for _, c := range r.Criteria {
		f, ok := factories[c.Kind]
		if !ok {
			return nil, fmt.Errorf("criterion %s: no evaluator for kind %q", c.ID, c.Kind)
		}
		reg.Register(c.ID, f(r, c, b, s))
	}
	return reg, nil
}

// Register adds an evaluator, replacing any existing entry with the same id.
func (r *Registry) Register(id string, ev Evaluator) {
	for i := range r.entries {
		if r.entries[i].ID == id {
			r.entries[i].Evaluator = ev
			return
		}
	}
	r.entries = append(r.entries, Entry{ID: id, Evaluator: ev})
}

// Entries returns the table in evaluation order.
func (r *Registry) Entries() []Entry {
	return r.entries
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	for _, e := range r.entries {
		if e.ID == id {
			return true
		}
	}
	return false
}
