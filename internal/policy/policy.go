// Package policy enforces the level order of the hierarchy on top of the
// type-agnostic store.
package policy

import (
	"fmt"
	"strings"

	"github.com/lthms/carenotes/internal/hierarchy"
)

// Levels is an ordered list of node types, root first.
type Levels struct {
	order   []hierarchy.NodeType
	enforce bool
}

// New builds a policy from level names. An empty list falls back to
// hierarchy.DefaultLevels. Blank names are skipped; duplicates are an error.
func New(names []string, enforce bool) (*Levels, error) {
	var order []hierarchy.NodeType
	seen := make(map[hierarchy.NodeType]bool)
	for _, name := range names {
		t := hierarchy.NodeType(strings.ToLower(strings.TrimSpace(name)))
		if t == "" {
			continue
		}
		if seen[t] {
			return nil, fmt.Errorf("level %q listed twice", t)
		}
		seen[t] = true
		order = append(order, t)
	}
	if len(order) == 0 {
		order = append(order, hierarchy.DefaultLevels...)
	}
	return &Levels{order: order, enforce: enforce}, nil
}

// Default is the four-level organisation/team/client/episode policy.
func Default() *Levels {
	l, _ := New(nil, true)
	return l
}

// Order returns the configured levels, root first.
func (l *Levels) Order() []hierarchy.NodeType {
	return append([]hierarchy.NodeType(nil), l.order...)
}

// Enforced reports whether Check rejects anything.
func (l *Levels) Enforced() bool { return l.enforce }

// Root returns the top level.
func (l *Levels) Root() hierarchy.NodeType { return l.order[0] }

// Index returns the position of t in the order, or -1.
func (l *Levels) Index(t hierarchy.NodeType) int {
	for i, o := range l.order {
		if o == t {
			return i
		}
	}
	return -1
}

// ChildOf returns the level below t, or "" if t is the leaf level or
// unknown.
func (l *Levels) ChildOf(t hierarchy.NodeType) hierarchy.NodeType {
	i := l.Index(t)
	if i < 0 || i+1 >= len(l.order) {
		return ""
	}
	return l.order[i+1]
}

// Check validates that a node of type child may be created under parent.
// A nil parent means a root. Errors wrap hierarchy.ErrValidation.
func (l *Levels) Check(child hierarchy.NodeType, parent *hierarchy.Node) error {
	if !l.enforce {
		return nil
	}
	i := l.Index(child)
	if i < 0 {
		return fmt.Errorf("%w: unknown level %q (want one of %s)", hierarchy.ErrValidation, child, l.names())
	}
	if parent == nil {
		if i != 0 {
			return fmt.Errorf("%w: a %s needs a %s parent", hierarchy.ErrValidation, child, l.order[i-1])
		}
		return nil
	}
	if i == 0 {
		return fmt.Errorf("%w: a %s cannot have a parent", hierarchy.ErrValidation, child)
	}
	if want := l.order[i-1]; parent.Type != want {
		return fmt.Errorf("%w: a %s must be placed under a %s, not a %s", hierarchy.ErrValidation, child, want, parent.Type)
	}
	return nil
}

func (l *Levels) names() string {
	s := make([]string, len(l.order))
	for i, t := range l.order {
		s[i] = string(t)
	}
	return strings.Join(s, ", ")
}
