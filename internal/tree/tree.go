// Package tree assembles a nested, read-only view of the hierarchy for
// presentation. It only uses the store's public queries: roots by type,
// then direct children level by level, plus one pass over all notes.
//
// The calls are not wrapped in a transaction, so a mutation that lands
// between them can produce a slightly inconsistent snapshot.
package tree

import (
	"fmt"

	"github.com/lthms/carenotes/internal/hierarchy"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxDepth bounds the walk below a root.
const DefaultMaxDepth = 64

// Source is the subset of *hierarchy.Store the materializer reads from.
type Source interface {
	NodesByType(typ hierarchy.NodeType) ([]hierarchy.Node, error)
	ChildrenOf(id string) ([]hierarchy.Node, error)
	AllNotes() ([]hierarchy.Note, error)
}

// Options configures Build.
type Options struct {
	RootType  hierarchy.NodeType // type of the top-level nodes (default organisation)
	WithNotes bool               // attach notes to their nodes
	MaxDepth  int                // 0 = DefaultMaxDepth
}

// Branch is one node with its notes and children.
type Branch struct {
	hierarchy.Node `yaml:",inline"`
	ParentID       string           `json:"parentId,omitempty" yaml:"parentId,omitempty"`
	Notes          []hierarchy.Note `json:"notes,omitempty" yaml:"notes,omitempty"`
	Children       []*Branch        `json:"children,omitempty" yaml:"children,omitempty"`
}

// Tree is the materialized forest.
type Tree struct {
	Roots []*Branch `json:"roots" yaml:"roots"`
	// Unplaced holds notes whose anchor was not reached by the walk.
	Unplaced []hierarchy.Note `json:"unplaced,omitempty" yaml:"unplaced,omitempty"`
}

type noteKey struct {
	id  string
	typ hierarchy.NodeType
}

// Build walks the hierarchy from every node of opts.RootType downwards.
// Notes are fetched concurrently with the walk and grouped by
// (AttachedToID, AttachedToType).
func Build(src Source, opts Options) (*Tree, error) {
	if opts.RootType == "" {
		opts.RootType = hierarchy.Organisation
	}
	if opts.MaxDepth == 0 {
		opts.MaxDepth = DefaultMaxDepth
	}

	var g errgroup.Group

	var notes []hierarchy.Note
	if opts.WithNotes {
		g.Go(func() error {
			var err error
			notes, err = src.AllNotes()
			if err != nil {
				return fmt.Errorf("load notes: %w", err)
			}
			return nil
		})
	}

	var roots []*Branch
	g.Go(func() error {
		nodes, err := src.NodesByType(opts.RootType)
		if err != nil {
			return fmt.Errorf("load %s: %w", opts.RootType.Plural(), err)
		}
		for _, n := range nodes {
			b := &Branch{Node: n}
			if err := grow(src, b, 1, opts.MaxDepth); err != nil {
				return err
			}
			roots = append(roots, b)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	t := &Tree{Roots: roots}
	if opts.WithNotes {
		t.attach(notes)
	}
	return t, nil
}

func grow(src Source, b *Branch, depth, maxDepth int) error {
	if depth > maxDepth {
		return fmt.Errorf("tree deeper than %d levels below %s", maxDepth, b.ID)
	}
	kids, err := src.ChildrenOf(b.ID)
	if err != nil {
		return fmt.Errorf("children of %s: %w", b.ID, err)
	}
	for _, k := range kids {
		child := &Branch{Node: k, ParentID: b.ID}
		if err := grow(src, child, depth+1, maxDepth); err != nil {
			return err
		}
		b.Children = append(b.Children, child)
	}
	return nil
}

func (t *Tree) attach(notes []hierarchy.Note) {
	grouped := make(map[noteKey][]hierarchy.Note)
	for _, n := range notes {
		k := noteKey{n.AttachedToID, n.AttachedToType}
		grouped[k] = append(grouped[k], n)
	}

	t.Walk(func(b *Branch, _ int) {
		k := noteKey{b.ID, b.Type}
		if ns, ok := grouped[k]; ok {
			b.Notes = ns
			delete(grouped, k)
		}
	})

	for _, n := range notes {
		if _, ok := grouped[noteKey{n.AttachedToID, n.AttachedToType}]; ok {
			t.Unplaced = append(t.Unplaced, n)
		}
	}
}

// Walk visits every branch depth-first, parents before children. Roots
// have depth 0.
func (t *Tree) Walk(fn func(b *Branch, depth int)) {
	var visit func(b *Branch, depth int)
	visit = func(b *Branch, depth int) {
		fn(b, depth)
		for _, c := range b.Children {
			visit(c, depth+1)
		}
	}
	for _, r := range t.Roots {
		visit(r, 0)
	}
}

// Count returns the number of nodes in the tree.
func (t *Tree) Count() int {
	n := 0
	t.Walk(func(*Branch, int) { n++ })
	return n
}

// FlatNode is a node with a parent reference, as listed by Flatten.
type FlatNode struct {
	hierarchy.Node `yaml:",inline"`
	ParentID       *string `json:"parentId" yaml:"parentId"`
}

// Flatten lists the tree's nodes grouped by plural type name
// ("organisations", "teams", ...) in walk order.
func (t *Tree) Flatten() map[string][]FlatNode {
	out := make(map[string][]FlatNode)
	t.Walk(func(b *Branch, _ int) {
		fn := FlatNode{Node: b.Node}
		if b.ParentID != "" {
			parent := b.ParentID
			fn.ParentID = &parent
		}
		key := b.Type.Plural()
		out[key] = append(out[key], fn)
	})
	return out
}

// Notes returns every attached and unplaced note in the tree.
func (t *Tree) Notes() []hierarchy.Note {
	var out []hierarchy.Note
	t.Walk(func(b *Branch, _ int) {
		out = append(out, b.Notes...)
	})
	return append(out, t.Unplaced...)
}
