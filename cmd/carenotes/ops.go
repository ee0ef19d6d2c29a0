package main

import (
	"fmt"

	"github.com/lthms/carenotes/internal/hierarchy"
	"github.com/lthms/carenotes/internal/tree"
)

// createNode applies the level policy, then creates the node. Used by both
// the CLI and the MCP server.
func (a *app) createNode(typ hierarchy.NodeType, name, parentID string) (*hierarchy.Node, error) {
	var parent *hierarchy.Node
	if parentID != "" {
		var err error
		parent, err = a.store.Node(parentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, fmt.Errorf("parent node %q: %w", parentID, hierarchy.ErrNotFound)
		}
	}
	if err := a.levels.Check(typ, parent); err != nil {
		return nil, err
	}
	return a.store.CreateNode(typ, name, parentID)
}

// mustNode returns the node or an ErrNotFound error.
func (a *app) mustNode(id string) (*hierarchy.Node, error) {
	n, err := a.store.Node(id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, fmt.Errorf("node %q: %w", id, hierarchy.ErrNotFound)
	}
	return n, nil
}

// nodeDetail is what "node show" and node_get report.
type nodeDetail struct {
	hierarchy.Node `yaml:",inline"`
	ParentID       string `json:"parentId,omitempty"`
	Children       int    `json:"children"`
	Descendants    int    `json:"descendants"`
	Notes          int    `json:"notes"`
}

func (a *app) describeNode(id string) (*nodeDetail, error) {
	n, err := a.mustNode(id)
	if err != nil {
		return nil, err
	}
	d := &nodeDetail{Node: *n}

	parent, err := a.store.Parent(id)
	if err != nil {
		return nil, err
	}
	if parent != nil {
		d.ParentID = parent.ID
	}
	kids, err := a.store.ChildrenOf(id)
	if err != nil {
		return nil, err
	}
	d.Children = len(kids)
	desc, err := a.store.Descendants(id)
	if err != nil {
		return nil, err
	}
	d.Descendants = len(desc)
	notes, err := a.store.NotesFor(id)
	if err != nil {
		return nil, err
	}
	d.Notes = len(notes)
	return d, nil
}

// exportDoc is the flat dump produced by "export": one list per level
// (empty lists included) plus all notes.
func (a *app) exportDoc() (map[string]any, error) {
	t, err := tree.Build(a.store, tree.Options{RootType: a.levels.Root(), WithNotes: true})
	if err != nil {
		return nil, err
	}
	flat := t.Flatten()
	doc := make(map[string]any, len(flat)+1)
	for _, l := range a.levels.Order() {
		doc[l.Plural()] = []tree.FlatNode{}
	}
	for k, v := range flat {
		doc[k] = v
	}
	notes := t.Notes()
	if notes == nil {
		notes = []hierarchy.Note{}
	}
	doc["notes"] = notes
	return doc, nil
}

// checked routes seed imports through the level policy.
type checked struct{ a *app }

func (c checked) CreateNode(typ hierarchy.NodeType, name, parentID string) (*hierarchy.Node, error) {
	return c.a.createNode(typ, name, parentID)
}

func (c checked) CreateNote(nodeID, content string, tags []string) (*hierarchy.Note, error) {
	return c.a.store.CreateNote(nodeID, content, tags)
}
