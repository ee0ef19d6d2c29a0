// Package seed loads a flat hierarchy document into the store.
//
// The document groups nodes by plural level name and lists notes
// separately:
//
//	organisations: [{id: o1, name: Acme}]
//	teams:         [{id: t1, name: Physio, parentId: o1}]
//	notes:         [{content: hello, attachedToId: t1, tags: [intake]}]
//
// JSON is accepted too, as it decodes as YAML. Seed ids only link items
// within the document; every node and note gets a fresh id from the store.
package seed

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lthms/carenotes/internal/hierarchy"
)

// Item is one entry of the document. Nodes use ID, Name, Type and
// ParentID; notes use Content, AttachedToID and Tags.
type Item struct {
	ID           string   `yaml:"id"`
	Type         string   `yaml:"type"`
	Name         string   `yaml:"name"`
	ParentID     string   `yaml:"parentId"`
	Content      string   `yaml:"content"`
	AttachedToID string   `yaml:"attachedToId"`
	Tags         []string `yaml:"tags"`
}

// Document maps collection names ("teams", "notes") to their items.
type Document map[string][]Item

// Decode reads a document. An empty input yields an empty document.
func Decode(r io.Reader) (Document, error) {
	doc := Document{}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Document{}, nil
		}
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return doc, nil
}

// Creator is the subset of *hierarchy.Store the importer writes through.
type Creator interface {
	CreateNode(typ hierarchy.NodeType, name, parentID string) (*hierarchy.Node, error)
	CreateNote(nodeID, content string, tags []string) (*hierarchy.Note, error)
}

// Skip records an item that was not imported.
type Skip struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
	Reason     string `json:"reason"`
}

// Result summarises an import.
type Result struct {
	Nodes   map[hierarchy.NodeType]int `json:"nodes"`
	Notes   int                        `json:"notes"`
	Skipped []Skip                     `json:"skipped,omitempty"`
	// IDs maps seed ids to the ids assigned by the store.
	IDs map[string]string `json:"ids"`
}

// Import creates every node level by level, then every note. Items that
// reference an unknown parent or fail validation are skipped and
// reported; a storage error stops the import.
func Import(dst Creator, doc Document, levels []hierarchy.NodeType) (*Result, error) {
	if len(levels) == 0 {
		levels = hierarchy.DefaultLevels
	}
	res := &Result{
		Nodes: make(map[hierarchy.NodeType]int),
		IDs:   make(map[string]string),
	}

	for _, level := range levels {
		coll := level.Plural()
		for _, item := range doc[coll] {
			parent := ""
			if item.ParentID != "" {
				p, ok := res.IDs[item.ParentID]
				if !ok {
					res.skip(coll, item.ID, fmt.Sprintf("unknown parent %q", item.ParentID))
					continue
				}
				parent = p
			}

			typ := level
			if t := strings.TrimSpace(item.Type); t != "" {
				typ = hierarchy.NodeType(t)
			}

			n, err := dst.CreateNode(typ, item.Name, parent)
			if err != nil {
				if !recoverable(err) {
					return res, fmt.Errorf("import %s %q: %w", coll, item.ID, err)
				}
				res.skip(coll, item.ID, err.Error())
				continue
			}
			if item.ID != "" {
				res.IDs[item.ID] = n.ID
			}
			res.Nodes[typ]++
		}
	}

	for _, item := range doc["notes"] {
		anchor, ok := res.IDs[item.AttachedToID]
		if !ok {
			res.skip("notes", item.ID, fmt.Sprintf("unknown node %q", item.AttachedToID))
			continue
		}
		if _, err := dst.CreateNote(anchor, item.Content, item.Tags); err != nil {
			if !recoverable(err) {
				return res, fmt.Errorf("import note %q: %w", item.ID, err)
			}
			res.skip("notes", item.ID, err.Error())
			continue
		}
		res.Notes++
	}

	known := map[string]bool{"notes": true}
	for _, level := range levels {
		known[level.Plural()] = true
	}
	for coll, items := range doc {
		if !known[coll] && len(items) > 0 {
			slog.Warn("seed: ignoring unknown collection", "collection", coll, "items", len(items))
		}
	}

	return res, nil
}

func (r *Result) skip(coll, id, reason string) {
	slog.Warn("seed: skipping item", "collection", coll, "id", id, "reason", reason)
	r.Skipped = append(r.Skipped, Skip{Collection: coll, ID: id, Reason: reason})
}

// TotalNodes returns the number of nodes created.
func (r *Result) TotalNodes() int {
	n := 0
	for _, c := range r.Nodes {
		n += c
	}
	return n
}

func recoverable(err error) bool {
	return errors.Is(err, hierarchy.ErrValidation) || errors.Is(err, hierarchy.ErrNotFound)
}
