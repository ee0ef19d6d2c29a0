package hierarchy

import (
	"database/sql"
	"log/slog"
	"strings"
	"time"
)

// NodeType is a hierarchy level tag. The store itself accepts any non-empty
// type; level ordering is a policy of the calling layer.
type NodeType string

const (
	Organisation NodeType = "organisation"
	Team         NodeType = "team"
	Client       NodeType = "client"
	Episode      NodeType = "episode"
)

// DefaultLevels is the level order of this deployment, root first.
var DefaultLevels = []NodeType{Organisation, Team, Client, Episode}

// Plural names a collection of nodes of this type ("teams").
func (t NodeType) Plural() string {
	return string(t) + "s"
}

// Node is a hierarchy_nodes row.
type Node struct {
	ID        string    `json:"id" yaml:"id"`
	Type      NodeType  `json:"type" yaml:"type"`
	Name      string    `json:"name" yaml:"name"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// Relative is a node annotated with its distance from the node it was
// queried relative to.
type Relative struct {
	Node  `yaml:",inline"`
	Depth int `json:"depth" yaml:"depth"`
}

const nodeColumns = `n.id, n.type, n.name, n.created_at, n.updated_at`

// CreateNode inserts a node and its closure rows. An empty parentID creates
// a root. The node row, its self edge and one edge per ancestor of the
// parent are written in a single transaction.
func (s *Store) CreateNode(typ NodeType, name, parentID string) (*Node, error) {
	typ = NodeType(strings.TrimSpace(string(typ)))
	name = strings.TrimSpace(name)
	if typ == "" {
		return nil, invalid("node type must not be empty")
	}
	if name == "" {
		return nil, invalid("node name must not be empty")
	}

	now := s.now()
	n := &Node{
		ID:        s.newID(),
		Type:      typ,
		Name:      name,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}

	err := s.withTx("create node", func(tx *sql.Tx) error {
		if err := insertNode(tx, n); err != nil {
			return err
		}
		if err := insertEdge(tx, n.ID, n.ID, 0); err != nil {
			return err
		}
		if parentID == "" {
			return nil
		}

		chain, err := ancestorEdges(tx, parentID)
		if err != nil {
			return err
		}
		if len(chain) == 0 {
			return notFound("parent node", parentID)
		}
		for _, e := range chain {
			if err := insertEdge(tx, e.Ancestor, n.ID, e.Depth+1); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("node created", "id", n.ID, "type", n.Type, "parent", parentID)
	return n, nil
}

// RenameNode sets a node's name and bumps updated_at. It returns nil, nil
// when the node does not exist. Closure rows are not touched.
func (s *Store) RenameNode(id, name string) (*Node, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("node name must not be empty")
	}

	var n *Node
	err := s.withTx("rename node", func(tx *sql.Tx) error {
		res, err := tx.Exec(
			`UPDATE hierarchy_nodes SET name = ?, updated_at = ? WHERE id = ?`,
			name, s.timestamp(), id,
		)
		if err != nil {
			return storageErr("rename node", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return nil
		}
		n, err = getNode(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if n != nil {
		slog.Info("node renamed", "id", id)
	}
	return n, nil
}

// Node returns the node with the given id, or nil, nil if there is none.
func (s *Store) Node(id string) (*Node, error) {
	return getNode(s.db, id)
}

// NodesByType returns all nodes of a type ordered by creation time.
func (s *Store) NodesByType(typ NodeType) ([]Node, error) {
	rows, err := s.db.Query(
		`SELECT `+nodeColumns+` FROM hierarchy_nodes n
		 WHERE n.type = ?
		 ORDER BY n.created_at, n.id`,
		typ,
	)
	if err != nil {
		return nil, storageErr("nodes by type", err)
	}
	return scanNodes(rows, "nodes by type")
}

// --- Node store helpers ---

func insertNode(q querier, n *Node) error {
	_, err := q.Exec(
		`INSERT INTO hierarchy_nodes (id, type, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		n.ID, string(n.Type), n.Name, formatTime(n.CreatedAt), formatTime(n.UpdatedAt),
	)
	if err != nil {
		return storageErr("insert node", err)
	}
	return nil
}

func getNode(q querier, id string) (*Node, error) {
	row := q.QueryRow(`SELECT `+nodeColumns+` FROM hierarchy_nodes n WHERE n.id = ?`, id)
	n, err := scanNode(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get node", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNode(row scanner, extra ...any) (*Node, error) {
	var n Node
	var typ, created, updated string
	dest := append([]any{&n.ID, &typ, &n.Name, &created, &updated}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	n.Type = NodeType(typ)
	n.CreatedAt = parseTime(created)
	n.UpdatedAt = parseTime(updated)
	return &n, nil
}

func scanNodes(rows *sql.Rows, op string) ([]Node, error) {
	defer rows.Close()

	var nodes []Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, storageErr(op, err)
		}
		nodes = append(nodes, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(op, err)
	}
	return nodes, nil
}

func scanRelatives(rows *sql.Rows, op string) ([]Relative, error) {
	defer rows.Close()

	var out []Relative
	for rows.Next() {
		var depth int
		n, err := scanNode(rows, &depth)
		if err != nil {
			return nil, storageErr(op, err)
		}
		out = append(out, Relative{Node: *n, Depth: depth})
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(op, err)
	}
	return out, nil
}
