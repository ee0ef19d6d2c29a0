package hierarchy

// Edge states that Ancestor is Depth hops above Descendant. Every node has
// a self edge at depth 0.
type Edge struct {
	Ancestor   string `json:"ancestor"`
	Descendant string `json:"descendant"`
	Depth      int    `json:"depth"`
}

// Children returns the nodes exactly depth levels below id, ordered by
// creation time. Depth 1 yields direct children.
func (s *Store) Children(id string, depth int) ([]Node, error) {
	if depth < 1 {
		return nil, invalid("children depth must be at least 1, got %d", depth)
	}
	rows, err := s.db.Query(
		`SELECT `+nodeColumns+`
		 FROM hierarchy_nodes n
		 JOIN hierarchy_closure c ON n.id = c.descendant
		 WHERE c.ancestor = ? AND c.depth = ?
		 ORDER BY n.created_at, n.id`,
		id, depth,
	)
	if err != nil {
		return nil, storageErr("children", err)
	}
	return scanNodes(rows, "children")
}

// ChildrenOf returns the direct children of id.
func (s *Store) ChildrenOf(id string) ([]Node, error) {
	return s.Children(id, 1)
}

// Descendants returns every node below id, shallowest first, with
// creation time breaking ties within a level.
func (s *Store) Descendants(id string) ([]Relative, error) {
	rows, err := s.db.Query(
		`SELECT `+nodeColumns+`, c.depth
		 FROM hierarchy_nodes n
		 JOIN hierarchy_closure c ON n.id = c.descendant
		 WHERE c.ancestor = ? AND c.depth > 0
		 ORDER BY c.depth, n.created_at, n.id`,
		id,
	)
	if err != nil {
		return nil, storageErr("descendants", err)
	}
	return scanRelatives(rows, "descendants")
}

// Ancestors returns every node above id, nearest first.
func (s *Store) Ancestors(id string) ([]Relative, error) {
	rows, err := s.db.Query(
		`SELECT `+nodeColumns+`, c.depth
		 FROM hierarchy_nodes n
		 JOIN hierarchy_closure c ON n.id = c.ancestor
		 WHERE c.descendant = ? AND c.depth > 0
		 ORDER BY c.depth`,
		id,
	)
	if err != nil {
		return nil, storageErr("ancestors", err)
	}
	return scanRelatives(rows, "ancestors")
}

// Parent returns the direct parent of id, or nil, nil for a root or an
// unknown id.
func (s *Store) Parent(id string) (*Node, error) {
	row := s.db.QueryRow(
		`SELECT `+nodeColumns+`
		 FROM hierarchy_nodes n
		 JOIN hierarchy_closure c ON n.id = c.ancestor
		 WHERE c.descendant = ? AND c.depth = 1
		 LIMIT 1`,
		id,
	)
	n, err := scanNode(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, storageErr("parent", err)
	}
	return n, nil
}

// Edges returns the closure rows that mention id on either side, ordered
// by depth.
func (s *Store) Edges(id string) ([]Edge, error) {
	rows, err := s.db.Query(
		`SELECT ancestor, descendant, depth FROM hierarchy_closure
		 WHERE ancestor = ? OR descendant = ?
		 ORDER BY depth, ancestor, descendant`,
		id, id,
	)
	if err != nil {
		return nil, storageErr("edges", err)
	}
	defer rows.Close()

	var edges []Edge
	for rows.Next() {
		var e Edge
		if err := rows.Scan(&e.Ancestor, &e.Descendant, &e.Depth); err != nil {
			return nil, storageErr("edges", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("edges", err)
	}
	return edges, nil
}

// --- Closure store helpers ---

func insertEdge(q querier, ancestor, descendant string, depth int) error {
	_, err := q.Exec(
		`INSERT INTO hierarchy_closure (ancestor, descendant, depth) VALUES (?, ?, ?)`,
		ancestor, descendant, depth,
	)
	if err != nil {
		return storageErr("insert edge", err)
	}
	return nil
}

// ancestorEdges returns every edge ending at id, the self edge included.
// An empty result means id is not a node.
func ancestorEdges(q querier, id string) ([]Edge, error) {
	rows, err := q.Query(
		`SELECT ancestor, descendant, depth FROM hierarchy_closure WHERE descendant = ? ORDER BY depth`,
		id,
	)
	if err != nil {
		return nil, storageErr("read ancestor edges", err)
	}
	defer rows.Close()

	var edges []Edge
	for rows.Next() {
		var e Edge
		if err := rows.Scan(&e.Ancestor, &e.Descendant, &e.Depth); err != nil {
			return nil, storageErr("read ancestor edges", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("read ancestor edges", err)
	}
	return edges, nil
}

// subtreeIDs returns id and every node below it.
func subtreeIDs(q querier, id string) ([]string, error) {
	rows, err := q.Query(
		`SELECT descendant FROM hierarchy_closure WHERE ancestor = ? ORDER BY depth DESC`,
		id,
	)
	if err != nil {
		return nil, storageErr("collect subtree", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, storageErr("collect subtree", err)
		}
		ids = append(ids, d)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("collect subtree", err)
	}
	return ids, nil
}
