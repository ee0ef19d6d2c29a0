package hierarchy

import "log/slog"

// Violation is one broken closure-table invariant.
type Violation struct {
	Check   string `json:"check"`
	Subject string `json:"subject"`
	Detail  string `json:"detail,omitempty"`
}

var integrityChecks = []struct {
	name  string
	query string
}{
	{
		"missing_self_edge",
		`SELECT n.id, '' FROM hierarchy_nodes n
		 WHERE NOT EXISTS (
			SELECT 1 FROM hierarchy_closure c
			WHERE c.ancestor = n.id AND c.descendant = n.id AND c.depth = 0)`,
	},
	{
		"bad_self_edge",
		`SELECT ancestor, 'ancestor=' || ancestor || ' descendant=' || descendant || ' depth=' || depth
		 FROM hierarchy_closure
		 WHERE (ancestor = descendant) <> (depth = 0)`,
	},
	{
		"dangling_edge",
		`SELECT c.descendant, 'ancestor=' || c.ancestor FROM hierarchy_closure c
		 WHERE NOT EXISTS (SELECT 1 FROM hierarchy_nodes n WHERE n.id = c.ancestor)
		    OR NOT EXISTS (SELECT 1 FROM hierarchy_nodes n WHERE n.id = c.descendant)`,
	},
	{
		"orphan_note",
		`SELECT o.id, 'attached_to=' || o.attached_to_id FROM notes o
		 WHERE NOT EXISTS (SELECT 1 FROM hierarchy_nodes n WHERE n.id = o.attached_to_id)`,
	},
	{
		"duplicate_depth",
		`SELECT descendant, 'depth=' || depth || ' count=' || COUNT(*) FROM hierarchy_closure
		 GROUP BY descendant, depth HAVING COUNT(*) > 1`,
	},
	{
		// A node k levels deep has exactly k proper ancestors.
		"broken_chain",
		`SELECT descendant, 'ancestors=' || COUNT(*) || ' max_depth=' || MAX(depth) FROM hierarchy_closure
		 WHERE depth > 0
		 GROUP BY descendant HAVING COUNT(*) <> MAX(depth)`,
	},
}

// Verify scans the tables for closure-table invariant violations. A healthy
// store returns an empty slice.
func (s *Store) Verify() ([]Violation, error) {
	var out []Violation
	for _, chk := range integrityChecks {
		rows, err := s.db.Query(chk.query)
		if err != nil {
			return nil, storageErr("verify "+chk.name, err)
		}
		for rows.Next() {
			v := Violation{Check: chk.name}
			if err := rows.Scan(&v.Subject, &v.Detail); err != nil {
				rows.Close()
				return nil, storageErr("verify "+chk.name, err)
			}
			out = append(out, v)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, storageErr("verify "+chk.name, err)
		}
	}

	if len(out) > 0 {
		slog.Warn("verify: integrity violations found", "count", len(out))
	}
	return out, nil
}
