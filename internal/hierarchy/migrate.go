package hierarchy

import (
	"database/sql"
	"fmt"
)

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS hierarchy_nodes (
			id         TEXT PRIMARY KEY,
			type       TEXT NOT NULL,
			name       TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,

		// Transitive closure of the parent relation, self rows at depth 0.
		// No ON DELETE CASCADE: the engine deletes notes, edges, then nodes.
		`CREATE TABLE IF NOT EXISTS hierarchy_closure (
			ancestor   TEXT NOT NULL REFERENCES hierarchy_nodes(id),
			descendant TEXT NOT NULL REFERENCES hierarchy_nodes(id),
			depth      INTEGER NOT NULL CHECK(depth >= 0),
			PRIMARY KEY (ancestor, descendant)
		)`,

		`CREATE TABLE IF NOT EXISTS notes (
			id               TEXT PRIMARY KEY,
			content          TEXT NOT NULL,
			attached_to_id   TEXT NOT NULL REFERENCES hierarchy_nodes(id),
			attached_to_type TEXT NOT NULL,
			tags             TEXT NOT NULL DEFAULT '[]',
			created_at       TEXT NOT NULL,
			updated_at       TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_hierarchy_closure_ancestor ON hierarchy_closure(ancestor)`,
		`CREATE INDEX IF NOT EXISTS idx_hierarchy_closure_descendant ON hierarchy_closure(descendant)`,
		`CREATE INDEX IF NOT EXISTS idx_hierarchy_closure_depth ON hierarchy_closure(depth)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_attached_to ON notes(attached_to_id, attached_to_type)`,
		`CREATE INDEX IF NOT EXISTS idx_hierarchy_nodes_type ON hierarchy_nodes(type)`,
	}

	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", truncate(s, 60), err)
		}
	}

	// Databases created before tags existed lack the column.
	var colName string
	row := db.QueryRow(`SELECT name FROM pragma_table_info('notes') WHERE name = 'tags'`)
	if err := row.Scan(&colName); err == sql.ErrNoRows {
		if _, err := db.Exec(`ALTER TABLE notes ADD COLUMN tags TEXT NOT NULL DEFAULT '[]'`); err != nil {
			return fmt.Errorf("add notes.tags column: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("inspect notes columns: %w", err)
	}

	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
