package hierarchy

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
)

// maxBatch bounds the number of bound parameters in one IN (...) list.
const maxBatch = 500

// DeleteNodeAndDescendants removes id, everything below it, every note
// attached to any of those nodes, and every closure row touching them, in
// one transaction. It returns the number of nodes deleted.
func (s *Store) DeleteNodeAndDescendants(id string) (int, error) {
	existing, err := s.Node(id)
	if err != nil {
		return 0, err
	}
	if existing == nil {
		return 0, notFound("node", id)
	}

	var count, notesDeleted int
	err = s.withTx("delete subtree", func(tx *sql.Tx) error {
		ids, err := subtreeIDs(tx, id)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			// Deleted concurrently between the check and the transaction.
			return notFound("node", id)
		}

		n, err := execIn(tx, `DELETE FROM notes WHERE attached_to_id IN (%s)`, ids, 1)
		if err != nil {
			return storageErr("delete subtree notes", err)
		}
		notesDeleted = n

		if _, err := execIn(tx, `DELETE FROM hierarchy_closure WHERE ancestor IN (%[1]s) OR descendant IN (%[1]s)`, ids, 2); err != nil {
			return storageErr("delete subtree edges", err)
		}

		if _, err := execIn(tx, `DELETE FROM hierarchy_nodes WHERE id IN (%s)`, ids, 1); err != nil {
			return storageErr("delete subtree nodes", err)
		}

		count = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}

	slog.Info("subtree deleted", "id", id, "type", existing.Type, "nodes", count, "notes", notesDeleted)
	return count, nil
}

// execIn runs query once per chunk of ids. The query's %s verb (or %[1]s,
// repeated uses times) is replaced by the chunk's placeholder list. It
// returns the total rows affected.
func execIn(q querier, query string, ids []string, uses int) (int, error) {
	var total int64
	for start := 0; start < len(ids); start += maxBatch {
		end := min(start+maxBatch, len(ids))
		chunk := ids[start:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		args := make([]any, 0, len(chunk)*uses)
		for range uses {
			for _, id := range chunk {
				args = append(args, id)
			}
		}

		res, err := q.Exec(fmt.Sprintf(query, placeholders), args...)
		if err != nil {
			return int(total), err
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return int(total), nil
}
