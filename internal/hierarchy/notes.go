package hierarchy

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"slices"
	"strings"
	"time"
)

// Note is a notes row. AttachedToType is the anchor node's type at the time
// the note was attached.
type Note struct {
	ID             string    `json:"id" yaml:"id"`
	Content        string    `json:"content" yaml:"content"`
	AttachedToID   string    `json:"attachedToId" yaml:"attachedToId"`
	AttachedToType NodeType  `json:"attachedToType" yaml:"attachedToType"`
	Tags           []string  `json:"tags" yaml:"tags"`
	CreatedAt      time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt" yaml:"updatedAt"`
}

const noteColumns = `id, content, attached_to_id, attached_to_type, tags, created_at, updated_at`

// CreateNote attaches a new note to nodeID.
func (s *Store) CreateNote(nodeID, content string, tags []string) (*Note, error) {
	if strings.TrimSpace(content) == "" {
		return nil, invalid("note content must not be empty")
	}
	if nodeID == "" {
		return nil, invalid("note must be attached to a node")
	}

	now := s.now().UTC()
	note := &Note{
		ID:           s.newID(),
		Content:      content,
		AttachedToID: nodeID,
		Tags:         normalizeTags(tags),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := s.withTx("create note", func(tx *sql.Tx) error {
		anchor, err := getNode(tx, nodeID)
		if err != nil {
			return err
		}
		if anchor == nil {
			return notFound("node", nodeID)
		}
		note.AttachedToType = anchor.Type

		_, err = tx.Exec(
			`INSERT INTO notes (`+noteColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			note.ID, note.Content, note.AttachedToID, string(note.AttachedToType),
			encodeTags(note.Tags), formatTime(note.CreatedAt), formatTime(note.UpdatedAt),
		)
		if err != nil {
			return storageErr("insert note", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("note created", "id", note.ID, "node", nodeID, "tags", len(note.Tags))
	return note, nil
}

// Note returns the note with the given id, or nil, nil if there is none.
func (s *Store) Note(id string) (*Note, error) {
	return getNote(s.db, id)
}

// NotesFor returns the notes attached directly to nodeID, oldest first.
func (s *Store) NotesFor(nodeID string) ([]Note, error) {
	rows, err := s.db.Query(
		`SELECT `+noteColumns+` FROM notes WHERE attached_to_id = ? ORDER BY created_at, id`,
		nodeID,
	)
	if err != nil {
		return nil, storageErr("list notes", err)
	}
	return scanNotes(rows, "list notes")
}

// AllNotes returns every note, oldest first.
func (s *Store) AllNotes() ([]Note, error) {
	rows, err := s.db.Query(`SELECT ` + noteColumns + ` FROM notes ORDER BY created_at, id`)
	if err != nil {
		return nil, storageErr("all notes", err)
	}
	return scanNotes(rows, "all notes")
}

// UpdateNote replaces a note's content and tags. It returns nil, nil when
// the note does not exist.
func (s *Store) UpdateNote(id, content string, tags []string) (*Note, error) {
	if strings.TrimSpace(content) == "" {
		return nil, invalid("note content must not be empty")
	}

	var note *Note
	err := s.withTx("update note", func(tx *sql.Tx) error {
		res, err := tx.Exec(
			`UPDATE notes SET content = ?, tags = ?, updated_at = ? WHERE id = ?`,
			content, encodeTags(normalizeTags(tags)), s.timestamp(), id,
		)
		if err != nil {
			return storageErr("update note", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return nil
		}
		note, err = getNote(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if note != nil {
		slog.Info("note updated", "id", id)
	}
	return note, nil
}

// DeleteNote removes a single note.
func (s *Store) DeleteNote(id string) error {
	var affected int64
	err := s.withTx("delete note", func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM notes WHERE id = ?`, id)
		if err != nil {
			return storageErr("delete note", err)
		}
		affected, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return notFound("note", id)
	}
	slog.Info("note deleted", "id", id)
	return nil
}

// --- Notes store helpers ---

func getNote(q querier, id string) (*Note, error) {
	row := q.QueryRow(`SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get note", err)
	}
	return n, nil
}

func scanNote(row scanner) (*Note, error) {
	var n Note
	var typ, tags, created, updated string
	if err := row.Scan(&n.ID, &n.Content, &n.AttachedToID, &typ, &tags, &created, &updated); err != nil {
		return nil, err
	}
	n.AttachedToType = NodeType(typ)
	n.Tags = decodeTags(tags)
	n.CreatedAt = parseTime(created)
	n.UpdatedAt = parseTime(updated)
	return &n, nil
}

func scanNotes(rows *sql.Rows, op string) ([]Note, error) {
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, storageErr(op, err)
		}
		notes = append(notes, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(op, err)
	}
	return notes, nil
}

// normalizeTags trims, drops empties, de-duplicates and sorts.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func encodeTags(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	b, _ := json.Marshal(tags)
	return string(b)
}

func decodeTags(s string) []string {
	tags := []string{}
	if s == "" {
		return tags
	}
	if err := json.Unmarshal([]byte(s), &tags); err != nil {
		slog.Warn("notes: unreadable tags column, ignoring", "value", truncate(s, 40), "error", err)
		return []string{}
	}
	return tags
}
