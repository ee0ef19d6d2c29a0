package hierarchy

import (
	"context"
	"testing"
)

// corrupt runs stmts on one connection with foreign keys disabled.
func corrupt(t *testing.T, s *Store, stmts ...string) {
	t.Helper()
	ctx := context.Background()
	conn, err := s.db.Conn(ctx)
	if err != nil {
		t.Fatalf("conn: %v", err)
	}
	defer conn.Close()
	if _, err := conn.ExecContext(ctx, `PRAGMA foreign_keys = OFF`); err != nil {
		t.Fatalf("disable foreign keys: %v", err)
	}
	defer conn.ExecContext(ctx, `PRAGMA foreign_keys = ON`)
	for _, stmt := range stmts {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
}

func checks(v []Violation) map[string]bool {
	m := make(map[string]bool)
	for _, x := range v {
		m[x.Check] = true
	}
	return m
}

func TestVerify_Healthy(t *testing.T) {
	s := openTestStore(t)
	_, tm, _, e := chain(t, s)
	s.CreateNote(e.ID, "n", nil)
	s.DeleteNodeAndDescendants(tm.ID)
	assertHealthy(t, s)
}

func TestVerify_DetectsCorruption(t *testing.T) {
	tests := []struct {
		name  string
		stmts func(o, tm, c, e *Node) []string
		want  string
	}{
		{
			name: "missing self edge",
			stmts: func(o, tm, c, e *Node) []string {
				return []string{`DELETE FROM hierarchy_closure WHERE ancestor = '` + c.ID + `' AND descendant = '` + c.ID + `'`}
			},
			want: "missing_self_edge",
		},
		{
			name: "dangling edge",
			stmts: func(o, tm, c, e *Node) []string {
				return []string{`INSERT INTO hierarchy_closure VALUES ('ghost', '` + e.ID + `', 9)`}
			},
			want: "dangling_edge",
		},
		{
			name: "orphan note",
			stmts: func(o, tm, c, e *Node) []string {
				return []string{`INSERT INTO notes (id, content, attached_to_id, attached_to_type, tags, created_at, updated_at)
					VALUES ('n-x', 'c', 'ghost', 'episode', '[]', '', '')`}
			},
			want: "orphan_note",
		},
		{
			name: "second parent",
			stmts: func(o, tm, c, e *Node) []string {
				return []string{`UPDATE hierarchy_closure SET depth = 1 WHERE ancestor = '` + tm.ID + `' AND descendant = '` + e.ID + `'`}
			},
			want: "duplicate_depth",
		},
		{
			name: "missing ancestor link",
			stmts: func(o, tm, c, e *Node) []string {
				return []string{`DELETE FROM hierarchy_closure WHERE ancestor = '` + tm.ID + `' AND descendant = '` + e.ID + `'`}
			},
			want: "broken_chain",
		},
		{
			name: "self edge with depth",
			stmts: func(o, tm, c, e *Node) []string {
				return []string{`UPDATE hierarchy_closure SET depth = 1 WHERE ancestor = '` + o.ID + `' AND descendant = '` + o.ID + `'`}
			},
			want: "bad_self_edge",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := openTestStore(t)
			o, tm, c, e := chain(t, s)
			corrupt(t, s, tt.stmts(o, tm, c, e)...)

			v, err := s.Verify()
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			if !checks(v)[tt.want] {
				t.Errorf("expected %s violation, got %+v", tt.want, v)
			}
		})
	}
}
