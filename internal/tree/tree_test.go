package tree

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/lthms/carenotes/internal/hierarchy"
)

func openTestStore(t *testing.T) *hierarchy.Store {
	t.Helper()
	s, err := hierarchy.Open(hierarchy.Config{DBPath: filepath.Join(t.TempDir(), "tree.db")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustCreate(t *testing.T, s *hierarchy.Store, typ hierarchy.NodeType, name, parent string) *hierarchy.Node {
	t.Helper()
	n, err := s.CreateNode(typ, name, parent)
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	return n
}

func TestBuild_FourLevels(t *testing.T) {
	s := openTestStore(t)
	o := mustCreate(t, s, hierarchy.Organisation, "Acme", "")
	t1 := mustCreate(t, s, hierarchy.Team, "Physio", o.ID)
	t2 := mustCreate(t, s, hierarchy.Team, "OT", o.ID)
	c := mustCreate(t, s, hierarchy.Client, "Jane", t1.ID)
	e := mustCreate(t, s, hierarchy.Episode, "Knee rehab", c.ID)
	if _, err := s.CreateNote(e.ID, "session 1", []string{"progress"}); err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if _, err := s.CreateNote(o.ID, "org memo", nil); err != nil {
		t.Fatalf("CreateNote: %v", err)
	}

	tr, err := Build(s, Options{WithNotes: true})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(tr.Roots) != 1 {
		t.Fatalf("expected 1 root, got %d", len(tr.Roots))
	}
	root := tr.Roots[0]
	if root.ID != o.ID || len(root.Notes) != 1 {
		t.Errorf("root = %s with %d notes", root.ID, len(root.Notes))
	}
	if len(root.Children) != 2 || root.Children[0].ID != t1.ID || root.Children[1].ID != t2.ID {
		t.Fatalf("unexpected teams: %+v", root.Children)
	}
	episode := root.Children[0].Children[0].Children[0]
	if episode.ID != e.ID || episode.ParentID != c.ID {
		t.Errorf("episode = %s parent %s", episode.ID, episode.ParentID)
	}
	if len(episode.Notes) != 1 || episode.Notes[0].Content != "session 1" {
		t.Errorf("episode notes = %+v", episode.Notes)
	}
	if tr.Count() != 5 {
		t.Errorf("Count = %d, want 5", tr.Count())
	}
	if len(tr.Unplaced) != 0 {
		t.Errorf("unexpected unplaced notes: %+v", tr.Unplaced)
	}
	if len(tr.Notes()) != 2 {
		t.Errorf("Notes() = %d, want 2", len(tr.Notes()))
	}
}

func TestBuild_WithoutNotes(t *testing.T) {
	s := openTestStore(t)
	o := mustCreate(t, s, hierarchy.Organisation, "Acme", "")
	s.CreateNote(o.ID, "memo", nil)

	tr, err := Build(s, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(tr.Roots[0].Notes) != 0 {
		t.Errorf("notes attached without WithNotes")
	}
}

func TestBuild_UnreachableNotesAreUnplaced(t *testing.T) {
	s := openTestStore(t)
	mustCreate(t, s, hierarchy.Organisation, "Acme", "")
	stray := mustCreate(t, s, hierarchy.Team, "Floating", "")
	s.CreateNote(stray.ID, "lost", nil)

	tr, err := Build(s, Options{WithNotes: true})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(tr.Unplaced) != 1 || tr.Unplaced[0].AttachedToID != stray.ID {
		t.Errorf("Unplaced = %+v", tr.Unplaced)
	}
}

func TestFlatten(t *testing.T) {
	s := openTestStore(t)
	o := mustCreate(t, s, hierarchy.Organisation, "Acme", "")
	tm := mustCreate(t, s, hierarchy.Team, "Physio", o.ID)
	mustCreate(t, s, hierarchy.Client, "Jane", tm.ID)

	tr, err := Build(s, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	flat := tr.Flatten()
	if len(flat["organisations"]) != 1 || flat["organisations"][0].ParentID != nil {
		t.Errorf("organisations = %+v", flat["organisations"])
	}
	teams := flat["teams"]
	if len(teams) != 1 || teams[0].ParentID == nil || *teams[0].ParentID != o.ID {
		t.Errorf("teams = %+v", teams)
	}
	if len(flat["clients"]) != 1 {
		t.Errorf("clients = %+v", flat["clients"])
	}
}

// fakeSource returns canned results and errors.
type fakeSource struct {
	roots    []hierarchy.Node
	children map[string][]hierarchy.Node
	notesErr error
}

func (f *fakeSource) NodesByType(hierarchy.NodeType) ([]hierarchy.Node, error) {
	return f.roots, nil
}

func (f *fakeSource) ChildrenOf(id string) ([]hierarchy.Node, error) {
	return f.children[id], nil
}

func (f *fakeSource) AllNotes() ([]hierarchy.Note, error) {
	return nil, f.notesErr
}

func TestBuild_PropagatesNotesError(t *testing.T) {
	boom := errors.New("boom")
	src := &fakeSource{roots: []hierarchy.Node{{ID: "o", Type: hierarchy.Organisation}}, notesErr: boom}

	if _, err := Build(src, Options{WithNotes: true}); !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}

func TestBuild_MaxDepth(t *testing.T) {
	// A self-referencing child would loop forever without the bound.
	src := &fakeSource{
		roots:    []hierarchy.Node{{ID: "a"}},
		children: map[string][]hierarchy.Node{"a": {{ID: "a"}}},
	}
	if _, err := Build(src, Options{MaxDepth: 5}); err == nil {
		t.Error("expected depth error")
	}
}
