package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/lthms/carenotes/internal/hierarchy"
	"github.com/lthms/carenotes/internal/tree"
)

func sampleTree() *tree.Tree {
	org := hierarchy.Node{ID: "o", Type: hierarchy.Organisation, Name: "Acme"}
	team := hierarchy.Node{ID: "t", Type: hierarchy.Team, Name: "Physio"}
	client := hierarchy.Node{ID: "c", Type: hierarchy.Client, Name: "Jane"}
	return &tree.Tree{
		Roots: []*tree.Branch{{
			Node: org,
			Notes: []hierarchy.Note{
				{ID: "n1", Content: "memo\nsecond line", Tags: []string{"admin"}},
			},
			Children: []*tree.Branch{{
				Node:     team,
				ParentID: "o",
				Children: []*tree.Branch{{Node: client, ParentID: "t"}},
			}},
		}},
		Unplaced: []hierarchy.Note{{ID: "n2", Content: "stray", AttachedToID: "ghost"}},
	}
}

func TestRenderTree(t *testing.T) {
	var buf bytes.Buffer
	renderTree(&buf, sampleTree(), renderOptions{})

	want := strings.Join([]string{
		"Acme (organisation)",
		"├── ✎ memo #admin",
		"└── Physio (team)",
		"    └── Jane (client)",
		"",
		"unplaced notes:",
		"  ✎ stray → ghost",
		"",
	}, "\n")
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestRenderTree_IDs(t *testing.T) {
	var buf bytes.Buffer
	renderTree(&buf, sampleTree(), renderOptions{ids: true})
	if !strings.Contains(buf.String(), "Jane (client) c") {
		t.Errorf("ids missing:\n%s", buf.String())
	}
}

func TestWriteLine_Truncates(t *testing.T) {
	var buf bytes.Buffer
	writeLine(&buf, strings.Repeat("x", 50), 10)
	line := strings.TrimRight(buf.String(), "\n")
	if w := lipgloss.Width(line); w > 10 {
		t.Errorf("width = %d, want <= 10", w)
	}
}

func TestWriteFormat(t *testing.T) {
	n := hierarchy.Node{ID: "o", Type: hierarchy.Organisation, Name: "Acme"}

	var buf bytes.Buffer
	if err := writeFormat(&buf, "yaml", n); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if !strings.Contains(buf.String(), "name: Acme") {
		t.Errorf("yaml = %s", buf.String())
	}

	buf.Reset()
	if err := writeFormat(&buf, "json", n); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !strings.Contains(buf.String(), `"name": "Acme"`) {
		t.Errorf("json = %s", buf.String())
	}

	if err := writeFormat(&buf, "xml", n); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestRenderViolations(t *testing.T) {
	var buf bytes.Buffer
	renderViolations(&buf, []hierarchy.Violation{{Check: "orphan_note", Subject: "n1", Detail: "ghost"}}, renderOptions{})
	if got := buf.String(); got != "orphan_note n1: ghost\n" {
		t.Errorf("got %q", got)
	}
}
