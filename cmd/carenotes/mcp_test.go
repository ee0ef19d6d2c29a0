package main

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lthms/carenotes/internal/hierarchy"
	"github.com/lthms/carenotes/internal/tree"
)

func newTestTools(t *testing.T) *tools {
	t.Helper()
	a, _ := openTestApp(t, nil)
	return &tools{a: a, logs: newRingBuffer(10)}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want *mcp.TextContent", res.Content[0])
	}
	return tc.Text
}

// decodeResult fails the test on a tool error and decodes the JSON text
// into v.
func decodeResult(t *testing.T, res *mcp.CallToolResult, err error, v any) {
	t.Helper()
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	text := resultText(t, res)
	if res.IsError {
		t.Fatalf("tool error: %s", text)
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		t.Fatalf("decode %q: %v", text, err)
	}
}

func TestMCP_CreateAndQuery(t *testing.T) {
	tl := newTestTools(t)
	ctx := context.Background()

	var org, team hierarchy.Node
	res, _, err := tl.nodeCreate(ctx, nil, nodeCreateArgs{Type: "organisation", Name: "Acme"})
	decodeResult(t, res, err, &org)
	res, _, err = tl.nodeCreate(ctx, nil, nodeCreateArgs{Type: "team", Name: "Physio", ParentID: org.ID})
	decodeResult(t, res, err, &team)

	var kids []hierarchy.Node
	res, _, err = tl.nodeChildren(ctx, nil, childrenArgs{ID: org.ID})
	decodeResult(t, res, err, &kids)
	if len(kids) != 1 || kids[0].ID != team.ID {
		t.Errorf("children = %+v", kids)
	}

	var detail nodeDetail
	res, _, err = tl.nodeGet(ctx, nil, idArgs{ID: org.ID})
	decodeResult(t, res, err, &detail)
	if detail.Children != 1 || detail.Descendants != 1 {
		t.Errorf("detail = %+v", detail)
	}

	var note hierarchy.Note
	res, _, err = tl.noteCreate(ctx, nil, noteCreateArgs{NodeID: team.ID, Content: "kickoff", Tags: []string{"x"}})
	decodeResult(t, res, err, &note)
	if note.AttachedToType != hierarchy.Team {
		t.Errorf("note = %+v", note)
	}

	var tr tree.Tree
	res, _, err = tl.tree(ctx, nil, treeArgs{Notes: true})
	decodeResult(t, res, err, &tr)
	if len(tr.Roots) != 1 || len(tr.Roots[0].Children) != 1 || len(tr.Roots[0].Children[0].Notes) != 1 {
		t.Errorf("tree = %+v", tr)
	}

	var deleted map[string]int
	res, _, err = tl.nodeDelete(ctx, nil, idArgs{ID: org.ID})
	decodeResult(t, res, err, &deleted)
	if deleted["deleted"] != 2 {
		t.Errorf("deleted = %v", deleted)
	}

	var notes []hierarchy.Note
	res, _, err = tl.noteList(ctx, nil, noteListArgs{})
	decodeResult(t, res, err, &notes)
	if len(notes) != 0 {
		t.Errorf("notes survived delete: %+v", notes)
	}
}

func TestMCP_ErrorKinds(t *testing.T) {
	tl := newTestTools(t)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() (*mcp.CallToolResult, any, error)
		kind string
	}{
		{"blank name", func() (*mcp.CallToolResult, any, error) {
			return tl.nodeCreate(ctx, nil, nodeCreateArgs{Type: "organisation", Name: " "})
		}, "validation"},
		{"level order", func() (*mcp.CallToolResult, any, error) {
			return tl.nodeCreate(ctx, nil, nodeCreateArgs{Type: "episode", Name: "E"})
		}, "validation"},
		{"missing parent", func() (*mcp.CallToolResult, any, error) {
			return tl.nodeCreate(ctx, nil, nodeCreateArgs{Type: "team", Name: "T", ParentID: "ghost"})
		}, "not_found"},
		{"rename missing", func() (*mcp.CallToolResult, any, error) {
			return tl.nodeRename(ctx, nil, renameArgs{ID: "ghost", Name: "x"})
		}, "not_found"},
		{"delete missing", func() (*mcp.CallToolResult, any, error) {
			return tl.nodeDelete(ctx, nil, idArgs{ID: "ghost"})
		}, "not_found"},
		{"update missing note", func() (*mcp.CallToolResult, any, error) {
			return tl.noteUpdate(ctx, nil, noteUpdateArgs{ID: "ghost", Content: "x"})
		}, "not_found"},
		{"bad depth", func() (*mcp.CallToolResult, any, error) {
			return tl.nodeChildren(ctx, nil, childrenArgs{ID: "ghost", Depth: -1})
		}, "validation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, _, err := tt.call()
			if err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if !res.IsError {
				t.Fatalf("expected tool error, got %s", resultText(t, res))
			}
			if text := resultText(t, res); !strings.HasPrefix(text, tt.kind+":") {
				t.Errorf("text = %q, want kind %s", text, tt.kind)
			}
		})
	}
}

func TestMCP_VerifyAndLogTail(t *testing.T) {
	tl := newTestTools(t)
	ctx := context.Background()

	var v []hierarchy.Violation
	res, _, err := tl.verify(ctx, nil, struct{}{})
	decodeResult(t, res, err, &v)
	if len(v) != 0 {
		t.Errorf("violations = %+v", v)
	}

	tl.logs.Write("one")
	tl.logs.Write("two")
	var lines []string
	res, _, err = tl.logTail(ctx, nil, logTailArgs{Lines: 1})
	decodeResult(t, res, err, &lines)
	if len(lines) != 1 || lines[0] != "two" {
		t.Errorf("lines = %v", lines)
	}
}

func TestNewMCPServer(t *testing.T) {
	a, _ := openTestApp(t, nil)
	if newMCPServer(a, newRingBuffer(1)) == nil {
		t.Fatal("nil server")
	}
}
