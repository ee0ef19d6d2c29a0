package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lthms/carenotes/internal/hierarchy"
	"github.com/lthms/carenotes/internal/tree"
)

const logTailSize = 500

type MCPCmd struct{}

// Run serves MCP over stdio until stdin closes or the process is
// interrupted. Logs go to log.file when configured, else stderr, and the
// most recent lines are kept for the log_tail tool.
func (cmd *MCPCmd) Run(a *app, level slog.Level) error {
	next := slog.Default().Handler()
	if a.cfg.LogFile != "" {
		next = setupFileLogger(a.cfg.LogFile, level)
	}
	logs := newRingBuffer(logTailSize)
	slog.SetDefault(slog.New(newRingHandler(logs, slog.LevelInfo, next)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	slog.Debug("starting MCP server")
	return newMCPServer(a, logs).Run(ctx, &mcp.StdioTransport{})
}

type nodeCreateArgs struct {
	Type     string `json:"type" jsonschema:"Node type: organisation, team, client or episode"`
	Name     string `json:"name" jsonschema:"Display name"`
	ParentID string `json:"parent_id,omitempty" jsonschema:"Parent node id; omit to create a root"`
}

type idArgs struct {
	ID string `json:"id" jsonschema:"Node or note id"`
}

type childrenArgs struct {
	ID    string `json:"id" jsonschema:"Node id"`
	Depth int    `json:"depth,omitempty" jsonschema:"Distance below the node (default 1)"`
}

type renameArgs struct {
	ID   string `json:"id" jsonschema:"Node id"`
	Name string `json:"name" jsonschema:"New display name"`
}

type noteCreateArgs struct {
	NodeID  string   `json:"node_id" jsonschema:"Id of the node to attach the note to"`
	Content string   `json:"content" jsonschema:"Note text"`
	Tags    []string `json:"tags,omitempty" jsonschema:"Tags"`
}

type noteListArgs struct {
	NodeID string `json:"node_id,omitempty" jsonschema:"Node id; omit to list every note"`
}

type noteUpdateArgs struct {
	ID      string   `json:"id" jsonschema:"Note id"`
	Content string   `json:"content" jsonschema:"New note text"`
	Tags    []string `json:"tags,omitempty" jsonschema:"New tags, replacing the old ones"`
}

type treeArgs struct {
	Notes bool   `json:"notes,omitempty" jsonschema:"Attach notes to their nodes"`
	Root  string `json:"root,omitempty" jsonschema:"Type of the top-level nodes (default: the top level)"`
}

type logTailArgs struct {
	Lines int `json:"lines,omitempty" jsonschema:"Number of recent lines (default all kept)"`
}

// tools holds the handlers for every MCP tool.
type tools struct {
	a    *app
	logs *ringBuffer
}

func newMCPServer(a *app, logs *ringBuffer) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "carenotes",
		Version: "1.0.0",
	}, nil)

	t := &tools{a: a, logs: logs}
	levels := strings.Join(levelNames(a), ", ")

	mcp.AddTool(server, &mcp.Tool{
		Name:        "node_create",
		Description: "Create a hierarchy node. Levels, root first: " + levels + ". Returns the node as JSON.",
	}, t.nodeCreate)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "node_get",
		Description: "Get a node with its parent id and child, descendant and note counts.",
	}, t.nodeGet)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "node_children",
		Description: "List the nodes exactly `depth` levels below a node, oldest first.",
	}, t.nodeChildren)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "node_descendants",
		Description: "List every node below a node with its depth, nearest first.",
	}, t.nodeDescendants)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "node_ancestors",
		Description: "List every node above a node with its depth, nearest first.",
	}, t.nodeAncestors)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "node_rename",
		Description: "Rename a node.",
	}, t.nodeRename)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "node_delete",
		Description: "Delete a node, all its descendants and every note attached to them. Returns the number of nodes removed.",
	}, t.nodeDelete)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "note_create",
		Description: "Attach a note to a node.",
	}, t.noteCreate)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "note_list",
		Description: "List the notes attached directly to a node, or every note.",
	}, t.noteList)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "note_update",
		Description: "Replace a note's content and tags.",
	}, t.noteUpdate)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "note_delete",
		Description: "Delete a note.",
	}, t.noteDelete)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "tree",
		Description: "Return the whole hierarchy as nested JSON.",
	}, t.tree)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "verify",
		Description: "Check closure table integrity. Returns a list of violations, empty when healthy.",
	}, t.verify)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "log_tail",
		Description: "Return the most recent server log lines.",
	}, t.logTail)

	return server
}

func levelNames(a *app) []string {
	var out []string
	for _, l := range a.levels.Order() {
		out = append(out, string(l))
	}
	return out
}

// result encodes v as JSON text, or err as an error result tagged with its
// kind.
func result(v any, err error) (*mcp.CallToolResult, any, error) {
	if err != nil {
		slog.Debug("tool failed", "error", err)
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("%s: %v", hierarchy.Kind(err), err)},
			},
		}, nil, nil
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encode result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}, nil, nil
}

func (t *tools) nodeCreate(ctx context.Context, req *mcp.CallToolRequest, args nodeCreateArgs) (*mcp.CallToolResult, any, error) {
	slog.Debug("node_create called", "type", args.Type, "parent", args.ParentID)
	return result(t.a.createNode(hierarchy.NodeType(args.Type), args.Name, args.ParentID))
}

func (t *tools) nodeGet(ctx context.Context, req *mcp.CallToolRequest, args idArgs) (*mcp.CallToolResult, any, error) {
	return result(t.a.describeNode(args.ID))
}

func (t *tools) nodeChildren(ctx context.Context, req *mcp.CallToolRequest, args childrenArgs) (*mcp.CallToolResult, any, error) {
	depth := args.Depth
	if depth == 0 {
		depth = 1
	}
	nodes, err := t.a.store.Children(args.ID, depth)
	if nodes == nil {
		nodes = []hierarchy.Node{}
	}
	return result(nodes, err)
}

func (t *tools) nodeDescendants(ctx context.Context, req *mcp.CallToolRequest, args idArgs) (*mcp.CallToolResult, any, error) {
	rels, err := t.a.store.Descendants(args.ID)
	if rels == nil {
		rels = []hierarchy.Relative{}
	}
	return result(rels, err)
}

func (t *tools) nodeAncestors(ctx context.Context, req *mcp.CallToolRequest, args idArgs) (*mcp.CallToolResult, any, error) {
	rels, err := t.a.store.Ancestors(args.ID)
	if rels == nil {
		rels = []hierarchy.Relative{}
	}
	return result(rels, err)
}

func (t *tools) nodeRename(ctx context.Context, req *mcp.CallToolRequest, args renameArgs) (*mcp.CallToolResult, any, error) {
	n, err := t.a.store.RenameNode(args.ID, args.Name)
	if err == nil && n == nil {
		err = fmt.Errorf("node %q: %w", args.ID, hierarchy.ErrNotFound)
	}
	return result(n, err)
}

func (t *tools) nodeDelete(ctx context.Context, req *mcp.CallToolRequest, args idArgs) (*mcp.CallToolResult, any, error) {
	count, err := t.a.store.DeleteNodeAndDescendants(args.ID)
	return result(map[string]int{"deleted": count}, err)
}

func (t *tools) noteCreate(ctx context.Context, req *mcp.CallToolRequest, args noteCreateArgs) (*mcp.CallToolResult, any, error) {
	return result(t.a.store.CreateNote(args.NodeID, args.Content, args.Tags))
}

func (t *tools) noteList(ctx context.Context, req *mcp.CallToolRequest, args noteListArgs) (*mcp.CallToolResult, any, error) {
	var notes []hierarchy.Note
	var err error
	if args.NodeID == "" {
		notes, err = t.a.store.AllNotes()
	} else {
		notes, err = t.a.store.NotesFor(args.NodeID)
	}
	if notes == nil {
		notes = []hierarchy.Note{}
	}
	return result(notes, err)
}

func (t *tools) noteUpdate(ctx context.Context, req *mcp.CallToolRequest, args noteUpdateArgs) (*mcp.CallToolResult, any, error) {
	n, err := t.a.store.UpdateNote(args.ID, args.Content, args.Tags)
	if err == nil && n == nil {
		err = fmt.Errorf("note %q: %w", args.ID, hierarchy.ErrNotFound)
	}
	return result(n, err)
}

func (t *tools) noteDelete(ctx context.Context, req *mcp.CallToolRequest, args idArgs) (*mcp.CallToolResult, any, error) {
	err := t.a.store.DeleteNote(args.ID)
	return result(map[string]string{"deleted": args.ID}, err)
}

func (t *tools) tree(ctx context.Context, req *mcp.CallToolRequest, args treeArgs) (*mcp.CallToolResult, any, error) {
	root := hierarchy.NodeType(args.Root)
	if root == "" {
		root = t.a.levels.Root()
	}
	return result(tree.Build(t.a.store, tree.Options{RootType: root, WithNotes: args.Notes}))
}

func (t *tools) verify(ctx context.Context, req *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	v, err := t.a.store.Verify()
	if v == nil {
		v = []hierarchy.Violation{}
	}
	return result(v, err)
}

func (t *tools) logTail(ctx context.Context, req *mcp.CallToolRequest, args logTailArgs) (*mcp.CallToolResult, any, error) {
	return result(t.logs.Lines(args.Lines), nil)
}
