package main

import (
	"fmt"

	"github.com/lthms/carenotes/internal/hierarchy"
)

// NodeCmd groups the node subcommands.
type NodeCmd struct {
	Add         NodeAddCmd         `cmd:"" help:"Create a node."`
	Show        NodeShowCmd        `cmd:"" help:"Show a node and its counts."`
	Rename      NodeRenameCmd      `cmd:"" help:"Rename a node."`
	Rm          NodeRmCmd          `cmd:"" help:"Delete a node, its descendants and all their notes."`
	Children    NodeChildrenCmd    `cmd:"" help:"List nodes a given depth below a node."`
	Descendants NodeDescendantsCmd `cmd:"" help:"List every node below a node."`
	Ancestors   NodeAncestorsCmd   `cmd:"" help:"List every node above a node, nearest first."`
	Parent      NodeParentCmd      `cmd:"" help:"Show a node's parent."`
	Ls          NodeLsCmd          `cmd:"" help:"List nodes of one type."`
}

type NodeAddCmd struct {
	Type   string `arg:"" help:"Node type (organisation, team, client, episode)."`
	Name   string `arg:"" help:"Display name."`
	Parent string `short:"p" help:"Parent node id. Omit for a root."`
}

func (cmd *NodeAddCmd) Run(a *app) error {
	n, err := a.createNode(hierarchy.NodeType(cmd.Type), cmd.Name, cmd.Parent)
	if err != nil {
		return err
	}
	if a.json {
		return writeJSON(a.out, n)
	}
	fmt.Fprintln(a.out, n.ID)
	return nil
}

type NodeShowCmd struct {
	ID string `arg:""`
}

func (cmd *NodeShowCmd) Run(a *app) error {
	d, err := a.describeNode(cmd.ID)
	if err != nil {
		return err
	}
	if a.json {
		return writeJSON(a.out, d)
	}
	renderNodeDetail(a.out, d, a.renderOpts(false))
	return nil
}

type NodeRenameCmd struct {
	ID   string `arg:""`
	Name string `arg:""`
}

func (cmd *NodeRenameCmd) Run(a *app) error {
	n, err := a.store.RenameNode(cmd.ID, cmd.Name)
	if err != nil {
		return err
	}
	if n == nil {
		return fmt.Errorf("node %q: %w", cmd.ID, hierarchy.ErrNotFound)
	}
	if a.json {
		return writeJSON(a.out, n)
	}
	renderNodes(a.out, []hierarchy.Node{*n}, a.renderOpts(true))
	return nil
}

type NodeRmCmd struct {
	ID string `arg:""`
}

func (cmd *NodeRmCmd) Run(a *app) error {
	count, err := a.store.DeleteNodeAndDescendants(cmd.ID)
	if err != nil {
		return err
	}
	if a.json {
		return writeJSON(a.out, map[string]int{"deleted": count})
	}
	fmt.Fprintf(a.out, "deleted %d node(s)\n", count)
	return nil
}

type NodeChildrenCmd struct {
	ID    string `arg:""`
	Depth int    `short:"d" default:"1" help:"Distance below the node."`
}

func (cmd *NodeChildrenCmd) Run(a *app) error {
	nodes, err := a.store.Children(cmd.ID, cmd.Depth)
	if err != nil {
		return err
	}
	return a.listNodes(nodes)
}

type NodeDescendantsCmd struct {
	ID string `arg:""`
}

func (cmd *NodeDescendantsCmd) Run(a *app) error {
	rels, err := a.store.Descendants(cmd.ID)
	if err != nil {
		return err
	}
	return a.listRelatives(rels)
}

type NodeAncestorsCmd struct {
	ID string `arg:""`
}

func (cmd *NodeAncestorsCmd) Run(a *app) error {
	rels, err := a.store.Ancestors(cmd.ID)
	if err != nil {
		return err
	}
	return a.listRelatives(rels)
}

type NodeParentCmd struct {
	ID string `arg:""`
}

func (cmd *NodeParentCmd) Run(a *app) error {
	if _, err := a.mustNode(cmd.ID); err != nil {
		return err
	}
	p, err := a.store.Parent(cmd.ID)
	if err != nil {
		return err
	}
	if a.json {
		return writeJSON(a.out, p)
	}
	if p == nil {
		fmt.Fprintln(a.out, "(root)")
		return nil
	}
	renderNodes(a.out, []hierarchy.Node{*p}, a.renderOpts(true))
	return nil
}

type NodeLsCmd struct {
	Type string `short:"t" help:"Node type (default: the top level)."`
}

func (cmd *NodeLsCmd) Run(a *app) error {
	typ := hierarchy.NodeType(cmd.Type)
	if typ == "" {
		typ = a.levels.Root()
	}
	nodes, err := a.store.NodesByType(typ)
	if err != nil {
		return err
	}
	return a.listNodes(nodes)
}

func (a *app) listNodes(nodes []hierarchy.Node) error {
	if a.json {
		if nodes == nil {
			nodes = []hierarchy.Node{}
		}
		return writeJSON(a.out, nodes)
	}
	renderNodes(a.out, nodes, a.renderOpts(true))
	return nil
}

func (a *app) listRelatives(rels []hierarchy.Relative) error {
	if a.json {
		if rels == nil {
			rels = []hierarchy.Relative{}
		}
		return writeJSON(a.out, rels)
	}
	renderRelatives(a.out, rels, a.renderOpts(true))
	return nil
}
