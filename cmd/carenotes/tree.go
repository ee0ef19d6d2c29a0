package main

import (
	"fmt"
	"os"

	"github.com/lthms/carenotes/internal/hierarchy"
	"github.com/lthms/carenotes/internal/seed"
	"github.com/lthms/carenotes/internal/tree"
)

type TreeCmd struct {
	Format string `short:"f" enum:"text,yaml,json" default:"text" help:"Output format (text, yaml, json)."`
	Notes  bool   `short:"n" help:"Include notes."`
	IDs    bool   `name:"ids" help:"Show ids in text output."`
	Root   string `help:"Type of the top-level nodes (default: the top level)."`
}

func (cmd *TreeCmd) Run(a *app) error {
	root := hierarchy.NodeType(cmd.Root)
	if root == "" {
		root = a.levels.Root()
	}
	t, err := tree.Build(a.store, tree.Options{RootType: root, WithNotes: cmd.Notes})
	if err != nil {
		return err
	}

	format := cmd.Format
	if a.json {
		format = "json"
	}
	if format == "text" {
		renderTree(a.out, t, a.renderOpts(cmd.IDs))
		return nil
	}
	return writeFormat(a.out, format, t)
}

type ExportCmd struct {
	Format string `short:"f" enum:"json,yaml" default:"json" help:"Output format (json, yaml)."`
}

func (cmd *ExportCmd) Run(a *app) error {
	doc, err := a.exportDoc()
	if err != nil {
		return err
	}
	return writeFormat(a.out, cmd.Format, doc)
}

type ImportCmd struct {
	File string `arg:"" type:"existingfile" help:"Seed document (JSON or YAML)."`
}

func (cmd *ImportCmd) Run(a *app) error {
	f, err := os.Open(cmd.File)
	if err != nil {
		return err
	}
	defer f.Close()

	doc, err := seed.Decode(f)
	if err != nil {
		return fmt.Errorf("%w: %v", hierarchy.ErrValidation, err)
	}
	res, err := seed.Import(checked{a}, doc, a.levels.Order())
	if err != nil {
		return err
	}

	if a.json {
		return writeJSON(a.out, res)
	}
	for _, l := range a.levels.Order() {
		fmt.Fprintf(a.out, "%-14s %d\n", l.Plural(), res.Nodes[l])
	}
	fmt.Fprintf(a.out, "%-14s %d\n", "notes", res.Notes)
	for _, s := range res.Skipped {
		fmt.Fprintf(a.out, "skipped %s %q: %s\n", s.Collection, s.ID, s.Reason)
	}
	return nil
}

type VerifyCmd struct{}

func (cmd *VerifyCmd) Run(a *app) error {
	v, err := a.store.Verify()
	if err != nil {
		return err
	}
	if a.json {
		if v == nil {
			v = []hierarchy.Violation{}
		}
		if err := writeJSON(a.out, v); err != nil {
			return err
		}
	} else {
		renderViolations(a.out, v, a.renderOpts(false))
	}
	if len(v) > 0 {
		return fmt.Errorf("%d %w", len(v), errIntegrity)
	}
	return nil
}
