package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/lthms/carenotes/internal/hierarchy"
	"github.com/lthms/carenotes/internal/tree"
)

var (
	nameStyle = lipgloss.NewStyle().Bold(true)
	typeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#89b4fa"))
	idStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6c7086"))
	noteStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1"))
	tagStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f9e2af"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8"))
)

// renderOptions controls text output.
type renderOptions struct {
	color bool
	width int // 0 = no truncation
	ids   bool
}

func (o renderOptions) style(s lipgloss.Style, text string) string {
	if !o.color {
		return text
	}
	return s.Render(text)
}

func (a *app) renderOpts(ids bool) renderOptions {
	return renderOptions{color: a.color, width: a.width, ids: ids}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// writeFormat encodes v as json or yaml.
func writeFormat(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		return writeJSON(w, v)
	case "yaml":
		return writeYAML(w, v)
	default:
		return fmt.Errorf("%w: unknown format %q", hierarchy.ErrValidation, format)
	}
}

// nodeLine formats "name (type) id".
func nodeLine(n hierarchy.Node, o renderOptions) string {
	s := o.style(nameStyle, n.Name) + " " + o.style(typeStyle, "("+string(n.Type)+")")
	if o.ids {
		s += " " + o.style(idStyle, n.ID)
	}
	return s
}

// noteLine formats the first line of a note's content and its tags.
func noteLine(n hierarchy.Note, o renderOptions) string {
	content, _, _ := strings.Cut(n.Content, "\n")
	s := o.style(noteStyle, "✎ "+content)
	for _, t := range n.Tags {
		s += " " + o.style(tagStyle, "#"+t)
	}
	if o.ids {
		s += " " + o.style(idStyle, n.ID)
	}
	return s
}

// renderTree draws the forest with box-drawing connectors. A branch's notes
// are listed before its children.
func renderTree(w io.Writer, t *tree.Tree, o renderOptions) {
	var visit func(b *tree.Branch, prefix string)
	visit = func(b *tree.Branch, prefix string) {
		total := len(b.Notes) + len(b.Children)
		i := 0
		for _, n := range b.Notes {
			i++
			writeLine(w, prefix+connector(i == total)+noteLine(n, o), o.width)
		}
		for _, c := range b.Children {
			i++
			last := i == total
			writeLine(w, prefix+connector(last)+nodeLine(c.Node, o), o.width)
			visit(c, prefix+indent(last))
		}
	}

	for _, r := range t.Roots {
		writeLine(w, nodeLine(r.Node, o), o.width)
		visit(r, "")
	}

	if len(t.Unplaced) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, o.style(warnStyle, "unplaced notes:"))
		for _, n := range t.Unplaced {
			writeLine(w, "  "+noteLine(n, o)+" "+o.style(idStyle, "→ "+n.AttachedToID), o.width)
		}
	}
}

func connector(last bool) string {
	if last {
		return "└── "
	}
	return "├── "
}

func indent(last bool) string {
	if last {
		return "    "
	}
	return "│   "
}

// writeLine prints s, cut to width visible cells when width > 0.
func writeLine(w io.Writer, s string, width int) {
	if width > 0 && lipgloss.Width(s) > width {
		s = lipgloss.NewStyle().MaxWidth(width).Render(s)
	}
	fmt.Fprintln(w, s)
}

// renderNodes prints one node per line.
func renderNodes(w io.Writer, nodes []hierarchy.Node, o renderOptions) {
	o.ids = true
	for _, n := range nodes {
		writeLine(w, nodeLine(n, o), o.width)
	}
}

func renderRelatives(w io.Writer, rels []hierarchy.Relative, o renderOptions) {
	o.ids = true
	for _, r := range rels {
		writeLine(w, fmt.Sprintf("%d  %s", r.Depth, nodeLine(r.Node, o)), o.width)
	}
}

func renderNodeDetail(w io.Writer, d *nodeDetail, o renderOptions) {
	fmt.Fprintf(w, "%s\n", nodeLine(d.Node, o))
	fmt.Fprintf(w, "  id:          %s\n", d.ID)
	if d.ParentID != "" {
		fmt.Fprintf(w, "  parent:      %s\n", d.ParentID)
	}
	fmt.Fprintf(w, "  children:    %d\n", d.Children)
	fmt.Fprintf(w, "  descendants: %d\n", d.Descendants)
	fmt.Fprintf(w, "  notes:       %d\n", d.Notes)
	fmt.Fprintf(w, "  created:     %s\n", d.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "  updated:     %s\n", d.UpdatedAt.Format(time.RFC3339))
}

func renderNote(w io.Writer, n *hierarchy.Note, o renderOptions) {
	fmt.Fprintf(w, "%s %s\n", o.style(idStyle, n.ID), o.style(typeStyle, fmt.Sprintf("(%s %s)", n.AttachedToType, n.AttachedToID)))
	if len(n.Tags) > 0 {
		tags := make([]string, len(n.Tags))
		for i, t := range n.Tags {
			tags[i] = o.style(tagStyle, "#"+t)
		}
		fmt.Fprintln(w, strings.Join(tags, " "))
	}
	fmt.Fprintln(w, n.Content)
}

func renderNotes(w io.Writer, notes []hierarchy.Note, o renderOptions) {
	o.ids = true
	for _, n := range notes {
		writeLine(w, noteLine(n, o), o.width)
	}
}

func renderViolations(w io.Writer, v []hierarchy.Violation, o renderOptions) {
	if len(v) == 0 {
		fmt.Fprintln(w, "ok")
		return
	}
	for _, x := range v {
		fmt.Fprintf(w, "%s %s: %s\n", o.style(warnStyle, x.Check), x.Subject, x.Detail)
	}
}
