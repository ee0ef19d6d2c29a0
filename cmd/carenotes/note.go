package main

import (
	"fmt"

	"github.com/lthms/carenotes/internal/hierarchy"
)

// NoteCmd groups the note subcommands.
type NoteCmd struct {
	Add  NoteAddCmd  `cmd:"" help:"Attach a note to a node."`
	Show NoteShowCmd `cmd:"" help:"Print a note."`
	Ls   NoteLsCmd   `cmd:"" help:"List the notes attached to a node."`
	Edit NoteEditCmd `cmd:"" help:"Replace a note's content and tags."`
	Rm   NoteRmCmd   `cmd:"" help:"Delete a note."`
}

type NoteAddCmd struct {
	Node    string   `arg:"" help:"Node id."`
	Content string   `arg:""`
	Tag     []string `short:"t" help:"Tag (repeatable)."`
}

func (cmd *NoteAddCmd) Run(a *app) error {
	n, err := a.store.CreateNote(cmd.Node, cmd.Content, cmd.Tag)
	if err != nil {
		return err
	}
	if a.json {
		return writeJSON(a.out, n)
	}
	fmt.Fprintln(a.out, n.ID)
	return nil
}

type NoteShowCmd struct {
	ID string `arg:""`
}

func (cmd *NoteShowCmd) Run(a *app) error {
	n, err := a.store.Note(cmd.ID)
	if err != nil {
		return err
	}
	if n == nil {
		return fmt.Errorf("note %q: %w", cmd.ID, hierarchy.ErrNotFound)
	}
	if a.json {
		return writeJSON(a.out, n)
	}
	renderNote(a.out, n, a.renderOpts(true))
	return nil
}

type NoteLsCmd struct {
	Node string `arg:"" optional:"" help:"Node id. Omit to list every note."`
}

func (cmd *NoteLsCmd) Run(a *app) error {
	var notes []hierarchy.Note
	var err error
	if cmd.Node == "" {
		notes, err = a.store.AllNotes()
	} else {
		notes, err = a.store.NotesFor(cmd.Node)
	}
	if err != nil {
		return err
	}
	if a.json {
		if notes == nil {
			notes = []hierarchy.Note{}
		}
		return writeJSON(a.out, notes)
	}
	renderNotes(a.out, notes, a.renderOpts(true))
	return nil
}

type NoteEditCmd struct {
	ID      string   `arg:""`
	Content string   `arg:""`
	Tag     []string `short:"t" help:"Tag (repeatable). Replaces the existing tags."`
}

func (cmd *NoteEditCmd) Run(a *app) error {
	n, err := a.store.UpdateNote(cmd.ID, cmd.Content, cmd.Tag)
	if err != nil {
		return err
	}
	if n == nil {
		return fmt.Errorf("note %q: %w", cmd.ID, hierarchy.ErrNotFound)
	}
	if a.json {
		return writeJSON(a.out, n)
	}
	renderNote(a.out, n, a.renderOpts(true))
	return nil
}

type NoteRmCmd struct {
	ID string `arg:""`
}

func (cmd *NoteRmCmd) Run(a *app) error {
	if err := a.store.DeleteNote(cmd.ID); err != nil {
		return err
	}
	if a.json {
		return writeJSON(a.out, map[string]string{"deleted": cmd.ID})
	}
	fmt.Fprintln(a.out, "deleted")
	return nil
}
