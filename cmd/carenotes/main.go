package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"golang.org/x/term"

	"github.com/lthms/carenotes/internal/hierarchy"
	"github.com/lthms/carenotes/internal/policy"
)

// CLI is the top-level command structure for carenotes.
type CLI struct {
	Debug  bool   `env:"CARENOTES_DEBUG" help:"Enable debug logging."`
	DB     string `name:"db" env:"CARENOTES_DB" type:"path" help:"Path to the SQLite database (overrides storage.path)."`
	Config string `type:"path" help:"Extra config file read after the user and project files."`
	JSON   bool   `name:"json" help:"Print results as JSON."`

	Node   NodeCmd   `cmd:"" help:"Create, inspect and delete hierarchy nodes."`
	Note   NoteCmd   `cmd:"" help:"Manage notes attached to nodes."`
	Tree   TreeCmd   `cmd:"" help:"Print the whole hierarchy."`
	Export ExportCmd `cmd:"" help:"Dump all nodes and notes as flat lists."`
	Import ImportCmd `cmd:"" help:"Load a JSON or YAML seed document."`
	Verify VerifyCmd `cmd:"" help:"Check closure table integrity."`
	MCP    MCPCmd    `cmd:"" name:"mcp" help:"Serve the hierarchy over MCP (stdio)."`
}

// app carries what every command needs.
type app struct {
	store  *hierarchy.Store
	levels *policy.Levels
	cfg    *Config
	out    io.Writer
	json   bool
	color  bool
	width  int
}

func main() {
	cli := CLI{}
	parser, err := kong.New(&cli,
		kong.Name("carenotes"),
		kong.Description("Organisation, team, client and episode records with attached notes."),
		kong.UsageOnError(),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "carenotes: %v\n", err)
		os.Exit(1)
	}
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	cfg, err := loadConfig(cli.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "carenotes: config: %v\n", err)
		os.Exit(1)
	}
	if cli.DB != "" {
		cfg.DBPath = cli.DB
	}

	level := parseLevel(cfg.LogLevel, cli.Debug)
	setupLogger(level)

	a, err := openApp(cfg, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "carenotes: %v\n", err)
		os.Exit(exitCode(err))
	}
	defer a.store.Close()
	a.json = cli.JSON
	if fd := int(os.Stdout.Fd()); term.IsTerminal(fd) {
		a.color = true
		if w, _, err := term.GetSize(fd); err == nil {
			a.width = w
		}
	}

	ctx.Bind(a)
	ctx.Bind(level)
	if err := ctx.Run(); err != nil {
		a.store.Close()
		fmt.Fprintf(os.Stderr, "carenotes: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// openApp opens the store and level policy described by cfg.
func openApp(cfg *Config, out io.Writer) (*app, error) {
	levels, err := policy.New(cfg.Levels, cfg.Enforce)
	if err != nil {
		return nil, fmt.Errorf("hierarchy.level: %w", err)
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("create state dir: %w", err)
		}
	}
	store, err := hierarchy.Open(hierarchy.Config{DBPath: cfg.DBPath})
	if err != nil {
		return nil, err
	}
	slog.Debug("store opened", "path", cfg.DBPath, "levels", levels.Order(), "enforce", levels.Enforced())

	return &app{store: store, levels: levels, cfg: cfg, out: out}, nil
}

// errIntegrity is returned by verify when violations were found.
var errIntegrity = errors.New("integrity violations found")

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	switch hierarchy.Kind(err) {
	case "":
		return 0
	case "validation":
		return 2
	case "not_found":
		return 3
	default:
		return 1
	}
}
