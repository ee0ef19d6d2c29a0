package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-git/gcfg/v2"
)

// Config is the resolved configuration, after defaults.
type Config struct {
	DBPath   string
	Levels   []string
	Enforce  bool
	LogLevel string
	LogFile  string
}

// parseConfig reads a git-config style file into a flat map of
// "section.key" (or "section.subsection.key") to values, in file order.
// [include] path = ... pulls in another file at that point; relative paths
// resolve against the including file. Missing includes are skipped.
func parseConfig(path string, seen map[string]bool) (map[string][]string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if seen == nil {
		seen = make(map[string]bool)
	}
	if seen[abs] {
		slog.Debug("config include cycle, skipping", "path", abs)
		return map[string][]string{}, nil
	}
	seen[abs] = true

	f, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m := make(map[string][]string)
	cb := func(section, subsection, key, value string, blank bool) error {
		if key == "" {
			return nil
		}
		section = strings.ToLower(section)
		key = strings.ToLower(key)

		if section == "include" && subsection == "" && key == "path" {
			inc := expandHome(value)
			if !filepath.IsAbs(inc) {
				inc = filepath.Join(filepath.Dir(abs), inc)
			}
			sub, err := parseConfig(inc, seen)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					slog.Debug("config include not found", "path", inc)
					return nil
				}
				return fmt.Errorf("include %s: %w", inc, err)
			}
			for k, vs := range sub {
				m[k] = append(m[k], vs...)
			}
			return nil
		}

		name := section + "." + key
		if subsection != "" {
			name = section + "." + subsection + "." + key
		}
		if blank {
			value = "true"
		}
		m[name] = append(m[name], value)
		return nil
	}

	if err := gcfg.ReadWithCallback(f, cb); err != nil {
		return nil, fmt.Errorf("parse %s: %w", abs, err)
	}
	return m, nil
}

// lastValue returns the last value set for key, or "".
func lastValue(m map[string][]string, key string) string {
	vs := m[key]
	if len(vs) == 0 {
		return ""
	}
	return vs[len(vs)-1]
}

// listKeys are replaced as a whole by a later file instead of extended.
var listKeys = map[string]bool{"hierarchy.level": true}

// mergeConfig layers src over dst.
func mergeConfig(dst, src map[string][]string) {
	for k, vs := range src {
		if listKeys[k] {
			dst[k] = append([]string(nil), vs...)
			continue
		}
		dst[k] = append(dst[k], vs...)
	}
}

// hydrateConfig applies defaults to a parsed config map.
func hydrateConfig(m map[string][]string) *Config {
	cfg := &Config{
		DBPath:   expandHome(lastValue(m, "storage.path")),
		LogLevel: strings.ToLower(lastValue(m, "log.level")),
		LogFile:  expandHome(lastValue(m, "log.file")),
		Enforce:  true,
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath()
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	// One level per line, or several separated by commas.
	for _, v := range m["hierarchy.level"] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				cfg.Levels = append(cfg.Levels, part)
			}
		}
	}

	if v := lastValue(m, "hierarchy.enforce"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("invalid hierarchy.enforce, keeping default", "value", v)
		} else {
			cfg.Enforce = b
		}
	}
	return cfg
}

// loadConfig reads the user config, then the project config, then
// explicit (if given). Missing files are skipped; later files win.
func loadConfig(explicit string) (*Config, error) {
	m := make(map[string][]string)

	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "carenotes", "config"))
	}
	paths = append(paths, filepath.Join(".carenotes", "config"))

	for _, p := range paths {
		sub, err := parseConfig(p, nil)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		mergeConfig(m, sub)
	}

	if explicit != "" {
		sub, err := parseConfig(explicit, nil)
		if err != nil {
			return nil, err
		}
		mergeConfig(m, sub)
	}

	return hydrateConfig(m), nil
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "carenotes.db"
	}
	return filepath.Join(home, ".local", "state", "carenotes", "carenotes.db")
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
