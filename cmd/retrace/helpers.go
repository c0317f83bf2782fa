// Shared helpers for retrace CLI commands.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/graphmorph/retrace/internal/decoder"
	"github.com/graphmorph/retrace/internal/graph"
	"github.com/graphmorph/retrace/internal/replay"
	"github.com/graphmorph/retrace/internal/sqlite"
	"github.com/graphmorph/retrace/pkg/program"
)

// openSession opens a tracefile and builds a replay session over the
// given host graph. The caller must close the returned file.
func openSession(tracePath string, g *graph.Graph) (*replay.Runner, *os.File, error) {
	f, err := os.Open(tracePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open tracefile: %w", err)
	}

	dec, err := decoder.New(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	runner, err := replay.New(dec, g)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return runner, f, nil
}

// loadGraph reads a host graph from a JSON file, or returns an empty
// graph when path is empty.
func loadGraph(path string) (*graph.Graph, error) {
	g := graph.New()
	if path == "" {
		return g, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph: %w", err)
	}
	if err := g.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("parse graph: %w", err)
	}
	return g, nil
}

// loadTokens reads a lexed program token sequence from a JSON file, as
// exported by the program editor.
func loadTokens(path string) ([]*program.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read program tokens: %w", err)
	}

	var tokens []*program.Token
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("parse program tokens: %w", err)
	}
	return tokens, nil
}

// attachStore opens the trace index database under the resolved data
// directory. The caller must close the returned store.
func attachStore() (*sqlite.Store, error) {
	dataDir, err := resolveDataDir()
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}

	store := sqlite.NewStore()
	if err := store.Attach(filepath.Join(dataDir, "index.db")); err != nil {
		return nil, err
	}
	return store, nil
}

// displayName strips the configured compiler prefix from a rule or
// procedure name for output.
func displayName(name string) string {
	return strings.TrimPrefix(name, configNamePrefix)
}
