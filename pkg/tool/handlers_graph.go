package tool

import (
	"context"
	"fmt"
	"strings"
)

// graphRow mirrors graphstore.Entity's column shape for ad-hoc SELECTs
// issued directly against the configured graph store connection — these
// three tools query shapes (by file_path, by name, by edge) that the
// graphstore package's own helpers don't generalize cleanly.
type graphRow struct {
	ID       int64
	Kind     string
	Name     string
	FilePath *string
}

func handleSymbolsInFile(ctx context.Context, args map[string]string, cfg Config) (Invocation, error) {
	filePath, err := requireArg(args, "file_path")
	if err != nil {
		return Invocation{}, err
	}
	if cfg.Graph == nil {
		return Invocation{}, ErrGraphStoreUnavailable
	}

	rows, err := cfg.Graph.DB().QueryContext(ctx, `
		SELECT id, kind, name, file_path FROM graph_entities
		WHERE kind = 'Symbol' AND file_path = ?
		ORDER BY name ASC, id ASC`, filePath)
	if err != nil {
		return Invocation{Success: false, ErrorMessage: err.Error()}, nil
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var r graphRow
		if err := rows.Scan(&r.ID, &r.Kind, &r.Name, &r.FilePath); err != nil {
			return Invocation{Success: false, ErrorMessage: err.Error()}, nil
		}
		names = append(names, r.Name)
	}
	return Invocation{Success: true, Stdout: strings.Join(names, "\n"), AffectedPath: filePath}, nil
}

func handleReferencesToSymbolName(ctx context.Context, args map[string]string, cfg Config) (Invocation, error) {
	symbolName, err := requireArg(args, "symbol_name")
	if err != nil {
		return Invocation{}, err
	}
	if cfg.Graph == nil {
		return Invocation{}, ErrGraphStoreUnavailable
	}

	symbol, err := cfg.Graph.ResolveEntity(ctx, symbolName, nil)
	if err != nil {
		return Invocation{Success: false, ErrorMessage: fmt.Sprintf("symbol %q not found", symbolName)}, nil
	}

	rows, err := cfg.Graph.DB().QueryContext(ctx, `
		SELECT e.id, e.kind, e.name, e.file_path FROM graph_edges ge
		JOIN graph_entities e ON e.id = ge.from_id
		WHERE ge.to_id = ? AND ge.edge_type = 'REFERENCES'
		ORDER BY e.name ASC, e.id ASC`, symbol.ID)
	if err != nil {
		return Invocation{Success: false, ErrorMessage: err.Error()}, nil
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var r graphRow
		if err := rows.Scan(&r.ID, &r.Kind, &r.Name, &r.FilePath); err != nil {
			return Invocation{Success: false, ErrorMessage: err.Error()}, nil
		}
		path := ""
		if r.FilePath != nil {
			path = *r.FilePath
		}
		lines = append(lines, fmt.Sprintf("%s (%s)", r.Name, path))
	}
	return Invocation{Success: true, Stdout: strings.Join(lines, "\n")}, nil
}

func handleReferencesFromFileToSymbolName(ctx context.Context, args map[string]string, cfg Config) (Invocation, error) {
	filePath, err := requireArg(args, "file_path")
	if err != nil {
		return Invocation{}, err
	}
	symbolName, err := requireArg(args, "symbol_name")
	if err != nil {
		return Invocation{}, err
	}
	if cfg.Graph == nil {
		return Invocation{}, ErrGraphStoreUnavailable
	}

	file, err := cfg.Graph.ResolveEntity(ctx, filePath, nil)
	if err != nil {
		return Invocation{Success: false, AffectedPath: filePath, ErrorMessage: fmt.Sprintf("file %q not found in graph", filePath)}, nil
	}
	symbol, err := cfg.Graph.ResolveEntity(ctx, symbolName, nil)
	if err != nil {
		return Invocation{Success: false, AffectedPath: filePath, ErrorMessage: fmt.Sprintf("symbol %q not found", symbolName)}, nil
	}

	var count int
	err = cfg.Graph.DB().QueryRowContext(ctx, `
		SELECT count(*) FROM graph_edges
		WHERE from_id = ? AND to_id = ? AND edge_type = 'REFERENCES'`, file.ID, symbol.ID).Scan(&count)
	if err != nil {
		return Invocation{Success: false, ErrorMessage: err.Error()}, nil
	}

	if count == 0 {
		return Invocation{Success: true, AffectedPath: filePath, Stdout: "no reference found"}, nil
	}
	return Invocation{Success: true, AffectedPath: filePath, Stdout: fmt.Sprintf("%s references %s", filePath, symbolName)}, nil
}
