package planexec

import (
	"context"
	"os"
	"path/filepath"

	"github.com/oldnordic/odincode/pkg/plan"
	"github.com/oldnordic/odincode/pkg/store/graphstore"
)

// evaluatePrecondition performs the runtime check bound to step.Precondition
// immediately before tool dispatch. Root-relative preconditions resolve
// against cfg.Root.
func evaluatePrecondition(ctx context.Context, step plan.Step, cfg Config) (bool, string) {
	switch step.Precondition {
	case plan.PreconditionNone:
		return true, ""

	case plan.PreconditionFileExists:
		path := step.Arguments["path"]
		if path == "" {
			return false, "precondition file exists: step has no path argument"
		}
		if _, err := os.Stat(path); err != nil {
			return false, "precondition file exists: " + err.Error()
		}
		return true, ""

	case plan.PreconditionRootExists:
		if _, err := os.Stat(cfg.Root); err != nil {
			return false, "precondition root exists: " + err.Error()
		}
		return true, ""

	case plan.PreconditionCargoWorkspace:
		cargoToml := filepath.Join(cfg.Root, "Cargo.toml")
		if _, err := os.Stat(cargoToml); err != nil {
			return false, "precondition cargo workspace: " + err.Error()
		}
		return true, ""

	case plan.PreconditionCodegraphPresent:
		codegraphPath := filepath.Join(cfg.Root, "codegraph.db")
		if _, err := os.Stat(codegraphPath); err != nil {
			return false, "precondition codegraph.db present: " + err.Error()
		}
		return true, ""

	case plan.PreconditionSymbolExists:
		symbolName := step.Arguments["symbol_name"]
		if symbolName == "" {
			return false, "precondition symbol exists: step has no symbol_name argument"
		}
		if cfg.Graph == nil {
			return false, "precondition symbol exists: graph store unavailable"
		}
		if _, err := cfg.Graph.ResolveEntity(ctx, symbolName, nil); err != nil {
			return false, "precondition symbol exists: " + errString(err)
		}
		return true, ""

	default:
		return false, "unknown precondition " + string(step.Precondition)
	}
}

func errString(err error) string {
	if err == graphstore.ErrNotFound {
		return "symbol not found"
	}
	return err.Error()
}
