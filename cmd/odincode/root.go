package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/oldnordic/odincode/pkg/config"
	"github.com/oldnordic/odincode/pkg/evidence"
	"github.com/oldnordic/odincode/pkg/llmadapter"
	"github.com/oldnordic/odincode/pkg/memory"
	"github.com/oldnordic/odincode/pkg/tool"
	"github.com/oldnordic/odincode/pkg/version"
)

var rootDirFlag string

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "odincode",
		Short:         "OdinCode — an evidence-based coding assistant core",
		Version:       version.Full(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&rootDirFlag, "root-dir", ".", "root directory holding config.toml, execution_log.db, codegraph.db")

	cmd.AddCommand(chatCmd())
	cmd.AddCommand(planCmd())
	cmd.AddCommand(evidenceCmd())
	return cmd
}

// bootstrap loads configuration for every subcommand except --help and
// --version, which bypass it entirely: every other subcommand's RunE
// calls this first. It loads config.toml, running the interactive preflight wizard
// (RunPreflight) exactly when loading fails with ErrConfigMissing or
// ErrConfigInvalid, then opens the execution memory and evidence layers
// against the resolved root directory.
type bootstrapped struct {
	cfg      *config.Config
	mem      *memory.Memory
	evidence *evidence.Evidence
	toolCfg  tool.Config
}

func bootstrap(ctx context.Context) (*bootstrapped, error) {
	log.Printf("Starting OdinCode %s", version.Full())
	log.Printf("Root directory: %s", rootDirFlag)

	cfg, err := config.Initialize(ctx, rootDirFlag)
	if err != nil {
		if errors.Is(err, config.ErrConfigMissing) || errors.Is(err, config.ErrConfigInvalid) {
			log.Printf("config.toml missing or invalid under %s, starting preflight", rootDirFlag)
			cfg, err = config.RunPreflight(os.Stdin, os.Stdout, rootDirFlag)
		}
		if err != nil {
			return nil, fmt.Errorf("configuration: %w", err)
		}
	}

	mem, err := memory.Open(ctx, cfg.RootDir())
	if err != nil {
		return nil, fmt.Errorf("execution memory: %w", err)
	}

	ev := evidence.New(mem)
	toolCfg := tool.Config{Root: cfg.RootDir(), Graph: mem.Graph(), Evidence: ev}

	slog.Info("odincode bootstrapped", "root_dir", cfg.RootDir(), "lm_mode", cfg.LM().Mode)
	return &bootstrapped{cfg: cfg, mem: mem, evidence: ev, toolCfg: toolCfg}, nil
}

// buildAdapter constructs the configured LM adapter from cfg.LM(), one
// of the three LM modes (disabled, local, external). Disabled is
// returned for the zero mode value too, so a chat session started
// against a disabled configuration
// fails fast and distinctively (llmadapter.ErrDisabled) rather than nil
// panicking.
func buildAdapter(lm config.LMConfig) (llmadapter.Adapter, error) {
	switch lm.Mode {
	case config.LMModeExternal:
		apiKey, err := lm.ResolveAPIKey()
		if err != nil {
			return nil, err
		}
		return llmadapter.NewAnthropic(llmadapter.AnthropicConfig{APIKey: apiKey, Model: lm.Model, BaseURL: lm.BaseURL}), nil
	case config.LMModeLocal:
		apiKey, err := lm.ResolveAPIKey()
		if err != nil {
			return nil, err
		}
		return llmadapter.NewLocalOpenAI(llmadapter.LocalOpenAIConfig{BaseURL: lm.BaseURL, APIKey: apiKey, Model: lm.Model}), nil
	default:
		return &llmadapter.Disabled{}, nil
	}
}
