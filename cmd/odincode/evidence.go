package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

// evidenceCmd runs evidence-query mode: each deterministic read-only
// query is its own subcommand so argument shapes stay distinct (the
// queries take different parameter sets), printing results as indented
// JSON to stdout — the CLI is a thin dispatcher, never a formatter of
// its own.
func evidenceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evidence",
		Short: "Run a deterministic read-only evidence query (Q1-Q8)",
	}
	cmd.AddCommand(q1Cmd(), q2Cmd(), q3Cmd(), q4Cmd(), q5Cmd(), q6Cmd(), q7Cmd(), q8Cmd(), staleSessionsCmd())
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func q1Cmd() *cobra.Command {
	var toolName string
	var since, until int64
	var limit int
	cmd := &cobra.Command{
		Use:   "q1",
		Short: "Executions of a tool in a time range",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer b.mem.Close()
			rows, err := b.evidence.Q1(cmd.Context(), toolName, since, until, limit)
			if err != nil {
				return err
			}
			return printJSON(rows)
		},
	}
	cmd.Flags().StringVar(&toolName, "tool", "", "tool name")
	cmd.Flags().Int64Var(&since, "since", 0, "inclusive lower bound, epoch ms")
	cmd.Flags().Int64Var(&until, "until", 0, "inclusive upper bound, epoch ms (0 = no bound)")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum rows")
	return cmd
}

func q2Cmd() *cobra.Command {
	var toolName string
	var since int64
	var limit int
	cmd := &cobra.Command{
		Use:   "q2",
		Short: "Failed executions of a tool, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer b.mem.Close()
			rows, err := b.evidence.Q2(cmd.Context(), toolName, since, limit)
			if err != nil {
				return err
			}
			return printJSON(rows)
		},
	}
	cmd.Flags().StringVar(&toolName, "tool", "", "tool name")
	cmd.Flags().Int64Var(&since, "since", 0, "inclusive lower bound, epoch ms")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum rows")
	return cmd
}

func q3Cmd() *cobra.Command {
	var code string
	var limit int
	cmd := &cobra.Command{
		Use:   "q3",
		Short: "Executions that produced a diagnostic code",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer b.mem.Close()
			rows, err := b.evidence.Q3(cmd.Context(), code, limit)
			if err != nil {
				return err
			}
			return printJSON(rows)
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "diagnostic code")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum rows")
	return cmd
}

func q4Cmd() *cobra.Command {
	var path string
	var since int64
	var limit int
	cmd := &cobra.Command{
		Use:   "q4",
		Short: "Executions touching a file (graph path, else argument fallback)",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer b.mem.Close()
			rows, err := b.evidence.Q4(cmd.Context(), path, since, limit)
			if err != nil {
				return err
			}
			return printJSON(rows)
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "file path")
	cmd.Flags().Int64Var(&since, "since", 0, "inclusive lower bound, epoch ms")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum rows")
	return cmd
}

func q5Cmd() *cobra.Command {
	var executionID string
	cmd := &cobra.Command{
		Use:   "q5",
		Short: "Full record for one execution id: fields, artifacts, graph links",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer b.mem.Close()
			row, err := b.evidence.Q5(cmd.Context(), executionID)
			if err != nil {
				return err
			}
			return printJSON(row)
		},
	}
	cmd.Flags().StringVar(&executionID, "execution-id", "", "execution id")
	return cmd
}

func q6Cmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "q6",
		Short: "Most recent outcome for a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer b.mem.Close()
			row, err := b.evidence.Q6(cmd.Context(), path)
			if err != nil {
				return err
			}
			return printJSON(row)
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "file path")
	return cmd
}

func q7Cmd() *cobra.Command {
	var threshold int
	var since int64
	cmd := &cobra.Command{
		Use:   "q7",
		Short: "Diagnostics recurring at or above a threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer b.mem.Close()
			rows, err := b.evidence.Q7(cmd.Context(), threshold, since)
			if err != nil {
				return err
			}
			return printJSON(rows)
		},
	}
	cmd.Flags().IntVar(&threshold, "threshold", 2, "minimum recurrence count")
	cmd.Flags().Int64Var(&since, "since", 0, "inclusive lower bound, epoch ms")
	return cmd
}

func q8Cmd() *cobra.Command {
	var code, path string
	var since int64
	cmd := &cobra.Command{
		Use:   "q8",
		Short: "Mutation executions temporally adjacent to each occurrence of a diagnostic code",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer b.mem.Close()
			var filePtr *string
			if path != "" {
				filePtr = &path
			}
			rows, err := b.evidence.Q8(cmd.Context(), code, filePtr, since)
			if err != nil {
				return err
			}
			return printJSON(rows)
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "diagnostic code")
	cmd.Flags().StringVar(&path, "path", "", "optional file path scope")
	cmd.Flags().Int64Var(&since, "since", 0, "inclusive lower bound, epoch ms")
	return cmd
}

// staleSessionsCmd supplements Q1-Q8 with the chat-session orphan/staleness
// observability query described in SPEC_FULL.md's supplemented features.
func staleSessionsCmd() *cobra.Command {
	var cutoff int64
	cmd := &cobra.Command{
		Use:   "stale-sessions",
		Short: "Chat sessions with no interaction at or before a cutoff timestamp",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer b.mem.Close()
			rows, err := b.evidence.StaleSessions(cmd.Context(), cutoff)
			if err != nil {
				return err
			}
			return printJSON(rows)
		},
	}
	cmd.Flags().Int64Var(&cutoff, "cutoff", 0, "sessions at or before this epoch-ms timestamp are stale")
	return cmd
}
