package tool

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

func handleWC(_ context.Context, args map[string]string, _ Config) (Invocation, error) {
	path, err := requireArg(args, "path")
	if err != nil {
		return Invocation{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return Invocation{Success: false, AffectedPath: path, ErrorMessage: err.Error()}, nil
	}
	defer f.Close()

	var lines, words, bytesCount int
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		lines++
		bytesCount += len(line) + 1
		words += len(strings.Fields(line))
	}
	if err := scanner.Err(); err != nil {
		return Invocation{Success: false, AffectedPath: path, ErrorMessage: err.Error()}, nil
	}

	return Invocation{
		Success:      true,
		AffectedPath: path,
		Stdout:       fmt.Sprintf("%d %d %d %s", lines, words, bytesCount, path),
	}, nil
}

func handleDisplayText(_ context.Context, args map[string]string, _ Config) (Invocation, error) {
	text, err := requireArg(args, "text")
	if err != nil {
		return Invocation{}, err
	}
	return Invocation{Success: true, Stdout: text}, nil
}

// handleMemoryQuery is the introspection tool's binding onto the evidence
// queries. args["query"] selects
// one of the named evidence queries by tag; the remaining args are the query's own parameters,
// carried as strings since tool arguments are a flat string map.
func handleMemoryQuery(ctx context.Context, args map[string]string, cfg Config) (Invocation, error) {
	query, err := requireArg(args, "query")
	if err != nil {
		return Invocation{}, err
	}
	if cfg.Evidence == nil {
		return Invocation{Success: false, ErrorMessage: "evidence queries unavailable"}, nil
	}

	var (
		result any
		qErr   error
	)
	switch strings.ToUpper(query) {
	case "Q1":
		result, qErr = cfg.Evidence.Q1(ctx, args["tool_name"], parseInt64(args["since"]), parseInt64OrMax(args["until"]), parseIntOrDefault(args["limit"], 50))
	case "Q2":
		result, qErr = cfg.Evidence.Q2(ctx, args["tool_name"], parseInt64(args["since"]), parseIntOrDefault(args["limit"], 50))
	case "Q3":
		result, qErr = cfg.Evidence.Q3(ctx, args["diagnostic_code"], parseIntOrDefault(args["limit"], 50))
	case "Q4":
		result, qErr = cfg.Evidence.Q4(ctx, args["file_path"], parseInt64(args["since"]), parseIntOrDefault(args["limit"], 50))
	case "Q5":
		result, qErr = cfg.Evidence.Q5(ctx, args["execution_id"])
	case "Q6":
		result, qErr = cfg.Evidence.Q6(ctx, args["file_path"])
	case "Q7":
		result, qErr = cfg.Evidence.Q7(ctx, parseIntOrDefault(args["threshold"], 2), parseInt64(args["since"]))
	case "Q8":
		var file *string
		if f := args["file_path"]; f != "" {
			file = &f
		}
		result, qErr = cfg.Evidence.Q8(ctx, args["diagnostic_code"], file, parseInt64(args["since"]))
	default:
		return Invocation{Success: false, ErrorMessage: fmt.Sprintf("unknown query %q", query)}, nil
	}
	if qErr != nil {
		return Invocation{Success: false, ErrorMessage: qErr.Error()}, nil
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return Invocation{Success: false, ErrorMessage: err.Error()}, nil
	}
	return Invocation{Success: true, Stdout: string(payload)}, nil
}

// handleExecutionSummary is a digest tool over recent activity: counts of
// executions per tool name, broken out by success/failure, since an
// optional timestamp. It is a supplemented feature, not one of Q1-Q8 —
// it exists to give chat a cheap self-orientation primitive without
// spelling out a full evidence query.
func handleExecutionSummary(ctx context.Context, args map[string]string, cfg Config) (Invocation, error) {
	if cfg.Evidence == nil {
		return Invocation{Success: false, ErrorMessage: "evidence queries unavailable"}, nil
	}
	since := parseInt64(args["since"])

	type toolCount struct {
		ToolName string `json:"tool_name"`
		Success  int    `json:"success"`
		Failure  int    `json:"failure"`
	}
	counts := map[string]*toolCount{}

	toolNames := strings.Split(args["tools"], ",")
	if args["tools"] == "" {
		toolNames = nil
	}

	addCounts := func(tool string) error {
		rows, err := cfg.Evidence.Q1(ctx, tool, since, parseInt64OrMax(""), 10_000)
		if err != nil {
			return err
		}
		c, ok := counts[tool]
		if !ok {
			c = &toolCount{ToolName: tool}
			counts[tool] = c
		}
		for _, r := range rows {
			if r.Success {
				c.Success++
			} else {
				c.Failure++
			}
		}
		return nil
	}

	for _, t := range toolNames {
		if t == "" {
			continue
		}
		if err := addCounts(t); err != nil {
			return Invocation{Success: false, ErrorMessage: err.Error()}, nil
		}
	}

	var out []toolCount
	for _, c := range counts {
		out = append(out, *c)
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return Invocation{Success: false, ErrorMessage: err.Error()}, nil
	}
	return Invocation{Success: true, Stdout: string(payload)}, nil
}

func parseInt64(s string) int64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseInt64OrMax(s string) int64 {
	if s == "" {
		return 9_223_372_036_854_775_807
	}
	return parseInt64(s)
}

func parseIntOrDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
