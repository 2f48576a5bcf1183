package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os/exec"
)

// runProcess runs name with args under cfg's timeout (if set), returning
// stdout, stderr, and the exit code. A process that could not even start
// reports that failure via the error return instead of an exit code.
// Tool subprocesses inherit the parent's privileges; no sandboxing is
// performed.
func runProcess(ctx context.Context, cfg Config, name string, args ...string) (stdout, stderr string, exitCode int, err error) {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	runErr := cmd.Run()
	stdout = outBuf.String()
	stderr = errBuf.String()

	if runErr == nil {
		return stdout, stderr, 0, nil
	}
	if exitErr, ok := runErr.(*exec.ExitError); ok {
		return stdout, stderr, exitErr.ExitCode(), nil
	}
	slog.Warn("tool: subprocess failed to start", "command", name, "error", runErr)
	return stdout, stderr, -1, runErr
}

func handleBashExec(ctx context.Context, args map[string]string, cfg Config) (Invocation, error) {
	command, err := requireArg(args, "command")
	if err != nil {
		return Invocation{}, err
	}
	stdout, stderr, exitCode, runErr := runProcess(ctx, cfg, cfg.shell(), "-c", command)
	if runErr != nil {
		return Invocation{Success: false, ErrorMessage: runErr.Error()}, nil
	}
	return Invocation{Success: exitCode == 0, Stdout: stdout, Stderr: stderr, ErrorMessage: exitCodeMessage(exitCode)}, nil
}

func handleGitStatus(ctx context.Context, _ map[string]string, cfg Config) (Invocation, error) {
	return runGitArgs(ctx, cfg, "status", "--porcelain")
}

func handleGitDiff(ctx context.Context, args map[string]string, cfg Config) (Invocation, error) {
	gitArgs := []string{"diff"}
	if path := args["path"]; path != "" {
		gitArgs = append(gitArgs, "--", path)
	}
	return runGitArgs(ctx, cfg, gitArgs...)
}

func handleGitLog(ctx context.Context, args map[string]string, cfg Config) (Invocation, error) {
	gitArgs := []string{"log", "--oneline", "-n", "20"}
	if path := args["path"]; path != "" {
		gitArgs = append(gitArgs, "--", path)
	}
	return runGitArgs(ctx, cfg, gitArgs...)
}

func runGitArgs(ctx context.Context, cfg Config, gitArgs ...string) (Invocation, error) {
	stdout, stderr, exitCode, err := runProcess(ctx, cfg, "git", gitArgs...)
	if err != nil {
		return Invocation{Success: false, ErrorMessage: err.Error()}, nil
	}
	return Invocation{Success: exitCode == 0, Stdout: stdout, Stderr: stderr, ErrorMessage: exitCodeMessage(exitCode)}, nil
}

func handleSplicePatch(ctx context.Context, args map[string]string, cfg Config) (Invocation, error) {
	path, err := requireArg(args, "path")
	if err != nil {
		return Invocation{}, err
	}
	patch, err := requireArg(args, "patch")
	if err != nil {
		return Invocation{}, err
	}
	stdout, stderr, exitCode, runErr := runProcess(ctx, cfg, cfg.spliceBinary(), "patch", "--path", path, "--patch", patch)
	if runErr != nil {
		return Invocation{Success: false, AffectedPath: path, ErrorMessage: runErr.Error()}, nil
	}
	return Invocation{Success: exitCode == 0, AffectedPath: path, Stdout: stdout, Stderr: stderr, ErrorMessage: exitCodeMessage(exitCode)}, nil
}

func handleSplicePlan(ctx context.Context, args map[string]string, cfg Config) (Invocation, error) {
	planJSON, err := requireArg(args, "plan")
	if err != nil {
		return Invocation{}, err
	}
	stdout, stderr, exitCode, runErr := runProcess(ctx, cfg, cfg.spliceBinary(), "plan", "--plan", planJSON)
	if runErr != nil {
		return Invocation{Success: false, ErrorMessage: runErr.Error()}, nil
	}
	return Invocation{Success: exitCode == 0, Stdout: stdout, Stderr: stderr, ErrorMessage: exitCodeMessage(exitCode)}, nil
}

func handleLSPCheck(ctx context.Context, args map[string]string, cfg Config) (Invocation, error) {
	path, err := requireArg(args, "path")
	if err != nil {
		return Invocation{}, err
	}
	stdout, stderr, exitCode, runErr := runProcess(ctx, cfg, cfg.lspCommand(), "check", path)
	if runErr != nil {
		return Invocation{Success: false, AffectedPath: path, ErrorMessage: runErr.Error()}, nil
	}

	var diags []Diagnostic
	if stdout != "" {
		_ = json.Unmarshal([]byte(stdout), &diags) // best-effort; unparseable output yields no structured diagnostics
	}

	return Invocation{
		Success:      exitCode == 0,
		AffectedPath: path,
		Stdout:       stdout,
		Stderr:       stderr,
		ErrorMessage: exitCodeMessage(exitCode),
		Diagnostics:  diags,
	}, nil
}

func exitCodeMessage(exitCode int) string {
	if exitCode == 0 {
		return ""
	}
	return "process exited with non-zero status"
}
