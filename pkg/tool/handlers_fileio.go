package tool

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func handleFileRead(_ context.Context, args map[string]string, _ Config) (Invocation, error) {
	path, err := requireArg(args, "path")
	if err != nil {
		return Invocation{}, err
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		return Invocation{Success: false, AffectedPath: path, ErrorMessage: err.Error()}, nil
	}
	return Invocation{Success: true, Stdout: string(contents), AffectedPath: path}, nil
}

func handleFileWrite(_ context.Context, args map[string]string, _ Config) (Invocation, error) {
	path, err := requireArg(args, "path")
	if err != nil {
		return Invocation{}, err
	}
	contents, err := requireArg(args, "contents")
	if err != nil {
		return Invocation{}, err
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		return Invocation{Success: false, AffectedPath: path, ErrorMessage: err.Error()}, nil
	}
	return Invocation{Success: true, AffectedPath: path}, nil
}

func handleFileCreate(_ context.Context, args map[string]string, _ Config) (Invocation, error) {
	path, err := requireArg(args, "path")
	if err != nil {
		return Invocation{}, err
	}
	contents := args["contents"]
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return Invocation{Success: false, AffectedPath: path, ErrorMessage: err.Error()}, nil
	}
	defer f.Close()
	if _, err := f.WriteString(contents); err != nil {
		return Invocation{Success: false, AffectedPath: path, ErrorMessage: err.Error()}, nil
	}
	return Invocation{Success: true, AffectedPath: path}, nil
}

func handleFileEdit(_ context.Context, args map[string]string, _ Config) (Invocation, error) {
	path, err := requireArg(args, "path")
	if err != nil {
		return Invocation{}, err
	}
	oldText, err := requireArg(args, "old_text")
	if err != nil {
		return Invocation{}, err
	}
	newText := args["new_text"]

	contents, err := os.ReadFile(path)
	if err != nil {
		return Invocation{Success: false, AffectedPath: path, ErrorMessage: err.Error()}, nil
	}
	if !strings.Contains(string(contents), oldText) {
		return Invocation{Success: false, AffectedPath: path, ErrorMessage: "old_text not found in file"}, nil
	}
	updated := strings.Replace(string(contents), oldText, newText, 1)
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return Invocation{Success: false, AffectedPath: path, ErrorMessage: err.Error()}, nil
	}
	return Invocation{Success: true, AffectedPath: path}, nil
}

func handleFileSearch(_ context.Context, args map[string]string, _ Config) (Invocation, error) {
	pattern, err := requireArg(args, "pattern")
	if err != nil {
		return Invocation{}, err
	}
	root := args["root"]
	if root == "" {
		root = "."
	}

	var matches []string
	walkErr := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return nil
		}
		defer f.Close()
		scanner := bufio.NewScanner(f)
		line := 0
		for scanner.Scan() {
			line++
			if strings.Contains(scanner.Text(), pattern) {
				matches = append(matches, fmt.Sprintf("%s:%d: %s", path, line, scanner.Text()))
			}
		}
		return nil
	})
	if walkErr != nil {
		return Invocation{Success: false, ErrorMessage: walkErr.Error()}, nil
	}
	return Invocation{Success: true, Stdout: strings.Join(matches, "\n")}, nil
}

func handleFileGlob(_ context.Context, args map[string]string, _ Config) (Invocation, error) {
	pattern, err := requireArg(args, "pattern")
	if err != nil {
		return Invocation{}, err
	}
	names, err := filepath.Glob(pattern)
	if err != nil {
		return Invocation{Success: false, ErrorMessage: err.Error()}, nil
	}
	return Invocation{Success: true, Stdout: strings.Join(names, "\n")}, nil
}
