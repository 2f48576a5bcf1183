package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// RunPreflight implements startup preflight: if the configuration file is
// absent or invalid and stdin is available, it prompts
// the user and writes a valid config.toml; raw secrets are never
// persisted. It is invoked by cmd/odincode's dispatcher whenever
// Initialize returns ErrConfigMissing or ErrConfigInvalid and the
// invoked subcommand is not --help/--version.
//
// Prompting itself is plain bufio/fmt over stdin/stdout — none of the
// retrieved corpus wires a TUI prompt library (tarsy is a server with no
// interactive CLI surface at all), so this is deliberately the one place
// this package falls back to the standard library; see DESIGN.md.
func RunPreflight(stdin io.Reader, stdout io.Writer, rootDir string) (*Config, error) {
	reader := bufio.NewReader(stdin)

	fmt.Fprintln(stdout, "No valid config.toml found. Let's create one.")
	doc := DefaultDocument()

	mode, err := promptChoice(reader, stdout, "Language model mode", []string{"disabled", "external", "local"}, "disabled")
	if err != nil {
		return nil, err
	}
	doc.LM.Mode = LMMode(mode)

	if doc.LM.Mode != LMModeDisabled {
		doc.LM.Provider, err = promptString(reader, stdout, "Provider name", "")
		if err != nil {
			return nil, err
		}
		doc.LM.Model, err = promptString(reader, stdout, "Model name", "")
		if err != nil {
			return nil, err
		}
		if doc.LM.Mode == LMModeLocal {
			doc.LM.BaseURL, err = promptString(reader, stdout, "Base URL", "http://localhost:8080")
			if err != nil {
				return nil, err
			}
		}

		envVarName, err := promptString(reader, stdout, "Environment variable holding the API key (leave blank for none)", "")
		if err != nil {
			return nil, err
		}
		if envVarName != "" {
			// Only the env:NAME indirection is ever written to disk — the
			// actual secret value, even if the user pastes it here, is
			// read back from the environment at adapter construction
			// time and never round-tripped through this file.
			doc.LM.APIKeyRef = envRefPrefix + envVarName
		}
	}

	if err := validate(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}

	path := filepath.Join(rootDir, ConfigFileName)
	if err := writeDocument(path, doc); err != nil {
		return nil, NewLoadError(path, err)
	}
	fmt.Fprintf(stdout, "Wrote %s\n", path)

	return &Config{configDir: rootDir, doc: doc}, nil
}

func writeDocument(path string, doc Document) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(doc)
}

func promptString(reader *bufio.Reader, stdout io.Writer, label, defaultValue string) (string, error) {
	if defaultValue != "" {
		fmt.Fprintf(stdout, "%s [%s]: ", label, defaultValue)
	} else {
		fmt.Fprintf(stdout, "%s: ", label)
	}
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return defaultValue, nil
	}
	return line, nil
}

func promptChoice(reader *bufio.Reader, stdout io.Writer, label string, choices []string, defaultValue string) (string, error) {
	fmt.Fprintf(stdout, "%s (%s) [%s]: ", label, strings.Join(choices, "/"), defaultValue)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return defaultValue, nil
	}
	for _, c := range choices {
		if strings.EqualFold(c, line) {
			return c, nil
		}
	}
	return "", fmt.Errorf("config: %q is not one of %s", line, strings.Join(choices, ", "))
}
