package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// readDataFile loads a JSON or YAML object; the extension picks the decoder
// and "-" reads JSON or YAML from stdin. An empty path yields nil.
func readDataFile(path string, stdin io.Reader) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	var out map[string]any
	if err := decodeFile(path, stdin, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// decodeFile decodes a JSON or YAML file into v
func decodeFile(path string, stdin io.Reader, v any) error {
	raw, err := readInput(path, stdin)
	if err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".json" {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(v); err != nil {
			return NewExitError(ExitCommandError, fmt.Sprintf("%s is not valid JSON: %v", path, err))
		}
		return nil
	}
	// YAML is a superset of JSON, so stdin and unknown extensions go through it
	if err := yaml.Unmarshal(raw, v); err != nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("%s is not valid YAML: %v", path, err))
	}
	return nil
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to read stdin", err)
		}
		return raw, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read "+path, err)
	}
	return raw, nil
}

// readTextFile returns the file content, or "" for an empty path
func readTextFile(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "failed to read "+path, err)
	}
	return string(raw), nil
}

func parseID(kind, arg string) (uuid.UUID, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return uuid.Nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid %s id %q", kind, arg))
	}
	return id, nil
}

// writeOutput writes a rendered document, creating the parent directory
func writeOutput(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return WrapExitError(ExitFailure, "failed to create "+dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return WrapExitError(ExitFailure, "failed to write "+path, err)
	}
	return nil
}
