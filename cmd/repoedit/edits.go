package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"repoedit/internal/edit"
)

// loadEdits reads an edits file. "-" reads stdin. The file holds either a
// bare list of edits or the {"files": [...]} object the assistant emits,
// as JSON or YAML (chosen by extension, or sniffed for stdin).
func loadEdits(path string, stdin io.Reader) ([]edit.Edit, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read edits: %w", err)
	}

	edits, err := parseEdits(data, isYAML(path, data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return edits, nil
}

func isYAML(path string, data []byte) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	case ".json":
		return false
	}
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] != '{' && trimmed[0] != '['
}

func parseEdits(data []byte, asYAML bool) ([]edit.Edit, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("no edits")
	}

	var (
		list []edit.Edit
		env  edit.Envelope
	)
	if asYAML {
		var doc yaml.Node
		if err := yaml.Unmarshal(trimmed, &doc); err != nil {
			return nil, err
		}
		if len(doc.Content) > 0 && doc.Content[0].Kind == yaml.SequenceNode {
			if err := doc.Decode(&list); err != nil {
				return nil, err
			}
			return list, nil
		}
		if err := doc.Decode(&env); err != nil {
			return nil, err
		}
	} else {
		if trimmed[0] == '[' {
			if err := json.Unmarshal(trimmed, &list); err != nil {
				return nil, err
			}
			return list, nil
		}
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, err
		}
	}

	if env.Files == nil {
		return nil, fmt.Errorf(`expected a list of edits or a {"files": [...]} object`)
	}
	return env.Files, nil
}
