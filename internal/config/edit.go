package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	werrors "github.com/cadre-oss/warehouse/internal/errors"
	"gopkg.in/yaml.v3"
)

// SetValue sets a dotted key (e.g. "storage.driver") in the config file at
// path, creating the file and any missing sections. Comments and ordering
// are kept. The edited file must still load cleanly, otherwise nothing is
// written.
func SetValue(path, key, value string) error {
	doc, err := readDocument(path)
	if err != nil {
		return err
	}
	if err := setNode(doc.Content[0], strings.Split(key, "."), value); err != nil {
		return werrors.Wrap(werrors.CodeInvalidInput, "cannot set "+key, err)
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := checkDocument(out); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, out, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return os.Rename(tmp, path)
}

func readDocument(path string) (*yaml.Node, error) {
	doc := &yaml.Node{}
	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(content, doc); err != nil {
			return nil, werrors.Wrap(werrors.CodeConfigInvalid, "failed to parse "+path, err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if doc.Kind == 0 || len(doc.Content) == 0 {
		doc = &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode}}}
	}
	if doc.Content[0].Kind != yaml.MappingNode {
		return nil, werrors.New(werrors.CodeConfigInvalid, path+" is not a YAML mapping")
	}
	return doc, nil
}

func setNode(node *yaml.Node, parts []string, value string) error {
	for i, part := range parts {
		if part == "" {
			return fmt.Errorf("empty key segment")
		}
		last := i == len(parts)-1

		var child *yaml.Node
		for j := 0; j+1 < len(node.Content); j += 2 {
			if node.Content[j].Value == part {
				child = node.Content[j+1]
				break
			}
		}

		switch {
		case child == nil && last:
			child = &yaml.Node{Kind: yaml.ScalarNode, Value: value}
			node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: part}, child)
		case child == nil:
			child = &yaml.Node{Kind: yaml.MappingNode}
			node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: part}, child)
		case last && child.Kind != yaml.ScalarNode:
			return fmt.Errorf("%s is a section, not a value", strings.Join(parts[:i+1], "."))
		case last:
			// Let the value re-resolve: "true" becomes a bool, "5" an int.
			child.Value, child.Tag, child.Style = value, "", 0
		case child.Kind != yaml.MappingNode:
			return fmt.Errorf("%s is a value, not a section", strings.Join(parts[:i+1], "."))
		}
		node = child
	}
	return nil
}

// checkDocument rejects unknown keys and anything Validate would reject.
func checkDocument(content []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader([]byte(interpolateEnv(string(content)))))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return werrors.Wrap(werrors.CodeConfigInvalid, "edited config does not load", err).
			WithSuggestion("Run 'warehouse config show' to see the available keys")
	}
	ApplyDefaults(&cfg)
	return Validate(&cfg)
}
