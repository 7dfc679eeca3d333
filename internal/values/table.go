// Package values loads the flat name -> value tables used by bare-mode
// substitution, typically the outputs of a Terraform apply.
package values

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Table maps bare token names to their replacement text.
type Table map[string]string

// Lookup returns the value for name.
func (t Table) Lookup(name string) (string, bool) {
	v, ok := t[name]
	return v, ok
}

// Merge returns a new table with the entries of t overlaid by others, in order.
func (t Table) Merge(others ...Table) Table {
	merged := make(Table, len(t))
	for k, v := range t {
		merged[k] = v
	}
	for _, o := range others {
		for k, v := range o {
			merged[k] = v
		}
	}
	return merged
}

// LoadFiles loads and merges tables from paths. Later files win on conflicts.
func LoadFiles(paths ...string) (Table, error) {
	table := Table{}
	for _, p := range paths {
		t, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		table = table.Merge(t)
	}
	return table, nil
}

// LoadFile loads one table, picking the decoder from the file extension.
func LoadFile(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read value table: %w", err)
	}

	var table Table
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json", ".jsonc":
		table, err = ParseJSON(data)
	case ".yaml", ".yml":
		table, err = ParseYAML(data)
	case ".env":
		table, err = ParseDotenv(data)
	default:
		return nil, fmt.Errorf("value table %s: unsupported extension %q", path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("value table %s: %w", path, err)
	}
	return table, nil
}

// ParseJSON accepts a flat object or the output of `terraform output -json`.
// Comments and trailing commas are tolerated.
func ParseJSON(data []byte) (Table, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if isTerraformOutputs(raw) {
		return fromTerraform(raw)
	}
	return fromMap(raw)
}

// ParseYAML accepts a flat YAML mapping.
func ParseYAML(data []byte) (Table, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return fromMap(raw)
}

// ParseDotenv accepts KEY=value lines in dotenv syntax.
func ParseDotenv(data []byte) (Table, error) {
	env, err := godotenv.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode dotenv: %w", err)
	}
	return Table(env), nil
}

// isTerraformOutputs reports whether every entry looks like
// {"value": ..., "type": ..., "sensitive": ...}.
func isTerraformOutputs(raw map[string]any) bool {
	if len(raw) == 0 {
		return false
	}
	for _, v := range raw {
		obj, ok := v.(map[string]any)
		if !ok {
			return false
		}
		if _, ok := obj["value"]; !ok {
			return false
		}
	}
	return true
}

func fromTerraform(raw map[string]any) (Table, error) {
	table := make(Table, len(raw))
	for name, v := range raw {
		s, err := Stringify(v.(map[string]any)["value"])
		if err != nil {
			return nil, fmt.Errorf("output %q: %w", name, err)
		}
		table[name] = s
	}
	return table, nil
}

func fromMap(raw map[string]any) (Table, error) {
	table := make(Table, len(raw))
	for name, v := range raw {
		s, err := Stringify(v)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", name, err)
		}
		table[name] = s
	}
	return table, nil
}

// Stringify renders a decoded value as substitution text: strings verbatim,
// nil as empty, everything else as compact JSON.
func Stringify(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
