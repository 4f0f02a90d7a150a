package definition

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format identifies a definition file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// FormatFromPath infers the encoding from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("definition: unsupported file extension %q", filepath.Ext(path))
	}
}

// Parse decodes and validates a definition.
func Parse(data []byte, format Format) (Definition, error) {
	var def Definition
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &def); err != nil {
			return Definition{}, fmt.Errorf("definition: decode yaml: %w", err)
		}
	case FormatTOML:
		if err := toml.Unmarshal(data, &def); err != nil {
			return Definition{}, fmt.Errorf("definition: decode toml: %w", err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&def); err != nil {
			return Definition{}, fmt.Errorf("definition: decode json: %w", err)
		}
	default:
		return Definition{}, fmt.Errorf("definition: unsupported format %q", format)
	}

	def.Initial = normalizeMap(def.Initial)
	for i := range def.Fields {
		normalizeField(&def.Fields[i])
	}
	if err := def.Validate(); err != nil {
		return Definition{}, err
	}
	return def, nil
}

// Load reads a definition file from disk.
func Load(path string) (Definition, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return Definition{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("definition: read %s: %w", path, err)
	}
	def, err := Parse(data, format)
	if err != nil {
		return Definition{}, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// LoadFS reads a definition file from fsys.
func LoadFS(fsys fs.FS, path string) (Definition, error) {
	if fsys == nil {
		return Definition{}, fmt.Errorf("definition: filesystem is nil")
	}
	format, err := FormatFromPath(path)
	if err != nil {
		return Definition{}, err
	}
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return Definition{}, fmt.Errorf("definition: read %s: %w", path, err)
	}
	def, err := Parse(data, format)
	if err != nil {
		return Definition{}, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

func normalizeField(field *Field) {
	field.Name = strings.TrimSpace(field.Name)
	field.Kind = Kind(strings.ToLower(strings.TrimSpace(string(field.Kind))))
	field.Default = normalize(field.Default)
	if field.Item != nil {
		normalizeField(field.Item)
	}
}
