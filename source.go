// File: cuculi/config/source.go
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"
)

// Supported source formats.
const (
	FormatAuto = "auto"
	FormatYAML = "yaml"
	FormatTOML = "toml"
	FormatJSON = "json"
)

// Well-known layer names.
const (
	LayerBase        = "base"
	LayerEnvironment = "environment"
)

// Source describes one configuration layer. Higher Rank wins during merge.
type Source struct {
	Name     string
	Rank     int
	Origin   string // file path
	Format   string // empty or "auto" means detect
	Optional bool   // a missing optional source is skipped
}

// Marker identifies a particular version of a source's content.
type Marker struct {
	ModTime time.Time
	Size    int64
	Hash    uint64
}

// Equal reports whether two markers describe the same content.
func (m Marker) Equal(other Marker) bool {
	return m.Size == other.Size && m.Hash == other.Hash
}

// SourceState is a source as observed when a snapshot was built.
type SourceState struct {
	Source
	Present bool
	Marker  Marker
}

// readSource stats, reads, hashes and parses a single source.
// A missing source returns a state with Present=false and a nil error; callers
// decide whether absence is acceptable.
func readSource(src Source, maxSize int64, hint string) (SourceState, map[string]any, error) {
	state := SourceState{Source: src}

	info, err := os.Stat(src.Origin)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return state, nil, nil
		}
		return state, nil, &SourceParseError{Source: src.Name, Origin: src.Origin, Err: err}
	}
	if info.IsDir() {
		return state, nil, &SourceParseError{Source: src.Name, Origin: src.Origin, Err: fmt.Errorf("is a directory")}
	}

	if maxSize > 0 && info.Size() > maxSize {
		return state, nil, &SourceParseError{
			Source: src.Name,
			Origin: src.Origin,
			Err:    fmt.Errorf("%w: %d > %d bytes", ErrSourceTooLarge, info.Size(), maxSize),
		}
	}

	data, err := readLimited(src.Origin, maxSize)
	if err != nil {
		return state, nil, &SourceParseError{Source: src.Name, Origin: src.Origin, Err: err}
	}

	state.Present = true
	state.Marker = Marker{
		ModTime: info.ModTime(),
		Size:    int64(len(data)),
		Hash:    xxhash.Sum64(data),
	}

	format := src.Format
	if format == "" || format == FormatAuto {
		format = resolveFormat(src.Origin, data, hint)
	}
	state.Format = format

	tree, err := parseContent(data, format)
	if err != nil {
		return state, nil, &SourceParseError{Source: src.Name, Origin: src.Origin, Format: format, Err: err}
	}

	return state, tree, nil
}

// readLimited reads the whole file, stopping at maxSize+1 bytes so a file that
// grew after stat is still rejected.
func readLimited(path string, maxSize int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var reader io.Reader = file
	if maxSize > 0 {
		reader = io.LimitReader(file, maxSize+1)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrSourceTooLarge, maxSize)
	}
	return data, nil
}

// statMarker returns the current marker of a source without parsing it.
// prev lets unchanged files (same size and mtime) skip rehashing.
func statMarker(path string, prev Marker, prevPresent bool) (Marker, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Marker{}, false, nil
		}
		return Marker{}, false, err
	}

	if prevPresent && info.ModTime().Equal(prev.ModTime) && info.Size() == prev.Size {
		return prev, true, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Marker{}, false, nil
		}
		return Marker{}, false, err
	}

	return Marker{ModTime: info.ModTime(), Size: int64(len(data)), Hash: xxhash.Sum64(data)}, true, nil
}

// resolveFormat picks a format from the extension, then the content, then the hint.
func resolveFormat(path string, data []byte, hint string) string {
	if format := detectFileFormat(path); format != "" {
		return format
	}
	if format := detectFormatFromContent(data); format != "" {
		return format
	}
	return hint
}

// parseContent decodes data into a normalized tree. Dotted keys are expanded
// into nested mappings.
func parseContent(data []byte, format string) (map[string]any, error) {
	tree := make(map[string]any)
	if len(bytes.TrimSpace(data)) == 0 {
		return tree, nil
	}

	switch format {
	case FormatYAML:
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		if doc == nil {
			return tree, nil
		}
		normalized := normalizeValue(doc)
		m, ok := normalized.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("top-level document is %T, not a mapping", doc)
		}
		return expandDottedKeys(m)

	case FormatTOML:
		if err := toml.Unmarshal(data, &tree); err != nil {
			return nil, err
		}

	case FormatJSON:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.UseNumber() // Preserve integer precision
		var doc any
		if err := decoder.Decode(&doc); err != nil {
			return nil, err
		}
		m, ok := doc.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("top-level document is %T, not an object", doc)
		}
		tree = m

	default:
		return nil, ErrUnknownFormat
	}

	return expandDottedKeys(normalizeValue(tree).(map[string]any))
}

// detectFileFormat determines format from file extension
func detectFileFormat(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml", ".tml":
		return FormatTOML
	case ".json":
		return FormatJSON
	default:
		// .conf, .config and friends fall through to content detection
		return ""
	}
}

// detectFormatFromContent attempts to detect format by parsing
func detectFormatFromContent(data []byte) string {
	// Try JSON first (strict format)
	var jsonTest any
	if err := json.Unmarshal(data, &jsonTest); err == nil {
		return FormatJSON
	}

	// TOML before YAML: most TOML documents are not valid YAML mappings,
	// but plain "key: value" text is never valid TOML.
	var tomlTest map[string]any
	if err := toml.Unmarshal(data, &tomlTest); err == nil {
		return FormatTOML
	}

	var yamlTest map[string]any
	if err := yaml.Unmarshal(data, &yamlTest); err == nil {
		return FormatYAML
	}

	return ""
}

// validFormat reports whether f is a format this package can parse.
func validFormat(f string) bool {
	switch f {
	case FormatAuto, FormatYAML, FormatTOML, FormatJSON:
		return true
	}
	return false
}
