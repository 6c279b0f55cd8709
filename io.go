// File: cuculi/config/io.go
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Encode writes the merged configuration to w in the given format.
func (s *Snapshot) Encode(w io.Writer, format string) error {
	data, err := s.Marshal(format)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Marshal renders the merged configuration in the given format.
func (s *Snapshot) Marshal(format string) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case FormatYAML, "":
		encoder := yaml.NewEncoder(&buf)
		encoder.SetIndent(2)
		if err := encoder.Encode(s.data); err != nil {
			return nil, fmt.Errorf("failed to marshal config data to YAML: %w", err)
		}
		if err := encoder.Close(); err != nil {
			return nil, fmt.Errorf("failed to flush YAML encoder: %w", err)
		}
	case FormatTOML:
		if err := toml.NewEncoder(&buf).Encode(s.data); err != nil {
			return nil, fmt.Errorf("failed to marshal config data to TOML: %w", err)
		}
	case FormatJSON:
		encoder := json.NewEncoder(&buf)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(s.data); err != nil {
			return nil, fmt.Errorf("failed to marshal config data to JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	return buf.Bytes(), nil
}

// WriteFile writes the merged configuration to path atomically.
// An empty format is detected from the path extension.
func (s *Snapshot) WriteFile(path, format string) error {
	if format == "" || format == FormatAuto {
		format = detectFileFormat(path)
		if format == "" {
			return fmt.Errorf("%w: cannot infer output format from '%s'", ErrUnknownFormat, path)
		}
	}

	data, err := s.Marshal(format)
	if err != nil {
		return err
	}
	return atomicWriteFile(path, data)
}

// atomicWriteFile performs atomic file write
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	tempPath := tempFile.Name()
	removed := false
	defer func() {
		if !removed {
			os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temporary file to '%s': %w", path, err)
	}
	removed = true

	return nil
}
