// File: cuculi/config/env.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// EnvLookupFunc resolves an environment variable. It mirrors os.LookupEnv.
type EnvLookupFunc func(name string) (string, bool)

var defaultEnvLookup EnvLookupFunc = os.LookupEnv

// DotEnvFile is the dotenv file consulted for ${VAR} substitution.
const DotEnvFile = ".env"

// readDotEnv parses a dotenv file without exporting anything into the process.
// A missing file yields an empty map.
func readDotEnv(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read dotenv file '%s': %w", path, err)
	}
	return values, nil
}

// chainLookup tries the primary lookup first and falls back to the dotenv values.
func chainLookup(primary EnvLookupFunc, dotenv map[string]string) EnvLookupFunc {
	return func(name string) (string, bool) {
		if primary != nil {
			if v, ok := primary(name); ok {
				return v, true
			}
		}
		v, ok := dotenv[name]
		return v, ok
	}
}

// substituteEnv replaces every string that is exactly "${NAME}" with the value
// of NAME. Unresolved references are left as they are. The input is not modified.
func substituteEnv(v any, lookup EnvLookupFunc) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = substituteEnv(item, lookup)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = substituteEnv(item, lookup)
		}
		return out
	case string:
		name, ok := envReference(val)
		if !ok {
			return val
		}
		if resolved, found := lookup(name); found {
			return resolved
		}
		return val
	default:
		return v
	}
}

// envReference extracts NAME from "${NAME}".
func envReference(s string) (string, bool) {
	if len(s) < 4 || !strings.HasPrefix(s, "${") || !strings.HasSuffix(s, "}") {
		return "", false
	}
	return s[2 : len(s)-1], true
}
