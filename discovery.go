// File: cuculi/config/discovery.go
package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Layout defaults.
const (
	DefaultDir             = "config"
	DefaultName            = "settings"
	EnvironmentsDir        = "environments"
	environmentRankOffset  = 1
	firstOverlayRankOffset = 2
)

// DefaultExtensions is the order in which source files are looked up.
var DefaultExtensions = []string{".yaml", ".yml", ".toml", ".json"}

// DiscoverDir picks the configuration directory for an application.
// Order: explicit value, <APP>_CONFIG_DIR, ./config if it exists, then XDG locations
// holding a directory named after the app. Falls back to ./config.
func DiscoverDir(appName, explicit string) string {
	if explicit != "" {
		return explicit
	}

	if appName != "" {
		envVar := strings.ToUpper(strings.ReplaceAll(appName, "-", "_")) + "_CONFIG_DIR"
		if dir := os.Getenv(envVar); dir != "" {
			return dir
		}
	}

	if isDir(DefaultDir) {
		return DefaultDir
	}

	if appName != "" {
		for _, dir := range getXDGConfigPaths(appName) {
			if isDir(dir) {
				return dir
			}
		}
	}

	return DefaultDir
}

// Environments lists the environment names that have an override source in dir.
func Environments(dir string, extensions []string) ([]string, error) {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	entries, err := os.ReadDir(filepath.Join(dir, EnvironmentsDir))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	seen := make(map[string]bool)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if !hasExtension(extensions, ext) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ext)
		if isValidKeySegment(name) {
			seen[name] = true
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// locate returns the first existing file base+ext, or base+extensions[0] when none exists.
func locate(base string, extensions []string) string {
	for _, ext := range extensions {
		path := base + ext
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return base + extensions[0]
}

func hasExtension(extensions []string, ext string) bool {
	for _, e := range extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// getXDGConfigPaths returns XDG-compliant config search paths
func getXDGConfigPaths(appName string) []string {
	var paths []string

	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		paths = append(paths, filepath.Join(xdgHome, appName))
	} else if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config", appName))
	}

	if xdgDirs := os.Getenv("XDG_CONFIG_DIRS"); xdgDirs != "" {
		for _, dir := range filepath.SplitList(xdgDirs) {
			paths = append(paths, filepath.Join(dir, appName))
		}
	} else {
		paths = append(paths,
			filepath.Join("/etc/xdg", appName),
			filepath.Join("/etc", appName),
		)
	}

	return paths
}
