package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DefaultConfigPath returns the default config file path for the given
// component name (e.g. "agent.yaml", "host.yaml").
func DefaultConfigPath(name string) string {
	home, _ := os.UserHomeDir()
	programData := os.Getenv("ProgramData")
	return ResolveConfigPath(runtime.GOOS, home, programData, name)
}

// ResolveConfigPath constructs a config file path for the given OS and base
// directories. It is mainly used in tests.
func ResolveConfigPath(goos, home, programData, name string) string {
	switch goos {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "dawlink", name)
	case "windows":
		if programData == "" {
			programData = "C:/ProgramData"
		}
		programData = strings.TrimRight(programData, "\\/")
		return filepath.Join(programData, "dawlink", name)
	default:
		return filepath.Join("/etc", "dawlink", name)
	}
}

// DefaultCacheDir returns the directory holding the browser index files.
// DAWLINK_CACHE_DIR overrides the platform default.
func DefaultCacheDir() string {
	if v := os.Getenv("DAWLINK_CACHE_DIR"); v != "" {
		return v
	}
	base, err := os.UserCacheDir()
	if err != nil || base == "" {
		return filepath.Join(os.TempDir(), "dawlink")
	}
	return filepath.Join(base, "dawlink")
}

// GetEnv returns the value of the DAWLINK_-prefixed environment variable,
// falling back to the bare name and then to def.
func GetEnv(name, def string) string {
	if v := os.Getenv("DAWLINK_" + name); v != "" {
		return v
	}
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}
