package ux

import (
	"os"
	"path/filepath"
)

// ConfigFileNames are tried in order in every searched directory
var ConfigFileNames = []string{"aiorch.yaml", "aiorch.yml", ".aiorch.yaml"}

// DiscoverConfigFile looks for a config file in dir and its parents, stopping
// at the repository root, and then in ~/.config/aiorch. It returns "" when
// nothing is found.
func DiscoverConfigFile(dir string) string {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}

	for {
		if path := firstExisting(dir); path != "" {
			return path
		}
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if home, err := os.UserHomeDir(); err == nil {
		return firstExisting(filepath.Join(home, ".config", "aiorch"))
	}
	return ""
}

func firstExisting(dir string) string {
	for _, name := range ConfigFileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}
