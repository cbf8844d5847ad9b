package filex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResolveDataPath expands a leading "~/" in path to the user's home
// directory and creates the parent directory of the result.
func ResolveDataPath(path string) (string, error) {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("home dir: %w", err)
		}
		path = filepath.Join(home, rest)
	}

	dir := filepath.Dir(path)
	if dir == "." {
		return path, nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return path, nil
}
