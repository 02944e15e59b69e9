package input

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// supportedExtensions lists the file formats agents may write findings in
var supportedExtensions = map[string]bool{
	".json": true,
	".yaml": true,
	".yml":  true,
}

// FindFindingFiles returns the agent output files under root, sorted by path.
// If root is a file it is returned as-is. Hidden directories are skipped.
func FindFindingFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if supportedExtensions[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// AgentName derives an agent name from a findings file path (e.g., "agents/lcp-agent.json" -> "lcp-agent")
func AgentName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
