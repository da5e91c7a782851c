// Package vault implements the Workflow Loader & Vault Scanner (§4.4):
// discovering vaults under the data root, scanning their Workflows/ tree
// one level deep, parsing each workflow file, and caching the result keyed
// by path and content hash.
package vault

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dodgybadger/assistantmd/pkg/logger"
)

var log = logger.New("vault:scanner")

// Info identifies one discovered vault.
type Info struct {
	Name string // directory name relative to the data root; vault identity
	Path string // absolute path
}

// DiscoverVaults lists every subdirectory of dataRoot that does not contain
// a `.vaultignore` marker (§4.4).
func DiscoverVaults(dataRoot string) ([]Info, error) {
	entries, err := os.ReadDir(dataRoot)
	if err != nil {
		return nil, err
	}

	var vaults []Info
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		full := filepath.Join(dataRoot, e.Name())
		if _, err := os.Stat(filepath.Join(full, ".vaultignore")); err == nil {
			log.Printf("skipping %s: .vaultignore present", e.Name())
			continue
		}
		vaults = append(vaults, Info{Name: e.Name(), Path: full})
	}
	sort.Slice(vaults, func(i, j int) bool { return vaults[i].Name < vaults[j].Name })
	return vaults, nil
}

// WorkflowFile is one `.md` file discovered under a vault's Workflows/ tree.
type WorkflowFile struct {
	RelPath string // relative to the vault root, e.g. "Workflows/journal/daily.md"
}

// DiscoverWorkflowFiles scans vaultPath's Workflows/ directory at depth ≤ 2
// (the root plus one subfolder), skipping subfolders whose name starts with
// "_" (§4.4). A vault with no Workflows/ directory yields an empty, non-error
// result.
func DiscoverWorkflowFiles(vaultPath string) ([]WorkflowFile, error) {
	root := filepath.Join(vaultPath, "Workflows")
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var files []WorkflowFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			if strings.HasPrefix(name, "_") {
				log.Printf("skipping underscore-prefixed folder %s", name)
				continue
			}
			subEntries, err := os.ReadDir(filepath.Join(root, name))
			if err != nil {
				return nil, err
			}
			for _, sub := range subEntries {
				if sub.IsDir() || !strings.HasSuffix(sub.Name(), ".md") {
					continue
				}
				files = append(files, WorkflowFile{RelPath: filepath.ToSlash(filepath.Join("Workflows", name, sub.Name()))})
			}
			continue
		}
		if strings.HasSuffix(name, ".md") {
			files = append(files, WorkflowFile{RelPath: filepath.ToSlash(filepath.Join("Workflows", name))})
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}
