package vault

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dodgybadger/assistantmd/pkg/workflow"
)

// LoadError records a per-file parse failure (§4.4): the file is skipped
// but doesn't prevent the rest of the vault from loading.
type LoadError struct {
	Vault   string
	RelPath string
	Err     error
}

// cacheEntry is one path's cached parse result, keyed by source hash so a
// rescan can skip re-parsing unchanged files.
type cacheEntry struct {
	hash     string
	workflow workflow.Workflow
}

// Cache is the reader-majority workflow cache (§4.4, §5): refreshed
// wholesale on rescan via an atomic pointer swap, so concurrent readers
// never observe a half-updated snapshot.
type Cache struct {
	mu       sync.RWMutex
	snapshot map[string]cacheEntry // keyed by "vault/relpath"
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{snapshot: map[string]cacheEntry{}}
}

// Workflows returns every currently cached Workflow, across all vaults.
func (c *Cache) Workflows() []workflow.Workflow {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]workflow.Workflow, 0, len(c.snapshot))
	for _, e := range c.snapshot {
		out = append(out, e.workflow)
	}
	return out
}

// Get returns a single cached workflow by its GlobalID.
func (c *Cache) Get(globalID string) (workflow.Workflow, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.snapshot {
		if e.workflow.GlobalID == globalID {
			return e.workflow, true
		}
	}
	return workflow.Workflow{}, false
}

// Rescan re-discovers every vault and workflow file under dataRoot, parses
// whatever changed since the last scan (matching by content hash so an
// untouched file is reused from the prior snapshot), and atomically
// replaces the cache's snapshot. It returns per-file parse errors
// separately so the rest of the vault still loads (§4.4).
func (c *Cache) Rescan(dataRoot string) ([]LoadError, error) {
	vaults, err := DiscoverVaults(dataRoot)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	prior := c.snapshot
	c.mu.RUnlock()

	next := map[string]cacheEntry{}
	var loadErrors []LoadError

	for _, v := range vaults {
		files, err := DiscoverWorkflowFiles(v.Path)
		if err != nil {
			loadErrors = append(loadErrors, LoadError{Vault: v.Name, Err: err})
			continue
		}
		for _, f := range files {
			key := v.Name + "/" + f.RelPath
			full := filepath.Join(v.Path, f.RelPath)
			data, err := os.ReadFile(full)
			if err != nil {
				loadErrors = append(loadErrors, LoadError{Vault: v.Name, RelPath: f.RelPath, Err: err})
				continue
			}
			hash := workflow.SourceHash(string(data))

			if prior, ok := prior[key]; ok && prior.hash == hash && prior.workflow.ParseError == nil {
				next[key] = prior
				continue
			}

			parsed, err := workflow.ParseWorkflowFile(string(data), true)
			var w workflow.Workflow
			if err == nil {
				w, err = workflow.BuildWorkflow(v.Name, f.RelPath, parsed, hash)
			}
			if err != nil {
				loadErrors = append(loadErrors, LoadError{Vault: v.Name, RelPath: f.RelPath, Err: err})
				// Kept for status visibility: disabled, with no sections.
				next[key] = cacheEntry{hash: hash, workflow: workflow.Workflow{
					GlobalID: v.Name + "/" + strings.TrimSuffix(f.RelPath, ".md"),
					Vault:    v.Name, Path: f.RelPath, SourceHash: hash, ParseError: err,
				}}
				continue
			}
			next[key] = cacheEntry{hash: hash, workflow: w}
		}
	}

	c.mu.Lock()
	c.snapshot = next
	c.mu.Unlock()

	log.Printf("rescanned %d vault(s), %d workflow(s) loaded, %d error(s)", len(vaults), len(next), len(loadErrors))
	return loadErrors, nil
}
