package vault

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dodgybadger/assistantmd/pkg/logger"
)

var watchLog = logger.New("vault:watcher")

// debounceWindow coalesces a burst of filesystem events (a save in most
// editors fires write+chmod+rename in quick succession) into a single
// rescan, instead of re-parsing the whole vault tree once per event.
const debounceWindow = 300 * time.Millisecond

// Watcher watches every discovered vault's Workflows/ tree for changes and
// invokes onChange (debounced) so a caller can re-run Cache.Rescan without
// waiting for a manual rescan. This is the "optional live-rescan watcher"
// §4.4's component design alludes to. There is no periodic rescan: a
// missed event is picked up only by the next rescan triggered some other
// way (POST /rescan, or a restart).
type Watcher struct {
	fsw      *fsnotify.Watcher
	dataRoot string
}

// NewWatcher opens an fsnotify watcher and adds a watch on every vault's
// Workflows/ tree (root plus one subfolder level, matching
// DiscoverWorkflowFiles' own depth limit) currently present under
// dataRoot. Vaults discovered by a later Rescan are not retroactively
// watched until the caller calls Refresh.
func NewWatcher(dataRoot string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{fsw: fsw, dataRoot: dataRoot}
	if err := w.Refresh(); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Refresh re-adds watches for every currently discoverable vault's
// Workflows/ tree. Safe to call repeatedly; fsnotify ignores duplicate
// adds on paths already watched.
func (w *Watcher) Refresh() error {
	vaults, err := DiscoverVaults(w.dataRoot)
	if err != nil {
		return err
	}
	for _, v := range vaults {
		root := filepath.Join(v.Path, "Workflows")
		if err := w.addTree(root); err != nil && !os.IsNotExist(err) {
			watchLog.Printf("vault=%s: watching %s: %v", v.Name, root, err)
		}
	}
	return nil
}

// addTree watches root plus its immediate subdirectories, matching
// DiscoverWorkflowFiles' depth-2 scan (root + one subfolder).
func (w *Watcher) addTree(root string) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	if err := w.fsw.Add(root); err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			_ = w.fsw.Add(filepath.Join(root, e.Name()))
		}
	}
	return nil
}

// Run blocks, invoking onChange at most once per debounceWindow while
// filesystem events keep arriving, until ctx is canceled.
func (w *Watcher) Run(ctx context.Context, onChange func()) {
	var pending *time.Timer
	defer func() {
		if pending != nil {
			pending.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !isMarkdownOrDir(ev.Name) {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(debounceWindow, onChange)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			watchLog.Printf("watch error: %v", err)
		}
	}
}

func isMarkdownOrDir(name string) bool {
	if filepath.Ext(name) == ".md" {
		return true
	}
	info, err := os.Stat(name)
	return err == nil && info.IsDir()
}

// Close releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
