// Package bootstrap resolves the data-root and system-root paths that every
// other package needs before it can touch the filesystem. Per the runtime's
// concurrency model (§5), these roots must be established before any module
// resolves settings or paths; helpers here fail loudly when called
// pre-bootstrap rather than silently falling back to a default.
package bootstrap

import (
	"errors"
	"os"
	"sync"

	"github.com/dodgybadger/assistantmd/pkg/logger"
)

var log = logger.New("bootstrap")

// ErrNotBootstrapped is returned by Current when called before Init.
var ErrNotBootstrapped = errors.New("bootstrap: Init has not been called")

// ErrMissingEnv is returned by Init when a required environment variable is unset.
var ErrMissingEnv = errors.New("bootstrap: required environment variable is unset")

type roots struct {
	dataRoot   string
	systemRoot string
}

var (
	current     *roots
	currentOnce sync.Once
	initErr     error
	mu          sync.RWMutex
)

// Init resolves CONTAINER_DATA_ROOT and CONTAINER_SYSTEM_ROOT from the
// process environment. It is idempotent: subsequent calls return the result
// of the first call without re-reading the environment, mirroring the
// teacher's explicit-init-over-ambient-globals pattern — callers pass the
// resolved Roots value around rather than re-reading process globals.
func Init() (Roots, error) {
	currentOnce.Do(func() {
		dataRoot := os.Getenv("CONTAINER_DATA_ROOT")
		systemRoot := os.Getenv("CONTAINER_SYSTEM_ROOT")
		if dataRoot == "" || systemRoot == "" {
			initErr = ErrMissingEnv
			log.Printf("bootstrap failed: CONTAINER_DATA_ROOT=%q CONTAINER_SYSTEM_ROOT=%q", dataRoot, systemRoot)
			return
		}
		mu.Lock()
		current = &roots{dataRoot: dataRoot, systemRoot: systemRoot}
		mu.Unlock()
		log.Printf("bootstrapped: data_root=%s system_root=%s", dataRoot, systemRoot)
	})
	return Current()
}

// Roots is the resolved pair of filesystem roots every module needs:
// DataRoot holds vaults, SystemRoot holds settings.yaml/secrets.yaml/activity.log.
type Roots struct {
	DataRoot   string
	SystemRoot string
}

// Current returns the already-resolved Roots, or ErrNotBootstrapped if Init
// has not succeeded yet.
func Current() (Roots, error) {
	mu.RLock()
	defer mu.RUnlock()
	if current == nil {
		if initErr != nil {
			return Roots{}, initErr
		}
		return Roots{}, ErrNotBootstrapped
	}
	return Roots{DataRoot: current.dataRoot, SystemRoot: current.systemRoot}, nil
}

// resetForTest clears bootstrap state. Only called from _test.go files in
// this package via the exported ResetForTest wrapper below.
func resetForTest() {
	mu.Lock()
	current = nil
	initErr = nil
	mu.Unlock()
	currentOnce = sync.Once{}
}

// ResetForTest clears bootstrapped state so tests can exercise Init with
// different environment variables. Not for production use.
func ResetForTest() {
	resetForTest()
}
