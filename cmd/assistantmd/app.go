package main

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/dodgybadger/assistantmd/pkg/activitylog"
	"github.com/dodgybadger/assistantmd/pkg/bootstrap"
	"github.com/dodgybadger/assistantmd/pkg/chatexecutor"
	"github.com/dodgybadger/assistantmd/pkg/contextmanager"
	"github.com/dodgybadger/assistantmd/pkg/filestate"
	"github.com/dodgybadger/assistantmd/pkg/llm"
	"github.com/dodgybadger/assistantmd/pkg/scheduler"
	"github.com/dodgybadger/assistantmd/pkg/settings"
	"github.com/dodgybadger/assistantmd/pkg/stepengine"
	"github.com/dodgybadger/assistantmd/pkg/store"
	"github.com/dodgybadger/assistantmd/pkg/tools"
	"github.com/dodgybadger/assistantmd/pkg/vault"
	"github.com/dodgybadger/assistantmd/pkg/vaultio"
)

// app bundles every long-lived collaborator a subcommand might need. Built
// once per process invocation; Close releases the store and activity log.
type app struct {
	roots    bootstrap.Roots
	settings settings.Settings
	secrets  settings.Secrets

	db         *sql.DB
	activity   *activitylog.Log
	cache      *vault.Cache
	models     *llm.Registry
	toolsReg   *tools.Registry
	fileState  *filestate.Tracker
	writer     *vaultio.FileWriter
	engine     *stepengine.Engine
	contextMgr *contextmanager.Manager
	chat       *chatexecutor.Executor
	sync       *scheduler.Synchronizer
	dispatcher *scheduler.Scheduler
}

func newApp() (*app, error) {
	roots, err := bootstrap.Init()
	if err != nil {
		return nil, fmt.Errorf("bootstrapping: %w", err)
	}

	s, err := settings.Load(roots.SystemRoot)
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	secrets, err := settings.LoadSecrets(roots.SystemRoot)
	if err != nil {
		return nil, fmt.Errorf("loading secrets: %w", err)
	}

	sqldb, err := store.Open(roots.SystemRoot)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	activity, err := activitylog.Open(roots.SystemRoot)
	if err != nil {
		return nil, fmt.Errorf("opening activity log: %w", err)
	}

	cache := vault.NewCache()
	if _, err := cache.Rescan(roots.DataRoot); err != nil {
		return nil, fmt.Errorf("initial vault scan: %w", err)
	}

	models := llm.NewRegistry(s, secrets)
	toolsReg := tools.NewRegistry(s, secrets)
	fileState := filestate.New(sqldb)
	writer := vaultio.New(roots.DataRoot)

	engine := stepengine.New(stepengine.Deps{
		Vault:     cache,
		DataRoot:  roots.DataRoot,
		Models:    models,
		Tools:     toolsReg,
		FileState: fileState,
		Activity:  activity,
		Writer:    writer,
		Settings:  s,
	})

	cm := contextmanager.New(contextmanager.Deps{
		Store:        contextmanager.NewStore(sqldb),
		Models:       models,
		Tools:        toolsReg,
		Writer:       writer,
		DefaultAlias: defaultModelAlias(s),
	})

	chat := chatexecutor.New(chatexecutor.Deps{
		DataRoot:   roots.DataRoot,
		SystemRoot: roots.SystemRoot,
		Models:     models,
		Tools:      toolsReg,
		Context:    cm,
		Transcript: writer,
	})

	runFunc := func(ctx context.Context, workflowID string) error {
		_, err := engine.Run(ctx, workflowID, time.Now())
		return err
	}

	return &app{
		roots:      roots,
		settings:   s,
		secrets:    secrets,
		db:         sqldb,
		activity:   activity,
		cache:      cache,
		models:     models,
		toolsReg:   toolsReg,
		fileState:  fileState,
		writer:     writer,
		engine:     engine,
		contextMgr: cm,
		chat:       chat,
		sync:       scheduler.NewSynchronizer(sqldb),
		dispatcher: scheduler.New(sqldb, runFunc),
	}, nil
}

func (a *app) Close() {
	a.activity.Close()
	a.db.Close()
}

// run adapts stepengine.Engine.Run to scheduler.RunFunc/httpapi.Runner's
// (ctx, workflowID) shape by supplying time.Now() as the reference time.
func (a *app) run(ctx context.Context, workflowID string) error {
	_, err := a.engine.Run(ctx, workflowID, time.Now())
	return err
}

// rescan re-discovers every vault's workflow files, replaces the vault
// cache's snapshot, and reconciles the scheduler job table against it.
// Satisfies httpapi.Rescanner.
func (a *app) rescan() ([]vault.LoadError, error) {
	loadErrors, err := a.cache.Rescan(a.roots.DataRoot)
	if err != nil {
		return nil, err
	}
	if _, _, err := a.sync.Sync(a.cache.Workflows(), time.Now()); err != nil {
		return loadErrors, err
	}
	return loadErrors, nil
}

func defaultModelAlias(s settings.Settings) string {
	aliases := make([]string, 0, len(s.Models))
	for alias := range s.Models {
		aliases = append(aliases, alias)
	}
	if len(aliases) == 0 {
		return ""
	}
	sort.Strings(aliases)
	return aliases[0]
}
