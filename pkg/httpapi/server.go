// Package httpapi is the minimal, unauthenticated HTTP status surface
// (§6 "HTTP surface (collaborator; listed for completeness)") that stands
// in for the spec's external HTTP collaborator: enough to rescan, inspect
// status, and manually trigger a workflow run over the wire, built on
// net/http only — this boundary is explicitly out of the core's scope
// (§1), so it draws on no domain-stack dependency the way every other
// package here does.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dodgybadger/assistantmd/pkg/logger"
	"github.com/dodgybadger/assistantmd/pkg/vault"
)

var log = logger.New("httpapi:server")

// Runner executes a single workflow run on demand, matching
// scheduler.RunFunc's shape.
type Runner func(ctx context.Context, workflowID string) error

// Rescanner re-runs the vault scan (and, in Server.handleRescan, whatever
// the caller wires up alongside it, e.g. a scheduler sync).
type Rescanner func() ([]vault.LoadError, error)

// Server is the thin net/http handler wrapping the vault cache, a manual
// run callable, and a rescan callable.
type Server struct {
	mux      *http.ServeMux
	cache    *vault.Cache
	run      Runner
	rescan   Rescanner
	started  time.Time
}

// New builds a Server. started is recorded for the /status endpoint's
// uptime field.
func New(cache *vault.Cache, run Runner, rescan Rescanner) *Server {
	s := &Server{cache: cache, run: run, rescan: rescan, started: time.Now()}
	s.mux = http.NewServeMux()
	s.mux.HandleFunc("/status", s.handleStatus)
	s.mux.HandleFunc("/rescan", s.handleRescan)
	s.mux.HandleFunc("/workflows/", s.handleWorkflowRun)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type workflowStatus struct {
	GlobalID   string `json:"global_id"`
	Enabled    bool   `json:"enabled"`
	ParseError string `json:"parse_error,omitempty"`
}

type statusResponse struct {
	UptimeSeconds float64          `json:"uptime_seconds"`
	Workflows     []workflowStatus `json:"workflows"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var out []workflowStatus
	for _, wf := range s.cache.Workflows() {
		entry := workflowStatus{GlobalID: wf.GlobalID, Enabled: wf.Enabled}
		if wf.ParseError != nil {
			entry.ParseError = wf.ParseError.Error()
		}
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, statusResponse{UptimeSeconds: time.Since(s.started).Seconds(), Workflows: out})
}

type rescanResponse struct {
	Errors []string `json:"errors,omitempty"`
}

func (s *Server) handleRescan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "rescan requires POST", http.StatusMethodNotAllowed)
		return
	}
	loadErrors, err := s.rescan()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	resp := rescanResponse{}
	for _, le := range loadErrors {
		resp.Errors = append(resp.Errors, le.Vault+"/"+le.RelPath+": "+le.Err.Error())
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleWorkflowRun serves POST /workflows/{id}/run, where {id} is a
// workflow's global_id (itself slash-containing, so the suffix match is
// on "/run" rather than a single path segment).
func (s *Server) handleWorkflowRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "workflow run requires POST", http.StatusMethodNotAllowed)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/workflows/")
	id, ok := strings.CutSuffix(path, "/run")
	if !ok || id == "" {
		http.Error(w, "expected /workflows/{id}/run", http.StatusNotFound)
		return
	}

	if _, ok := s.cache.Get(id); !ok {
		http.Error(w, "unknown workflow "+id, http.StatusNotFound)
		return
	}
	if err := s.run(r.Context(), id); err != nil {
		log.Printf("manual run of %s failed: %v", id, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"workflow_id": id, "status": "completed"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writing JSON response: %v", err)
	}
}
