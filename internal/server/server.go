// Package server exposes the archive analyzer over MCP so code-comprehension
// clients can drive it: analyzing archives into the persistent graph store
// and querying structure, disassembly, and caller/callee relations.
package server

import (
	"context"
	"sync"
	"time"

	"jarmap/internal/fetch"
	"jarmap/internal/graph"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// AnalysisStatus tracks the lifecycle of the most recent analyze request.
type AnalysisStatus string

const (
	StatusIdle       AnalysisStatus = "idle"
	StatusInProgress AnalysisStatus = "in_progress"
	StatusReady      AnalysisStatus = "ready"
	StatusFailed     AnalysisStatus = "failed"
)

// Server is the MCP server wrapping one graph store and archive fetcher.
type Server struct {
	mcpServer *mcp.Server
	store     *graph.Store
	fetcher   *fetch.Fetcher

	statusMu  sync.RWMutex
	status    AnalysisStatus
	statusErr error
	duration  time.Duration
	ready     chan struct{}

	systemPrompt string
}

// New creates a Server backed by the given store.
func New(store *graph.Store, version string) (*Server, error) {
	fetcher, err := fetch.New()
	if err != nil {
		return nil, err
	}
	s := &Server{
		store:        store,
		fetcher:      fetcher,
		status:       StatusIdle,
		ready:        make(chan struct{}),
		systemPrompt: defaultSystemPrompt,
	}
	s.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    "jarmap",
		Version: version,
	}, nil)
	s.registerTools()
	s.registerResources()
	return s, nil
}

// Run serves MCP over stdio until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// setStatus records the analysis outcome and closes the ready channel on a
// terminal state.
func (s *Server) setStatus(status AnalysisStatus, err error) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status = status
	s.statusErr = err
	if status == StatusReady || status == StatusFailed {
		select {
		case <-s.ready:
			// already closed
		default:
			close(s.ready)
		}
	}
}

// GetStatus returns the current analysis status, its error (for failures),
// and the duration of the last completed analysis.
func (s *Server) GetStatus() (AnalysisStatus, error, time.Duration) {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status, s.statusErr, s.duration
}

// WaitForAnalysis blocks until the current analysis reaches a terminal
// state or the context expires.
func (s *Server) WaitForAnalysis(ctx context.Context) error {
	s.statusMu.RLock()
	ready := s.ready
	s.statusMu.RUnlock()
	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

const defaultSystemPrompt = `# jarmap MCP Server

jarmap recovers structural and behavioral information from compiled Java
classes packaged in JAR archives, without loading them into a JVM.

Workflow:
1. Call analyze with the archive path (or URL) to build and persist its
   method call graph.
2. Use callers / callees to navigate caller-callee relations. Method keys
   have the form "com.example.Type.methodName" (parameter types are not
   part of the key).
3. Use class_structure for per-class metadata, disassemble for a javap-like
   instruction listing, and call_graph for the full rendered graph.

Entries that fail to decode are skipped and reported as diagnostics; a
partial archive still produces results for its readable classes.`
