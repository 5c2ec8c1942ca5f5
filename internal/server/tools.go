package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"jarmap/internal/fetch"
	"jarmap/internal/graph"
	"jarmap/internal/jar"
	"jarmap/internal/report"
	"jarmap/util"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Arguments structs

type AnalyzeArgs struct {
	Archive  string `json:"archive" jsonschema:"required,description:Path or http(s) URL of the JAR archive to analyze"`
	Checksum string `json:"checksum" jsonschema:"description:Expected SHA-256 of a remote archive"`
	Force    bool   `json:"force" jsonschema:"description:Re-analyze even if a graph for this archive is already stored"`
}

type AnalyzeStatusArgs struct{}

type RenderArgs struct {
	Archive string `json:"archive" jsonschema:"required,description:Path or http(s) URL of the JAR archive"`
}

type MethodQueryArgs struct {
	Archive string `json:"archive" jsonschema:"required,description:Path or http(s) URL of the analyzed JAR archive"`
	Method  string `json:"method" jsonschema:"required,description:Method key in Type.methodName form"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "analyze",
		Description: "Builds the method call graph of a JAR archive and persists it",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args AnalyzeArgs) (*mcp.CallToolResult, any, error) {
		s.statusMu.RLock()
		current := s.status
		s.statusMu.RUnlock()
		if current == StatusInProgress {
			return errorResult("Analysis already in progress"), nil, nil
		}

		path, err := s.localPath(ctx, args.Archive, args.Checksum)
		if err != nil {
			return errorResult(fmt.Sprintf("Fetch failed: %v", err)), nil, nil
		}

		fingerprint, err := util.ArchiveFingerprint(path)
		if err != nil {
			return errorResult(fmt.Sprintf("Fingerprint failed: %v", err)), nil, nil
		}

		if !args.Force {
			stored, err := s.store.HasArchive(ctx, fingerprint)
			if err != nil {
				return errorResult(fmt.Sprintf("Store query failed: %v", err)), nil, nil
			}
			if stored {
				return textResult(fmt.Sprintf("Archive already analyzed (fingerprint %s)", fingerprint)), nil, nil
			}
		}

		// Reset the ready channel on re-analysis.
		if current == StatusReady || current == StatusFailed {
			s.statusMu.Lock()
			s.ready = make(chan struct{})
			s.statusMu.Unlock()
		}
		s.setStatus(StatusInProgress, nil)
		startTime := time.Now()

		builder := graph.NewBuilder()
		walker := jar.NewWalker(path, nil)
		if err := walker.Walk(builder); err != nil {
			s.setStatus(StatusFailed, fmt.Errorf("archive pass failed: %w", err))
			return errorResult(fmt.Sprintf("Archive pass failed: %v", err)), nil, nil
		}

		nodes := builder.Nodes()
		if err := s.store.SaveGraph(ctx, fingerprint, nodes); err != nil {
			s.setStatus(StatusFailed, fmt.Errorf("failed to store graph: %w", err))
			return errorResult(fmt.Sprintf("Failed to store graph: %v", err)), nil, nil
		}

		s.statusMu.Lock()
		s.duration = time.Since(startTime)
		s.statusMu.Unlock()
		s.setStatus(StatusReady, nil)

		edges := 0
		for _, n := range nodes {
			edges += len(n.Callees)
		}
		msg := fmt.Sprintf("Analyzed %s: %d method nodes, %d call edges in %.2fs (fingerprint %s)",
			args.Archive, len(nodes), edges, time.Since(startTime).Seconds(), fingerprint)
		if diags := walker.Diagnostics(); len(diags) > 0 {
			msg += fmt.Sprintf("; %d entries skipped: %s", len(diags), diagSummary(diags))
		}
		return textResult(msg), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "analyze_status",
		Description: "Returns the status of the most recent analysis",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args AnalyzeStatusArgs) (*mcp.CallToolResult, any, error) {
		status, err, duration := s.GetStatus()

		result := map[string]any{
			"status": string(status),
		}
		if duration > 0 {
			result["duration_seconds"] = duration.Seconds()
		}
		if err != nil {
			result["error"] = err.Error()
		}

		jsonBytes, _ := json.MarshalIndent(result, "", "  ")
		return textResult(string(jsonBytes)), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "call_graph",
		Description: "Renders the full caller/callee graph of a JAR archive as text",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args RenderArgs) (*mcp.CallToolResult, any, error) {
		return s.renderArchive(ctx, args.Archive, graph.NewBuilder())
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "disassemble",
		Description: "Renders each class of a JAR archive as pseudo-source with commented instructions",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args RenderArgs) (*mcp.CallToolResult, any, error) {
		return s.renderArchive(ctx, args.Archive, report.NewDisasmVisitor())
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "class_structure",
		Description: "Renders a structural report (versions, constant pool, members) for each class in a JAR archive",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args RenderArgs) (*mcp.CallToolResult, any, error) {
		return s.renderArchive(ctx, args.Archive, report.NewStructureVisitor())
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "callers",
		Description: "Lists the methods that invoke the given method",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args MethodQueryArgs) (*mcp.CallToolResult, any, error) {
		return s.methodQuery(ctx, args, s.store.Callers)
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "callees",
		Description: "Lists the methods the given method invokes",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args MethodQueryArgs) (*mcp.CallToolResult, any, error) {
		return s.methodQuery(ctx, args, s.store.Callees)
	})
}

// renderArchive runs one fresh visitor pass over the archive and returns
// the rendered text.
func (s *Server) renderArchive(ctx context.Context, archive string, v jar.Visitor) (*mcp.CallToolResult, any, error) {
	path, err := s.localPath(ctx, archive, "")
	if err != nil {
		return errorResult(fmt.Sprintf("Fetch failed: %v", err)), nil, nil
	}
	walker := jar.NewWalker(path, nil)
	if err := walker.Walk(v); err != nil {
		return errorResult(fmt.Sprintf("Archive pass failed: %v", err)), nil, nil
	}
	text := v.Result()
	if diags := walker.Diagnostics(); len(diags) > 0 {
		text += fmt.Sprintf("\n[%d entries skipped: %s]\n", len(diags), diagSummary(diags))
	}
	return textResult(text), nil, nil
}

// methodQuery resolves the archive fingerprint and runs a store lookup,
// waiting briefly if an analysis is still in flight.
func (s *Server) methodQuery(ctx context.Context, args MethodQueryArgs,
	query func(context.Context, string, string) ([]string, error)) (*mcp.CallToolResult, any, error) {

	status, _, _ := s.GetStatus()
	if status == StatusInProgress {
		waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := s.WaitForAnalysis(waitCtx); err != nil {
			return errorResult("Analysis in progress, please try again"), nil, nil
		}
	}

	path, err := s.localPath(ctx, args.Archive, "")
	if err != nil {
		return errorResult(fmt.Sprintf("Fetch failed: %v", err)), nil, nil
	}
	fingerprint, err := util.ArchiveFingerprint(path)
	if err != nil {
		return errorResult(fmt.Sprintf("Fingerprint failed: %v", err)), nil, nil
	}

	stored, err := s.store.HasArchive(ctx, fingerprint)
	if err != nil {
		return errorResult(fmt.Sprintf("Store query failed: %v", err)), nil, nil
	}
	if !stored {
		return errorResult("Archive not analyzed yet; run the analyze tool first"), nil, nil
	}

	keys, err := query(ctx, fingerprint, args.Method)
	if err != nil {
		return errorResult(fmt.Sprintf("Query failed: %v", err)), nil, nil
	}
	if len(keys) == 0 {
		return textResult("No methods found."), nil, nil
	}

	jsonBytes, _ := json.MarshalIndent(keys, "", "  ")
	return textResult(string(jsonBytes)), nil, nil
}

// localPath resolves an archive reference to a local file, downloading
// remote archives into the cache.
func (s *Server) localPath(ctx context.Context, archive, checksum string) (string, error) {
	if fetch.IsRemote(archive) {
		return s.fetcher.Fetch(ctx, archive, checksum)
	}
	return archive, nil
}

// diagSummary names the first few skipped entries.
func diagSummary(diags []jar.Diagnostic) string {
	const max = 3
	var names []string
	for i, d := range diags {
		if i == max {
			names = append(names, "...")
			break
		}
		names = append(names, d.Entry)
	}
	return strings.Join(names, ", ")
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
