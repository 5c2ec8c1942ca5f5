// Command jarmap reads compiled Java classes out of JAR archives and
// renders structural reports, disassembly listings, and method call graphs.
//
// Usage:
//
//	jarmap [flags] report    <archive>
//	jarmap [flags] disasm    <archive>
//	jarmap [flags] callgraph <archive>
//	jarmap [flags] serve
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"jarmap/internal/fetch"
	"jarmap/internal/graph"
	"jarmap/internal/jar"
	"jarmap/internal/report"
	"jarmap/internal/server"
	"jarmap/util"
)

const version = "0.1.0"

func main() {
	excludes := flag.String("exclude", "", "Comma-separated gitignore-style patterns for entries to skip")
	dbPath := flag.String("db", "", "Path to SQLite database for persisting call graphs. Can be set via JARMAP_DB env.")
	checksum := flag.String("checksum", "", "Expected SHA-256 of a remote archive")
	flag.Parse()

	if *dbPath == "" {
		*dbPath = os.Getenv("JARMAP_DB")
	}

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	mode := flag.Arg(0)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, mode, flag.Args()[1:], *excludes, *dbPath, *checksum); err != nil {
		log.Fatalf("jarmap: %v", err)
	}
}

func run(ctx context.Context, mode string, args []string, excludes, dbPath, checksum string) error {
	if mode == "serve" {
		return serve(ctx, dbPath)
	}

	if len(args) != 1 {
		return fmt.Errorf("%s mode takes exactly one archive argument", mode)
	}
	archive := args[0]

	var v jar.Visitor
	switch mode {
	case "report":
		v = report.NewStructureVisitor()
	case "disasm":
		v = report.NewDisasmVisitor()
	case "callgraph":
		v = graph.NewBuilder()
	default:
		return fmt.Errorf("unknown mode %q (want report, disasm, callgraph, or serve)", mode)
	}

	path, err := localPath(ctx, archive, checksum)
	if err != nil {
		return err
	}

	walker := jar.NewWalker(path, splitPatterns(excludes))
	if err := walker.Walk(v); err != nil {
		return err
	}

	fmt.Print(v.Result())

	for _, d := range walker.Diagnostics() {
		fmt.Fprintf(os.Stderr, "jarmap: skipped %s: %v\n", d.Entry, d.Err)
	}

	if mode == "callgraph" && dbPath != "" {
		builder := v.(*graph.Builder)
		if err := persistGraph(ctx, dbPath, path, builder); err != nil {
			return err
		}
	}
	return nil
}

// serve runs the MCP server over stdio until interrupted.
func serve(ctx context.Context, dbPath string) error {
	if dbPath == "" {
		return fmt.Errorf("serve mode requires -db or JARMAP_DB")
	}
	store, err := graph.OpenStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	srv, err := server.New(store, version)
	if err != nil {
		return err
	}
	log.Printf("[jarmap] serving MCP over stdio (db=%s)", dbPath)
	return srv.Run(ctx)
}

func persistGraph(ctx context.Context, dbPath, archivePath string, builder *graph.Builder) error {
	store, err := graph.OpenStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	fingerprint, err := util.ArchiveFingerprint(archivePath)
	if err != nil {
		return err
	}
	if err := store.SaveGraph(ctx, fingerprint, builder.Nodes()); err != nil {
		return fmt.Errorf("failed to store graph: %w", err)
	}
	log.Printf("[jarmap] stored call graph (fingerprint %s)", fingerprint)
	return nil
}

func localPath(ctx context.Context, archive, checksum string) (string, error) {
	if !fetch.IsRemote(archive) {
		return archive, nil
	}
	fetcher, err := fetch.New()
	if err != nil {
		return "", err
	}
	return fetcher.Fetch(ctx, archive, checksum)
}

func splitPatterns(s string) []string {
	if s == "" {
		return nil
	}
	var patterns []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}
