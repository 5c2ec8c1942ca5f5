package jar

import (
	"archive/zip"
	"fmt"
	"io"
	"log"
	"strings"

	"jarmap/internal/classfile"

	ignore "github.com/sabhiram/go-gitignore"
)

// Entry is one archive entry's path and byte content.
type Entry struct {
	Name string
	Data []byte
}

// Diagnostic records one archive entry that could not be processed.
type Diagnostic struct {
	Entry string
	Err   error
}

// Walker drives one analysis pass over an archive: it filters entries to
// compiled classes, decodes each, and dispatches them to a Visitor.
// Decode failures are collected per entry and never abort the pass; only
// a failure to open the archive itself is fatal.
type Walker struct {
	path    string
	matcher *ignore.GitIgnore // nil when no exclusion patterns were given
	diags   []Diagnostic
}

// NewWalker creates a Walker for the archive at path. Entries matching any
// of the gitignore-style exclude patterns are skipped.
func NewWalker(path string, excludes []string) *Walker {
	w := &Walker{path: path}
	if len(excludes) > 0 {
		w.matcher = ignore.CompileIgnoreLines(excludes...)
	}
	return w
}

// Walk opens the archive, feeds every class entry through the visitor, and
// runs the visitor's linking phase if it has one. The archive handle is
// released before Walk returns, on success or failure.
func (w *Walker) Walk(v Visitor) error {
	zr, err := zip.OpenReader(w.path)
	if err != nil {
		return fmt.Errorf("failed to open archive %s: %w", w.path, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, ".class") {
			continue
		}
		if w.matcher != nil && w.matcher.MatchesPath(f.Name) {
			continue
		}
		data, err := readEntry(f)
		if err != nil {
			w.report(f.Name, err)
			continue
		}
		w.visit(v, Entry{Name: f.Name, Data: data})
	}

	if l, ok := v.(Linker); ok {
		l.Link()
	}
	return nil
}

// VisitEntries runs the same per-entry pipeline over entries supplied by a
// collaborator that handles archive framing itself.
func (w *Walker) VisitEntries(v Visitor, entries []Entry) {
	for _, e := range entries {
		if !strings.HasSuffix(e.Name, ".class") {
			continue
		}
		if w.matcher != nil && w.matcher.MatchesPath(e.Name) {
			continue
		}
		w.visit(v, e)
	}
	if l, ok := v.(Linker); ok {
		l.Link()
	}
}

// visit decodes one entry and hands it to the visitor, downgrading any
// failure to a diagnostic.
func (w *Walker) visit(v Visitor, e Entry) {
	cf, err := classfile.Parse(e.Data)
	if err != nil {
		w.report(e.Name, err)
		return
	}
	if err := v.VisitClass(cf); err != nil {
		w.report(e.Name, err)
	}
}

// Diagnostics returns the entries skipped during the last pass.
func (w *Walker) Diagnostics() []Diagnostic { return w.diags }

func (w *Walker) report(entry string, err error) {
	log.Printf("[jar] skipping %s: %v", entry, err)
	w.diags = append(w.diags, Diagnostic{Entry: entry, Err: err})
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open entry: %w", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read entry: %w", err)
	}
	return data, nil
}
