package jar

import "jarmap/internal/classfile"

// Visitor consumes decoded classes during one archive pass and renders a
// textual result when the pass completes. One visitor instance is scoped
// to one analysis; implementations own their accumulated state.
type Visitor interface {
	// VisitClass is called once per successfully decoded class, in archive
	// entry order. A returned error is recorded as a per-entry diagnostic
	// and does not abort the pass.
	VisitClass(cf *classfile.ClassFile) error

	// Result renders the accumulated output after the pass completes.
	Result() string
}

// Linker is implemented by visitors that need a second pass once every
// class in the archive has been seen, such as the call-graph builder.
type Linker interface {
	Link()
}
