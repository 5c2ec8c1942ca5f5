package graph

import "jarmap/internal/classfile"

// Node is one method in the call graph, keyed by "DeclaringType.methodName".
// The key deliberately omits the parameter descriptor, so overloads of the
// same name collapse into a single node.
//
// Class and Method are nil for external methods: call targets whose
// defining class is not present in the analyzed archive. Caller and callee
// lists are back-references into the owning builder's node table; edges
// appear once per observed call site, so the graph is a multigraph.
type Node struct {
	Key     string
	Class   *classfile.ClassFile
	Method  *classfile.Member
	Callers []*Node
	Callees []*Node
}

// InArchive reports whether the method's body was found in the analyzed
// archive.
func (n *Node) InArchive() bool { return n.Method != nil }

// Relation names used by the persistent store.
const (
	RelationCalls = "calls"
)
