package graph

import (
	"log"
	"strings"

	"jarmap/internal/bytecode"
	"jarmap/internal/classfile"
)

const separator = "================================"

// Builder accumulates method-call nodes across one archive pass and links
// caller/callee edges from invoke instructions. It is a jar.Visitor with a
// linking phase; one Builder is scoped to one analysis and assumes a
// single writer.
type Builder struct {
	nodes map[string]*Node
	// order doubles as the linking work queue: it lists node keys in
	// discovery order and keeps growing while Link resolves callees, so
	// externally discovered nodes still appear in the rendered output.
	order []string
}

// NewBuilder creates an empty call-graph builder.
func NewBuilder() *Builder {
	return &Builder{nodes: make(map[string]*Node)}
}

// VisitClass records one node per concrete method of the class. Abstract
// and native methods have no bytecode and are skipped.
func (b *Builder) VisitClass(cf *classfile.ClassFile) error {
	for i := range cf.Methods {
		m := &cf.Methods[i]
		if m.IsAbstract() || m.IsNative() {
			continue
		}
		key := cf.ClassName() + "." + m.Name
		if _, ok := b.nodes[key]; ok {
			continue
		}
		b.add(&Node{Key: key, Class: cf, Method: m})
	}
	return nil
}

func (b *Builder) add(n *Node) {
	b.nodes[n.Key] = n
	b.order = append(b.order, n.Key)
}

// external fetches the node for key, creating an external placeholder when
// the method was not defined in the archive.
func (b *Builder) external(key string) *Node {
	if n, ok := b.nodes[key]; ok {
		return n
	}
	n := &Node{Key: key}
	b.add(n)
	return n
}

// Link walks every collected method's instruction stream and connects
// caller/callee edges for the invoke opcode family. The key list is worked
// by index rather than over a snapshot: resolving a callee may append a
// new external key, and already-processed positions must not be revisited.
// External nodes have no code, so newly appended keys terminate the loop
// naturally.
func (b *Builder) Link() {
	for i := 0; i < len(b.order); i++ {
		n := b.nodes[b.order[i]]
		if !n.InArchive() || n.Method.Code == nil {
			continue
		}
		d := bytecode.NewDecoder(n.Method.Code.Bytecode)
		for {
			in, ok, err := d.Next()
			if err != nil {
				log.Printf("[graph] %s: stopping instruction scan: %v", n.Key, err)
				break
			}
			if !ok {
				break
			}
			if !in.Opcode.IsInvoke() {
				continue
			}
			key, err := b.calleeKey(n.Class.ConstantPool, &in)
			if err != nil {
				log.Printf("[graph] %s: unresolved call target: %v", n.Key, err)
				continue
			}
			callee := b.external(key)
			callee.Callers = append(callee.Callers, n)
			n.Callees = append(n.Callees, callee)
		}
	}
}

// calleeKey resolves the invoked method's declaring type and name from the
// caller's constant pool.
func (b *Builder) calleeKey(cp classfile.ConstantPool, in *bytecode.Instruction) (string, error) {
	idx, ok := in.CPIndex()
	if !ok {
		return "", classfile.ErrUnresolvedSymbol
	}
	class, name, err := cp.MethodRef(idx)
	if err != nil {
		return "", err
	}
	return class + "." + name, nil
}

// Nodes returns every node in discovery order.
func (b *Builder) Nodes() []*Node {
	out := make([]*Node, len(b.order))
	for i, key := range b.order {
		out[i] = b.nodes[key]
	}
	return out
}

// Result renders one block per method: the key, its callers, then its
// callees, each indented by a tab.
func (b *Builder) Result() string {
	var sb strings.Builder
	for _, key := range b.order {
		n := b.nodes[key]
		sb.WriteString(separator + "\n")
		sb.WriteString("Method name:\t")
		sb.WriteString(n.Key)
		sb.WriteString("\nCallers:\n")
		for _, caller := range n.Callers {
			sb.WriteByte('\t')
			sb.WriteString(caller.Key)
			sb.WriteByte('\n')
		}
		sb.WriteString("Callees:\n")
		for _, callee := range n.Callees {
			sb.WriteByte('\t')
			sb.WriteString(callee.Key)
			sb.WriteByte('\n')
		}
	}
	sb.WriteByte('\n')
	return sb.String()
}
