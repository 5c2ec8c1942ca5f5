package report

import (
	"strings"

	"jarmap/internal/classfile"
)

type flagName struct {
	bit  uint16
	name string
}

// Orderings follow source-level modifier order so rendered declarations
// read naturally.
var methodFlagNames = []flagName{
	{classfile.AccPublic, "public"},
	{classfile.AccPrivate, "private"},
	{classfile.AccProtected, "protected"},
	{classfile.AccStatic, "static"},
	{classfile.AccFinal, "final"},
	{classfile.AccSynchronized, "synchronized"},
	{classfile.AccNative, "native"},
	{classfile.AccAbstract, "abstract"},
	{classfile.AccStrict, "strictfp"},
}

var fieldFlagNames = []flagName{
	{classfile.AccPublic, "public"},
	{classfile.AccPrivate, "private"},
	{classfile.AccProtected, "protected"},
	{classfile.AccStatic, "static"},
	{classfile.AccFinal, "final"},
	{classfile.AccVolatile, "volatile"},
	{classfile.AccTransient, "transient"},
}

func renderFlags(flags uint16, names []flagName) string {
	var words []string
	for _, f := range names {
		if flags&f.bit != 0 {
			words = append(words, f.name)
		}
	}
	return strings.Join(words, " ")
}

// fieldDecl renders a field as "public static int count".
func fieldDecl(f *classfile.Member) string {
	decl := classfile.FieldType(f.Descriptor) + " " + f.Name
	if mods := renderFlags(f.AccessFlags, fieldFlagNames); mods != "" {
		decl = mods + " " + decl
	}
	return decl
}

// methodDecl renders a method signature. Constructors get the simple class
// name in place of the internal <init> name and no return type, mirroring
// source-level constructor syntax.
func methodDecl(cf *classfile.ClassFile, m *classfile.Member) string {
	var sig string
	if m.IsConstructor() {
		sig = classfile.MethodSignature(cf.SimpleName(), m.Descriptor)
		sig = strings.TrimPrefix(sig, "void ")
	} else {
		sig = classfile.MethodSignature(m.Name, m.Descriptor)
	}
	if mods := renderFlags(m.AccessFlags, methodFlagNames); mods != "" {
		sig = mods + " " + sig
	}
	return sig
}
