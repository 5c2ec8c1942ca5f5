package report_test

import (
	"encoding/binary"
	"strings"
	"testing"

	"jarmap/internal/classfile"
	"jarmap/internal/classfile/cftest"
	"jarmap/internal/report"
)

func u16be(v uint16) []byte {
	return binary.BigEndian.AppendUint16(nil, v)
}

func TestDisassembleClass(t *testing.T) {
	b := cftest.NewBuilder("com.example.Maker")
	b.AddField(classfile.AccPrivate, "label", "Ljava/lang/String;")
	b.AddField(classfile.AccSynthetic, "this$0", "Lcom/example/Outer;")

	thingClass := b.ClassRef("com.example.Thing")
	thingInit := b.MethodRef("com.example.Thing", "<init>", "()V")

	var code []byte
	code = append(code, 187) // new
	code = append(code, u16be(thingClass)...)
	code = append(code, 89)  // dup
	code = append(code, 183) // invokespecial
	code = append(code, u16be(thingInit)...)
	code = append(code, 87)  // pop
	code = append(code, 177) // return

	b.AddMethod(cftest.Method{
		Flags:      classfile.AccPublic,
		Name:       "make",
		Descriptor: "()V",
		Code:       code,
	})
	b.AddMethod(cftest.Method{
		Flags:      classfile.AccPublic | classfile.AccAbstract,
		Name:       "describe",
		Descriptor: "()Ljava/lang/String;",
	})
	cf := parseClass(t, b)

	v := report.NewDisasmVisitor()
	if err := v.VisitClass(cf); err != nil {
		t.Fatalf("VisitClass: %v", err)
	}
	out := v.Result()

	for _, want := range []string{
		report.Separator + "\n",
		"package com.example;\n",
		"public class Maker {\n",
		"\tprivate java.lang.String label;\n",
		"\tpublic void make() {\n",
		"\t\t// 0   : new                  <com.example.Thing>\n",
		"\t\t// 3   : dup                  \n",
		"\t\t// 4   : invokespecial        com.example.Thing.<init> ()V\n",
		"\t\t// 7   : pop                  \n",
		"\t\t// 8   : return               \n",
		"\tpublic abstract java.lang.String describe();\n",
		"}\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("disassembly missing %q in:\n%s", want, out)
		}
	}

	// Synthetic fields are compiler artifacts and stay hidden.
	if strings.Contains(out, "this$0") {
		t.Errorf("disassembly lists synthetic field:\n%s", out)
	}
}

func TestDisassembleInterface(t *testing.T) {
	b := cftest.NewBuilder("com.example.Shape")
	b.SetFlags(classfile.AccPublic | classfile.AccInterface | classfile.AccAbstract)
	b.AddMethod(cftest.Method{
		Flags:      classfile.AccPublic | classfile.AccAbstract,
		Name:       "area",
		Descriptor: "()D",
	})
	cf := parseClass(t, b)

	v := report.NewDisasmVisitor()
	if err := v.VisitClass(cf); err != nil {
		t.Fatalf("VisitClass: %v", err)
	}
	out := v.Result()

	if !strings.Contains(out, "public interface Shape {\n") {
		t.Errorf("missing interface declaration:\n%s", out)
	}
	if !strings.Contains(out, "\tpublic abstract double area();\n") {
		t.Errorf("missing abstract method line:\n%s", out)
	}
}

func TestDisassembleExtendsImplements(t *testing.T) {
	b := cftest.NewBuilder("com.example.Impl")
	b.SetSuper("com.example.Base")
	b.AddInterface("java.io.Closeable")
	b.AddInterface("java.lang.Runnable")
	cf := parseClass(t, b)

	v := report.NewDisasmVisitor()
	if err := v.VisitClass(cf); err != nil {
		t.Fatalf("VisitClass: %v", err)
	}
	out := v.Result()

	want := "public class Impl extends com.example.Base implements java.io.Closeable, java.lang.Runnable {"
	if !strings.Contains(out, want) {
		t.Errorf("missing declaration %q in:\n%s", want, out)
	}
}

func TestDisassembleBadBytecode(t *testing.T) {
	b := cftest.NewBuilder("Broken")
	b.AddMethod(cftest.Method{
		Flags:      classfile.AccPublic,
		Name:       "bad",
		Descriptor: "()V",
		Code:       []byte{203}, // undefined opcode
	})
	cf := parseClass(t, b)

	v := report.NewDisasmVisitor()
	if err := v.VisitClass(cf); err == nil {
		t.Error("expected error for undecodable bytecode")
	}
}
