package jar_test

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"jarmap/internal/classfile"
	"jarmap/internal/classfile/cftest"
	"jarmap/internal/jar"
)

// collector records the classes it is shown, in visit order.
type collector struct {
	names  []string
	linked bool
}

func (c *collector) VisitClass(cf *classfile.ClassFile) error {
	c.names = append(c.names, cf.ClassName())
	return nil
}

func (c *collector) Link()          { c.linked = true }
func (c *collector) Result() string { return "" }

func classBytes(t *testing.T, name string) []byte {
	t.Helper()
	return cftest.NewBuilder(name).Bytes()
}

// writeJar builds a zip archive at a temp path from name -> content pairs.
func writeJar(t *testing.T, entries map[string][]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.jar")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}
	zw := zip.NewWriter(f)
	for name, data := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create entry %s: %v", name, err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("write entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
	return path
}

func TestWalk(t *testing.T) {
	valid := classBytes(t, "com.example.Good")
	path := writeJar(t, map[string][]byte{
		"com/example/Good.class": valid,
		"com/example/Bad.class":  valid[:10], // truncated
		"META-INF/MANIFEST.MF":   []byte("Manifest-Version: 1.0\n"),
		"readme.txt":             []byte("not a class"),
	})

	w := jar.NewWalker(path, nil)
	c := &collector{}
	if err := w.Walk(c); err != nil {
		t.Fatalf("Walk: %v", err)
	}

	if len(c.names) != 1 || c.names[0] != "com.example.Good" {
		t.Errorf("visited = %v, want [com.example.Good]", c.names)
	}
	if !c.linked {
		t.Error("linking phase did not run")
	}

	diags := w.Diagnostics()
	if len(diags) != 1 {
		t.Fatalf("diagnostics = %d, want 1", len(diags))
	}
	if diags[0].Entry != "com/example/Bad.class" {
		t.Errorf("diagnostic entry = %q", diags[0].Entry)
	}
}

func TestWalkExcludes(t *testing.T) {
	path := writeJar(t, map[string][]byte{
		"com/example/Keep.class":      classBytes(t, "com.example.Keep"),
		"com/example/test/Drop.class": classBytes(t, "com.example.test.Drop"),
		"generated/Gen.class":         classBytes(t, "generated.Gen"),
	})

	w := jar.NewWalker(path, []string{"**/test/**", "generated/"})
	c := &collector{}
	if err := w.Walk(c); err != nil {
		t.Fatalf("Walk: %v", err)
	}

	if len(c.names) != 1 || c.names[0] != "com.example.Keep" {
		t.Errorf("visited = %v, want [com.example.Keep]", c.names)
	}
	if len(w.Diagnostics()) != 0 {
		t.Errorf("excluded entries produced diagnostics: %v", w.Diagnostics())
	}
}

func TestWalkOpenFailure(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		w := jar.NewWalker(filepath.Join(t.TempDir(), "nope.jar"), nil)
		if err := w.Walk(&collector{}); err == nil {
			t.Error("expected error for missing archive")
		}
	})

	t.Run("not a zip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "junk.jar")
		if err := os.WriteFile(path, []byte("definitely not a zip"), 0644); err != nil {
			t.Fatal(err)
		}
		w := jar.NewWalker(path, nil)
		if err := w.Walk(&collector{}); err == nil {
			t.Error("expected error for corrupt archive")
		}
	})
}

func TestVisitEntries(t *testing.T) {
	w := jar.NewWalker("", nil)
	c := &collector{}
	w.VisitEntries(c, []jar.Entry{
		{Name: "A.class", Data: classBytes(t, "A")},
		{Name: "notes.md", Data: []byte("skip me")},
		{Name: "B.class", Data: []byte{0x01}}, // undecodable
	})

	if len(c.names) != 1 || c.names[0] != "A" {
		t.Errorf("visited = %v, want [A]", c.names)
	}
	if !c.linked {
		t.Error("linking phase did not run")
	}
	if len(w.Diagnostics()) != 1 {
		t.Errorf("diagnostics = %v, want one for B.class", w.Diagnostics())
	}
}
