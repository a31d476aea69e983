package link

import (
	"bytes"
	stderrors "errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"

	"github.com/futbind/futbind/compiler"
	"github.com/futbind/futbind/errors"
	"github.com/futbind/futbind/manifest"
)

// writeTool creates a stub compiler or archiver that records its argv and
// touches its output file.
func writeTool(t *testing.T, dir, name, outFlag string, exitCode int) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub tools require a POSIX shell")
	}

	script := `#!/bin/sh
echo "$@" > "` + filepath.Join(dir, name+"-argv.txt") + `"
out=""
prev=""
for a in "$@"; do
	if [ "$prev" = "` + outFlag + `" ]; then out="$a"; fi
	prev="$a"
done
if [ -n "$out" ]; then : > "$out"; fi
exit `
	if exitCode == 0 {
		script += "0\n"
	} else {
		script += "1\n"
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func testLib(t *testing.T, dir, backend string) *compiler.Library {
	t.Helper()

	doc := `{"backend": "` + backend + `", "version": "0.25.1", "entry_points": {}, "types": {}}`
	m, err := manifest.Parse([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}

	cfile := filepath.Join(dir, "kernels.c")
	if err := os.WriteFile(cfile, []byte("int futhark_dummy(void) { return 0; }\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return &compiler.Library{
		Manifest: m,
		CFile:    cfile,
		HFile:    filepath.Join(dir, "kernels.h"),
		Src:      filepath.Join(dir, "kernels.fut"),
	}
}

func TestLink(t *testing.T) {
	dir := t.TempDir()
	cc := writeTool(t, dir, "cc-stub", "-o", 0)
	// ar has no -o flag; rcs names the archive as the second argument.
	ar := writeTool(t, dir, "ar-stub", "rcs", 0)
	lib := testLib(t, dir, "cuda")

	d, err := Link(lib, "kernels", WithCompiler(cc), WithArchiver(ar))
	if err != nil {
		t.Fatalf("Link failed: %v", err)
	}

	wantArchive := filepath.Join(dir, "libbindings_kernels.a")
	if d.Archive != wantArchive {
		t.Errorf("Archive = %q, want %q", d.Archive, wantArchive)
	}
	if d.SearchPath != dir {
		t.Errorf("SearchPath = %q, want %q", d.SearchPath, dir)
	}
	if want := []string{"cuda", "cudart", "nvrtc", "m"}; !reflect.DeepEqual(d.Libs, want) {
		t.Errorf("Libs = %v, want %v", d.Libs, want)
	}

	// cc: warning suppression, compile-only, object path, then the source.
	object := filepath.Join(dir, "kernels.o")
	argv, err := os.ReadFile(filepath.Join(dir, "cc-stub-argv.txt"))
	if err != nil {
		t.Fatal(err)
	}
	want := strings.Join([]string{"-Wno-unused-parameter", "-c", "-o", object, lib.CFile}, " ")
	if got := strings.TrimSpace(string(argv)); got != want {
		t.Errorf("cc argv = %q, want %q", got, want)
	}

	argv, err = os.ReadFile(filepath.Join(dir, "ar-stub-argv.txt"))
	if err != nil {
		t.Fatal(err)
	}
	want = strings.Join([]string{"rcs", wantArchive, object}, " ")
	if got := strings.TrimSpace(string(argv)); got != want {
		t.Errorf("ar argv = %q, want %q", got, want)
	}
}

func TestLink_NoSystemLibsForCBackend(t *testing.T) {
	dir := t.TempDir()
	cc := writeTool(t, dir, "cc-stub", "-o", 0)
	ar := writeTool(t, dir, "ar-stub", "rcs", 0)

	d, err := Link(testLib(t, dir, "c"), "kernels", WithCompiler(cc), WithArchiver(ar))
	if err != nil {
		t.Fatalf("Link failed: %v", err)
	}
	if len(d.Libs) != 0 {
		t.Errorf("Libs = %v, want none", d.Libs)
	}
}

func TestLink_ExtraFlagsAndOutputDir(t *testing.T) {
	dir := t.TempDir()
	out := t.TempDir()
	cc := writeTool(t, dir, "cc-stub", "-o", 0)
	ar := writeTool(t, dir, "ar-stub", "rcs", 0)
	lib := testLib(t, dir, "opencl")

	d, err := Link(lib, "kernels",
		WithCompiler(cc),
		WithArchiver(ar),
		WithOutputDir(out),
		WithFlags("-O2"))
	if err != nil {
		t.Fatalf("Link failed: %v", err)
	}
	if d.SearchPath != out {
		t.Errorf("SearchPath = %q, want %q", d.SearchPath, out)
	}
	if want := []string{"OpenCL", "m"}; !reflect.DeepEqual(d.Libs, want) {
		t.Errorf("Libs = %v, want %v", d.Libs, want)
	}

	argv, err := os.ReadFile(filepath.Join(dir, "cc-stub-argv.txt"))
	if err != nil {
		t.Fatal(err)
	}
	object := filepath.Join(out, "kernels.o")
	want := strings.Join([]string{"-Wno-unused-parameter", "-c", "-o", object, "-O2", lib.CFile}, " ")
	if got := strings.TrimSpace(string(argv)); got != want {
		t.Errorf("cc argv = %q, want %q", got, want)
	}
}

func TestLink_CompilerFails(t *testing.T) {
	dir := t.TempDir()
	cc := writeTool(t, dir, "cc-stub", "-o", 1)
	ar := writeTool(t, dir, "ar-stub", "rcs", 0)

	_, err := Link(testLib(t, dir, "c"), "kernels", WithCompiler(cc), WithArchiver(ar))
	if err == nil {
		t.Fatal("Link succeeded, want compilation failure")
	}
	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("error is %T, want *errors.Error", err)
	}
	if e.Kind != errors.KindCompilationFailed {
		t.Errorf("Kind = %v, want %v", e.Kind, errors.KindCompilationFailed)
	}
	if e.Phase != errors.PhaseLink {
		t.Errorf("Phase = %v, want %v", e.Phase, errors.PhaseLink)
	}
}

func TestLink_CompilerNotFound(t *testing.T) {
	dir := t.TempDir()
	ar := writeTool(t, dir, "ar-stub", "rcs", 0)

	_, err := Link(testLib(t, dir, "c"), "kernels",
		WithCompiler(filepath.Join(dir, "no-such-cc")),
		WithArchiver(ar))
	if err == nil {
		t.Fatal("Link succeeded, want IO error")
	}
	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("error is %T, want *errors.Error", err)
	}
	if e.Kind != errors.KindIO {
		t.Errorf("Kind = %v, want %v", e.Kind, errors.KindIO)
	}
}

func TestDirectives_Print(t *testing.T) {
	d := &Directives{
		Archive:    "/out/libbindings_kernels.a",
		SearchPath: "/out",
		Libs:       []string{"cuda", "cudart", "nvrtc", "m"},
	}
	var buf bytes.Buffer
	d.Print(&buf)

	want := `link-archive=/out/libbindings_kernels.a
link-search=/out
link-lib=cuda
link-lib=cudart
link-lib=nvrtc
link-lib=m
`
	if buf.String() != want {
		t.Errorf("Print output:\n%s\nwant:\n%s", buf.String(), want)
	}
}
