package compiler

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/futbind/futbind/errors"
	"github.com/futbind/futbind/manifest"
)

const stubManifest = `{
	"backend": "c",
	"version": "0.25.9",
	"entry_points": {
		"add": {
			"cfun": "futhark_entry_add",
			"inputs": [{"type": "i32"}, {"type": "i32"}],
			"outputs": [{"type": "i32"}]
		}
	},
	"types": {}
}`

// writeStub creates a fake futhark executable that records its argv and
// fabricates the expected artefacts at the -o stem.
func writeStub(t *testing.T, dir string, exitCode int) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub executable requires a POSIX shell")
	}

	script := `#!/bin/sh
echo "$@" > "` + filepath.Join(dir, "argv.txt") + `"
stem=""
prev=""
for a in "$@"; do
	if [ "$prev" = "-o" ]; then stem="$a"; fi
	prev="$a"
done
if [ -n "$stem" ]; then
	cat > "$stem.json" <<'MANIFEST'
` + stubManifest + `
MANIFEST
	: > "$stem.c"
	: > "$stem.h"
fi
exit ` + itoa(exitCode) + `
`
	path := filepath.Join(dir, "futhark-stub")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	return string(b)
}

func writeSource(t *testing.T, dir string) string {
	t.Helper()
	src := filepath.Join(dir, "kernels.fut")
	if err := os.WriteFile(src, []byte("entry add (a: i32) (b: i32): i32 = a + b\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return src
}

func TestCompile(t *testing.T) {
	dir := t.TempDir()
	stub := writeStub(t, dir, 0)
	src := writeSource(t, dir)

	lib, err := New(manifest.C, src).
		WithExecutable(stub).
		WithOutputDir(dir).
		WithExtraArgs("--safe").
		Compile()
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if lib == nil {
		t.Fatal("Compile returned nil library for c backend")
	}

	stem := filepath.Join(dir, "kernels")
	if lib.CFile != stem+".c" {
		t.Errorf("CFile = %q, want %q", lib.CFile, stem+".c")
	}
	if lib.HFile != stem+".h" {
		t.Errorf("HFile = %q, want %q", lib.HFile, stem+".h")
	}
	if lib.Src != src {
		t.Errorf("Src = %q, want %q", lib.Src, src)
	}
	if lib.Manifest == nil || lib.Manifest.Version != "0.25.9" {
		t.Errorf("Manifest = %+v", lib.Manifest)
	}

	// Fixed argument order: backend, extra args, -o stem, --lib src.
	argv, err := os.ReadFile(filepath.Join(dir, "argv.txt"))
	if err != nil {
		t.Fatal(err)
	}
	want := strings.Join([]string{"c", "--safe", "-o", stem, "--lib", src}, " ")
	if got := strings.TrimSpace(string(argv)); got != want {
		t.Errorf("argv = %q, want %q", got, want)
	}
}

func TestCompile_PythonBackendNoLibrary(t *testing.T) {
	dir := t.TempDir()
	stub := writeStub(t, dir, 0)
	src := writeSource(t, dir)

	for _, backend := range []manifest.Backend{manifest.Python, manifest.PyOpenCL} {
		t.Run(backend.String(), func(t *testing.T) {
			lib, err := New(backend, src).
				WithExecutable(stub).
				WithOutputDir(dir).
				Compile()
			if err != nil {
				t.Fatalf("Compile failed: %v", err)
			}
			if lib != nil {
				t.Errorf("Compile = %+v, want nil library", lib)
			}
		})
	}
}

func TestCompile_NonZeroExit(t *testing.T) {
	dir := t.TempDir()
	stub := writeStub(t, dir, 2)
	src := writeSource(t, dir)

	_, err := New(manifest.C, src).
		WithExecutable(stub).
		WithOutputDir(dir).
		Compile()
	if err == nil {
		t.Fatal("Compile succeeded, want CompilationFailed")
	}
	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("error is %T, want *errors.Error", err)
	}
	if e.Kind != errors.KindCompilationFailed {
		t.Errorf("Kind = %v, want %v", e.Kind, errors.KindCompilationFailed)
	}
}

func TestCompile_ExecutableNotFound(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir)

	_, err := New(manifest.C, src).
		WithExecutable(filepath.Join(dir, "no-such-compiler")).
		WithOutputDir(dir).
		Compile()
	if err == nil {
		t.Fatal("Compile succeeded, want IO error")
	}
	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("error is %T, want *errors.Error", err)
	}
	if e.Kind != errors.KindIO {
		t.Errorf("Kind = %v, want %v", e.Kind, errors.KindIO)
	}
}

func TestCompile_MissingManifest(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir)

	// Stub that succeeds without producing artefacts.
	script := "#!/bin/sh\nexit 0\n"
	stub := filepath.Join(dir, "noop-stub")
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	_, err := New(manifest.C, src).
		WithExecutable(stub).
		WithOutputDir(dir).
		Compile()
	if err == nil {
		t.Fatal("Compile succeeded, want manifest read error")
	}
	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("error is %T, want *errors.Error", err)
	}
	if e.Kind != errors.KindIO {
		t.Errorf("Kind = %v, want %v", e.Kind, errors.KindIO)
	}
}

func TestStem_DefaultOutputDir(t *testing.T) {
	c := New(manifest.C, filepath.Join("some", "dir", "prog.fut"))
	want := filepath.Join("some", "dir", "prog")
	if got := c.stem(); got != want {
		t.Errorf("stem = %q, want %q", got, want)
	}
}
