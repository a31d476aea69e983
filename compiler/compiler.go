package compiler

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/futbind/futbind/errors"
	"github.com/futbind/futbind/manifest"
)

// DefaultExecutable is the well-known name of the upstream compiler.
const DefaultExecutable = "futhark"

// Library is the artefact of a successful compilation: the parsed manifest
// plus the paths of the emitted C source and header and the original
// Futhark source. It is consumed read-only by code generation and linking.
type Library struct {
	Manifest *manifest.Manifest
	CFile    string
	HFile    string
	Src      string
}

// Compiler invokes the futhark executable to produce a C library and its
// manifest.
type Compiler struct {
	exe       string
	backend   manifest.Backend
	src       string
	outputDir string
	extraArgs []string
}

// New creates a driver for the given backend and Futhark source file. The
// output directory defaults to the source file's directory.
func New(backend manifest.Backend, src string) *Compiler {
	return &Compiler{
		exe:       DefaultExecutable,
		backend:   backend,
		src:       src,
		outputDir: filepath.Dir(src),
	}
}

// WithExecutable overrides the upstream compiler executable name.
func (c *Compiler) WithExecutable(name string) *Compiler {
	c.exe = name
	return c
}

// WithOutputDir sets the directory receiving the generated artefacts.
func (c *Compiler) WithOutputDir(dir string) *Compiler {
	c.outputDir = dir
	return c
}

// WithExtraArgs passes additional arguments to the upstream compiler,
// placed between the backend name and the output options.
func (c *Compiler) WithExtraArgs(args ...string) *Compiler {
	c.extraArgs = args
	return c
}

// stem returns the output path prefix: the output directory joined with
// the source file's name without extension.
func (c *Compiler) stem() string {
	base := filepath.Base(c.src)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(c.outputDir, base)
}

// Compile runs the upstream compiler and parses the resulting manifest.
// It blocks until the subprocess exits; the subprocess inherits the
// caller's standard streams.
//
// For backends that emit a standalone script instead of a C library
// (Python, PyOpenCL) it returns (nil, nil).
func (c *Compiler) Compile() (*Library, error) {
	stem := c.stem()

	args := make([]string, 0, len(c.extraArgs)+5)
	args = append(args, c.backend.String())
	args = append(args, c.extraArgs...)
	args = append(args, "-o", stem, "--lib", c.src)

	Logger().Debug("invoking upstream compiler",
		zap.String("exe", c.exe),
		zap.Strings("args", args))

	cmd := exec.Command(c.exe, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, errors.CompilationFailed(c.exe, exitErr.ExitCode())
		}
		return nil, errors.IO(errors.PhaseCompile, err, "spawn "+c.exe)
	}

	if !c.backend.EmitsLibrary() {
		Logger().Debug("backend emits no C library, skipping manifest",
			zap.String("backend", c.backend.String()))
		return nil, nil
	}

	m, err := manifest.ParseFile(stem + ".json")
	if err != nil {
		return nil, err
	}

	return &Library{
		Manifest: m,
		CFile:    stem + ".c",
		HFile:    stem + ".h",
		Src:      c.src,
	}, nil
}
