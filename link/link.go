package link

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/futbind/futbind/compiler"
	"github.com/futbind/futbind/errors"
)

// Directives tell the surrounding build how to link against the archive:
// where it is, where to search, and which system libraries the backend
// needs at link time.
type Directives struct {
	Archive    string
	SearchPath string
	Libs       []string
}

// Print writes the directives one per line, in a fixed order, for a build
// script to consume.
func (d *Directives) Print(w io.Writer) {
	fmt.Fprintf(w, "link-archive=%s\n", d.Archive)
	fmt.Fprintf(w, "link-search=%s\n", d.SearchPath)
	for _, lib := range d.Libs {
		fmt.Fprintf(w, "link-lib=%s\n", lib)
	}
}

type linker struct {
	cc        string
	ar        string
	outputDir string
	flags     []string
}

// Option configures the link step.
type Option func(*linker)

// WithCompiler overrides the C compiler. Defaults to $CC, then "cc".
func WithCompiler(cc string) Option {
	return func(l *linker) { l.cc = cc }
}

// WithArchiver overrides the archiver. Defaults to $AR, then "ar".
func WithArchiver(ar string) Option {
	return func(l *linker) { l.ar = ar }
}

// WithOutputDir places the object and archive in dir instead of next to
// the library's C file.
func WithOutputDir(dir string) Option {
	return func(l *linker) { l.outputDir = dir }
}

// WithFlags appends extra flags to the C compiler invocation.
func WithFlags(flags ...string) Option {
	return func(l *linker) { l.flags = append(l.flags, flags...) }
}

// Link compiles the library's C file and archives it as
// libbindings_<project>.a, returning the directives the surrounding build
// needs. The generated C triggers unused-parameter warnings, so those are
// suppressed.
func Link(lib *compiler.Library, project string, opts ...Option) (*Directives, error) {
	l := &linker{
		cc:        "cc",
		ar:        "ar",
		outputDir: filepath.Dir(lib.CFile),
	}
	if env := os.Getenv("CC"); env != "" {
		l.cc = env
	}
	if env := os.Getenv("AR"); env != "" {
		l.ar = env
	}
	for _, opt := range opts {
		opt(l)
	}

	base := filepath.Base(lib.CFile)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	object := filepath.Join(l.outputDir, stem+".o")

	args := []string{"-Wno-unused-parameter", "-c", "-o", object}
	args = append(args, l.flags...)
	args = append(args, lib.CFile)
	if err := l.run(l.cc, args); err != nil {
		return nil, err
	}

	archive := filepath.Join(l.outputDir, "libbindings_"+project+".a")
	if err := l.run(l.ar, []string{"rcs", archive, object}); err != nil {
		return nil, err
	}

	d := &Directives{
		Archive:    archive,
		SearchPath: l.outputDir,
		Libs:       lib.Manifest.Backend.RequiredLibs(),
	}

	Logger().Debug("archived native bindings",
		zap.String("archive", archive),
		zap.Strings("libs", d.Libs))

	return d, nil
}

func (l *linker) run(exe string, args []string) error {
	cmd := exec.Command(exe, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	Logger().Debug("running linker tool",
		zap.String("exe", exe),
		zap.Strings("args", args))

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			return errors.New(errors.PhaseLink, errors.KindCompilationFailed).
				Value(exitErr.ExitCode()).
				Detail("%s exited with status %d", exe, exitErr.ExitCode()).
				Build()
		}
		return errors.IO(errors.PhaseLink, err, "run "+exe)
	}
	return nil
}
