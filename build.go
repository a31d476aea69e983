package futbind

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/futbind/futbind/compiler"
	"github.com/futbind/futbind/generate"
	"github.com/futbind/futbind/link"
	"github.com/futbind/futbind/manifest"
)

// Backend selects the Futhark code-generation backend.
type Backend = manifest.Backend

// The supported backends, re-exported for build scripts.
const (
	C         = manifest.C
	CUDA      = manifest.CUDA
	OpenCL    = manifest.OpenCL
	Multicore = manifest.Multicore
	Python    = manifest.Python
	PyOpenCL  = manifest.PyOpenCL
)

// ParseBackend maps a backend's wire name onto its value.
func ParseBackend(name string) (Backend, error) {
	return manifest.ParseBackend(name)
}

// Library is the artefact of a successful compilation.
type Library = compiler.Library

// OutDirEnv names the environment variable supplying the build output
// directory when no option sets one.
const OutDirEnv = "FUTBIND_OUT_DIR"

type buildConfig struct {
	outputDir  string
	exe        string
	extraArgs  []string
	project    string
	moduleName string
	directives io.Writer
}

// BuildOption configures a Build run.
type BuildOption func(*buildConfig)

// WithOutputDir sets the build output directory receiving every artefact.
// Defaults to $FUTBIND_OUT_DIR, then the current directory.
func WithOutputDir(dir string) BuildOption {
	return func(c *buildConfig) { c.outputDir = dir }
}

// WithExecutable overrides the upstream compiler executable name.
func WithExecutable(name string) BuildOption {
	return func(c *buildConfig) { c.exe = name }
}

// WithExtraArgs passes additional arguments to the upstream compiler.
func WithExtraArgs(args ...string) BuildOption {
	return func(c *buildConfig) { c.extraArgs = args }
}

// WithProject sets the archive name suffix (libbindings_<project>.a).
// Defaults to the source file's stem.
func WithProject(name string) BuildOption {
	return func(c *buildConfig) { c.project = name }
}

// WithModuleName overrides the emitted module's name.
func WithModuleName(name string) BuildOption {
	return func(c *buildConfig) { c.moduleName = name }
}

// WithDirectives prints the link directives to w after a successful build,
// one per line, for the surrounding build system to consume.
func WithDirectives(w io.Writer) BuildOption {
	return func(c *buildConfig) { c.directives = w }
}

// Build runs the full pipeline: compile src with the given backend, emit
// bindings at dest, then compile and archive the C library. dest is
// relative to the build output directory unless absolute; it is joined
// with the output directory exactly once.
//
// Backends without a C library (Python, PyOpenCL) stop after compilation:
// there is nothing to bind or link, and that is not an error.
func Build(backend Backend, src, dest string, opts ...BuildOption) error {
	cfg := &buildConfig{
		outputDir: os.Getenv(OutDirEnv),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.outputDir == "" {
		cfg.outputDir = "."
	}
	if cfg.project == "" {
		base := filepath.Base(src)
		cfg.project = strings.TrimSuffix(base, filepath.Ext(base))
	}

	drv := compiler.New(backend, src).WithOutputDir(cfg.outputDir)
	if cfg.exe != "" {
		drv.WithExecutable(cfg.exe)
	}
	if len(cfg.extraArgs) > 0 {
		drv.WithExtraArgs(cfg.extraArgs...)
	}
	lib, err := drv.Compile()
	if err != nil {
		return err
	}
	if lib == nil {
		return nil
	}

	if !filepath.IsAbs(dest) {
		dest = filepath.Join(cfg.outputDir, dest)
	}
	var gopts []generate.Option
	if cfg.moduleName != "" {
		gopts = append(gopts, generate.WithModuleName(cfg.moduleName))
	}
	gcfg, err := generate.NewConfig(dest, gopts...)
	if err != nil {
		return err
	}
	gen, err := gcfg.Detect()
	if err != nil {
		return err
	}
	if err := gen.Generate(lib, gcfg); err != nil {
		return err
	}

	d, err := link.Link(lib, cfg.project, link.WithOutputDir(cfg.outputDir))
	if err != nil {
		return err
	}
	if cfg.directives != nil {
		d.Print(cfg.directives)
	}
	return nil
}
