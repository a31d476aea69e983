package generate

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/futbind/futbind/errors"
)

// Target is a host language bindings are emitted for.
type Target int

const (
	TargetRust Target = iota
	TargetOCaml
)

func (t Target) String() string {
	switch t {
	case TargetRust:
		return "rust"
	case TargetOCaml:
		return "ocaml"
	default:
		return "unknown"
	}
}

// Config holds the code-generation settings: the destination path, the
// host target inferred from its extension, and the output sink.
type Config struct {
	// Path is the destination of the emitted bindings.
	Path string

	// ModuleName is the emitted module's name. Defaults to the
	// destination's stem.
	ModuleName string

	// EmitAttributes controls whether the emitter prefixes the output
	// with lint-suppression attributes for the host language.
	EmitAttributes bool

	target Target
	out    io.Writer
}

// Option configures a Config at creation time.
type Option func(*Config)

// WithModuleName overrides the emitted module's name.
func WithModuleName(name string) Option {
	return func(c *Config) { c.ModuleName = name }
}

// WithAttributes toggles lint-suppression attributes in the output.
func WithAttributes(emit bool) Option {
	return func(c *Config) { c.EmitAttributes = emit }
}

// WithWriter redirects the output to w instead of the destination path.
// The path still selects the host target and default module name.
func WithWriter(w io.Writer) Option {
	return func(c *Config) { c.out = w }
}

// NewConfig creates a Config for the given destination. The destination's
// extension selects the host target: ".rs" for Rust, ".ml" for OCaml.
// Any other extension fails with InvalidOutputLanguage.
func NewConfig(dest string, opts ...Option) (*Config, error) {
	var target Target
	ext := filepath.Ext(dest)
	switch ext {
	case ".rs":
		target = TargetRust
	case ".ml":
		target = TargetOCaml
	default:
		return nil, errors.InvalidOutputLanguage(ext)
	}

	base := filepath.Base(dest)
	cfg := &Config{
		Path:           dest,
		ModuleName:     strings.TrimSuffix(base, ext),
		EmitAttributes: true,
		target:         target,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg, nil
}

// Detect returns the generator for the configured host target.
func (c *Config) Detect() (Generator, error) {
	switch c.target {
	case TargetRust:
		return &Rust{}, nil
	case TargetOCaml:
		return &OCaml{}, nil
	default:
		return nil, errors.InvalidOutputLanguage(filepath.Ext(c.Path))
	}
}

// Target returns the host target selected at creation time.
func (c *Config) Target() Target {
	return c.target
}

// write streams the finished module to the output sink, opening the
// destination path when no writer was injected.
func (c *Config) write(data string) error {
	w := c.out
	if w == nil {
		f, err := os.Create(c.Path)
		if err != nil {
			return errors.IO(errors.PhaseGenerate, err, "create "+c.Path)
		}
		defer f.Close()
		w = f
	}
	if _, err := io.WriteString(w, data); err != nil {
		return errors.Emit(err)
	}
	return nil
}
