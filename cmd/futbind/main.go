package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/futbind/futbind"
	"github.com/futbind/futbind/compiler"
	"github.com/futbind/futbind/generate"
	"github.com/futbind/futbind/link"
	"github.com/futbind/futbind/manifest"
)

func main() {
	var (
		src          = flag.String("src", "", "Futhark source file")
		backendName  = flag.String("backend", "c", "code-generation backend (c, cuda, opencl, multicore, python, pyopencl)")
		dest         = flag.String("o", "", "destination binding path (.rs or .ml), relative to -out-dir")
		outDir       = flag.String("out-dir", "", "build output directory (defaults to $FUTBIND_OUT_DIR, then .)")
		exe          = flag.String("exe", "", "futhark executable override")
		moduleName   = flag.String("module", "", "emitted module name override")
		manifestPath = flag.String("manifest", "", "inspect or generate from an existing manifest; skips compile and link")
		project      = flag.String("project", "", "archive name suffix (libbindings_<project>.a); defaults to the source stem")
		list         = flag.Bool("list", false, "print entry points and types, then exit")
		interactive  = flag.Bool("i", false, "interactive manifest explorer")
		verbose      = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	if *src == "" && *manifestPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: futbind -src <file.fut> -backend <name> -o <bindings.rs|bindings.ml>")
		fmt.Fprintln(os.Stderr, "       futbind -src <file.fut> -backend <name> -list")
		fmt.Fprintln(os.Stderr, "       futbind -manifest <file.json> -i  (interactive explorer)")
		os.Exit(1)
	}

	if *verbose {
		l, err := zap.NewDevelopment()
		if err == nil {
			compiler.SetLogger(l)
			generate.SetLogger(l)
			link.SetLogger(l)
		}
	}

	backend, err := futbind.ParseBackend(*backendName)
	if err != nil {
		fatal(err)
	}

	load := func() (*manifest.Manifest, string, error) {
		return loadManifest(backend, *src, *manifestPath, *outDir, *exe)
	}

	switch {
	case *interactive:
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fatal(fmt.Errorf("interactive mode needs a terminal on stdout"))
		}
		if err := runInteractive(load); err != nil {
			fatal(err)
		}

	case *list:
		m, source, err := load()
		if err != nil {
			fatal(err)
		}
		printManifest(os.Stdout, m, source)

	default:
		if *dest == "" {
			fatal(fmt.Errorf("-o is required (destination binding path)"))
		}
		if *manifestPath != "" {
			if err := generateOnly(*manifestPath, *dest, *outDir, *moduleName); err != nil {
				fatal(err)
			}
			return
		}

		opts := []futbind.BuildOption{futbind.WithDirectives(os.Stdout)}
		if *outDir != "" {
			opts = append(opts, futbind.WithOutputDir(*outDir))
		}
		if *exe != "" {
			opts = append(opts, futbind.WithExecutable(*exe))
		}
		if *moduleName != "" {
			opts = append(opts, futbind.WithModuleName(*moduleName))
		}
		if *project != "" {
			opts = append(opts, futbind.WithProject(*project))
		}
		if err := futbind.Build(backend, *src, *dest, opts...); err != nil {
			fatal(err)
		}
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// loadManifest reads an existing manifest or compiles the source to obtain
// one. It returns the manifest and the file it came from.
func loadManifest(backend futbind.Backend, src, manifestPath, outDir, exe string) (*manifest.Manifest, string, error) {
	if manifestPath != "" {
		m, err := manifest.ParseFile(manifestPath)
		return m, manifestPath, err
	}

	drv := compiler.New(backend, src)
	if outDir != "" {
		drv.WithOutputDir(outDir)
	}
	if exe != "" {
		drv.WithExecutable(exe)
	}
	lib, err := drv.Compile()
	if err != nil {
		return nil, "", err
	}
	if lib == nil {
		return nil, "", fmt.Errorf("backend %s emits no manifest", backend)
	}
	return lib.Manifest, lib.Src, nil
}

// generateOnly emits bindings from an existing manifest without compiling
// or linking. The C artefacts are assumed to sit next to the manifest.
func generateOnly(manifestPath, dest, outDir, moduleName string) error {
	m, err := manifest.ParseFile(manifestPath)
	if err != nil {
		return err
	}

	stem := strings.TrimSuffix(manifestPath, filepath.Ext(manifestPath))
	lib := &compiler.Library{
		Manifest: m,
		CFile:    stem + ".c",
		HFile:    stem + ".h",
		Src:      manifestPath,
	}

	if outDir == "" {
		outDir = os.Getenv(futbind.OutDirEnv)
	}
	if outDir != "" && !filepath.IsAbs(dest) {
		dest = filepath.Join(outDir, dest)
	}

	var gopts []generate.Option
	if moduleName != "" {
		gopts = append(gopts, generate.WithModuleName(moduleName))
	}
	cfg, err := generate.NewConfig(dest, gopts...)
	if err != nil {
		return err
	}
	gen, err := cfg.Detect()
	if err != nil {
		return err
	}
	return gen.Generate(lib, cfg)
}

func printManifest(w *os.File, m *manifest.Manifest, source string) {
	fmt.Fprintf(w, "Manifest: %s\n", source)
	fmt.Fprintf(w, "Backend: %s (futhark %s)\n", m.Backend, m.Version)

	fmt.Fprintf(w, "\nEntry points:\n")
	for _, name := range m.EntryPointNames() {
		fmt.Fprintf(w, "  %s\n", entrySignature(name, m.EntryPoints[name]))
	}

	if len(m.Types) > 0 {
		fmt.Fprintf(w, "\nTypes:\n")
		for _, name := range m.TypeNames() {
			fmt.Fprintf(w, "  %-12s %s\n", name, typeSummary(m.Types[name]))
		}
	}
}

func entrySignature(name string, ep manifest.EntryPoint) string {
	params := make([]string, 0, len(ep.Inputs))
	for i, in := range ep.Inputs {
		pname := in.Name
		if pname == "" {
			pname = fmt.Sprintf("arg%d", i)
		}
		ty := in.Type
		if in.Unique {
			ty = "*" + ty
		}
		params = append(params, pname+": "+ty)
	}
	rets := make([]string, 0, len(ep.Outputs))
	for _, out := range ep.Outputs {
		rets = append(rets, out.Type)
	}
	sig := name + "(" + strings.Join(params, ", ") + ")"
	if len(rets) > 0 {
		sig += " -> " + strings.Join(rets, ", ")
	}
	return sig
}

func typeSummary(t manifest.Type) string {
	switch t := t.(type) {
	case *manifest.ArrayType:
		return fmt.Sprintf("%d-d array of %s", t.Rank, t.Elem)
	case *manifest.OpaqueType:
		switch {
		case t.Record != nil:
			fields := make([]string, 0, len(t.Record.Fields))
			for _, f := range t.Record.Fields {
				fields = append(fields, f.Name)
			}
			return "opaque record (" + strings.Join(fields, ", ") + ")"
		case t.Sum != nil:
			variants := make([]string, 0, len(t.Sum.Variants))
			for _, v := range t.Sum.Variants {
				variants = append(variants, v.Name)
			}
			return "opaque sum (" + strings.Join(variants, " | ") + ")"
		default:
			return "opaque"
		}
	default:
		return "unknown"
	}
}
