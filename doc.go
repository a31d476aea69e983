// Package futbind generates host-language bindings for Futhark programs.
//
// Futbind drives the Futhark compiler to produce a C library plus a JSON
// manifest describing its entry points, then emits strongly typed wrappers
// over the generated C ABI for one or more host languages.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	futbind/             Root package with Backend, Library and the Build wrapper
//	├── manifest/        Manifest data model, JSON parsing and validation
//	├── compiler/        Futhark compiler driver (subprocess invocation)
//	├── generate/        Code generation framework and host-target emitters
//	├── link/            Native C compile/archive helper and link directives
//	├── errors/          Structured error types for the build pipeline
//	└── cmd/futbind/     CLI for one-shot generation and manifest inspection
//
// # Quick Start
//
// From a build script, compile a Futhark source and emit Rust bindings:
//
//	err := futbind.Build(futbind.C, "kernels/dotprod.fut", "dotprod.rs")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// For finer control, drive the stages directly:
//
//	lib, err := compiler.New(futbind.Multicore, "dotprod.fut").
//	    WithOutputDir(outDir).
//	    Compile()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	cfg, err := generate.NewConfig(filepath.Join(outDir, "dotprod.rs"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	gen, err := cfg.Detect()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := gen.Generate(lib, cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// # Host Targets
//
// The destination extension selects the emitter: ".rs" produces an
// ownership-based Rust module, ".ml" produces a garbage-collected OCaml
// module with finalisers. Any other extension is rejected.
//
// # Backends
//
// All six Futhark code-generation backends are supported. Python and
// PyOpenCL produce a standalone script rather than a C library; for those
// Compile succeeds with a nil Library and the generation and link stages
// are skipped.
//
// # Thread Safety
//
// The driver and the generators are single-threaded and blocking. The
// emitted bindings carry their own contract: a context is single-owner,
// entry-point calls on one context are serialised by the caller, and
// wrappers uniquely own their C objects.
package futbind
