// Package generate emits host-language bindings from a compiled library's
// manifest.
//
// A Config selects the host target from the destination's file extension
// (".rs" for Rust, ".ml" for OCaml) and carries the emission settings. Each
// target implements Generator and produces a single self-contained module
// over the C ABI described by the manifest: a context type owning the
// futhark context, one wrapper per manifest type, and one function per
// entry point.
//
// Emission is deterministic: types and entry points are visited in sorted
// name order, and the module is built in memory before it is written, so
// regenerating from the same manifest yields byte-identical output.
package generate
