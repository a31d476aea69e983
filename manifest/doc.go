// Package manifest models the JSON manifest emitted by the Futhark
// compiler next to a generated C library.
//
// The manifest describes the library's C API: every entry point with its
// inputs and outputs, and every non-primitive type crossing the ABI. Types
// are a tagged union of arrays (primitive element type plus rank) and
// opaques (hidden representation accessed through declared C operations,
// optionally carrying a record or sum view).
//
// Parsing tolerates unknown fields so that manifests from newer Futhark
// releases keep loading; missing required fields and mistyped values are
// rejected. The `unique` flag on inputs defaults to false.
//
// Manifest mappings are plain Go maps; EntryPointNames and TypeNames
// return sorted keys and are the only iteration order used by consumers,
// keeping code generation deterministic.
package manifest
