// Package errors provides structured error types for the futbind library.
//
// Errors are categorized by Phase (where in the build pipeline the error
// occurred) and Kind (error category). The Error type includes rich context:
// manifest path, type name, C symbol, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseValidate, errors.KindUnknownType).
//		Path("entry_points", "matmul", "inputs[0]").
//		TypeName("[]f32").
//		Detail("referenced type is not declared").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.UnknownType(path, "[]f32")
//	err := errors.CompilationFailed("futhark", 2)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
