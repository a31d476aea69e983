package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the build pipeline the error occurred
type Phase string

const (
	PhaseCompile  Phase = "compile"  // upstream compiler invocation
	PhaseParse    Phase = "parse"    // manifest parsing
	PhaseValidate Phase = "validate" // manifest validation
	PhaseGenerate Phase = "generate" // binding emission
	PhaseLink     Phase = "link"     // native compile and archive
)

// Kind categorizes the error
type Kind string

const (
	KindCompilationFailed     Kind = "compilation_failed"
	KindIO                    Kind = "io"
	KindManifestParse         Kind = "manifest_parse"
	KindInvalidOutputLanguage Kind = "invalid_output_language"
	KindEmit                  Kind = "emit"
	KindUnknownType           Kind = "unknown_type"
	KindInvalidIdentifier     Kind = "invalid_identifier"
	KindInvalidRank           Kind = "invalid_rank"
	KindFieldMissing          Kind = "field_missing"
	KindUnsupported           Kind = "unsupported"
)

// Error is the structured error type used throughout the generator
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	CSym     string
	TypeName string
	Detail   string
	Path     []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.TypeName != "" || e.CSym != "" {
		b.WriteString(": ")
		if e.TypeName != "" && e.CSym != "" {
			b.WriteString("type ")
			b.WriteString(e.TypeName)
			b.WriteString(", C symbol ")
			b.WriteString(e.CSym)
		} else if e.TypeName != "" {
			b.WriteString("type ")
			b.WriteString(e.TypeName)
		} else {
			b.WriteString("C symbol ")
			b.WriteString(e.CSym)
		}
	}

	if e.Detail != "" {
		if e.TypeName != "" || e.CSym != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the manifest path (entry point, parameter, projection, ...)
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// TypeName sets the manifest type name
func (b *Builder) TypeName(t string) *Builder {
	b.err.TypeName = t
	return b
}

// CSym sets the C symbol name
func (b *Builder) CSym(s string) *Builder {
	b.err.CSym = s
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// CompilationFailed creates an error for a non-zero upstream compiler exit
func CompilationFailed(exe string, code int) *Error {
	return &Error{
		Phase:  PhaseCompile,
		Kind:   KindCompilationFailed,
		Detail: fmt.Sprintf("%s exited with status %d", exe, code),
		Value:  code,
	}
}

// IO wraps an OS-level file or process failure
func IO(phase Phase, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindIO,
		Detail: detail,
		Cause:  cause,
	}
}

// ManifestParse wraps a JSON or schema failure in the manifest document
func ManifestParse(path []string, cause error, detail string, args ...any) *Error {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindManifestParse,
		Path:   path,
		Detail: detail,
		Cause:  cause,
	}
}

// InvalidOutputLanguage creates an error for an unrecognized destination extension
func InvalidOutputLanguage(ext string) *Error {
	return &Error{
		Phase:  PhaseGenerate,
		Kind:   KindInvalidOutputLanguage,
		Detail: fmt.Sprintf("unrecognized output extension %q (want .rs or .ml)", ext),
		Value:  ext,
	}
}

// Emit wraps a failed write to the output sink
func Emit(cause error) *Error {
	return &Error{
		Phase:  PhaseGenerate,
		Kind:   KindEmit,
		Detail: "write to output sink failed",
		Cause:  cause,
	}
}

// UnknownType creates an error for an unresolved manifest type reference
func UnknownType(path []string, ref string) *Error {
	return &Error{
		Phase:    PhaseValidate,
		Kind:     KindUnknownType,
		Path:     path,
		TypeName: ref,
		Detail:   fmt.Sprintf("type reference %q resolves to neither a primitive nor a declared type", ref),
	}
}

// InvalidIdentifier creates an error for a name that is not a valid C identifier
func InvalidIdentifier(path []string, name string) *Error {
	return &Error{
		Phase:  PhaseValidate,
		Kind:   KindInvalidIdentifier,
		Path:   path,
		Detail: fmt.Sprintf("%q is not a valid C identifier", name),
		Value:  name,
	}
}

// InvalidRank creates an error for an array rank below 1
func InvalidRank(typeName string, rank int) *Error {
	return &Error{
		Phase:    PhaseValidate,
		Kind:     KindInvalidRank,
		TypeName: typeName,
		Detail:   fmt.Sprintf("array rank %d, want >= 1", rank),
		Value:    rank,
	}
}

// FieldMissing creates a missing required field error
func FieldMissing(path []string, fieldName string) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindFieldMissing,
		Path:   path,
		Detail: fmt.Sprintf("required field %q not found", fieldName),
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
