package generate

// Name mangling from manifest names to host identifiers.
// The mangling is stable: bindings regenerated from the same manifest get
// the same public surface.
//
//	manifest array (f64, rank 1)  ->  ArrayF64_1D (Rust), array_f64_1d (OCaml)
//	manifest opaque "pair"        ->  Pair (Rust), Pair (OCaml module)
//	entry point "inplace_inc"     ->  inplace_inc (both hosts)

import (
	"fmt"
	"strings"

	"github.com/futbind/futbind/manifest"
)

// sanitizeIdent maps a manifest name onto a host identifier: every byte
// outside [A-Za-z0-9_] becomes '_', and a leading digit gets a '_' prefix.
func sanitizeIdent(name string) string {
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
			b.WriteByte(c)
		case c >= '0' && c <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteByte(c)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// typeIdent produces the host wrapper name for a declared manifest type.
func typeIdent(name string, t manifest.Type) string {
	if arr, ok := t.(*manifest.ArrayType); ok {
		elem := arr.Elem.String()
		return fmt.Sprintf("Array%s_%dD", strings.ToUpper(elem[:1])+elem[1:], arr.Rank)
	}
	s := sanitizeIdent(name)
	return strings.ToUpper(s[:1]) + s[1:]
}

// ocamlTypeIdent produces the OCaml module name for a declared type.
func ocamlTypeIdent(name string, t manifest.Type) string {
	if arr, ok := t.(*manifest.ArrayType); ok {
		return fmt.Sprintf("Array_%s_%dd", arr.Elem.String(), arr.Rank)
	}
	s := sanitizeIdent(name)
	return strings.ToUpper(s[:1]) + s[1:]
}

// rawCName returns the C struct tag behind a manifest type. It prefers the
// manifest's declared ctype ("struct futhark_f64_1d *"), falling back to
// the conventional futhark name.
func rawCName(name string, t manifest.Type) string {
	var ctype string
	switch t := t.(type) {
	case *manifest.ArrayType:
		ctype = t.CType
		if ctype == "" {
			return fmt.Sprintf("futhark_%s_%dd", t.Elem, t.Rank)
		}
	case *manifest.OpaqueType:
		ctype = t.CType
		if ctype == "" {
			return "futhark_opaque_" + sanitizeIdent(name)
		}
	}
	s := strings.TrimPrefix(ctype, "struct ")
	s = strings.TrimSuffix(s, "*")
	return strings.TrimSpace(s)
}

// rustPrim maps a manifest primitive onto the Rust scalar carrying it.
// f16 crosses the ABI as its bit representation.
func rustPrim(p manifest.Prim) string {
	switch p {
	case manifest.PrimF16:
		return "u16"
	default:
		return p.String()
	}
}

// ocamlPrim maps a manifest primitive onto the OCaml type carrying it.
func ocamlPrim(p manifest.Prim) string {
	switch p {
	case manifest.PrimI8, manifest.PrimI16:
		return "int"
	case manifest.PrimI32:
		return "int32"
	case manifest.PrimI64:
		return "int64"
	case manifest.PrimU8:
		return "Unsigned.uint8"
	case manifest.PrimU16, manifest.PrimF16:
		return "Unsigned.uint16"
	case manifest.PrimU32:
		return "Unsigned.uint32"
	case manifest.PrimU64:
		return "Unsigned.uint64"
	case manifest.PrimF32, manifest.PrimF64:
		return "float"
	case manifest.PrimBool:
		return "bool"
	default:
		return "unit"
	}
}

// ocamlCtypes maps a manifest primitive onto its ctypes combinator.
func ocamlCtypes(p manifest.Prim) string {
	switch p {
	case manifest.PrimI8:
		return "int8_t"
	case manifest.PrimI16:
		return "int16_t"
	case manifest.PrimI32:
		return "int32_t"
	case manifest.PrimI64:
		return "int64_t"
	case manifest.PrimU8:
		return "uint8_t"
	case manifest.PrimU16, manifest.PrimF16:
		return "uint16_t"
	case manifest.PrimU32:
		return "uint32_t"
	case manifest.PrimU64:
		return "uint64_t"
	case manifest.PrimF32:
		return "float"
	case manifest.PrimF64:
		return "double"
	case manifest.PrimBool:
		return "bool"
	default:
		return "void"
	}
}

// ocamlZero is the initial value used when allocating an out-parameter.
func ocamlZero(p manifest.Prim) string {
	switch p {
	case manifest.PrimI8, manifest.PrimI16:
		return "0"
	case manifest.PrimI32:
		return "0l"
	case manifest.PrimI64:
		return "0L"
	case manifest.PrimU8:
		return "Unsigned.UInt8.zero"
	case manifest.PrimU16, manifest.PrimF16:
		return "Unsigned.UInt16.zero"
	case manifest.PrimU32:
		return "Unsigned.UInt32.zero"
	case manifest.PrimU64:
		return "Unsigned.UInt64.zero"
	case manifest.PrimF32, manifest.PrimF64:
		return "0.0"
	case manifest.PrimBool:
		return "false"
	default:
		return "()"
	}
}
