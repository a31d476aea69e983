package manifest

type Prim uint8

const (
	PrimI8 Prim = iota
	PrimI16
	PrimI32
	PrimI64
	PrimU8
	PrimU16
	PrimU32
	PrimU64
	PrimF16
	PrimF32
	PrimF64
	PrimBool
)

var primNames = [...]string{
	PrimI8:   "i8",
	PrimI16:  "i16",
	PrimI32:  "i32",
	PrimI64:  "i64",
	PrimU8:   "u8",
	PrimU16:  "u16",
	PrimU32:  "u32",
	PrimU64:  "u64",
	PrimF16:  "f16",
	PrimF32:  "f32",
	PrimF64:  "f64",
	PrimBool: "bool",
}

func (p Prim) String() string {
	if int(p) < len(primNames) {
		return primNames[p]
	}
	return "unknown"
}

// ParsePrim resolves a primitive type from its manifest name.
func ParsePrim(s string) (Prim, bool) {
	for p, n := range primNames {
		if n == s {
			return Prim(p), true
		}
	}
	return 0, false
}

// IsPrim reports whether a manifest type reference names a primitive.
func IsPrim(ref string) bool {
	_, ok := ParsePrim(ref)
	return ok
}
