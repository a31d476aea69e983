package manifest

import (
	"fmt"
	"sort"

	"github.com/futbind/futbind/errors"
)

// Manifest is the root document emitted by the Futhark compiler alongside
// the generated C library. It describes every entry point and every
// non-primitive type crossing the C ABI.
type Manifest struct {
	Backend     Backend
	Version     string
	EntryPoints map[string]EntryPoint
	Types       map[string]Type
}

// EntryPoint is a user-visible callable compiled to a C function.
type EntryPoint struct {
	CFun         string
	Inputs       []Param
	Outputs      []Output
	TuningParams []string
}

// Param is a positional input of an entry point. Unique marks an input the
// callee may mutate or retain; the caller must not reuse it afterwards.
type Param struct {
	Name   string
	Type   string
	Unique bool
}

// Output is a positional result of an entry point.
type Output struct {
	Type string
}

// Type is a manifest type declaration
type Type interface {
	isType()
}

// ArrayOps names the C functions operating on an array type.
type ArrayOps struct {
	New       string
	Free      string
	Shape     string
	Values    string
	ValuesRaw string // optional
}

// ArrayType is a multidimensional array of a primitive element type.
type ArrayType struct {
	CType string
	Elem  Prim
	Rank  int
	Ops   ArrayOps
}

func (ArrayType) isType() {}

// OpaqueOps names the C functions operating on an opaque type.
type OpaqueOps struct {
	Free    string
	Store   string
	Restore string
}

// Projection is a named accessor on an opaque returning a sub-object.
type Projection struct {
	Name string
	Type string
	CFun string
}

// RecordView marks an opaque as the record view of a composite value.
// Projections correspond to fields; New constructs the record from them.
type RecordView struct {
	New    string
	Fields []Projection
}

// Variant is one constructor of a sum view.
type Variant struct {
	Name      string
	Construct string
	Destruct  string
	Payload   []string
}

// SumView marks an opaque as the sum view of a composite value.
type SumView struct {
	Variant  string // C function returning the active variant index
	Variants []Variant
}

// OpaqueType is a type whose representation is hidden behind a handle and
// accessed only through its declared operations.
type OpaqueType struct {
	CType  string
	Ops    OpaqueOps
	Record *RecordView
	Sum    *SumView
}

func (OpaqueType) isType() {}

// Projections returns the opaque's accessors: the record fields when the
// opaque is a record view, nil otherwise.
func (o *OpaqueType) Projections() []Projection {
	if o.Record != nil {
		return o.Record.Fields
	}
	return nil
}

// EntryPointNames returns the entry-point names in sorted order. All
// iteration over the manifest uses this order so that code generation is
// deterministic.
func (m *Manifest) EntryPointNames() []string {
	names := make([]string, 0, len(m.EntryPoints))
	for name := range m.EntryPoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TypeNames returns the declared type names in sorted order.
func (m *Manifest) TypeNames() []string {
	names := make([]string, 0, len(m.Types))
	for name := range m.Types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve looks up a type reference among the declared types.
func (m *Manifest) Resolve(ref string) (Type, bool) {
	t, ok := m.Types[ref]
	return t, ok
}

// resolves reports whether ref names a primitive or a declared type.
func (m *Manifest) resolves(ref string) bool {
	if IsPrim(ref) {
		return true
	}
	_, ok := m.Types[ref]
	return ok
}

// Validate checks the manifest invariants: every type reference in entry
// points and projections resolves, array ranks are positive, entry point
// names are valid C identifiers, and every type declares its required C
// operations (new/free/shape/values for arrays, free/store/restore for
// opaques).
func (m *Manifest) Validate() error {
	for _, name := range m.EntryPointNames() {
		if !isCIdent(name) {
			return errors.InvalidIdentifier([]string{"entry_points"}, name)
		}
		ep := m.EntryPoints[name]
		if ep.CFun == "" {
			return errors.FieldMissing([]string{"entry_points", name}, "cfun")
		}
		for i, in := range ep.Inputs {
			if !m.resolves(in.Type) {
				return errors.UnknownType([]string{"entry_points", name, fmt.Sprintf("inputs[%d]", i)}, in.Type)
			}
		}
		for i, out := range ep.Outputs {
			if !m.resolves(out.Type) {
				return errors.UnknownType([]string{"entry_points", name, fmt.Sprintf("outputs[%d]", i)}, out.Type)
			}
		}
	}

	for _, name := range m.TypeNames() {
		switch t := m.Types[name].(type) {
		case *ArrayType:
			if t.Rank < 1 {
				return errors.InvalidRank(name, t.Rank)
			}
			for _, op := range []struct{ field, sym string }{
				{"ops.new", t.Ops.New},
				{"ops.free", t.Ops.Free},
				{"ops.shape", t.Ops.Shape},
				{"ops.values", t.Ops.Values},
			} {
				if op.sym == "" {
					return errors.FieldMissing([]string{"types", name}, op.field)
				}
			}
		case *OpaqueType:
			for _, op := range []struct{ field, sym string }{
				{"ops.free", t.Ops.Free},
				{"ops.store", t.Ops.Store},
				{"ops.restore", t.Ops.Restore},
			} {
				if op.sym == "" {
					return errors.FieldMissing([]string{"types", name}, op.field)
				}
			}
			for i, p := range t.Projections() {
				if !m.resolves(p.Type) {
					return errors.UnknownType([]string{"types", name, fmt.Sprintf("fields[%d]", i)}, p.Type)
				}
			}
			if t.Sum != nil {
				for _, v := range t.Sum.Variants {
					for i, ref := range v.Payload {
						if !m.resolves(ref) {
							return errors.UnknownType([]string{"types", name, v.Name, fmt.Sprintf("payload[%d]", i)}, ref)
						}
					}
				}
			}
		}
	}

	return nil
}

func isCIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
