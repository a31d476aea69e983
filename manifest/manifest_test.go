package manifest

import (
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/futbind/futbind/errors"
)

const sampleManifest = `{
	"backend": "c",
	"version": "0.25.9",
	"entry_points": {
		"sum": {
			"cfun": "futhark_entry_sum",
			"inputs": [{"name": "xs", "type": "[]f64"}],
			"outputs": [{"type": "f64"}]
		},
		"inplace_inc": {
			"cfun": "futhark_entry_inplace_inc",
			"inputs": [{"name": "xs", "type": "[]i32", "unique": true}],
			"outputs": [{"type": "[]i32"}],
			"tuning_params": ["block_size"]
		}
	},
	"types": {
		"[]f64": {
			"kind": "array",
			"ctype": "struct futhark_f64_1d *",
			"elemtype": "f64",
			"rank": 1,
			"ops": {
				"new": "futhark_new_f64_1d",
				"free": "futhark_free_f64_1d",
				"shape": "futhark_shape_f64_1d",
				"values": "futhark_values_f64_1d",
				"values_raw": "futhark_values_raw_f64_1d"
			}
		},
		"[]i32": {
			"kind": "array",
			"ctype": "struct futhark_i32_1d *",
			"elemtype": "i32",
			"rank": 1,
			"ops": {
				"new": "futhark_new_i32_1d",
				"free": "futhark_free_i32_1d",
				"shape": "futhark_shape_i32_1d",
				"values": "futhark_values_i32_1d"
			}
		},
		"pair": {
			"kind": "opaque",
			"ctype": "struct futhark_opaque_pair *",
			"ops": {
				"free": "futhark_free_opaque_pair",
				"store": "futhark_store_opaque_pair",
				"restore": "futhark_restore_opaque_pair"
			},
			"record": {
				"new": "futhark_new_opaque_pair",
				"fields": [
					{"name": "fst", "type": "i32", "project": "futhark_project_opaque_pair_fst"},
					{"name": "snd", "type": "f64", "project": "futhark_project_opaque_pair_snd"}
				]
			}
		}
	}
}`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if m.Backend != C {
		t.Errorf("Backend = %v, want c", m.Backend)
	}
	if m.Version != "0.25.9" {
		t.Errorf("Version = %q, want 0.25.9", m.Version)
	}
	if len(m.EntryPoints) != 2 {
		t.Fatalf("got %d entry points, want 2", len(m.EntryPoints))
	}

	sum := m.EntryPoints["sum"]
	if sum.CFun != "futhark_entry_sum" {
		t.Errorf("sum.CFun = %q", sum.CFun)
	}
	if len(sum.Inputs) != 1 || sum.Inputs[0].Type != "[]f64" {
		t.Errorf("sum.Inputs = %+v", sum.Inputs)
	}
	if sum.Inputs[0].Unique {
		t.Error("unique should default to false")
	}

	inc := m.EntryPoints["inplace_inc"]
	if !inc.Inputs[0].Unique {
		t.Error("inplace_inc input should be unique")
	}
	if len(inc.TuningParams) != 1 || inc.TuningParams[0] != "block_size" {
		t.Errorf("TuningParams = %v", inc.TuningParams)
	}

	arr, ok := m.Types["[]f64"].(*ArrayType)
	if !ok {
		t.Fatalf("[]f64 is %T, want *ArrayType", m.Types["[]f64"])
	}
	if arr.Elem != PrimF64 || arr.Rank != 1 {
		t.Errorf("[]f64 = elem %v rank %d", arr.Elem, arr.Rank)
	}
	if arr.Ops.ValuesRaw != "futhark_values_raw_f64_1d" {
		t.Errorf("ValuesRaw = %q", arr.Ops.ValuesRaw)
	}

	pair, ok := m.Types["pair"].(*OpaqueType)
	if !ok {
		t.Fatalf("pair is %T, want *OpaqueType", m.Types["pair"])
	}
	if pair.Ops.Store != "futhark_store_opaque_pair" {
		t.Errorf("pair.Ops.Store = %q", pair.Ops.Store)
	}
	projs := pair.Projections()
	if len(projs) != 2 || projs[0].Name != "fst" || projs[1].Type != "f64" {
		t.Errorf("pair projections = %+v", projs)
	}
}

func TestParse_UnknownFieldsTolerated(t *testing.T) {
	doc := `{
		"backend": "multicore",
		"version": "0.26.0",
		"future_field": {"nested": true},
		"entry_points": {
			"add": {
				"cfun": "futhark_entry_add",
				"inputs": [{"type": "i32", "future_flag": 1}],
				"outputs": [{"type": "i32"}],
				"extra": "ignored"
			}
		},
		"types": {}
	}`
	m, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if m.Backend != Multicore {
		t.Errorf("Backend = %v, want multicore", m.Backend)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		kind errors.Kind
	}{
		{
			name: "malformed JSON",
			doc:  `{"backend": `,
			kind: errors.KindManifestParse,
		},
		{
			name: "mistyped value",
			doc:  `{"backend": "c", "version": "1", "entry_points": {"f": {"cfun": 42}}, "types": {}}`,
			kind: errors.KindManifestParse,
		},
		{
			name: "unknown backend",
			doc:  `{"backend": "vulkan", "version": "1", "entry_points": {}, "types": {}}`,
			kind: errors.KindManifestParse,
		},
		{
			name: "missing version",
			doc:  `{"backend": "c", "entry_points": {}, "types": {}}`,
			kind: errors.KindFieldMissing,
		},
		{
			name: "missing cfun",
			doc:  `{"backend": "c", "version": "1", "entry_points": {"f": {"inputs": [], "outputs": []}}, "types": {}}`,
			kind: errors.KindFieldMissing,
		},
		{
			name: "missing type kind",
			doc:  `{"backend": "c", "version": "1", "entry_points": {}, "types": {"t": {"rank": 1}}}`,
			kind: errors.KindFieldMissing,
		},
		{
			name: "unknown type kind",
			doc:  `{"backend": "c", "version": "1", "entry_points": {}, "types": {"t": {"kind": "graph"}}}`,
			kind: errors.KindManifestParse,
		},
		{
			name: "non-primitive element type",
			doc:  `{"backend": "c", "version": "1", "entry_points": {}, "types": {"t": {"kind": "array", "elemtype": "pair", "rank": 1}}}`,
			kind: errors.KindManifestParse,
		},
		{
			name: "unresolved input type",
			doc:  `{"backend": "c", "version": "1", "entry_points": {"f": {"cfun": "c_f", "inputs": [{"type": "[]f32"}], "outputs": []}}, "types": {}}`,
			kind: errors.KindUnknownType,
		},
		{
			name: "zero rank",
			doc: `{"backend": "c", "version": "1", "entry_points": {}, "types": {
				"t": {"kind": "array", "elemtype": "i32", "rank": 0, "ops": {}}}}`,
			kind: errors.KindInvalidRank,
		},
		{
			name: "array with no ops",
			doc: `{"backend": "c", "version": "1", "entry_points": {}, "types": {
				"[]f64": {"kind": "array", "elemtype": "f64", "rank": 1}}}`,
			kind: errors.KindFieldMissing,
		},
		{
			name: "array missing free op",
			doc: `{"backend": "c", "version": "1", "entry_points": {}, "types": {
				"[]f64": {"kind": "array", "elemtype": "f64", "rank": 1, "ops": {
					"new": "futhark_new_f64_1d",
					"shape": "futhark_shape_f64_1d",
					"values": "futhark_values_f64_1d"}}}}`,
			kind: errors.KindFieldMissing,
		},
		{
			name: "opaque missing store op",
			doc: `{"backend": "c", "version": "1", "entry_points": {}, "types": {
				"pair": {"kind": "opaque", "ops": {
					"free": "futhark_free_opaque_pair",
					"restore": "futhark_restore_opaque_pair"}}}}`,
			kind: errors.KindFieldMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil {
				t.Fatal("Parse succeeded, want error")
			}
			var e *errors.Error
			if !stderrors.As(err, &e) {
				t.Fatalf("error is %T, want *errors.Error", err)
			}
			if e.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", e.Kind, tt.kind)
			}
		})
	}
}

func TestManifest_RoundTrip(t *testing.T) {
	m, err := Parse([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	encoded, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	m2, err := Parse(encoded)
	if err != nil {
		t.Fatalf("re-Parse failed: %v", err)
	}

	if m2.Backend != m.Backend || m2.Version != m.Version {
		t.Errorf("header mismatch: %v %q vs %v %q", m2.Backend, m2.Version, m.Backend, m.Version)
	}
	if len(m2.EntryPoints) != len(m.EntryPoints) {
		t.Fatalf("entry point count mismatch")
	}
	for name, ep := range m.EntryPoints {
		ep2, ok := m2.EntryPoints[name]
		if !ok {
			t.Fatalf("entry point %q lost in round trip", name)
		}
		if ep2.CFun != ep.CFun || len(ep2.Inputs) != len(ep.Inputs) || len(ep2.Outputs) != len(ep.Outputs) {
			t.Errorf("entry point %q changed: %+v vs %+v", name, ep2, ep)
		}
		for i := range ep.Inputs {
			if ep2.Inputs[i] != ep.Inputs[i] {
				t.Errorf("%s input %d changed: %+v vs %+v", name, i, ep2.Inputs[i], ep.Inputs[i])
			}
		}
	}
	for name := range m.Types {
		if _, ok := m2.Types[name]; !ok {
			t.Errorf("type %q lost in round trip", name)
		}
	}

	arr := m2.Types["[]f64"].(*ArrayType)
	if arr.Ops != m.Types["[]f64"].(*ArrayType).Ops {
		t.Errorf("array ops changed in round trip")
	}
	pair := m2.Types["pair"].(*OpaqueType)
	if len(pair.Projections()) != 2 {
		t.Errorf("pair projections lost in round trip")
	}
}

func TestManifest_SortedNames(t *testing.T) {
	m := &Manifest{
		EntryPoints: map[string]EntryPoint{
			"zeta": {CFun: "c_zeta"},
			"add":  {CFun: "c_add"},
			"mid":  {CFun: "c_mid"},
		},
		Types: map[string]Type{
			"[]i32": &ArrayType{Elem: PrimI32, Rank: 1},
			"[]f64": &ArrayType{Elem: PrimF64, Rank: 1},
		},
	}

	names := m.EntryPointNames()
	want := []string{"add", "mid", "zeta"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("EntryPointNames = %v, want %v", names, want)
		}
	}

	tnames := m.TypeNames()
	if tnames[0] != "[]f64" || tnames[1] != "[]i32" {
		t.Fatalf("TypeNames = %v", tnames)
	}
}

func TestParsePrim(t *testing.T) {
	for _, name := range []string{"i8", "i16", "i32", "i64", "u8", "u16", "u32", "u64", "f16", "f32", "f64", "bool"} {
		p, ok := ParsePrim(name)
		if !ok {
			t.Errorf("ParsePrim(%q) failed", name)
		}
		if p.String() != name {
			t.Errorf("ParsePrim(%q).String() = %q", name, p.String())
		}
	}
	if _, ok := ParsePrim("f128"); ok {
		t.Error("ParsePrim accepted f128")
	}
}

func TestParseBackend(t *testing.T) {
	tests := []struct {
		name    string
		backend Backend
		libs    []string
		emits   bool
		async   bool
	}{
		{"c", C, nil, true, false},
		{"cuda", CUDA, []string{"cuda", "cudart", "nvrtc", "m"}, true, true},
		{"opencl", OpenCL, []string{"OpenCL", "m"}, true, true},
		{"multicore", Multicore, nil, true, true},
		{"python", Python, nil, false, false},
		{"pyopencl", PyOpenCL, nil, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := ParseBackend(tt.name)
			if err != nil {
				t.Fatalf("ParseBackend(%q) failed: %v", tt.name, err)
			}
			if b != tt.backend {
				t.Errorf("ParseBackend(%q) = %v", tt.name, b)
			}
			if b.String() != tt.name {
				t.Errorf("String() = %q, want %q", b.String(), tt.name)
			}
			libs := b.RequiredLibs()
			if len(libs) != len(tt.libs) {
				t.Fatalf("RequiredLibs = %v, want %v", libs, tt.libs)
			}
			for i := range libs {
				if libs[i] != tt.libs[i] {
					t.Errorf("RequiredLibs = %v, want %v", libs, tt.libs)
				}
			}
			if b.EmitsLibrary() != tt.emits {
				t.Errorf("EmitsLibrary = %v, want %v", b.EmitsLibrary(), tt.emits)
			}
			if b.Async() != tt.async {
				t.Errorf("Async = %v, want %v", b.Async(), tt.async)
			}
		})
	}

	if _, err := ParseBackend("vulkan"); err == nil {
		t.Error("ParseBackend accepted vulkan")
	}
}
