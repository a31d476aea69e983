package generate

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/futbind/futbind/compiler"
	"github.com/futbind/futbind/manifest"
)

// testLibrary parses a fixture manifest covering scalars, arrays, a unique
// input and an opaque record, for the given backend.
func testLibrary(t *testing.T, backend string) *compiler.Library {
	t.Helper()

	doc := fmt.Sprintf(`{
  "backend": %q,
  "version": "0.25.1",
  "entry_points": {
    "sum": {
      "cfun": "futhark_entry_sum",
      "inputs": [{"name": "xs", "type": "[]f64"}],
      "outputs": [{"type": "f64"}]
    },
    "inplace_inc": {
      "cfun": "futhark_entry_inplace_inc",
      "inputs": [{"name": "xs", "type": "[]i32", "unique": true}],
      "outputs": [{"type": "[]i32"}]
    },
    "make_pair": {
      "cfun": "futhark_entry_make_pair",
      "inputs": [{"name": "fst", "type": "i32"}, {"name": "snd", "type": "[]f64"}],
      "outputs": [{"type": "pair"}]
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
          {"name": "snd", "type": "[]f64", "project": "futhark_project_opaque_pair_snd"}
        ]
      }
    }
  }
}`, backend)

	m, err := manifest.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("parse fixture manifest: %v", err)
	}
	return &compiler.Library{
		Manifest: m,
		CFile:    "kernels.c",
		HFile:    "kernels.h",
		Src:      "kernels.fut",
	}
}

// emit runs a generator over the fixture and returns the emitted module.
func emit(t *testing.T, lib *compiler.Library, dest string, opts ...Option) string {
	t.Helper()

	var buf bytes.Buffer
	opts = append(opts, WithWriter(&buf))
	cfg, err := NewConfig(dest, opts...)
	if err != nil {
		t.Fatalf("NewConfig(%q): %v", dest, err)
	}
	gen, err := cfg.Detect()
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if err := gen.Generate(lib, cfg); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return buf.String()
}
