package generate

import (
	"strings"
	"testing"
)

func TestOCaml_Preamble(t *testing.T) {
	out := emit(t, testLibrary(t, "c"), "bindings.ml")

	for _, want := range []string{
		"(* Bindings for bindings, generated by futbind. DO NOT EDIT. *)",
		"open Ctypes",
		"exception Futhark_error of string",
		"module Raw = struct",
		"type context = { ctx : unit ptr; cfg : unit ptr }",
		"let context_new () =",
		"let sync ctx =",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestOCaml_ForeignDecls(t *testing.T) {
	out := emit(t, testLibrary(t, "c"), "bindings.ml")

	for _, want := range []string{
		`let context_sync = foreign "futhark_context_sync" (ptr void @-> returning int)`,
		`let futhark_new_f64_1d = foreign "futhark_new_f64_1d" (ptr void @-> ptr double @-> int64_t @-> returning (ptr void))`,
		`let futhark_entry_sum = foreign "futhark_entry_sum" (ptr void @-> ptr double @-> ptr void @-> returning int)`,
		`let futhark_project_opaque_pair_fst = foreign "futhark_project_opaque_pair_fst" (ptr void @-> ptr int32_t @-> ptr void @-> returning int)`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

// Type modules are mutually recursive so projections may reference types
// declared in any order.
func TestOCaml_TypeModules(t *testing.T) {
	out := emit(t, testLibrary(t, "c"), "bindings.ml")

	for _, want := range []string{
		"module rec Array_f64_1d : sig",
		"and Array_i32_1d : sig",
		"and Pair : sig",
		"  val v : context -> float array -> int64 -> t",
		"  val shape : t -> int64",
		"  val values : t -> float array",
		"  val fst : t -> int32",
		"  val snd : t -> Array_f64_1d.t",
		"  val store : t -> Bytes.t",
		"  val restore : context -> Bytes.t -> t",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestOCaml_Finalisers(t *testing.T) {
	out := emit(t, testLibrary(t, "c"), "bindings.ml")

	for _, want := range []string{
		"Gc.finalise (fun t -> Raw.context_free t.ctx; Raw.context_config_free t.cfg) t;",
		"Gc.finalise (fun t -> if t.valid then ignore (Raw.futhark_free_f64_1d t.ctx.ctx t.ptr)) t;",
		"Gc.finalise (fun t -> if t.valid then ignore (Raw.futhark_free_opaque_pair t.ctx.ctx t.ptr)) t;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestOCaml_EntryFunctions(t *testing.T) {
	out := emit(t, testLibrary(t, "c"), "bindings.ml")

	for _, want := range []string{
		"let sum ctx xs =",
		"let inplace_inc ctx xs =",
		"let make_pair ctx fst snd =",
		"  let rc = Raw.futhark_entry_sum ctx.ctx out0 (Array_f64_1d.raw xs) in",
		"  if rc <> 0 then context_error ctx rc;",
		"  Pair.of_raw ctx (!@ out0)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestOCaml_UniqueInputConsumed(t *testing.T) {
	out := emit(t, testLibrary(t, "c"), "bindings.ml")

	// The consumed input's finaliser is disarmed; later use raises.
	for _, want := range []string{
		"  Array_i32_1d.consume xs;",
		`if not t.valid then raise (Futhark_error "value used after being consumed");`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestOCaml_AsyncBackendSyncs(t *testing.T) {
	sync := emit(t, testLibrary(t, "c"), "bindings.ml")
	if strings.Contains(sync, "\n  sync ctx;\n") {
		t.Error("c backend output should not sync after entry calls")
	}

	async := emit(t, testLibrary(t, "multicore"), "bindings.ml")
	if !strings.Contains(async, "\n  sync ctx;\n") {
		t.Error("multicore backend output should sync before observing outputs")
	}
	if !strings.Contains(async, "    sync t.ctx;") {
		t.Error("multicore backend output should sync after copying values out")
	}
}

func TestOCaml_Attributes(t *testing.T) {
	out := emit(t, testLibrary(t, "c"), "bindings.ml")
	if !strings.Contains(out, `[@@@warning "-27-32-34-37"]`) {
		t.Error("output missing warning suppression")
	}

	out = emit(t, testLibrary(t, "c"), "bindings.ml", WithAttributes(false))
	if strings.Contains(out, "[@@@warning") {
		t.Error("output should not carry warning suppression")
	}
}

func TestOCaml_Deterministic(t *testing.T) {
	first := emit(t, testLibrary(t, "c"), "bindings.ml")
	for i := 0; i < 5; i++ {
		if again := emit(t, testLibrary(t, "c"), "bindings.ml"); again != first {
			t.Fatalf("run %d produced different output", i)
		}
	}
}
