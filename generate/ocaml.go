package generate

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/futbind/futbind/compiler"
	"github.com/futbind/futbind/manifest"
)

// OCaml emits a garbage-collected OCaml module over the generated C ABI,
// built on ctypes foreign bindings.
//
// Every allocated object (context, arrays, opaques) carries a Gc.finalise
// hook invoking the matching C free. Entry points raise Futhark_error on a
// non-zero return code. Unique inputs are consumed: the finaliser is
// disarmed because the callee owns the object, but reuse of the OCaml
// value is not prevented by the type system; callers must not touch a
// consumed value.
type OCaml struct{}

// Generate implements Generator.
func (o *OCaml) Generate(lib *compiler.Library, cfg *Config) error {
	m := lib.Manifest
	e := &ocamlEmitter{
		m:     m,
		async: m.Backend.Async(),
	}
	e.module(lib, cfg)

	Logger().Debug("emitted ocaml bindings",
		zap.String("dest", cfg.Path),
		zap.Int("entry_points", len(m.EntryPoints)),
		zap.Int("types", len(m.Types)))

	return cfg.write(e.b.String())
}

type ocamlEmitter struct {
	b     strings.Builder
	m     *manifest.Manifest
	async bool
}

func (e *ocamlEmitter) w(format string, args ...any) {
	fmt.Fprintf(&e.b, format, args...)
	e.b.WriteByte('\n')
}

func (e *ocamlEmitter) module(lib *compiler.Library, cfg *Config) {
	e.w("(* Bindings for %s, generated by futbind. DO NOT EDIT. *)", cfg.ModuleName)
	e.w("(* Source: %s (backend %s, futhark %s) *)", lib.Src, e.m.Backend, e.m.Version)
	e.w("")
	if cfg.EmitAttributes {
		e.w(`[@@@warning "-27-32-34-37"]`)
		e.w("")
	}
	e.w("open Ctypes")
	e.w("")
	e.w("exception Futhark_error of string")
	e.w("")
	e.w("let null_error () = raise (Futhark_error \"futhark returned a null pointer\")")
	e.w("")

	e.rawModule()
	e.contextDefs()
	e.typeModules()

	for _, name := range e.m.EntryPointNames() {
		e.entryFunction(name, e.m.EntryPoints[name])
	}
}

// rawModule declares every foreign C function used by the bindings.
func (e *ocamlEmitter) rawModule() {
	e.w("module Raw = struct")
	e.w("  open Foreign")
	e.w("")
	e.w(`  let context_config_new = foreign "futhark_context_config_new" (void @-> returning (ptr void))`)
	e.w(`  let context_config_free = foreign "futhark_context_config_free" (ptr void @-> returning void)`)
	e.w(`  let context_new = foreign "futhark_context_new" (ptr void @-> returning (ptr void))`)
	e.w(`  let context_free = foreign "futhark_context_free" (ptr void @-> returning void)`)
	e.w(`  let context_sync = foreign "futhark_context_sync" (ptr void @-> returning int)`)
	e.w(`  let context_get_error = foreign "futhark_context_get_error" (ptr void @-> returning string_opt)`)

	for _, name := range e.m.TypeNames() {
		switch t := e.m.Types[name].(type) {
		case *manifest.ArrayType:
			e.arrayForeigns(t)
		case *manifest.OpaqueType:
			e.opaqueForeigns(t)
		}
	}

	for _, name := range e.m.EntryPointNames() {
		e.entryForeign(e.m.EntryPoints[name])
	}
	e.w("end")
	e.w("")
}

func (e *ocamlEmitter) arrayForeigns(t *manifest.ArrayType) {
	elem := ocamlCtypes(t.Elem)

	e.w("")
	if t.Ops.New != "" {
		dims := strings.Repeat("int64_t @-> ", t.Rank)
		e.w(`  let %s = foreign "%s" (ptr void @-> ptr %s @-> %sreturning (ptr void))`,
			t.Ops.New, t.Ops.New, elem, dims)
	}
	if t.Ops.Free != "" {
		e.w(`  let %s = foreign "%s" (ptr void @-> ptr void @-> returning int)`, t.Ops.Free, t.Ops.Free)
	}
	if t.Ops.Shape != "" {
		e.w(`  let %s = foreign "%s" (ptr void @-> ptr void @-> returning (ptr int64_t))`, t.Ops.Shape, t.Ops.Shape)
	}
	if t.Ops.Values != "" {
		e.w(`  let %s = foreign "%s" (ptr void @-> ptr void @-> ptr %s @-> returning int)`,
			t.Ops.Values, t.Ops.Values, elem)
	}
	if t.Ops.ValuesRaw != "" {
		e.w(`  let %s = foreign "%s" (ptr void @-> ptr void @-> returning (ptr %s))`,
			t.Ops.ValuesRaw, t.Ops.ValuesRaw, elem)
	}
}

func (e *ocamlEmitter) opaqueForeigns(t *manifest.OpaqueType) {
	e.w("")
	if t.Ops.Free != "" {
		e.w(`  let %s = foreign "%s" (ptr void @-> ptr void @-> returning int)`, t.Ops.Free, t.Ops.Free)
	}
	if t.Ops.Store != "" {
		e.w(`  let %s = foreign "%s" (ptr void @-> ptr void @-> ptr (ptr void) @-> ptr size_t @-> returning int)`,
			t.Ops.Store, t.Ops.Store)
	}
	if t.Ops.Restore != "" {
		e.w(`  let %s = foreign "%s" (ptr void @-> ptr void @-> returning (ptr void))`, t.Ops.Restore, t.Ops.Restore)
	}

	for _, p := range t.Projections() {
		e.w(`  let %s = foreign "%s" (ptr void @-> ptr %s @-> ptr void @-> returning int)`,
			p.CFun, p.CFun, e.outCtypes(p.Type))
	}

	if t.Record != nil && t.Record.New != "" {
		parts := []string{"ptr void", "ptr (ptr void)"}
		for _, f := range t.Record.Fields {
			parts = append(parts, e.inCtypes(f.Type))
		}
		e.w(`  let %s = foreign "%s" (%s @-> returning int)`,
			t.Record.New, t.Record.New, strings.Join(parts, " @-> "))
	}

	if t.Sum != nil {
		if t.Sum.Variant != "" {
			e.w(`  let %s = foreign "%s" (ptr void @-> ptr void @-> returning int)`, t.Sum.Variant, t.Sum.Variant)
		}
		for _, v := range t.Sum.Variants {
			if v.Construct != "" {
				parts := []string{"ptr void", "ptr (ptr void)"}
				for _, ref := range v.Payload {
					parts = append(parts, e.inCtypes(ref))
				}
				e.w(`  let %s = foreign "%s" (%s @-> returning int)`,
					v.Construct, v.Construct, strings.Join(parts, " @-> "))
			}
			if v.Destruct != "" {
				parts := []string{"ptr void"}
				for _, ref := range v.Payload {
					parts = append(parts, "ptr "+e.outCtypes(ref))
				}
				parts = append(parts, "ptr void")
				e.w(`  let %s = foreign "%s" (%s @-> returning int)`,
					v.Destruct, v.Destruct, strings.Join(parts, " @-> "))
			}
		}
	}
}

func (e *ocamlEmitter) entryForeign(ep manifest.EntryPoint) {
	parts := []string{"ptr void"}
	for _, out := range ep.Outputs {
		parts = append(parts, "ptr "+e.outCtypes(out.Type))
	}
	for _, in := range ep.Inputs {
		parts = append(parts, e.inCtypes(in.Type))
	}
	e.w("")
	e.w(`  let %s = foreign "%s" (%s @-> returning int)`, ep.CFun, ep.CFun, strings.Join(parts, " @-> "))
}

// inCtypes is the ctypes combinator carrying a manifest reference into C.
func (e *ocamlEmitter) inCtypes(ref string) string {
	if p, ok := manifest.ParsePrim(ref); ok {
		return ocamlCtypes(p)
	}
	return "ptr void"
}

// outCtypes is the pointee combinator of an out-parameter.
func (e *ocamlEmitter) outCtypes(ref string) string {
	if p, ok := manifest.ParsePrim(ref); ok {
		return ocamlCtypes(p)
	}
	return "(ptr void)"
}

// hostType is the public OCaml type exposing a manifest reference.
func (e *ocamlEmitter) hostType(ref string) string {
	if p, ok := manifest.ParsePrim(ref); ok {
		return ocamlPrim(p)
	}
	return ocamlTypeIdent(ref, e.m.Types[ref]) + ".t"
}

func (e *ocamlEmitter) contextDefs() {
	e.w("type context = { ctx : unit ptr; cfg : unit ptr }")
	e.w("")
	e.w("let context_error ctx code =")
	e.w("  let msg =")
	e.w("    match Raw.context_get_error ctx.ctx with")
	e.w("    | Some s -> s")
	e.w("    | None -> \"\"")
	e.w("  in")
	e.w("  raise (Futhark_error (Printf.sprintf \"futhark error %%d: %%s\" code msg))")
	e.w("")
	e.w("(* The finaliser frees the context after the config, matching the")
	e.w("   reverse of construction order. *)")
	e.w("let context_new () =")
	e.w("  let cfg = Raw.context_config_new () in")
	e.w("  if is_null cfg then null_error ();")
	e.w("  let c = Raw.context_new cfg in")
	e.w("  if is_null c then begin")
	e.w("    Raw.context_config_free cfg;")
	e.w("    null_error ()")
	e.w("  end;")
	e.w("  let t = { ctx = c; cfg } in")
	e.w("  Gc.finalise (fun t -> Raw.context_free t.ctx; Raw.context_config_free t.cfg) t;")
	e.w("  t")
	e.w("")
	e.w("let sync ctx =")
	e.w("  let rc = Raw.context_sync ctx.ctx in")
	e.w("  if rc <> 0 then context_error ctx rc")
	e.w("")
}

// typeModules emits one OCaml module per manifest type. The modules are
// mutually recursive (declared with signatures, then defined) so that
// opaque projections may reference types in any order.
func (e *ocamlEmitter) typeModules() {
	names := e.m.TypeNames()
	if len(names) == 0 {
		return
	}

	for i, name := range names {
		kw := "module rec"
		if i > 0 {
			kw = "and"
		}
		switch t := e.m.Types[name].(type) {
		case *manifest.ArrayType:
			e.arraySig(kw, name, t)
			e.arrayImpl(name, t)
		case *manifest.OpaqueType:
			e.opaqueSig(kw, name, t)
			e.opaqueImpl(name, t)
		}
	}
	e.w("")
}

func (e *ocamlEmitter) shapeTupleType(rank int) string {
	parts := make([]string, rank)
	for i := range parts {
		parts[i] = "int64"
	}
	return strings.Join(parts, " * ")
}

func (e *ocamlEmitter) arraySig(kw, name string, t *manifest.ArrayType) {
	mod := ocamlTypeIdent(name, t)
	elem := ocamlPrim(t.Elem)

	e.w("%s %s : sig", kw, mod)
	e.w("  type t")
	e.w("  val of_raw : context -> unit ptr -> t")
	e.w("  val raw : t -> unit ptr")
	e.w("  val consume : t -> unit")
	if t.Ops.New != "" {
		e.w("  val v : context -> %s array -> %s -> t", elem, e.shapeTupleType(t.Rank))
	}
	if t.Ops.Shape != "" {
		e.w("  val shape : t -> %s", e.shapeTupleType(t.Rank))
	}
	if t.Ops.Values != "" {
		e.w("  val values : t -> %s array", elem)
	}
	e.w("end = struct")
}

func (e *ocamlEmitter) arrayImpl(name string, t *manifest.ArrayType) {
	elem := ocamlCtypes(t.Elem)

	e.w("  type t = { ptr : unit ptr; ctx : context; mutable valid : bool }")
	e.w("")
	e.w("  let of_raw ctx p =")
	e.w("    let t = { ptr = p; ctx; valid = true } in")
	e.w("    Gc.finalise (fun t -> if t.valid then ignore (Raw.%s t.ctx.ctx t.ptr)) t;", t.Ops.Free)
	e.w("    t")
	e.w("")
	e.w("  let raw t =")
	e.w("    if not t.valid then raise (Futhark_error \"value used after being consumed\");")
	e.w("    t.ptr")
	e.w("")
	e.w("  let consume t = t.valid <- false")

	if t.Ops.New != "" {
		dims := make([]string, t.Rank)
		for i := range dims {
			dims[i] = fmt.Sprintf("d%d", i)
		}
		pattern := dims[0]
		if t.Rank > 1 {
			pattern = "(" + strings.Join(dims, ", ") + ")"
		}
		e.w("")
		e.w("  let v ctx values %s =", pattern)
		e.w("    let n = Array.length values in")
		e.w("    let buf = CArray.make %s n in", elem)
		e.w("    Array.iteri (CArray.set buf) values;")
		e.w("    let p = Raw.%s ctx.ctx (CArray.start buf) %s in", t.Ops.New, strings.Join(dims, " "))
		e.w("    if is_null p then null_error ();")
		e.w("    of_raw ctx p")
	}

	if t.Ops.Shape != "" {
		reads := make([]string, t.Rank)
		for i := range reads {
			if i == 0 {
				reads[i] = "!@ s"
			} else {
				reads[i] = fmt.Sprintf("!@ (s +@ %d)", i)
			}
		}
		e.w("")
		e.w("  let shape t =")
		e.w("    let s = Raw.%s t.ctx.ctx (raw t) in", t.Ops.Shape)
		if t.Rank == 1 {
			e.w("    %s", reads[0])
		} else {
			e.w("    (%s)", strings.Join(reads, ", "))
		}
	}

	if t.Ops.Values != "" {
		dims := make([]string, t.Rank)
		for i := range dims {
			dims[i] = fmt.Sprintf("d%d", i)
		}
		pattern := dims[0]
		if t.Rank > 1 {
			pattern = "(" + strings.Join(dims, ", ") + ")"
		}
		factors := make([]string, t.Rank)
		for i, d := range dims {
			factors[i] = "Int64.to_int " + d
		}
		e.w("")
		e.w("  let values t =")
		e.w("    let %s = shape t in", pattern)
		e.w("    let n = %s in", strings.Join(factors, " * "))
		e.w("    let buf = CArray.make %s n in", elem)
		e.w("    let rc = Raw.%s t.ctx.ctx (raw t) (CArray.start buf) in", t.Ops.Values)
		e.w("    if rc <> 0 then context_error t.ctx rc;")
		if e.async {
			e.w("    sync t.ctx;")
		}
		e.w("    Array.init n (CArray.get buf)")
	}

	e.w("end")
}

func (e *ocamlEmitter) opaqueSig(kw, name string, t *manifest.OpaqueType) {
	mod := ocamlTypeIdent(name, t)

	e.w("%s %s : sig", kw, mod)
	e.w("  type t")
	e.w("  val of_raw : context -> unit ptr -> t")
	e.w("  val raw : t -> unit ptr")
	e.w("  val consume : t -> unit")
	if t.Record != nil && t.Record.New != "" {
		args := make([]string, 0, len(t.Record.Fields))
		for _, f := range t.Record.Fields {
			args = append(args, e.hostType(f.Type))
		}
		e.w("  val v : context -> %s -> t", strings.Join(args, " -> "))
	}
	for _, p := range t.Projections() {
		e.w("  val %s : t -> %s", sanitizeIdent(p.Name), e.hostType(p.Type))
	}
	if t.Sum != nil {
		if t.Sum.Variant != "" {
			e.w("  val variant : t -> int")
		}
		for _, v := range t.Sum.Variants {
			ident := sanitizeIdent(strings.TrimPrefix(v.Name, "#"))
			if v.Construct != "" {
				args := make([]string, 0, len(v.Payload))
				for _, ref := range v.Payload {
					args = append(args, e.hostType(ref))
				}
				sig := "context -> t"
				if len(args) > 0 {
					sig = "context -> " + strings.Join(args, " -> ") + " -> t"
				}
				e.w("  val new_%s : %s", ident, sig)
			}
			if v.Destruct != "" {
				rets := make([]string, 0, len(v.Payload))
				for _, ref := range v.Payload {
					rets = append(rets, e.hostType(ref))
				}
				ret := "unit"
				if len(rets) > 0 {
					ret = strings.Join(rets, " * ")
				}
				e.w("  val get_%s : t -> %s", ident, ret)
			}
		}
	}
	if t.Ops.Store != "" {
		e.w("  val store : t -> Bytes.t")
	}
	if t.Ops.Restore != "" {
		e.w("  val restore : context -> Bytes.t -> t")
	}
	e.w("end = struct")
}

func (e *ocamlEmitter) opaqueImpl(name string, t *manifest.OpaqueType) {
	e.w("  type t = { ptr : unit ptr; ctx : context; mutable valid : bool }")
	e.w("")
	e.w("  let of_raw ctx p =")
	e.w("    let t = { ptr = p; ctx; valid = true } in")
	e.w("    Gc.finalise (fun t -> if t.valid then ignore (Raw.%s t.ctx.ctx t.ptr)) t;", t.Ops.Free)
	e.w("    t")
	e.w("")
	e.w("  let raw t =")
	e.w("    if not t.valid then raise (Futhark_error \"value used after being consumed\");")
	e.w("    t.ptr")
	e.w("")
	e.w("  let consume t = t.valid <- false")

	if t.Record != nil && t.Record.New != "" {
		args := make([]string, 0, len(t.Record.Fields))
		callArgs := make([]string, 0, len(t.Record.Fields))
		for i, f := range t.Record.Fields {
			arg := fmt.Sprintf("f%d", i)
			args = append(args, arg)
			if manifest.IsPrim(f.Type) {
				callArgs = append(callArgs, arg)
			} else {
				callArgs = append(callArgs, fmt.Sprintf("(%s.raw %s)", ocamlTypeIdent(f.Type, e.m.Types[f.Type]), arg))
			}
		}
		e.w("")
		e.w("  let v ctx %s =", strings.Join(args, " "))
		e.w("    let out = allocate (ptr void) null in")
		e.w("    let rc = Raw.%s ctx.ctx out %s in", t.Record.New, strings.Join(callArgs, " "))
		e.w("    if rc <> 0 then context_error ctx rc;")
		e.w("    of_raw ctx (!@ out)")
	}

	for _, p := range t.Projections() {
		e.ocamlProjection(p)
	}

	if t.Sum != nil {
		e.ocamlSum(t.Sum)
	}

	if t.Ops.Store != "" {
		e.w("")
		e.w("  let store t =")
		e.w("    let n = allocate size_t (Unsigned.Size_t.of_int 0) in")
		e.w("    let rc = Raw.%s t.ctx.ctx (raw t) (from_voidp (ptr void) null) n in", t.Ops.Store)
		e.w("    if rc <> 0 then context_error t.ctx rc;")
		e.w("    let count = Unsigned.Size_t.to_int (!@ n) in")
		e.w("    let buf = CArray.make char count in")
		e.w("    let p = allocate (ptr void) (to_voidp (CArray.start buf)) in")
		e.w("    let rc = Raw.%s t.ctx.ctx (raw t) p n in", t.Ops.Store)
		e.w("    if rc <> 0 then context_error t.ctx rc;")
		e.w("    Bytes.init count (CArray.get buf)")
	}

	if t.Ops.Restore != "" {
		e.w("")
		e.w("  let restore ctx bytes =")
		e.w("    let count = Bytes.length bytes in")
		e.w("    let buf = CArray.make char count in")
		e.w("    Bytes.iteri (CArray.set buf) bytes;")
		e.w("    let p = Raw.%s ctx.ctx (to_voidp (CArray.start buf)) in", t.Ops.Restore)
		e.w("    if is_null p then null_error ();")
		e.w("    of_raw ctx p")
	}

	e.w("end")
}

func (e *ocamlEmitter) ocamlProjection(p manifest.Projection) {
	method := sanitizeIdent(p.Name)
	e.w("")
	e.w("  let %s t =", method)
	if pr, ok := manifest.ParsePrim(p.Type); ok {
		e.w("    let out = allocate %s %s in", ocamlCtypes(pr), ocamlZero(pr))
		e.w("    let rc = Raw.%s t.ctx.ctx out (raw t) in", p.CFun)
		e.w("    if rc <> 0 then context_error t.ctx rc;")
		if e.async {
			e.w("    sync t.ctx;")
		}
		e.w("    !@ out")
		return
	}
	child := ocamlTypeIdent(p.Type, e.m.Types[p.Type])
	e.w("    let out = allocate (ptr void) null in")
	e.w("    let rc = Raw.%s t.ctx.ctx out (raw t) in", p.CFun)
	e.w("    if rc <> 0 then context_error t.ctx rc;")
	e.w("    %s.of_raw t.ctx (!@ out)", child)
}

func (e *ocamlEmitter) ocamlSum(sum *manifest.SumView) {
	if sum.Variant != "" {
		e.w("")
		e.w("  let variant t = Raw.%s t.ctx.ctx (raw t)", sum.Variant)
	}

	for _, v := range sum.Variants {
		ident := sanitizeIdent(strings.TrimPrefix(v.Name, "#"))

		if v.Construct != "" {
			args := make([]string, 0, len(v.Payload))
			callArgs := make([]string, 0, len(v.Payload))
			for i, ref := range v.Payload {
				arg := fmt.Sprintf("v%d", i)
				args = append(args, arg)
				if manifest.IsPrim(ref) {
					callArgs = append(callArgs, arg)
				} else {
					callArgs = append(callArgs, fmt.Sprintf("(%s.raw %s)", ocamlTypeIdent(ref, e.m.Types[ref]), arg))
				}
			}
			e.w("")
			if len(args) > 0 {
				e.w("  let new_%s ctx %s =", ident, strings.Join(args, " "))
			} else {
				e.w("  let new_%s ctx =", ident)
			}
			e.w("    let out = allocate (ptr void) null in")
			if len(callArgs) > 0 {
				e.w("    let rc = Raw.%s ctx.ctx out %s in", v.Construct, strings.Join(callArgs, " "))
			} else {
				e.w("    let rc = Raw.%s ctx.ctx out in", v.Construct)
			}
			e.w("    if rc <> 0 then context_error ctx rc;")
			e.w("    of_raw ctx (!@ out)")
		}

		if v.Destruct != "" {
			e.w("")
			e.w("  let get_%s t =", ident)
			outs := make([]string, 0, len(v.Payload))
			for i, ref := range v.Payload {
				out := fmt.Sprintf("out%d", i)
				outs = append(outs, out)
				if pr, ok := manifest.ParsePrim(ref); ok {
					e.w("    let %s = allocate %s %s in", out, ocamlCtypes(pr), ocamlZero(pr))
				} else {
					e.w("    let %s = allocate (ptr void) null in", out)
				}
			}
			e.w("    let rc = Raw.%s t.ctx.ctx %s (raw t) in", v.Destruct, strings.Join(outs, " "))
			e.w("    if rc <> 0 then context_error t.ctx rc;")
			vals := make([]string, 0, len(v.Payload))
			for i, ref := range v.Payload {
				if manifest.IsPrim(ref) {
					vals = append(vals, fmt.Sprintf("!@ out%d", i))
				} else {
					child := ocamlTypeIdent(ref, e.m.Types[ref])
					vals = append(vals, fmt.Sprintf("%s.of_raw t.ctx (!@ out%d)", child, i))
				}
			}
			switch len(vals) {
			case 0:
				e.w("    ()")
			case 1:
				e.w("    %s", vals[0])
			default:
				e.w("    (%s)", strings.Join(vals, ", "))
			}
		}
	}
}

func (e *ocamlEmitter) entryFunction(name string, ep manifest.EntryPoint) {
	args := make([]string, 0, len(ep.Inputs))
	for i, in := range ep.Inputs {
		args = append(args, ocamlArgName(in.Name, i))
	}
	if len(args) == 0 {
		args = append(args, "()")
	}

	e.w("let %s ctx %s =", sanitizeIdent(name), strings.Join(args, " "))

	for i, out := range ep.Outputs {
		if pr, ok := manifest.ParsePrim(out.Type); ok {
			e.w("  let out%d = allocate %s %s in", i, ocamlCtypes(pr), ocamlZero(pr))
		} else {
			e.w("  let out%d = allocate (ptr void) null in", i)
		}
	}

	callArgs := []string{"ctx.ctx"}
	for i := range ep.Outputs {
		callArgs = append(callArgs, fmt.Sprintf("out%d", i))
	}
	for i, in := range ep.Inputs {
		arg := ocamlArgName(in.Name, i)
		if manifest.IsPrim(in.Type) {
			callArgs = append(callArgs, arg)
		} else {
			mod := ocamlTypeIdent(in.Type, e.m.Types[in.Type])
			callArgs = append(callArgs, fmt.Sprintf("(%s.raw %s)", mod, arg))
		}
	}

	e.w("  let rc = Raw.%s %s in", ep.CFun, strings.Join(callArgs, " "))
	e.w("  if rc <> 0 then context_error ctx rc;")

	// Unique inputs were consumed by the callee: disarm their finalisers.
	for i, in := range ep.Inputs {
		if in.Unique && !manifest.IsPrim(in.Type) {
			mod := ocamlTypeIdent(in.Type, e.m.Types[in.Type])
			e.w("  %s.consume %s;", mod, ocamlArgName(in.Name, i))
		}
	}

	if e.async && len(ep.Outputs) > 0 {
		e.w("  sync ctx;")
	}

	vals := make([]string, 0, len(ep.Outputs))
	for i, out := range ep.Outputs {
		if manifest.IsPrim(out.Type) {
			vals = append(vals, fmt.Sprintf("!@ out%d", i))
		} else {
			mod := ocamlTypeIdent(out.Type, e.m.Types[out.Type])
			vals = append(vals, fmt.Sprintf("%s.of_raw ctx (!@ out%d)", mod, i))
		}
	}
	switch len(vals) {
	case 0:
		e.w("  ()")
	case 1:
		e.w("  %s", vals[0])
	default:
		e.w("  (%s)", strings.Join(vals, ", "))
	}
	e.w("")
}

// ocamlKeywords are names that cannot be used as argument identifiers.
var ocamlKeywords = map[string]bool{
	"and": true, "as": true, "assert": true, "begin": true, "class": true,
	"constraint": true, "do": true, "done": true, "downto": true, "else": true,
	"end": true, "exception": true, "external": true, "false": true,
	"for": true, "fun": true, "function": true, "functor": true, "if": true,
	"in": true, "include": true, "inherit": true, "lazy": true, "let": true,
	"match": true, "method": true, "module": true, "mutable": true,
	"new": true, "object": true, "of": true, "open": true, "or": true,
	"rec": true, "sig": true, "struct": true, "then": true, "to": true,
	"true": true, "try": true, "type": true, "val": true, "virtual": true,
	"when": true, "while": true, "with": true,
}

// ocamlArgName picks the emitted argument name for a positional input.
func ocamlArgName(name string, i int) string {
	s := sanitizeIdent(name)
	if s == "" || ocamlKeywords[s] {
		return fmt.Sprintf("in%d", i)
	}
	// OCaml value names must start lowercase.
	if s[0] >= 'A' && s[0] <= 'Z' {
		s = strings.ToLower(s[:1]) + s[1:]
	}
	return s
}
