package generate

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/futbind/futbind/compiler"
	"github.com/futbind/futbind/manifest"
)

// Rust emits an ownership-based Rust module over the generated C ABI.
//
// The module declares a Context owning the futhark context and its config,
// one owning wrapper per manifest type, and one Context method per entry
// point. Unique inputs are consumed by value; the wrapper's Drop is
// suppressed because the callee took the underlying object.
type Rust struct{}

// Generate implements Generator.
func (r *Rust) Generate(lib *compiler.Library, cfg *Config) error {
	m := lib.Manifest
	e := &rustEmitter{
		m:     m,
		async: m.Backend.Async(),
	}
	e.module(lib, cfg)

	Logger().Debug("emitted rust bindings",
		zap.String("dest", cfg.Path),
		zap.Int("entry_points", len(m.EntryPoints)),
		zap.Int("types", len(m.Types)))

	return cfg.write(e.b.String())
}

type rustEmitter struct {
	b     strings.Builder
	m     *manifest.Manifest
	async bool
}

func (e *rustEmitter) w(format string, args ...any) {
	fmt.Fprintf(&e.b, format, args...)
	e.b.WriteByte('\n')
}

func (e *rustEmitter) module(lib *compiler.Library, cfg *Config) {
	e.w("// Bindings for %s, generated by futbind. DO NOT EDIT.", cfg.ModuleName)
	e.w("// Source: %s (backend %s, futhark %s)", lib.Src, e.m.Backend, e.m.Version)
	e.w("")
	if cfg.EmitAttributes {
		e.w("#![allow(non_camel_case_types)]")
		e.w("#![allow(dead_code)]")
		e.w("#![allow(clippy::too_many_arguments)]")
		e.w("")
	}
	e.w("use std::ffi::CStr;")
	e.w("use std::marker::PhantomData;")
	e.w("use std::os::raw::{c_char, c_int, c_void};")
	e.w("use std::ptr;")
	e.w("")

	e.rawDecls()
	e.externBlock()
	e.errorType()
	e.contextType()

	for _, name := range e.m.TypeNames() {
		switch t := e.m.Types[name].(type) {
		case *manifest.ArrayType:
			e.arrayWrapper(name, t)
		case *manifest.OpaqueType:
			e.opaqueWrapper(name, t)
		}
	}
}

// rawDecls emits an incomplete #[repr(C)] struct per C object so that
// type declarations can reference each other freely (declare before
// define).
func (e *rustEmitter) rawDecls() {
	e.w("#[repr(C)]")
	e.w("pub struct futhark_context_config { _private: [u8; 0] }")
	e.w("#[repr(C)]")
	e.w("pub struct futhark_context { _private: [u8; 0] }")
	for _, name := range e.m.TypeNames() {
		e.w("#[repr(C)]")
		e.w("pub struct %s { _private: [u8; 0] }", rawCName(name, e.m.Types[name]))
	}
	e.w("")
}

func (e *rustEmitter) externBlock() {
	e.w(`extern "C" {`)
	e.w("    fn futhark_context_config_new() -> *mut futhark_context_config;")
	e.w("    fn futhark_context_config_free(cfg: *mut futhark_context_config);")
	e.w("    fn futhark_context_new(cfg: *mut futhark_context_config) -> *mut futhark_context;")
	e.w("    fn futhark_context_free(ctx: *mut futhark_context);")
	e.w("    fn futhark_context_sync(ctx: *mut futhark_context) -> c_int;")
	e.w("    fn futhark_context_get_error(ctx: *mut futhark_context) -> *mut c_char;")
	e.w("    fn free(p: *mut c_void);")

	for _, name := range e.m.TypeNames() {
		switch t := e.m.Types[name].(type) {
		case *manifest.ArrayType:
			e.arrayExterns(name, t)
		case *manifest.OpaqueType:
			e.opaqueExterns(name, t)
		}
	}

	for _, name := range e.m.EntryPointNames() {
		e.entryExtern(e.m.EntryPoints[name])
	}
	e.w("}")
	e.w("")
}

func (e *rustEmitter) arrayExterns(name string, t *manifest.ArrayType) {
	raw := rawCName(name, t)
	elem := rustPrim(t.Elem)

	dims := make([]string, t.Rank)
	for i := range dims {
		dims[i] = fmt.Sprintf("d%d: i64", i)
	}
	if t.Ops.New != "" {
		e.w("    fn %s(ctx: *mut futhark_context, data: *const %s, %s) -> *mut %s;",
			t.Ops.New, elem, strings.Join(dims, ", "), raw)
	}
	if t.Ops.Free != "" {
		e.w("    fn %s(ctx: *mut futhark_context, arr: *mut %s) -> c_int;", t.Ops.Free, raw)
	}
	if t.Ops.Shape != "" {
		e.w("    fn %s(ctx: *mut futhark_context, arr: *mut %s) -> *const i64;", t.Ops.Shape, raw)
	}
	if t.Ops.Values != "" {
		e.w("    fn %s(ctx: *mut futhark_context, arr: *mut %s, data: *mut %s) -> c_int;",
			t.Ops.Values, raw, elem)
	}
	if t.Ops.ValuesRaw != "" {
		e.w("    fn %s(ctx: *mut futhark_context, arr: *mut %s) -> *mut %s;",
			t.Ops.ValuesRaw, raw, elem)
	}
}

func (e *rustEmitter) opaqueExterns(name string, t *manifest.OpaqueType) {
	raw := rawCName(name, t)

	if t.Ops.Free != "" {
		e.w("    fn %s(ctx: *mut futhark_context, obj: *mut %s) -> c_int;", t.Ops.Free, raw)
	}
	if t.Ops.Store != "" {
		e.w("    fn %s(ctx: *mut futhark_context, obj: *const %s, p: *mut *mut c_void, n: *mut usize) -> c_int;",
			t.Ops.Store, raw)
	}
	if t.Ops.Restore != "" {
		e.w("    fn %s(ctx: *mut futhark_context, p: *const c_void) -> *mut %s;", t.Ops.Restore, raw)
	}

	for _, p := range t.Projections() {
		e.w("    fn %s(ctx: *mut futhark_context, out: *mut %s, obj: *const %s) -> c_int;",
			p.CFun, e.outCType(p.Type), raw)
	}

	if t.Record != nil && t.Record.New != "" {
		args := make([]string, 0, len(t.Record.Fields))
		for _, f := range t.Record.Fields {
			args = append(args, fmt.Sprintf("%s: %s", rustArgName(f.Name, len(args)), e.inCType(f.Type)))
		}
		e.w("    fn %s(ctx: *mut futhark_context, out: *mut *mut %s, %s) -> c_int;",
			t.Record.New, raw, strings.Join(args, ", "))
	}

	if t.Sum != nil {
		if t.Sum.Variant != "" {
			e.w("    fn %s(ctx: *mut futhark_context, obj: *const %s) -> c_int;", t.Sum.Variant, raw)
		}
		for _, v := range t.Sum.Variants {
			if v.Construct != "" {
				args := make([]string, 0, len(v.Payload))
				for i, ref := range v.Payload {
					args = append(args, fmt.Sprintf("v%d: %s", i, e.inCType(ref)))
				}
				sig := "ctx: *mut futhark_context, out: *mut *mut " + raw
				if len(args) > 0 {
					sig += ", " + strings.Join(args, ", ")
				}
				e.w("    fn %s(%s) -> c_int;", v.Construct, sig)
			}
			if v.Destruct != "" {
				outs := make([]string, 0, len(v.Payload))
				for i, ref := range v.Payload {
					outs = append(outs, fmt.Sprintf("v%d: *mut %s", i, e.outCType(ref)))
				}
				sig := "ctx: *mut futhark_context"
				if len(outs) > 0 {
					sig += ", " + strings.Join(outs, ", ")
				}
				sig += ", obj: *const " + raw
				e.w("    fn %s(%s) -> c_int;", v.Destruct, sig)
			}
		}
	}
}

func (e *rustEmitter) entryExtern(ep manifest.EntryPoint) {
	params := []string{"ctx: *mut futhark_context"}
	for i, out := range ep.Outputs {
		params = append(params, fmt.Sprintf("out%d: *mut %s", i, e.outCType(out.Type)))
	}
	for i, in := range ep.Inputs {
		params = append(params, fmt.Sprintf("in%d: %s", i, e.inCType(in.Type)))
	}
	e.w("    fn %s(%s) -> c_int;", ep.CFun, strings.Join(params, ", "))
}

// inCType is the extern parameter type carrying a manifest reference into
// C: scalars by value, wrappers by const pointer to the raw object.
func (e *rustEmitter) inCType(ref string) string {
	if p, ok := manifest.ParsePrim(ref); ok {
		return rustPrim(p)
	}
	return "*const " + rawCName(ref, e.m.Types[ref])
}

// outCType is the pointee type of an out-parameter: the scalar itself, or
// a raw pointer for wrapper results.
func (e *rustEmitter) outCType(ref string) string {
	if p, ok := manifest.ParsePrim(ref); ok {
		return rustPrim(p)
	}
	return "*mut " + rawCName(ref, e.m.Types[ref])
}

// hostType is the public Rust type exposing a manifest reference.
func (e *rustEmitter) hostType(ref string) string {
	if p, ok := manifest.ParsePrim(ref); ok {
		return rustPrim(p)
	}
	return typeIdent(ref, e.m.Types[ref]) + "<'_>"
}

func (e *rustEmitter) errorType() {
	e.w("#[derive(Debug)]")
	e.w("pub enum Error {")
	e.w("    Code(i64, String),")
	e.w("    NullPtr,")
	e.w("}")
	e.w("")
	e.w("impl std::fmt::Display for Error {")
	e.w("    fn fmt(&self, f: &mut std::fmt::Formatter<'_>) -> std::fmt::Result {")
	e.w("        match self {")
	e.w(`            Error::Code(code, msg) => write!(f, "futhark error {}: {}", code, msg),`)
	e.w(`            Error::NullPtr => write!(f, "futhark returned a null pointer"),`)
	e.w("        }")
	e.w("    }")
	e.w("}")
	e.w("")
	e.w("impl std::error::Error for Error {}")
	e.w("")
}

func (e *rustEmitter) contextType() {
	e.w("/// Owns the futhark context and its configuration. Not shareable")
	e.w("/// across threads; entry-point calls are serialised by the caller.")
	e.w("pub struct Context {")
	e.w("    cfg: *mut futhark_context_config,")
	e.w("    ctx: *mut futhark_context,")
	e.w("    _unsync: PhantomData<*mut ()>,")
	e.w("}")
	e.w("")
	e.w("impl Context {")
	e.w("    pub fn new() -> Result<Context, Error> {")
	e.w("        unsafe {")
	e.w("            let cfg = futhark_context_config_new();")
	e.w("            if cfg.is_null() {")
	e.w("                return Err(Error::NullPtr);")
	e.w("            }")
	e.w("            let ctx = futhark_context_new(cfg);")
	e.w("            if ctx.is_null() {")
	e.w("                futhark_context_config_free(cfg);")
	e.w("                return Err(Error::NullPtr);")
	e.w("            }")
	e.w("            Ok(Context { cfg, ctx, _unsync: PhantomData })")
	e.w("        }")
	e.w("    }")
	e.w("")
	e.w("    pub fn sync(&self) -> Result<(), Error> {")
	e.w("        let rc = unsafe { futhark_context_sync(self.ctx) };")
	e.w("        if rc != 0 {")
	e.w("            return Err(self.error_with_code(rc));")
	e.w("        }")
	e.w("        Ok(())")
	e.w("    }")
	e.w("")
	e.w("    fn error_with_code(&self, code: c_int) -> Error {")
	e.w("        unsafe {")
	e.w("            let s = futhark_context_get_error(self.ctx);")
	e.w("            if s.is_null() {")
	e.w("                return Error::Code(code as i64, String::new());")
	e.w("            }")
	e.w("            let msg = CStr::from_ptr(s).to_string_lossy().into_owned();")
	e.w("            free(s as *mut c_void);")
	e.w("            Error::Code(code as i64, msg)")
	e.w("        }")
	e.w("    }")

	for _, name := range e.m.EntryPointNames() {
		e.entryMethod(name, e.m.EntryPoints[name])
	}

	e.w("}")
	e.w("")
	e.w("impl Drop for Context {")
	e.w("    fn drop(&mut self) {")
	e.w("        unsafe {")
	e.w("            futhark_context_free(self.ctx);")
	e.w("            futhark_context_config_free(self.cfg);")
	e.w("        }")
	e.w("    }")
	e.w("}")
	e.w("")
}

func (e *rustEmitter) entryMethod(name string, ep manifest.EntryPoint) {
	// Signature: non-unique wrappers by reference, unique wrappers by
	// value (consumed), scalars by value.
	params := make([]string, 0, len(ep.Inputs))
	for i, in := range ep.Inputs {
		arg := rustArgName(in.Name, i)
		if manifest.IsPrim(in.Type) {
			params = append(params, fmt.Sprintf("%s: %s", arg, e.hostType(in.Type)))
		} else if in.Unique {
			params = append(params, fmt.Sprintf("%s: %s", arg, e.hostType(in.Type)))
		} else {
			params = append(params, fmt.Sprintf("%s: &%s", arg, e.hostType(in.Type)))
		}
	}

	rets := make([]string, 0, len(ep.Outputs))
	for _, out := range ep.Outputs {
		rets = append(rets, e.hostType(out.Type))
	}
	var ret string
	switch len(rets) {
	case 0:
		ret = "()"
	case 1:
		ret = rets[0]
	default:
		ret = "(" + strings.Join(rets, ", ") + ")"
	}

	sig := "&self"
	if len(params) > 0 {
		sig += ", " + strings.Join(params, ", ")
	}
	e.w("")
	e.w("    pub fn %s(%s) -> Result<%s, Error> {", sanitizeIdent(name), sig, ret)

	// Out-parameter locals.
	for i, out := range ep.Outputs {
		if manifest.IsPrim(out.Type) {
			e.w("        let mut out%d: %s = Default::default();", i, e.outCType(out.Type))
		} else {
			e.w("        let mut out%d: %s = ptr::null_mut();", i, e.outCType(out.Type))
		}
	}

	// Unique wrapper inputs are consumed: take the raw pointer and
	// suppress the wrapper's Drop, the callee owns the object now.
	callArgs := []string{"self.ctx"}
	for i := range ep.Outputs {
		callArgs = append(callArgs, fmt.Sprintf("&mut out%d", i))
	}
	for i, in := range ep.Inputs {
		arg := rustArgName(in.Name, i)
		switch {
		case manifest.IsPrim(in.Type):
			callArgs = append(callArgs, arg)
		case in.Unique:
			e.w("        let %s_ptr = %s.ptr;", arg, arg)
			e.w("        std::mem::forget(%s);", arg)
			callArgs = append(callArgs, arg+"_ptr")
		default:
			callArgs = append(callArgs, arg+".ptr")
		}
	}

	e.w("        let rc = unsafe { %s(%s) };", ep.CFun, strings.Join(callArgs, ", "))
	e.w("        if rc != 0 {")
	e.w("            return Err(self.error_with_code(rc));")
	e.w("        }")
	if e.async && len(ep.Outputs) > 0 {
		e.w("        self.sync()?;")
	}

	// Wrap outputs.
	vals := make([]string, 0, len(ep.Outputs))
	for i, out := range ep.Outputs {
		if manifest.IsPrim(out.Type) {
			vals = append(vals, fmt.Sprintf("out%d", i))
		} else {
			wrapper := typeIdent(out.Type, e.m.Types[out.Type])
			vals = append(vals, fmt.Sprintf("%s { ptr: out%d, ctx: self }", wrapper, i))
		}
	}
	switch len(vals) {
	case 0:
		e.w("        Ok(())")
	case 1:
		e.w("        Ok(%s)", vals[0])
	default:
		e.w("        Ok((%s))", strings.Join(vals, ", "))
	}
	e.w("    }")
}

func (e *rustEmitter) arrayWrapper(name string, t *manifest.ArrayType) {
	wrapper := typeIdent(name, t)
	raw := rawCName(name, t)
	elem := rustPrim(t.Elem)

	e.w("/// Owning wrapper over the futhark array type `%s`.", name)
	e.w("pub struct %s<'a> {", wrapper)
	e.w("    ptr: *mut %s,", raw)
	e.w("    ctx: &'a Context,")
	e.w("}")
	e.w("")
	e.w("impl<'a> %s<'a> {", wrapper)

	if t.Ops.New != "" {
		dims := make([]string, t.Rank)
		for i := range dims {
			dims[i] = fmt.Sprintf("shape[%d]", i)
		}
		e.w("    pub fn new(ctx: &'a Context, values: &[%s], shape: [i64; %d]) -> Result<Self, Error> {", elem, t.Rank)
		e.w("        let ptr = unsafe { %s(ctx.ctx, values.as_ptr(), %s) };", t.Ops.New, strings.Join(dims, ", "))
		e.w("        if ptr.is_null() {")
		e.w("            return Err(Error::NullPtr);")
		e.w("        }")
		e.w("        Ok(%s { ptr, ctx })", wrapper)
		e.w("    }")
		e.w("")
	}

	if t.Ops.Shape != "" {
		e.w("    pub fn shape(&self) -> [i64; %d] {", t.Rank)
		e.w("        let mut out = [0i64; %d];", t.Rank)
		e.w("        unsafe {")
		e.w("            let s = %s(self.ctx.ctx, self.ptr);", t.Ops.Shape)
		e.w("            for (i, d) in out.iter_mut().enumerate() {")
		e.w("                *d = *s.add(i);")
		e.w("            }")
		e.w("        }")
		e.w("        out")
		e.w("    }")
		e.w("")
	}

	if t.Ops.Values != "" {
		e.w("    pub fn values(&self, dest: &mut [%s]) -> Result<(), Error> {", elem)
		e.w("        let rc = unsafe { %s(self.ctx.ctx, self.ptr, dest.as_mut_ptr()) };", t.Ops.Values)
		e.w("        if rc != 0 {")
		e.w("            return Err(self.ctx.error_with_code(rc));")
		e.w("        }")
		if e.async {
			e.w("        self.ctx.sync()?;")
		}
		e.w("        Ok(())")
		e.w("    }")
	}

	if t.Ops.ValuesRaw != "" {
		e.w("")
		e.w("    /// Pointer into backend memory. Valid while self is live.")
		e.w("    pub unsafe fn values_raw(&self) -> *mut %s {", elem)
		e.w("        %s(self.ctx.ctx, self.ptr)", t.Ops.ValuesRaw)
		e.w("    }")
	}

	e.w("}")
	e.w("")
	e.w("impl<'a> Drop for %s<'a> {", wrapper)
	e.w("    fn drop(&mut self) {")
	e.w("        unsafe {")
	e.w("            %s(self.ctx.ctx, self.ptr);", t.Ops.Free)
	e.w("        }")
	e.w("    }")
	e.w("}")
	e.w("")
}

func (e *rustEmitter) opaqueWrapper(name string, t *manifest.OpaqueType) {
	wrapper := typeIdent(name, t)
	raw := rawCName(name, t)

	e.w("/// Owning wrapper over the futhark opaque type `%s`.", name)
	e.w("pub struct %s<'a> {", wrapper)
	e.w("    ptr: *mut %s,", raw)
	e.w("    ctx: &'a Context,")
	e.w("}")
	e.w("")
	e.w("impl<'a> %s<'a> {", wrapper)

	if t.Record != nil && t.Record.New != "" {
		args := make([]string, 0, len(t.Record.Fields))
		callArgs := []string{"ctx.ctx", "&mut out"}
		for i, f := range t.Record.Fields {
			arg := rustArgName(f.Name, i)
			if manifest.IsPrim(f.Type) {
				args = append(args, fmt.Sprintf("%s: %s", arg, e.hostType(f.Type)))
				callArgs = append(callArgs, arg)
			} else {
				args = append(args, fmt.Sprintf("%s: &%s", arg, e.hostType(f.Type)))
				callArgs = append(callArgs, arg+".ptr")
			}
		}
		e.w("    pub fn new(ctx: &'a Context, %s) -> Result<Self, Error> {", strings.Join(args, ", "))
		e.w("        let mut out: *mut %s = ptr::null_mut();", raw)
		e.w("        let rc = unsafe { %s(%s) };", t.Record.New, strings.Join(callArgs, ", "))
		e.w("        if rc != 0 {")
		e.w("            return Err(ctx.error_with_code(rc));")
		e.w("        }")
		e.w("        Ok(%s { ptr: out, ctx })", wrapper)
		e.w("    }")
		e.w("")
	}

	for _, p := range t.Projections() {
		e.projection(wrapper, p)
	}

	if t.Sum != nil {
		e.sumView(wrapper, raw, t.Sum)
	}

	if t.Ops.Store != "" {
		e.w("    pub fn store(&self) -> Result<Vec<u8>, Error> {")
		e.w("        let mut n: usize = 0;")
		e.w("        let rc = unsafe { %s(self.ctx.ctx, self.ptr, ptr::null_mut(), &mut n) };", t.Ops.Store)
		e.w("        if rc != 0 {")
		e.w("            return Err(self.ctx.error_with_code(rc));")
		e.w("        }")
		e.w("        let mut buf = vec![0u8; n];")
		e.w("        let mut p = buf.as_mut_ptr() as *mut c_void;")
		e.w("        let rc = unsafe { %s(self.ctx.ctx, self.ptr, &mut p, &mut n) };", t.Ops.Store)
		e.w("        if rc != 0 {")
		e.w("            return Err(self.ctx.error_with_code(rc));")
		e.w("        }")
		e.w("        Ok(buf)")
		e.w("    }")
		e.w("")
	}

	if t.Ops.Restore != "" {
		e.w("    pub fn restore(ctx: &'a Context, bytes: &[u8]) -> Result<Self, Error> {")
		e.w("        let ptr = unsafe { %s(ctx.ctx, bytes.as_ptr() as *const c_void) };", t.Ops.Restore)
		e.w("        if ptr.is_null() {")
		e.w("            return Err(Error::NullPtr);")
		e.w("        }")
		e.w("        Ok(%s { ptr, ctx })", wrapper)
		e.w("    }")
	}

	e.w("}")
	e.w("")
	e.w("impl<'a> Drop for %s<'a> {", wrapper)
	e.w("    fn drop(&mut self) {")
	e.w("        unsafe {")
	e.w("            %s(self.ctx.ctx, self.ptr);", t.Ops.Free)
	e.w("        }")
	e.w("    }")
	e.w("}")
	e.w("")
}

// projection emits an accessor returning a fresh owning handle (or the
// scalar itself) for one opaque field.
func (e *rustEmitter) projection(wrapper string, p manifest.Projection) {
	method := sanitizeIdent(p.Name)
	if manifest.IsPrim(p.Type) {
		ty := e.hostType(p.Type)
		e.w("    pub fn %s(&self) -> Result<%s, Error> {", method, ty)
		e.w("        let mut out: %s = Default::default();", ty)
		e.w("        let rc = unsafe { %s(self.ctx.ctx, &mut out, self.ptr) };", p.CFun)
		e.w("        if rc != 0 {")
		e.w("            return Err(self.ctx.error_with_code(rc));")
		e.w("        }")
		if e.async {
			e.w("        self.ctx.sync()?;")
		}
		e.w("        Ok(out)")
		e.w("    }")
		e.w("")
		return
	}

	child := typeIdent(p.Type, e.m.Types[p.Type])
	childRaw := rawCName(p.Type, e.m.Types[p.Type])
	e.w("    pub fn %s(&self) -> Result<%s<'a>, Error> {", method, child)
	e.w("        let mut out: *mut %s = ptr::null_mut();", childRaw)
	e.w("        let rc = unsafe { %s(self.ctx.ctx, &mut out, self.ptr) };", p.CFun)
	e.w("        if rc != 0 {")
	e.w("            return Err(self.ctx.error_with_code(rc));")
	e.w("        }")
	e.w("        Ok(%s { ptr: out, ctx: self.ctx })", child)
	e.w("    }")
	e.w("")
}

func (e *rustEmitter) sumView(wrapper, raw string, sum *manifest.SumView) {
	if sum.Variant != "" {
		e.w("    /// Index of the active constructor.")
		e.w("    pub fn variant(&self) -> i64 {")
		e.w("        unsafe { %s(self.ctx.ctx, self.ptr) as i64 }", sum.Variant)
		e.w("    }")
		e.w("")
	}

	for _, v := range sum.Variants {
		ident := sanitizeIdent(strings.TrimPrefix(v.Name, "#"))

		if v.Construct != "" {
			args := make([]string, 0, len(v.Payload))
			callArgs := []string{"ctx.ctx", "&mut out"}
			for i, ref := range v.Payload {
				arg := fmt.Sprintf("v%d", i)
				if manifest.IsPrim(ref) {
					args = append(args, fmt.Sprintf("%s: %s", arg, e.hostType(ref)))
					callArgs = append(callArgs, arg)
				} else {
					args = append(args, fmt.Sprintf("%s: &%s", arg, e.hostType(ref)))
					callArgs = append(callArgs, arg+".ptr")
				}
			}
			sig := "ctx: &'a Context"
			if len(args) > 0 {
				sig += ", " + strings.Join(args, ", ")
			}
			e.w("    pub fn new_%s(%s) -> Result<Self, Error> {", ident, sig)
			e.w("        let mut out: *mut %s = ptr::null_mut();", raw)
			e.w("        let rc = unsafe { %s(%s) };", v.Construct, strings.Join(callArgs, ", "))
			e.w("        if rc != 0 {")
			e.w("            return Err(ctx.error_with_code(rc));")
			e.w("        }")
			e.w("        Ok(%s { ptr: out, ctx })", wrapper)
			e.w("    }")
			e.w("")
		}

		if v.Destruct != "" {
			rets := make([]string, 0, len(v.Payload))
			for _, ref := range v.Payload {
				rets = append(rets, e.hostType(ref))
			}
			var ret string
			switch len(rets) {
			case 0:
				ret = "()"
			case 1:
				ret = rets[0]
			default:
				ret = "(" + strings.Join(rets, ", ") + ")"
			}
			e.w("    pub fn get_%s(&self) -> Result<%s, Error> {", ident, ret)
			callArgs := []string{"self.ctx.ctx"}
			for i, ref := range v.Payload {
				if manifest.IsPrim(ref) {
					e.w("        let mut out%d: %s = Default::default();", i, e.outCType(ref))
				} else {
					e.w("        let mut out%d: %s = ptr::null_mut();", i, e.outCType(ref))
				}
				callArgs = append(callArgs, fmt.Sprintf("&mut out%d", i))
			}
			callArgs = append(callArgs, "self.ptr")
			e.w("        let rc = unsafe { %s(%s) };", v.Destruct, strings.Join(callArgs, ", "))
			e.w("        if rc != 0 {")
			e.w("            return Err(self.ctx.error_with_code(rc));")
			e.w("        }")
			vals := make([]string, 0, len(v.Payload))
			for i, ref := range v.Payload {
				if manifest.IsPrim(ref) {
					vals = append(vals, fmt.Sprintf("out%d", i))
				} else {
					child := typeIdent(ref, e.m.Types[ref])
					vals = append(vals, fmt.Sprintf("%s { ptr: out%d, ctx: self.ctx }", child, i))
				}
			}
			switch len(vals) {
			case 0:
				e.w("        Ok(())")
			case 1:
				e.w("        Ok(%s)", vals[0])
			default:
				e.w("        Ok((%s))", strings.Join(vals, ", "))
			}
			e.w("    }")
			e.w("")
		}
	}
}

// rustKeywords are names that cannot be used as argument identifiers.
var rustKeywords = map[string]bool{
	"as": true, "async": true, "await": true, "box": true, "break": true,
	"const": true, "continue": true, "crate": true, "dyn": true, "else": true,
	"enum": true, "extern": true, "false": true, "fn": true, "for": true,
	"if": true, "impl": true, "in": true, "let": true, "loop": true,
	"match": true, "mod": true, "move": true, "mut": true, "pub": true,
	"ref": true, "return": true, "self": true, "static": true, "struct": true,
	"super": true, "trait": true, "true": true, "type": true, "unsafe": true,
	"use": true, "where": true, "while": true,
}

// rustArgName picks the emitted argument name for a positional input.
func rustArgName(name string, i int) string {
	s := sanitizeIdent(name)
	if s == "" || rustKeywords[s] {
		return fmt.Sprintf("in%d", i)
	}
	return s
}
