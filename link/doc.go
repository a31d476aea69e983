// Package link turns a compiled library's C file into a static archive the
// surrounding build can link against.
//
// Link runs the system C compiler and archiver as subprocesses, producing
// libbindings_<project>.a, and returns Directives naming the archive, its
// search path, and the system libraries the backend requires (CUDA and
// OpenCL backends need their runtime libraries at link time).
package link
