// Package compiler drives the Futhark compiler subprocess.
//
// The driver spawns `futhark <backend> [extra-args...] -o <stem> --lib
// <src>` and waits for it synchronously, inheriting the caller's standard
// streams. On success for C-emitting backends it parses `<stem>.json` into
// a manifest and returns a Library pointing at `<stem>.c` and `<stem>.h`.
// The Python and PyOpenCL backends produce a standalone script instead;
// for those Compile returns a nil Library and no error.
package compiler
