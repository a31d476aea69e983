package manifest

import "fmt"

// Backend is a Futhark code-generation target. It determines the runtime
// behaviour of the generated library and the native libraries it links.
type Backend int

const (
	C Backend = iota
	CUDA
	OpenCL
	Multicore
	Python
	PyOpenCL
)

var backendNames = [...]string{
	C:         "c",
	CUDA:      "cuda",
	OpenCL:    "opencl",
	Multicore: "multicore",
	Python:    "python",
	PyOpenCL:  "pyopencl",
}

// String returns the backend name as passed to the futhark executable.
func (b Backend) String() string {
	if int(b) < len(backendNames) {
		return backendNames[b]
	}
	return fmt.Sprintf("backend(%d)", int(b))
}

// ParseBackend resolves a backend from its wire name.
func ParseBackend(name string) (Backend, error) {
	for b, n := range backendNames {
		if n == name {
			return Backend(b), nil
		}
	}
	return 0, fmt.Errorf("unknown backend %q", name)
}

// RequiredLibs returns the C libraries that must be linked when this
// backend is used.
func (b Backend) RequiredLibs() []string {
	switch b {
	case CUDA:
		return []string{"cuda", "cudart", "nvrtc", "m"}
	case OpenCL:
		return []string{"OpenCL", "m"}
	default:
		return nil
	}
}

// EmitsLibrary reports whether the backend produces a C library. Python
// and PyOpenCL emit a standalone script with no C ABI to bind.
func (b Backend) EmitsLibrary() bool {
	return b != Python && b != PyOpenCL
}

// Async reports whether the backend executes entry points asynchronously.
// Bindings for async backends must synchronise the context before reading
// output values.
func (b Backend) Async() bool {
	switch b {
	case CUDA, OpenCL, Multicore:
		return true
	default:
		return false
	}
}
