package generate

import (
	"github.com/futbind/futbind/compiler"
)

// Generator turns a compiled library's manifest into host-language
// bindings. One implementation exists per host target; adding a target
// means adding an emitter and one case to Config.Detect.
type Generator interface {
	Generate(lib *compiler.Library, cfg *Config) error
}
