package pipelines

import (
	"strings"

	"github.com/wavekit-ai/wavekit/backends"
)

// DefaultNamespace is prepended to bare pipeline names found in
// checkpoint descriptors.
const DefaultNamespace = "wavekit.pipelines"

// Factory constructs a pipeline from the construction parameters
// declared in a checkpoint descriptor. Unexpected or missing required
// parameters must fail with an InvalidConfigurationError.
type Factory func(params Params) (Pipeline, error)

var factories = map[string]Factory{}

// Register makes a pipeline constructible by name from a checkpoint
// descriptor. Pipeline implementations register themselves in an init
// function. A bare name is registered under the default namespace.
func Register(name string, factory Factory) {
	if !strings.Contains(name, ".") {
		name = DefaultNamespace + "." + name
	}
	factories[name] = factory
}

// Resolve maps a descriptor's pipeline name to its registered factory,
// trying the name verbatim and then under the default namespace.
func Resolve(name string) (Factory, error) {
	if factory, ok := factories[name]; ok {
		return factory, nil
	}
	if !strings.Contains(name, ".") {
		if factory, ok := factories[DefaultNamespace+"."+name]; ok {
			return factory, nil
		}
	}
	return nil, &backends.NotFoundError{What: "pipeline class", Name: name}
}
