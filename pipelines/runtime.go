package pipelines

import (
	"log/slog"
	"math/rand"

	"github.com/wavekit-ai/wavekit/backends"
)

// Pipeline is the interface every concrete pipeline satisfies by
// embedding BasePipeline and overriding Apply (and, when it supports
// lazy auto-instantiation, DefaultParameters).
type Pipeline interface {
	Base() *BasePipeline
	Apply(file *ProtocolFile, kwargs map[string]any) (any, error)
	DefaultParameters() (Params, error)
}

const mustInstantiate = "a pipeline must be instantiated with Instantiate(parameters) before it can be applied"

// reproducibleSeed seeds the shared sampling source before every run so
// repeated applications of a pipeline are deterministic.
const reproducibleSeed = 1234

// Rand is the sampling source used by pipelines that draw random
// numbers. It is re-seeded by the run entry point.
var Rand = rand.New(rand.NewSource(reproducibleSeed))

func fixReproducibility(device backends.Device) {
	_ = device // seeding is currently device independent
	Rand = rand.New(rand.NewSource(reproducibleSeed))
}

// Run is the invocation entry point of a pipeline. It re-seeds the
// sampling source, lazily auto-instantiates the pipeline with its
// default parameters, validates the input file reference, attaches the
// registered preprocessors as lazy keys and delegates to the concrete
// pipeline's Apply.
//
// Auto-instantiation failures are escalated to a single IllegalStateError
// telling the caller to instantiate explicitly, whatever the underlying
// cause.
func Run(p Pipeline, file any, kwargs map[string]any) (any, error) {
	base := p.Base()
	fixReproducibility(base.Device())

	if !base.Instantiated() {
		defaults, err := p.DefaultParameters()
		if err != nil {
			return nil, &backends.IllegalStateError{Reason: mustInstantiate}
		}
		if err := base.Instantiate(defaults); err != nil {
			return nil, &backends.IllegalStateError{Reason: mustInstantiate}
		}
		slog.Warn("pipeline automatically instantiated with default parameters", "parameters", defaults)
	}

	protocolFile, err := ValidateFile(file)
	if err != nil {
		return nil, err
	}
	if preprocessors := base.Preprocessors(); len(preprocessors) > 0 {
		protocolFile.bindLazy(preprocessors)
	}
	return p.Apply(protocolFile, kwargs)
}
