package pipelines

import (
	"gopkg.in/yaml.v3"

	"github.com/wavekit-ai/wavekit/backends"
	"github.com/wavekit-ai/wavekit/util/fileutil"
)

// DeclareParams declares the tunable parameters of the pipeline. A
// pipeline cannot be applied until every declared parameter has a value,
// either through Freeze, Instantiate or the hyperparameters file.
func (p *BasePipeline) DeclareParams(names ...string) {
	for _, name := range names {
		p.evict(name)
		p.params.set(name, &param{})
	}
}

// Freeze pins the given parameters to fixed values. Frozen parameters
// are immutable for the lifetime of the pipeline: later instantiations
// keep the frozen value regardless of what they carry for it.
func (p *BasePipeline) Freeze(values Params) error {
	for name := range values {
		if _, ok := p.params.get(name); !ok {
			return backends.InvalidConfigurationf("cannot freeze %q: no such parameter", name)
		}
	}
	for name, value := range values {
		declared, _ := p.params.get(name)
		declared.value = value
		declared.frozen = true
		declared.hasVal = true
	}
	return nil
}

// Instantiate binds concrete values to the declared tunable parameters
// and marks the pipeline instantiated. Values for frozen parameters are
// ignored. A value for an undeclared parameter, or a missing value for
// an unfrozen one, fails with an InvalidConfigurationError and leaves
// the pipeline uninstantiated.
func (p *BasePipeline) Instantiate(values Params) error {
	for name := range values {
		if _, ok := p.params.get(name); !ok {
			return backends.InvalidConfigurationf("unexpected parameter %q", name)
		}
	}
	for _, name := range p.params.names {
		declared, _ := p.params.get(name)
		if declared.frozen {
			continue
		}
		if _, ok := values[name]; !ok {
			return backends.InvalidConfigurationf("missing value for parameter %q", name)
		}
	}
	for _, name := range p.params.names {
		declared, _ := p.params.get(name)
		if declared.frozen {
			continue
		}
		declared.value = values[name]
		declared.hasVal = true
	}
	p.instantiated = true
	return nil
}

// Instantiated reports whether every tunable parameter is bound.
func (p *BasePipeline) Instantiated() bool {
	return p.instantiated
}

// ParamValue returns the effective value of a tunable parameter.
func (p *BasePipeline) ParamValue(name string) (any, error) {
	declared, ok := p.params.get(name)
	if !ok {
		return nil, &backends.NotFoundError{What: "parameter", Name: name}
	}
	if !declared.hasVal {
		return nil, &backends.IllegalStateError{Reason: "parameter " + name + " has no value: pipeline is not instantiated"}
	}
	return declared.value, nil
}

// ParamNames returns the declared parameter names in declaration order.
func (p *BasePipeline) ParamNames() []string {
	return append([]string(nil), p.params.names...)
}

// hparamsFile is the on-disk shape of a hyperparameters file. A bare
// top-level mapping without the params key is accepted too.
type hparamsFile struct {
	Params map[string]any `yaml:"params"`
}

// LoadParams loads parameter values from a hyperparameters file and
// re-instantiates the pipeline with them, overriding the current values.
// Parameters absent from the file keep their current value.
func (p *BasePipeline) LoadParams(path string) error {
	exists, err := fileutil.FileExists(path)
	if err != nil {
		return err
	}
	if !exists {
		return &backends.NotFoundError{What: "hyperparameters file", Name: path}
	}
	raw, err := fileutil.ReadFileBytes(path)
	if err != nil {
		return err
	}
	parsed := hparamsFile{}
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return backends.InvalidConfigurationf("invalid hyperparameters file %s: %s", path, err)
	}
	loaded := parsed.Params
	if loaded == nil {
		flat := map[string]any{}
		if err := yaml.Unmarshal(raw, &flat); err != nil {
			return backends.InvalidConfigurationf("invalid hyperparameters file %s: %s", path, err)
		}
		loaded = flat
	}

	merged := Params{}
	for _, name := range p.params.names {
		declared, _ := p.params.get(name)
		if declared.hasVal && !declared.frozen {
			merged[name] = declared.value
		}
	}
	for name, value := range loaded {
		merged[name] = value
	}
	return p.Instantiate(merged)
}
