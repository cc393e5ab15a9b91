// Package pipelines holds the pipeline object model: the base pipeline
// with its typed registries for sub-models, inference wrappers and
// sub-pipelines, the tunable parameter machinery, the preprocessor kinds
// and the run entry point. Concrete pipelines embed BasePipeline and
// register a factory so checkpoint descriptors can construct them by
// name.
package pipelines

import (
	"github.com/wavekit-ai/wavekit/backends"
)

// Params carries named parameter values, either for pipeline
// construction or for instantiation of tunable parameters.
type Params map[string]any

// registry is an insertion-ordered name-to-item mapping. Device
// transfer walks registries in registration order, so plain maps are
// not enough.
type registry[T any] struct {
	names []string
	items map[string]T
}

func newRegistry[T any]() *registry[T] {
	return &registry[T]{items: map[string]T{}}
}

func (r *registry[T]) set(name string, item T) {
	if _, ok := r.items[name]; !ok {
		r.names = append(r.names, name)
	}
	r.items[name] = item
}

func (r *registry[T]) get(name string) (T, bool) {
	item, ok := r.items[name]
	return item, ok
}

func (r *registry[T]) delete(name string) bool {
	if _, ok := r.items[name]; !ok {
		return false
	}
	delete(r.items, name)
	for i, n := range r.names {
		if n == name {
			r.names = append(r.names[:i], r.names[i+1:]...)
			break
		}
	}
	return true
}

func (r *registry[T]) forEach(visit func(name string, item T) error) error {
	for _, name := range r.names {
		if err := visit(name, r.items[name]); err != nil {
			return err
		}
	}
	return nil
}

// param is one tunable pipeline parameter. A frozen parameter keeps its
// frozen value across instantiations.
type param struct {
	value  any
	frozen bool
	hasVal bool
}

// BasePipeline is embedded by every concrete pipeline. It keeps four
// disjoint registries (plain attributes, sub-models, sub-inferences,
// sub-pipelines) plus the declared tunable parameters. A name lives in
// at most one registry at a time: the last assignment wins and evicts
// any earlier binding of the same name elsewhere.
type BasePipeline struct {
	attrs         *registry[any]
	models        *registry[*backends.Model]
	inferences    *registry[*backends.Inference]
	pipelines     *registry[Pipeline]
	params        *registry[*param]
	preprocessors map[string]Preprocessor
	device        backends.Device
	instantiated  bool
}

// NewBase initializes the registries of a pipeline. Concrete pipeline
// factories must call it before registering sub-models or inferences.
func NewBase() *BasePipeline {
	return &BasePipeline{
		attrs:      newRegistry[any](),
		models:     newRegistry[*backends.Model](),
		inferences: newRegistry[*backends.Inference](),
		pipelines:  newRegistry[Pipeline](),
		params:     newRegistry[*param](),
	}
}

// Base exposes the embedded base to the run entry point.
func (p *BasePipeline) Base() *BasePipeline {
	return p
}

// DefaultParameters reports that the pipeline declares no defaults.
// Concrete pipelines override it to enable lazy auto-instantiation.
func (p *BasePipeline) DefaultParameters() (Params, error) {
	return nil, backends.ErrNotImplemented
}

// Apply must be overridden by the concrete pipeline.
func (p *BasePipeline) Apply(_ *ProtocolFile, _ map[string]any) (any, error) {
	return nil, backends.ErrNotImplemented
}

func (p *BasePipeline) initialized() bool {
	return p.models != nil && p.inferences != nil
}

// evict removes any binding of name outside the registry it is being
// assigned into, preserving the exclusivity invariant.
func (p *BasePipeline) evict(name string) {
	p.attrs.delete(name)
	p.models.delete(name)
	p.inferences.delete(name)
	p.pipelines.delete(name)
	p.params.delete(name)
}

// RegisterModel binds a sub-model under name, evicting any previous
// binding of the name.
func (p *BasePipeline) RegisterModel(name string, model *backends.Model) error {
	if !p.initialized() {
		return &backends.IllegalStateError{Reason: "cannot register models before the pipeline is constructed with NewBase"}
	}
	p.evict(name)
	p.models.set(name, model)
	return nil
}

// RegisterInference binds an inference wrapper under name, evicting any
// previous binding of the name.
func (p *BasePipeline) RegisterInference(name string, inference *backends.Inference) error {
	if !p.initialized() {
		return &backends.IllegalStateError{Reason: "cannot register inferences before the pipeline is constructed with NewBase"}
	}
	p.evict(name)
	p.inferences.set(name, inference)
	return nil
}

// RegisterPipeline binds a sub-pipeline under name so that device
// transfer reaches it.
func (p *BasePipeline) RegisterPipeline(name string, pipeline Pipeline) error {
	if !p.initialized() {
		return &backends.IllegalStateError{Reason: "cannot register sub-pipelines before the pipeline is constructed with NewBase"}
	}
	p.evict(name)
	p.pipelines.set(name, pipeline)
	return nil
}

// Set classifies value by shape and routes it into the matching
// registry: sub-models, inference wrappers and sub-pipelines go into
// their tracking tables, everything else is a plain attribute.
func (p *BasePipeline) Set(name string, value any) error {
	switch typed := value.(type) {
	case *backends.Model:
		return p.RegisterModel(name, typed)
	case *backends.Inference:
		return p.RegisterInference(name, typed)
	case Pipeline:
		return p.RegisterPipeline(name, typed)
	default:
		if !p.initialized() {
			return &backends.IllegalStateError{Reason: "cannot assign attributes before the pipeline is constructed with NewBase"}
		}
		p.evict(name)
		p.attrs.set(name, value)
		return nil
	}
}

// Get looks name up in the models table, then the inferences table, then
// the sub-pipelines and plain attributes.
func (p *BasePipeline) Get(name string) (any, error) {
	if !p.initialized() {
		return nil, &backends.IllegalStateError{Reason: "pipeline is not constructed"}
	}
	if model, ok := p.models.get(name); ok {
		return model, nil
	}
	if inference, ok := p.inferences.get(name); ok {
		return inference, nil
	}
	if pipeline, ok := p.pipelines.get(name); ok {
		return pipeline, nil
	}
	if value, ok := p.attrs.get(name); ok {
		return value, nil
	}
	return nil, &backends.NotFoundError{What: "attribute", Name: name}
}

// Delete removes name from whichever registry currently holds it.
func (p *BasePipeline) Delete(name string) error {
	if !p.initialized() {
		return &backends.IllegalStateError{Reason: "pipeline is not constructed"}
	}
	if p.models.delete(name) || p.inferences.delete(name) || p.pipelines.delete(name) || p.attrs.delete(name) {
		return nil
	}
	return &backends.NotFoundError{What: "attribute", Name: name}
}

// Models returns the registered sub-model names in registration order.
func (p *BasePipeline) Models() []string {
	return append([]string(nil), p.models.names...)
}

// Inferences returns the registered inference wrapper names in
// registration order.
func (p *BasePipeline) Inferences() []string {
	return append([]string(nil), p.inferences.names...)
}

// SetPreprocessors attaches the per-file lazy preprocessors applied by
// the run entry point.
func (p *BasePipeline) SetPreprocessors(preprocessors map[string]Preprocessor) {
	p.preprocessors = preprocessors
}

func (p *BasePipeline) Preprocessors() map[string]Preprocessor {
	return p.preprocessors
}

// Device returns the pipeline's current device. The zero Device means
// no transfer has happened yet.
func (p *BasePipeline) Device() backends.Device {
	return p.device
}

// To moves every registered sub-pipeline, sub-model and inference
// wrapper to the device, in that order, then records the device on the
// pipeline itself. The transfer is not transactional: on failure the
// graph may be left on mixed devices, reported as a recoverable
// DeviceTransferError.
func (p *BasePipeline) To(device backends.Device) (*BasePipeline, error) {
	if device.IsZero() {
		return nil, &backends.InvalidTypeError{What: "device", Got: device, Expected: "a parsed Device"}
	}
	err := p.pipelines.forEach(func(_ string, sub Pipeline) error {
		_, subErr := sub.Base().To(device)
		return subErr
	})
	if err == nil {
		err = p.models.forEach(func(_ string, model *backends.Model) error {
			_, modelErr := model.To(device)
			return modelErr
		})
	}
	if err == nil {
		err = p.inferences.forEach(func(_ string, inference *backends.Inference) error {
			_, inferenceErr := inference.To(device)
			return inferenceErr
		})
	}
	if err != nil {
		return nil, &backends.DeviceTransferError{Device: device, Err: err}
	}
	p.device = device
	return p, nil
}
