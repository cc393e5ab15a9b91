package backends

// Augmentation is a waveform transform applied to audio before a model
// sees it. Implementations live outside the loader and register a
// factory so descriptors can request them by name.
type Augmentation interface {
	Transform(samples []float32, sampleRate int) ([]float32, error)
}

// AugmentationFactory builds an augmentation from its declared
// parameters.
type AugmentationFactory func(params map[string]any) (Augmentation, error)

var augmentationFactories = map[string]AugmentationFactory{}

// RegisterAugmentation makes an augmentation constructible by name from
// a configuration mapping. Registration typically happens in an init
// function of the implementing package.
func RegisterAugmentation(name string, factory AugmentationFactory) {
	augmentationFactories[name] = factory
}

// GetAugmentation normalizes an augmentation spec. nil means "no
// augmentation" and passes through. An already-constructed Augmentation
// is returned unchanged. A mapping with a "name" key and optional
// "params" is built through the registered factory. Any other shape is
// an InvalidTypeError.
func GetAugmentation(spec any) (Augmentation, error) {
	if spec == nil {
		return nil, nil
	}
	switch value := spec.(type) {
	case Augmentation:
		return value, nil
	case map[string]any:
		return augmentationFromConfig(value)
	default:
		return nil, &InvalidTypeError{What: "augmentation", Got: spec, Expected: "an Augmentation or a mapping"}
	}
}

func augmentationFromConfig(spec map[string]any) (Augmentation, error) {
	name, ok := spec["name"].(string)
	if !ok || name == "" {
		return nil, InvalidConfigurationf("augmentation configuration requires a name key")
	}
	factory, ok := augmentationFactories[name]
	if !ok {
		return nil, &NotFoundError{What: "augmentation", Name: name}
	}
	params, _ := spec["params"].(map[string]any)
	return factory(params)
}
