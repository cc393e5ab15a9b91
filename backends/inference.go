package backends

import (
	jsoniter "github.com/json-iterator/go"
)

// Window selects how an inference wrapper walks over an audio file.
type Window string

const (
	// WindowSliding applies the model on fixed-duration chunks and
	// aggregates the chunk outputs.
	WindowSliding Window = "sliding"
	// WindowWhole applies the model on the whole file at once.
	WindowWhole Window = "whole"
)

// Inference adapts a model for application to arbitrary-length audio by
// handling windowing and batching. The numerical aggregation itself is
// performed by the runtime backend.
type Inference struct {
	Model     *Model
	Window    Window
	Duration  float64
	Step      float64
	BatchSize int
	Device    Device
}

// inferenceConfig is the mapping shape accepted by GetInference.
type inferenceConfig struct {
	Model     string  `json:"model"`
	Window    string  `json:"window"`
	Duration  float64 `json:"duration"`
	Step      float64 `json:"step"`
	BatchSize int     `json:"batch_size"`
}

// NewInference wraps a model in an inference wrapper with default
// windowing settings. The chunk duration defaults to the model's own
// when the weights declare one.
func NewInference(model *Model) *Inference {
	return &Inference{
		Model:     model,
		Window:    WindowSliding,
		Duration:  model.Duration,
		BatchSize: 32,
		Device:    model.Device,
	}
}

// GetInference normalizes an inference spec. An already-constructed
// *Inference is returned unchanged. A *Model or a path string is wrapped
// with default settings. A mapping is expanded as configuration. Any
// other shape is an InvalidTypeError.
func GetInference(spec any) (*Inference, error) {
	switch value := spec.(type) {
	case *Inference:
		return value, nil
	case *Model:
		return NewInference(value), nil
	case string:
		model, err := GetModel(value)
		if err != nil {
			return nil, err
		}
		return NewInference(model), nil
	case map[string]any:
		return inferenceFromConfig(value)
	default:
		return nil, &InvalidTypeError{What: "inference", Got: spec, Expected: "an *Inference, a *Model, a path string or a mapping"}
	}
}

func inferenceFromConfig(spec map[string]any) (*Inference, error) {
	specBytes, err := jsoniter.Marshal(spec)
	if err != nil {
		return nil, err
	}
	config := inferenceConfig{}
	if err := jsoniter.Unmarshal(specBytes, &config); err != nil {
		return nil, InvalidConfigurationf("invalid inference configuration: %s", err)
	}
	if config.Model == "" {
		return nil, InvalidConfigurationf("inference configuration requires a model key")
	}
	model, err := GetModel(config.Model)
	if err != nil {
		return nil, err
	}
	inference := NewInference(model)
	if config.Window != "" {
		switch Window(config.Window) {
		case WindowSliding, WindowWhole:
			inference.Window = Window(config.Window)
		default:
			return nil, InvalidConfigurationf("unknown inference window %q", config.Window)
		}
	}
	if config.Duration > 0 {
		inference.Duration = config.Duration
	}
	if config.Step > 0 {
		inference.Step = config.Step
	}
	if config.BatchSize > 0 {
		inference.BatchSize = config.BatchSize
	}
	return inference, nil
}

// To moves the inference wrapper and its model to a device.
func (i *Inference) To(device Device) (*Inference, error) {
	if device.IsZero() {
		return nil, &InvalidTypeError{What: "device", Got: device, Expected: "a parsed Device"}
	}
	if _, err := i.Model.To(device); err != nil {
		return nil, err
	}
	i.Device = device
	return i, nil
}
