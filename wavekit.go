// Package wavekit loads pretrained audio processing pipelines from
// checkpoint descriptors. A descriptor names a registered pipeline
// class, its construction and instantiation parameters, optional
// preprocessors and a target device; FromPretrained turns it into a
// fully wired pipeline object ready to be applied to audio files.
package wavekit

import (
	"github.com/wavekit-ai/wavekit/backends"
	"github.com/wavekit-ai/wavekit/options"
	"github.com/wavekit-ai/wavekit/pipelines"
	"github.com/wavekit-ai/wavekit/util/fileutil"
	"gopkg.in/yaml.v3"
)

// PipelineConfigName is the conventional descriptor file name inside a
// pretrained pipeline repository.
const PipelineConfigName = "config.yaml"

// checkpointConfig is the YAML shape of a checkpoint descriptor.
type checkpointConfig struct {
	Version  string `yaml:"version"`
	Pipeline struct {
		Name   string         `yaml:"name"`
		Params map[string]any `yaml:"params"`
	} `yaml:"pipeline"`
	Freeze        map[string]any `yaml:"freeze"`
	Params        map[string]any `yaml:"params"`
	Preprocessors map[string]any `yaml:"preprocessors"`
	Device        string         `yaml:"device"`
}

// FromPretrained loads a pretrained pipeline from a local checkpoint
// descriptor path.
//
// The descriptor's pipeline name is resolved against the registered
// pipeline factories, the pipeline is constructed with its declared
// parameters, frozen and instantiated, preprocessors are built and the
// whole graph is moved to the declared device. Loader failures (missing
// file, version incompatibility, unresolvable class, bad parameters)
// are fatal; a device transfer failure is reported through the logger
// and leaves the pipeline usable on its previous device.
func FromPretrained(checkpointPath string, opts ...options.WithOption) (pipelines.Pipeline, error) {
	parsedOptions := options.Defaults()
	for _, option := range opts {
		if err := option(parsedOptions); err != nil {
			return nil, err
		}
	}

	info, err := fileutil.FileStats(checkpointPath)
	if err != nil || info.IsDir() {
		return nil, &backends.NotFoundError{What: "checkpoint file", Name: checkpointPath}
	}

	raw, err := fileutil.ReadFileBytes(checkpointPath)
	if err != nil {
		return nil, err
	}
	config := checkpointConfig{}
	if err := yaml.Unmarshal(raw, &config); err != nil {
		return nil, backends.InvalidConfigurationf("invalid checkpoint descriptor %s: %s", checkpointPath, err)
	}

	if config.Version != "" {
		if err := checkVersion("pipeline", config.Version, Version, parsedOptions.Logger); err != nil {
			return nil, err
		}
	}

	if config.Pipeline.Name == "" {
		return nil, backends.InvalidConfigurationf("checkpoint descriptor %s does not declare pipeline.name", checkpointPath)
	}
	factory, err := pipelines.Resolve(config.Pipeline.Name)
	if err != nil {
		return nil, err
	}

	constructionParams := pipelines.Params(config.Pipeline.Params)
	if constructionParams == nil {
		constructionParams = pipelines.Params{}
	}
	pipeline, err := factory(constructionParams)
	if err != nil {
		return nil, err
	}
	base := pipeline.Base()

	if len(config.Freeze) > 0 {
		if err := base.Freeze(config.Freeze); err != nil {
			return nil, err
		}
	}
	if len(config.Params) > 0 {
		if err := base.Instantiate(config.Params); err != nil {
			return nil, err
		}
	}
	if parsedOptions.HParamsFile != "" {
		if err := base.LoadParams(parsedOptions.HParamsFile); err != nil {
			return nil, err
		}
	}

	if len(config.Preprocessors) > 0 {
		preprocessors, preErr := pipelines.BuildPreprocessors(config.Preprocessors)
		if preErr != nil {
			return nil, preErr
		}
		base.SetPreprocessors(preprocessors)
	}

	deviceID := config.Device
	if parsedOptions.Device != "" {
		deviceID = parsedOptions.Device
	}
	if deviceID != "" {
		device, parseErr := backends.ParseDevice(deviceID)
		if parseErr != nil {
			return nil, parseErr
		}
		if _, transferErr := base.To(device); transferErr != nil {
			parsedOptions.Logger.Warn("device transfer failed, pipeline stays on its previous device",
				"device", device.String(), "error", transferErr)
		}
	}

	return pipeline, nil
}
