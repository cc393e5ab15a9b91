// Package options collects the knobs accepted when loading pretrained
// pipelines. Options are gathered into a struct first so they can be
// validated and applied in a well-defined order.
package options

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

type Options struct {
	// CacheDir is where downloaded pipelines and models are stored.
	CacheDir string
	// HParamsFile optionally points to a hyperparameters file whose
	// values override the instantiation values from the descriptor.
	HParamsFile string
	// Device overrides the descriptor's device identifier when set.
	Device string
	// AuthToken authenticates hub downloads of gated repositories.
	AuthToken string
	// ORTLibraryPath points to the onnxruntime shared library.
	ORTLibraryPath string
	ProgressBar    bool
	Logger         *slog.Logger
}

func Defaults() *Options {
	return &Options{
		CacheDir: defaultCacheDir(),
		Logger:   slog.Default(),
	}
}

func defaultCacheDir() string {
	if dir, ok := os.LookupEnv("WAVEKIT_CACHE"); ok && dir != "" {
		return dir
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "wavekit")
	}
	return filepath.Join(base, "wavekit")
}

// WithOption is the interface for all option functions.
type WithOption func(o *Options) error

// WithCacheDir sets the directory used to cache downloaded pipelines and
// models.
func WithCacheDir(dir string) WithOption {
	return func(o *Options) error {
		if dir == "" {
			return fmt.Errorf("cache directory cannot be empty")
		}
		o.CacheDir = dir
		return nil
	}
}

// WithHParamsFile loads parameter values from a hyperparameters file
// after the descriptor's own instantiation values have been applied.
func WithHParamsFile(path string) WithOption {
	return func(o *Options) error {
		if path == "" {
			return fmt.Errorf("hyperparameters file path cannot be empty")
		}
		o.HParamsFile = path
		return nil
	}
}

// WithDevice overrides the target device declared in the descriptor. The
// identifier is parsed during loading, not here, so that device errors
// carry the loader's error taxonomy.
func WithDevice(device string) WithOption {
	return func(o *Options) error {
		if device == "" {
			return fmt.Errorf("device identifier cannot be empty")
		}
		o.Device = device
		return nil
	}
}

// WithAuthToken sets the hub authentication token used for downloads.
func WithAuthToken(token string) WithOption {
	return func(o *Options) error {
		o.AuthToken = token
		return nil
	}
}

// WithORTLibraryPath sets the path to the onnxruntime shared library
// used when a runtime session is created for loaded models.
func WithORTLibraryPath(path string) WithOption {
	return func(o *Options) error {
		if path == "" {
			return fmt.Errorf("onnxruntime library path cannot be empty")
		}
		o.ORTLibraryPath = path
		return nil
	}
}

// WithProgressBar enables download progress reporting.
func WithProgressBar() WithOption {
	return func(o *Options) error {
		o.ProgressBar = true
		return nil
	}
}

// WithLogger sets the structured logger used to report non-fatal loader
// events such as device transfer failures.
func WithLogger(logger *slog.Logger) WithOption {
	return func(o *Options) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		o.Logger = logger
		return nil
	}
}
