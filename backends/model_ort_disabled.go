//go:build !cgo || (!ORT && !ALL)

package backends

import (
	"errors"

	"github.com/wavekit-ai/wavekit/options"
)

// ORTModel is a placeholder when the onnxruntime backend is disabled.
type ORTModel struct{}

func (m *ORTModel) Destroy() error {
	return nil
}

func StartRuntime(_ *options.Options) error {
	return errors.New("the onnxruntime backend is not enabled")
}

func StopRuntime() error {
	return nil
}

func (m *Model) CreateSession() error {
	return errors.New("the onnxruntime backend is not enabled")
}
