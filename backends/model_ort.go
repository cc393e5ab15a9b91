//go:build cgo && (ORT || ALL)

package backends

import (
	"errors"
	"fmt"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/wavekit-ai/wavekit/options"
	"github.com/wavekit-ai/wavekit/util/fileutil"
)

// ORTModel holds the onnxruntime session backing a loaded Model.
type ORTModel struct {
	Session        *ort.DynamicAdvancedSession
	SessionOptions *ort.SessionOptions
}

func (m *ORTModel) Destroy() error {
	var err error
	if m.Session != nil {
		err = m.Session.Destroy()
		m.Session = nil
	}
	if m.SessionOptions != nil {
		err = errors.Join(err, m.SessionOptions.Destroy())
		m.SessionOptions = nil
	}
	return err
}

// StartRuntime initializes the onnxruntime environment. Only one
// environment can be active at a time; callers should pair this with a
// deferred StopRuntime.
func StartRuntime(o *options.Options) error {
	if ort.IsInitialized() {
		return errors.New("another runtime environment is currently active, and only one can be active at one time")
	}
	if o.ORTLibraryPath != "" {
		exists, err := fileutil.FileExists(o.ORTLibraryPath)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("cannot find the onnxruntime library at: %s", o.ORTLibraryPath)
		}
		ort.SetSharedLibraryPath(o.ORTLibraryPath)
	}
	return ort.InitializeEnvironment()
}

func StopRuntime() error {
	return ort.DestroyEnvironment()
}

// CreateSession builds the onnxruntime session for the model from the
// weight bytes already read by GetModel, honoring the model's recorded
// device for execution provider placement.
func (m *Model) CreateSession() error {
	sessionOptions, err := ort.NewSessionOptions()
	if err != nil {
		return err
	}
	if m.Device.Type == CUDA {
		cudaOptions, cudaErr := ort.NewCUDAProviderOptions()
		if cudaErr != nil {
			return errors.Join(cudaErr, sessionOptions.Destroy())
		}
		if m.Device.Index >= 0 {
			cudaErr = cudaOptions.Update(map[string]string{"device_id": fmt.Sprintf("%d", m.Device.Index)})
			if cudaErr != nil {
				return errors.Join(cudaErr, cudaOptions.Destroy(), sessionOptions.Destroy())
			}
		}
		if cudaErr = sessionOptions.AppendExecutionProviderCUDA(cudaOptions); cudaErr != nil {
			return errors.Join(cudaErr, cudaOptions.Destroy(), sessionOptions.Destroy())
		}
		if cudaErr = cudaOptions.Destroy(); cudaErr != nil {
			return errors.Join(cudaErr, sessionOptions.Destroy())
		}
	}

	inputs, outputs, err := loadInputOutputMetaORT(m.OnnxBytes)
	if err != nil {
		return errors.Join(err, sessionOptions.Destroy())
	}

	inputNames := make([]string, len(inputs))
	outputNames := make([]string, len(outputs))
	for i, v := range inputs {
		inputNames[i] = v.Name
	}
	for i, v := range outputs {
		outputNames[i] = v.Name
	}

	session, err := ort.NewDynamicAdvancedSessionWithONNXData(
		m.OnnxBytes,
		inputNames,
		outputNames,
		sessionOptions,
	)
	if err != nil {
		return errors.Join(err, sessionOptions.Destroy())
	}

	m.ORTModel = &ORTModel{Session: session, SessionOptions: sessionOptions}
	m.InputsMeta = inputs
	m.OutputsMeta = outputs
	return nil
}

func loadInputOutputMetaORT(onnxBytes []byte) ([]InputOutputInfo, []InputOutputInfo, error) {
	inputs, outputs, err := ort.GetInputOutputInfoWithONNXData(onnxBytes)
	if err != nil {
		return nil, nil, err
	}
	return convertORTInputOutputs(inputs), convertORTInputOutputs(outputs), nil
}

func convertORTInputOutputs(infos []ort.InputOutputInfo) []InputOutputInfo {
	converted := make([]InputOutputInfo, len(infos))
	for i, info := range infos {
		converted[i] = InputOutputInfo{
			Name:       info.Name,
			Dimensions: Shape(info.Dimensions),
		}
	}
	return converted
}
