package backends

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/wavekit-ai/wavekit/util/fileutil"
)

// DefaultModelFilename is the conventional weight file looked up when a
// model spec points at a directory.
const DefaultModelFilename = "model.onnx"

// InputOutputInfo describes one tensor boundary of a model graph.
type InputOutputInfo struct {
	// The name of the input or output
	Name string
	// The input or output's dimensions, if it's a tensor. This should be
	// ignored for non-tensor types.
	Dimensions Shape
}

type Shape []int64

func (s Shape) String() string {
	return fmt.Sprintf("%v", []int64(s))
}

// Model is a handle on pretrained neural network weights plus the side
// metadata shipped next to them. The numerical forward pass is owned by
// the runtime backend; the loader only resolves, reads and places the
// model.
type Model struct {
	Path        string
	OnnxPath    string
	OnnxBytes   []byte
	ORTModel    *ORTModel
	Device      Device
	SampleRate  int
	Duration    float64
	IDLabelMap  map[int]string
	InputsMeta  []InputOutputInfo
	OutputsMeta []InputOutputInfo
	eval        bool
}

// GetModel normalizes a model spec into a loaded Model. Accepted shapes:
// a path to a weight file, a path to a directory containing one (the
// conventional model.onnx is preferred), or a mapping with a "checkpoint"
// key. Anything else is an InvalidTypeError. The model is returned in
// evaluation mode.
func GetModel(spec any) (*Model, error) {
	switch value := spec.(type) {
	case string:
		return loadModel(value)
	case map[string]any:
		checkpoint, ok := value["checkpoint"].(string)
		if !ok || checkpoint == "" {
			return nil, &NotFoundError{What: "model checkpoint", Name: "checkpoint"}
		}
		return loadModel(checkpoint)
	default:
		return nil, &InvalidTypeError{What: "model", Got: spec, Expected: "a path string or a mapping with a checkpoint key"}
	}
}

func loadModel(path string) (*Model, error) {
	model := &Model{Path: path, Device: Device{Type: CPU, Index: -1}}

	onnxPath, err := resolveWeightFile(path)
	if err != nil {
		return nil, err
	}
	model.OnnxPath = onnxPath

	onnxBytes, err := fileutil.ReadFileBytes(onnxPath)
	if err != nil {
		return nil, err
	}
	model.OnnxBytes = onnxBytes

	if err := loadModelConfig(model); err != nil {
		return nil, err
	}
	model.eval = true
	return model, nil
}

// resolveWeightFile maps a model path onto the concrete weight file. A
// file path is used as-is. A directory is searched for model.onnx first
// and otherwise for a single .onnx file.
func resolveWeightFile(path string) (string, error) {
	info, err := fileutil.FileStats(path)
	if err != nil {
		return "", &NotFoundError{What: "model file", Name: path}
	}
	if !info.IsDir() {
		return path, nil
	}

	conventional := fileutil.PathJoinSafe(path, DefaultModelFilename)
	exists, err := fileutil.FileExists(conventional)
	if err != nil {
		return "", err
	}
	if exists {
		return conventional, nil
	}

	onnxFiles, err := getOnnxFiles(path)
	if err != nil {
		return "", err
	}
	if len(onnxFiles) != 1 {
		return "", &NotFoundError{What: "model file (expected " + DefaultModelFilename + " or a single .onnx file)", Name: path}
	}
	return fileutil.PathJoinSafe(onnxFiles[0]...), nil
}

func getOnnxFiles(path string) ([][]string, error) {
	var onnxFiles [][]string
	walker := func(_ context.Context, _ string, parent string, info os.FileInfo, _ io.Reader) (toContinue bool, err error) {
		if strings.HasSuffix(info.Name(), ".onnx") {
			onnxFiles = append(onnxFiles, []string{parent, info.Name()})
		}
		return true, nil
	}
	err := fileutil.WalkDir(context.Background(), path, walker)
	return onnxFiles, err
}

// loadModelConfig reads the config.json shipped next to the weights, if
// any, for the audio front-end metadata and the label map.
func loadModelConfig(model *Model) error {
	configPath := fileutil.PathJoinSafe(model.Path, "config.json")
	if info, err := fileutil.FileStats(model.Path); err == nil && !info.IsDir() {
		return nil
	}
	exists, err := fileutil.FileExists(configPath)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	configBytes, err := fileutil.ReadFileBytes(configPath)
	if err != nil {
		return err
	}
	configMap := map[string]any{}
	if err := jsoniter.Unmarshal(configBytes, &configMap); err != nil {
		return err
	}
	if sampleRateRaw, ok := configMap["sample_rate"]; ok {
		if sampleRate, castOk := sampleRateRaw.(float64); castOk {
			model.SampleRate = int(sampleRate)
		}
	}
	if durationRaw, ok := configMap["duration"]; ok {
		if duration, castOk := durationRaw.(float64); castOk {
			model.Duration = duration
		}
	}
	if id2LabelRaw, ok := configMap["id2label"]; ok {
		if id2Label, castOk := id2LabelRaw.(map[string]any); castOk {
			id2LabelCast := map[int]string{}
			for k, v := range id2Label {
				kInt, kErr := strconv.Atoi(k)
				if kErr != nil {
					return kErr
				}
				label, labelOk := v.(string)
				if !labelOk {
					return InvalidConfigurationf("id2label value for %s is not a string", k)
				}
				id2LabelCast[kInt] = label
			}
			model.IDLabelMap = id2LabelCast
		} else {
			return InvalidConfigurationf("id2label is not a map")
		}
	}
	return nil
}

// Eval returns whether the model is in evaluation mode. Models produced
// by GetModel always are; training-time side effects are out of scope
// for the loader.
func (m *Model) Eval() bool {
	return m.eval
}

// To records the model's compute device. Placement of the backend
// session, when one exists, follows the recorded device at session
// creation time.
func (m *Model) To(device Device) (*Model, error) {
	if device.IsZero() {
		return nil, &InvalidTypeError{What: "device", Got: device, Expected: "a parsed Device"}
	}
	m.Device = device
	return m, nil
}

func (m *Model) Destroy() error {
	m.OnnxBytes = nil
	if m.ORTModel != nil {
		return m.ORTModel.Destroy()
	}
	return nil
}
