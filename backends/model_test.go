package backends

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeModelDir(t *testing.T, filename string, config string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte("onnx-bytes"), 0o644))
	if config != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(config), 0o644))
	}
	return dir
}

func TestGetModelFromFile(t *testing.T) {
	dir := writeModelDir(t, "weights.onnx", "")
	modelPath := filepath.Join(dir, "weights.onnx")

	model, err := GetModel(modelPath)
	require.NoError(t, err)
	assert.Equal(t, modelPath, model.OnnxPath)
	assert.Equal(t, []byte("onnx-bytes"), model.OnnxBytes)
	assert.True(t, model.Eval())
	assert.Equal(t, CPU, model.Device.Type)
}

func TestGetModelFromDirectory(t *testing.T) {
	dir := writeModelDir(t, DefaultModelFilename, `{"sample_rate": 16000, "duration": 5.0, "id2label": {"0": "speech", "1": "silence"}}`)

	model, err := GetModel(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DefaultModelFilename), model.OnnxPath)
	assert.Equal(t, 16000, model.SampleRate)
	assert.InDelta(t, 5.0, model.Duration, 1e-9)
	assert.Equal(t, map[int]string{0: "speech", 1: "silence"}, model.IDLabelMap)
}

func TestGetModelFromDirectorySingleOnnx(t *testing.T) {
	// no conventional model.onnx, but exactly one .onnx file
	dir := writeModelDir(t, "exported.onnx", "")

	model, err := GetModel(dir)
	require.NoError(t, err)
	assert.Equal(t, "exported.onnx", filepath.Base(model.OnnxPath))
}

func TestGetModelFromMapping(t *testing.T) {
	dir := writeModelDir(t, "weights.onnx", "")
	modelPath := filepath.Join(dir, "weights.onnx")

	model, err := GetModel(map[string]any{"checkpoint": modelPath})
	require.NoError(t, err)
	assert.Equal(t, modelPath, model.OnnxPath)
}

func TestGetModelMissing(t *testing.T) {
	var notFound *NotFoundError

	_, err := GetModel(filepath.Join(t.TempDir(), "nope.onnx"))
	require.Error(t, err)
	assert.ErrorAs(t, err, &notFound)

	_, err = GetModel(map[string]any{"checkpoint": ""})
	require.Error(t, err)
	assert.ErrorAs(t, err, &notFound)

	// empty directory has no weight file
	_, err = GetModel(t.TempDir())
	require.Error(t, err)
	assert.ErrorAs(t, err, &notFound)
}

func TestGetModelInvalidType(t *testing.T) {
	var invalidType *InvalidTypeError

	_, err := GetModel(42)
	require.Error(t, err)
	assert.ErrorAs(t, err, &invalidType)

	// an already-constructed model is not a valid spec for this loader
	_, err = GetModel(&Model{})
	require.Error(t, err)
	assert.ErrorAs(t, err, &invalidType)
}

func TestModelTo(t *testing.T) {
	dir := writeModelDir(t, "weights.onnx", "")
	model, err := GetModel(filepath.Join(dir, "weights.onnx"))
	require.NoError(t, err)

	moved, err := model.To(Device{Type: CUDA, Index: 1})
	require.NoError(t, err)
	assert.Same(t, model, moved)
	assert.Equal(t, "cuda:1", model.Device.String())

	_, err = model.To(Device{})
	var invalidType *InvalidTypeError
	require.Error(t, err)
	assert.ErrorAs(t, err, &invalidType)
}
