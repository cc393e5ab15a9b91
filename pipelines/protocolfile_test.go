package pipelines

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavekit-ai/wavekit/backends"
)

func writeAudioFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0o644))
	return path
}

func TestValidateFilePath(t *testing.T) {
	path := writeAudioFile(t, "meeting.wav")

	file, err := ValidateFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, file.Audio())
	assert.Equal(t, "meeting", file.URI())
	assert.Equal(t, "", file.Database())
}

func TestValidateFileMissingPath(t *testing.T) {
	var notFound *backends.NotFoundError
	_, err := ValidateFile(filepath.Join(t.TempDir(), "nope.wav"))
	require.Error(t, err)
	assert.ErrorAs(t, err, &notFound)
}

func TestValidateFileMapping(t *testing.T) {
	file, err := ValidateFile(map[string]any{"audio": "/corpus/ami/ES2004a.wav"})
	require.NoError(t, err)
	assert.Equal(t, "ES2004a", file.URI())

	file, err = ValidateFile(map[string]any{
		"audio":    "/corpus/ami/ES2004a.wav",
		"uri":      "custom",
		"database": "AMI",
	})
	require.NoError(t, err)
	assert.Equal(t, "custom", file.URI())
	assert.Equal(t, "AMI", file.Database())
}

func TestValidateFileWaveform(t *testing.T) {
	file, err := ValidateFile(map[string]any{
		"waveform":    []float32{0, 0.5, -0.5},
		"sample_rate": 16000,
	})
	require.NoError(t, err)
	assert.Equal(t, "waveform", file.URI())

	var invalidConfig *backends.InvalidConfigurationError
	_, err = ValidateFile(map[string]any{"waveform": []float32{0}})
	require.Error(t, err)
	assert.ErrorAs(t, err, &invalidConfig)
}

func TestValidateFileInvalidShapes(t *testing.T) {
	var invalidType *backends.InvalidTypeError

	_, err := ValidateFile(42)
	require.Error(t, err)
	assert.ErrorAs(t, err, &invalidType)

	_, err = ValidateFile(map[string]any{"uri": "no-audio"})
	require.Error(t, err)
	assert.ErrorAs(t, err, &invalidType)
}

func TestValidateFilePassthrough(t *testing.T) {
	original := newProtocolFile(map[string]any{"audio": "/a.wav"})
	file, err := ValidateFile(original)
	require.NoError(t, err)
	assert.Same(t, original, file)
}

// countingPreprocessor records how many times it was evaluated.
type countingPreprocessor struct {
	calls int
}

func (c *countingPreprocessor) Process(_ *ProtocolFile) (any, error) {
	c.calls++
	return "computed", nil
}

func TestGetMemoizesLazyKeys(t *testing.T) {
	counting := &countingPreprocessor{}
	file := newProtocolFile(map[string]any{"uri": "meeting"})
	file.bindLazy(map[string]Preprocessor{"transcript": counting})

	for i := 0; i < 3; i++ {
		value, err := file.Get("transcript")
		require.NoError(t, err)
		assert.Equal(t, "computed", value)
	}
	assert.Equal(t, 1, counting.calls)
}

func TestPlainFieldShadowsLazyKey(t *testing.T) {
	counting := &countingPreprocessor{}
	file := newProtocolFile(map[string]any{"transcript": "already here"})
	file.bindLazy(map[string]Preprocessor{"transcript": counting})

	value, err := file.Get("transcript")
	require.NoError(t, err)
	assert.Equal(t, "already here", value)
	assert.Equal(t, 0, counting.calls)
}

func TestSetAndHas(t *testing.T) {
	file := newProtocolFile(map[string]any{})
	file.bindLazy(map[string]Preprocessor{"transcript": &countingPreprocessor{}})

	assert.True(t, file.Has("transcript"))
	assert.False(t, file.Has("nope"))

	file.Set("speakers", 3)
	value, err := file.Get("speakers")
	require.NoError(t, err)
	assert.Equal(t, 3, value)

	var notFound *backends.NotFoundError
	_, err = file.Get("nope")
	require.Error(t, err)
	assert.ErrorAs(t, err, &notFound)
}
