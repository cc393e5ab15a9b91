package pipelines

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavekit-ai/wavekit/backends"
)

// upperURI is a registered preprocessor used to exercise mapping specs.
type upperURI struct {
	prefix string
}

func (u *upperURI) Process(file *ProtocolFile) (any, error) {
	return u.prefix + file.URI(), nil
}

func init() {
	RegisterPreprocessor("test.UpperURI", func(params Params) (Preprocessor, error) {
		prefix, _ := params["prefix"].(string)
		return &upperURI{prefix: prefix}, nil
	})
}

func TestBuildPreprocessorsMappingSpec(t *testing.T) {
	preprocessors, err := BuildPreprocessors(map[string]any{
		"tagged": map[string]any{
			"name":   "test.UpperURI",
			"params": map[string]any{"prefix": "tag:"},
		},
	})
	require.NoError(t, err)

	file := newProtocolFile(map[string]any{"uri": "meeting"})
	value, err := preprocessors["tagged"].Process(file)
	require.NoError(t, err)
	assert.Equal(t, "tag:meeting", value)
}

func TestBuildPreprocessorsMappingErrors(t *testing.T) {
	var invalidConfig *backends.InvalidConfigurationError
	_, err := BuildPreprocessors(map[string]any{
		"tagged": map[string]any{"params": map[string]any{}},
	})
	require.Error(t, err)
	assert.ErrorAs(t, err, &invalidConfig)

	var notFound *backends.NotFoundError
	_, err = BuildPreprocessors(map[string]any{
		"tagged": map[string]any{"name": "test.NoSuchClass"},
	})
	require.Error(t, err)
	assert.ErrorAs(t, err, &notFound)
}

func TestBuildPreprocessorsInvalidSpec(t *testing.T) {
	var invalidType *backends.InvalidTypeError
	_, err := BuildPreprocessors(map[string]any{"audio": 42})
	require.Error(t, err)
	assert.ErrorAs(t, err, &invalidType)
}

func TestBuildPreprocessorsStringFallsBackToTemplate(t *testing.T) {
	// the string points at no database descriptor, so it is interpreted as
	// a literal path template
	preprocessors, err := BuildPreprocessors(map[string]any{
		"transcript": filepath.Join(t.TempDir(), "transcripts", "{database}", "{uri}.txt"),
	})
	require.NoError(t, err)

	file := newProtocolFile(map[string]any{"uri": "meeting", "database": "AMI"})
	value, err := preprocessors["transcript"].Process(file)
	require.NoError(t, err)
	assert.Contains(t, value, filepath.Join("transcripts", "AMI", "meeting.txt"))
}

func TestFileFinder(t *testing.T) {
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "ES2004a.wav")
	require.NoError(t, os.WriteFile(audioPath, []byte("RIFF"), 0o644))

	databaseYml := filepath.Join(dir, "database.yml")
	contents := fmt.Sprintf("Databases:\n  AMI:\n    - %s\n    - %s\n",
		filepath.Join(dir, "missing", "{uri}.wav"),
		filepath.Join(dir, "{uri}.wav"))
	require.NoError(t, os.WriteFile(databaseYml, []byte(contents), 0o644))

	preprocessors, err := BuildPreprocessors(map[string]any{"audio": databaseYml})
	require.NoError(t, err)

	file := newProtocolFile(map[string]any{"uri": "ES2004a", "database": "AMI"})
	value, err := preprocessors["audio"].Process(file)
	require.NoError(t, err)
	assert.Equal(t, audioPath, value)
}

func TestFileFinderUnknownDatabase(t *testing.T) {
	dir := t.TempDir()
	databaseYml := filepath.Join(dir, "database.yml")
	require.NoError(t, os.WriteFile(databaseYml, []byte("Databases:\n  AMI: /corpus/{uri}.wav\n"), 0o644))

	finder, err := NewFileFinder(databaseYml)
	require.NoError(t, err)

	var notFound *backends.NotFoundError
	_, err = finder.Process(newProtocolFile(map[string]any{"uri": "x", "database": "VoxCeleb"}))
	require.Error(t, err)
	assert.ErrorAs(t, err, &notFound)
}

func TestFileFinderNoMatch(t *testing.T) {
	dir := t.TempDir()
	databaseYml := filepath.Join(dir, "database.yml")
	template := filepath.Join(dir, "{uri}.wav")
	require.NoError(t, os.WriteFile(databaseYml, []byte("Databases:\n  AMI: "+template+"\n"), 0o644))

	finder, err := NewFileFinder(databaseYml)
	require.NoError(t, err)

	var notFound *backends.NotFoundError
	_, err = finder.Process(newProtocolFile(map[string]any{"uri": "absent", "database": "AMI"}))
	require.Error(t, err)
	assert.ErrorAs(t, err, &notFound)
}

func TestNewFileFinderInvalidDescriptor(t *testing.T) {
	dir := t.TempDir()
	databaseYml := filepath.Join(dir, "database.yml")
	require.NoError(t, os.WriteFile(databaseYml, []byte("Databases: {}\n"), 0o644))

	var invalidConfig *backends.InvalidConfigurationError
	_, err := NewFileFinder(databaseYml)
	require.Error(t, err)
	assert.ErrorAs(t, err, &invalidConfig)
}
