package pipelines

import (
	"path/filepath"
	"strings"

	"github.com/wavekit-ai/wavekit/backends"
	"github.com/wavekit-ai/wavekit/util/fileutil"
)

// ProtocolFile is the canonical handle on one input audio file. Besides
// its plain fields (audio path, uri, database) it can carry lazy
// preprocessor-backed keys whose values are computed on first access and
// memoized for the lifetime of the handle.
type ProtocolFile struct {
	fields map[string]any
	lazy   map[string]Preprocessor
	memo   map[string]any
}

func newProtocolFile(fields map[string]any) *ProtocolFile {
	return &ProtocolFile{fields: fields, memo: map[string]any{}}
}

// bindLazy attaches the registered preprocessors. Plain fields shadow
// lazy keys of the same name.
func (f *ProtocolFile) bindLazy(preprocessors map[string]Preprocessor) {
	f.lazy = preprocessors
}

// Get returns the value for key, evaluating and memoizing the matching
// preprocessor when the key is lazy.
func (f *ProtocolFile) Get(key string) (any, error) {
	if value, ok := f.fields[key]; ok {
		return value, nil
	}
	if value, ok := f.memo[key]; ok {
		return value, nil
	}
	if preprocessor, ok := f.lazy[key]; ok {
		value, err := preprocessor.Process(f)
		if err != nil {
			return nil, err
		}
		f.memo[key] = value
		return value, nil
	}
	return nil, &backends.NotFoundError{What: "file key", Name: key}
}

// Set assigns a plain field, shadowing any lazy key of the same name.
func (f *ProtocolFile) Set(key string, value any) {
	f.fields[key] = value
}

// Has reports whether key resolves, without forcing lazy evaluation.
func (f *ProtocolFile) Has(key string) bool {
	if _, ok := f.fields[key]; ok {
		return true
	}
	if _, ok := f.memo[key]; ok {
		return true
	}
	_, ok := f.lazy[key]
	return ok
}

func (f *ProtocolFile) stringField(key string) string {
	if value, ok := f.fields[key].(string); ok {
		return value
	}
	return ""
}

// URI identifies the file within its database.
func (f *ProtocolFile) URI() string {
	return f.stringField("uri")
}

// Database names the corpus the file belongs to, when known.
func (f *ProtocolFile) Database() string {
	return f.stringField("database")
}

// Audio is the path to the audio content.
func (f *ProtocolFile) Audio() string {
	return f.stringField("audio")
}

func uriFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ValidateFile normalizes an input audio file reference into a
// ProtocolFile. Accepted shapes: an existing audio file path, a mapping
// with an "audio" path or a pre-decoded "waveform", or an
// already-constructed ProtocolFile (returned unchanged).
func ValidateFile(file any) (*ProtocolFile, error) {
	switch value := file.(type) {
	case *ProtocolFile:
		return value, nil
	case string:
		exists, err := fileutil.FileExists(value)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, &backends.NotFoundError{What: "audio file", Name: value}
		}
		return newProtocolFile(map[string]any{
			"audio":    value,
			"uri":      uriFromPath(value),
			"database": "",
		}), nil
	case map[string]any:
		fields := make(map[string]any, len(value)+2)
		for k, v := range value {
			fields[k] = v
		}
		audio, hasAudio := fields["audio"].(string)
		_, hasWaveform := fields["waveform"]
		if !hasAudio && !hasWaveform {
			return nil, &backends.InvalidTypeError{What: "audio file", Got: file, Expected: `a mapping with an "audio" path or a "waveform"`}
		}
		if hasWaveform {
			if _, ok := fields["sample_rate"]; !ok {
				return nil, backends.InvalidConfigurationf(`an audio file mapping with a "waveform" must also provide "sample_rate"`)
			}
		}
		if _, ok := fields["uri"]; !ok {
			if hasAudio {
				fields["uri"] = uriFromPath(audio)
			} else {
				fields["uri"] = "waveform"
			}
		}
		if _, ok := fields["database"]; !ok {
			fields["database"] = ""
		}
		return newProtocolFile(fields), nil
	default:
		return nil, &backends.InvalidTypeError{What: "audio file", Got: file, Expected: "a path string, a mapping or a *ProtocolFile"}
	}
}
