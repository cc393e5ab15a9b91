package pipelines

import (
	"errors"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wavekit-ai/wavekit/backends"
	"github.com/wavekit-ai/wavekit/util/fileutil"
)

// Preprocessor computes one auxiliary value for an input file, lazily,
// on first access of its key.
type Preprocessor interface {
	Process(file *ProtocolFile) (any, error)
}

// PreprocessorFactory builds a preprocessor from its declared
// parameters.
type PreprocessorFactory func(params Params) (Preprocessor, error)

var preprocessorFactories = map[string]PreprocessorFactory{}

// RegisterPreprocessor makes a preprocessor constructible by name from a
// descriptor's preprocessors section.
func RegisterPreprocessor(name string, factory PreprocessorFactory) {
	preprocessorFactories[name] = factory
}

func resolvePreprocessor(name string) (PreprocessorFactory, error) {
	if factory, ok := preprocessorFactories[name]; ok {
		return factory, nil
	}
	return nil, &backends.NotFoundError{What: "preprocessor class", Name: name}
}

// BuildPreprocessors turns the descriptor's preprocessors section into
// concrete preprocessors. A mapping spec with a "name" key always builds
// the registered class, a string spec first tries a file finder bound to
// that database descriptor path and falls back to a literal path
// template when the descriptor does not exist.
func BuildPreprocessors(specs map[string]any) (map[string]Preprocessor, error) {
	preprocessors := make(map[string]Preprocessor, len(specs))
	for key, spec := range specs {
		switch value := spec.(type) {
		case map[string]any:
			name, ok := value["name"].(string)
			if !ok || name == "" {
				return nil, backends.InvalidConfigurationf("preprocessor %q: mapping spec requires a name key", key)
			}
			factory, err := resolvePreprocessor(name)
			if err != nil {
				return nil, err
			}
			params, _ := value["params"].(map[string]any)
			preprocessor, err := factory(params)
			if err != nil {
				return nil, err
			}
			preprocessors[key] = preprocessor
		case string:
			finder, err := NewFileFinder(value)
			if err != nil {
				var notFound *backends.NotFoundError
				if errors.As(err, &notFound) {
					preprocessors[key] = Template(value)
					continue
				}
				return nil, err
			}
			preprocessors[key] = finder
		default:
			return nil, &backends.InvalidTypeError{What: "preprocessor " + key, Got: spec, Expected: "a mapping with a name key or a path string"}
		}
	}
	return preprocessors, nil
}

// Template is a literal path template preprocessor. Placeholders such as
// {uri} and {database} are expanded against the input file.
type Template string

func (t Template) Process(file *ProtocolFile) (any, error) {
	return expandTemplate(string(t), file), nil
}

func expandTemplate(template string, file *ProtocolFile) string {
	replacer := strings.NewReplacer(
		"{uri}", file.URI(),
		"{database}", file.Database(),
	)
	return replacer.Replace(template)
}

// databaseDescriptor is the on-disk shape of a database descriptor. Each
// database maps to one or more path templates.
type databaseDescriptor struct {
	Databases map[string]any `yaml:"Databases"`
}

// FileFinder locates the audio content of a file from a database
// descriptor's path templates.
type FileFinder struct {
	databaseYml string
	templates   map[string][]string
}

// NewFileFinder builds a file finder from a database descriptor path.
// A missing descriptor fails with a NotFoundError so callers can fall
// back to template interpretation.
func NewFileFinder(databaseYml string) (*FileFinder, error) {
	exists, err := fileutil.FileExists(databaseYml)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &backends.NotFoundError{What: "database descriptor", Name: databaseYml}
	}
	raw, err := fileutil.ReadFileBytes(databaseYml)
	if err != nil {
		return nil, err
	}
	descriptor := databaseDescriptor{}
	if err := yaml.Unmarshal(raw, &descriptor); err != nil {
		return nil, backends.InvalidConfigurationf("invalid database descriptor %s: %s", databaseYml, err)
	}
	if len(descriptor.Databases) == 0 {
		return nil, backends.InvalidConfigurationf("database descriptor %s declares no databases", databaseYml)
	}

	templates := make(map[string][]string, len(descriptor.Databases))
	for database, spec := range descriptor.Databases {
		switch value := spec.(type) {
		case string:
			templates[database] = []string{value}
		case []any:
			for _, entry := range value {
				template, ok := entry.(string)
				if !ok {
					return nil, backends.InvalidConfigurationf("database %q: path templates must be strings", database)
				}
				templates[database] = append(templates[database], template)
			}
		default:
			return nil, backends.InvalidConfigurationf("database %q: expected a path template or a list of them", database)
		}
	}
	return &FileFinder{databaseYml: databaseYml, templates: templates}, nil
}

// Process resolves the file's audio path by expanding the templates of
// its database and returning the first that exists on disk.
func (f *FileFinder) Process(file *ProtocolFile) (any, error) {
	database := file.Database()
	templates, ok := f.templates[database]
	if !ok {
		return nil, &backends.NotFoundError{What: "database", Name: database}
	}
	for _, template := range templates {
		candidate := expandTemplate(template, file)
		exists, err := fileutil.FileExists(candidate)
		if err != nil {
			return nil, err
		}
		if exists {
			return candidate, nil
		}
	}
	return nil, &backends.NotFoundError{What: "audio file for uri", Name: file.URI()}
}
