package fixture

import (
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	apperrors "github.com/kbukum/fixturekit/errors"
)

// FixturesDir is the directory below a test's directory searched first.
const FixturesDir = "fixtures"

// FileLoader resolves fixture names to YAML files and parses them.
type FileLoader struct {
	fs   afero.Fs
	dirs map[string]string
}

// NewFileLoader creates a loader over fs. dirs maps module names to the
// directories "~Module/name" references resolve against; names match
// case-insensitively.
func NewFileLoader(fs afero.Fs, dirs map[string]string) *FileLoader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	lowered := make(map[string]string, len(dirs))
	for k, v := range dirs {
		lowered[strings.ToLower(k)] = v
	}
	return &FileLoader{fs: fs, dirs: lowered}
}

// Fs returns the filesystem files are read from.
func (l *FileLoader) Fs() afero.Fs { return l.fs }

// Resolve finds the file for name. Relative names are looked up in
// baseDir/fixtures, then baseDir.
func (l *FileLoader) Resolve(baseDir, name string) (string, error) {
	var bases []string
	switch {
	case strings.HasPrefix(name, "~"):
		module, rest, ok := strings.Cut(strings.TrimPrefix(name, "~"), "/")
		if !ok || rest == "" {
			return "", apperrors.InvalidInput("fixture", "module reference must look like ~Module/name: "+name)
		}
		dir, known := l.dirs[strings.ToLower(module)]
		if !known {
			return "", apperrors.NotFound("fixture module", module)
		}
		bases = []string{filepath.Join(dir, rest)}
	case filepath.IsAbs(name):
		bases = []string{name}
	default:
		bases = []string{filepath.Join(baseDir, FixturesDir, name), filepath.Join(baseDir, name)}
	}

	for _, b := range bases {
		for _, candidate := range withExtensions(b) {
			if ok, _ := afero.Exists(l.fs, candidate); ok {
				return candidate, nil
			}
		}
	}
	return "", apperrors.NotFound("fixture", name).WithDetail("searched", bases)
}

func withExtensions(path string) []string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return []string{path}
	}
	return []string{path + ".yaml", path + ".yml"}
}

// Load resolves and parses name.
func (l *FileLoader) Load(baseDir, name string) (*Map, error) {
	path, err := l.Resolve(baseDir, name)
	if err != nil {
		return nil, err
	}
	return l.LoadFile(path)
}

// LoadFile parses the fixture file at path.
func (l *FileLoader) LoadFile(path string) (*Map, error) {
	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, apperrors.NotFound("fixture file", path).WithCause(err)
	}
	m, err := ParseYAML(data)
	if err != nil {
		return nil, apperrors.InvalidInput("fixture", "cannot parse "+path).WithCause(err)
	}
	return m, nil
}
