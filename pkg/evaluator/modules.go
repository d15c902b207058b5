package evaluator

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sandrolain/gojaq/pkg/codec"
	"github.com/sandrolain/gojaq/pkg/value"
)

// ModuleLoader resolves the modules named by import and include directives.
type ModuleLoader interface {
	// LoadModule returns the source of the code module at path.
	LoadModule(path string) (string, error)
	// LoadJSON returns the data of `import "path" as $name;`.
	LoadJSON(path string) (value.Value, error)
}

// FileLoader searches code modules (path.jq) and data modules (path.json)
// in a list of directories. A module may also be a directory holding a file
// named after its last path component, as in `import "a/b"` loading a/b/b.jq.
type FileLoader struct {
	Dirs []string
}

// NewFileLoader returns a FileLoader searching dirs in order.
func NewFileLoader(dirs ...string) *FileLoader {
	return &FileLoader{Dirs: dirs}
}

func (l *FileLoader) LoadModule(path string) (string, error) {
	b, err := l.find(path, ".jq")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// LoadJSON returns the values of a data module as one array.
func (l *FileLoader) LoadJSON(path string) (value.Value, error) {
	b, err := l.find(path, ".json")
	if err != nil {
		return nil, err
	}
	vs, err := codec.DecodeAll(codec.NewJSONDecoder(strings.NewReader(string(b))))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return value.Array(vs), nil
}

func (l *FileLoader) find(path, ext string) ([]byte, error) {
	if err := checkModulePath(path); err != nil {
		return nil, err
	}
	base := filepath.Base(path)
	for _, dir := range l.Dirs {
		for _, name := range []string{path + ext, filepath.Join(path, base+ext)} {
			b, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
			if err == nil {
				return b, nil
			}
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		}
	}
	return nil, fmt.Errorf("module not found in %s", strings.Join(l.Dirs, ", "))
}

// checkModulePath rejects paths that could escape the search directories.
func checkModulePath(path string) error {
	if path == "" || filepath.IsAbs(path) {
		return fmt.Errorf("invalid module path %q", path)
	}
	for _, part := range strings.Split(path, "/") {
		if part == ".." {
			return fmt.Errorf("invalid module path %q", path)
		}
	}
	return nil
}

// MapLoader serves modules from memory: code modules by name, data modules
// by name with a ".json" suffix.
type MapLoader map[string]string

func (l MapLoader) LoadModule(path string) (string, error) {
	src, ok := l[path]
	if !ok {
		return "", fmt.Errorf("module not found")
	}
	return src, nil
}

func (l MapLoader) LoadJSON(path string) (value.Value, error) {
	src, ok := l[path+".json"]
	if !ok {
		return nil, fmt.Errorf("module not found")
	}
	vs, err := codec.DecodeAll(codec.NewJSONDecoder(strings.NewReader(src)))
	if err != nil {
		return nil, err
	}
	return value.Array(vs), nil
}
