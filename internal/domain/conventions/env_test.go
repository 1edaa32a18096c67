package conventions

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/stretchr/testify/require"

	m "deadwood.dev/pkg/deadwood/internal/model"
)

const testRoot = m.Path("/repo")

// fakeEnv is an in-memory Env. Paths in files are relative to testRoot.
type fakeEnv struct {
	workspace *m.Package
	files     map[string]string
	values    map[string]any
	marked    map[m.Path]bool
	evaluated []m.Path
}

func newFakeEnv(files map[string]string) *fakeEnv {
	return &fakeEnv{files: files, values: map[string]any{}, marked: map[m.Path]bool{}}
}

func (f *fakeEnv) rel(path m.Path) (string, bool) {
	return relSlash(testRoot, path)
}

func (f *fakeEnv) Workspace() *m.Package { return f.workspace }

func (f *fakeEnv) Mark(path m.Path) bool {
	if !f.Exists(path) || f.marked[path] {
		return false
	}

	f.marked[path] = true

	return true
}

func (f *fakeEnv) Exists(path m.Path) bool {
	rel, ok := f.rel(path)
	if !ok {
		return false
	}

	_, exists := f.files[rel]

	return exists
}

func (f *fakeEnv) ReadFile(path m.Path) ([]byte, error) {
	rel, ok := f.rel(path)
	if ok {
		if contents, exists := f.files[rel]; exists {
			return []byte(contents), nil
		}
	}

	return nil, fmt.Errorf("open %s: %w", path, fs.ErrNotExist)
}

func (f *fakeEnv) Glob(root m.Path, pattern string) ([]m.Path, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, doublestar.ErrBadPattern
	}

	var matches []m.Path

	for rel := range f.files {
		path := testRoot.Join(filepath.FromSlash(rel))

		relToRoot, ok := relSlash(root, path)
		if !ok {
			continue
		}

		if matched, _ := doublestar.Match(pattern, relToRoot); matched {
			matches = append(matches, path)
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i] < matches[j] })

	return matches, nil
}

func (f *fakeEnv) Evaluate(_ context.Context, path m.Path) (any, error) {
	f.evaluated = append(f.evaluated, path)

	rel, _ := f.rel(path)

	value, ok := f.values[rel]
	if !ok {
		return map[string]any{}, nil
	}

	if err, isErr := value.(error); isErr {
		return nil, err
	}

	return value, nil
}

func (f *fakeEnv) Infer(base m.Path) (m.Path, bool) {
	for _, candidate := range []string{"/index.ts", "/index.js", ".ts", ".tsx", ".js", ".jsx", ".mjs"} {
		var path m.Path
		if strings.HasPrefix(candidate, "/") {
			path = base.Join(strings.TrimPrefix(candidate, "/"))
		} else {
			path = base + m.Path(candidate)
		}

		if f.Exists(path) {
			return path, true
		}
	}

	return "", false
}

func (f *fakeEnv) Resolve(specifier string, fromDir m.Path) (m.Path, bool) {
	if !strings.HasPrefix(specifier, ".") {
		return "", false
	}

	base := fromDir.Join(specifier)
	if f.Exists(base) {
		return base, true
	}

	return f.Infer(base)
}

// markedFiles returns the marked paths relative to testRoot, sorted.
func (f *fakeEnv) markedFiles() []string {
	out := []string{}

	for path := range f.marked {
		rel, _ := f.rel(path)
		out = append(out, rel)
	}

	sort.Strings(out)

	return out
}

var errEvaluation = errors.New("evaluation failed")

// testPackage builds a package at testRoot/dir from a manifest document.
func testPackage(t *testing.T, dir string, parent *m.Package, raw map[string]any) *m.Package {
	t.Helper()

	manifest := &m.Manifest{Raw: raw}
	manifest.Name, _ = raw["name"].(string)
	manifest.Main, _ = raw["main"].(string)
	manifest.Types, _ = raw["types"].(string)
	manifest.Module, _ = raw["module"].(string)
	manifest.Bin = raw["bin"]
	manifest.Exports = raw["exports"]
	manifest.Dependencies = stringMap(raw["dependencies"])
	manifest.DevDependencies = stringMap(raw["devDependencies"])
	manifest.Scripts = stringMap(raw["scripts"])

	root := testRoot
	if dir != "" {
		root = testRoot.Join(filepath.FromSlash(dir))
	}

	pkg := m.NewPackage(root, manifest, parent)
	if parent != nil {
		parent.Children = append(parent.Children, pkg)
	}

	require.NotEmpty(t, pkg.Name)

	return pkg
}

func stringMap(v any) map[string]string {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}

	out := make(map[string]string, len(obj))
	for k, val := range obj {
		if s, ok := val.(string); ok {
			out[k] = s
		}
	}

	return out
}

func at(rel string) m.Path {
	return testRoot.Join(filepath.FromSlash(rel))
}
