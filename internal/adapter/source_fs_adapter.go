// Package adapter contains filesystem, parsing, evaluation and storage
// adapters for the deadwood CLI.
package adapter

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	lru "github.com/hashicorp/golang-lru/v2"
	ignore "github.com/sabhiram/go-gitignore"

	m "deadwood.dev/pkg/deadwood/internal/model"
)

// DefaultStatCacheSize bounds the number of cached existence checks.
const DefaultStatCacheSize = 16384

// SourceFSAdapter abstracts the filesystem operations the analysis needs so
// the domain layer can be tested without touching the disk.
type SourceFSAdapter interface {
	// Walk visits every regular file under root that is not ignored by a
	// .gitignore, by the built-in directory skips or by an exclude glob.
	Walk(root m.Path, exclude []string, fn WalkFunc) error

	// ReadFile loads a file from disk and returns its contents.
	ReadFile(path m.Path) ([]byte, error)

	// Exists reports whether path is a regular file. Results are cached until
	// Invalidate is called.
	Exists(path m.Path) bool

	// IsDir reports whether path is a directory.
	IsDir(path m.Path) bool

	// Glob expands a doublestar pattern relative to root into absolute paths.
	Glob(root m.Path, pattern string) ([]m.Path, error)

	// Invalidate drops cached existence checks.
	Invalidate()
}

// WalkFunc receives each file accepted by Walk.
type WalkFunc func(path m.Path, entry fs.DirEntry) error

// skippedDirs are never descended into.
var skippedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
}

// LocalSourceFSAdapter is the os-backed SourceFSAdapter.
type LocalSourceFSAdapter struct {
	stats *lru.Cache[m.Path, bool]
}

// NewLocalSourceFSAdapter constructs a LocalSourceFSAdapter whose existence
// cache holds up to cacheSize entries.
func NewLocalSourceFSAdapter(cacheSize int) *LocalSourceFSAdapter {
	if cacheSize <= 0 {
		cacheSize = DefaultStatCacheSize
	}

	cache, err := lru.New[m.Path, bool](cacheSize)
	if err != nil {
		// Only returned for a non-positive size.
		panic(err)
	}

	return &LocalSourceFSAdapter{stats: cache}
}

type ignoreScope struct {
	dir     string
	matcher *ignore.GitIgnore
}

// Walk iterates over files under root in lexical order.
func (a *LocalSourceFSAdapter) Walk(root m.Path, exclude []string, fn WalkFunc) error {
	rootStr := string(root)
	scopes := map[string]*ignoreScope{}

	return filepath.WalkDir(rootStr, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk %s: %w", path, err)
		}

		isDir := d.IsDir()

		if path != rootStr {
			if isDir && skippedDirs[d.Name()] {
				return filepath.SkipDir
			}

			if ignored(rootStr, path, isDir, scopes, exclude) {
				if isDir {
					return filepath.SkipDir
				}

				return nil
			}
		}

		if isDir {
			loadIgnoreScope(path, scopes)
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		return fn(m.Path(path), d)
	})
}

func loadIgnoreScope(dir string, scopes map[string]*ignoreScope) {
	file := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(file); err != nil {
		return
	}

	matcher, err := ignore.CompileIgnoreFile(file)
	if err != nil {
		return
	}

	scopes[dir] = &ignoreScope{dir: dir, matcher: matcher}
}

func ignored(root, path string, isDir bool, scopes map[string]*ignoreScope, exclude []string) bool {
	for dir := filepath.Dir(path); ; dir = filepath.Dir(dir) {
		if scope, ok := scopes[dir]; ok && scope.matches(path, isDir) {
			return true
		}

		if dir == root || dir == filepath.Dir(dir) {
			break
		}
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}

	rel = filepath.ToSlash(rel)

	for _, pattern := range exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}

	return false
}

func (s *ignoreScope) matches(path string, isDir bool) bool {
	rel, err := filepath.Rel(s.dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}

	rel = filepath.ToSlash(rel)
	if s.matcher.MatchesPath(rel) {
		return true
	}

	return isDir && s.matcher.MatchesPath(rel+"/")
}

// ReadFile loads file contents from disk.
func (a *LocalSourceFSAdapter) ReadFile(path m.Path) ([]byte, error) {
	return os.ReadFile(string(path))
}

// Exists reports whether path names a regular file.
func (a *LocalSourceFSAdapter) Exists(path m.Path) bool {
	if ok, hit := a.stats.Get(path); hit {
		return ok
	}

	info, err := os.Stat(string(path))
	ok := err == nil && info.Mode().IsRegular()
	a.stats.Add(path, ok)

	return ok
}

// IsDir reports whether path names a directory.
func (a *LocalSourceFSAdapter) IsDir(path m.Path) bool {
	info, err := os.Stat(string(path))
	return err == nil && info.IsDir()
}

// Glob expands pattern below root. Matches are returned in lexical order.
func (a *LocalSourceFSAdapter) Glob(root m.Path, pattern string) ([]m.Path, error) {
	pattern = strings.TrimPrefix(filepath.ToSlash(pattern), "./")

	matches, err := doublestar.Glob(os.DirFS(string(root)), pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}

	paths := make([]m.Path, 0, len(matches))
	for _, match := range matches {
		paths = append(paths, root.Join(filepath.FromSlash(match)))
	}

	return paths, nil
}

// Invalidate clears the existence cache.
func (a *LocalSourceFSAdapter) Invalidate() {
	a.stats.Purge()
}
