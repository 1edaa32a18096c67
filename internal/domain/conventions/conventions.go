// Package conventions holds the static catalogue of tool conventions that
// contribute root files, ownership claims and alias resolution to an
// analysis run.
package conventions

import (
	"context"
	"path/filepath"
	"strings"

	m "deadwood.dev/pkg/deadwood/internal/model"
)

// Collaborator contributes knowledge about one tool or file convention.
type Collaborator interface {
	Name() string

	// ContributeRoots marks the package's entry points through env and
	// optionally returns a Claim. A nil Claim contributes nothing further.
	ContributeRoots(ctx context.Context, pkg *m.Package, env Env) (Claim, error)
}

// Claim declares files a tool owns by convention even though no import
// reaches them (test files, framework pages).
type Claim interface {
	IsConventionallyOwned(path m.Path) bool
}

// AliasResolver maps a non-relative specifier onto a file. A Claim that also
// implements AliasResolver is consulted by the resolver before relative
// resolution.
type AliasResolver interface {
	ResolveAlias(specifier string, fromDir m.Path) (m.Path, bool)
}

// Env is the engine capability set handed to collaborators.
type Env interface {
	// Workspace returns the root package of the run.
	Workspace() *m.Package

	// Mark records path as referenced in its owning package.
	Mark(path m.Path) bool

	Exists(path m.Path) bool
	ReadFile(path m.Path) ([]byte, error)

	// Glob expands pattern relative to root, skipping dependency folders.
	Glob(root m.Path, pattern string) ([]m.Path, error)

	// Evaluate loads a configuration module and returns its default export.
	Evaluate(ctx context.Context, path m.Path) (any, error)

	// Infer applies extension and index inference to base.
	Infer(base m.Path) (m.Path, bool)

	// Resolve resolves a specifier as an import written in fromDir would be.
	Resolve(specifier string, fromDir m.Path) (m.Path, bool)
}

// Default returns the collaborators applied to every package, in order.
// Alias resolvers are consulted in this order too.
func Default() []Collaborator {
	return []Collaborator{
		PackageJSON{},
		Workspaces{},
		TSConfigPaths{},
		NodeScripts{},
		Jest{},
		Vitest{},
		Next{},
		Rollup{},
		Mocha{},
		BetterNodeTest{},
		TailwindCSS(),
		Prettier(),
		PostCSS(),
		ESLint(),
		SizeLimit(),
	}
}

// ClaimFunc adapts a predicate to Claim.
type ClaimFunc func(path m.Path) bool

// IsConventionallyOwned implements Claim.
func (f ClaimFunc) IsConventionallyOwned(path m.Path) bool {
	return f(path)
}

// markEntry marks path, or the file found by extension and index inference
// when path itself is not a file. It reports whether a file was marked.
func markEntry(env Env, path m.Path) bool {
	if env.Exists(path) {
		env.Mark(path)
		markDeclarationSibling(env, path)

		return true
	}

	if inferred, ok := env.Infer(path); ok {
		env.Mark(inferred)
		return true
	}

	return false
}

// markDeclarationSibling marks foo.d.ts next to foo.js.
func markDeclarationSibling(env Env, path m.Path) {
	if path.Ext() != ".js" {
		return
	}

	sibling := m.Path(strings.TrimSuffix(string(path), ".js") + ".d.ts")
	if env.Exists(sibling) {
		env.Mark(sibling)
	}
}

// markExisting marks every candidate file that exists below dir and returns
// the marked paths.
func markExisting(env Env, dir m.Path, names ...string) []m.Path {
	var found []m.Path

	for _, name := range names {
		path := dir.Join(name)
		if env.Exists(path) {
			env.Mark(path)
			found = append(found, path)
		}
	}

	return found
}

// relSlash returns path relative to root with forward slashes, or false when
// path is outside root.
func relSlash(root, path m.Path) (string, bool) {
	if !path.Within(root) {
		return "", false
	}

	rel, err := filepath.Rel(string(root), string(path))
	if err != nil {
		return "", false
	}

	return filepath.ToSlash(rel), true
}

// isPathLike reports whether a configuration value names a file rather than
// a package.
func isPathLike(value string) bool {
	return strings.HasPrefix(value, "./") || strings.HasPrefix(value, "../") ||
		strings.HasPrefix(value, "/") || strings.HasPrefix(value, "<rootDir>")
}
