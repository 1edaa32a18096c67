package domain

import (
	"path/filepath"
	"strings"

	"deadwood.dev/pkg/deadwood/internal/adapter"
	"deadwood.dev/pkg/deadwood/internal/domain/conventions"
	m "deadwood.dev/pkg/deadwood/internal/model"
)

// indexCandidates are tried before extension candidates: a directory import wins
// over a sibling file of the same name.
var indexCandidates = []string{
	"index.ts", "index.js", "index.mjs",
	"index.tsx", "index.jsx",
}

var extensionCandidates = []string{
	".ts", ".js", ".mjs", ".tsx", ".jsx",
	".cjs", ".mts", ".cts", ".d.ts",
}

// sourceExtensions are resolved literally when a specifier carries them.
var sourceExtensions = map[string]bool{
	".js": true, ".jsx": true, ".ts": true, ".tsx": true,
	".mjs": true, ".cjs": true, ".mts": true, ".cts": true, ".mdx": true,
}

// typeScriptSiblings lists the files a compiled-extension import may point
// at in TypeScript sources.
var typeScriptSiblings = map[string][]string{
	".js":  {".ts", ".tsx"},
	".jsx": {".tsx"},
	".mjs": {".mts"},
	".cjs": {".cts"},
}

// Resolver maps module specifiers onto files. Alias resolvers run first, in
// registration order.
type Resolver struct {
	fsAdapter adapter.SourceFSAdapter
	aliases   []conventions.AliasResolver
}

// NewResolver constructs a Resolver that checks existence through fsAdapter.
func NewResolver(fsAdapter adapter.SourceFSAdapter, aliases ...conventions.AliasResolver) *Resolver {
	return &Resolver{fsAdapter: fsAdapter, aliases: aliases}
}

// With returns a resolver that consults aliases after the receiver's own.
func (r *Resolver) With(aliases ...conventions.AliasResolver) *Resolver {
	combined := make([]conventions.AliasResolver, 0, len(r.aliases)+len(aliases))
	combined = append(combined, r.aliases...)
	combined = append(combined, aliases...)

	return &Resolver{fsAdapter: r.fsAdapter, aliases: combined}
}

// Resolve returns the file specifier refers to when imported from fromDir.
// Failures are reported as *ResolutionMiss.
func (r *Resolver) Resolve(specifier string, fromDir m.Path) (m.Path, error) {
	for _, alias := range r.aliases {
		if path, ok := alias.ResolveAlias(specifier, fromDir); ok {
			return path, nil
		}
	}

	cleaned := stripQuery(specifier)

	if isBare(cleaned) {
		return "", &ResolutionMiss{Specifier: specifier, From: fromDir, External: true}
	}

	target := m.Path(cleaned)
	if !filepath.IsAbs(cleaned) {
		target = fromDir.Join(cleaned)
	}

	ext := strings.ToLower(target.Ext())
	if sourceExtensions[ext] {
		if r.fsAdapter.Exists(target) {
			return target, nil
		}

		stem := strings.TrimSuffix(string(target), target.Ext())
		for _, sibling := range typeScriptSiblings[ext] {
			if candidate := m.Path(stem + sibling); r.fsAdapter.Exists(candidate) {
				return candidate, nil
			}
		}

		return "", &ResolutionMiss{Specifier: specifier, From: fromDir}
	}

	if path, ok := r.Infer(target); ok {
		return path, nil
	}

	return "", &ResolutionMiss{Specifier: specifier, From: fromDir}
}

// Infer returns the file base refers to: index files first, then extensions,
// then base itself when it is an existing file.
func (r *Resolver) Infer(base m.Path) (m.Path, bool) {
	for _, index := range indexCandidates {
		if candidate := base.Join(index); r.fsAdapter.Exists(candidate) {
			return candidate, true
		}
	}

	for _, ext := range extensionCandidates {
		if candidate := m.Path(string(base) + ext); r.fsAdapter.Exists(candidate) {
			return candidate, true
		}
	}

	if r.fsAdapter.Exists(base) {
		return base, true
	}

	return "", false
}

// stripQuery drops the ?query suffix used by bundler loaders. A '#' is part
// of the path.
func stripQuery(specifier string) string {
	if i := strings.IndexByte(specifier, '?'); i >= 0 {
		specifier = specifier[:i]
	}

	return specifier
}

func isBare(specifier string) bool {
	switch {
	case specifier == "." || specifier == "..":
		return false
	case strings.HasPrefix(specifier, "./"), strings.HasPrefix(specifier, "../"):
		return false
	case filepath.IsAbs(specifier):
		return false
	default:
		return true
	}
}
