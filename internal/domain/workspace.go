package domain

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"deadwood.dev/pkg/deadwood/internal/adapter"
	m "deadwood.dev/pkg/deadwood/internal/model"
)

// DefaultExtensions are the source file extensions analyzed by default.
var DefaultExtensions = []string{".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs", ".mts", ".cts", ".mdx"}

// WorkspaceOptions controls which files a workspace owns.
type WorkspaceOptions struct {
	Extensions []string
	Exclude    []string
}

// WorkspaceBuilder discovers the package tree rooted at a directory and
// distributes its source files among the packages.
type WorkspaceBuilder interface {
	Build(ctx context.Context, root m.Path) (*m.Package, error)
	// Tracks reports whether a change to path can alter the next build:
	// analyzed sources, JSON manifests and configs, and ignore files.
	Tracks(path m.Path) bool
}

type workspaceBuilder struct {
	fsAdapter       adapter.SourceFSAdapter
	manifestAdapter adapter.ManifestAdapter
	options         WorkspaceOptions
	extensions      map[string]bool
}

// NewWorkspaceBuilder constructs a WorkspaceBuilder.
func NewWorkspaceBuilder(fsAdapter adapter.SourceFSAdapter, manifestAdapter adapter.ManifestAdapter, options WorkspaceOptions) WorkspaceBuilder {
	if len(options.Extensions) == 0 {
		options.Extensions = DefaultExtensions
	}

	extensions := make(map[string]bool, len(options.Extensions))
	for _, ext := range options.Extensions {
		extensions[strings.ToLower(ext)] = true
	}

	return &workspaceBuilder{
		fsAdapter:       fsAdapter,
		manifestAdapter: manifestAdapter,
		options:         options,
		extensions:      extensions,
	}
}

func (b *workspaceBuilder) Tracks(path m.Path) bool {
	ext := strings.ToLower(path.Ext())

	return b.extensions[ext] || ext == ".json" || filepath.Base(string(path)) == ".gitignore"
}

func (b *workspaceBuilder) Build(ctx context.Context, root m.Path) (*m.Package, error) {
	abs, err := filepath.Abs(string(root))
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", root, err)
	}

	root = m.Path(abs)

	manifest, err := b.manifestAdapter.ReadManifest(root.Join(adapter.ManifestFile))
	if err != nil {
		return nil, err
	}

	workspace := m.NewPackage(root, manifest, nil)
	seen := map[m.Path]bool{root: true}

	if err := b.expand(workspace, seen); err != nil {
		return nil, err
	}

	if err := b.distribute(ctx, workspace); err != nil {
		return nil, err
	}

	slog.Debug("Built workspace", "root", root, "packages", len(workspace.All()))

	return workspace, nil
}

// expand turns the sub-package globs of pkg into child packages, recursively.
func (b *workspaceBuilder) expand(pkg *m.Package, seen map[m.Path]bool) error {
	var excluded []string

	for _, pattern := range pkg.SubPackageGlobs {
		if negated, ok := strings.CutPrefix(pattern, "!"); ok {
			excluded = append(excluded, strings.TrimPrefix(negated, "./"))
		}
	}

	for _, pattern := range pkg.SubPackageGlobs {
		if strings.HasPrefix(pattern, "!") {
			continue
		}

		matches, err := b.fsAdapter.Glob(pkg.Root, pattern)
		if err != nil {
			slog.Warn("Ignoring invalid workspace glob", "package", pkg.Name, "pattern", pattern, "error", err)
			continue
		}

		for _, dir := range matches {
			if seen[dir] || isDependencyDir(dir) || matchesAny(pkg.Root, dir, excluded) {
				continue
			}

			manifestPath := dir.Join(adapter.ManifestFile)
			if !b.fsAdapter.IsDir(dir) || !b.fsAdapter.Exists(manifestPath) {
				continue
			}

			seen[dir] = true

			manifest, err := b.manifestAdapter.ReadManifest(manifestPath)
			if err != nil {
				return err
			}

			child := m.NewPackage(dir, manifest, pkg)
			pkg.Children = append(pkg.Children, child)

			if err := b.expand(child, seen); err != nil {
				return err
			}
		}
	}

	return nil
}

func isDependencyDir(dir m.Path) bool {
	for _, part := range strings.Split(filepath.ToSlash(string(dir)), "/") {
		if part == "node_modules" {
			return true
		}
	}

	return false
}

func matchesAny(root, dir m.Path, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}

	rel, err := filepath.Rel(string(root), string(dir))
	if err != nil {
		return false
	}

	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, filepath.ToSlash(rel)); ok {
			return true
		}
	}

	return false
}

// distribute walks the workspace once and hands each source file to the
// innermost package whose root contains it.
func (b *workspaceBuilder) distribute(ctx context.Context, workspace *m.Package) error {
	packages := workspace.All()
	sort.SliceStable(packages, func(i, j int) bool {
		return len(packages[i].Root) > len(packages[j].Root)
	})

	return b.fsAdapter.Walk(workspace.Root, b.options.Exclude, func(path m.Path, _ fs.DirEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if !b.extensions[strings.ToLower(path.Ext())] {
			return nil
		}

		owner := innermost(packages, path)
		if owner == nil {
			return nil
		}

		source, err := b.fsAdapter.ReadFile(path)
		if err != nil {
			slog.Warn("Skipping unreadable file", "path", path, "error", err)
			return nil
		}

		owner.AddFile(&m.FileDescriptor{Path: path, Kind: m.SyntaxKindFor(path), Source: source})

		return nil
	})
}

// innermost expects packages ordered by descending root length.
func innermost(packages []*m.Package, path m.Path) *m.Package {
	for _, pkg := range packages {
		if path.Within(pkg.Root) {
			return pkg
		}
	}

	return nil
}
