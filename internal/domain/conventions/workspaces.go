package conventions

import (
	"context"
	"strings"

	m "deadwood.dev/pkg/deadwood/internal/model"
)

// Workspaces resolves imports of sibling workspace packages by name to files
// inside those packages instead of an installed copy.
type Workspaces struct{}

func (Workspaces) Name() string { return "workspaces" }

func (Workspaces) ContributeRoots(_ context.Context, pkg *m.Package, env Env) (Claim, error) {
	// The resolver is registered once, on the workspace root. Descendants
	// inherit it through the ancestor chain.
	if pkg.Parent != nil {
		return nil, nil
	}

	byName := map[string]*m.Package{}
	pkg.Walk(func(p *m.Package) {
		if p.Name != "" {
			byName[p.Name] = p
		}
	})

	return &workspaceAliases{env: env, packages: byName}, nil
}

type workspaceAliases struct {
	env      Env
	packages map[string]*m.Package
}

func (w *workspaceAliases) IsConventionallyOwned(m.Path) bool { return false }

func (w *workspaceAliases) ResolveAlias(specifier string, _ m.Path) (m.Path, bool) {
	pkg, subpath, ok := w.lookup(specifier)
	if !ok {
		return "", false
	}

	if exports, ok := subpathExports(pkg.Manifest.Exports, subpath); ok {
		for _, target := range exportCandidates(exports) {
			if path, ok := w.infer(pkg.Root.Join(target)); ok {
				return path, true
			}
		}
	}

	if subpath != "." {
		return w.infer(pkg.Root.Join(subpath))
	}

	for _, entry := range []string{pkg.Manifest.Module, pkg.Manifest.Main} {
		if entry == "" {
			continue
		}

		if path, ok := w.infer(pkg.Root.Join(entry)); ok {
			return path, true
		}
	}

	return w.env.Infer(pkg.Root.Join("index"))
}

// lookup finds the package named by the longest prefix of specifier and
// returns the remaining subpath in exports form ("." or "./x").
func (w *workspaceAliases) lookup(specifier string) (*m.Package, string, bool) {
	if pkg, ok := w.packages[specifier]; ok {
		return pkg, ".", true
	}

	for i := len(specifier) - 1; i > 0; i-- {
		if specifier[i] != '/' {
			continue
		}

		if pkg, ok := w.packages[specifier[:i]]; ok {
			return pkg, "./" + strings.TrimPrefix(specifier[i+1:], "/"), true
		}
	}

	return nil, "", false
}

func (w *workspaceAliases) infer(path m.Path) (m.Path, bool) {
	if w.env.Exists(path) {
		return path, true
	}

	return w.env.Infer(path)
}
