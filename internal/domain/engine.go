package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"deadwood.dev/pkg/deadwood/internal/adapter"
	"deadwood.dev/pkg/deadwood/internal/domain/conventions"
	m "deadwood.dev/pkg/deadwood/internal/model"
)

// Engine computes the unused files of a workspace.
type Engine interface {
	// Run marks every file reachable from the workspace's roots and reports
	// the remainder for the packages named in filter (all when empty).
	Run(ctx context.Context, workspace *m.Package, filter []string) (m.Report, error)
}

type engine struct {
	fsAdapter     adapter.SourceFSAdapter
	extractor     Extractor
	evaluator     adapter.ModuleEvaluator
	collaborators []conventions.Collaborator
	parallel      int
}

// NewEngine constructs an Engine. A parallel value of zero uses GOMAXPROCS.
func NewEngine(
	fsAdapter adapter.SourceFSAdapter,
	extractor Extractor,
	evaluator adapter.ModuleEvaluator,
	collaborators []conventions.Collaborator,
	parallel int,
) Engine {
	if parallel <= 0 {
		parallel = runtime.GOMAXPROCS(0)
	}

	return &engine{
		fsAdapter:     fsAdapter,
		extractor:     extractor,
		evaluator:     evaluator,
		collaborators: collaborators,
		parallel:      parallel,
	}
}

// attachment is what the collaborators contributed to one package.
type attachment struct {
	claims  []conventions.Claim
	aliases []conventions.AliasResolver
}

func (e *engine) Run(ctx context.Context, workspace *m.Package, filter []string) (m.Report, error) {
	selected, err := selectPackages(workspace, filter)
	if err != nil {
		return m.Report{}, err
	}

	workspace.Walk(func(pkg *m.Package) { pkg.ResetMarks() })

	base := NewResolver(e.fsAdapter)

	attachments, err := e.attach(ctx, workspace, base)
	if err != nil {
		return m.Report{}, fmt.Errorf("attach collaborators: %w", err)
	}

	skipped, err := e.walk(ctx, workspace, base, attachments)
	if err != nil {
		return m.Report{}, fmt.Errorf("walk references: %w", err)
	}

	report := m.Report{
		Root:    workspace.Root,
		Skipped: skipped,
	}

	for _, pkg := range selected {
		report.Packages = append(report.Packages, sweep(pkg, attachments))
	}

	report.Sort()

	return report, nil
}

// selectPackages returns the packages named in filter, or every package when
// filter is empty.
func selectPackages(workspace *m.Package, filter []string) ([]*m.Package, error) {
	if len(filter) == 0 {
		return workspace.All(), nil
	}

	var (
		selected []*m.Package
		missing  []string
	)

	for _, name := range filter {
		pkg, ok := workspace.Find(name)
		if !ok {
			missing = append(missing, name)
			continue
		}

		selected = append(selected, pkg)
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPackage, strings.Join(missing, ", "))
	}

	return selected, nil
}

// attach runs every collaborator against every package.
func (e *engine) attach(ctx context.Context, workspace *m.Package, base *Resolver) (map[*m.Package]*attachment, error) {
	packages := workspace.All()
	attachments := make(map[*m.Package]*attachment, len(packages))

	for _, pkg := range packages {
		attachments[pkg] = &attachment{}
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(e.parallel)

	for _, pkg := range packages {
		att := attachments[pkg]
		env := &packageEnv{engine: e, workspace: workspace, pkg: pkg, resolver: base}

		group.Go(func() error {
			for _, collaborator := range e.collaborators {
				if err := groupCtx.Err(); err != nil {
					return err
				}

				claim, err := collaborator.ContributeRoots(groupCtx, pkg, env)
				if err != nil {
					slog.Warn("Collaborator failed", "collaborator", collaborator.Name(), "package", pkg.Name, "error", err)
				}

				if claim == nil {
					continue
				}

				att.claims = append(att.claims, claim)

				if alias, ok := claim.(conventions.AliasResolver); ok {
					att.aliases = append(att.aliases, alias)
				}
			}

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return attachments, nil
}

// walk extracts and resolves the references of every owned file and marks
// their targets.
func (e *engine) walk(
	ctx context.Context,
	workspace *m.Package,
	base *Resolver,
	attachments map[*m.Package]*attachment,
) ([]m.SkippedFile, error) {
	var (
		skipped []m.SkippedFile
		mu      sync.Mutex
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(e.parallel)

	for _, pkg := range workspace.All() {
		resolver := base.With(inheritedAliases(pkg, attachments)...)

		for _, path := range pkg.OwnedPaths() {
			file := pkg.Files[path]

			group.Go(func() error {
				refs, err := e.extractor.Extract(groupCtx, file)
				if err != nil {
					if ctxErr := groupCtx.Err(); ctxErr != nil {
						return ctxErr
					}

					slog.Debug("Skipping file", "path", file.Path, "error", err)

					mu.Lock()
					skipped = append(skipped, classifySkip(file.Path, err))
					mu.Unlock()

					return nil
				}

				from := file.Path.Dir()

				for _, ref := range refs {
					target, err := resolver.Resolve(ref.Specifier, from)
					if err != nil {
						var miss *ResolutionMiss
						if !errors.As(err, &miss) {
							return err
						}

						continue
					}

					markResolved(workspace, target, e.fsAdapter)
				}

				return nil
			})
		}
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return skipped, nil
}

// inheritedAliases returns the alias resolvers of pkg followed by those of its
// ancestors, innermost first.
func inheritedAliases(pkg *m.Package, attachments map[*m.Package]*attachment) []conventions.AliasResolver {
	var aliases []conventions.AliasResolver

	for _, p := range pkg.Ancestors() {
		aliases = append(aliases, attachments[p].aliases...)
	}

	return aliases
}

// markResolved marks target in its owning package, together with the
// declaration file next to a resolved .js file.
func markResolved(workspace *m.Package, target m.Path, fsAdapter adapter.SourceFSAdapter) {
	if owner := workspace.Owner(target); owner != nil {
		owner.Mark(target)
	}

	if target.Ext() != ".js" {
		return
	}

	sibling := m.Path(strings.TrimSuffix(string(target), ".js") + ".d.ts")
	if !fsAdapter.Exists(sibling) {
		return
	}

	if owner := workspace.Owner(sibling); owner != nil {
		owner.Mark(sibling)
	}
}

// sweep reports the owned files of pkg that are neither marked nor claimed by
// a collaborator of pkg or its ancestors.
func sweep(pkg *m.Package, attachments map[*m.Package]*attachment) m.PackageReport {
	var claims []conventions.Claim
	for _, p := range pkg.Ancestors() {
		claims = append(claims, attachments[p].claims...)
	}

	report := m.PackageReport{
		Name:        pkg.Name,
		Root:        pkg.Root,
		UnusedFiles: []m.Path{},
		Owned:       len(pkg.Files),
		Referenced:  pkg.MarkedCount(),
	}

	for _, path := range pkg.Unused() {
		if claimed(claims, path) {
			continue
		}

		report.UnusedFiles = append(report.UnusedFiles, path)
		report.UnusedBytes += pkg.Files[path].Size()
	}

	return report
}

func claimed(claims []conventions.Claim, path m.Path) bool {
	for _, claim := range claims {
		if claim.IsConventionallyOwned(path) {
			return true
		}
	}

	return false
}

// packageEnv is the capability set collaborators receive for pkg.
type packageEnv struct {
	engine    *engine
	workspace *m.Package
	pkg       *m.Package
	resolver  *Resolver
}

func (p *packageEnv) Workspace() *m.Package {
	return p.workspace
}

func (p *packageEnv) Mark(path m.Path) bool {
	owner := p.workspace.Owner(path)
	if owner == nil {
		return false
	}

	return owner.Mark(path)
}

func (p *packageEnv) Exists(path m.Path) bool {
	return p.engine.fsAdapter.Exists(path)
}

func (p *packageEnv) ReadFile(path m.Path) ([]byte, error) {
	return p.engine.fsAdapter.ReadFile(path)
}

func (p *packageEnv) Glob(root m.Path, pattern string) ([]m.Path, error) {
	matches, err := p.engine.fsAdapter.Glob(root, pattern)
	if err != nil {
		return nil, err
	}

	kept := matches[:0]

	for _, match := range matches {
		if !strings.Contains(string(match), "/node_modules/") {
			kept = append(kept, match)
		}
	}

	return kept, nil
}

// Evaluate loads path under the module mode of the package being attached.
func (p *packageEnv) Evaluate(ctx context.Context, path m.Path) (any, error) {
	return p.engine.evaluator.Evaluate(ctx, path, p.pkg.Mode)
}

func (p *packageEnv) Infer(base m.Path) (m.Path, bool) {
	return p.resolver.Infer(base)
}

func (p *packageEnv) Resolve(specifier string, fromDir m.Path) (m.Path, bool) {
	path, err := p.resolver.Resolve(specifier, fromDir)
	return path, err == nil
}
