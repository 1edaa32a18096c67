package domain_test

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"deadwood.dev/pkg/deadwood/internal/adapter"
	"deadwood.dev/pkg/deadwood/internal/domain"
	"deadwood.dev/pkg/deadwood/internal/domain/conventions"
	m "deadwood.dev/pkg/deadwood/internal/model"
)

// writeFixture writes files, keyed by slash-separated relative path, below a
// fresh temporary directory and returns it.
func writeFixture(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()

	for rel, contents := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	}

	return root
}

// stubEvaluator returns canned values by file name and falls back to the
// CommonJS evaluator.
type stubEvaluator struct {
	values map[string]any
	next   adapter.ModuleEvaluator

	mu    sync.Mutex
	calls []m.Path
	modes map[m.Path]m.ModuleMode
}

func newStubEvaluator(values map[string]any) *stubEvaluator {
	return &stubEvaluator{values: values, next: adapter.NewCommonJSEvaluator(0), modes: map[m.Path]m.ModuleMode{}}
}

func (s *stubEvaluator) Evaluate(ctx context.Context, path m.Path, mode m.ModuleMode) (any, error) {
	s.mu.Lock()
	s.calls = append(s.calls, path)
	s.modes[path] = mode
	s.mu.Unlock()

	if value, ok := s.values[filepath.Base(string(path))]; ok {
		return value, nil
	}

	return s.next.Evaluate(ctx, path, mode)
}

func (s *stubEvaluator) modeOf(path m.Path) m.ModuleMode {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.modes[path]
}

func (s *stubEvaluator) evaluated() []m.Path {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]m.Path(nil), s.calls...)
}

type pipeline struct {
	fs        *adapter.LocalSourceFSAdapter
	builder   domain.WorkspaceBuilder
	engine    domain.Engine
	evaluator adapter.ModuleEvaluator
}

func newPipeline(evaluator adapter.ModuleEvaluator) *pipeline {
	if evaluator == nil {
		evaluator = newStubEvaluator(nil)
	}

	fsAdapter := adapter.NewLocalSourceFSAdapter(0)
	extractor := domain.NewExtractor(adapter.NewLocalSyntaxAdapter(), 0)

	return &pipeline{
		fs:        fsAdapter,
		builder:   domain.NewWorkspaceBuilder(fsAdapter, adapter.NewLocalManifestAdapter(), domain.WorkspaceOptions{}),
		engine:    domain.NewEngine(fsAdapter, extractor, evaluator, conventions.Default(), 4),
		evaluator: evaluator,
	}
}

// analyzeFixture builds the workspace at root and runs the engine over it.
func (p *pipeline) analyzeFixture(t *testing.T, root string, filter ...string) m.Report {
	t.Helper()

	workspace, err := p.builder.Build(context.Background(), m.Path(root))
	require.NoError(t, err)

	report, err := p.engine.Run(context.Background(), workspace, filter)
	require.NoError(t, err)

	return report
}

// unusedFiles flattens a report into root-relative slash paths.
func unusedFiles(t *testing.T, root string, report m.Report) []string {
	t.Helper()

	unused := []string{}

	for _, pkg := range report.Packages {
		for _, path := range pkg.UnusedFiles {
			rel, err := filepath.Rel(root, string(path))
			require.NoError(t, err)

			unused = append(unused, filepath.ToSlash(rel))
		}
	}

	sort.Strings(unused)

	return unused
}

func manifest(name string, fields string) string {
	if fields == "" {
		return `{"name": "` + name + `", "version": "0.0.1", "private": true}`
	}

	return `{"name": "` + name + `", "version": "0.0.1", "private": true, ` + fields + `}`
}
