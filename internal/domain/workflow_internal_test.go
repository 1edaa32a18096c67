package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"deadwood.dev/pkg/deadwood/internal/adapter"
	m "deadwood.dev/pkg/deadwood/internal/model"
)

func TestRelevantChanges(t *testing.T) {
	batch := adapter.ChangeBatch{Paths: []m.Path{
		"/repo/src/b.tsx",
		"/repo/report.json",
		"/repo/.deadwood.log",
		"/repo/package.json",
		"/repo/src/a.ts",
		"/repo/.gitignore",
		"/repo/src/logo.png",
		"/repo/docs/page.mdx",
	}}

	builder := NewWorkspaceBuilder(adapter.NewLocalSourceFSAdapter(0), adapter.NewLocalManifestAdapter(), WorkspaceOptions{})

	assert.Equal(t, []m.Path{
		"/repo/.gitignore",
		"/repo/docs/page.mdx",
		"/repo/package.json",
		"/repo/src/a.ts",
		"/repo/src/b.tsx",
	}, relevantChanges(batch, "/repo/report.json", builder.Tracks))

	single := adapter.ChangeBatch{Paths: []m.Path{"/repo/report.json"}}
	assert.Empty(t, relevantChanges(single, "/repo/report.json", builder.Tracks))
	assert.Len(t, relevantChanges(single, "", builder.Tracks), 1)
}

func TestRelevantChanges_ConfiguredExtensions(t *testing.T) {
	builder := NewWorkspaceBuilder(
		adapter.NewLocalSourceFSAdapter(0),
		adapter.NewLocalManifestAdapter(),
		WorkspaceOptions{Extensions: []string{".vue", ".js"}},
	)

	batch := adapter.ChangeBatch{Paths: []m.Path{
		"/repo/src/App.vue",
		"/repo/src/main.js",
		"/repo/src/types.ts",
		"/repo/tsconfig.json",
	}}

	assert.Equal(t, []m.Path{
		"/repo/src/App.vue",
		"/repo/src/main.js",
		"/repo/tsconfig.json",
	}, relevantChanges(batch, "", builder.Tracks))
}

func TestClassifySkip(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason m.SkipReason
		line   int
	}{
		{name: "dynamic", err: &DynamicReferenceError{Path: "/a.js", Line: 4}, reason: m.SkipDynamic, line: 4},
		{name: "malformed", err: &DynamicReferenceError{Path: "/a.js", Line: 2, Malformed: true}, reason: m.SkipMalformed, line: 2},
		{name: "depth", err: fmt.Errorf("/a.js: %w", ErrNestingTooDeep), reason: m.SkipDepth},
		{name: "parse", err: fmt.Errorf("%w: syntax error near line 3", adapter.ErrParseFailed), reason: m.SkipParse},
		{name: "unsupported", err: fmt.Errorf("%w: vue", adapter.ErrUnsupportedSyntax), reason: m.SkipParse},
		{name: "other", err: errors.New("permission denied"), reason: m.SkipRead},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			skipped := classifySkip("/a.js", tt.err)

			assert.Equal(t, m.Path("/a.js"), skipped.Path)
			assert.Equal(t, tt.reason, skipped.Reason)
			assert.Equal(t, tt.line, skipped.Line)
			assert.Equal(t, tt.err.Error(), skipped.Message)
		})
	}
}
