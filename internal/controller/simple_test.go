package controller_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"deadwood.dev/pkg/deadwood/internal/controller"
	m "deadwood.dev/pkg/deadwood/internal/model"
)

func sampleReport() m.Report {
	return m.Report{
		RunID: "run-1",
		Root:  "/repo",
		Packages: []m.PackageReport{
			{Name: "app", Root: "/repo/packages/app", UnusedFiles: []m.Path{"/repo/packages/app/src/unused.ts"}, Owned: 4, Referenced: 3, UnusedBytes: 2048},
			{Name: "lib", Root: "/repo/packages/lib", Owned: 2, Referenced: 2},
		},
		Skipped: []m.SkippedFile{
			{Path: "/repo/packages/app/src/loader.js", Reason: m.SkipDynamic, Line: 7, Message: "dynamic require"},
		},
		GeneratedAt: time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
	}
}

func newTestCommand() (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer

	cmd := &cobra.Command{}
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	return cmd, &stdout, &stderr
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    controller.Format
		wantErr bool
	}{
		{input: "table", want: controller.FormatTable},
		{input: "json", want: controller.FormatJSON},
		{input: "yaml", want: controller.FormatYAML},
		{input: "", want: controller.FormatTable},
		{input: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := controller.ParseFormat(tt.input)
			if tt.wantErr {
				assert.ErrorContains(t, err, "unknown output format")
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewUI(t *testing.T) {
	cmd, _, _ := newTestCommand()

	assert.IsType(t, &controller.SimpleUI{}, controller.NewUI(cmd, false, controller.FormatTable))
	assert.IsType(t, &controller.SimpleUI{}, controller.NewUI(cmd, true, controller.FormatJSON))
	assert.IsType(t, &controller.TUI{}, controller.NewUI(cmd, true, controller.FormatTable))

	assert.False(t, controller.IsTTY(&bytes.Buffer{}))
}

func TestSimpleUI_DisplayReport(t *testing.T) {
	color.NoColor = true

	t.Run("table", func(t *testing.T) {
		cmd, stdout, _ := newTestCommand()

		err := controller.NewSimpleUI(cmd, controller.FormatTable).DisplayReport(context.Background(), sampleReport())
		require.NoError(t, err)

		out := stdout.String()
		assert.Contains(t, out, "PACKAGE")
		assert.Contains(t, out, "app (1 unused)")
		assert.Contains(t, out, "packages/app/src/unused.ts")
		assert.Contains(t, out, "packages/app/src/loader.js")
		assert.Contains(t, out, "dynamic")
		assert.Contains(t, out, "TOTAL PACKAGES 2")
		assert.Contains(t, out, "1 unused file(s), 2.0 kB (16.7% of owned files)")
		assert.NotContains(t, out, "lib (")
	})

	t.Run("clean", func(t *testing.T) {
		cmd, stdout, _ := newTestCommand()

		report := m.Report{Root: "/repo", Packages: []m.PackageReport{{Name: "app", Owned: 1, Referenced: 1}}}
		require.NoError(t, controller.NewSimpleUI(cmd, "").DisplayReport(context.Background(), report))

		assert.Contains(t, stdout.String(), "No unused files found")
		assert.NotContains(t, stdout.String(), "Skipped")
	})

	t.Run("json", func(t *testing.T) {
		cmd, stdout, stderr := newTestCommand()

		require.NoError(t, controller.NewSimpleUI(cmd, controller.FormatJSON).DisplayReport(context.Background(), sampleReport()))

		var decoded m.Report
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &decoded))
		assert.Equal(t, sampleReport().Packages, decoded.Packages)
		assert.Equal(t, sampleReport().Skipped, decoded.Skipped)
		assert.Empty(t, stderr.String())
	})

	t.Run("yaml", func(t *testing.T) {
		cmd, stdout, _ := newTestCommand()

		require.NoError(t, controller.NewSimpleUI(cmd, controller.FormatYAML).DisplayReport(context.Background(), sampleReport()))

		var decoded m.Report
		require.NoError(t, yaml.Unmarshal(stdout.Bytes(), &decoded))
		assert.Equal(t, "run-1", decoded.RunID)
		assert.Equal(t, sampleReport().Packages, decoded.Packages)
	})

	t.Run("cancelled", func(t *testing.T) {
		cmd, stdout, _ := newTestCommand()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := controller.NewSimpleUI(cmd, controller.FormatTable).DisplayReport(ctx, sampleReport())
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, stdout.String())
	})
}

func TestSimpleUI_Progress(t *testing.T) {
	cmd, stdout, stderr := newTestCommand()
	ui := controller.NewSimpleUI(cmd, controller.FormatJSON)
	ctx := context.Background()

	root := m.NewPackage("/repo", &m.Manifest{Name: "root"}, nil)
	child := m.NewPackage("/repo/packages/app", &m.Manifest{Name: "app"}, root)
	root.Children = append(root.Children, child)
	root.AddFile(&m.FileDescriptor{Path: "/repo/index.ts"})
	child.AddFile(&m.FileDescriptor{Path: "/repo/packages/app/a.ts"})
	child.AddFile(&m.FileDescriptor{Path: "/repo/packages/app/b.ts"})

	require.NoError(t, ui.Start(ctx, controller.WithAnalyzeMode()))
	ui.DisplayWorkspace(ctx, root)
	ui.DisplayChanges(ctx, []m.Path{"/repo/index.ts"})
	ui.Wait(ctx)
	ui.Close(ctx)

	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "Analyzing 2 package(s), 3 file(s) in /repo")
	assert.Contains(t, stderr.String(), "Detected 1 change(s), re-analyzing")
}
