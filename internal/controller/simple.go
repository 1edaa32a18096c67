package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	m "deadwood.dev/pkg/deadwood/internal/model"
)

// SimpleUI implements UI using cobra Command's output streams. Progress goes
// to stderr so JSON and YAML on stdout stay machine readable.
type SimpleUI struct {
	cmd    *cobra.Command
	format Format
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command, format Format) *SimpleUI {
	if format == "" {
		format = FormatTable
	}

	return &SimpleUI{cmd: cmd, format: format}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context, _ ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return nil
}

// Close finalizes the UI.
func (s *SimpleUI) Close(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
}

// Wait blocks until the UI is closed (no-op for SimpleUI).
func (s *SimpleUI) Wait(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
}

// DisplayWorkspace prints the discovered package tree.
func (s *SimpleUI) DisplayWorkspace(ctx context.Context, workspace *m.Package) {
	if ctx.Err() != nil || workspace == nil {
		return
	}

	packages := workspace.All()

	files := 0
	for _, pkg := range packages {
		files += len(pkg.Files)
	}

	s.progressf("Analyzing %d package(s), %d file(s) in %s\n", len(packages), files, workspace.Root)
}

// DisplayChanges prints the files that triggered a re-analysis.
func (s *SimpleUI) DisplayChanges(ctx context.Context, paths []m.Path) {
	if ctx.Err() != nil {
		return
	}

	s.progressf("Detected %d change(s), re-analyzing\n", len(paths))
}

// DisplayReport renders report in the configured format.
func (s *SimpleUI) DisplayReport(ctx context.Context, report m.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch s.format {
	case FormatJSON:
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}

		s.printf("%s\n", data)
	case FormatYAML:
		data, err := yaml.Marshal(report)
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}

		s.printf("%s", data)
	default:
		s.printf("\n%s", renderReport(report))
	}

	return nil
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

func (s *SimpleUI) progressf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.ErrOrStderr(), format, args...)
}

var (
	unusedColor  = color.New(color.FgRed).SprintFunc()
	skippedColor = color.New(color.FgYellow).SprintFunc()
	cleanColor   = color.New(color.FgGreen).SprintFunc()
)

// renderReport renders the package table, the unused file list and the
// skipped files.
func renderReport(report m.Report) string {
	var b bytes.Buffer

	b.WriteString(renderPackageTable(report))

	for _, pkg := range report.Packages {
		if len(pkg.UnusedFiles) == 0 {
			continue
		}

		fmt.Fprintf(&b, "\n%s (%d unused)\n", pkg.Name, len(pkg.UnusedFiles))

		for _, path := range pkg.UnusedFiles {
			fmt.Fprintf(&b, "  %s\n", unusedColor(displayPath(report.Root, path)))
		}
	}

	if len(report.Skipped) > 0 {
		fmt.Fprintf(&b, "\nSkipped %d file(s):\n", len(report.Skipped))
		b.WriteString(renderSkippedTable(report))
	}

	summary := report.Summary()
	if summary.Unused == 0 {
		fmt.Fprintf(&b, "\n%s\n", cleanColor("No unused files found"))
	} else {
		fmt.Fprintf(&b, "\n%s unused file(s), %s (%.1f%% of owned files)\n",
			unusedColor(strconv.Itoa(summary.Unused)),
			humanize.Bytes(uint64(summary.UnusedBytes)),
			summary.UnusedRatio()*100,
		)
	}

	return b.String()
}

func renderPackageTable(report m.Report) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Package", "Files", "Referenced", "Unused", "Size"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
	})

	for _, pkg := range report.Packages {
		table.Append([]string{
			pkg.Name,
			strconv.Itoa(pkg.Owned),
			strconv.Itoa(pkg.Referenced),
			strconv.Itoa(len(pkg.UnusedFiles)),
			humanize.Bytes(uint64(pkg.UnusedBytes)),
		})
	}

	summary := report.Summary()
	table.SetFooter([]string{
		fmt.Sprintf("Total Packages %d", summary.Packages),
		strconv.Itoa(summary.Owned),
		strconv.Itoa(summary.Referenced),
		strconv.Itoa(summary.Unused),
		humanize.Bytes(uint64(summary.UnusedBytes)),
	})

	table.Render()

	return tableBuffer.String()
}

func renderSkippedTable(report m.Report) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Path", "Reason", "Line"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)

	for _, skipped := range report.Skipped {
		line := ""
		if skipped.Line > 0 {
			line = strconv.Itoa(skipped.Line)
		}

		table.Append([]string{
			displayPath(report.Root, skipped.Path),
			skippedColor(string(skipped.Reason)),
			line,
		})
	}

	table.Render()

	return tableBuffer.String()
}

// displayPath shortens path relative to root when possible.
func displayPath(root, path m.Path) string {
	if root == "" {
		return string(path)
	}

	rel, err := filepath.Rel(string(root), string(path))
	if err != nil {
		return string(path)
	}

	return filepath.ToSlash(rel)
}
