package controller

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	m "deadwood.dev/pkg/deadwood/internal/model"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))
	packageStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))
	unusedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))
	skippedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220"))
	cleanStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))
	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// TUI implements UI using Bubble Tea for interactive display.
type TUI struct {
	input  io.Reader
	output io.Writer

	mu      sync.Mutex
	program *tea.Program
	done    chan struct{}
}

// NewTUI creates a new TUI.
func NewTUI(input io.Reader, output io.Writer) *TUI {
	return &TUI{input: input, output: output}
}

// Start launches the Bubble Tea program in the background.
func (t *TUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := newStartConfig(options)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.program != nil {
		return nil
	}

	program := tea.NewProgram(
		newAnalysisModel(cfg.mode),
		tea.WithInput(t.input),
		tea.WithOutput(t.output),
		tea.WithContext(ctx),
	)
	done := make(chan struct{})

	go func() {
		defer close(done)

		_, _ = program.Run()

		if cfg.onQuit != nil {
			cfg.onQuit()
		}
	}()

	t.program = program
	t.done = done

	return nil
}

// Close stops the program and waits for it to restore the terminal.
func (t *TUI) Close(_ context.Context) {
	program, done := t.running()
	if program == nil {
		return
	}

	program.Quit()
	<-done

	t.mu.Lock()
	t.program = nil
	t.mu.Unlock()
}

// Wait blocks until the user quits the program.
func (t *TUI) Wait(ctx context.Context) {
	_, done := t.running()
	if done == nil {
		return
	}

	select {
	case <-done:
	case <-ctx.Done():
	}
}

// DisplayWorkspace updates the progress line with the package tree size.
func (t *TUI) DisplayWorkspace(_ context.Context, workspace *m.Package) {
	if workspace == nil {
		return
	}

	files := 0
	for _, pkg := range workspace.All() {
		files += len(pkg.Files)
	}

	t.send(statusMsg(fmt.Sprintf("Analyzing %d package(s), %d file(s)", len(workspace.All()), files)))
}

// DisplayChanges puts the program back into its busy state.
func (t *TUI) DisplayChanges(_ context.Context, paths []m.Path) {
	t.send(changesMsg{count: len(paths)})
}

// DisplayReport replaces the displayed results.
func (t *TUI) DisplayReport(ctx context.Context, report m.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.send(reportMsg{report: report})

	return nil
}

func (t *TUI) running() (*tea.Program, chan struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.program, t.done
}

func (t *TUI) send(msg tea.Msg) {
	if program, _ := t.running(); program != nil {
		program.Send(msg)
	}
}

type (
	statusMsg  string
	changesMsg struct{ count int }
	reportMsg  struct{ report m.Report }
)

// analysisModel shows a spinner while busy and a scrollable report once one
// arrives.
type analysisModel struct {
	mode    StartMode
	spinner spinner.Model
	busy    bool
	status  string
	lines   []string
	footer  string
	height  int
	width   int
	offset  int
}

func newAnalysisModel(mode StartMode) analysisModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = titleStyle

	status := "Discovering workspace"
	if mode == ModeView {
		status = "Loading report"
	}

	return analysisModel{mode: mode, spinner: s, busy: true, status: status}
}

func (am analysisModel) Init() tea.Cmd {
	return am.spinner.Tick
}

func (am analysisModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		am.height = msg.Height
		am.width = msg.Width

		return am, nil
	case tea.KeyMsg:
		return am.handleKeyPress(msg)
	case spinner.TickMsg:
		if !am.busy {
			return am, nil
		}

		var cmd tea.Cmd
		am.spinner, cmd = am.spinner.Update(msg)

		return am, cmd
	case statusMsg:
		am.status = string(msg)
		return am, nil
	case changesMsg:
		am.status = fmt.Sprintf("%d change(s) detected, re-analyzing", msg.count)
		if am.busy {
			return am, nil
		}

		am.busy = true

		return am, am.spinner.Tick
	case reportMsg:
		am.busy = false
		am.lines, am.footer = buildReportLines(msg.report)
		am.offset = min(am.offset, am.maxOffset())

		if am.mode != ModeWatch && !am.needsPagination() {
			return am, tea.Quit
		}

		return am, nil
	}

	return am, nil
}

func (am analysisModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return am, tea.Quit
	case "down", "j":
		am.offset = min(am.offset+1, am.maxOffset())
	case "up", "k":
		am.offset = max(am.offset-1, 0)
	case "g", "home":
		am.offset = 0
	case "G", "end":
		am.offset = am.maxOffset()
	case "d", "pgdown":
		am.offset = min(am.offset+am.itemsPerPage(), am.maxOffset())
	case "u", "pgup":
		am.offset = max(am.offset-am.itemsPerPage(), 0)
	}

	return am, nil
}

// itemsPerPage calculates how many lines fit between header and footer.
func (am analysisModel) itemsPerPage() int {
	if am.height == 0 {
		return 10
	}

	// Header, status, summary and help lines.
	reserved := 7

	return max(am.height-reserved, 1)
}

func (am analysisModel) maxOffset() int {
	return max(len(am.lines)-am.itemsPerPage(), 0)
}

func (am analysisModel) needsPagination() bool {
	if am.height == 0 {
		return false
	}

	return len(am.lines) > am.itemsPerPage()
}

func (am analysisModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("deadwood") + mutedStyle.Render(" unused file report") + "\n\n")

	if am.busy {
		fmt.Fprintf(&b, "%s %s\n", am.spinner.View(), am.status)
	}

	if am.lines == nil {
		return b.String()
	}

	visible := am.lines
	if am.needsPagination() {
		end := min(am.offset+am.itemsPerPage(), len(am.lines))
		visible = am.lines[am.offset:end]
	}

	for _, line := range visible {
		b.WriteString(line + "\n")
	}

	b.WriteString("\n" + am.footer + "\n")

	switch {
	case am.needsPagination():
		end := min(am.offset+am.itemsPerPage(), len(am.lines))
		fmt.Fprintf(&b, "%s\n", mutedStyle.Render(fmt.Sprintf(
			"Lines %d-%d of %d | ↑/k: up | ↓/j: down | g: top | G: bottom | q: quit",
			am.offset+1, end, len(am.lines))))
	case am.mode == ModeWatch:
		b.WriteString(mutedStyle.Render("Watching for changes | q: quit") + "\n")
	}

	return b.String()
}

// buildReportLines flattens report into display lines plus a summary line.
func buildReportLines(report m.Report) ([]string, string) {
	lines := []string{}

	for _, pkg := range report.Packages {
		header := fmt.Sprintf("%s  %d/%d referenced", pkg.Name, pkg.Referenced, pkg.Owned)
		if len(pkg.UnusedFiles) == 0 {
			lines = append(lines, packageStyle.Render(header)+"  "+cleanStyle.Render("✓ clean"))
			continue
		}

		lines = append(lines, packageStyle.Render(header)+"  "+
			unusedStyle.Render(fmt.Sprintf("%d unused (%s)", len(pkg.UnusedFiles), humanize.Bytes(uint64(pkg.UnusedBytes)))))

		for _, path := range pkg.UnusedFiles {
			lines = append(lines, "  "+unusedStyle.Render("✗ ")+displayPath(report.Root, path))
		}
	}

	for _, skipped := range report.Skipped {
		lines = append(lines, "  "+skippedStyle.Render("! "+string(skipped.Reason))+" "+displayPath(report.Root, skipped.Path))
	}

	summary := report.Summary()
	footer := cleanStyle.Render("No unused files found")

	if summary.Unused > 0 {
		footer = fmt.Sprintf("Total: %d packages | Unused: %d files, %s | Skipped: %d",
			summary.Packages, summary.Unused, humanize.Bytes(uint64(summary.UnusedBytes)), summary.Skipped)
	}

	return lines, footer
}
