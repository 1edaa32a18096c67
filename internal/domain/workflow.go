package domain

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"

	"deadwood.dev/pkg/deadwood/internal/adapter"
	"deadwood.dev/pkg/deadwood/internal/controller"
	m "deadwood.dev/pkg/deadwood/internal/model"
)

// AnalyzeArgs contains the arguments for one analysis run.
type AnalyzeArgs struct {
	Root     m.Path
	Packages []string
	// Output, when set, is where the report is saved.
	Output m.Path
}

// ViewArgs contains the arguments for displaying a saved report.
type ViewArgs struct {
	Report m.Path
}

// Workflow ties workspace discovery, the engine, report storage and the UI
// together for the commands.
type Workflow interface {
	Analyze(ctx context.Context, args AnalyzeArgs) (m.Report, error)
	Watch(ctx context.Context, args AnalyzeArgs) error
	View(ctx context.Context, args ViewArgs) error
}

type workflow struct {
	adapter.ReportStore
	controller.UI
	WorkspaceBuilder
	Engine

	watcher adapter.WatchAdapter
	caches  []adapter.Invalidator
}

// NewWorkflow creates a new Workflow instance with the provided dependencies.
// caches are invalidated before every re-analysis in watch mode.
func NewWorkflow(
	builder WorkspaceBuilder,
	engine Engine,
	reportStore adapter.ReportStore,
	watcher adapter.WatchAdapter,
	ui controller.UI,
	caches ...adapter.Invalidator,
) Workflow {
	return &workflow{
		ReportStore:      reportStore,
		UI:               ui,
		WorkspaceBuilder: builder,
		Engine:           engine,
		watcher:          watcher,
		caches:           caches,
	}
}

func (w *workflow) Analyze(ctx context.Context, args AnalyzeArgs) (m.Report, error) {
	if err := w.Start(ctx, controller.WithAnalyzeMode()); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return m.Report{}, err
	}

	report, err := w.analyze(ctx, args)
	if err != nil {
		w.Close(ctx)
		return m.Report{}, err
	}

	if err := w.DisplayReport(ctx, report); err != nil {
		w.Close(ctx)
		slog.Error("Failed to display report", "error", err)

		return report, fmt.Errorf("display: %w", err)
	}

	w.Wait(ctx)
	w.Close(ctx)

	return report, nil
}

// analyze runs one full pass: discovery, reachability and optional save.
func (w *workflow) analyze(ctx context.Context, args AnalyzeArgs) (m.Report, error) {
	runID := uuid.NewString()
	logger := slog.With("run_id", runID)
	started := time.Now()

	workspace, err := w.Build(ctx, args.Root)
	if err != nil {
		logger.Error("Failed to build workspace", "root", args.Root, "error", err)
		return m.Report{}, fmt.Errorf("build workspace: %w", err)
	}

	w.DisplayWorkspace(ctx, workspace)

	report, err := w.Run(ctx, workspace, args.Packages)
	if err != nil {
		logger.Error("Failed to analyze workspace", "root", workspace.Root, "error", err)
		return m.Report{}, fmt.Errorf("analyze: %w", err)
	}

	report.RunID = runID
	report.GeneratedAt = time.Now().UTC()

	if args.Output != "" {
		if err := w.SaveReport(args.Output, report); err != nil {
			logger.Error("Failed to save report", "path", args.Output, "error", err)
			return report, fmt.Errorf("save report: %w", err)
		}
	}

	summary := report.Summary()
	logger.Info("Analysis complete",
		"root", report.Root,
		"packages", summary.Packages,
		"unused", summary.Unused,
		"skipped", summary.Skipped,
		"duration", time.Since(started),
	)

	return report, nil
}

func (w *workflow) Watch(ctx context.Context, args AnalyzeArgs) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := w.Start(ctx, controller.WithWatchMode(), controller.WithQuitHandler(cancel)); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}
	defer w.Close(ctx)

	batches, err := w.watcher.Watch(ctx, args.Root)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	if err := w.analyzeAndDisplay(ctx, args); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-batches:
			if !ok {
				return nil
			}

			changed := relevantChanges(batch, args.Output, w.Tracks)
			if len(changed) == 0 {
				continue
			}

			for _, cache := range w.caches {
				cache.Invalidate()
			}

			w.DisplayChanges(ctx, changed)

			// A broken manifest mid-edit must not end the session.
			if err := w.analyzeAndDisplay(ctx, args); err != nil && ctx.Err() == nil {
				slog.Warn("Re-analysis failed", "error", err)
			}
		}
	}
}

func (w *workflow) analyzeAndDisplay(ctx context.Context, args AnalyzeArgs) error {
	report, err := w.analyze(ctx, args)
	if err != nil {
		return err
	}

	if err := w.DisplayReport(ctx, report); err != nil {
		return fmt.Errorf("display: %w", err)
	}

	return nil
}

// relevantChanges keeps the paths tracks accepts. The saved report is
// dropped.
func relevantChanges(batch adapter.ChangeBatch, output m.Path, tracks func(m.Path) bool) []m.Path {
	var outputAbs string
	if output != "" {
		outputAbs, _ = filepath.Abs(string(output))
	}

	var changed []m.Path

	for _, path := range batch.Paths {
		if abs, err := filepath.Abs(string(path)); err == nil && abs == outputAbs {
			continue
		}

		if tracks(path) {
			changed = append(changed, path)
		}
	}

	slices.Sort(changed)

	return changed
}

func (w *workflow) View(ctx context.Context, args ViewArgs) error {
	report, err := w.LoadReport(args.Report)
	if err != nil {
		slog.Error("Failed to load report", "path", args.Report, "error", err)
		return fmt.Errorf("load report: %w", err)
	}

	if err := w.Start(ctx, controller.WithViewMode()); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}

	if err := w.DisplayReport(ctx, report); err != nil {
		w.Close(ctx)
		return fmt.Errorf("display: %w", err)
	}

	w.Wait(ctx)
	w.Close(ctx)

	return nil
}
