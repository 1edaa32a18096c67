package domain

import (
	"errors"
	"fmt"

	"deadwood.dev/pkg/deadwood/internal/adapter"
	m "deadwood.dev/pkg/deadwood/internal/model"
)

var (
	// ErrUnknownPackage is returned when a package filter names no package
	// of the workspace.
	ErrUnknownPackage = errors.New("unknown package")

	// ErrNestingTooDeep is returned when a syntax tree exceeds the traversal
	// depth bound.
	ErrNestingTooDeep = errors.New("syntax tree nesting too deep")
)

// DynamicReferenceError reports a require or import() call whose target is
// not a string literal. Kind is m.RefRequire or m.RefDynamicImport. Malformed
// is set when the call has the wrong number of arguments.
type DynamicReferenceError struct {
	Path      m.Path
	Line      int
	Kind      m.ReferenceKind
	Malformed bool
}

func (e *DynamicReferenceError) Error() string {
	call := "require"
	if e.Kind == m.RefDynamicImport {
		call = "import()"
	}

	if e.Malformed {
		return fmt.Sprintf("%s:%d: malformed %s call", e.Path, e.Line, call)
	}

	return fmt.Sprintf("%s:%d: %s with a non-literal specifier", e.Path, e.Line, call)
}

// ResolutionMiss is returned by the resolver when a specifier matches no file.
// External is set for bare package specifiers, which are never looked up on
// disk.
type ResolutionMiss struct {
	Specifier string
	From      m.Path
	External  bool
}

func (e *ResolutionMiss) Error() string {
	if e.External {
		return fmt.Sprintf("external module %q", e.Specifier)
	}

	return fmt.Sprintf("cannot resolve %q from %s", e.Specifier, e.From)
}

// classifySkip maps a per-file failure onto the reason recorded in the report.
func classifySkip(path m.Path, err error) m.SkippedFile {
	skipped := m.SkippedFile{Path: path, Reason: m.SkipRead, Message: err.Error()}

	var dynErr *DynamicReferenceError

	switch {
	case errors.As(err, &dynErr):
		skipped.Line = dynErr.Line
		skipped.Reason = m.SkipDynamic

		if dynErr.Malformed {
			skipped.Reason = m.SkipMalformed
		}
	case errors.Is(err, ErrNestingTooDeep):
		skipped.Reason = m.SkipDepth
	case errors.Is(err, adapter.ErrParseFailed), errors.Is(err, adapter.ErrUnsupportedSyntax):
		skipped.Reason = m.SkipParse
	}

	return skipped
}
