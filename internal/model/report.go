package model

import (
	"sort"
	"time"
)

// SkipReason classifies why a file contributed no references.
type SkipReason string

const (
	// SkipDynamic is a require or import() whose argument is not a literal.
	SkipDynamic SkipReason = "dynamic"
	// SkipMalformed is a require call with the wrong number of arguments.
	SkipMalformed SkipReason = "malformed"
	// SkipParse is a file the grammar could not parse.
	SkipParse SkipReason = "parse"
	// SkipDepth is a file nested deeper than the traversal bound.
	SkipDepth SkipReason = "depth"
	// SkipRead is a file that could not be read or decoded.
	SkipRead SkipReason = "read"
)

// SkippedFile is a file the analysis could not extract references from.
type SkippedFile struct {
	Path    Path       `json:"path" yaml:"path"`
	Reason  SkipReason `json:"reason" yaml:"reason"`
	Line    int        `json:"line,omitempty" yaml:"line,omitempty"`
	Message string     `json:"message" yaml:"message"`
}

// PackageReport is the verdict for a single package.
type PackageReport struct {
	Name        string `json:"name" yaml:"name"`
	Root        Path   `json:"root" yaml:"root"`
	UnusedFiles []Path `json:"unusedFiles" yaml:"unusedFiles"`
	Owned       int    `json:"owned" yaml:"owned"`
	Referenced  int    `json:"referenced" yaml:"referenced"`
	UnusedBytes int64  `json:"unusedBytes" yaml:"unusedBytes"`
}

// Report is the outcome of one analysis run.
type Report struct {
	RunID       string          `json:"runId" yaml:"runId"`
	Root        Path            `json:"root" yaml:"root"`
	Packages    []PackageReport `json:"packages" yaml:"packages"`
	Skipped     []SkippedFile   `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	GeneratedAt time.Time       `json:"generatedAt" yaml:"generatedAt"`
}

// Sort orders packages by name and skipped files by path.
func (r *Report) Sort() {
	sort.Slice(r.Packages, func(i, j int) bool {
		return r.Packages[i].Name < r.Packages[j].Name
	})

	sort.Slice(r.Skipped, func(i, j int) bool {
		return r.Skipped[i].Path < r.Skipped[j].Path
	})
}

// UnusedCount returns the number of unused files across all packages.
func (r *Report) UnusedCount() int {
	total := 0
	for _, pkg := range r.Packages {
		total += len(pkg.UnusedFiles)
	}

	return total
}

// UnusedBytes returns the size of all unused files.
func (r *Report) UnusedBytes() int64 {
	var total int64
	for _, pkg := range r.Packages {
		total += pkg.UnusedBytes
	}

	return total
}

// Summary aggregates a report's per-package counts.
type Summary struct {
	Packages    int
	Owned       int
	Referenced  int
	Unused      int
	UnusedBytes int64
	Skipped     int
}

// Summary totals the report. Skipped files are not part of the unused count.
func (r *Report) Summary() Summary {
	s := Summary{Packages: len(r.Packages), Skipped: len(r.Skipped)}

	for _, pkg := range r.Packages {
		s.Owned += pkg.Owned
		s.Referenced += pkg.Referenced
		s.Unused += len(pkg.UnusedFiles)
		s.UnusedBytes += pkg.UnusedBytes
	}

	return s
}

// UnusedRatio returns the share of owned files that are unused, from 0 to 1.
func (s Summary) UnusedRatio() float64 {
	if s.Owned == 0 {
		return 0
	}

	return float64(s.Unused) / float64(s.Owned)
}
