package conventions

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	m "deadwood.dev/pkg/deadwood/internal/model"
)

var jestConfigFiles = []string{"jest.config.js", "jest.config.cjs", "jest.config.mjs", "jest.config.ts", "jest.config.json"}

// jestDefaultTests approximates jest's default testMatch.
var jestDefaultTests = regexp.MustCompile(`(/__tests__/.*|[./](test|spec))\.[cm]?[jt]sx?$`)

// Jest marks configuration and setup files and claims test files.
type Jest struct{}

func (Jest) Name() string { return "jest" }

func (Jest) ContributeRoots(ctx context.Context, pkg *m.Package, env Env) (Claim, error) {
	if !pkg.DependsOn("jest") {
		return nil, nil
	}

	config, err := loadJestConfig(ctx, pkg, env)

	rootDir := pkg.Root
	if dir, ok := stringAt(config, "rootDir"); ok {
		rootDir = pkg.Root.Join(dir)
	}

	expand := func(value string) string {
		return strings.ReplaceAll(value, "<rootDir>", string(rootDir))
	}

	for _, key := range []string{"setupFiles", "setupFilesAfterEnv", "globalSetup", "globalTeardown", "testEnvironment", "snapshotResolver"} {
		for _, value := range stringsAt(config, key) {
			markConfigured(env, rootDir, expand(value))
		}
	}

	claim := &jestClaim{root: rootDir, mocks: true}

	for _, pattern := range stringsAt(config, "testMatch") {
		claim.globs = append(claim.globs, expand(pattern))
	}

	for _, expr := range stringsAt(config, "testRegex") {
		if re, reErr := regexp.Compile(expr); reErr == nil {
			claim.regexes = append(claim.regexes, re)
		}
	}

	if len(claim.globs) == 0 && len(claim.regexes) == 0 {
		claim.regexes = []*regexp.Regexp{jestDefaultTests}
	}

	return claim, err
}

func loadJestConfig(ctx context.Context, pkg *m.Package, env Env) (any, error) {
	var config any

	if inline, ok := pkg.Manifest.Raw["jest"]; ok {
		config = inline
	}

	for _, path := range markExisting(env, pkg.Root, jestConfigFiles...) {
		if config != nil {
			continue
		}

		value, err := env.Evaluate(ctx, path)
		if err != nil {
			return nil, err
		}

		config = unwrapModule(value)
	}

	return config, nil
}

// markConfigured marks a file named by tool configuration. Bare names go
// through the resolver so aliases apply; unresolved package names are
// ignored.
func markConfigured(env Env, root m.Path, value string) {
	if value == "" {
		return
	}

	var target m.Path

	switch {
	case filepath.IsAbs(value):
		target = m.Path(value)
	case isPathLike(value):
		target = root.Join(value)
	default:
		if path, ok := env.Resolve(value, root); ok {
			env.Mark(path)
			return
		}

		target = root.Join(value)
	}

	markEntry(env, target)
}

type jestClaim struct {
	root    m.Path
	globs   []string
	regexes []*regexp.Regexp
	mocks   bool
}

func (c *jestClaim) IsConventionallyOwned(path m.Path) bool {
	slashed := strings.ReplaceAll(string(path), "\\", "/")

	if c.mocks && strings.Contains(slashed, "/__mocks__/") {
		return true
	}

	for _, re := range c.regexes {
		if re.MatchString(slashed) {
			return true
		}
	}

	rel, ok := relSlash(c.root, path)

	for _, pattern := range c.globs {
		if strings.HasPrefix(pattern, "/") {
			if matched, _ := doublestar.Match(pattern, slashed); matched {
				return true
			}

			continue
		}

		if ok {
			if matched, _ := doublestar.Match(pattern, rel); matched {
				return true
			}
		}
	}

	return false
}
