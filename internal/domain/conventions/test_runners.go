package conventions

import (
	"context"
	"regexp"
	"strings"

	m "deadwood.dev/pkg/deadwood/internal/model"
)

// Mocha claims files below a test directory and marks .mocharc modules.
type Mocha struct{}

func (Mocha) Name() string { return "mocha" }

func (Mocha) ContributeRoots(_ context.Context, pkg *m.Package, env Env) (Claim, error) {
	if !pkg.DependsOn("mocha") {
		return nil, nil
	}

	markExisting(env, pkg.Root, ".mocharc.js", ".mocharc.cjs", ".mocharc.mjs")

	return ClaimFunc(func(path m.Path) bool {
		rel, ok := relSlash(pkg.Root, path)
		if !ok {
			return false
		}

		dirs := strings.Split(rel, "/")
		for _, dir := range dirs[:len(dirs)-1] {
			if dir == "test" || dir == "tests" {
				return true
			}
		}

		return false
	}), nil
}

var bntTests = regexp.MustCompile(`\.test\.[cm]?[jt]s$`)

// BetterNodeTest claims *.test.js and *.test.ts files.
type BetterNodeTest struct{}

func (BetterNodeTest) Name() string { return "better-node-test" }

func (BetterNodeTest) ContributeRoots(_ context.Context, pkg *m.Package, _ Env) (Claim, error) {
	if !pkg.HasDependency("better-node-test") {
		return nil, nil
	}

	return ClaimFunc(func(path m.Path) bool {
		return bntTests.MatchString(string(path))
	}), nil
}
