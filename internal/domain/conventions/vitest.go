package conventions

import (
	"context"
	"errors"
	"regexp"

	"github.com/bmatcuk/doublestar/v4"

	m "deadwood.dev/pkg/deadwood/internal/model"
)

var vitestConfigFiles = []string{
	"vite.config.ts", "vite.config.js", "vite.config.mjs", "vite.config.mts", "vite.config.cjs", "vite.config.cts",
	"vitest.config.ts", "vitest.config.js", "vitest.config.mjs", "vitest.config.mts", "vitest.config.cjs", "vitest.config.cts",
	"vitest.workspace.ts", "vitest.workspace.js",
}

var vitestDefaultTests = regexp.MustCompile(`\.(test|spec)\.[cm]?[jt]sx?$`)

// Vitest marks vite and vitest configuration, their setup files, and claims
// test files.
type Vitest struct{}

func (Vitest) Name() string { return "vitest" }

func (Vitest) ContributeRoots(ctx context.Context, pkg *m.Package, env Env) (Claim, error) {
	if !pkg.DependsOn("vitest") {
		return nil, nil
	}

	var (
		include []string
		errs    []error
	)

	for _, path := range markExisting(env, pkg.Root, vitestConfigFiles...) {
		value, err := env.Evaluate(ctx, path)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		config := unwrapModule(value)

		for _, key := range []string{"setupFiles", "globalSetup"} {
			for _, setup := range stringsAt(config, "test", key) {
				markConfigured(env, pkg.Root, setup)
			}
		}

		include = append(include, stringsAt(config, "test", "include")...)
	}

	claim := ClaimFunc(func(path m.Path) bool {
		if vitestDefaultTests.MatchString(string(path)) {
			return true
		}

		rel, ok := relSlash(pkg.Root, path)
		if !ok {
			return false
		}

		for _, pattern := range include {
			if matched, _ := doublestar.Match(pattern, rel); matched {
				return true
			}
		}

		return false
	})

	return claim, errors.Join(errs...)
}
