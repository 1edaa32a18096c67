package conventions

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	m "deadwood.dev/pkg/deadwood/internal/model"
)

var (
	nextConfigFiles       = []string{"next.config.js", "next.config.mjs", "next.config.cjs", "next.config.ts"}
	postcssConfigFiles    = []string{"postcss.config.js", "postcss.config.cjs", "postcss.config.mjs"}
	nextDefaultExtensions = []string{"tsx", "ts", "jsx", "js"}

	// nextAppFiles are the special file names of the app router.
	nextAppFiles = map[string]bool{
		"page": true, "layout": true, "template": true, "loading": true, "error": true,
		"global-error": true, "not-found": true, "default": true, "route": true,
		"opengraph-image": true, "twitter-image": true, "icon": true, "apple-icon": true,
		"sitemap": true, "robots": true, "manifest": true,
	}
)

// Next marks Next.js configuration and root files and claims pages and app
// router files.
type Next struct{}

func (Next) Name() string { return "next" }

func (Next) ContributeRoots(ctx context.Context, pkg *m.Package, env Env) (Claim, error) {
	if !pkg.DependsOn("next") {
		return nil, nil
	}

	dir := pkg.Root
	if configured := nextProjectDir(pkg); configured != "" {
		dir = pkg.Root.Join(configured)
	}

	var errs []error

	extensions := nextDefaultExtensions

	for _, path := range markExisting(env, dir, nextConfigFiles...) {
		value, err := env.Evaluate(ctx, path)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if configured := stringsAt(unwrapModule(value), "pageExtensions"); len(configured) > 0 {
			extensions = configured
		}
	}

	for _, base := range []string{"middleware", "instrumentation", "src/middleware", "src/instrumentation"} {
		if path, ok := env.Infer(dir.Join(base)); ok {
			env.Mark(path)
		}
	}

	if err := markPostCSSChain(ctx, env, dir); err != nil {
		errs = append(errs, err)
	}

	claim := &nextClaim{
		pageDirs:   []m.Path{dir.Join("pages"), dir.Join("src", "pages")},
		appDirs:    []m.Path{dir.Join("app"), dir.Join("src", "app")},
		extensions: extensions,
	}

	return claim, errors.Join(errs...)
}

// nextProjectDir returns the directory argument of the first `next <cmd> <dir>`
// script.
func nextProjectDir(pkg *m.Package) string {
	for _, script := range pkg.Scripts() {
		for _, command := range splitCommands(script.Command) {
			if len(command) == 0 || command[0] != "next" {
				continue
			}

			if len(command) > 2 && !strings.HasPrefix(command[2], "-") {
				return command[2]
			}
		}
	}

	return ""
}

// markPostCSSChain marks postcss.config.* in dir and the tailwind config it
// points at.
func markPostCSSChain(ctx context.Context, env Env, dir m.Path) error {
	var errs []error

	for _, path := range markExisting(env, dir, postcssConfigFiles...) {
		value, err := env.Evaluate(ctx, path)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		plugins := unwrapModule(value)
		for _, key := range []string{"tailwindcss", "@tailwindcss/postcss"} {
			if config, ok := stringAt(plugins, "plugins", key, "config"); ok {
				markConfigured(env, dir, config)
			}
		}
	}

	return errors.Join(errs...)
}

type nextClaim struct {
	pageDirs   []m.Path
	appDirs    []m.Path
	extensions []string
}

// pageName strips a configured page extension from the file name.
func (c *nextClaim) pageName(path m.Path) (string, bool) {
	base := filepath.Base(string(path))

	for _, ext := range c.extensions {
		if name, ok := strings.CutSuffix(base, "."+strings.TrimPrefix(ext, ".")); ok {
			return name, true
		}
	}

	return "", false
}

func (c *nextClaim) IsConventionallyOwned(path m.Path) bool {
	name, ok := c.pageName(path)
	if !ok {
		return false
	}

	for _, dir := range c.pageDirs {
		if path.Within(dir) {
			return true
		}
	}

	for _, dir := range c.appDirs {
		if path.Within(dir) && nextAppFiles[name] {
			return true
		}
	}

	return false
}
