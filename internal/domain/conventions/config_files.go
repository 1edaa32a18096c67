package conventions

import (
	"context"

	m "deadwood.dev/pkg/deadwood/internal/model"
)

// ConfigFiles marks well-known configuration modules of a tool when the
// package declares a dependency on it.
type ConfigFiles struct {
	Tool       string
	Dependency string
	// Hoisted accepts the dependency from an ancestor package as well.
	Hoisted bool
	Files   []string
}

func (c ConfigFiles) Name() string { return c.Tool }

func (c ConfigFiles) ContributeRoots(_ context.Context, pkg *m.Package, env Env) (Claim, error) {
	declared := pkg.HasDependency(c.Dependency)
	if c.Hoisted {
		declared = pkg.DependsOn(c.Dependency)
	}

	if declared {
		markExisting(env, pkg.Root, c.Files...)
	}

	return nil, nil
}

// TailwindCSS marks tailwind.config.*.
func TailwindCSS() ConfigFiles {
	return ConfigFiles{
		Tool:       "tailwindcss",
		Dependency: "tailwindcss",
		Files:      []string{"tailwind.config.js", "tailwind.config.cjs", "tailwind.config.mjs", "tailwind.config.ts"},
	}
}

// Prettier marks prettier.config.* and .prettierrc modules.
func Prettier() ConfigFiles {
	return ConfigFiles{
		Tool:       "prettier",
		Dependency: "prettier",
		Files: []string{
			"prettier.config.js", "prettier.config.cjs", "prettier.config.mjs",
			".prettierrc.js", ".prettierrc.cjs", ".prettierrc.mjs",
		},
	}
}

// PostCSS marks postcss.config.*.
func PostCSS() ConfigFiles {
	return ConfigFiles{
		Tool:       "postcss",
		Dependency: "postcss",
		Files:      postcssConfigFiles,
	}
}

// ESLint marks flat and legacy eslint configuration modules.
func ESLint() ConfigFiles {
	return ConfigFiles{
		Tool:       "eslint",
		Dependency: "eslint",
		Hoisted:    true,
		Files: []string{
			"eslint.config.js", "eslint.config.mjs", "eslint.config.cjs", "eslint.config.ts",
			".eslintrc.js", ".eslintrc.cjs",
		},
	}
}

// SizeLimit marks .size-limit.* files.
func SizeLimit() ConfigFiles {
	return ConfigFiles{
		Tool:       "size-limit",
		Dependency: "size-limit",
		Files:      []string{".size-limit.json", ".size-limit.js", ".size-limit.cjs", ".size-limit.ts"},
	}
}
