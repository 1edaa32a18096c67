package model

import (
	"encoding/json"
	"fmt"
)

// ModuleMode is the module system a package declares in its manifest.
type ModuleMode string

const (
	// ModeCommonJS is the default module system (require/module.exports).
	ModeCommonJS ModuleMode = "commonjs"
	// ModeModule marks a package whose .js files are ES modules.
	ModeModule ModuleMode = "module"
)

// Manifest holds the package.json fields the analysis needs. Raw keeps the
// whole decoded document so conventions can read their own keys.
type Manifest struct {
	Name             string            `json:"name"`
	Type             string            `json:"type,omitempty"`
	Main             string            `json:"main,omitempty"`
	Types            string            `json:"types,omitempty"`
	Typings          string            `json:"typings,omitempty"`
	Module           string            `json:"module,omitempty"`
	Bin              any               `json:"bin,omitempty"`
	Exports          any               `json:"exports,omitempty"`
	Dependencies     map[string]string `json:"dependencies,omitempty"`
	DevDependencies  map[string]string `json:"devDependencies,omitempty"`
	PeerDependencies map[string]string `json:"peerDependencies,omitempty"`
	Scripts          map[string]string `json:"scripts,omitempty"`
	Workspaces       Workspaces        `json:"workspaces,omitempty"`

	Raw map[string]any `json:"-"`
}

// Mode derives the module system from the "type" field.
func (m *Manifest) Mode() ModuleMode {
	if m.Type == string(ModeModule) {
		return ModeModule
	}

	return ModeCommonJS
}

// HasDependency reports whether name is declared in any dependency map.
func (m *Manifest) HasDependency(name string) bool {
	for _, deps := range []map[string]string{m.Dependencies, m.DevDependencies, m.PeerDependencies} {
		if _, ok := deps[name]; ok {
			return true
		}
	}

	return false
}

// Workspaces is the ordered list of sub-package globs. Both the npm array form
// and the yarn object form ({"packages": [...]}) are accepted.
type Workspaces []string

// UnmarshalJSON implements json.Unmarshaler.
func (w *Workspaces) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*w = list
		return nil
	}

	var object struct {
		Packages []string `json:"packages"`
	}

	if err := json.Unmarshal(data, &object); err != nil {
		return fmt.Errorf("workspaces must be an array or an object with packages: %w", err)
	}

	*w = object.Packages

	return nil
}
