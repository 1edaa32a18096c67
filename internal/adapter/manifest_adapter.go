package adapter

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	m "deadwood.dev/pkg/deadwood/internal/model"
)

// ManifestFile is the name of a package manifest.
const ManifestFile = "package.json"

//go:embed schema/package.schema.json
var manifestSchemaJSON []byte

// ManifestAdapter loads and validates package manifests.
type ManifestAdapter interface {
	// ReadManifest decodes the package.json at path. Every failure is
	// reported as a *model.ManifestError.
	ReadManifest(path m.Path) (*m.Manifest, error)
}

// LocalManifestAdapter reads manifests from disk and validates them against
// the embedded package.json schema.
type LocalManifestAdapter struct {
	once   sync.Once
	schema *gojsonschema.Schema
	err    error
}

// NewLocalManifestAdapter constructs a LocalManifestAdapter.
func NewLocalManifestAdapter() *LocalManifestAdapter {
	return &LocalManifestAdapter{}
}

func (a *LocalManifestAdapter) compiled() (*gojsonschema.Schema, error) {
	a.once.Do(func() {
		a.schema, a.err = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(manifestSchemaJSON))
	})

	return a.schema, a.err
}

// ReadManifest loads the manifest at path.
func (a *LocalManifestAdapter) ReadManifest(path m.Path) (*m.Manifest, error) {
	data, err := os.ReadFile(string(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &m.ManifestError{Path: path, Reason: "not found", Err: err}
		}

		return nil, &m.ManifestError{Path: path, Reason: "unreadable", Err: err}
	}

	return a.decode(path, data)
}

func (a *LocalManifestAdapter) decode(path m.Path, data []byte) (*m.Manifest, error) {
	var document any

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := dec.Decode(&document); err != nil {
		return nil, &m.ManifestError{Path: path, Reason: "invalid JSON", Err: err}
	}

	schema, err := a.compiled()
	if err != nil {
		return nil, fmt.Errorf("compile manifest schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(document))
	if err != nil {
		return nil, &m.ManifestError{Path: path, Reason: "schema validation failed", Err: err}
	}

	if !result.Valid() {
		return nil, &m.ManifestError{Path: path, Reason: describeSchemaErrors(result.Errors())}
	}

	manifest := &m.Manifest{}
	if err := json.Unmarshal(data, manifest); err != nil {
		return nil, &m.ManifestError{Path: path, Reason: "invalid field", Err: err}
	}

	manifest.Raw, _ = document.(map[string]any)

	return manifest, nil
}

func describeSchemaErrors(errs []gojsonschema.ResultError) string {
	parts := make([]string, 0, len(errs))
	for _, verr := range errs {
		parts = append(parts, fmt.Sprintf("%s: %s", verr.Field(), verr.Description()))
	}

	return strings.Join(parts, "; ")
}
