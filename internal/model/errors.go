package model

import "fmt"

// ManifestError reports a package manifest that is missing, unreadable or
// lacks the fields required to identify the package.
type ManifestError struct {
	Path   Path
	Reason string
	Err    error
}

func (e *ManifestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("manifest %s: %s: %v", e.Path, e.Reason, e.Err)
	}

	return fmt.Sprintf("manifest %s: %s", e.Path, e.Reason)
}

func (e *ManifestError) Unwrap() error {
	return e.Err
}
