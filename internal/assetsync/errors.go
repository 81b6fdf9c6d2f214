package assetsync

import (
	"encoding/json"
	"fmt"

	errs "github.com/alexjbarnes/asset-sync/internal/errors"
)

// DuplicateIDError reports local files that resolved to the same stable ID.
// Files maps each colliding ID to every file that produced it.
type DuplicateIDError struct {
	Files map[string][]string
}

func (e *DuplicateIDError) Error() string {
	// json.Marshal sorts map keys, keeping the message stable.
	data, err := json.MarshalIndent(e.Files, "", "  ")
	if err != nil {
		return fmt.Sprintf("duplicate stable IDs: %v", e.Files)
	}

	return "duplicate stable IDs:\n" + string(data)
}

func (e *DuplicateIDError) Unwrap() error { return errs.ErrValidation }

// RemoteError wraps a failure reported by the Remote for one item. Kind is
// errs.ErrUpload or errs.ErrDelete so callers can match with errors.Is.
type RemoteError struct {
	Kind error
	// Target is the local path for uploads and the remote ID for deletes.
	Target string
	Err    error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Target, e.Err)
}

func (e *RemoteError) Unwrap() []error { return []error{e.Kind, e.Err} }
