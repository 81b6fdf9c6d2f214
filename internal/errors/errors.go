// Package errors holds the sentinel errors shared by asset-sync packages.
// Callers wrap them with fmt.Errorf("...: %w") and match with errors.Is.
package errors

import "errors"

// Input errors. Raised before any network call or disk mutation.
var (
	ErrConfig     = errors.New("configuration error")
	ErrValidation = errors.New("validation error")
)

// Remote collaborator errors.
var (
	ErrUpload = errors.New("upload failed")
	ErrDelete = errors.New("delete failed")
)

// ErrState means an operation needs persisted state that is absent or
// held by another process.
var ErrState = errors.New("state error")
