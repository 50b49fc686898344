package linkage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Ramsey-B/clover/pkg/database"
)

var (
	// ErrInvalidMode is returned for a clean mode other than naive or blocked.
	ErrInvalidMode = errors.New("invalid clean mode")
	// ErrPassInProgress is returned when another clean pass holds the pass lock.
	ErrPassInProgress = errors.New("clean pass already in progress")
	// ErrNotFound marks a lookup of an unknown id.
	ErrNotFound = errors.New("not found")
)

// StorageError is a failed query or connection during a pass.
type StorageError struct {
	Op    string
	Query string
	Err   error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// newStorageError classifies err as a StorageError for op, keeping the statement
// text when the store reported one.
func newStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	var ire *IdentityResolutionError
	if errors.As(err, &ire) {
		return err
	}
	storageErr := &StorageError{Op: op, Err: err}
	var qe *database.QueryError
	if errors.As(err, &qe) {
		storageErr.Query = qe.Query
	}
	return storageErr
}

// ValidationError is a restaurant row whose fields cannot be scored.
type ValidationError struct {
	RecordID int64
	Fields   []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("restaurant %d is missing %s", e.RecordID, strings.Join(e.Fields, ", "))
}

// IdentityResolutionError means a synthesized canonical row was inserted but no
// identity came back for it.
type IdentityResolutionError struct {
	Err error
}

func (e *IdentityResolutionError) Error() string {
	if e.Err == nil {
		return "canonical restaurant insert returned no id"
	}
	return fmt.Sprintf("canonical restaurant insert returned no id: %v", e.Err)
}

func (e *IdentityResolutionError) Unwrap() error {
	return e.Err
}
