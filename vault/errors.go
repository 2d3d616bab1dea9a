package vault

import (
	"errors"
	"fmt"
)

// RecordError reports a failed operation on a single record.
type RecordError struct {
	Op      string // "encrypt", "decrypt", "edit", "read", "write"
	Service string
	Index   int
	Err     error
}

func (e *RecordError) Error() string {
	if e.Service != "" {
		return fmt.Sprintf("%s record %q: %v", e.Op, e.Service, e.Err)
	}
	return fmt.Sprintf("%s record #%d: %v", e.Op, e.Index, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// IOError wraps a filesystem failure with the operation and path involved.
type IOError struct {
	Op   string // "mkdir", "write", "read", "rename", "remove", "stat"
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func newIOError(op, path string, err error) error {
	return &IOError{Op: op, Path: path, Err: err}
}

// IsIOError reports whether err carries an *IOError.
func IsIOError(err error) bool {
	var ie *IOError
	return errors.As(err, &ie)
}

// FailedService returns the service name of the record that caused err, if
// err carries a *RecordError.
func FailedService(err error) (string, bool) {
	var re *RecordError
	if errors.As(err, &re) {
		return re.Service, true
	}
	return "", false
}
