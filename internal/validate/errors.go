package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/specialistvlad/detprep/internal/dataset"
)

// ErrIntegrity matches every structural-integrity failure reported by
// Structure. Use errors.Is to tell them apart from I/O errors.
var ErrIntegrity = errors.New("dataset integrity check failed")

// MissingPathError lists every required path that does not exist.
type MissingPathError struct {
	Paths []string
}

func (e *MissingPathError) Error() string {
	if len(e.Paths) == 1 {
		return fmt.Sprintf("missing required path: %s", e.Paths[0])
	}
	return fmt.Sprintf("missing %d required paths: %s", len(e.Paths), strings.Join(e.Paths, ", "))
}

func (e *MissingPathError) Is(target error) bool { return target == ErrIntegrity }

// EmptyPoolError reports a pool with no images.
type EmptyPoolError struct {
	Pool dataset.Pool
	Dir  string
}

func (e *EmptyPoolError) Error() string {
	return fmt.Sprintf("no images in %s pool: %s", e.Pool, e.Dir)
}

func (e *EmptyPoolError) Is(target error) bool { return target == ErrIntegrity }

// ClassMismatchError carries both class sequences for diagnostics.
type ClassMismatchError struct {
	Actual   []string
	Expected []string
}

func (e *ClassMismatchError) Error() string {
	return fmt.Sprintf("class list does not match: got %q, expected %q", e.Actual, e.Expected)
}

func (e *ClassMismatchError) Is(target error) bool { return target == ErrIntegrity }
