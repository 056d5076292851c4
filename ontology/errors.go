package ontology

import "fmt"

// InvalidPathError reports that a Path references a column, edge, or
// inheritance-depth cap that the Catalog does not recognize for the record
// kind in scope.
type InvalidPathError struct {
	Kind   RecordKind
	Reason string
}

// Error implements the error interface.
func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("ontology: invalid path on %s: %s", e.Kind, e.Reason)
}

// Is allows errors.Is(err, ErrInvalidPath) to succeed for any
// *InvalidPathError.
func (e *InvalidPathError) Is(target error) bool {
	return target == ErrInvalidPath
}

// ErrInvalidPath is the sentinel InvalidPathError instances compare equal to
// via errors.Is.
var ErrInvalidPath = fmt.Errorf("ontology: invalid path")
