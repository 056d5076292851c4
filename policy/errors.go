package policy

import (
	"fmt"

	"github.com/hashintel/graphcompiler/sqlgraph"
)

// PolicyDeniedError reports that Synthesize short-circuited to DenyAll: a
// blank Forbid was present or no Permit was, so the synthesized filter is
// the always-false
// `Any([])` and the caller should treat the query as "no rows" rather than
// compile and execute it.
type PolicyDeniedError struct{}

// Error implements the error interface.
func (e *PolicyDeniedError) Error() string {
	return "policy: synthesized filter denies all rows"
}

// Is allows errors.Is(err, ErrPolicyDenied) to succeed for any
// *PolicyDeniedError.
func (e *PolicyDeniedError) Is(target error) bool { return target == ErrPolicyDenied }

// ErrPolicyDenied is the sentinel PolicyDeniedError instances compare equal
// to via errors.Is.
var ErrPolicyDenied = fmt.Errorf("policy: denied")

// IsDenyAll reports whether f is exactly the DenyAll sentinel filter
// Synthesize returns for a blank Forbid or for rules with no Permit: an Any
// with no branches. A caller
// wiring Synthesize's result into a query can check this first and return
// a PolicyDeniedError instead of paying for a compile and a round trip
// that can only ever return zero rows.
func IsDenyAll(f sqlgraph.Filter) bool {
	any_, ok := f.(sqlgraph.Any)
	return ok && len(any_.Filters) == 0
}
