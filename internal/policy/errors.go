package policy

import (
	"errors"
	"fmt"
)

// ErrUnknownPolicy is wrapped by PolicyError when a name matches neither a
// built-in policy nor a file.
var ErrUnknownPolicy = errors.New("unknown policy")

// ErrorKind categorizes policy errors.
type ErrorKind int

const (
	// ErrKindNotFound indicates no policy by that name or path exists
	ErrKindNotFound ErrorKind = iota
	// ErrKindRead indicates the policy file could not be read
	ErrKindRead
	// ErrKindParse indicates malformed YAML
	ErrKindParse
	// ErrKindInvalid indicates an unknown version, suite or curve
	ErrKindInvalid
)

// String returns a human-readable name for the error kind
func (k ErrorKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not found"
	case ErrKindRead:
		return "read error"
	case ErrKindParse:
		return "parse error"
	case ErrKindInvalid:
		return "invalid policy"
	default:
		return "unknown error"
	}
}

// PolicyError is returned for any failure resolving or applying a policy.
type PolicyError struct {
	Kind   ErrorKind
	Policy string
	Err    error
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("policy %q: %s: %v", e.Policy, e.Kind, e.Err)
}

func (e *PolicyError) Unwrap() error {
	return e.Err
}
