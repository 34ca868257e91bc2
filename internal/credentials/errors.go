package credentials

import "fmt"

// CredentialError represents a failure loading or generating credentials.
type CredentialError struct {
	// Operation describes what failed ("load", "generate_key", ...)
	Operation string
	// Path is the file involved, if any
	Path string
	// Underlying error
	Err error
}

func (e *CredentialError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("credential error during %s (file: %s): %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("credential error during %s: %v", e.Operation, e.Err)
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}
