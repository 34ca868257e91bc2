package ui

import "errors"

// ErrInterrupted is returned by RunWithSpinner when the user pressed ctrl+c
// before the task finished.
var ErrInterrupted = errors.New("interrupted")
