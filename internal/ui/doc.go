// Package ui renders the styled terminal output of the tlsprobe CLI.
//
// Output follows a "run once and exit" pattern built on Lipgloss: a Header
// banner naming the command and its parameters, and a Result box with the
// outcome. RunWithSpinner shows a Bubble Tea spinner while a blocking task
// such as an mDNS scan runs.
//
// All components degrade to plain text when stdout is not a terminal, so the
// output stays usable in scripts and CI logs.
//
// Logging is separate: zap output is controlled by --log-level and
// TLSPROBE_LOG_LEVEL and is not routed through this package.
package ui
