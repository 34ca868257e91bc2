package reactor

// fallbackSize is used when the CPU count cannot be determined.
const fallbackSize = 2

// DefaultSize returns the number of CPUs available to the process, or 2.
func DefaultSize() int {
	if n := availableCPUs(); n > 0 {
		return n
	}
	return fallbackSize
}
