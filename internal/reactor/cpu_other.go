//go:build !linux

package reactor

import "runtime"

func availableCPUs() int {
	return runtime.NumCPU()
}
