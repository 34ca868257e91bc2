//go:build linux

package reactor

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// availableCPUs honours the process affinity mask (taskset, cpusets).
func availableCPUs() int {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err == nil {
		if n := set.Count(); n > 0 {
			return n
		}
	}
	return runtime.NumCPU()
}
