package server

import "sync/atomic"

// ServiceCap counts serviced connections against an optional cap.
type ServiceCap struct {
	serviced atomic.Uint64
	max      uint64
}

// NewServiceCap returns a tracker that stops acceptance after max
// connections. Zero means unbounded.
func NewServiceCap(max uint64) *ServiceCap {
	return &ServiceCap{max: max}
}

// RecordService counts one accepted connection.
func (c *ServiceCap) RecordService() {
	c.serviced.Add(1)
}

// ShouldStopAccepting reports whether the cap has been reached.
func (c *ServiceCap) ShouldStopAccepting() bool {
	return c.max != 0 && c.serviced.Load() >= c.max
}

// Serviced returns the number of connections counted so far.
func (c *ServiceCap) Serviced() uint64 {
	return c.serviced.Load()
}

// Max returns the configured cap.
func (c *ServiceCap) Max() uint64 {
	return c.max
}
