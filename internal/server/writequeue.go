package server

// writeQueue is the double-buffered outbound queue of a session. Data is only
// ever appended to pending; pending moves wholesale into inflight once
// inflight has been written out, so at most one write is outstanding.
type writeQueue struct {
	inflight []byte
	pending  []byte
}

// enqueue appends data behind everything already queued.
func (q *writeQueue) enqueue(data []byte) {
	q.pending = append(q.pending, data...)
}

// next returns the buffer to write, or nil when a write is already in flight
// or nothing is pending.
func (q *writeQueue) next() []byte {
	if len(q.inflight) != 0 || len(q.pending) == 0 {
		return nil
	}
	q.inflight, q.pending = q.pending, q.inflight[:0]
	return q.inflight
}

// complete marks the in-flight buffer as written.
func (q *writeQueue) complete() {
	q.inflight = q.inflight[:0]
}

// idle reports whether nothing is pending.
func (q *writeQueue) idle() bool {
	return len(q.pending) == 0
}

// inFlight reports whether a write is outstanding.
func (q *writeQueue) inFlight() bool {
	return len(q.inflight) != 0
}
