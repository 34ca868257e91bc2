// Package reactor runs connection handlers on a fixed pool of worker
// goroutines.
//
// A Pool owns N workers draining one shared FIFO of tasks; any worker may run
// any task. A Strand layered on a Pool serializes the tasks posted to it: they
// run in posting order and never two at once, although successive tasks may
// run on different workers. Each client session owns one Strand, which is
// what keeps session state free of locks.
//
//	pool := reactor.NewPool(reactor.DefaultSize())
//	defer pool.Close()
//
//	strand := reactor.NewStrand(pool)
//	strand.Post(func() { /* handler */ })
package reactor
