package reconciler

import "sync"

// outbox is an unbounded FIFO of mirror ops. push never blocks; next blocks
// until an op is queued or the outbox is closed and empty.
type outbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	ops    []mirrorOp
	closed bool
}

func newOutbox() *outbox {
	o := &outbox{}
	o.cond = sync.NewCond(&o.mu)
	return o
}

func (o *outbox) push(op mirrorOp) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.ops = append(o.ops, op)
	o.cond.Signal()
}

// close stops intake. Ops already queued are still handed out by next.
func (o *outbox) close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	o.cond.Broadcast()
}

func (o *outbox) next() (mirrorOp, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for len(o.ops) == 0 && !o.closed {
		o.cond.Wait()
	}
	if len(o.ops) == 0 {
		return mirrorOp{}, false
	}
	op := o.ops[0]
	o.ops[0] = mirrorOp{}
	o.ops = o.ops[1:]
	return op, true
}
