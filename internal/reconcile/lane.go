package reconcile

// lane orders the requests for one item. Commands run strictly in the order
// they were applied to the view, one at a time; each waits on the done
// channel of the command enqueued before it.
//
// confirmed is the last state the backend is known to hold: the value loaded
// from it, or the forward state of the last acknowledged request. When a lane
// is idle the view always equals confirmed.
type lane[S any] struct {
	confirmed S
	tail      chan struct{}
	seq       uint64
	latest    uint64
	epoch     uint64
}

// command is one optimistic update: the snapshot taken before it was
// applied, the value it applied, and its place in the lane.
type command[S any] struct {
	seq      uint64
	gen      uint64
	epoch    uint64
	snapshot S
	forward  S
	delta    int

	wait <-chan struct{}
	done chan struct{}
}

// enqueue must be called with the reconciler lock held.
func (l *lane[S]) enqueue(gen uint64, snapshot, forward S, delta int) *command[S] {
	l.seq++
	cmd := &command[S]{
		seq:      l.seq,
		gen:      gen,
		epoch:    l.epoch,
		snapshot: snapshot,
		forward:  forward,
		delta:    delta,
		wait:     l.tail,
		done:     make(chan struct{}),
	}
	l.tail = cmd.done
	l.latest = cmd.seq
	return cmd
}

// turn blocks until every earlier command on the lane has finished.
func (c *command[S]) turn() {
	if c.wait != nil {
		<-c.wait
	}
}

func (c *command[S]) finish() {
	close(c.done)
}
