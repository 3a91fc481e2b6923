package processor

// ring keeps the newest entries of the current run.
type ring struct {
	buf  []LogEntry
	next int
	full bool
}

func newRing(size int) *ring {
	return &ring{buf: make([]LogEntry, size)}
}

func (r *ring) add(e LogEntry) {
	r.buf[r.next] = e
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
}

func (r *ring) reset() {
	clear(r.buf)
	r.next = 0
	r.full = false
}

// snapshot returns the entries newest first.
func (r *ring) snapshot() []LogEntry {
	n := r.next
	if r.full {
		n = len(r.buf)
	}
	out := make([]LogEntry, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, r.buf[(r.next-i+len(r.buf))%len(r.buf)])
	}
	return out
}
