package ticks

// ring is a circular buffer of BufferCapacity samples.  cursor always
// addresses the most recently written slot.
type ring struct {
	slots    [BufferCapacity]Sample
	cursor   uint
	advances uint64
}

func roll(i uint, n uint) uint {
	return (i + n) % BufferCapacity
}

// fill primes every slot with s, so that differences taken before the buffer
// is warm are zero rather than undefined.
func (r *ring) fill(s Sample) {
	for index := range r.slots {
		r.slots[index] = s
	}
	r.cursor = 0
	r.advances = 0
}

// advance moves the cursor forward one slot and overwrites it with s.
func (r *ring) advance(s Sample) {
	r.cursor = roll(r.cursor, 1)
	r.slots[r.cursor] = s
	r.advances++
}

func (r *ring) newest() Sample {
	return r.slots[r.cursor]
}

// older returns the sample n advances before the newest one.  n must be less
// than BufferCapacity.
func (r *ring) older(n uint) Sample {
	return r.slots[roll(r.cursor, BufferCapacity-n)]
}

// oldest returns the oldest retained sample, which is the next to be
// overwritten.
func (r *ring) oldest() Sample {
	return r.older(BufferCapacity - 1)
}

// warm is true once every slot holds a sample captured by advance.
func (r *ring) warm() bool {
	return r.advances >= BufferCapacity
}
