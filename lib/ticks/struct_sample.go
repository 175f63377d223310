package ticks

// Sample is a (timestamp, count) pair captured by Operate.
//
// Millis has already been reduced by the clock modulus and Count by the
// counter modulus.
type Sample struct {
	Millis uint64
	Count  uint64
}
