// Package ticks counts edge-triggered events and derives their rate over
// several time horizons.
//
// A Tracker owns one wrap-around Counter, incremented from an asynchronous
// notification context (an interrupt handler, or a goroutine reading a GPIO
// line or a socket), and two fixed-capacity circular sample buffers which are
// advanced by a cooperative polling loop:
//
//	reg := ticks.NewRegistry(2)
//	t, err := ticks.New(reg, 0, 1000)
//	// check err
//	err = t.Init()
//	// check err
//
//	// From the event source, once per pulse:
//	reg.Notify(0)
//
//	// From the polling loop, once per iteration:
//	t.Operate()
//	fmt.Println(t.Rate1Period(), t.Rate5Periods(), t.Rate25Periods())
//
// The short buffer records one sample per base period and the long buffer one
// sample per block of LongBlockPeriods base periods.  Each holds
// BufferCapacity samples, so Rate5Periods spans about five base periods and
// Rate25Periods about twenty-five.
//
// Both the counter and the millisecond clock are fixed-width and wrap around;
// every delta is computed with the corresponding wrap.Modulus.
package ticks
