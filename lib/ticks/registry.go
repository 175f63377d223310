package ticks

import (
	"errors"
	"sync/atomic"
)

// Channel identifies one asynchronous notification line, such as an
// interrupt number or a GPIO line.
type Channel uint8

// EventHandler receives notifications routed by a Registry.  HandleEvent is
// called from the notification context and must complete in bounded time
// without blocking.
type EventHandler interface {
	HandleEvent()
}

type binding struct {
	h EventHandler
}

// Registry routes each channel's notifications to the one EventHandler bound
// to it.
//
// A process creates one Registry sized to the number of notification lines
// it has, binds each handler once (New does this for a Tracker), and calls
// Close at teardown.  There is no way to look up the handler
// bound to a channel; the Registry only delivers notifications.
//
// Notify is lock-free and allocation-free, so it is safe to call from any
// goroutine at any time, including concurrently with Bind and Unbind.
type Registry struct {
	slots   []atomic.Pointer[binding]
	dropped []atomic.Uint64
}

// NewRegistry returns a Registry with numChannels channels, numbered from 0.
func NewRegistry(numChannels uint) *Registry {
	if numChannels == 0 {
		panic(errors.New("Registry must have at least one channel"))
	}
	if numChannels > 1<<8 {
		panic(errors.New("Registry cannot have more than 256 channels"))
	}
	return &Registry{
		slots:   make([]atomic.Pointer[binding], numChannels),
		dropped: make([]atomic.Uint64, numChannels),
	}
}

// Len returns the number of channels.
func (r *Registry) Len() uint {
	return uint(len(r.slots))
}

// Bind attaches h to ch.  It fails if ch is out of range or already bound.
func (r *Registry) Bind(ch Channel, h EventHandler) error {
	if h == nil {
		panic(errors.New("EventHandler is nil"))
	}
	if uint(ch) >= r.Len() {
		return ChannelRangeError{Channel: ch, NumChannels: r.Len()}
	}
	if !r.slots[ch].CompareAndSwap(nil, &binding{h: h}) {
		return ChannelInUseError{Channel: ch}
	}
	Logger().Debug().
		Uint8("channel", uint8(ch)).
		Msg("bound")
	return nil
}

// Unbind detaches h from ch.  It returns false if h was not bound to ch.
func (r *Registry) Unbind(ch Channel, h EventHandler) bool {
	if uint(ch) >= r.Len() {
		return false
	}
	slot := &r.slots[ch]
	for {
		b := slot.Load()
		if b == nil || b.h != h {
			return false
		}
		if slot.CompareAndSwap(b, nil) {
			Logger().Debug().
				Uint8("channel", uint8(ch)).
				Msg("unbound")
			return true
		}
	}
}

// Notify delivers one notification on ch.  It returns false, and counts the
// notification as dropped, if no handler is bound to ch.
func (r *Registry) Notify(ch Channel) bool {
	if uint(ch) >= r.Len() {
		return false
	}
	b := r.slots[ch].Load()
	if b == nil {
		r.dropped[ch].Add(1)
		return false
	}
	b.h.HandleEvent()
	return true
}

// Notifier returns a function that calls Notify(ch), suitable for handing to
// an event source.
func (r *Registry) Notifier(ch Channel) func() {
	return func() {
		r.Notify(ch)
	}
}

// Dropped returns the number of notifications on ch that arrived while
// nothing was bound to it.
func (r *Registry) Dropped(ch Channel) uint64 {
	if uint(ch) >= r.Len() {
		return 0
	}
	return r.dropped[ch].Load()
}

// Close unbinds every channel.
func (r *Registry) Close() {
	for index := range r.slots {
		r.slots[index].Store(nil)
	}
}
