package core

import "pkt.systems/rollcall/schema"

// EventSink receives session change events.
type EventSink interface {
	OnChange(event schema.ChangeEvent)
}

// FlipObserver is implemented by observers that also track toggle flips.
type FlipObserver interface {
	ObserveFlip(value bool)
}
