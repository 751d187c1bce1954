package rollcall

import (
	"pkt.systems/rollcall/core"
	"pkt.systems/rollcall/schema"
)

type eventFanout struct {
	sinks []core.EventSink
}

func (f eventFanout) OnChange(event schema.ChangeEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnChange(event)
	}
}

// joinSinks drops nil sinks and avoids a fanout for a single sink.
func joinSinks(sinks ...core.EventSink) core.EventSink {
	out := make([]core.EventSink, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			out = append(out, sink)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	default:
		return eventFanout{sinks: out}
	}
}
