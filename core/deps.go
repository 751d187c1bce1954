package core

import "pkt.systems/pslog"

// RegistryDeps captures optional dependencies shared by every session.
type RegistryDeps struct {
	EventSink EventSink
	Observer  Observer
	Logger    pslog.Logger
}
