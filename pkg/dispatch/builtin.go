package dispatch

import "github.com/marmos91/animbridge/pkg/protocol"

// isBuiltin reports whether typ is answered by the scheduler itself.
func isBuiltin(typ string) bool {
	return typ == protocol.TypePing || typ == protocol.TypeGetStatus
}

// Builtins lists the command types answered without a registered handler.
func Builtins() []HandlerInfo {
	return []HandlerInfo{
		{Type: protocol.TypeGetStatus, Description: "host status snapshot"},
		{Type: protocol.TypePing, Description: "liveness check"},
	}
}
