package logger

import (
	"log/slog"
	"time"
)

// Standard field keys. Use these consistently so logs can be aggregated
// and queried by key.
const (
	// Tracing
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// Transport
	KeyTransport = "transport"  // socket or mailbox
	KeyClientID  = "client_id"  // remote host:port
	KeyAddr      = "addr"       // listen address
	KeyPort      = "port"       // bound or attempted port
	KeyAttempt   = "attempt"    // bind attempt number
	KeyActive    = "active"     // live connection count
	KeyBytes     = "bytes"      // payload size
	KeyLineBytes = "line_bytes" // size of one protocol line

	// Commands
	KeyCommandType = "command_type"
	KeyStatus      = "status"
	KeyMessage     = "message"
	KeyHeavy       = "heavy"
	KeyQueueDepth  = "queue_depth"
	KeyExecuted    = "executed"
	KeyDeferred    = "deferred"
	KeyReason      = "reason"

	// Mailbox
	KeyFile   = "file"
	KeyDir    = "dir"
	KeyLayout = "layout"
	KeyOrder  = "order"
	KeyAge    = "age"

	// Host scene
	KeyArmature = "armature"
	KeyBone     = "bone"
	KeyTarget   = "target"
	KeyFactor   = "factor"
	KeyMirror   = "mirror"
	KeyState    = "state"

	// Storage
	KeyStoreType = "store_type"
	KeyPath      = "path"
	KeyBucket    = "bucket"
	KeyKey       = "key"
	KeyID        = "id"
	KeyCount     = "count"

	// Generic
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyStack      = "stack"
)

func TraceID(id string) slog.Attr { return slog.String(KeyTraceID, id) }
func SpanID(id string) slog.Attr  { return slog.String(KeySpanID, id) }

// ClientID returns the client_id attribute
func ClientID(id string) slog.Attr { return slog.String(KeyClientID, id) }

// Port returns the port attribute
func Port(p int) slog.Attr { return slog.Int(KeyPort, p) }

func CommandType(t string) slog.Attr { return slog.String(KeyCommandType, t) }
func File(name string) slog.Attr     { return slog.String(KeyFile, name) }
func Path(p string) slog.Attr        { return slog.String(KeyPath, p) }

// DurationMs returns the duration_ms attribute
func DurationMs(ms float64) slog.Attr { return slog.Float64(KeyDurationMs, ms) }

// Since returns duration_ms measured from start.
func Since(start time.Time) slog.Attr { return DurationMs(Duration(start)) }

// Err returns the error attribute. A nil error yields an empty attr that
// handlers drop.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
