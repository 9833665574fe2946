package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys attached to command spans.
const (
	AttrClientID    = "client.id"
	AttrTransport   = "transport.name" // socket, mailbox
	AttrCommandType = "command.type"
	AttrHeavy       = "command.heavy"
	AttrStatus      = "command.status"
	AttrMessage     = "command.message"
	AttrQueueWait   = "command.queue_wait_ms"

	AttrMailboxFile = "mailbox.file"
	AttrArmature    = "scene.armature"
	AttrResource    = "resource.ref"
	AttrStoreType   = "store.type"
	AttrBucket      = "storage.bucket"
	AttrKey         = "storage.key"
)

// Span names.
const (
	SpanCommand      = "command" // prefix; full name is command.<type>
	SpanDrain        = "scheduler.drain"
	SpanMailboxPoll  = "mailbox.poll"
	SpanResourceLoad = "resource.load"
	SpanCatalogGet   = "catalog.get"
)

// ClientID returns an attribute for the client identifier
func ClientID(id string) attribute.KeyValue {
	return attribute.String(AttrClientID, id)
}

// CommandType returns an attribute for the command type
func CommandType(t string) attribute.KeyValue {
	return attribute.String(AttrCommandType, t)
}

// Heavy returns an attribute marking heavy commands
func Heavy(heavy bool) attribute.KeyValue {
	return attribute.Bool(AttrHeavy, heavy)
}

func Status(status string) attribute.KeyValue {
	return attribute.String(AttrStatus, status)
}

func Transport(name string) attribute.KeyValue {
	return attribute.String(AttrTransport, name)
}

// Resource returns an attribute for a clip reference (path or s3 URL)
func Resource(ref string) attribute.KeyValue {
	return attribute.String(AttrResource, ref)
}

func Bucket(name string) attribute.KeyValue {
	return attribute.String(AttrBucket, name)
}

func StorageKey(key string) attribute.KeyValue {
	return attribute.String(AttrKey, key)
}

// StartCommandSpan starts a span named command.<type> for one command
// execution on the host thread.
func StartCommandSpan(ctx context.Context, commandType, clientID string, heavy bool, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := []attribute.KeyValue{
		CommandType(commandType),
		Heavy(heavy),
	}
	if clientID != "" {
		all = append(all, ClientID(clientID))
	}
	all = append(all, attrs...)

	return StartSpan(ctx, SpanCommand+"."+commandType, trace.WithAttributes(all...))
}
