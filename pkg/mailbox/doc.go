// Package mailbox implements the file-system fallback transport.
//
// Producers that cannot reach the socket drop JSON request files into a
// shared directory; the host consumes them from its own tick, executes the
// matching command and deletes the file. Deletion is the only
// acknowledgement, so a crash between execution and deletion replays the
// request on the next start.
//
// Two layouts are supported. The legacy layout is a single fixed file that
// every producer overwrites: at most one request is pending and an
// unconsumed request is lost when a newer one arrives. The directory layout
// gives every request its own uniquely named file.
package mailbox
