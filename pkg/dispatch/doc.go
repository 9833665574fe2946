// Package dispatch serializes command execution onto the host thread.
//
// Network goroutines hand commands to a Queue together with the Replier that
// should receive the result. The host's own periodic tick calls
// Scheduler.Drain, which is the only place handlers run. Each Drain call is
// bounded by a time budget for light commands and by a count cap for heavy
// ones; anything over the limit is pushed back and runs on a later tick.
package dispatch
