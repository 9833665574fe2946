// Package scene is the reference host: an in-memory set of armatures with
// posable bones, a selection, an interaction mode, keyframed actions and
// loaded action data blocks.
//
// A Scene is not safe for concurrent use. It belongs to the host tick
// goroutine and must only be touched by handlers invoked by the scheduler or
// by the mailbox poll.
package scene
