// Package protocol defines the wire format shared by the socket transport,
// the mailbox fallback and the command handlers.
//
// Messages are UTF-8 JSON objects, one per line. A request carries at least a
// "type" field; every other field is the command payload:
//
//	{"type":"blend_pose","blend_factor":0.5,"mirror":true}
//
// A response always carries "status" and optionally "message" and "data":
//
//	{"status":"success","message":"pong"}
package protocol
