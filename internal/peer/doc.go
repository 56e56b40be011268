// Package peer runs one signaling session per WebSocket connection.
//
// A session owns the two media transports of its participant, translates
// client actions into room and transport operations, and mirrors room
// events back onto the socket. Sessions tear themselves down when the
// socket drops, the room closes, or a transport operation fails.
package peer
