// Package media implements the domain media interfaces on pion/webrtc.
//
// The server terminates WebRTC on both sides of every forwarded track: each
// session publishes into a receive transport and subscribes through a send
// transport, and producers fan RTP out to the consumers attached to them.
// Consumers start paused; resuming a video consumer asks the publisher for
// a keyframe so the new viewer starts rendering quickly.
package media
