// Package room tracks conference rooms: who is in them, what they publish,
// and an ordered event stream per attached session.
//
// Rooms are created on demand by the Registry and close themselves when the
// last participant leaves; the registry then forgets them, so a later join
// under the same ID builds a fresh room (and a fresh media router).
package room
