package domain

// EventKind enumerates everything a room can tell its subscribers.
type EventKind string

const (
	EventPeerJoin       EventKind = "peerJoin"
	EventPeerLeave      EventKind = "peerLeave"
	EventProducerAdd    EventKind = "producerAdd"
	EventProducerRemove EventKind = "producerRemove"
	EventEcho           EventKind = "echo"
	EventPresence       EventKind = "presence"
)

// Presence is a participant's self-reported playback state.
type Presence string

const (
	PresenceLoading Presence = "loading"
	PresencePlaying Presence = "playing"
	PresenceIdle    Presence = "idle"
)

// ParsePresence validates a wire-level presence string.
func ParsePresence(s string) (Presence, bool) {
	switch Presence(s) {
	case PresenceLoading, PresencePlaying, PresenceIdle:
		return Presence(s), true
	}
	return "", false
}

// Event is one room occurrence, fanned out to every subscribed session.
// Peer is always the originator; the remaining fields are populated per Kind.
type Event struct {
	Kind     EventKind
	Peer     PeerID
	Producer ProducerID // producerAdd, producerRemove
	Media    MediaKind  // producerAdd
	Text     string     // echo
	Presence Presence   // presence
}
