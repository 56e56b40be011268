package domain

// PeerID identifies a participant within a room. It is the user name the
// client arrived with; uniqueness per room is enforced at join time.
type PeerID string

// RoomID names a conference room.
type RoomID string

// ProducerID identifies a published track, server-assigned.
type ProducerID string

// ConsumerID identifies a subscription to a producer, server-assigned.
type ConsumerID string

// TransportID identifies one WebRTC leg of a session.
type TransportID string

func (p PeerID) String() string      { return string(p) }
func (r RoomID) String() string      { return string(r) }
func (p ProducerID) String() string  { return string(p) }
func (c ConsumerID) String() string  { return string(c) }
func (t TransportID) String() string { return string(t) }
