package signal

import "huddle/internal/domain"

// TransportTarget routes candidate messages to one of the two legs.
type TransportTarget string

const (
	TargetProducer TransportTarget = "producer"
	TargetConsumer TransportTarget = "consumer"
)

// ClientInit announces the codecs the client can receive. Must arrive
// before the first consume.
type ClientInit struct {
	RTPCapabilities []string `json:"rtpCapabilities"`
}

// ServerInit is the first frame of every session.
type ServerInit struct {
	RoomID                string                   `json:"roomId"`
	PeerID                string                   `json:"peerId"`
	RouterRTPCapabilities []domain.CodecCapability `json:"routerRtpCapabilities"`
}

// SessionDescription carries one SDP blob. Used for offers and answers on
// both transports: connectProducerTransport (client offer),
// connectedProducerTransport (server answer), consumerCreated (server offer,
// embedded), connectConsumerTransport (client answer).
type SessionDescription struct {
	SDP string `json:"sdp"`
}

// Produce declares that a track of the given kind is about to arrive on the
// publish leg. The matching producerCreated is sent once the track lands.
type Produce struct {
	Kind string `json:"kind"`
}

// ProducerCreated confirms a published track to its owner.
type ProducerCreated struct {
	ProducerID string `json:"producerId"`
	Kind       string `json:"kind"`
}

// ProducerRemove asks the server to stop a published track (client→server
// carries only producerId; the server fills peerId when broadcasting).
type ProducerRemove struct {
	ProducerID string `json:"producerId"`
}

// ProducerAnnouncement tells other peers about a producer appearing or
// disappearing.
type ProducerAnnouncement struct {
	PeerID     string `json:"peerId"`
	ProducerID string `json:"producerId"`
	Kind       string `json:"kind,omitempty"`
}

// Consume asks the server to forward the given producer to this peer.
type Consume struct {
	ProducerID string `json:"producerId"`
}

// ConsumerCreated describes a new (paused) consumer plus the SDP offer for
// the renegotiated subscribe leg.
type ConsumerCreated struct {
	ConsumerID string `json:"consumerId"`
	ProducerID string `json:"producerId"`
	Kind       string `json:"kind"`
	SDP        string `json:"sdp"`
}

// ConsumerResume unpauses a consumer once the client is ready to render it.
type ConsumerResume struct {
	ConsumerID string `json:"consumerId"`
}

// Echo is the room-wide text line. PeerID is set only server→client.
type Echo struct {
	PeerID string `json:"peerId,omitempty"`
	Text   string `json:"text"`
}

// Notification reports presence changes. Client→server carries only the
// kind (loading, playing, idle); server→client adds the peer and the two
// membership kinds (peerJoin, peerLeave).
type Notification struct {
	Kind   string `json:"kind"`
	PeerID string `json:"peerId,omitempty"`
}

// Candidate is one trickled ICE candidate for the targeted transport.
type Candidate struct {
	Target    TransportTarget `json:"target"`
	Candidate string          `json:"candidate"`
}

// ErrorInfo reports a fatal session error before the server closes the
// connection, or a rejected operation on an otherwise healthy session.
type ErrorInfo struct {
	Reason string `json:"reason"`
}
