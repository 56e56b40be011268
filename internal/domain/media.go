package domain

// MediaEngine creates per-room routers. The concrete implementation lives in
// internal/media (pion/webrtc); tests substitute fakes.
type MediaEngine interface {
	// NewRouter allocates the media plane for one room.
	NewRouter() (Router, error)
	// Capabilities lists the codecs every router created by this engine
	// will negotiate.
	Capabilities() []CodecCapability
}

// Router is the per-room media hub. Every peer gets one receive transport
// (client publishes to us) and one send transport (we forward to the client).
type Router interface {
	// Capabilities lists the codecs this router negotiates.
	Capabilities() []CodecCapability
	NewRecvTransport() (RecvTransport, error)
	NewSendTransport() (SendTransport, error)
	Close() error
}

// Transport is the common surface of both WebRTC legs.
type Transport interface {
	ID() TransportID
	// AddRemoteCandidate feeds one trickled ICE candidate from the client.
	AddRemoteCandidate(candidate string) error
	// OnCandidate registers the callback invoked for each locally gathered
	// candidate. Must be set before Connect/Consume traffic starts.
	OnCandidate(fn func(candidate string))
	Close() error
}

// RecvTransport terminates the client's publish leg.
type RecvTransport interface {
	Transport
	// Connect applies a remote SDP offer and returns the local answer.
	// It is also the renegotiation path when the client adds tracks.
	Connect(offerSDP string) (answerSDP string, err error)
	// OnProducer registers the callback invoked once per remote track.
	OnProducer(fn func(Producer))
}

// SendTransport carries forwarded tracks back to the client.
type SendTransport interface {
	Transport
	// Consume adds a local track fed by p and returns the consumer along
	// with the SDP offer for the renegotiated leg. Consumers start paused.
	Consume(p Producer) (c Consumer, offerSDP string, err error)
	// SetAnswer applies the client's SDP answer to a pending offer.
	SetAnswer(answerSDP string) error
}

// Producer is one track published into a room.
type Producer interface {
	ID() ProducerID
	Kind() MediaKind
	Close()
}

// Consumer is one peer's subscription to a producer. It forwards nothing
// until Resume is called.
type Consumer interface {
	ID() ConsumerID
	ProducerID() ProducerID
	Kind() MediaKind
	Resume()
	Close()
}
