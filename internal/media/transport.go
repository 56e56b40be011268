package media

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"huddle/internal/domain"
)

// transport is the shared surface of both WebRTC legs.
type transport struct {
	id  domain.TransportID
	pc  *webrtc.PeerConnection
	log *zap.Logger
}

func newTransport(pc *webrtc.PeerConnection, log *zap.Logger) *transport {
	id := domain.TransportID(uuid.NewString())
	return &transport{
		id:  id,
		pc:  pc,
		log: log.With(zap.String("transport", id.String())),
	}
}

func (t *transport) ID() domain.TransportID { return t.id }

func (t *transport) AddRemoteCandidate(candidate string) error {
	if err := t.pc.AddICECandidate(webrtc.ICECandidateInit{Candidate: candidate}); err != nil {
		return fmt.Errorf("add ICE candidate: %w", err)
	}
	return nil
}

func (t *transport) OnCandidate(fn func(candidate string)) {
	t.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return // end of gathering
		}
		fn(c.ToJSON().Candidate)
	})
}

func (t *transport) Close() error {
	return t.pc.Close()
}

// recvTransport terminates a client's publish leg; remote tracks surface as
// producers.
type recvTransport struct {
	*transport
	pli time.Duration

	mu         sync.Mutex
	onProducer func(domain.Producer)
	producers  []*producer
}

var _ domain.RecvTransport = (*recvTransport)(nil)

func (t *recvTransport) OnProducer(fn func(domain.Producer)) {
	t.mu.Lock()
	t.onProducer = fn
	t.mu.Unlock()
}

// Connect applies a remote offer and answers it. The same path serves the
// initial negotiation and every renegotiation when tracks change.
func (t *recvTransport) Connect(offerSDP string) (string, error) {
	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: offerSDP}
	if err := t.pc.SetRemoteDescription(offer); err != nil {
		return "", fmt.Errorf("set remote offer: %w", err)
	}
	answer, err := t.pc.CreateAnswer(nil)
	if err != nil {
		return "", fmt.Errorf("create answer: %w", err)
	}
	if err := t.pc.SetLocalDescription(answer); err != nil {
		return "", fmt.Errorf("set local answer: %w", err)
	}
	return answer.SDP, nil
}

func (t *recvTransport) handleTrack(remote *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
	kind := domain.MediaAudio
	if remote.Kind() == webrtc.RTPCodecTypeVideo {
		kind = domain.MediaVideo
	}
	p := newProducer(remote, t.pc, kind, t.pli, t.log)

	t.mu.Lock()
	t.producers = append(t.producers, p)
	fn := t.onProducer
	t.mu.Unlock()

	t.log.Info("track received",
		zap.String("producer", p.ID().String()),
		zap.String("kind", string(kind)),
		zap.String("codec", remote.Codec().MimeType))

	if fn != nil {
		fn(p)
	}
}

// sendTransport carries forwarded tracks to the client. Negotiations are
// serialized so concurrent consumes do not interleave offers.
type sendTransport struct {
	*transport
	mu sync.Mutex
}

var _ domain.SendTransport = (*sendTransport)(nil)

func (t *sendTransport) Consume(p domain.Producer) (domain.Consumer, string, error) {
	prod, ok := p.(*producer)
	if !ok {
		return nil, "", fmt.Errorf("producer %s is not from this media engine", p.ID())
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	track, err := webrtc.NewTrackLocalStaticRTP(prod.codec, prod.id.String(), "huddle")
	if err != nil {
		return nil, "", fmt.Errorf("create local track: %w", err)
	}
	sender, err := t.pc.AddTrack(track)
	if err != nil {
		return nil, "", fmt.Errorf("add track: %w", err)
	}
	go drainRTCP(sender)

	c := newConsumer(prod, track, sender, t.log)
	prod.attach(c)

	offer, err := t.pc.CreateOffer(nil)
	if err != nil {
		c.Close()
		return nil, "", fmt.Errorf("create offer: %w", err)
	}
	if err := t.pc.SetLocalDescription(offer); err != nil {
		c.Close()
		return nil, "", fmt.Errorf("set local offer: %w", err)
	}
	return c, offer.SDP, nil
}

func (t *sendTransport) SetAnswer(answerSDP string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	answer := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: answerSDP}
	if err := t.pc.SetRemoteDescription(answer); err != nil {
		return fmt.Errorf("set remote answer: %w", err)
	}
	return nil
}

// drainRTCP keeps the sender's RTCP read loop moving so interceptors run.
func drainRTCP(sender *webrtc.RTPSender) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}
