package media

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"huddle/internal/domain"
)

// producer is one published track: a read loop on the remote track fanning
// RTP out to attached consumers, plus periodic keyframe requests for video.
type producer struct {
	id    domain.ProducerID
	kind  domain.MediaKind
	codec webrtc.RTPCodecCapability
	track *webrtc.TrackRemote
	pc    *webrtc.PeerConnection
	pli   time.Duration
	log   *zap.Logger

	mu      sync.RWMutex
	outputs map[domain.ConsumerID]*consumer

	done      chan struct{}
	closeOnce sync.Once
}

var _ domain.Producer = (*producer)(nil)

func newProducer(track *webrtc.TrackRemote, pc *webrtc.PeerConnection, kind domain.MediaKind, pli time.Duration, log *zap.Logger) *producer {
	id := domain.ProducerID(uuid.NewString())
	p := &producer{
		id:      id,
		kind:    kind,
		codec:   track.Codec().RTPCodecCapability,
		track:   track,
		pc:      pc,
		pli:     pli,
		log:     log.With(zap.String("producer", id.String())),
		outputs: make(map[domain.ConsumerID]*consumer),
		done:    make(chan struct{}),
	}
	go p.forward()
	if kind == domain.MediaVideo {
		go p.keyframeLoop()
	}
	return p
}

func (p *producer) ID() domain.ProducerID  { return p.id }
func (p *producer) Kind() domain.MediaKind { return p.kind }

// Close stops forwarding and releases every attached consumer. Closing a
// producer does not close the transport it arrived on.
func (p *producer) Close() {
	p.closeOnce.Do(func() {
		close(p.done)

		p.mu.Lock()
		outputs := p.outputs
		p.outputs = make(map[domain.ConsumerID]*consumer)
		p.mu.Unlock()

		for _, c := range outputs {
			c.Close()
		}
		p.log.Debug("producer closed")
	})
}

func (p *producer) attach(c *consumer) {
	p.mu.Lock()
	p.outputs[c.ID()] = c
	p.mu.Unlock()
}

func (p *producer) detach(id domain.ConsumerID) {
	p.mu.Lock()
	delete(p.outputs, id)
	p.mu.Unlock()
}

func (p *producer) forward() {
	defer p.Close()
	for {
		pkt, _, err := p.track.ReadRTP()
		if err != nil {
			return
		}
		p.mu.RLock()
		for _, c := range p.outputs {
			c.write(pkt)
		}
		p.mu.RUnlock()
	}
}

// keyframeLoop requests a keyframe periodically while anyone is watching, so
// recently resumed consumers do not wait long for a decodable frame.
func (p *producer) keyframeLoop() {
	ticker := time.NewTicker(p.pli)
	defer ticker.Stop()
	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			if p.hasActiveOutput() {
				p.requestKeyframe()
			}
		}
	}
}

func (p *producer) hasActiveOutput() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, c := range p.outputs {
		if !c.paused.Load() {
			return true
		}
	}
	return false
}

func (p *producer) requestKeyframe() {
	if p.kind != domain.MediaVideo {
		return
	}
	err := p.pc.WriteRTCP([]rtcp.Packet{
		&rtcp.PictureLossIndication{MediaSSRC: uint32(p.track.SSRC())},
	})
	if err != nil {
		p.log.Debug("PLI send", zap.Error(err))
	}
}
