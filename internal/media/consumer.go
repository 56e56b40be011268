package media

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"huddle/internal/domain"
)

// consumer is one subscription to a producer. It drops packets until
// resumed.
type consumer struct {
	id     domain.ConsumerID
	prod   *producer
	track  *webrtc.TrackLocalStaticRTP
	sender *webrtc.RTPSender
	log    *zap.Logger

	paused    atomic.Bool
	closeOnce sync.Once
}

var _ domain.Consumer = (*consumer)(nil)

func newConsumer(prod *producer, track *webrtc.TrackLocalStaticRTP, sender *webrtc.RTPSender, log *zap.Logger) *consumer {
	id := domain.ConsumerID(uuid.NewString())
	c := &consumer{
		id:     id,
		prod:   prod,
		track:  track,
		sender: sender,
		log:    log.With(zap.String("consumer", id.String())),
	}
	c.paused.Store(true)
	return c
}

func (c *consumer) ID() domain.ConsumerID         { return c.id }
func (c *consumer) ProducerID() domain.ProducerID { return c.prod.ID() }
func (c *consumer) Kind() domain.MediaKind        { return c.prod.Kind() }

// Resume starts forwarding and asks the publisher for a keyframe so video
// becomes decodable immediately.
func (c *consumer) Resume() {
	if c.paused.CompareAndSwap(true, false) {
		c.prod.requestKeyframe()
		c.log.Debug("consumer resumed")
	}
}

// Close detaches from the producer and stops the outgoing sender.
func (c *consumer) Close() {
	c.closeOnce.Do(func() {
		c.prod.detach(c.id)
		if err := c.sender.Stop(); err != nil {
			c.log.Debug("sender stop", zap.Error(err))
		}
	})
}

// write forwards one packet; called from the producer's read loop.
func (c *consumer) write(pkt *rtp.Packet) {
	if c.paused.Load() {
		return
	}
	if err := c.track.WriteRTP(pkt); err != nil && !errors.Is(err, io.ErrClosedPipe) {
		c.log.Debug("forward RTP", zap.Error(err))
	}
}
