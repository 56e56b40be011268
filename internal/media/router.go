package media

import (
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"huddle/internal/domain"
)

// router is the per-room media hub: it creates the two transports of every
// peer and closes them with the room.
type router struct {
	engine *Engine
	log    *zap.Logger

	mu         sync.Mutex
	closed     bool
	transports []*transport
}

var _ domain.Router = (*router)(nil)

func (r *router) Capabilities() []domain.CodecCapability {
	return r.engine.Capabilities()
}

func (r *router) NewRecvTransport() (domain.RecvTransport, error) {
	base, err := r.newTransport()
	if err != nil {
		return nil, err
	}
	t := &recvTransport{transport: base, pli: r.engine.pli}
	base.pc.OnTrack(t.handleTrack)
	return t, nil
}

func (r *router) NewSendTransport() (domain.SendTransport, error) {
	base, err := r.newTransport()
	if err != nil {
		return nil, err
	}
	return &sendTransport{transport: base}, nil
}

func (r *router) newTransport() (*transport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, fmt.Errorf("router closed")
	}

	pc, err := r.engine.api.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}
	t := newTransport(pc, r.log)
	r.transports = append(r.transports, t)
	return t, nil
}

func (r *router) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	transports := r.transports
	r.transports = nil
	r.mu.Unlock()

	for _, t := range transports {
		if err := t.Close(); err != nil {
			r.log.Debug("transport close", zap.Error(err))
		}
	}
	return nil
}
