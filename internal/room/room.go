package room

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"huddle/internal/domain"
	"huddle/internal/metrics"
)

var (
	// ErrClosed is returned when attaching to a room that has shut down.
	ErrClosed = errors.New("room closed")
	// ErrPeerExists is returned when the peer ID is already taken in the room.
	ErrPeerExists = errors.New("peer already in room")
	// ErrNoSuchPeer is returned for producer operations naming an absent peer.
	ErrNoSuchPeer = errors.New("no such peer")
)

// ProducerInfo is the replay form of a live producer.
type ProducerInfo struct {
	Peer domain.PeerID
	ID   domain.ProducerID
	Kind domain.MediaKind
}

type subscriber struct {
	peer domain.PeerID
	ch   chan domain.Event
}

// Room is one conference. All methods are safe for concurrent use.
type Room struct {
	id      domain.RoomID
	router  domain.Router
	log     *zap.Logger
	metrics *metrics.Metrics

	// onClose is invoked exactly once, outside the room lock, after the
	// room transitions to closed.
	onClose func(*Room)

	mu        sync.Mutex
	closed    bool
	peers     map[domain.PeerID][]domain.Producer
	subs      map[int]subscriber
	nextSubID int
}

func newRoom(id domain.RoomID, router domain.Router, log *zap.Logger, m *metrics.Metrics, onClose func(*Room)) *Room {
	return &Room{
		id:      id,
		router:  router,
		log:     log.With(zap.String("room", id.String())),
		metrics: m,
		onClose: onClose,
		peers:   make(map[domain.PeerID][]domain.Producer),
		subs:    make(map[int]subscriber),
	}
}

// ID returns the room name.
func (r *Room) ID() domain.RoomID { return r.id }

// Router exposes the room's media plane for transport creation.
func (r *Room) Router() domain.Router { return r.router }

// Attachment is one session's membership in a room. Peers and Producers are
// the state snapshot taken at attach time; Events delivers everything that
// happens afterwards, in emission order, with no gap and no duplicate
// relative to the snapshot. The channel is closed when the session leaves or
// the room shuts down.
type Attachment struct {
	room   *Room
	peerID domain.PeerID
	subID  int

	Peers     []domain.PeerID
	Producers []ProducerInfo
	Events    <-chan domain.Event
}

// Attach adds a peer to the room and subscribes it to room events. The
// join is announced to every subscriber, including the new one; sessions
// filter their own events.
func (r *Room) Attach(peerID domain.PeerID, buffer int) (*Attachment, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	if _, ok := r.peers[peerID]; ok {
		r.mu.Unlock()
		return nil, ErrPeerExists
	}

	peers := make([]domain.PeerID, 0, len(r.peers))
	for id := range r.peers {
		peers = append(peers, id)
	}
	producers := r.producerInfosLocked()

	ch := make(chan domain.Event, buffer)
	subID := r.nextSubID
	r.nextSubID++
	r.subs[subID] = subscriber{peer: peerID, ch: ch}
	r.peers[peerID] = nil
	r.emitLocked(domain.Event{Kind: domain.EventPeerJoin, Peer: peerID})
	r.mu.Unlock()

	r.metrics.PeersConnected.Inc()
	r.log.Info("peer joined", zap.String("peer", peerID.String()))

	return &Attachment{
		room:      r,
		peerID:    peerID,
		subID:     subID,
		Peers:     peers,
		Producers: producers,
		Events:    ch,
	}, nil
}

// Leave detaches the session: its producers are closed and announced as
// removed, the departure is broadcast, and the event channel is closed.
// Leaving again, or leaving an already closed room, is a no-op. The last
// peer out closes the room.
func (a *Attachment) Leave() {
	r := a.room

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if _, ok := r.subs[a.subID]; !ok {
		// Already left.
		r.mu.Unlock()
		return
	}
	producers := r.peers[a.peerID]
	for _, p := range producers {
		r.emitLocked(domain.Event{
			Kind:     domain.EventProducerRemove,
			Peer:     a.peerID,
			Producer: p.ID(),
		})
	}
	delete(r.peers, a.peerID)
	r.emitLocked(domain.Event{Kind: domain.EventPeerLeave, Peer: a.peerID})
	if sub, ok := r.subs[a.subID]; ok {
		delete(r.subs, a.subID)
		close(sub.ch)
	}
	shouldClose := len(r.peers) == 0
	if shouldClose {
		r.closed = true
	}
	r.mu.Unlock()

	for _, p := range producers {
		p.Close()
		r.metrics.ProducersActive.Dec()
	}
	r.metrics.PeersConnected.Dec()
	r.log.Info("peer left", zap.String("peer", a.peerID.String()))

	if shouldClose {
		r.finishClose()
	}
}

// PeerID returns the attached peer's ID.
func (a *Attachment) PeerID() domain.PeerID { return a.peerID }

// AddProducer records a published track and announces it to the room.
func (r *Room) AddProducer(peerID domain.PeerID, p domain.Producer) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	if _, ok := r.peers[peerID]; !ok {
		r.mu.Unlock()
		return ErrNoSuchPeer
	}
	r.peers[peerID] = append(r.peers[peerID], p)
	r.emitLocked(domain.Event{
		Kind:     domain.EventProducerAdd,
		Peer:     peerID,
		Producer: p.ID(),
		Media:    p.Kind(),
	})
	r.mu.Unlock()

	r.metrics.ProducersActive.Inc()
	r.log.Info("producer added",
		zap.String("peer", peerID.String()),
		zap.String("producer", p.ID().String()),
		zap.String("kind", string(p.Kind())))
	return nil
}

// RemoveProducer closes a peer's producer and announces the removal. Unknown
// producer IDs are ignored.
func (r *Room) RemoveProducer(peerID domain.PeerID, id domain.ProducerID) {
	var removed domain.Producer

	r.mu.Lock()
	producers := r.peers[peerID]
	for i, p := range producers {
		if p.ID() == id {
			removed = p
			r.peers[peerID] = append(producers[:i], producers[i+1:]...)
			break
		}
	}
	if removed != nil {
		r.emitLocked(domain.Event{
			Kind:     domain.EventProducerRemove,
			Peer:     peerID,
			Producer: id,
		})
	}
	r.mu.Unlock()

	if removed != nil {
		removed.Close()
		r.metrics.ProducersActive.Dec()
		r.log.Info("producer removed",
			zap.String("peer", peerID.String()),
			zap.String("producer", id.String()))
	}
}

// Producer looks up a live producer by ID.
func (r *Room) Producer(id domain.ProducerID) (domain.Producer, domain.PeerID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for peerID, producers := range r.peers {
		for _, p := range producers {
			if p.ID() == id {
				return p, peerID, true
			}
		}
	}
	return nil, "", false
}

// Echo broadcasts a text line from the given peer.
func (r *Room) Echo(peerID domain.PeerID, text string) {
	r.mu.Lock()
	r.emitLocked(domain.Event{Kind: domain.EventEcho, Peer: peerID, Text: text})
	r.mu.Unlock()
}

// Notify broadcasts a presence change from the given peer.
func (r *Room) Notify(peerID domain.PeerID, presence domain.Presence) {
	r.mu.Lock()
	r.emitLocked(domain.Event{Kind: domain.EventPresence, Peer: peerID, Presence: presence})
	r.mu.Unlock()
}

// HasPeer reports whether the peer ID is currently taken.
func (r *Room) HasPeer(peerID domain.PeerID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.peers[peerID]
	return ok
}

// Peers returns a snapshot of current participants.
func (r *Room) Peers() []domain.PeerID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.PeerID, 0, len(r.peers))
	for id := range r.peers {
		out = append(out, id)
	}
	return out
}

// Closed reports whether the room has shut down.
func (r *Room) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Close shuts the room down regardless of occupancy: every producer is
// closed, every event channel is closed, and the router is released.
func (r *Room) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	var producers []domain.Producer
	for _, ps := range r.peers {
		producers = append(producers, ps...)
	}
	peerCount := len(r.peers)
	r.peers = make(map[domain.PeerID][]domain.Producer)
	subs := r.subs
	r.subs = make(map[int]subscriber)
	r.mu.Unlock()

	for _, sub := range subs {
		close(sub.ch)
	}
	for _, p := range producers {
		p.Close()
		r.metrics.ProducersActive.Dec()
	}
	for i := 0; i < peerCount; i++ {
		r.metrics.PeersConnected.Dec()
	}
	r.finishClose()
}

// CloseIfEmpty closes a room that never got its first participant, e.g.
// when the joining session failed before attaching.
func (r *Room) CloseIfEmpty() {
	r.mu.Lock()
	if r.closed || len(r.peers) > 0 {
		r.mu.Unlock()
		return
	}
	r.closed = true
	subs := r.subs
	r.subs = make(map[int]subscriber)
	r.mu.Unlock()

	for _, sub := range subs {
		close(sub.ch)
	}
	r.finishClose()
}

func (r *Room) finishClose() {
	if err := r.router.Close(); err != nil {
		r.log.Warn("router close", zap.Error(err))
	}
	r.log.Info("room closed")
	if r.onClose != nil {
		r.onClose(r)
	}
}

// producerInfosLocked snapshots all live producers. Caller holds r.mu.
func (r *Room) producerInfosLocked() []ProducerInfo {
	var out []ProducerInfo
	for peerID, producers := range r.peers {
		for _, p := range producers {
			out = append(out, ProducerInfo{Peer: peerID, ID: p.ID(), Kind: p.Kind()})
		}
	}
	return out
}

// emitLocked fans an event out to every subscriber. Full queues drop the
// event for that subscriber rather than blocking the room. Caller holds r.mu.
func (r *Room) emitLocked(ev domain.Event) {
	for _, sub := range r.subs {
		select {
		case sub.ch <- ev:
		default:
			r.metrics.EventsDropped.Inc()
			r.log.Warn("event dropped, subscriber queue full",
				zap.String("subscriber", sub.peer.String()),
				zap.String("event", string(ev.Kind)))
		}
	}
}
