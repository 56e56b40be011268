package room

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"huddle/internal/domain"
	"huddle/internal/metrics"
)

// Registry hands out live rooms by ID, creating them (and their media
// routers) on first use and forgetting them once they close.
type Registry struct {
	engine  domain.MediaEngine
	log     *zap.Logger
	metrics *metrics.Metrics

	mu    sync.Mutex
	rooms map[domain.RoomID]*Room
}

// NewRegistry builds an empty registry on top of the given media engine.
func NewRegistry(engine domain.MediaEngine, log *zap.Logger, m *metrics.Metrics) *Registry {
	return &Registry{
		engine:  engine,
		log:     log,
		metrics: m,
		rooms:   make(map[domain.RoomID]*Room),
	}
}

// GetOrCreate returns the live room with the given ID, building one if none
// exists. A room found mid-shutdown is replaced with a fresh one.
func (g *Registry) GetOrCreate(id domain.RoomID) (*Room, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if r, ok := g.rooms[id]; ok && !r.Closed() {
		return r, nil
	}

	router, err := g.engine.NewRouter()
	if err != nil {
		return nil, fmt.Errorf("create router for room %s: %w", id, err)
	}
	r := newRoom(id, router, g.log, g.metrics, g.remove)
	g.rooms[id] = r
	g.metrics.RoomsActive.Inc()
	g.log.Info("room created", zap.String("room", id.String()))
	return r, nil
}

// Join attaches a peer to the named room, retrying when it races a room
// that closed between lookup and attach.
func (g *Registry) Join(id domain.RoomID, peerID domain.PeerID, buffer int) (*Room, *Attachment, error) {
	for {
		r, err := g.GetOrCreate(id)
		if err != nil {
			return nil, nil, err
		}
		a, err := r.Attach(peerID, buffer)
		if errors.Is(err, ErrClosed) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		return r, a, nil
	}
}

// Rooms returns a snapshot of live rooms.
func (g *Registry) Rooms() []*Room {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Room, 0, len(g.rooms))
	for _, r := range g.rooms {
		out = append(out, r)
	}
	return out
}

// CloseAll shuts every room down. Used at server shutdown.
func (g *Registry) CloseAll() {
	for _, r := range g.Rooms() {
		r.Close()
	}
}

// remove forgets a closed room. Identity is compared so a replacement room
// under the same ID is not evicted by its predecessor's close.
func (g *Registry) remove(r *Room) {
	g.mu.Lock()
	if cur, ok := g.rooms[r.ID()]; ok && cur == r {
		delete(g.rooms, r.ID())
		g.metrics.RoomsActive.Dec()
	}
	g.mu.Unlock()
}
