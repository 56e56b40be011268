package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"huddle/internal/domain"
	"huddle/internal/metrics"
	"huddle/internal/peer"
	"huddle/internal/room"
)

const shutdownTimeout = 10 * time.Second

// Options configures the HTTP surface.
type Options struct {
	// Addr is the bind address, e.g. ":3001".
	Addr string
	// DefaultRoom is joined when a client names no room.
	DefaultRoom string
	// EventBuffer is the per-session room event queue length.
	EventBuffer int
}

// Server is the HTTP/WebSocket front of the conference service.
type Server struct {
	opts    Options
	rooms   *room.Registry
	log     *zap.Logger
	metrics *metrics.Metrics

	upgrader websocket.Upgrader
	httpSrv  *http.Server

	mu       sync.Mutex
	sessions map[*peer.Session]struct{}
}

// New builds a server around the given room registry.
func New(opts Options, rooms *room.Registry, log *zap.Logger, m *metrics.Metrics) *Server {
	s := &Server{
		opts:    opts,
		rooms:   rooms,
		log:     log,
		metrics: m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browser clients connect from arbitrary origins; access
			// control is the deployment proxy's concern.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		sessions: make(map[*peer.Session]struct{}),
	}
	s.httpSrv = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the route table. Exposed separately so tests can mount it
// on httptest servers.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/ws", s.handleWS).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully: the
// listener stops, every room closes, and every session is torn down.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("listening", zap.String("addr", s.opts.Addr))
		err := s.httpSrv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-ctx.Done()
		s.log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := s.httpSrv.Shutdown(shutdownCtx)

		// Shutdown does not cover hijacked WebSocket connections.
		s.rooms.CloseAll()
		s.mu.Lock()
		sessions := make([]*peer.Session, 0, len(s.sessions))
		for sess := range s.sessions {
			sessions = append(sessions, sess)
		}
		s.mu.Unlock()
		for _, sess := range sessions {
			sess.Close()
		}
		return err
	})

	return g.Wait()
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		http.Error(w, "user query parameter required", http.StatusBadRequest)
		return
	}
	roomName := r.URL.Query().Get("room")
	if roomName == "" {
		roomName = s.opts.DefaultRoom
	}

	rm, err := s.rooms.GetOrCreate(domain.RoomID(roomName))
	if err != nil {
		s.log.Error("get or create room", zap.String("room", roomName), zap.Error(err))
		http.Error(w, "room unavailable", http.StatusInternalServerError)
		return
	}
	if rm.HasPeer(domain.PeerID(user)) {
		http.Error(w, "user name already taken in this room", http.StatusConflict)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the response.
		s.log.Warn("websocket upgrade", zap.Error(err))
		rm.CloseIfEmpty()
		return
	}

	sess, err := peer.New(conn, s.rooms, domain.RoomID(roomName), domain.PeerID(user), peer.Options{
		Log:         s.log,
		Metrics:     s.metrics,
		EventBuffer: s.opts.EventBuffer,
		OnClose:     s.forget,
	})
	if err != nil {
		s.log.Warn("start session",
			zap.String("room", roomName),
			zap.String("user", user),
			zap.Error(err))
		code := websocket.CloseInternalServerErr
		if errors.Is(err, room.ErrPeerExists) {
			code = websocket.ClosePolicyViolation
		}
		msg := websocket.FormatCloseMessage(code, err.Error())
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		conn.Close()
		rm.CloseIfEmpty()
		return
	}

	s.mu.Lock()
	s.sessions[sess] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) forget(sess *peer.Session) {
	s.mu.Lock()
	delete(s.sessions, sess)
	s.mu.Unlock()
}
