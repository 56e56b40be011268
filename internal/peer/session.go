package peer

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"huddle/internal/domain"
	"huddle/internal/metrics"
	"huddle/internal/room"
	"huddle/internal/signal"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
)

// Options carries session dependencies.
type Options struct {
	Log     *zap.Logger
	Metrics *metrics.Metrics
	// EventBuffer is the room event queue length for this session.
	EventBuffer int
	// OnClose, when set, runs once at the end of session teardown.
	OnClose func(*Session)
}

// Session is one participant's signaling connection.
type Session struct {
	id   domain.PeerID
	room *room.Room
	att  *room.Attachment
	conn *websocket.Conn
	recv domain.RecvTransport
	send domain.SendTransport

	log     *zap.Logger
	metrics *metrics.Metrics
	onClose func(*Session)

	out       chan []byte
	done      chan struct{}
	closeOnce sync.Once

	mu        sync.Mutex
	caps      []string // client receive capabilities, set by init
	consumers map[domain.ConsumerID]domain.Consumer
}

// New attaches a peer to the named room and starts the session. The attach
// goes through the registry so a join racing a room's last-out close lands
// in a fresh room instead of failing. The first frame on the socket is the
// init message, followed by a replay of current peers and producers, then
// live events.
func New(conn *websocket.Conn, rooms *room.Registry, roomID domain.RoomID, peerID domain.PeerID, opts Options) (*Session, error) {
	rm, att, err := rooms.Join(roomID, peerID, opts.EventBuffer)
	if err != nil {
		return nil, err
	}

	recv, err := rm.Router().NewRecvTransport()
	if err != nil {
		att.Leave()
		return nil, fmt.Errorf("create recv transport: %w", err)
	}
	send, err := rm.Router().NewSendTransport()
	if err != nil {
		recv.Close()
		att.Leave()
		return nil, fmt.Errorf("create send transport: %w", err)
	}

	s := &Session{
		id:        peerID,
		room:      rm,
		att:       att,
		conn:      conn,
		recv:      recv,
		send:      send,
		log:       opts.Log.With(zap.String("room", rm.ID().String()), zap.String("peer", peerID.String())),
		metrics:   opts.Metrics,
		onClose:   opts.OnClose,
		out:       make(chan []byte, 256),
		done:      make(chan struct{}),
		consumers: make(map[domain.ConsumerID]domain.Consumer),
	}

	// Callbacks must be live before the first client frame can start
	// negotiation.
	recv.OnProducer(s.handleProducer)
	recv.OnCandidate(func(c string) {
		s.push(signal.ServerCandidate, signal.Candidate{Target: signal.TargetProducer, Candidate: c})
	})
	send.OnCandidate(func(c string) {
		s.push(signal.ServerCandidate, signal.Candidate{Target: signal.TargetConsumer, Candidate: c})
	})

	s.push(signal.ServerInitAction, signal.ServerInit{
		RoomID:                rm.ID().String(),
		PeerID:                peerID.String(),
		RouterRTPCapabilities: rm.Router().Capabilities(),
	})
	// Replay the room as it stood at attach time.
	for _, p := range att.Peers {
		s.push(signal.ServerNotification, signal.Notification{Kind: string(domain.EventPeerJoin), PeerID: p.String()})
	}
	for _, info := range att.Producers {
		s.push(signal.ServerProducerAdd, signal.ProducerAnnouncement{
			PeerID:     info.Peer.String(),
			ProducerID: info.ID.String(),
			Kind:       string(info.Kind),
		})
	}

	go s.writePump()
	go s.readPump()
	go s.eventLoop()

	s.log.Info("session started")
	return s, nil
}

// ID returns the session's peer ID.
func (s *Session) ID() domain.PeerID { return s.id }

// Close tears the session down: leave the room, close transports and
// consumers, drop the socket. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)

		s.att.Leave()
		if err := s.recv.Close(); err != nil {
			s.log.Debug("recv transport close", zap.Error(err))
		}
		if err := s.send.Close(); err != nil {
			s.log.Debug("send transport close", zap.Error(err))
		}

		s.mu.Lock()
		consumers := s.consumers
		s.consumers = make(map[domain.ConsumerID]domain.Consumer)
		s.mu.Unlock()
		for _, c := range consumers {
			c.Close()
			s.metrics.ConsumersActive.Dec()
		}

		s.log.Info("session closed")
		if s.onClose != nil {
			s.onClose(s)
		}
	})
}

// push queues one outbound frame. A full queue means the client stopped
// reading; the session is closed rather than blocking media callbacks.
func (s *Session) push(action signal.ServerAction, payload any) {
	data, err := signal.MarshalServer(action, payload)
	if err != nil {
		s.log.Error("encode outbound frame", zap.Error(err))
		return
	}
	select {
	case s.out <- data:
		s.metrics.MessagesOut.WithLabelValues(string(action)).Inc()
	case <-s.done:
	default:
		s.log.Warn("outbound queue full, closing session")
		go s.Close()
	}
}

func (s *Session) pushError(reason string) {
	s.push(signal.ServerError, signal.ErrorInfo{Reason: reason})
}

// fail reports a fatal session error and closes.
func (s *Session) fail(op string, err error) {
	s.log.Error(op, zap.Error(err))
	s.pushError(op + " failed")
	go s.Close()
}

func (s *Session) readPump() {
	defer s.Close()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Info("connection closed", zap.Error(err))
			}
			return
		}
		if mt != websocket.TextMessage {
			s.log.Warn("unexpected binary message", zap.Int("bytes", len(data)))
			continue
		}
		env, err := signal.ParseClient(data)
		if err != nil {
			s.log.Warn("unparseable client frame", zap.Error(err), zap.ByteString("frame", data))
			continue
		}
		s.metrics.MessagesIn.WithLabelValues(string(env.Action)).Inc()
		s.handle(env)
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case data := <-s.out:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-s.done:
			// Flush whatever is queued, then say goodbye.
			for {
				select {
				case data := <-s.out:
					_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
						return
					}
				default:
					_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
					_ = s.conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// eventLoop mirrors room events onto the socket, suppressing the session's
// own echoes the way every handler in the room does for its originator.
func (s *Session) eventLoop() {
	for ev := range s.att.Events {
		if ev.Peer == s.id {
			continue
		}
		switch ev.Kind {
		case domain.EventPeerJoin:
			s.push(signal.ServerNotification, signal.Notification{Kind: string(domain.EventPeerJoin), PeerID: ev.Peer.String()})
		case domain.EventPeerLeave:
			s.push(signal.ServerNotification, signal.Notification{Kind: string(domain.EventPeerLeave), PeerID: ev.Peer.String()})
		case domain.EventProducerAdd:
			s.push(signal.ServerProducerAdd, signal.ProducerAnnouncement{
				PeerID:     ev.Peer.String(),
				ProducerID: ev.Producer.String(),
				Kind:       string(ev.Media),
			})
		case domain.EventProducerRemove:
			s.push(signal.ServerProducerRemove, signal.ProducerAnnouncement{
				PeerID:     ev.Peer.String(),
				ProducerID: ev.Producer.String(),
			})
		case domain.EventEcho:
			s.push(signal.ServerEcho, signal.Echo{PeerID: ev.Peer.String(), Text: ev.Text})
		case domain.EventPresence:
			s.push(signal.ServerNotification, signal.Notification{Kind: string(ev.Presence), PeerID: ev.Peer.String()})
		}
	}
	// Room gone or we left: either way the session is over.
	s.Close()
}

func (s *Session) handle(env signal.ClientEnvelope) {
	switch env.Action {
	case signal.ClientInitAction:
		var p signal.ClientInit
		if err := env.Decode(&p); err != nil {
			s.log.Warn("bad init", zap.Error(err))
			return
		}
		s.mu.Lock()
		s.caps = p.RTPCapabilities
		s.mu.Unlock()

	case signal.ClientConnectProducerTransport:
		var p signal.SessionDescription
		if err := env.Decode(&p); err != nil {
			s.log.Warn("bad offer", zap.Error(err))
			return
		}
		answer, err := s.recv.Connect(p.SDP)
		if err != nil {
			s.fail("connect producer transport", err)
			return
		}
		s.push(signal.ServerConnectedProducerTransport, signal.SessionDescription{SDP: answer})

	case signal.ClientProduce:
		var p signal.Produce
		if err := env.Decode(&p); err != nil {
			s.log.Warn("bad produce", zap.Error(err))
			return
		}
		kind, err := domain.ParseMediaKind(p.Kind)
		if err != nil {
			s.pushError(err.Error())
			return
		}
		// The track itself arrives on the publish leg; producerCreated
		// follows from handleProducer once it lands.
		s.log.Debug("produce declared", zap.String("kind", string(kind)))

	case signal.ClientProducerRemove:
		var p signal.ProducerRemove
		if err := env.Decode(&p); err != nil {
			s.log.Warn("bad producerRemove", zap.Error(err))
			return
		}
		s.room.RemoveProducer(s.id, domain.ProducerID(p.ProducerID))

	case signal.ClientConnectConsumerTransport:
		var p signal.SessionDescription
		if err := env.Decode(&p); err != nil {
			s.log.Warn("bad answer", zap.Error(err))
			return
		}
		if err := s.send.SetAnswer(p.SDP); err != nil {
			s.fail("connect consumer transport", err)
			return
		}
		s.push(signal.ServerConnectedConsumerTransport, nil)

	case signal.ClientConsume:
		s.handleConsume(env)

	case signal.ClientConsumerResume:
		var p signal.ConsumerResume
		if err := env.Decode(&p); err != nil {
			s.log.Warn("bad consumerResume", zap.Error(err))
			return
		}
		s.mu.Lock()
		c, ok := s.consumers[domain.ConsumerID(p.ConsumerID)]
		s.mu.Unlock()
		if !ok {
			s.log.Warn("resume for unknown consumer", zap.String("consumer", p.ConsumerID))
			return
		}
		c.Resume()

	case signal.ClientEcho:
		var p signal.Echo
		if err := env.Decode(&p); err != nil {
			s.log.Warn("bad echo", zap.Error(err))
			return
		}
		s.room.Echo(s.id, p.Text)

	case signal.ClientNotification:
		var p signal.Notification
		if err := env.Decode(&p); err != nil {
			s.log.Warn("bad notification", zap.Error(err))
			return
		}
		presence, ok := domain.ParsePresence(p.Kind)
		if !ok {
			s.pushError(fmt.Sprintf("unknown notification kind %q", p.Kind))
			return
		}
		s.room.Notify(s.id, presence)

	case signal.ClientCandidate:
		var p signal.Candidate
		if err := env.Decode(&p); err != nil {
			s.log.Warn("bad candidate", zap.Error(err))
			return
		}
		var err error
		switch p.Target {
		case signal.TargetProducer:
			err = s.recv.AddRemoteCandidate(p.Candidate)
		case signal.TargetConsumer:
			err = s.send.AddRemoteCandidate(p.Candidate)
		default:
			s.pushError(fmt.Sprintf("unknown candidate target %q", p.Target))
			return
		}
		if err != nil {
			s.log.Warn("add candidate", zap.Error(err))
		}

	default:
		s.log.Warn("unknown action", zap.String("action", string(env.Action)))
	}
}

// handleConsume forwards a producer to this peer as a new paused consumer.
func (s *Session) handleConsume(env signal.ClientEnvelope) {
	s.mu.Lock()
	initialized := s.caps != nil
	s.mu.Unlock()
	if !initialized {
		s.log.Warn("consume before init")
		s.pushError("send init with rtpCapabilities before consuming")
		return
	}

	var p signal.Consume
	if err := env.Decode(&p); err != nil {
		s.log.Warn("bad consume", zap.Error(err))
		return
	}
	prod, owner, ok := s.room.Producer(domain.ProducerID(p.ProducerID))
	if !ok {
		s.pushError(fmt.Sprintf("unknown producer %q", p.ProducerID))
		return
	}

	c, offer, err := s.send.Consume(prod)
	if err != nil {
		s.fail("consume", err)
		return
	}
	s.mu.Lock()
	s.consumers[c.ID()] = c
	s.mu.Unlock()
	s.metrics.ConsumersActive.Inc()

	s.log.Info("consumer created",
		zap.String("consumer", c.ID().String()),
		zap.String("producer", p.ProducerID),
		zap.String("owner", owner.String()),
		zap.String("kind", string(c.Kind())))
	s.push(signal.ServerConsumerCreated, signal.ConsumerCreated{
		ConsumerID: c.ID().String(),
		ProducerID: p.ProducerID,
		Kind:       string(c.Kind()),
		SDP:        offer,
	})
}

// handleProducer runs when a published track lands on the publish leg.
func (s *Session) handleProducer(p domain.Producer) {
	if err := s.room.AddProducer(s.id, p); err != nil {
		s.log.Warn("register producer", zap.Error(err))
		p.Close()
		return
	}
	s.push(signal.ServerProducerCreated, signal.ProducerCreated{
		ProducerID: p.ID().String(),
		Kind:       string(p.Kind()),
	})
}
