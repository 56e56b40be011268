package room_test

import (
	"errors"
	"sync/atomic"
	"testing"

	"go.uber.org/goleak"

	"huddle/internal/domain"
	"huddle/internal/logging"
	"huddle/internal/metrics"
	"huddle/internal/room"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeEngine struct {
	routers atomic.Int32
	fail    bool
}

func (e *fakeEngine) NewRouter() (domain.Router, error) {
	if e.fail {
		return nil, errors.New("no media")
	}
	e.routers.Add(1)
	return &fakeRouter{}, nil
}

func (e *fakeEngine) Capabilities() []domain.CodecCapability { return nil }

type fakeRouter struct {
	closed atomic.Bool
}

func (r *fakeRouter) Capabilities() []domain.CodecCapability { return nil }

func (r *fakeRouter) NewRecvTransport() (domain.RecvTransport, error) {
	return nil, errors.New("not implemented")
}

func (r *fakeRouter) NewSendTransport() (domain.SendTransport, error) {
	return nil, errors.New("not implemented")
}

func (r *fakeRouter) Close() error {
	r.closed.Store(true)
	return nil
}

type fakeProducer struct {
	id     domain.ProducerID
	kind   domain.MediaKind
	closed atomic.Bool
}

func (p *fakeProducer) ID() domain.ProducerID  { return p.id }
func (p *fakeProducer) Kind() domain.MediaKind { return p.kind }
func (p *fakeProducer) Close()                 { p.closed.Store(true) }

func newRegistry(t *testing.T) *room.Registry {
	t.Helper()
	return room.NewRegistry(&fakeEngine{}, logging.MustNew(logging.LevelNone), metrics.New())
}

// drainUntil reads events until one of the wanted kind appears, failing the
// test if the channel closes first.
func drainUntil(t *testing.T, ch <-chan domain.Event, kind domain.EventKind) domain.Event {
	t.Helper()
	for ev := range ch {
		if ev.Kind == kind {
			return ev
		}
	}
	t.Fatalf("event channel closed before %s", kind)
	return domain.Event{}
}

func TestAttachSnapshotAndJoinEvent(t *testing.T) {
	reg := newRegistry(t)
	rm, alice, err := reg.Join("r", "alice", 16)
	if err != nil {
		t.Fatalf("Join alice: %v", err)
	}
	if len(alice.Peers) != 0 {
		t.Fatalf("first peer should see empty room, got %v", alice.Peers)
	}
	if alice.PeerID() != "alice" {
		t.Fatalf("want attachment peer alice, got %q", alice.PeerID())
	}

	prod := &fakeProducer{id: "p-1", kind: domain.MediaVideo}
	if err := rm.AddProducer("alice", prod); err != nil {
		t.Fatalf("AddProducer: %v", err)
	}

	_, bob, err := reg.Join("r", "bob", 16)
	if err != nil {
		t.Fatalf("Join bob: %v", err)
	}
	if len(bob.Peers) != 1 || bob.Peers[0] != "alice" {
		t.Fatalf("want snapshot [alice], got %v", bob.Peers)
	}
	if len(bob.Producers) != 1 || bob.Producers[0].ID != "p-1" || bob.Producers[0].Peer != "alice" {
		t.Fatalf("want producer p-1 from alice in snapshot, got %v", bob.Producers)
	}
	if got := rm.Peers(); len(got) != 2 {
		t.Fatalf("want 2 peers in room, got %v", got)
	}

	// Both subscribers see bob's join, bob included.
	ev := drainUntil(t, bob.Events, domain.EventPeerJoin)
	if ev.Peer != "bob" {
		t.Fatalf("want bob's own join, got %v", ev)
	}
	if ev := drainUntil(t, alice.Events, domain.EventPeerJoin); ev.Peer != "bob" {
		t.Fatalf("alice should see bob join, got %v", ev)
	}

	bob.Leave()
	alice.Leave()
}

func TestAttachDuplicatePeer(t *testing.T) {
	reg := newRegistry(t)
	_, alice, err := reg.Join("r", "alice", 16)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if _, _, err := reg.Join("r", "alice", 16); !errors.Is(err, room.ErrPeerExists) {
		t.Fatalf("want ErrPeerExists, got %v", err)
	}
	alice.Leave()
}

func TestProducerLifecycle(t *testing.T) {
	reg := newRegistry(t)
	rm, alice, err := reg.Join("r", "alice", 16)
	if err != nil {
		t.Fatalf("Join alice: %v", err)
	}
	_, bob, err := reg.Join("r", "bob", 16)
	if err != nil {
		t.Fatalf("Join bob: %v", err)
	}

	prod := &fakeProducer{id: "p-1", kind: domain.MediaAudio}
	if err := rm.AddProducer("alice", prod); err != nil {
		t.Fatalf("AddProducer: %v", err)
	}
	ev := drainUntil(t, bob.Events, domain.EventProducerAdd)
	if ev.Peer != "alice" || ev.Producer != "p-1" || ev.Media != domain.MediaAudio {
		t.Fatalf("unexpected producerAdd %v", ev)
	}

	got, owner, ok := rm.Producer("p-1")
	if !ok || got != prod || owner != "alice" {
		t.Fatalf("Producer lookup failed: %v %v %v", got, owner, ok)
	}

	rm.RemoveProducer("alice", "p-1")
	ev = drainUntil(t, bob.Events, domain.EventProducerRemove)
	if ev.Producer != "p-1" {
		t.Fatalf("unexpected producerRemove %v", ev)
	}
	if !prod.closed.Load() {
		t.Fatal("removed producer not closed")
	}
	if _, _, ok := rm.Producer("p-1"); ok {
		t.Fatal("removed producer still resolvable")
	}

	// Unknown IDs are ignored.
	rm.RemoveProducer("alice", "nope")

	if err := rm.AddProducer("carol", &fakeProducer{id: "p-2"}); !errors.Is(err, room.ErrNoSuchPeer) {
		t.Fatalf("want ErrNoSuchPeer, got %v", err)
	}

	bob.Leave()
	alice.Leave()
}

func TestLeaveAnnouncesProducersAndClosesLastOut(t *testing.T) {
	reg := newRegistry(t)
	rm, alice, err := reg.Join("r", "alice", 16)
	if err != nil {
		t.Fatalf("Join alice: %v", err)
	}
	_, bob, err := reg.Join("r", "bob", 16)
	if err != nil {
		t.Fatalf("Join bob: %v", err)
	}

	prod := &fakeProducer{id: "p-1", kind: domain.MediaVideo}
	if err := rm.AddProducer("alice", prod); err != nil {
		t.Fatalf("AddProducer: %v", err)
	}

	alice.Leave()
	if !prod.closed.Load() {
		t.Fatal("leaving peer's producer not closed")
	}
	ev := drainUntil(t, bob.Events, domain.EventProducerRemove)
	if ev.Producer != "p-1" {
		t.Fatalf("unexpected producerRemove %v", ev)
	}
	if ev := drainUntil(t, bob.Events, domain.EventPeerLeave); ev.Peer != "alice" {
		t.Fatalf("want alice leave, got %v", ev)
	}
	if rm.Closed() {
		t.Fatal("room closed with bob still in it")
	}

	bob.Leave()
	if !rm.Closed() {
		t.Fatal("last peer out should close the room")
	}
	// bob's channel is closed, no more events.
	if _, ok := <-bob.Events; ok {
		t.Fatal("event channel still open after leave")
	}
	if len(reg.Rooms()) != 0 {
		t.Fatal("closed room still registered")
	}
}

func TestEchoAndPresence(t *testing.T) {
	reg := newRegistry(t)
	rm, alice, err := reg.Join("r", "alice", 16)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}

	rm.Echo("alice", "hello room")
	ev := drainUntil(t, alice.Events, domain.EventEcho)
	if ev.Peer != "alice" || ev.Text != "hello room" {
		t.Fatalf("unexpected echo %v", ev)
	}

	rm.Notify("alice", domain.PresencePlaying)
	ev = drainUntil(t, alice.Events, domain.EventPresence)
	if ev.Presence != domain.PresencePlaying {
		t.Fatalf("unexpected presence %v", ev)
	}

	alice.Leave()
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	reg := newRegistry(t)
	rm, alice, err := reg.Join("r", "alice", 1)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}

	// Buffer of one already holds alice's own join; both echoes drop.
	rm.Echo("alice", "one")
	rm.Echo("alice", "two")

	if ev := <-alice.Events; ev.Kind != domain.EventPeerJoin {
		t.Fatalf("want buffered join, got %v", ev)
	}
	select {
	case ev := <-alice.Events:
		t.Fatalf("want empty queue after drops, got %v", ev)
	default:
	}

	alice.Leave()
}

func TestLeaveTwiceIsNoOp(t *testing.T) {
	reg := newRegistry(t)
	_, alice, err := reg.Join("r", "alice", 16)
	if err != nil {
		t.Fatalf("Join alice: %v", err)
	}
	_, bob, err := reg.Join("r", "bob", 16)
	if err != nil {
		t.Fatalf("Join bob: %v", err)
	}

	alice.Leave()
	alice.Leave()

	if ev := drainUntil(t, bob.Events, domain.EventPeerLeave); ev.Peer != "alice" {
		t.Fatalf("want alice leave, got %v", ev)
	}
	// The second Leave must not announce a second departure.
	select {
	case ev := <-bob.Events:
		t.Fatalf("want no further events, got %v", ev)
	default:
	}

	bob.Leave()
}

// TestJoinRetriesWhenRoomClosesAfterLookup covers the gap between resolving
// a room and attaching to it: a handle obtained before the last peer left
// refuses the attach, while Join lands the peer in a fresh room.
func TestJoinRetriesWhenRoomClosesAfterLookup(t *testing.T) {
	reg := newRegistry(t)
	r1, alice, err := reg.Join("r", "alice", 16)
	if err != nil {
		t.Fatalf("Join alice: %v", err)
	}

	stale, err := reg.GetOrCreate("r")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if stale != r1 {
		t.Fatal("lookup should return the live room")
	}

	alice.Leave()
	if _, err := stale.Attach("bob", 16); !errors.Is(err, room.ErrClosed) {
		t.Fatalf("want ErrClosed from the stale handle, got %v", err)
	}

	r2, bob, err := reg.Join("r", "bob", 16)
	if err != nil {
		t.Fatalf("Join bob: %v", err)
	}
	if r2 == r1 {
		t.Fatal("want a fresh room, got the closed one")
	}
	bob.Leave()
}

func TestRegistryRecreatesClosedRoom(t *testing.T) {
	reg := newRegistry(t)
	r1, alice, err := reg.Join("r", "alice", 16)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	alice.Leave()
	if !r1.Closed() {
		t.Fatal("room should close when emptied")
	}

	r2, bob, err := reg.Join("r", "bob", 16)
	if err != nil {
		t.Fatalf("Join after close: %v", err)
	}
	if r2 == r1 {
		t.Fatal("want a fresh room after close, got the old one")
	}
	if r2.Closed() {
		t.Fatal("fresh room already closed")
	}
	bob.Leave()
}

func TestRegistryCloseAll(t *testing.T) {
	reg := newRegistry(t)
	rm, alice, err := reg.Join("r", "alice", 16)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}

	reg.CloseAll()
	if !rm.Closed() {
		t.Fatal("CloseAll left room open")
	}
	if _, ok := <-alice.Events; ok {
		t.Fatal("event channel still open after CloseAll")
	}
	if len(reg.Rooms()) != 0 {
		t.Fatal("rooms still registered after CloseAll")
	}

	// Leaving after the room closed is a no-op.
	alice.Leave()

	if _, _, err := reg.Join("r", "carol", 16); err != nil {
		t.Fatalf("Join after CloseAll: %v", err)
	}
	reg.CloseAll()
}

func TestRegistryRouterFailure(t *testing.T) {
	reg := room.NewRegistry(&fakeEngine{fail: true}, logging.MustNew(logging.LevelNone), metrics.New())
	if _, err := reg.GetOrCreate("r"); err == nil {
		t.Fatal("want error when router creation fails")
	}
}
