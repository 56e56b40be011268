package media

import (
	"fmt"
	"net"
	"time"

	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"huddle/internal/domain"
)

// Options configures the media plane. Zero values mean all interfaces,
// no NAT mapping and an ephemeral port range.
type Options struct {
	ListenIP    string
	AnnouncedIP string
	PortMin     uint16
	PortMax     uint16
	PLIInterval time.Duration
}

// Engine builds per-room routers sharing one pion API instance.
type Engine struct {
	api  *webrtc.API
	caps []domain.CodecCapability
	pli  time.Duration
	log  *zap.Logger
}

var _ domain.MediaEngine = (*Engine)(nil)

// NewEngine registers the default codecs and applies the network options.
func NewEngine(opts Options, log *zap.Logger) (*Engine, error) {
	caps := DefaultCodecs()

	me := &webrtc.MediaEngine{}
	for _, c := range caps {
		params, typ, err := toRTPCodec(c)
		if err != nil {
			return nil, err
		}
		if err := me.RegisterCodec(params, typ); err != nil {
			return nil, fmt.Errorf("register codec %s: %w", c.MimeType, err)
		}
	}

	se := webrtc.SettingEngine{}
	if opts.PortMin > 0 || opts.PortMax > 0 {
		if err := se.SetEphemeralUDPPortRange(opts.PortMin, opts.PortMax); err != nil {
			return nil, fmt.Errorf("set port range %d-%d: %w", opts.PortMin, opts.PortMax, err)
		}
	}
	if opts.AnnouncedIP != "" {
		if net.ParseIP(opts.AnnouncedIP) == nil {
			return nil, fmt.Errorf("invalid announced IP %q", opts.AnnouncedIP)
		}
		se.SetNAT1To1IPs([]string{opts.AnnouncedIP}, webrtc.ICECandidateTypeHost)
	}
	if opts.ListenIP != "" {
		listenIP := net.ParseIP(opts.ListenIP)
		if listenIP == nil {
			return nil, fmt.Errorf("invalid listen IP %q", opts.ListenIP)
		}
		se.SetIPFilter(func(ip net.IP) bool { return ip.Equal(listenIP) })
	}

	pli := opts.PLIInterval
	if pli <= 0 {
		pli = 3 * time.Second
	}

	return &Engine{
		api:  webrtc.NewAPI(webrtc.WithMediaEngine(me), webrtc.WithSettingEngine(se)),
		caps: caps,
		pli:  pli,
		log:  log,
	}, nil
}

// Capabilities lists the codecs routers negotiate.
func (e *Engine) Capabilities() []domain.CodecCapability {
	out := make([]domain.CodecCapability, len(e.caps))
	copy(out, e.caps)
	return out
}

// NewRouter allocates the media plane for one room.
func (e *Engine) NewRouter() (domain.Router, error) {
	return &router{engine: e, log: e.log}, nil
}
