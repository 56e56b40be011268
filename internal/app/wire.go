package app

import (
	"go.uber.org/zap"

	"huddle/internal/config"
	"huddle/internal/media"
	"huddle/internal/metrics"
	"huddle/internal/room"
	"huddle/internal/server"
)

// Wire bundles the constructed dependency graph.
type Wire struct {
	Log     *zap.Logger
	Metrics *metrics.Metrics
	Engine  *media.Engine
	Rooms   *room.Registry
	Server  *server.Server
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg config.Config, log *zap.Logger) (*Wire, error) {
	m := metrics.New()

	engine, err := media.NewEngine(media.Options{
		ListenIP:    cfg.RTC.ListenIP,
		AnnouncedIP: cfg.RTC.AnnouncedIP,
		PortMin:     cfg.RTC.PortMin,
		PortMax:     cfg.RTC.PortMax,
		PLIInterval: cfg.RTC.PLIInterval,
	}, log)
	if err != nil {
		return nil, err
	}

	rooms := room.NewRegistry(engine, log, m)

	srv := server.New(server.Options{
		Addr:        cfg.ListenAddr,
		DefaultRoom: cfg.DefaultRoom,
		EventBuffer: cfg.EventBuffer,
	}, rooms, log, m)

	return &Wire{
		Log:     log,
		Metrics: m,
		Engine:  engine,
		Rooms:   rooms,
		Server:  srv,
	}, nil
}
