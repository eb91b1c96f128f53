// Package mcserver is the minimal world-server counterparty to the
// proxy's supervisor: it accepts the proxy's yamux session, and
// for each multiplexed stream (one per online player), sends the
// handful of Play packets a freshly joined player needs and keeps world
// time moving. It exists to exercise the
// internal transfer protocol end to end; a real deployment would be an
// actual game server speaking this same link.
package mcserver

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"time"

	"github.com/hashicorp/yamux"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bamboo-mc/bamboo/internal/bbconfig"
	"github.com/bamboo-mc/bamboo/internal/canonical"
	"github.com/bamboo-mc/bamboo/internal/transfer"
)

// Server accepts proxy links and serves each connected player a static
// world: a single join packet, a spawn position, and a ticking clock.
type Server struct {
	cfg *bbconfig.ServerConfig
	log *zap.Logger

	players atomic.Int32
}

func New(cfg *bbconfig.ServerConfig, log *zap.Logger) *Server {
	return &Server{cfg: cfg, log: log}
}

// Run accepts proxy connections until ctx is cancelled. Each accepted
// TCP connection becomes one yamux.Server session; the supervisor only
// ever opens one such connection (reconnecting on drop), but Run
// tolerates more for tests and for a supervisor restart racing a still-
// open prior session.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("mcserver: listen: %w", err)
	}
	s.log.Info("listening for proxy links", zap.String("address", s.cfg.ListenAddress))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return ln.Close()
	})
	g.Go(func() error { return s.acceptLoop(ctx, ln) })
	return g.Wait()
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		netConn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("mcserver: accept: %w", err)
		}
		go s.handleLink(ctx, netConn)
	}
}

func (s *Server) handleLink(ctx context.Context, netConn net.Conn) {
	session, err := yamux.Server(netConn, nil)
	if err != nil {
		s.log.Warn("failed to establish yamux session with proxy", zap.Error(err))
		_ = netConn.Close()
		return
	}
	s.log.Info("proxy link established", zap.String("remoteAddr", netConn.RemoteAddr().String()))

	for {
		stream, err := session.AcceptStream()
		if err != nil {
			return
		}
		go s.handleStream(ctx, stream)
	}
}

func (s *Server) handleStream(ctx context.Context, stream net.Conn) {
	defer stream.Close()
	reader := bufio.NewReader(stream)

	rec, err := transfer.ReadRecord(reader)
	if err != nil {
		return
	}
	if rec.Kind == transfer.KindHeartbeat {
		// The proxy's control stream: nothing but heartbeats arrive here.
		s.consumeHeartbeats(reader, rec)
		return
	}
	if rec.Kind != transfer.KindNewConnection {
		s.log.Debug("expected NewConnection as first record", zap.Stringer("kind", rec.Kind))
		return
	}
	hello, err := transfer.DecodeNewConnection(rec.Payload)
	if err != nil {
		return
	}

	s.players.Add(1)
	defer s.players.Add(-1)
	log := s.log.With(zap.String("username", hello.Username), zap.Stringer("uuid", hello.UUID))
	log.Info("player joined")
	defer log.Info("player left")

	if err := s.sendJoinSequence(stream); err != nil {
		log.Warn("failed to send join sequence", zap.Error(err))
		return
	}

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var paused atomic.Bool
	go s.tickWorld(streamCtx, stream, &paused, log)

	for {
		rec, err := transfer.ReadRecord(reader)
		if err != nil {
			return
		}
		switch rec.Kind {
		case transfer.KindRemoveConnection:
			return
		case transfer.KindPauseConnection:
			paused.Store(true)
		case transfer.KindResumeConnection:
			paused.Store(false)
		default:
			// Every other inbound kind is serverbound Play traffic this
			// stub has no game logic for; it's logged at debug and
			// otherwise ignored, same as a real server would ignore
			// packets it hasn't implemented handling for yet.
			log.Debug("received play record", zap.Stringer("kind", rec.Kind))
		}
	}
}

// consumeHeartbeats drains the proxy's control stream, surfacing the
// proxy-reported online count in the debug log.
func (s *Server) consumeHeartbeats(reader *bufio.Reader, first transfer.Record) {
	rec := first
	for {
		if hb, err := transfer.DecodeHeartbeat(rec.Payload); err == nil {
			s.log.Debug("proxy heartbeat", zap.Int32("onlinePlayers", hb.OnlinePlayers))
		}
		var err error
		rec, err = transfer.ReadRecord(reader)
		if err != nil || rec.Kind != transfer.KindHeartbeat {
			return
		}
	}
}

// sendJoinSequence sends JoinGame, then an initial PlayerPositionLook
// to place the player in the world.
func (s *Server) sendJoinSequence(stream net.Conn) error {
	join := canonical.JoinGame{
		EntityID:         1,
		Hardcore:         false,
		Dimension:        "minecraft:overworld",
		DimensionCount:   1,
		MaxPlayers:       int32(s.cfg.MaxPlayers),
		ViewDistance:     10,
		ReducedDebugInfo: false,
		RespawnScreen:    true,
	}
	if err := writeCanonical(stream, join); err != nil {
		return err
	}

	spawn := canonical.PlayerPositionLook{
		X: 8.5, Y: 65, Z: 8.5,
		Yaw: 0, Pitch: 0,
		Flags:      0,
		TeleportID: 0,
	}
	return writeCanonical(stream, spawn)
}

// tickWorld advances world time, giving clients enough clientbound
// traffic to keep their day/night cycle simulation running. A paused
// connection still accumulates world age but receives nothing until the
// proxy resumes it.
func (s *Server) tickWorld(ctx context.Context, stream net.Conn, paused *atomic.Bool, log *zap.Logger) {
	ticker := time.NewTicker(20 * time.Second)
	defer ticker.Stop()

	var worldAge int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			worldAge += 20 * 20
			if paused.Load() {
				continue
			}
			update := canonical.TimeUpdate{WorldAge: worldAge, TimeOfDay: worldAge % 24000}
			if err := writeCanonical(stream, update); err != nil {
				log.Debug("time update write failed, stream likely closed", zap.Error(err))
				return
			}
		}
	}
}

func writeCanonical(w net.Conn, pkt canonical.Packet) error {
	kind, payload, err := transfer.EncodeCanonical(pkt)
	if err != nil {
		return err
	}
	return transfer.WriteRecord(w, kind, payload)
}
