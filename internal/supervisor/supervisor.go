// Package supervisor implements the proxy process's top-level accept
// loop, one worker goroutine per client connection, and the single
// persistent yamux session carrying every connection's Play traffic to
// the world server.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/hashicorp/yamux"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bamboo-mc/bamboo/internal/bbconfig"
	"github.com/bamboo-mc/bamboo/internal/canonical"
	"github.com/bamboo-mc/bamboo/internal/mojang"
	"github.com/bamboo-mc/bamboo/internal/proxyconn"
	"github.com/bamboo-mc/bamboo/internal/registry"
	"github.com/bamboo-mc/bamboo/internal/transfer"
)

// Supervisor owns the proxy's listener, the population of live
// connections, and the reconnecting link to the world server.
type Supervisor struct {
	cfg      *bbconfig.ProxyConfig
	reg      *registry.Registry
	rsaKey   *mojang.Keypair
	verifier mojang.SessionVerifier
	log      *zap.Logger

	online atomic.Int32

	linkMu sync.Mutex
	link   *serverLink
}

// New builds a Supervisor ready for Run.
func New(cfg *bbconfig.ProxyConfig, reg *registry.Registry, rsaKey *mojang.Keypair, verifier mojang.SessionVerifier, log *zap.Logger) *Supervisor {
	return &Supervisor{
		cfg:      cfg,
		reg:      reg,
		rsaKey:   rsaKey,
		verifier: verifier,
		log:      log,
	}
}

// Run accepts client connections and maintains the server link until ctx
// is cancelled. It returns the first fatal error from either loop.
func (s *Supervisor) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("supervisor: listen: %w", err)
	}
	s.log.Info("listening for clients", zap.String("address", s.cfg.Address))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.maintainLink(ctx) })
	g.Go(func() error { return s.acceptLoop(ctx, ln) })
	g.Go(func() error {
		<-ctx.Done()
		return ln.Close()
	})
	return g.Wait()
}

func (s *Supervisor) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		netConn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("supervisor: accept: %w", err)
		}
		go s.handleConn(ctx, netConn)
	}
}

// handleConn is the single worker goroutine for one client connection,
// from accept to close. Panics are recovered inside Conn.ReadLoop itself;
// this function only needs to build the Conn, wire its server-link
// factory and keepalive ticker, and run it.
func (s *Supervisor) handleConn(ctx context.Context, netConn net.Conn) {
	var joined bool
	conn := proxyconn.New(netConn, s.reg, s.cfg, s.rsaKey, s.verifier, s.log)
	conn.OnlineCount = func() int32 { return s.online.Load() }
	conn.LinkFactory = func(c *proxyconn.Conn) (proxyconn.ServerLink, error) {
		link := s.currentLink()
		if link == nil {
			return nil, ErrNoLink
		}
		onLost := func() {
			_ = c.CloseWithReason(`{"text":"Server closed the connection"}`)
		}
		cl, err := openConnLink(link, c.Profile.UUID, c.Profile.Username, int32(c.Protocol()), c.RemoteAddr(), s.log, c.DeliverFromServer, onLost)
		if err != nil {
			return nil, err
		}
		if ys, ok := cl.stream.(*yamux.Stream); ok {
			c.SessionID = ys.StreamID()
		}
		joined = true
		s.online.Add(1)
		return cl, nil
	}

	stopKeepalive := s.runKeepalive(ctx, conn)
	defer stopKeepalive()

	conn.ReadLoop()
	if joined {
		s.online.Add(-1)
	}
}

// runKeepalive starts the per-connection keepalive ticker and returns a
// stop function. It issues a new keepalive once per
// KeepAliveIntervalSecs, starting as soon as the connection reaches
// Play, and closes the connection once the outstanding one has gone
// unanswered past KeepAliveTimeoutSecs. The ticker runs on a one-second
// cadence so the timeout fires within a second of the deadline rather
// than only on send-interval boundaries.
func (s *Supervisor) runKeepalive(ctx context.Context, conn *proxyconn.Conn) func() {
	interval := time.Duration(s.cfg.KeepAliveIntervalSecs) * time.Second
	timeout := time.Duration(s.cfg.KeepAliveTimeoutSecs) * time.Second
	stop := make(chan struct{})

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		var lastSend time.Time
		for {
			select {
			case now := <-ticker.C:
				if conn.KeepAliveOverdue(timeout) {
					_ = conn.CloseWithReason(`{"text":"Timed out"}`)
					return
				}
				if conn.State() != canonical.Play {
					continue
				}
				if !lastSend.IsZero() && now.Sub(lastSend) < interval {
					continue
				}
				if err := conn.SendKeepAlive(); err != nil {
					return
				}
				lastSend = now
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return func() { close(stop) }
}

// currentLink returns the active server link, or nil if none is
// connected. Safe for concurrent use by worker goroutines.
func (s *Supervisor) currentLink() *serverLink {
	s.linkMu.Lock()
	defer s.linkMu.Unlock()
	return s.link
}

// maintainLink holds the proxy↔server yamux session open, reconnecting
// with exponential backoff (100ms up to a 10s cap) whenever it
// drops.
func (s *Supervisor) maintainLink(ctx context.Context) error {
	backoff := 100 * time.Millisecond
	const maxBackoff = 10 * time.Second

	for {
		if ctx.Err() != nil {
			return nil
		}

		netConn, err := net.DialTimeout("tcp", s.cfg.ServerAddress, 10*time.Second)
		if err != nil {
			s.log.Warn("server link dial failed, retrying", zap.Error(err), zap.Duration("backoff", backoff))
			if !sleepCtx(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}

		session, err := yamux.Client(netConn, nil)
		if err != nil {
			_ = netConn.Close()
			if !sleepCtx(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}

		s.log.Info("server link established", zap.String("serverAddress", s.cfg.ServerAddress))
		backoff = 100 * time.Millisecond

		link := newServerLink(session, s.log)
		s.setLink(link)
		go s.heartbeatLoop(ctx, link)

		// Blocks until the session dies (ping failure, remote close, or
		// ctx cancellation tearing down the dial above).
		<-link.done

		s.setLink(nil)
		s.log.Warn("server link lost, reconnecting")
	}
}

// heartbeatLoop reports the proxy's online count to the server over a
// dedicated link stream every ten seconds, until the link dies.
func (s *Supervisor) heartbeatLoop(ctx context.Context, link *serverLink) {
	stream, err := link.session.OpenStream()
	if err != nil {
		return
	}
	defer stream.Close()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		hb := transfer.Heartbeat{OnlinePlayers: s.online.Load()}
		if err := transfer.WriteRecord(stream, transfer.KindHeartbeat, transfer.EncodeHeartbeat(hb)); err != nil {
			return
		}
		select {
		case <-ticker.C:
		case <-link.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Supervisor) setLink(l *serverLink) {
	s.linkMu.Lock()
	s.link = l
	s.linkMu.Unlock()
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func nextBackoff(cur, max time.Duration) time.Duration {
	next := cur * 2
	if next > max {
		return max
	}
	return next
}

// ErrNoLink is returned when a connection reaches Play before the server
// link has come up for the first time.
var ErrNoLink = errors.New("supervisor: no server link available")
