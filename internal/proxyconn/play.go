package proxyconn

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bamboo-mc/bamboo/internal/canonical"
)

// playHandler drives the Play state: keepalive bookkeeping happens
// here directly (the supervisor's per-connection ticker calls
// SendKeepAlive; replies are checked here),
// while every other Play packet is forwarded across the proxy↔server
// link via Conn.Link. Clientbound Play packets arriving from the server
// are pushed back out through DeliverFromServer, called by the
// supervisor's per-connection link-reader goroutine.
type playHandler struct {
	conn *Conn
}

func (h *playHandler) activated()   {}
func (h *playHandler) deactivated() {}

func (h *playHandler) handleUnknownPacket(wireID int32) {
	h.conn.log.Debug("ignoring unknown play packet", zap.Int32("wireID", wireID))
}

func (h *playHandler) handlePacket(pkt canonical.Packet) error {
	if ka, ok := pkt.(canonical.KeepAliveServerbound); ok {
		return h.handleKeepAliveServerbound(ka)
	}
	if h.conn.Link == nil {
		// Server link not yet established (supervisor still registering
		// the connection); drop silently rather than erroring the whole
		// connection for a benign race.
		return nil
	}
	return h.conn.Link.Send(pkt)
}

// handleKeepAliveServerbound verifies the client's reply matches the
// nonce most recently sent and clears the outstanding flag; a mismatched
// nonce is treated as a protocol violation, since keepalive replies must
// echo exactly what was sent.
func (h *playHandler) handleKeepAliveServerbound(p canonical.KeepAliveServerbound) error {
	k := &h.conn.keepalive
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.outstanding || p.Nonce != k.nonce {
		return fmt.Errorf("play: keepalive nonce mismatch")
	}
	k.outstanding = false
	return nil
}

// SendKeepAlive issues a new keepalive nonce to the client, recording it
// as outstanding. If the previous keepalive has not been acknowledged yet
// it does nothing, keeping at most one outstanding at any instant. Called
// by the supervisor's keepalive ticker.
func (c *Conn) SendKeepAlive() error {
	// The ticker starts with the connection; before Play there is nothing
	// to keep alive (pre-Play liveness is the read deadline's job).
	if c.State() != canonical.Play {
		return nil
	}
	k := &c.keepalive
	k.mu.Lock()
	if k.outstanding {
		k.mu.Unlock()
		return nil
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		k.mu.Unlock()
		return err
	}
	nonce := int64(binary.BigEndian.Uint64(buf[:]))
	k.nonce = nonce
	k.sentAt = time.Now()
	k.outstanding = true
	k.mu.Unlock()

	return c.WritePacket(canonical.KeepAliveClientbound{Nonce: nonce})
}

// KeepAliveOverdue reports whether the outstanding keepalive has gone
// unanswered longer than timeout.
func (c *Conn) KeepAliveOverdue(timeout time.Duration) bool {
	k := &c.keepalive
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.outstanding && time.Since(k.sentAt) > timeout
}

// DeliverFromServer pushes a clientbound Play packet that arrived over
// the server link out to the client socket.
func (c *Conn) DeliverFromServer(pkt canonical.Packet) error {
	return c.WritePacket(pkt)
}
