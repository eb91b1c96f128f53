package proxyconn

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/bamboo-mc/bamboo/internal/canonical"
)

// handshakeHandler handles the single packet legal in the Handshaking
// state's state diagram.
type handshakeHandler struct {
	conn *Conn
}

func (h *handshakeHandler) activated()   {}
func (h *handshakeHandler) deactivated() {}

func (h *handshakeHandler) handleUnknownPacket(wireID int32) {
	h.conn.log.Debug("unknown packet in handshaking state, closing", zap.Int32("wireID", wireID))
	_ = h.conn.Close("unexpected packet")
}

func (h *handshakeHandler) handlePacket(pkt canonical.Packet) error {
	hs, ok := pkt.(canonical.Handshake)
	if !ok {
		return fmt.Errorf("handshake: unexpected packet type %T", pkt)
	}

	h.conn.resolveCodec(protocolOf(hs.ProtocolVersion))

	switch hs.NextState {
	case canonical.NextStatus:
		h.conn.SetState(canonical.Status)
	case canonical.NextLogin:
		h.conn.SetState(canonical.Login)
		if !h.conn.versionKnown {
			// Disconnect is only defined for the Login state's wire table,
			// so the state transition above happens before this kick.
			return h.conn.CloseWithReason(`{"text":"Unsupported protocol version"}`)
		}
	default:
		return fmt.Errorf("handshake: unknown next state %d", hs.NextState)
	}
	return nil
}
