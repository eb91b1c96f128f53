package proxyconn

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bamboo-mc/bamboo/internal/canonical"
	"github.com/bamboo-mc/bamboo/internal/mojang"
)

// loginHandler drives the Login state: LoginStart, an optional
// encryption handshake when online-mode is on, then compression and
// LoginSuccess. ServerID is always the empty string, matching vanilla's
// own modern behavior (populated only by the legacy pre-1.7 handshake,
// which this codebase does not implement).
type loginHandler struct {
	conn *Conn

	username    string
	verifyToken []byte
}

func (h *loginHandler) activated()   {}
func (h *loginHandler) deactivated() {}

func (h *loginHandler) handleUnknownPacket(wireID int32) {
	_ = h.conn.Close("unexpected packet in login state")
}

func (h *loginHandler) handlePacket(pkt canonical.Packet) error {
	switch p := pkt.(type) {
	case canonical.LoginStart:
		return h.handleLoginStart(p)
	case canonical.EncryptionResponse:
		return h.handleEncryptionResponse(p)
	default:
		return fmt.Errorf("login: unexpected packet type %T", pkt)
	}
}

func (h *loginHandler) handleLoginStart(p canonical.LoginStart) error {
	h.username = p.Username

	if max := int32(h.conn.proxyCfg.MaxPlayers); max > 0 && h.conn.onlineCount() >= max {
		return h.conn.CloseWithReason(`{"text":"Server is full"}`)
	}

	if !h.conn.proxyCfg.OnlineMode {
		return h.finishLogin(mojang.OfflineUUID(h.username))
	}

	token := make([]byte, 4)
	if _, err := rand.Read(token); err != nil {
		return fmt.Errorf("login: generate verify token: %w", err)
	}
	h.verifyToken = token

	return h.conn.WritePacket(canonical.EncryptionRequest{
		ServerID:    "",
		PublicKey:   h.conn.rsaKey.PublicKeyDER(),
		VerifyToken: token,
	})
}

func (h *loginHandler) handleEncryptionResponse(p canonical.EncryptionResponse) error {
	sharedSecret, err := h.conn.rsaKey.Decrypt(p.EncryptedSharedSecret)
	if err != nil {
		return h.conn.CloseWithReason(`{"text":"Invalid encryption response"}`)
	}
	verifyToken, err := h.conn.rsaKey.Decrypt(p.EncryptedVerifyToken)
	if err != nil || !bytes.Equal(verifyToken, h.verifyToken) {
		return h.conn.CloseWithReason(`{"text":"Invalid verify token"}`)
	}

	if err := h.conn.EnableEncryption(sharedSecret); err != nil {
		return fmt.Errorf("login: enable encryption: %w", err)
	}

	serverIDHash := mojang.AuthDigest("", sharedSecret, h.conn.rsaKey.PublicKeyDER())
	profile, err := h.conn.verifier.HasJoined(h.username, serverIDHash)
	if err != nil {
		h.conn.log.Info("session verification failed", zap.String("username", h.username), zap.Error(err))
		if errors.Is(err, mojang.ErrAuthServersUnreachable) {
			return h.conn.CloseWithReason(`{"text":"Authentication servers are unreachable"}`)
		}
		return h.conn.CloseWithReason(`{"text":"Invalid session"}`)
	}

	id, err := profile.UUID()
	if err != nil {
		return fmt.Errorf("login: parse profile uuid: %w", err)
	}
	return h.finishLogin(id)
}

func (h *loginHandler) finishLogin(id uuid.UUID) error {
	cfg := h.conn.proxyCfg
	if cfg.CompressionThreshold >= 0 {
		if err := h.conn.WritePacket(canonical.SetCompression{Threshold: int32(cfg.CompressionThreshold)}); err != nil {
			return err
		}
		h.conn.EnableCompression(cfg.CompressionThreshold)
	}

	h.conn.Profile = Profile{UUID: id, Username: h.username}
	if err := h.conn.WritePacket(canonical.LoginSuccess{UUID: id, Username: h.username}); err != nil {
		return err
	}

	h.conn.SetState(canonical.Play)
	return nil
}
