package proxyconn

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/bamboo-mc/bamboo/internal/canonical"
)

// statusJSON mirrors the vanilla Server List Ping response shape.
type statusJSON struct {
	Version struct {
		Name     string `json:"name"`
		Protocol int32  `json:"protocol"`
	} `json:"version"`
	Players struct {
		Max    int32  `json:"max"`
		Online int32  `json:"online"`
		Sample []any  `json:"sample,omitempty"`
	} `json:"players"`
	Description struct {
		Text string `json:"text"`
	} `json:"description"`
	Favicon string `json:"favicon,omitempty"`
}

// statusHandler answers Status Request/Ping. Online always reports the
// supervisor's real count.
type statusHandler struct {
	conn *Conn
}

func (h *statusHandler) activated()   {}
func (h *statusHandler) deactivated() {}

func (h *statusHandler) handleUnknownPacket(wireID int32) {
	_ = h.conn.Close("unexpected packet in status state")
}

func (h *statusHandler) handlePacket(pkt canonical.Packet) error {
	switch p := pkt.(type) {
	case canonical.StatusRequest:
		return h.conn.WritePacket(canonical.StatusResponse{JSON: h.buildStatusJSON()})
	case canonical.Ping:
		// Pong ends the status exchange; the proxy closes rather than
		// waiting for the client's FIN.
		err := h.conn.WritePacket(canonical.Pong{Payload: p.Payload})
		_ = h.conn.Close("status exchange complete")
		return err
	default:
		return fmt.Errorf("status: unexpected packet type %T", pkt)
	}
}

func (h *statusHandler) buildStatusJSON() string {
	cfg := h.conn.proxyCfg

	var resp statusJSON
	resp.Version.Name = h.conn.protocol.Name()
	resp.Version.Protocol = int32(h.conn.protocol)
	resp.Players.Max = int32(cfg.MaxPlayers)
	resp.Players.Online = h.conn.onlineCount()
	resp.Description.Text = cfg.MOTD
	resp.Favicon = loadFavicon(cfg.IconPath)

	data, err := json.Marshal(resp)
	if err != nil {
		// json.Marshal only fails on unsupported types, which this struct
		// never contains, so this is unreachable in practice.
		return "{}"
	}
	return string(data)
}

// loadFavicon returns the data: URI vanilla expects for a status
// response's favicon field, or "" if no icon is configured or readable.
func loadFavicon(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return ""
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
}
