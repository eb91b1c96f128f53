// Package proxyconn implements the per-client connection state machine:
// one Conn per client socket, owned exclusively by the worker
// goroutine that reads it (internal/supervisor), cycling through
// Handshaking → (Status|Login) → Play → Closed. Each state is handled by
// a distinct sessionHandler.
package proxyconn

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/bamboo-mc/bamboo/internal/bbconfig"
	"github.com/bamboo-mc/bamboo/internal/canonical"
	"github.com/bamboo-mc/bamboo/internal/codec"
	"github.com/bamboo-mc/bamboo/internal/codec/v47"
	"github.com/bamboo-mc/bamboo/internal/codec/v759"
	"github.com/bamboo-mc/bamboo/internal/frame"
	"github.com/bamboo-mc/bamboo/internal/mojang"
	"github.com/bamboo-mc/bamboo/internal/registry"
	"github.com/bamboo-mc/bamboo/internal/streamio"
	"github.com/bamboo-mc/bamboo/internal/version"

	"github.com/google/uuid"
)

// ErrClosedConn is returned by write paths once a Conn has been closed.
var ErrClosedConn = errors.New("proxyconn: connection is closed")

// sessionHandler handles packets for exactly one connection state. A
// Conn holds exactly one active sessionHandler at a time.
type sessionHandler interface {
	handlePacket(pkt canonical.Packet) error
	handleUnknownPacket(wireID int32)
	activated()
	deactivated()
}

// ServerLink is how a Conn in Play state forwards serverbound canonical
// packets to the world server. Implemented by internal/supervisor over
// the proxy↔server yamux link; the supervisor records the link stream's
// ID in Conn.SessionID when it creates the link.
type ServerLink interface {
	Send(pkt canonical.Packet) error
	Close() error
}

// Profile is a logged-in player's identity, set once Login completes.
type Profile struct {
	UUID     uuid.UUID
	Username string
}

// keepaliveLedger records the last sent nonce + timestamp and the last
// acknowledged nonce. The mutex covers access from the worker goroutine
// (ack handling) and the keepalive ticker goroutine (send + overdue
// checks).
type keepaliveLedger struct {
	mu          sync.Mutex
	nonce       int64
	sentAt      time.Time
	outstanding bool
}

// Conn is a single client connection, from accept to close. Every field
// is owned by the worker goroutine that drives ReadLoop, except the
// atomics, which the keepalive ticker and Close may touch from other
// goroutines.
type Conn struct {
	netConn    net.Conn
	remoteAddr net.Addr
	log        *zap.Logger

	reg      *registry.Registry
	proxyCfg *bbconfig.ProxyConfig
	rsaKey   *mojang.Keypair
	verifier mojang.SessionVerifier

	reader  *bufio.Reader
	writer  io.Writer
	writeMu sync.Mutex
	decoder *frame.Decoder

	protocol     version.Protocol
	codec        codec.Codec
	versionKnown bool
	// state is read by the keepalive ticker's send path as well as the
	// owning worker, so it is stored atomically. The zero value is
	// Handshaking.
	state     atomic.Int32
	threshold int // -1 disables compression

	closed          atomic.Bool
	knownDisconnect atomic.Bool

	handler sessionHandler
	Profile Profile

	keepalive keepaliveLedger

	Link ServerLink // nil until Play begins

	// SessionID is assigned by the supervisor once this connection is
	// registered with the server link; the yamux stream's ID doubles as
	// the connection ID on the link.
	SessionID uint32

	// OnlineCount is polled by the status handler to report the real
	// player count. Supplied by the supervisor at construction; nil
	// reports zero.
	OnlineCount func() int32

	// LinkFactory is invoked once, when the connection transitions into
	// Play, to establish Link against the supervisor's current server
	// session. A nil factory leaves Link nil, and Play packets are
	// dropped rather than forwarded (useful for tests exercising Login
	// in isolation).
	LinkFactory func(*Conn) (ServerLink, error)
}

func (c *Conn) onlineCount() int32 {
	if c.OnlineCount == nil {
		return 0
	}
	return c.OnlineCount()
}

// Pre-Play deadlines: a client gets this long to complete its handshake
// and its login before the read loop gives up on it.
const (
	handshakeDeadline = 30 * time.Second
	loginDeadline     = 60 * time.Second
)

// New wraps netConn in a Conn ready to read a Handshake packet. The
// protocol version and codec are not yet known until that Handshake
// arrives; see resolveCodec.
func New(netConn net.Conn, reg *registry.Registry, proxyCfg *bbconfig.ProxyConfig, rsaKey *mojang.Keypair, verifier mojang.SessionVerifier, log *zap.Logger) *Conn {
	reader := bufio.NewReader(netConn)
	_ = netConn.SetReadDeadline(time.Now().Add(handshakeDeadline))
	c := &Conn{
		netConn:    netConn,
		remoteAddr: netConn.RemoteAddr(),
		log:        log.With(zap.Stringer("remoteAddr", netConn.RemoteAddr())),
		reg:        reg,
		proxyCfg:   proxyCfg,
		rsaKey:     rsaKey,
		verifier:   verifier,
		reader:     reader,
		writer:     netConn,
		decoder:    frame.NewDecoder(reader),
		threshold:  -1,
	}
	c.setHandler(&handshakeHandler{conn: c})
	return c
}

func (c *Conn) setHandler(h sessionHandler) {
	if c.handler != nil {
		c.handler.deactivated()
	}
	c.handler = h
	h.activated()
}

// SetState transitions the connection and installs the handler for the
// new state. Callers only ever move forward through
// Handshaking -> (Status|Login) -> Play -> Closed.
func (c *Conn) SetState(state canonical.State) {
	c.state.Store(int32(state))
	switch state {
	case canonical.Status:
		c.setHandler(&statusHandler{conn: c})
	case canonical.Login:
		_ = c.netConn.SetReadDeadline(time.Now().Add(loginDeadline))
		c.setHandler(&loginHandler{conn: c})
	case canonical.Play:
		// Liveness is the keepalive ledger's job from here on.
		_ = c.netConn.SetReadDeadline(time.Time{})
		c.setHandler(&playHandler{conn: c})
		if c.LinkFactory != nil {
			link, err := c.LinkFactory(c)
			if err != nil {
				c.log.Warn("failed to establish server link", zap.Error(err))
				_ = c.CloseWithReason(`{"text":"Server is currently unavailable"}`)
				return
			}
			c.Link = link
		}
	}
}

// resolveCodec installs the per-version codec named by a Handshake. If
// the version is not one this build supports, it still installs the
// newest known dialect so Status/Login's wire-invariant packets (status
// response, disconnect) can be written, but marks the connection as
// speaking an unsupported version so the Login handler kicks instead of
// completing.
func (c *Conn) resolveCodec(p version.Protocol) {
	c.protocol = p
	switch p {
	case version.V47:
		c.codec = v47.New(c.reg)
		c.versionKnown = true
	case version.V759:
		c.codec = v759.New(c.reg)
		c.versionKnown = true
	default:
		c.codec = v759.New(c.reg)
		c.versionKnown = false
	}
}

// ReadLoop blocks reading frames until the connection closes or a
// Malformed/protocol-violation error ends it. It runs on the one worker
// goroutine that owns this connection.
func (c *Conn) ReadLoop() {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("recovered from panic in read loop", zap.Any("panic", r))
		}
		_ = c.Close("internal error")
	}()

	for {
		if c.Closed() {
			return
		}
		body, wireID, err := c.nextPacket()
		if err != nil {
			if !c.knownDisconnect.Load() {
				c.log.Debug("read loop ending", zap.Error(err))
			}
			return
		}
		if err := c.dispatch(wireID, body); err != nil {
			c.log.Debug("closing connection on dispatch error", zap.Error(err))
			return
		}
	}
}

// nextPacket reads one frame, decompresses it if enabled, and splits off
// the leading VarInt packet ID from the remaining body.
func (c *Conn) nextPacket() (body []byte, wireID int32, err error) {
	raw, err := c.decoder.Next()
	if err != nil {
		return nil, 0, err
	}

	if c.threshold >= 0 {
		raw, err = streamio.Decompress(raw)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: decompress: %v", frame.ErrMalformed, err)
		}
	}

	r := byteSliceReader(raw)
	id, err := frame.ReadVarInt(&r)
	if err != nil {
		return nil, 0, frame.ErrMalformed
	}
	return raw[len(raw)-r.remaining():], id, nil
}

func (c *Conn) dispatch(wireID int32, body []byte) error {
	// The Handshake packet is wire ID 0 in every protocol dialect this
	// codebase or vanilla itself has ever used, and it is the only
	// packet legal before a version is known, so it is decoded without
	// going through the (not-yet-resolved) per-version codec.
	if c.State() == canonical.Handshaking {
		if wireID != 0 {
			return fmt.Errorf("%w: unexpected wire id %d in Handshaking", frame.ErrMalformed, wireID)
		}
		hs, err := codec.DecodeHandshake(body)
		if err != nil {
			return err
		}
		return c.handler.handlePacket(hs)
	}

	pkt, err := c.codec.DecodeServerbound(c.State(), wireID, body)
	if err != nil {
		if errors.Is(err, codec.ErrUnknownPacket) {
			c.handler.handleUnknownPacket(wireID)
			return nil
		}
		return err
	}
	return c.handler.handlePacket(pkt)
}

// WritePacket encodes pkt with the connection's resolved codec and writes
// the framed, optionally compressed and encrypted, bytes to the socket.
// No clientbound packet is ever sent before a Handshake has resolved a
// codec, so c.codec is always non-nil here.
func (c *Conn) WritePacket(pkt canonical.Packet) error {
	if c.Closed() {
		return ErrClosedConn
	}
	if c.codec == nil {
		return fmt.Errorf("%w: write before codec resolved", frame.ErrMalformed)
	}
	wireID, body, err := c.codec.EncodeClientbound(c.State(), pkt)
	if err != nil {
		c.log.Debug("encode error, closing", zap.Error(err))
		_ = c.Close("encode error")
		return err
	}

	payload, err := prependWireID(wireID, body)
	if err != nil {
		return err
	}

	// The write side is shared between the worker goroutine, the keepalive
	// ticker, and the link-reader goroutine; the cipher stream's feedback
	// register cannot tolerate interleaved writes.
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.threshold >= 0 {
		payload, err = streamio.Compressor{Threshold: c.threshold}.Compress(payload)
		if err != nil {
			return err
		}
	}
	if err := frame.NewEncoder(c.writer).Write(payload); err != nil {
		_ = c.Close("write error")
		return err
	}
	return nil
}

func prependWireID(wireID int32, body []byte) ([]byte, error) {
	var idBuf [frame.MaxVarIntBytes]byte
	n := frame.PutVarInt(idBuf[:], wireID)
	out := make([]byte, n+len(body))
	copy(out, idBuf[:n])
	copy(out[n:], body)
	return out, nil
}

// EnableEncryption installs AES-128/CFB8 on both directions of the
// socket, sharing secret as key and IV, and is never undone for the
// connection's remaining lifetime.
func (c *Conn) EnableEncryption(secret []byte) error {
	reader, writer, err := streamio.EnableEncryption(c.netConn, c.netConn, secret)
	if err != nil {
		return err
	}
	c.reader = reader
	c.writer = writer
	c.decoder = frame.NewDecoder(reader)
	return nil
}

// EnableCompression turns on threshold compression from this
// point forward. threshold < 0 disables it (the default).
func (c *Conn) EnableCompression(threshold int) {
	c.threshold = threshold
}

// CloseWithReason closes the connection after writing a Disconnect
// packet carrying reasonJSON as the translated reason.
func (c *Conn) CloseWithReason(reasonJSON string) error {
	c.knownDisconnect.Store(true)
	_ = c.WritePacket(canonical.Disconnect{ReasonJSON: reasonJSON})
	return c.Close(reasonJSON)
}

// Close releases the connection's resources. Idempotent.
func (c *Conn) Close(reason string) error {
	if c.closed.Swap(true) {
		return ErrClosedConn
	}
	if c.handler != nil {
		c.handler.deactivated()
	}
	if c.Link != nil {
		_ = c.Link.Close()
	}
	return c.netConn.Close()
}

func (c *Conn) Closed() bool { return c.closed.Load() }

func (c *Conn) RemoteAddr() net.Addr { return c.remoteAddr }

func (c *Conn) Logger() *zap.Logger { return c.log }

func (c *Conn) Protocol() version.Protocol { return c.protocol }

func (c *Conn) State() canonical.State { return canonical.State(c.state.Load()) }

// byteSliceReader is a minimal io.ByteReader over a slice, used only to
// split off the leading packet-ID VarInt without allocating a
// bytes.Reader for every packet on the hot path.
type byteSliceReader []byte

func (r *byteSliceReader) ReadByte() (byte, error) {
	if len(*r) == 0 {
		return 0, io.EOF
	}
	b := (*r)[0]
	*r = (*r)[1:]
	return b, nil
}

func (r *byteSliceReader) remaining() int { return len(*r) }

// protocolOf narrows a Handshake's wire protocol number to our Protocol
// type; the value is opaque until resolveCodec checks it against the
// versions this build actually supports.
func protocolOf(wireProtocol int32) version.Protocol {
	return version.Protocol(wireProtocol)
}
