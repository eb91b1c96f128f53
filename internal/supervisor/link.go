package supervisor

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/yamux"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/bamboo-mc/bamboo/internal/canonical"
	"github.com/bamboo-mc/bamboo/internal/transfer"
)

// Outbound backlog water marks. Once a connection's queued clientbound
// bytes cross the high-water mark the server is told to pause that
// connection; once the queue drains below the low-water mark it resumes.
const (
	backlogHighWater = 1 << 20
	backlogLowWater  = 256 << 10
	outboxSlots      = 512
)

// serverLink is one persistent yamux session to the world server, shared
// by every client connection's Play traffic. One yamux stream is opened
// per client connection (openConnLink).
type serverLink struct {
	session *yamux.Session
	log     *zap.Logger
	done    chan struct{}
}

func newServerLink(session *yamux.Session, log *zap.Logger) *serverLink {
	l := &serverLink{session: session, log: log, done: make(chan struct{})}
	go l.watchClose()
	return l
}

func (l *serverLink) watchClose() {
	<-l.session.CloseChan()
	close(l.done)
}

// connLink is the proxyconn.ServerLink for one client connection: a
// single yamux stream plus a write mutex, since yamux streams (like
// plain net.Conn) are not safe for concurrent writers. Clientbound
// records pass through a bounded outbox between the link-reader and the
// client-writer goroutines so a slow client backs pressure up to the
// server instead of stalling the link reader.
type connLink struct {
	stream net.Conn
	reader *bufio.Reader
	mu     sync.Mutex
	log    *zap.Logger

	outbox   chan queuedPacket
	outBytes atomic.Int64
	paused   atomic.Bool
}

type queuedPacket struct {
	pkt  canonical.Packet
	size int
}

// openConnLink opens a fresh yamux stream, announces the connection to
// the server with a NewConnection record, and starts the background
// goroutines that queue clientbound records and push them through
// deliver. onLost fires once the stream dies (server restart, link
// drop) so the owning client connection can be torn down too.
func openConnLink(link *serverLink, id uuid.UUID, username string, protocol int32, remoteAddr net.Addr, log *zap.Logger, deliver func(canonical.Packet) error, onLost func()) (*connLink, error) {
	stream, err := link.session.OpenStream()
	if err != nil {
		return nil, fmt.Errorf("supervisor: open stream: %w", err)
	}

	cl := &connLink{
		stream: stream,
		reader: bufio.NewReader(stream),
		log:    log,
		outbox: make(chan queuedPacket, outboxSlots),
	}

	hello := transfer.NewConnection{
		UUID:       id,
		Username:   username,
		Version:    protocol,
		RemoteAddr: transfer.RemoteAddrString(remoteAddr),
	}
	if err := transfer.WriteRecord(cl.stream, transfer.KindNewConnection, transfer.EncodeNewConnection(hello)); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("supervisor: announce connection: %w", err)
	}

	go cl.readLoop()
	go cl.writeLoop(deliver, onLost)
	return cl, nil
}

// readLoop pulls records off the yamux stream and queues them for the
// client writer. Crossing the high-water mark pauses the connection on
// the server side before the enqueue can block.
func (cl *connLink) readLoop() {
	defer close(cl.outbox)
	for {
		rec, err := transfer.ReadRecord(cl.reader)
		if err != nil {
			return
		}
		pkt, err := transfer.DecodeCanonical(rec.Kind, rec.Payload)
		if err != nil {
			if errors.Is(err, transfer.ErrUnknownKind) {
				cl.log.Debug("unknown record kind from server, closing stream", zap.Stringer("kind", rec.Kind))
				return
			}
			cl.log.Debug("dropping undecodable record from server", zap.Error(err))
			continue
		}
		size := len(rec.Payload)
		if cl.outBytes.Add(int64(size)) >= backlogHighWater && cl.paused.CompareAndSwap(false, true) {
			_ = cl.writeControl(transfer.KindPauseConnection, transfer.EncodePauseConnection())
		}
		cl.outbox <- queuedPacket{pkt: pkt, size: size}
	}
}

// writeLoop drains the outbox into the client socket, resuming the
// server once a paused connection's backlog falls below the low-water
// mark.
func (cl *connLink) writeLoop(deliver func(canonical.Packet) error, onLost func()) {
	defer onLost()
	for q := range cl.outbox {
		err := deliver(q.pkt)
		left := cl.outBytes.Add(-int64(q.size))
		if err != nil {
			// Keep draining so the read loop never blocks on a full
			// outbox after the client is gone; the stream close ends it.
			for range cl.outbox {
			}
			return
		}
		if left <= backlogLowWater && cl.paused.CompareAndSwap(true, false) {
			_ = cl.writeControl(transfer.KindResumeConnection, transfer.EncodeResumeConnection())
		}
	}
}

func (cl *connLink) writeControl(kind transfer.Kind, payload []byte) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return transfer.WriteRecord(cl.stream, kind, payload)
}

// Send implements proxyconn.ServerLink.
func (cl *connLink) Send(pkt canonical.Packet) error {
	kind, payload, err := transfer.EncodeCanonical(pkt)
	if err != nil {
		// Packets with no link representation are simply dropped rather
		// than killing the connection: playHandler only ever forwards
		// packets the client's own codec decoded, and every serverbound
		// kind that can reach Send has a transfer encoding.
		return nil
	}
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return transfer.WriteRecord(cl.stream, kind, payload)
}

// Close implements proxyconn.ServerLink.
func (cl *connLink) Close() error {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	_ = transfer.WriteRecord(cl.stream, transfer.KindRemoveConnection, transfer.EncodeRemoveConnection())
	return cl.stream.Close()
}
