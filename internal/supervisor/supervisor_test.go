package supervisor

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/yamux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bamboo-mc/bamboo/internal/canonical"
	"github.com/bamboo-mc/bamboo/internal/mojang"
	"github.com/bamboo-mc/bamboo/internal/transfer"
)

func TestNextBackoffDoublesAndCaps(t *testing.T) {
	d := 100 * time.Millisecond
	d = nextBackoff(d, 10*time.Second)
	assert.Equal(t, 200*time.Millisecond, d)

	d = nextBackoff(8*time.Second, 10*time.Second)
	assert.Equal(t, 10*time.Second, d)

	d = nextBackoff(20*time.Second, 10*time.Second)
	assert.Equal(t, 10*time.Second, d)
}

func TestSupervisorCurrentLinkReflectsSetLink(t *testing.T) {
	s := New(nil, nil, nil, mojang.SessionVerifier{}, zaptest.NewLogger(t))
	assert.Nil(t, s.currentLink())

	l := &serverLink{done: make(chan struct{})}
	s.setLink(l)
	assert.Same(t, l, s.currentLink())

	s.setLink(nil)
	assert.Nil(t, s.currentLink())
}

func TestOpenConnLinkAnnouncesAndForwardsRecords(t *testing.T) {
	clientNet, serverNet := net.Pipe()
	clientSession, err := yamux.Client(clientNet, nil)
	require.NoError(t, err)
	serverSession, err := yamux.Server(serverNet, nil)
	require.NoError(t, err)

	log := zaptest.NewLogger(t)
	link := newServerLink(clientSession, log)

	delivered := make(chan canonical.Packet, 1)
	deliver := func(p canonical.Packet) error { delivered <- p; return nil }

	id := uuid.New()
	done := make(chan struct{})
	var cl *connLink
	go func() {
		var err error
		cl, err = openConnLink(link, id, "Alice", 759, clientNet.RemoteAddr(), log, deliver, func() {})
		require.NoError(t, err)
		close(done)
	}()

	stream, err := serverSession.AcceptStream()
	require.NoError(t, err)
	reader := bufio.NewReader(stream)

	rec, err := transfer.ReadRecord(reader)
	require.NoError(t, err)
	require.Equal(t, transfer.KindNewConnection, rec.Kind)
	hello, err := transfer.DecodeNewConnection(rec.Payload)
	require.NoError(t, err)
	assert.Equal(t, "Alice", hello.Username)
	assert.Equal(t, id, hello.UUID)

	<-done

	require.NoError(t, cl.Send(canonical.KeepAliveClientbound{Nonce: 42}))
	rec2, err := transfer.ReadRecord(reader)
	require.NoError(t, err)
	assert.Equal(t, transfer.KindKeepAliveClientbound, rec2.Kind)

	kind, payload, err := transfer.EncodeCanonical(canonical.TimeUpdate{WorldAge: 1, TimeOfDay: 2})
	require.NoError(t, err)
	require.NoError(t, transfer.WriteRecord(stream, kind, payload))

	select {
	case p := <-delivered:
		assert.Equal(t, canonical.TimeUpdate{WorldAge: 1, TimeOfDay: 2}, p)
	case <-time.After(2 * time.Second):
		t.Fatal("deliver was not called")
	}

	require.NoError(t, cl.Close())
}

func TestConnLinkFiresOnLostWhenStreamDies(t *testing.T) {
	clientNet, serverNet := net.Pipe()
	clientSession, err := yamux.Client(clientNet, nil)
	require.NoError(t, err)
	serverSession, err := yamux.Server(serverNet, nil)
	require.NoError(t, err)

	log := zaptest.NewLogger(t)
	link := newServerLink(clientSession, log)

	lost := make(chan struct{})
	deliver := func(canonical.Packet) error { return nil }

	opened := make(chan struct{})
	go func() {
		_, err := openConnLink(link, uuid.New(), "Bob", 47, clientNet.RemoteAddr(), log, deliver, func() { close(lost) })
		require.NoError(t, err)
		close(opened)
	}()

	stream, err := serverSession.AcceptStream()
	require.NoError(t, err)
	_, err = transfer.ReadRecord(bufio.NewReader(stream))
	require.NoError(t, err)
	<-opened

	require.NoError(t, stream.Close())

	select {
	case <-lost:
	case <-time.After(2 * time.Second):
		t.Fatal("onLost was not called after the stream closed")
	}
}
