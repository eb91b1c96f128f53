package mcserver

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bamboo-mc/bamboo/internal/bbconfig"
	"github.com/bamboo-mc/bamboo/internal/canonical"
	"github.com/bamboo-mc/bamboo/internal/transfer"
)

func TestSendJoinSequenceWritesJoinGameThenPosition(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	defer clientSide.Close()

	srv := New(&bbconfig.ServerConfig{MaxPlayers: 20}, zaptest.NewLogger(t))

	go func() {
		_ = srv.sendJoinSequence(serverSide)
	}()

	reader := bufio.NewReader(clientSide)
	rec1, err := transfer.ReadRecord(reader)
	require.NoError(t, err)
	assert.Equal(t, transfer.KindJoinGame, rec1.Kind)

	rec2, err := transfer.ReadRecord(reader)
	require.NoError(t, err)
	assert.Equal(t, transfer.KindPlayerPositionLook, rec2.Kind)

	pkt, err := transfer.DecodeCanonical(rec1.Kind, rec1.Payload)
	require.NoError(t, err)
	join := pkt.(canonical.JoinGame)
	assert.Equal(t, int32(20), join.MaxPlayers)
	assert.Equal(t, "minecraft:overworld", join.Dimension)
}

func TestHandleStreamAnswersNewConnection(t *testing.T) {
	serverSide, clientSide := net.Pipe()
	defer clientSide.Close()
	srv := New(&bbconfig.ServerConfig{MaxPlayers: 10}, zaptest.NewLogger(t))

	done := make(chan struct{})
	go func() {
		srv.handleStream(context.Background(), serverSide)
		close(done)
	}()

	hello := transfer.NewConnection{UUID: uuid.New(), Username: "Alice", Version: 759, RemoteAddr: "1.2.3.4:5"}
	require.NoError(t, transfer.WriteRecord(clientSide, transfer.KindNewConnection, transfer.EncodeNewConnection(hello)))

	reader := bufio.NewReader(clientSide)
	rec, err := transfer.ReadRecord(reader)
	require.NoError(t, err)
	assert.Equal(t, transfer.KindJoinGame, rec.Kind)

	rec2, err := transfer.ReadRecord(reader)
	require.NoError(t, err)
	assert.Equal(t, transfer.KindPlayerPositionLook, rec2.Kind)

	require.NoError(t, transfer.WriteRecord(clientSide, transfer.KindRemoveConnection, transfer.EncodeRemoveConnection()))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handleStream did not exit after RemoveConnection")
	}
}
