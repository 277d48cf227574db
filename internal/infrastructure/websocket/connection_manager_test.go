package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"ece-marketplace/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	userID    string
	auctionID string

	mu     sync.Mutex
	sent   [][]byte
	closed bool
}

func (c *fakeConn) Send(message interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := message.([]byte)
	if !ok {
		var err error
		if raw, err = json.Marshal(message); err != nil {
			return err
		}
	}
	c.sent = append(c.sent, raw)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) UserID() string    { return c.userID }
func (c *fakeConn) AuctionID() string { return c.auctionID }

func (c *fakeConn) messages() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func TestBroadcastReachesOnlyTheAuctionRoom(t *testing.T) {
	cm := NewConnectionManager(logger.NewNop())
	alice := &fakeConn{userID: "alice", auctionID: "a1"}
	bob := &fakeConn{userID: "bob", auctionID: "a1"}
	carol := &fakeConn{userID: "carol", auctionID: "a2"}
	for _, c := range []*fakeConn{alice, bob, carol} {
		require.NoError(t, cm.RegisterConnection(c.userID, c.auctionID, c))
	}

	require.NoError(t, cm.BroadcastToAuction("a1", map[string]string{"type": "BID_ACCEPTED"}))
	assert.Equal(t, 1, alice.messages())
	assert.Equal(t, 1, bob.messages())
	assert.Equal(t, 0, carol.messages())
	assert.JSONEq(t, `{"type":"BID_ACCEPTED"}`, string(alice.sent[0]))
}

func TestNotifyUserReachesEveryRoom(t *testing.T) {
	cm := NewConnectionManager(logger.NewNop())
	first := &fakeConn{userID: "alice", auctionID: "a1"}
	second := &fakeConn{userID: "alice", auctionID: "a2"}
	require.NoError(t, cm.RegisterConnection("alice", "a1", first))
	require.NoError(t, cm.RegisterConnection("alice", "a2", second))

	notifier := NewWebSocketNotifier(cm)
	require.NoError(t, notifier.NotifyUser(context.Background(), "alice", map[string]string{"type": "OUTBID"}))
	assert.Equal(t, 1, first.messages())
	assert.Equal(t, 1, second.messages())

	require.NoError(t, cm.UnregisterConnection("alice", "a1"))
	assert.Len(t, cm.GetConnectionsForUser("alice"), 1)
	assert.Empty(t, cm.GetConnectionsForAuction("a1"))
}

func TestReconnectReplacesOlderSocket(t *testing.T) {
	cm := NewConnectionManager(logger.NewNop())
	old := &fakeConn{userID: "alice", auctionID: "a1"}
	fresh := &fakeConn{userID: "alice", auctionID: "a1"}
	require.NoError(t, cm.RegisterConnection("alice", "a1", old))
	require.NoError(t, cm.RegisterConnection("alice", "a1", fresh))

	assert.True(t, old.closed)
	conns := cm.GetConnectionsForUser("alice")
	require.Len(t, conns, 1)
	assert.Same(t, fresh, conns[0])
}

func TestCloseAndUnregisterConnections(t *testing.T) {
	cm := NewConnectionManager(logger.NewNop())
	alice := &fakeConn{userID: "alice", auctionID: "a1"}
	bob := &fakeConn{userID: "bob", auctionID: "a1"}
	require.NoError(t, cm.RegisterConnection("alice", "a1", alice))
	require.NoError(t, cm.RegisterConnection("bob", "a1", bob))

	require.NoError(t, cm.CloseAndUnregisterConnections("a1"))
	assert.True(t, alice.closed)
	assert.True(t, bob.closed)
	assert.Empty(t, cm.GetConnectionsForAuction("a1"))
	assert.Empty(t, cm.GetConnectionsForUser("bob"))

	// closing an empty room is a no-op
	require.NoError(t, cm.CloseAndUnregisterConnections("a1"))
}
