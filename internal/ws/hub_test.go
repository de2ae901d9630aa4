package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/chatcore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEvent struct {
	Type string `json:"type"`
	N    int    `json:"n"`
}

func receive(t *testing.T, c *Client) testEvent {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "send queue closed")
		var ev testEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
		return testEvent{}
	}
}

func assertNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected event %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func Test_RegisterReportsFirstAndLast(t *testing.T) {
	hub := NewHub(nil, zap.NewNop())
	group := ConversationGroup(uuid.New())
	alice := uuid.New()

	tab1 := NewClient(hub, nil, group, alice, "Alice")
	tab2 := NewClient(hub, nil, group, alice, "Alice")

	assert.True(t, hub.Register(tab1))
	assert.False(t, hub.Register(tab2))
	assert.True(t, hub.Connected(group, alice))

	assert.False(t, hub.Unregister(tab1))
	assert.True(t, hub.Unregister(tab2))
	assert.False(t, hub.Connected(group, alice))
	assert.False(t, hub.Unregister(tab2), "second unregister is a no-op")

	_, ok := <-tab1.send
	assert.False(t, ok, "unregister closes the queue")
}

func Test_BroadcastExclusions(t *testing.T) {
	hub := NewHub(nil, zap.NewNop())
	group := ConversationGroup(uuid.New())
	aliceID, bobID := uuid.New(), uuid.New()

	alicePhone := NewClient(hub, nil, group, aliceID, "Alice")
	aliceLaptop := NewClient(hub, nil, group, aliceID, "Alice")
	bob := NewClient(hub, nil, group, bobID, "Bob")
	outsider := NewClient(hub, nil, ConversationGroup(uuid.New()), uuid.New(), "Eve")
	for _, c := range []*Client{alicePhone, aliceLaptop, bob, outsider} {
		hub.Register(c)
	}

	hub.Broadcast(group, testEvent{Type: "all", N: 1})
	for _, c := range []*Client{alicePhone, aliceLaptop, bob} {
		assert.Equal(t, "all", receive(t, c).Type)
	}
	assertNothing(t, outsider)

	hub.BroadcastExceptConn(group, alicePhone, testEvent{Type: "typing"})
	assert.Equal(t, "typing", receive(t, aliceLaptop).Type)
	assert.Equal(t, "typing", receive(t, bob).Type)
	assertNothing(t, alicePhone)

	hub.BroadcastExceptUser(group, aliceID, testEvent{Type: "status"})
	assert.Equal(t, "status", receive(t, bob).Type)
	assertNothing(t, alicePhone)
	assertNothing(t, aliceLaptop)
}

func Test_SendToUser(t *testing.T) {
	hub := NewHub(nil, zap.NewNop())
	userID := uuid.New()
	personal := NewClient(hub, nil, UserGroup(userID), userID, "Bob")
	inConversation := NewClient(hub, nil, ConversationGroup(uuid.New()), userID, "Bob")
	hub.Register(personal)
	hub.Register(inConversation)

	hub.SendToUser(userID, testEvent{Type: "new_message"})
	assert.Equal(t, "new_message", receive(t, personal).Type)
	assertNothing(t, inConversation)
}

func Test_SlowConnectionIsDropped(t *testing.T) {
	hub := NewHub(nil, zap.NewNop())
	group := ConversationGroup(uuid.New())
	slow := NewClient(hub, nil, group, uuid.New(), "Slow")
	fast := NewClient(hub, nil, group, uuid.New(), "Fast")
	hub.Register(slow)
	hub.Register(fast)

	for i := 0; i < sendBufferSize; i++ {
		hub.Broadcast(group, testEvent{N: i})
		<-fast.send
	}
	hub.Broadcast(group, testEvent{N: sendBufferSize})
	assert.Equal(t, sendBufferSize, receive(t, fast).N)

	drained := 0
	for range slow.send {
		drained++
	}
	assert.Equal(t, sendBufferSize, drained)

	// the read pump unregisters it later
	assert.True(t, hub.Unregister(slow))
}

func Test_RelayAcrossInstances(t *testing.T) {
	mr, rdb := testutil.NewRedis(t)
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	hubA := NewHub(rdb, zap.NewNop())
	hubB := NewHub(rdb, zap.NewNop())
	done := make(chan struct{}, 2)
	for _, h := range []*Hub{hubA, hubB} {
		go func(h *Hub) {
			assert.NoError(t, h.Run(ctx))
			done <- struct{}{}
		}(h)
	}
	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(relayChannel)[relayChannel] == 2
	}, 2*time.Second, 10*time.Millisecond)

	group := ConversationGroup(uuid.New())
	senderID := uuid.New()
	sender := NewClient(hubA, nil, group, senderID, "Alice")
	remote := NewClient(hubB, nil, group, uuid.New(), "Bob")
	hubA.Register(sender)
	hubB.Register(remote)

	for i := 1; i <= 3; i++ {
		hubA.BroadcastExceptConn(group, sender, testEvent{Type: "chat_message", N: i})
	}
	for i := 1; i <= 3; i++ {
		assert.Equal(t, i, receive(t, remote).N, "order is preserved")
	}
	assertNothing(t, sender)

	cancel()
	<-done
	<-done
}
