package chat

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/avoronin/relaychat/internal/domain"
	"github.com/avoronin/relaychat/internal/presence"
	"github.com/avoronin/relaychat/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingConn captures every event pushed to it.
type recordingConn struct {
	mu     sync.Mutex
	events []OutboundEvent
}

func (c *recordingConn) Push(_ context.Context, event any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event.(OutboundEvent))
	return nil
}

func (c *recordingConn) Close(string) {}

func (c *recordingConn) received() []OutboundEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]OutboundEvent(nil), c.events...)
}

func (c *recordingConn) byType(eventType string) []OutboundEvent {
	var out []OutboundEvent
	for _, e := range c.received() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	repo     store.Repository
	registry *presence.Registry
	relay    *Service
	alice    *domain.User
	bob      *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	registry := presence.NewRegistry()
	f := &fixture{
		repo:     repo,
		registry: registry,
		relay:    NewService(repo, registry),
		alice:    testUser("alice"),
		bob:      testUser("bob"),
	}
	require.NoError(t, repo.CreateUser(context.Background(), f.alice))
	require.NoError(t, repo.CreateUser(context.Background(), f.bob))
	return f
}

func testUser(username string) *domain.User {
	now := time.Now()
	return &domain.User{
		UserID:       uuid.NewString(),
		Username:     username,
		PasswordHash: "hash",
		LastSeenAt:   now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestSend_DeliversToRegisteredReceiver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bobConn := &recordingConn{}
	f.registry.Register(f.bob.UserID, bobConn)

	msg, err := f.relay.Send(ctx, f.alice.UserID, f.bob.UserID, "hi")
	require.NoError(t, err)

	assert.Equal(t, "hi", msg.Body)
	assert.Equal(t, "alice", msg.SenderName)
	assert.Equal(t, "bob", msg.ReceiverName)
	assert.False(t, msg.Read)

	delivered := bobConn.byType(EventReceiveMessage)
	require.Len(t, delivered, 1)
	got := delivered[0].Data.(*domain.Message)
	assert.Equal(t, msg.MessageID, got.MessageID)

	// Persisted regardless of delivery.
	history, err := f.relay.History(ctx, f.bob.UserID, f.alice.UserID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "hi", history[0].Body)
}

func TestSend_OfflineReceiverStoreAndForward(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	msg, err := f.relay.Send(ctx, f.alice.UserID, f.bob.UserID, "hi")
	require.NoError(t, err)
	assert.NotEmpty(t, msg.MessageID)

	// Bob connects later and finds the message via history.
	history, err := f.relay.History(ctx, f.bob.UserID, f.alice.UserID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "hi", history[0].Body)
	assert.False(t, history[0].Read)
}

func TestSend_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.relay.Send(ctx, f.alice.UserID, "", "hi")
	assert.ErrorIs(t, err, domain.ErrMissingParameter)

	_, err = f.relay.Send(ctx, f.alice.UserID, f.bob.UserID, "")
	assert.ErrorIs(t, err, domain.ErrMissingParameter)

	_, err = f.relay.Send(ctx, f.alice.UserID, f.bob.UserID, "   \t\n ")
	assert.ErrorIs(t, err, domain.ErrEmptyBody)

	_, err = f.relay.Send(ctx, f.alice.UserID, f.bob.UserID, strings.Repeat("a", domain.MaxMessageLength+1))
	assert.ErrorIs(t, err, domain.ErrBodyTooLong)

	// None of the rejected sends left a record behind.
	history, err := f.relay.History(ctx, f.alice.UserID, f.bob.UserID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSend_LengthBoundCountsCharactersNotBytes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// At the bound in characters even though twice the bound in bytes.
	body := strings.Repeat("é", domain.MaxMessageLength)
	msg, err := f.relay.Send(ctx, f.alice.UserID, f.bob.UserID, body)
	require.NoError(t, err)
	assert.Equal(t, body, msg.Body)

	_, err = f.relay.Send(ctx, f.alice.UserID, f.bob.UserID, strings.Repeat("é", domain.MaxMessageLength+1))
	assert.ErrorIs(t, err, domain.ErrBodyTooLong)
}

// failingStore wraps a working repository with a store whose message
// writes always fail.
type failingStore struct {
	store.Repository
}

func (failingStore) CreateMessage(context.Context, *domain.Message) error {
	return errors.New("disk full")
}

func TestSend_PersistenceFailureAbortsDelivery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	relay := NewService(failingStore{f.repo}, f.registry)

	bobConn := &recordingConn{}
	f.registry.Register(f.bob.UserID, bobConn)

	_, err := relay.Send(ctx, f.alice.UserID, f.bob.UserID, "hi")
	require.Error(t, err)

	// An unpersisted message must never reach the live receiver.
	assert.Empty(t, bobConn.received())

	// Nothing was stored either.
	history, err := f.relay.History(ctx, f.bob.UserID, f.alice.UserID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSend_BodyStoredUntrimmed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	msg, err := f.relay.Send(ctx, f.alice.UserID, f.bob.UserID, "  hi  ")
	require.NoError(t, err)
	assert.Equal(t, "  hi  ", msg.Body)
}

func TestHistory_InterleavedOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const fromAlice, fromBob = 3, 2
	for i := 0; i < fromAlice; i++ {
		_, err := f.relay.Send(ctx, f.alice.UserID, f.bob.UserID, "a")
		require.NoError(t, err)
	}
	for i := 0; i < fromBob; i++ {
		_, err := f.relay.Send(ctx, f.bob.UserID, f.alice.UserID, "b")
		require.NoError(t, err)
	}

	history, err := f.relay.History(ctx, f.alice.UserID, f.bob.UserID)
	require.NoError(t, err)
	require.Len(t, history, fromAlice+fromBob)
	for i := 1; i < len(history); i++ {
		assert.False(t, history[i].SentAt.Before(history[i-1].SentAt),
			"history must be non-decreasing by timestamp")
	}
}

func TestHistory_MissingOtherUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.relay.History(context.Background(), f.alice.UserID, "")
	assert.ErrorIs(t, err, domain.ErrMissingParameter)
}

func TestMarkRead_NoOwnershipCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	msg, err := f.relay.Send(ctx, f.alice.UserID, f.bob.UserID, "hi")
	require.NoError(t, err)

	// Bob (or anyone connected) can mark it read.
	require.NoError(t, f.relay.MarkRead(ctx, msg.MessageID))

	history, err := f.relay.History(ctx, f.alice.UserID, f.bob.UserID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Read)

	assert.ErrorIs(t, f.relay.MarkRead(ctx, ""), domain.ErrMissingParameter)
	assert.ErrorIs(t, f.relay.MarkRead(ctx, "missing"), domain.ErrNotFound)
}

func TestDelete_SenderOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	msg, err := f.relay.Send(ctx, f.alice.UserID, f.bob.UserID, "hi")
	require.NoError(t, err)

	err = f.relay.Delete(ctx, msg.MessageID, f.bob.UserID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	// Record intact after the rejected delete.
	history, err := f.relay.History(ctx, f.alice.UserID, f.bob.UserID)
	require.NoError(t, err)
	require.Len(t, history, 1)

	require.NoError(t, f.relay.Delete(ctx, msg.MessageID, f.alice.UserID))

	history, err = f.relay.History(ctx, f.alice.UserID, f.bob.UserID)
	require.NoError(t, err)
	assert.Empty(t, history)

	err = f.relay.Delete(ctx, msg.MessageID, f.alice.UserID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTyping_ForwardedToReceiverOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bobConn := &recordingConn{}
	f.registry.Register(f.bob.UserID, bobConn)

	f.relay.Typing(ctx, f.alice.UserID, "alice", f.bob.UserID)
	f.relay.StopTyping(ctx, f.alice.UserID, f.bob.UserID)

	typing := bobConn.byType(EventUserTyping)
	require.Len(t, typing, 1)
	signal := typing[0].Data.(TypingSignal)
	assert.Equal(t, f.alice.UserID, signal.UserID)
	assert.Equal(t, "alice", signal.Username)

	stopped := bobConn.byType(EventUserStopTyping)
	require.Len(t, stopped, 1)
	assert.Equal(t, f.alice.UserID, stopped[0].Data.(TypingSignal).UserID)
}

func TestTyping_SilentNoops(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Missing receiver and offline receiver both drop silently.
	f.relay.Typing(ctx, f.alice.UserID, "alice", "")
	f.relay.Typing(ctx, f.alice.UserID, "alice", f.bob.UserID)
	f.relay.StopTyping(ctx, f.alice.UserID, "")
}

func TestBroadcastStatus_ReachesSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	aliceConn := &recordingConn{}
	bobConn := &recordingConn{}
	f.registry.Register(f.alice.UserID, aliceConn)
	f.registry.Register(f.bob.UserID, bobConn)

	f.relay.BroadcastStatus(ctx, f.alice.UserID, "alice", true)

	for _, conn := range []*recordingConn{aliceConn, bobConn} {
		statuses := conn.byType(EventUserStatus)
		require.Len(t, statuses, 1)
		status := statuses[0].Data.(UserStatus)
		assert.Equal(t, f.alice.UserID, status.UserID)
		assert.Equal(t, "alice", status.Username)
		assert.True(t, status.Online)
	}
}
