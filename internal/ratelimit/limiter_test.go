package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(config Config) (*MemoryLimiter, *time.Time) {
	l := NewMemoryLimiter(config)
	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	l.nowFunc = func() time.Time { return now }
	return l, &now
}

func TestAllowSendWithinBudget(t *testing.T) {
	l, _ := newTestLimiter(Config{
		ActorLimit:         10,
		ActorWindow:        time.Minute,
		ConversationLimit:  3,
		ConversationWindow: time.Minute,
	})

	for i := 0; i < 3; i++ {
		d, err := l.AllowSend(context.Background(), "staff:a", "staff:a:conv1")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}

	d, err := l.AllowSend(context.Background(), "staff:a", "staff:a:conv1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 3, d.Limit)
	assert.Equal(t, time.Minute, d.RetryAfter)
}

func TestActorBudgetSpansConversations(t *testing.T) {
	l, _ := newTestLimiter(Config{
		ActorLimit:         4,
		ActorWindow:        time.Minute,
		ConversationLimit:  10,
		ConversationWindow: time.Minute,
	})

	for i := 0; i < 2; i++ {
		d, err := l.AllowSend(context.Background(), "staff:a", "staff:a:conv1")
		require.NoError(t, err)
		require.True(t, d.Allowed)
		d, err = l.AllowSend(context.Background(), "staff:a", "staff:a:conv2")
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}

	// Actor budget exhausted even though each conversation is under its
	// own limit.
	d, err := l.AllowSend(context.Background(), "staff:a", "staff:a:conv3")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 4, d.Limit)
}

func TestRejectionConsumesNoBudget(t *testing.T) {
	l, _ := newTestLimiter(Config{
		ActorLimit:         10,
		ActorWindow:        time.Minute,
		ConversationLimit:  1,
		ConversationWindow: time.Minute,
	})

	d, err := l.AllowSend(context.Background(), "staff:a", "staff:a:conv1")
	require.NoError(t, err)
	require.True(t, d.Allowed)

	// Rejected sends in conv1 must not eat the actor budget.
	for i := 0; i < 5; i++ {
		d, err = l.AllowSend(context.Background(), "staff:a", "staff:a:conv1")
		require.NoError(t, err)
		require.False(t, d.Allowed)
	}

	d, err = l.AllowSend(context.Background(), "staff:a", "staff:a:conv2")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	// The conversation window is the tighter one here.
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, 1, d.Limit)

	// One send each in conv1 and conv2 so far; the five rejections left
	// the actor budget untouched, so eight more conversations fit.
	for i := 3; i <= 10; i++ {
		d, err = l.AllowSend(context.Background(), "staff:a", fmt.Sprintf("staff:a:conv%d", i))
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}
	d, err = l.AllowSend(context.Background(), "staff:a", "staff:a:conv11")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 10, d.Limit)
}

func TestWindowReset(t *testing.T) {
	l, now := newTestLimiter(Config{
		ActorLimit:         10,
		ActorWindow:        time.Minute,
		ConversationLimit:  2,
		ConversationWindow: time.Minute,
	})

	for i := 0; i < 2; i++ {
		d, err := l.AllowSend(context.Background(), "staff:a", "staff:a:conv1")
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}
	*now = now.Add(20 * time.Second)
	d, err := l.AllowSend(context.Background(), "staff:a", "staff:a:conv1")
	require.NoError(t, err)
	require.False(t, d.Allowed)
	assert.Equal(t, 40*time.Second, d.RetryAfter)

	*now = now.Add(40 * time.Second)
	d, err = l.AllowSend(context.Background(), "staff:a", "staff:a:conv1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestIndependentActors(t *testing.T) {
	l, _ := newTestLimiter(Config{
		ActorLimit:         1,
		ActorWindow:        time.Minute,
		ConversationLimit:  10,
		ConversationWindow: time.Minute,
	})

	d, err := l.AllowSend(context.Background(), "staff:a", "staff:a:conv1")
	require.NoError(t, err)
	require.True(t, d.Allowed)

	d, err = l.AllowSend(context.Background(), "staff:a", "staff:a:conv1")
	require.NoError(t, err)
	require.False(t, d.Allowed)

	d, err = l.AllowSend(context.Background(), "customer:b", "customer:b:conv1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestExpiredWindowsAreEvicted(t *testing.T) {
	l, now := newTestLimiter(Config{
		ActorLimit:         10,
		ActorWindow:        time.Minute,
		ConversationLimit:  10,
		ConversationWindow: time.Minute,
	})

	for i := 0; i < 20; i++ {
		key := fmt.Sprintf("staff:%d", i)
		_, err := l.AllowSend(context.Background(), key, key+":conv1")
		require.NoError(t, err)
	}
	require.Len(t, l.actors, 20)
	require.Len(t, l.convs, 20)

	// All 20 windows are stale once the window length has passed; the
	// next send sweeps them and leaves only its own entry.
	*now = now.Add(time.Minute)
	_, err := l.AllowSend(context.Background(), "staff:fresh", "staff:fresh:conv1")
	require.NoError(t, err)

	assert.Len(t, l.actors, 1)
	assert.Len(t, l.convs, 1)
}

func TestConcurrentSendsNeverOvershoot(t *testing.T) {
	limit := 50
	l := NewMemoryLimiter(Config{
		ActorLimit:         limit,
		ActorWindow:        time.Minute,
		ConversationLimit:  limit,
		ConversationWindow: time.Minute,
	})

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := l.AllowSend(context.Background(), "staff:a", "staff:a:conv1")
			if err == nil && d.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, limit, allowed)
}
