package autosend

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolReusesConnectedSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	db, session := env.account(t, "acc", nil)

	first := env.pool.GetOrCreateSession(ctx, "acc", db)
	second := env.pool.GetOrCreateSession(ctx, "acc", db)
	require.NotNil(t, first)
	assert.Same(t, session, first)
	assert.Same(t, first, second)
	assert.Equal(t, 1, env.connector.callCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.SessionsActive))
}

func TestPoolReconnectsDroppedSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	db, session := env.account(t, "acc", nil)

	require.NotNil(t, env.pool.GetOrCreateSession(ctx, "acc", db))
	session.mu.Lock()
	session.connected = false
	session.mu.Unlock()

	require.NotNil(t, env.pool.GetOrCreateSession(ctx, "acc", db))
	assert.Equal(t, 2, env.connector.callCount())
	assert.Equal(t, 1, session.disconnects, "старая сессия закрыта перед переподключением")
}

func TestPoolWithoutUser(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.dir.Create("fresh"))
	db, err := env.dir.Open("fresh")
	require.NoError(t, err)

	assert.Nil(t, env.pool.GetOrCreateSession(context.Background(), "fresh", db))
	assert.Equal(t, 0, env.connector.callCount())
}

func TestPoolEstablishFailure(t *testing.T) {
	env := newTestEnv(t)
	db, _ := env.account(t, "acc", nil)
	env.connector.err = assert.AnError

	assert.Nil(t, env.pool.GetOrCreateSession(context.Background(), "acc", db))
	assert.Equal(t, 0, env.pool.Size())
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.SessionFailures))
}

func TestPoolCleanup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	dbA, sessionA := env.account(t, "a", nil)
	dbB, sessionB := env.account(t, "b", nil)

	env.pool.Cleanup(ctx, "a") // без сессии ничего не происходит

	require.NotNil(t, env.pool.GetOrCreateSession(ctx, "a", dbA))
	require.NotNil(t, env.pool.GetOrCreateSession(ctx, "b", dbB))
	require.Equal(t, 2, env.pool.Size())

	env.pool.Cleanup(ctx, "a")
	assert.Equal(t, 1, env.pool.Size())
	assert.Equal(t, 1, sessionA.disconnects)
	assert.False(t, sessionA.IsConnected())

	env.pool.CleanupAll(ctx)
	assert.Equal(t, 0, env.pool.Size())
	assert.Equal(t, 1, sessionB.disconnects)
	assert.Equal(t, 0.0, testutil.ToFloat64(env.metrics.SessionsActive))
}
