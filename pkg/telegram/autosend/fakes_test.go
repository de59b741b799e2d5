package autosend

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"autosender/models"
	"autosender/pkg/metrics"
	"autosender/pkg/storage"
	"autosender/pkg/telegram"
)

// fakeSession запоминает отправки и отвечает заранее заданными ошибками по telegram id группы.
type fakeSession struct {
	mu          sync.Mutex
	connected   bool
	results     map[int64]error
	panicOn     int64
	sent        []int64
	disconnects int

	joinInfo models.GroupInfo
	joinErr  error
	joined   []string

	// Задержка и учёт одновременных отправок
	hold      time.Duration
	block     chan struct{}
	active    atomic.Int32
	maxActive atomic.Int32
}

func newFakeSession() *fakeSession {
	return &fakeSession{connected: true, results: map[int64]error{}}
}

func (s *fakeSession) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *fakeSession) SendText(ctx context.Context, g models.Group, text string) error {
	n := s.active.Add(1)
	defer s.active.Add(-1)
	for {
		m := s.maxActive.Load()
		if n <= m || s.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	if s.block != nil {
		<-s.block
	}
	if s.hold > 0 {
		time.Sleep(s.hold)
	}

	s.mu.Lock()
	s.sent = append(s.sent, g.TelegramID)
	err := s.results[g.TelegramID]
	panicOn := s.panicOn
	s.mu.Unlock()

	if panicOn != 0 && panicOn == g.TelegramID {
		panic("сломанная группа")
	}
	return err
}

func (s *fakeSession) JoinGroup(ctx context.Context, link string) (models.GroupInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.joined = append(s.joined, link)
	return s.joinInfo, s.joinErr
}

func (s *fakeSession) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	s.disconnects++
	return nil
}

func (s *fakeSession) sentIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.sent...)
}

// fakeConnector выдаёт сессии по номеру телефона учётной записи.
type fakeConnector struct {
	mu       sync.Mutex
	sessions map[string]*fakeSession
	err      error
	calls    int
}

func newFakeConnector() *fakeConnector {
	return &fakeConnector{sessions: map[string]*fakeSession{}}
}

func (c *fakeConnector) Establish(ctx context.Context, user models.UserAccount) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	s, ok := c.sessions[user.Phone]
	if !ok {
		return nil, telegram.ErrUnauthorized
	}
	s.mu.Lock()
	s.connected = true
	s.mu.Unlock()
	return s, nil
}

func (c *fakeConnector) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type testEnv struct {
	dir       *storage.Directory
	connector *fakeConnector
	metrics   *metrics.Metrics
	pool      *Pool
	engine    *Engine
	service   *Service

	sleepMu sync.Mutex
	slept   []time.Duration
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir, err := storage.NewDirectory(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(dir.Close)

	env := &testEnv{dir: dir, connector: newFakeConnector(), metrics: metrics.New(prometheus.NewRegistry())}
	env.pool = NewPool(env.connector, env.metrics, zerolog.Nop())
	env.engine = NewEngine(FromDirectory(dir), env.pool, env.metrics, 0, zerolog.Nop())
	env.engine.sleep = func(ctx context.Context, d time.Duration) error {
		env.sleepMu.Lock()
		env.slept = append(env.slept, d)
		env.sleepMu.Unlock()
		return ctx.Err()
	}
	env.service = NewService(FromDirectory(dir), env.pool, env.engine, zerolog.Nop())
	return env
}

func (env *testEnv) sleeps() []time.Duration {
	env.sleepMu.Lock()
	defer env.sleepMu.Unlock()
	return append([]time.Duration(nil), env.slept...)
}

// account создаёт аккаунт с входом, группами с telegram id из groupIDs и сообщениями.
func (env *testEnv) account(t *testing.T, id string, groupIDs []int64, texts ...string) (*storage.DB, *fakeSession) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, env.dir.Create(id))
	db, err := env.dir.Open(id)
	require.NoError(t, err)

	phone := "+7999" + id
	require.True(t, db.SaveUser(ctx, phone, id+".session"))
	require.True(t, db.SetSetting(ctx, models.SettingSendDelay, "0"))
	for _, gid := range groupIDs {
		require.True(t, db.AddGroup(ctx, "https://t.me/group_"+strconv.FormatInt(gid, 10), models.GroupInfo{Title: "g", TelegramID: gid}))
	}
	for _, text := range texts {
		require.True(t, db.AddMessage(ctx, text, 1, 1))
	}

	session := newFakeSession()
	env.connector.mu.Lock()
	env.connector.sessions[phone] = session
	env.connector.mu.Unlock()
	return db, session
}

// makeDue переносит next_send всех сообщений в прошлое.
func makeDue(t *testing.T, db *storage.DB) time.Time {
	t.Helper()
	past := time.Now().Add(-time.Minute).Truncate(time.Second)
	_, err := db.Conn.Exec(`UPDATE messages SET next_send = ?`, past.Unix())
	require.NoError(t, err)
	return past
}

var errForbidden = &telegram.PermanentError{Reason: "CHAT_WRITE_FORBIDDEN", Err: errors.New("rpc error")}
