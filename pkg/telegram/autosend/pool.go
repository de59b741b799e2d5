package autosend

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"autosender/pkg/metrics"
	"autosender/pkg/telegram"
	"autosender/pkg/telegram/account_mutex"
)

const (
	establishTimeout  = time.Minute
	disconnectTimeout = 10 * time.Second
)

// Pool держит по одной сессии на аккаунт и переиспользует её между проходами.
type Pool struct {
	connector Connector
	locks     *account_mutex.Mutex
	metrics   *metrics.Metrics
	log       zerolog.Logger

	mu       sync.Mutex
	sessions map[string]Session
}

func NewPool(connector Connector, m *metrics.Metrics, log zerolog.Logger) *Pool {
	log = log.With().Str("component", "pool").Logger()
	return &Pool{
		connector: connector,
		locks:     account_mutex.New(log),
		metrics:   m,
		log:       log,
		sessions:  make(map[string]Session),
	}
}

func (p *Pool) get(accountID string) Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessions[accountID]
}

func (p *Pool) put(accountID string, s Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s == nil {
		delete(p.sessions, accountID)
	} else {
		p.sessions[accountID] = s
	}
	p.metrics.SessionsActive.Set(float64(len(p.sessions)))
}

// GetOrCreateSession возвращает подключённую сессию аккаунта или nil.
// nil означает «аккаунт пока не готов к рассылке»: нет учётной записи или сессию не удалось поднять.
func (p *Pool) GetOrCreateSession(ctx context.Context, accountID string, repo Repository) Session {
	if err := p.locks.Lock(ctx, accountID); err != nil {
		return nil
	}
	defer p.locks.Unlock(accountID)

	if s := p.get(accountID); s != nil {
		if s.IsConnected() {
			return s
		}
		p.log.Info().Str("account", accountID).Msg("[POOL] сессия отключилась, переподключение")
		p.disconnect(accountID, s)
		p.put(accountID, nil)
	}

	user := repo.GetUser(ctx)
	if user == nil {
		p.log.Warn().Str("account", accountID).Msg("[POOL] нет учётной записи, нужен вход")
		return nil
	}

	ectx, cancel := context.WithTimeout(ctx, establishTimeout)
	defer cancel()
	s, err := p.connector.Establish(ectx, *user)
	if err != nil {
		p.metrics.SessionFailures.Inc()
		p.log.Error().Err(err).Str("account", accountID).Str("phone", telegram.MaskPhone(user.Phone)).
			Msg("[POOL] не удалось поднять сессию")
		return nil
	}
	p.put(accountID, s)
	p.log.Info().Str("account", accountID).Msg("[POOL] сессия подключена")
	return s
}

// Cleanup отключает и убирает сессию аккаунта. Без сессии ничего не делает.
func (p *Pool) Cleanup(ctx context.Context, accountID string) {
	if err := p.locks.Lock(ctx, accountID); err != nil {
		return
	}
	defer p.locks.Unlock(accountID)

	s := p.get(accountID)
	if s == nil {
		return
	}
	p.put(accountID, nil)
	p.disconnect(accountID, s)
	p.log.Info().Str("account", accountID).Msg("[POOL] сессия закрыта")
}

// CleanupAll закрывает все сессии, в том числе занятые рассылкой.
func (p *Pool) CleanupAll(ctx context.Context) {
	p.mu.Lock()
	ids := make([]string, 0, len(p.sessions))
	for id := range p.sessions {
		ids = append(ids, id)
	}
	p.mu.Unlock()

	for _, id := range ids {
		p.Cleanup(ctx, id)
	}
	p.log.Info().Int("count", len(ids)).Msg("[POOL] все сессии закрыты")
}

// Size возвращает число сессий в пуле.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

func (p *Pool) disconnect(accountID string, s Session) {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	if err := s.Disconnect(ctx); err != nil {
		p.log.Warn().Err(err).Str("account", accountID).Msg("[POOL] ошибка отключения")
	}
}
