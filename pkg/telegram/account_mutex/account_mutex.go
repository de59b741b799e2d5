package account_mutex

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Mutex выдаёт по одной блокировке на аккаунт. Разные аккаунты друг друга не ждут.
// Запись об аккаунте живёт, пока его кто-то держит или ждёт, поэтому
// одноразовые ключи (например, id входа) не копятся.
type Mutex struct {
	log zerolog.Logger

	mu    sync.Mutex
	locks map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int // держатель плюс ожидающие
}

func New(log zerolog.Logger) *Mutex {
	return &Mutex{
		log:   log.With().Str("component", "mutex").Logger(),
		locks: make(map[string]*slot),
	}
}

func (m *Mutex) ref(accountID string) *slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.locks[accountID]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		m.locks[accountID] = s
	}
	s.refs++
	return s
}

// unref вызывается под m.mu.
func (m *Mutex) unref(accountID string, s *slot) {
	s.refs--
	if s.refs == 0 {
		delete(m.locks, accountID)
	}
}

// Lock ждёт освобождения аккаунта или отмены контекста.
func (m *Mutex) Lock(ctx context.Context, accountID string) error {
	s := m.ref(accountID)
	select {
	case s.ch <- struct{}{}:
	default:
		m.log.Debug().Str("account", accountID).Msg("[MUTEX] аккаунт занят, ожидание")
		select {
		case s.ch <- struct{}{}:
		case <-ctx.Done():
			m.mu.Lock()
			m.unref(accountID, s)
			m.mu.Unlock()
			return ctx.Err()
		}
	}
	m.log.Debug().Str("account", accountID).Msg("[MUTEX] аккаунт заблокирован")
	return nil
}

// Unlock освобождает аккаунт. Вызов без Lock игнорируется.
func (m *Mutex) Unlock(accountID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.locks[accountID]
	if !ok {
		return
	}
	select {
	case <-s.ch:
		m.unref(accountID, s)
		m.log.Debug().Str("account", accountID).Msg("[MUTEX] аккаунт разблокирован")
	default:
	}
}
