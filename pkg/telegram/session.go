package telegram

import (
	"context"
	"fmt"
	"sync"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Session держит живое подключение одного аккаунта к Telegram.
// client.Run работает в отдельной горутине, пока сессию не отключат.
type Session struct {
	client  *telegram.Client
	limiter *rate.Limiter
	log     zerolog.Logger

	mu            sync.RWMutex
	api           *tg.Client
	connected     bool
	disconnecting bool
	cancel        context.CancelFunc
	runDone       chan struct{}
}

func newSession(client *telegram.Client, rateLimit int, log zerolog.Logger) *Session {
	if rateLimit <= 0 {
		rateLimit = 10
	}
	return &Session{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rateLimit), rateLimit),
		log:     log,
	}
}

// connect запускает клиент и ждёт готовности API. ctx ограничивает только ожидание:
// само подключение живёт до Disconnect.
func (s *Session) connect(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	errCh := make(chan error, 1)
	runDone := make(chan struct{})

	s.mu.Lock()
	s.cancel = cancel
	s.runDone = runDone
	s.mu.Unlock()

	go func() {
		defer close(runDone)
		err := s.client.Run(runCtx, func(ctx context.Context) error {
			s.mu.Lock()
			s.api = s.client.API()
			s.connected = true
			s.mu.Unlock()
			close(ready)

			<-ctx.Done()
			return ctx.Err()
		})
		s.mu.Lock()
		s.connected = false
		s.mu.Unlock()
		if err != nil && runCtx.Err() == nil {
			s.log.Warn().Err(err).Msg("[SESSION] соединение с Telegram прервано")
		}
		errCh <- err
	}()

	select {
	case <-ready:
		return nil
	case err := <-errCh:
		cancel()
		if err == nil {
			err = ErrNotConnected
		}
		return fmt.Errorf("не удалось подключиться: %w", err)
	case <-ctx.Done():
		cancel()
		<-runDone
		return ctx.Err()
	}
}

// Disconnect останавливает клиент и ждёт завершения client.Run. Повторный вызов безопасен.
func (s *Session) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	if s.disconnecting || s.cancel == nil {
		s.mu.Unlock()
		return nil
	}
	s.disconnecting = true
	cancel, runDone := s.cancel, s.runDone
	s.mu.Unlock()

	cancel()
	select {
	case <-runDone:
	case <-ctx.Done():
		s.log.Warn().Msg("[SESSION] не дождались остановки клиента")
	}

	s.mu.Lock()
	s.api = nil
	s.connected = false
	s.cancel = nil
	s.runDone = nil
	s.disconnecting = false
	s.mu.Unlock()
	s.log.Debug().Msg("[SESSION] отключено")
	return nil
}

// IsConnected сообщает, работает ли клиент.
func (s *Session) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected && !s.disconnecting
}

// IsAuthorized проверяет, что сохранённая сессия всё ещё авторизована.
func (s *Session) IsAuthorized(ctx context.Context) bool {
	if !s.IsConnected() {
		return false
	}
	status, err := s.client.Auth().Status(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("[SESSION] не удалось проверить авторизацию")
		return false
	}
	return status.Authorized
}

// apiClient возвращает tg.Client после ожидания лимитера.
func (s *Session) apiClient(ctx context.Context) (*tg.Client, error) {
	s.mu.RLock()
	api, ok := s.api, s.connected && !s.disconnecting
	s.mu.RUnlock()
	if !ok || api == nil {
		return nil, ErrNotConnected
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return api, nil
}
