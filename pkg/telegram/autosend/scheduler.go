package autosend

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"autosender/pkg/metrics"
)

// State описывает состояние планировщика.
type State int32

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// processor выполняет плановый проход по одному аккаунту. Реализация: *Engine.
type processor interface {
	ProcessAccount(ctx context.Context, accountID string) error
}

// lister перечисляет аккаунты.
type lister interface {
	List() ([]string, error)
}

// SchedulerConfig задаёт параметры цикла.
type SchedulerConfig struct {
	CheckInterval time.Duration // пауза между проходами
	ErrorCooldown time.Duration // пауза после сбоя прохода
}

// Scheduler раз в CheckInterval запускает ProcessAccount для каждого аккаунта.
// Каждый аккаунт обрабатывается в своей горутине без общего лимита, поэтому
// ожидание FLOOD_WAIT одного аккаунта не задерживает остальные. Аккаунт, который
// ещё не закончил прошлый проход, пропускается.
type Scheduler struct {
	accounts lister
	engine   processor
	cfg      SchedulerConfig
	metrics  *metrics.Metrics
	log      zerolog.Logger

	state atomic.Int32

	mu       sync.Mutex
	stopCh   chan struct{}
	inFlight map[string]struct{}
}

func NewScheduler(accounts lister, engine processor, cfg SchedulerConfig, m *metrics.Metrics, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		accounts: accounts,
		engine:   engine,
		cfg:      cfg,
		metrics:  m,
		log:      log.With().Str("component", "scheduler").Logger(),
		inFlight: make(map[string]struct{}),
	}
}

// State возвращает текущее состояние.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Start переводит планировщик в Running и крутит цикл до Stop или отмены ctx.
// Перед выходом дожидается аккаунтов, запущенных этим циклом. Если за это время
// планировщик успели запустить снова, состояние остаётся Running.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if !s.state.CompareAndSwap(int32(Stopped), int32(Running)) {
		s.mu.Unlock()
		s.log.Warn().Msg("[SCHEDULER] уже запущен")
		return
	}
	stopCh := make(chan struct{})
	s.stopCh = stopCh
	s.mu.Unlock()

	s.log.Info().Dur("interval", s.cfg.CheckInterval).Msg("[SCHEDULER] запущен")
	var wg sync.WaitGroup
	defer func() {
		wg.Wait()
		s.mu.Lock()
		if s.stopCh == stopCh {
			s.state.Store(int32(Stopped))
		}
		s.mu.Unlock()
		s.log.Info().Msg("[SCHEDULER] остановлен")
	}()

	for ctx.Err() == nil {
		select {
		case <-stopCh:
			return
		default:
		}
		pause := s.cfg.CheckInterval
		if err := s.sweep(ctx, stopCh, &wg); err != nil && !errors.Is(err, context.Canceled) {
			s.metrics.SweepErrors.Inc()
			s.log.Error().Err(err).Dur("cooldown", s.cfg.ErrorCooldown).Msg("[SCHEDULER] ошибка прохода")
			pause = s.cfg.ErrorCooldown
		}
		s.wait(ctx, stopCh, pause)
	}
}

// Stop переводит планировщик в Stopped. Уже запущенные аккаунты доработают до конца.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.CompareAndSwap(int32(Running), int32(Stopped)) {
		close(s.stopCh)
		s.log.Info().Msg("[SCHEDULER] получена команда остановки")
	}
}

// sweep запускает обработку всех аккаунтов и не ждёт её завершения.
func (s *Scheduler) sweep(ctx context.Context, stopCh <-chan struct{}, wg *sync.WaitGroup) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Str("stack", string(debug.Stack())).Msgf("[SCHEDULER] паника в проходе: %v", r)
			err = fmt.Errorf("паника в проходе: %v", r)
		}
	}()

	start := time.Now()
	s.metrics.SweepsTotal.Inc()
	defer func() { s.metrics.SweepDuration.Observe(time.Since(start).Seconds()) }()

	ids, err := s.accounts.List()
	if err != nil {
		return err
	}
	for _, id := range ids {
		select {
		case <-stopCh:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if !s.claim(id) {
			s.log.Debug().Str("account", id).Msg("[SCHEDULER] аккаунт ещё обрабатывается")
			continue
		}

		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			defer s.release(id)
			s.runAccount(ctx, id)
		}(id)
	}
	return nil
}

// runAccount изолирует сбой одного аккаунта от остальных.
func (s *Scheduler) runAccount(ctx context.Context, accountID string) {
	s.metrics.AccountsActive.Inc()
	defer s.metrics.AccountsActive.Dec()
	defer func() {
		if r := recover(); r != nil {
			s.metrics.AccountPanics.Inc()
			s.log.Error().Str("account", accountID).Str("stack", string(debug.Stack())).
				Msgf("[SCHEDULER] паника при обработке аккаунта: %v", r)
		}
	}()

	if err := s.engine.ProcessAccount(ctx, accountID); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Error().Err(err).Str("account", accountID).Msg("[SCHEDULER] ошибка обработки аккаунта")
	}
}

func (s *Scheduler) claim(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[id]; busy {
		return false
	}
	s.inFlight[id] = struct{}{}
	return true
}

func (s *Scheduler) release(id string) {
	s.mu.Lock()
	delete(s.inFlight, id)
	s.mu.Unlock()
}

func (s *Scheduler) wait(ctx context.Context, stopCh <-chan struct{}, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-stopCh:
	case <-timer.C:
	}
}
