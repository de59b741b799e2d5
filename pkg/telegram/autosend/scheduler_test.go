package autosend

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autosender/pkg/metrics"
)

type staticLister struct {
	mu    sync.Mutex
	ids   []string
	fails int // сколько первых вызовов завершатся ошибкой
	calls int
}

func (l *staticLister) List() ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.calls <= l.fails {
		return nil, errors.New("каталог недоступен")
	}
	return l.ids, nil
}

// recordingProcessor считает вызовы по аккаунтам и выполняет заданное поведение.
type recordingProcessor struct {
	mu     sync.Mutex
	calls  map[string]int
	handle func(ctx context.Context, id string) error
}

func (p *recordingProcessor) ProcessAccount(ctx context.Context, id string) error {
	p.mu.Lock()
	if p.calls == nil {
		p.calls = map[string]int{}
	}
	p.calls[id]++
	p.mu.Unlock()
	if p.handle != nil {
		return p.handle(ctx, id)
	}
	return nil
}

func (p *recordingProcessor) count(id string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[id]
}

func newTestScheduler(l lister, p processor) *Scheduler {
	return NewScheduler(l, p, SchedulerConfig{
		CheckInterval: 5 * time.Millisecond,
		ErrorCooldown: 5 * time.Millisecond,
	}, metrics.New(prometheus.NewRegistry()), zerolog.Nop())
}

func runScheduler(t *testing.T, s *Scheduler) chan struct{} {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Start(context.Background())
	}()
	require.Eventually(t, func() bool { return s.State() == Running }, time.Second, time.Millisecond)
	return done
}

func TestSchedulerSweepsAllAccounts(t *testing.T) {
	proc := &recordingProcessor{}
	s := newTestScheduler(&staticLister{ids: []string{"a", "b"}}, proc)
	assert.Equal(t, Stopped, s.State())

	done := runScheduler(t, s)
	require.Eventually(t, func() bool { return proc.count("a") >= 2 && proc.count("b") >= 2 }, time.Second, time.Millisecond)

	s.Stop()
	<-done
	assert.Equal(t, Stopped, s.State())
	assert.Equal(t, "stopped", s.State().String())
}

func TestSchedulerSurvivesPanicsAndErrors(t *testing.T) {
	proc := &recordingProcessor{handle: func(ctx context.Context, id string) error {
		switch id {
		case "panic":
			panic("сбой аккаунта")
		case "error":
			return errors.New("ошибка аккаунта")
		}
		return nil
	}}
	s := newTestScheduler(&staticLister{ids: []string{"error", "ok", "panic"}}, proc)

	done := runScheduler(t, s)
	require.Eventually(t, func() bool { return proc.count("ok") >= 3 && proc.count("panic") >= 3 }, time.Second, time.Millisecond)
	s.Stop()
	<-done
}

func TestSchedulerCooldownAfterListError(t *testing.T) {
	lister := &staticLister{ids: []string{"a"}, fails: 2}
	proc := &recordingProcessor{}
	s := newTestScheduler(lister, proc)

	done := runScheduler(t, s)
	require.Eventually(t, func() bool { return proc.count("a") >= 1 }, time.Second, time.Millisecond)
	s.Stop()
	<-done
}

func TestSchedulerSlowAccountDoesNotBlockOthers(t *testing.T) {
	release := make(chan struct{})
	proc := &recordingProcessor{handle: func(ctx context.Context, id string) error {
		if id == "slow" {
			<-release
		}
		return nil
	}}
	s := newTestScheduler(&staticLister{ids: []string{"fast", "slow"}}, proc)

	done := runScheduler(t, s)
	require.Eventually(t, func() bool { return proc.count("fast") >= 5 }, time.Second, time.Millisecond)
	assert.Equal(t, 1, proc.count("slow"), "занятый аккаунт не запускается повторно")

	close(release)
	s.Stop()
	<-done
}

func TestSchedulerBlockedAccountsDoNotStarveOthers(t *testing.T) {
	release := make(chan struct{})
	ids := []string{"b0", "b1", "b2", "b3", "b4", "b5", "b6", "b7", "z"}
	proc := &recordingProcessor{handle: func(ctx context.Context, id string) error {
		if id != "z" {
			<-release
		}
		return nil
	}}
	s := newTestScheduler(&staticLister{ids: ids}, proc)

	done := runScheduler(t, s)
	require.Eventually(t, func() bool { return proc.count("z") >= 3 }, time.Second, time.Millisecond,
		"аккаунты, ждущие FLOOD_WAIT, не должны занимать слоты остальных")
	for _, id := range ids[:8] {
		assert.Equal(t, 1, proc.count(id))
	}

	close(release)
	s.Stop()
	<-done
}

func TestSchedulerStopWaitsForInFlight(t *testing.T) {
	release := make(chan struct{})
	var finished atomic.Bool
	proc := &recordingProcessor{handle: func(ctx context.Context, id string) error {
		<-release
		finished.Store(true)
		return nil
	}}
	s := newTestScheduler(&staticLister{ids: []string{"a"}}, proc)

	done := runScheduler(t, s)
	require.Eventually(t, func() bool { return proc.count("a") == 1 }, time.Second, time.Millisecond)
	s.Stop()

	select {
	case <-done:
		t.Fatal("Start вернулся до завершения аккаунта")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)
	<-done
	assert.True(t, finished.Load())
}

func TestSchedulerStartTwice(t *testing.T) {
	s := newTestScheduler(&staticLister{}, &recordingProcessor{})
	done := runScheduler(t, s)

	returned := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("повторный Start должен сразу вернуться")
	}
	s.Stop()
	<-done
}

func TestSchedulerStopsOnContextCancel(t *testing.T) {
	s := newTestScheduler(&staticLister{ids: []string{"a"}}, &recordingProcessor{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Start(ctx)
	}()
	require.Eventually(t, func() bool { return s.State() == Running }, time.Second, time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, Stopped, s.State())
}

func TestSchedulerRestartWhileDraining(t *testing.T) {
	release := make(chan struct{})
	proc := &recordingProcessor{handle: func(ctx context.Context, id string) error {
		<-release
		return nil
	}}
	s := newTestScheduler(&staticLister{ids: []string{"a"}}, proc)

	first := runScheduler(t, s)
	require.Eventually(t, func() bool { return proc.count("a") == 1 }, time.Second, time.Millisecond)
	s.Stop()
	assert.Equal(t, Stopped, s.State())

	second := runScheduler(t, s)
	select {
	case <-first:
		t.Fatal("первый цикл вернулся до завершения аккаунта")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	<-first
	assert.Equal(t, Running, s.State(), "завершение старого цикла не сбрасывает новый")
	require.Eventually(t, func() bool { return proc.count("a") >= 3 }, time.Second, time.Millisecond)

	s.Stop()
	select {
	case <-second:
	case <-time.After(time.Second):
		t.Fatal("второй цикл не остановился")
	}
	assert.Equal(t, Stopped, s.State())
}
