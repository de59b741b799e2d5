package autosend

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"autosender/internal/common"
	"autosender/models"
	"autosender/pkg/metrics"
	"autosender/pkg/telegram/account_mutex"
)

// SendResult хранит итог немедленной рассылки.
type SendResult struct {
	Successful    int `json:"successful"`
	Failed        int `json:"failed"`
	MessagesCount int `json:"messages_count"`
	GroupsCount   int `json:"groups_count"`
}

// Engine выполняет рассылку для одного аккаунта.
// Все отправки одного аккаунта идут под одной блокировкой, разные аккаунты работают параллельно.
type Engine struct {
	accounts     Accounts
	pool         *Pool
	locks        *account_mutex.Mutex
	metrics      *metrics.Metrics
	log          zerolog.Logger
	defaultDelay int // секунды, если send_delay не задан

	sleep func(ctx context.Context, d time.Duration) error
}

func NewEngine(accounts Accounts, pool *Pool, m *metrics.Metrics, defaultDelay int, log zerolog.Logger) *Engine {
	log = log.With().Str("component", "autosend").Logger()
	return &Engine{
		accounts:     accounts,
		pool:         pool,
		locks:        account_mutex.New(log),
		metrics:      m,
		log:          log,
		defaultDelay: defaultDelay,
		sleep:        common.Sleep,
	}
}

// ProcessAccount выполняет плановый проход по аккаунту и рассылает сообщения, у которых наступило время,
// и переносит их next_send. Всё, что мешает отправке (выключен auto_send, нет групп, нет сессии),
// оставляет состояние как есть до следующего прохода.
func (e *Engine) ProcessAccount(ctx context.Context, accountID string) error {
	if err := e.locks.Lock(ctx, accountID); err != nil {
		return err
	}
	defer e.locks.Unlock(accountID)
	// Открываем базу под замком: DeleteAccount держит тот же замок.
	repo, err := e.accounts.Repository(accountID)
	if err != nil {
		return err
	}

	log := e.log.With().Str("account", accountID).Logger()

	if repo.GetSetting(ctx, models.SettingAutoSend, "1") != "1" {
		log.Debug().Msg("[AUTOSEND] авторассылка выключена")
		return nil
	}
	due := repo.GetDueMessages(ctx)
	if len(due) == 0 {
		return nil
	}
	groups := repo.GetGroups(ctx, true)
	if len(groups) == 0 {
		log.Warn().Int("messages", len(due)).Msg("[AUTOSEND] нет активных групп")
		return nil
	}
	session := e.pool.GetOrCreateSession(ctx, accountID, repo)
	if session == nil {
		log.Warn().Msg("[AUTOSEND] сессия недоступна")
		return nil
	}
	delay := e.sendDelay(ctx, repo)
	// Результат уже выполненных отправок записывается даже при отмене
	wctx := context.WithoutCancel(ctx)

	for _, msg := range due {
		log.Info().Int64("message_id", msg.ID).Int("groups", len(groups)).Msg("[AUTOSEND] отправка сообщения")
		ok, failed := e.deliver(ctx, log, session, repo, msg.Text, groups, delay)
		repo.RescheduleAfterSend(wctx, msg.ID)
		repo.RecordStats(wctx, ok+failed, ok, failed)
		log.Info().Int64("message_id", msg.ID).Int("successful", ok).Int("failed", failed).Msg("[AUTOSEND] сообщение отправлено")
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

// SendNow сразу рассылает все активные сообщения во все активные группы.
// next_send не меняется, статистика пишется одной записью.
func (e *Engine) SendNow(ctx context.Context, accountID string) (*SendResult, error) {
	if err := e.locks.Lock(ctx, accountID); err != nil {
		return nil, err
	}
	defer e.locks.Unlock(accountID)
	// Открываем базу под замком: DeleteAccount держит тот же замок.
	repo, err := e.accounts.Repository(accountID)
	if err != nil {
		return nil, err
	}

	log := e.log.With().Str("account", accountID).Logger()

	messages := repo.GetMessages(ctx, true)
	if len(messages) == 0 {
		return nil, ErrNoActiveMessages
	}
	groups := repo.GetGroups(ctx, true)
	if len(groups) == 0 {
		return nil, ErrNoActiveGroups
	}
	session := e.pool.GetOrCreateSession(ctx, accountID, repo)
	if session == nil {
		return nil, ErrSessionUnavailable
	}
	delay := e.sendDelay(ctx, repo)

	res := &SendResult{MessagesCount: len(messages), GroupsCount: len(groups)}
	for _, msg := range messages {
		ok, failed := e.deliver(ctx, log, session, repo, msg.Text, groups, delay)
		res.Successful += ok
		res.Failed += failed
		if ctx.Err() != nil {
			break
		}
	}
	repo.RecordStats(context.WithoutCancel(ctx), res.Successful+res.Failed, res.Successful, res.Failed)
	log.Info().Int("successful", res.Successful).Int("failed", res.Failed).Msg("[AUTOSEND] немедленная рассылка завершена")
	return res, ctx.Err()
}

// sendDelay читает send_delay в секундах. Битое или отрицательное значение означает отсутствие паузы.
func (e *Engine) sendDelay(ctx context.Context, repo Repository) time.Duration {
	raw := repo.GetSetting(ctx, models.SettingSendDelay, strconv.Itoa(e.defaultDelay))
	sec, err := strconv.Atoi(raw)
	if err != nil {
		e.log.Warn().Str("value", raw).Msg("[AUTOSEND] некорректный send_delay")
		sec = e.defaultDelay
	}
	if sec < 0 {
		sec = 0
	}
	return time.Duration(sec) * time.Second
}
