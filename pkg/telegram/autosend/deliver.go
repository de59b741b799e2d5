package autosend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"autosender/models"
	"autosender/pkg/telegram"
)

// deliver отправляет text во все группы по порядку и возвращает число успешных и неудачных попыток.
// Ошибка одной группы не прерывает рассылку. После FLOOD_WAIT выдерживается пауза перед следующей
// попыткой, после каждой попытки ждём delay. Отмена контекста останавливает рассылку, счётчики
// тогда отражают только выполненные попытки.
func (e *Engine) deliver(ctx context.Context, log zerolog.Logger, s Session, repo Repository, text string, groups []models.Group, delay time.Duration) (successful, failed int) {
	start := time.Now()
	defer func() { e.metrics.DeliveryTime.Observe(time.Since(start).Seconds()) }()

	for _, g := range groups {
		if ctx.Err() != nil {
			log.Warn().Int("left", len(groups)-successful-failed).Msg("[AUTOSEND] рассылка прервана")
			return successful, failed
		}

		err := sendOne(ctx, s, g, text)
		var throttle *telegram.ThrottleError
		switch {
		case err == nil:
			successful++
			e.metrics.SendsTotal.WithLabelValues("success").Inc()
			repo.MarkGroupSent(context.WithoutCancel(ctx), g.ID)
		case errors.As(err, &throttle):
			failed++
			e.metrics.SendsTotal.WithLabelValues("throttled").Inc()
			e.metrics.ThrottleSeconds.Add(throttle.RetryAfter.Seconds())
			log.Warn().Str("group", g.Title).Dur("retry_after", throttle.RetryAfter).Msg("[AUTOSEND] FLOOD_WAIT, ожидание")
			if err := e.sleep(ctx, throttle.RetryAfter); err != nil {
				continue
			}
		default:
			failed++
			e.metrics.SendsTotal.WithLabelValues("failed").Inc()
			log.Warn().Err(err).Str("group", g.Title).Msg("[AUTOSEND] не удалось отправить в группу")
		}

		_ = e.sleep(ctx, delay)
	}
	return successful, failed
}

// sendOne превращает панику при отправке в обычную ошибку.
func sendOne(ctx context.Context, s Session, g models.Group, text string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("паника при отправке: %v", r)
		}
	}()
	return s.SendText(ctx, g, text)
}
