package common

import (
	"context"
	"time"
)

// Sleep ждёт d и прерывается при отмене контекста.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		// Возвращаем ошибку контекста, чтобы прервать рассылку выше по стеку.
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
