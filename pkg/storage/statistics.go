package storage

import (
	"context"
	"database/sql"
	"errors"

	"autosender/models"
)

const dateLayout = "2006-01-02"

// RecordStats добавляет значения к статистике текущих суток.
// Повторные вызовы за одну дату складываются, а не перезаписывают запись.
func (db *DB) RecordStats(ctx context.Context, sent, successful, failed int) bool {
	if sent == 0 && successful == 0 && failed == 0 {
		return true
	}
	_, err := db.Conn.ExecContext(ctx,
		`INSERT INTO statistics (date, messages_sent, successful_sends, failed_sends)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(date) DO UPDATE SET
			messages_sent = statistics.messages_sent + excluded.messages_sent,
			successful_sends = statistics.successful_sends + excluded.successful_sends,
			failed_sends = statistics.failed_sends + excluded.failed_sends`,
		db.now().Format(dateLayout), sent, successful, failed,
	)
	if err != nil {
		db.log.Error().Err(err).Msg("[DB ERROR] не удалось обновить статистику")
		return false
	}
	return true
}

// GetTodayStats возвращает статистику за текущие сутки; без записей возвращает нули.
func (db *DB) GetTodayStats(ctx context.Context) models.Statistics {
	stat := models.Statistics{Date: db.now().Format(dateLayout)}
	err := db.Conn.QueryRowContext(ctx,
		`SELECT messages_sent, successful_sends, failed_sends FROM statistics WHERE date = ?`,
		stat.Date,
	).Scan(&stat.MessagesSent, &stat.SuccessfulSends, &stat.FailedSends)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		db.log.Error().Err(err).Msg("[DB ERROR] не удалось получить статистику за сегодня")
	}
	return stat
}

// GetTotalStats собирает сводку: всего отправлено, активные группы и сообщения, итоги дня.
func (db *DB) GetTotalStats(ctx context.Context) models.TotalStats {
	var total models.TotalStats

	if err := db.Conn.QueryRowContext(ctx, `SELECT COALESCE(SUM(total_sent), 0) FROM messages`).Scan(&total.TotalSent); err != nil {
		db.log.Error().Err(err).Msg("[DB ERROR] не удалось посчитать отправленные сообщения")
		return models.TotalStats{}
	}
	if err := db.Conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM target_groups WHERE is_active = 1`).Scan(&total.TotalGroups); err != nil {
		db.log.Error().Err(err).Msg("[DB ERROR] не удалось посчитать группы")
		return models.TotalStats{}
	}
	if err := db.Conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE is_active = 1`).Scan(&total.TotalMessages); err != nil {
		db.log.Error().Err(err).Msg("[DB ERROR] не удалось посчитать сообщения")
		return models.TotalStats{}
	}

	today := db.GetTodayStats(ctx)
	total.TodaySent = today.MessagesSent
	total.TodaySuccessful = today.SuccessfulSends
	total.TodayFailed = today.FailedSends
	return total
}
