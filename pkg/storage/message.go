package storage

import (
	"context"
	"database/sql"
	"math/rand/v2"
	"strconv"
	"time"

	"autosender/models"
)

const messageColumns = `id, message_text, min_minutes, max_minutes, is_active, total_sent, created_at, last_sent, next_send`

// Интервалы на случай, если настройка отсутствует или повреждена.
const (
	defaultMinInterval = 60
	defaultMaxInterval = 90
)

// AddMessage сохраняет шаблон и планирует первую отправку через случайный интервал [min, max] минут.
func (db *DB) AddMessage(ctx context.Context, text string, minMinutes, maxMinutes int) bool {
	if minMinutes <= 0 || maxMinutes < minMinutes {
		db.log.Warn().Int("min", minMinutes).Int("max", maxMinutes).Msg("[DB WARN] некорректный интервал сообщения")
		return false
	}
	now := db.now()
	next := now.Add(jitter(minMinutes, maxMinutes))
	_, err := db.Conn.ExecContext(ctx,
		`INSERT INTO messages (message_text, min_minutes, max_minutes, created_at, next_send)
		 VALUES (?, ?, ?, ?, ?)`,
		text, minMinutes, maxMinutes, now.Unix(), next.Unix(),
	)
	if err != nil {
		db.log.Error().Err(err).Msg("[DB ERROR] не удалось добавить сообщение")
		return false
	}
	db.log.Info().Time("next_send", next).Msg("[DB INFO] добавлено сообщение")
	return true
}

// GetMessages возвращает сообщения в порядке добавления.
func (db *DB) GetMessages(ctx context.Context, activeOnly bool) []models.Message {
	query := `SELECT ` + messageColumns + ` FROM messages`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	return db.queryMessages(ctx, query+` ORDER BY id`)
}

// GetDueMessages возвращает активные сообщения, у которых наступило время next_send.
func (db *DB) GetDueMessages(ctx context.Context) []models.Message {
	return db.queryMessages(ctx,
		`SELECT `+messageColumns+` FROM messages
		 WHERE is_active = 1 AND next_send IS NOT NULL AND next_send <= ?
		 ORDER BY id`,
		db.now().Unix(),
	)
}

// GetMessage возвращает сообщение по ID или nil.
func (db *DB) GetMessage(ctx context.Context, id int64) *models.Message {
	msgs := db.queryMessages(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	if len(msgs) == 0 {
		return nil
	}
	return &msgs[0]
}

// RescheduleAfterSend увеличивает total_sent, ставит last_sent и переносит next_send.
// Интервал берётся из текущих настроек аккаунта, а не из границ самого сообщения.
func (db *DB) RescheduleAfterSend(ctx context.Context, id int64) bool {
	minMinutes, maxMinutes := db.intervalSettings(ctx)
	now := db.now()
	next := now.Add(jitter(minMinutes, maxMinutes))
	ok := db.execAffected(ctx, "обновить сообщение после отправки",
		`UPDATE messages
		 SET total_sent = total_sent + 1, last_sent = ?, next_send = ?
		 WHERE id = ?`,
		now.Unix(), next.Unix(), id,
	)
	if ok {
		db.log.Debug().Int64("message_id", id).Time("next_send", next).Msg("[DB] сообщение перенесено")
	}
	return ok
}

// UpdateMessageStatus включает или выключает сообщение.
func (db *DB) UpdateMessageStatus(ctx context.Context, id int64, active bool) bool {
	return db.execAffected(ctx, "обновить статус сообщения",
		`UPDATE messages SET is_active = ? WHERE id = ?`, active, id)
}

// DeleteMessage удаляет сообщение.
func (db *DB) DeleteMessage(ctx context.Context, id int64) bool {
	return db.execAffected(ctx, "удалить сообщение", `DELETE FROM messages WHERE id = ?`, id)
}

func (db *DB) queryMessages(ctx context.Context, query string, args ...any) []models.Message {
	rows, err := db.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		db.log.Error().Err(err).Msg("[DB ERROR] не удалось получить сообщения")
		return nil
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		var (
			m         models.Message
			createdAt int64
			lastSent  sql.NullInt64
			nextSend  sql.NullInt64
		)
		if err := rows.Scan(&m.ID, &m.Text, &m.MinMinutes, &m.MaxMinutes, &m.IsActive, &m.TotalSent, &createdAt, &lastSent, &nextSend); err != nil {
			db.log.Warn().Err(err).Msg("[DB WARN] не удалось прочитать сообщение")
			continue
		}
		m.CreatedAt = timeFromUnix(createdAt)
		m.LastSent = unixTime(lastSent)
		m.NextSend = unixTime(nextSend)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		db.log.Error().Err(err).Msg("[DB ERROR] ошибка чтения сообщений")
		return nil
	}
	return msgs
}

// intervalSettings читает min_interval/max_interval; при ошибке разбора берутся значения по умолчанию.
func (db *DB) intervalSettings(ctx context.Context) (int, int) {
	minMinutes := atoiOr(db.GetSetting(ctx, models.SettingMinInterval, strconv.Itoa(defaultMinInterval)), defaultMinInterval)
	maxMinutes := atoiOr(db.GetSetting(ctx, models.SettingMaxInterval, strconv.Itoa(defaultMaxInterval)), defaultMaxInterval)
	if minMinutes <= 0 {
		minMinutes = defaultMinInterval
	}
	if maxMinutes < minMinutes {
		maxMinutes = minMinutes
	}
	return minMinutes, maxMinutes
}

// jitter возвращает случайное целое число минут из [min, max].
func jitter(minMinutes, maxMinutes int) time.Duration {
	m := minMinutes
	if maxMinutes > minMinutes {
		m += rand.IntN(maxMinutes - minMinutes + 1)
	}
	return time.Duration(m) * time.Minute
}

func atoiOr(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
