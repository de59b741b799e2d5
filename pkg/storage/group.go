package storage

import (
	"context"
	"database/sql"

	"autosender/models"
)

const groupColumns = `id, group_link, group_title, group_id_telegram, access_hash, members_count, is_active, added_at, last_message_sent`

// AddGroup сохраняет группу после вступления. Возвращает false, если ссылка уже есть или запись не удалась.
func (db *DB) AddGroup(ctx context.Context, link string, info models.GroupInfo) bool {
	res, err := db.Conn.ExecContext(ctx,
		`INSERT INTO target_groups (group_link, group_title, group_id_telegram, access_hash, members_count, added_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(group_link) DO NOTHING`,
		link, info.Title, info.TelegramID, info.AccessHash, info.MembersCount, db.now().Unix(),
	)
	if err != nil {
		db.log.Error().Err(err).Str("link", link).Msg("[DB ERROR] не удалось добавить группу")
		return false
	}
	if n, _ := res.RowsAffected(); n == 0 {
		db.log.Warn().Str("link", link).Msg("[DB WARN] группа уже добавлена")
		return false
	}
	db.log.Info().Str("title", info.Title).Msg("[DB INFO] добавлена группа")
	return true
}

// GroupExists проверяет, есть ли уже группа с такой ссылкой.
func (db *DB) GroupExists(ctx context.Context, link string) bool {
	var n int
	if err := db.Conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM target_groups WHERE group_link = ?`, link).Scan(&n); err != nil {
		db.log.Error().Err(err).Msg("[DB ERROR] не удалось проверить группу")
		return false
	}
	return n > 0
}

// GetGroups возвращает группы в порядке добавления.
func (db *DB) GetGroups(ctx context.Context, activeOnly bool) []models.Group {
	query := `SELECT ` + groupColumns + ` FROM target_groups`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY id`

	rows, err := db.Conn.QueryContext(ctx, query)
	if err != nil {
		db.log.Error().Err(err).Msg("[DB ERROR] не удалось получить группы")
		return nil
	}
	defer rows.Close()

	var groups []models.Group
	for rows.Next() {
		var (
			g        models.Group
			tgID     sql.NullInt64
			addedAt  int64
			lastSent sql.NullInt64
		)
		if err := rows.Scan(&g.ID, &g.Link, &g.Title, &tgID, &g.AccessHash, &g.MembersCount, &g.IsActive, &addedAt, &lastSent); err != nil {
			db.log.Warn().Err(err).Msg("[DB WARN] не удалось прочитать группу")
			continue // Пропускаем проблемные записи
		}
		g.TelegramID = tgID.Int64
		g.AddedAt = timeFromUnix(addedAt)
		g.LastMessageSent = unixTime(lastSent)
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		db.log.Error().Err(err).Msg("[DB ERROR] ошибка чтения групп")
		return nil
	}
	return groups
}

// UpdateGroupStatus включает или выключает рассылку в группу.
func (db *DB) UpdateGroupStatus(ctx context.Context, id int64, active bool) bool {
	return db.execAffected(ctx, "обновить статус группы",
		`UPDATE target_groups SET is_active = ? WHERE id = ?`, active, id)
}

// DeleteGroup удаляет группу.
func (db *DB) DeleteGroup(ctx context.Context, id int64) bool {
	return db.execAffected(ctx, "удалить группу", `DELETE FROM target_groups WHERE id = ?`, id)
}

// MarkGroupSent фиксирует время последней успешной отправки в группу.
func (db *DB) MarkGroupSent(ctx context.Context, id int64) bool {
	return db.execAffected(ctx, "отметить отправку в группу",
		`UPDATE target_groups SET last_message_sent = ? WHERE id = ?`, db.now().Unix(), id)
}

// execAffected выполняет изменение одной записи; false при ошибке или если запись не найдена.
func (db *DB) execAffected(ctx context.Context, action, query string, args ...any) bool {
	res, err := db.Conn.ExecContext(ctx, query, args...)
	if err != nil {
		db.log.Error().Err(err).Msgf("[DB ERROR] не удалось %s", action)
		return false
	}
	n, err := res.RowsAffected()
	if err != nil {
		db.log.Error().Err(err).Msgf("[DB ERROR] не удалось %s", action)
		return false
	}
	return n > 0
}
