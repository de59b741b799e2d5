package storage

import (
	"context"
	"database/sql"
	"errors"

	"autosender/models"
)

// GetSetting возвращает значение настройки или def, если ключа нет. Отсутствующий ключ не записывается.
func (db *DB) GetSetting(ctx context.Context, key, def string) string {
	var value string
	err := db.Conn.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return def
	}
	if err != nil {
		db.log.Error().Err(err).Str("key", key).Msg("[DB ERROR] не удалось прочитать настройку")
		return def
	}
	return value
}

// SetSetting записывает значение, сохраняя описание существующей настройки.
func (db *DB) SetSetting(ctx context.Context, key, value string) bool {
	_, err := db.Conn.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		db.log.Error().Err(err).Str("key", key).Msg("[DB ERROR] не удалось сохранить настройку")
		return false
	}
	return true
}

// GetAllSettings возвращает все настройки аккаунта.
func (db *DB) GetAllSettings(ctx context.Context) []models.Setting {
	rows, err := db.Conn.QueryContext(ctx, `SELECT key, value, description FROM settings ORDER BY key`)
	if err != nil {
		db.log.Error().Err(err).Msg("[DB ERROR] не удалось получить настройки")
		return nil
	}
	defer rows.Close()

	var settings []models.Setting
	for rows.Next() {
		var s models.Setting
		if err := rows.Scan(&s.Key, &s.Value, &s.Description); err != nil {
			db.log.Warn().Err(err).Msg("[DB WARN] не удалось прочитать настройку")
			continue
		}
		settings = append(settings, s)
	}
	return settings
}
