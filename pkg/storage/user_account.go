package storage

import (
	"context"
	"database/sql"
	"errors"

	"autosender/models"
)

// SaveUser сохраняет учётную запись после успешного входа.
// Остальные записи деактивируются в той же транзакции, чтобы активной всегда оставалась одна.
func (db *DB) SaveUser(ctx context.Context, phone, sessionFile string) bool {
	now := db.now().Unix()

	tx, err := db.Conn.BeginTx(ctx, nil)
	if err != nil {
		db.log.Error().Err(err).Msg("[DB ERROR] не удалось начать транзакцию сохранения пользователя")
		return false
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE user_account SET is_active = 0 WHERE phone <> ?`, phone); err != nil {
		db.log.Error().Err(err).Msg("[DB ERROR] не удалось деактивировать прежние учётные записи")
		return false
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_account (phone, session_file, is_active, created_at, last_login)
		 VALUES (?, ?, 1, ?, ?)
		 ON CONFLICT(phone) DO UPDATE SET
			session_file = excluded.session_file,
			is_active = 1,
			last_login = excluded.last_login`,
		phone, sessionFile, now, now,
	)
	if err != nil {
		db.log.Error().Err(err).Msg("[DB ERROR] не удалось сохранить учётную запись")
		return false
	}
	if err := tx.Commit(); err != nil {
		db.log.Error().Err(err).Msg("[DB ERROR] не удалось зафиксировать учётную запись")
		return false
	}
	return true
}

// GetUser возвращает активную учётную запись или nil, если входа ещё не было.
func (db *DB) GetUser(ctx context.Context) *models.UserAccount {
	var (
		u         models.UserAccount
		createdAt int64
		lastLogin sql.NullInt64
	)
	err := db.Conn.QueryRowContext(ctx,
		`SELECT id, phone, session_file, is_active, created_at, last_login
		 FROM user_account WHERE is_active = 1 LIMIT 1`,
	).Scan(&u.ID, &u.Phone, &u.SessionFile, &u.IsActive, &createdAt, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		db.log.Error().Err(err).Msg("[DB ERROR] не удалось получить учётную запись")
		return nil
	}
	u.CreatedAt = timeFromUnix(createdAt)
	u.LastLogin = unixTime(lastLogin)
	return &u
}

// UserExists сообщает, выполнен ли вход хотя бы под одной учётной записью.
func (db *DB) UserExists(ctx context.Context) bool {
	return db.GetUser(ctx) != nil
}
