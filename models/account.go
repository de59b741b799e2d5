package models

import "time"

// UserAccount хранит учётную запись Telegram, под которой аккаунт выполняет рассылку.
// В таблице user_account одновременно активна не более одной записи.
type UserAccount struct {
	ID          int64      `json:"id"`
	Phone       string     `json:"phone"`
	SessionFile string     `json:"session_file"` // Ссылка на сохранённую сессию gotd
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLogin   *time.Time `json:"last_login"`
}
