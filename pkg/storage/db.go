package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"autosender/models"

	_ "modernc.org/sqlite"
)

// DBFileName задаёт имя файла базы внутри каталога аккаунта.
const DBFileName = "bot.db"

const schema = `
CREATE TABLE IF NOT EXISTS user_account (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	phone TEXT UNIQUE NOT NULL,
	session_file TEXT NOT NULL,
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at INTEGER NOT NULL,
	last_login INTEGER
);

CREATE TABLE IF NOT EXISTS target_groups (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	group_link TEXT UNIQUE NOT NULL,
	group_title TEXT NOT NULL DEFAULT '',
	group_id_telegram INTEGER,
	access_hash INTEGER NOT NULL DEFAULT 0,
	members_count INTEGER NOT NULL DEFAULT 0,
	is_active INTEGER NOT NULL DEFAULT 1,
	added_at INTEGER NOT NULL,
	last_message_sent INTEGER
);

CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	message_text TEXT NOT NULL,
	min_minutes INTEGER NOT NULL DEFAULT 60,
	max_minutes INTEGER NOT NULL DEFAULT 90,
	is_active INTEGER NOT NULL DEFAULT 1,
	total_sent INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	last_sent INTEGER,
	next_send INTEGER
);

CREATE TABLE IF NOT EXISTS statistics (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	date TEXT NOT NULL UNIQUE,
	messages_sent INTEGER NOT NULL DEFAULT 0,
	successful_sends INTEGER NOT NULL DEFAULT 0,
	failed_sends INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT ''
);
`

// DB хранит данные одного аккаунта: группы, сообщения, настройки, статистика и учётная запись.
// Методы не возвращают ошибок: сбой пишется в лог, а вызывающий получает пустой результат или false
// и повторяет работу на следующем проходе планировщика.
type DB struct {
	Conn *sql.DB
	log  zerolog.Logger
	now  func() time.Time
}

// Open открывает (или создаёт) базу аккаунта в каталоге dir и засевает настройки по умолчанию.
// Каталог должен уже существовать: Open его не создаёт, иначе удалённый аккаунт мог бы воскреснуть.
func Open(dir string, log zerolog.Logger) (*DB, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("каталог базы недоступен: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s не является каталогом", dir)
	}
	conn, err := sql.Open("sqlite", filepath.Join(dir, DBFileName))
	if err != nil {
		return nil, err
	}
	// SQLite плохо переносит конкурентных писателей.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	_, _ = conn.Exec("PRAGMA busy_timeout = 5000")
	_, _ = conn.Exec("PRAGMA journal_mode = WAL")

	db := &DB{Conn: conn, log: log, now: time.Now}
	if err := db.init(context.Background()); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return db, nil
}

// init создаёт таблицы и добавляет отсутствующие настройки, не трогая существующие.
func (db *DB) init(ctx context.Context) error {
	if _, err := db.Conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ошибка создания схемы: %w", err)
	}
	for _, s := range models.DefaultSettings {
		_, err := db.Conn.ExecContext(ctx,
			`INSERT INTO settings (key, value, description) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO NOTHING`,
			s.Key, s.Value, s.Description,
		)
		if err != nil {
			return fmt.Errorf("ошибка записи настройки %s: %w", s.Key, err)
		}
	}
	db.log.Debug().Msg("[DB] база аккаунта инициализирована")
	return nil
}

// Close закрывает соединение с базой.
func (db *DB) Close() error {
	if db == nil || db.Conn == nil {
		return nil
	}
	return db.Conn.Close()
}

func timeFromUnix(v int64) time.Time {
	return time.Unix(v, 0)
}

// unixTime переводит nullable unix-время из базы в *time.Time.
func unixTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0)
	return &t
}
