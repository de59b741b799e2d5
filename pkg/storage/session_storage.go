package storage

import (
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gotd/td/session"
	"github.com/rs/zerolog"

	_ "github.com/lib/pq"

	"autosender/models"
)

// SessionName возвращает имя файла сессии, производное от номера телефона.
func SessionName(phone string) string {
	sum := md5.Sum([]byte(phone))
	return hex.EncodeToString(sum[:]) + ".session"
}

// SessionBackend выдаёт хранилища сессий gotd.
// Ссылка (ref) записывается в user_account.session_file и по ней же сессия открывается повторно.
type SessionBackend interface {
	SessionRef(accountID, phone string) string
	Storage(ref string) session.Storage
}

// FileSessions хранит сессии файлами в каталоге аккаунта.
type FileSessions struct {
	Dir *Directory
}

func (f FileSessions) SessionRef(accountID, phone string) string {
	return filepath.Join(f.Dir.SessionsDir(accountID), SessionName(phone))
}

func (f FileSessions) Storage(ref string) session.Storage {
	return &session.FileStorage{Path: ref}
}

const sessionTableSchema = `
CREATE TABLE IF NOT EXISTS account_session (
	name TEXT PRIMARY KEY,
	data_json TEXT NOT NULL,
	date_time TIMESTAMP NOT NULL DEFAULT NOW()
)`

// PostgresSessions хранит сессии всех аккаунтов в таблице account_session.
type PostgresSessions struct {
	DB  *sql.DB
	Log zerolog.Logger
}

// OpenPostgresSessions подключается к Postgres и создаёт таблицу сессий.
func OpenPostgresSessions(ctx context.Context, dsn string, log zerolog.Logger) (*PostgresSessions, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("postgres недоступен: %w", err)
	}
	if _, err := conn.ExecContext(ctx, sessionTableSchema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ошибка создания account_session: %w", err)
	}
	return &PostgresSessions{DB: conn, Log: log}, nil
}

func (p *PostgresSessions) SessionRef(accountID, phone string) string {
	return accountID + "/" + SessionName(phone)
}

func (p *PostgresSessions) Storage(ref string) session.Storage {
	return &DBSessionStorage{DB: p.DB, Name: ref, log: p.Log}
}

// Close закрывает соединение с Postgres.
func (p *PostgresSessions) Close() error {
	return p.DB.Close()
}

// DBSessionStorage хранит и загружает сессию Telegram из таблицы account_session.
type DBSessionStorage struct {
	DB   *sql.DB
	Name string
	log  zerolog.Logger
}

// LoadSession загружает текст сессии из БД.
func (s *DBSessionStorage) LoadSession(ctx context.Context) ([]byte, error) {
	rec, err := s.record(ctx)
	if err != nil {
		return nil, err
	}
	return []byte(rec.DataJSON), nil
}

func (s *DBSessionStorage) record(ctx context.Context) (*models.AccountSession, error) {
	if s == nil || s.DB == nil {
		return nil, session.ErrNotFound
	}

	var rec models.AccountSession
	err := s.DB.QueryRowContext(ctx,
		"SELECT name, data_json, date_time FROM account_session WHERE name = $1", s.Name,
	).Scan(&rec.Name, &rec.DataJSON, &rec.DateTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		s.log.Error().Err(err).Str("session", s.Name).Msg("[DBSessionStorage] ошибка чтения сессии")
		return nil, err
	}
	return &rec, nil
}

// StoreSession сохраняет текст сессии в БД.
func (s *DBSessionStorage) StoreSession(ctx context.Context, data []byte) error {
	if s == nil || s.DB == nil {
		return session.ErrNotFound
	}
	// Одна запись на имя сессии
	_, err := s.DB.ExecContext(
		ctx,
		"INSERT INTO account_session (name, data_json) VALUES ($1, $2) "+
			"ON CONFLICT (name) DO UPDATE SET data_json = EXCLUDED.data_json, date_time = NOW()",
		s.Name,
		string(data),
	)
	if err != nil {
		s.log.Error().Err(err).Str("session", s.Name).Msg("[DBSessionStorage] ошибка сохранения сессии")
		return err
	}
	return nil
}
