package telegram

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"autosender/models"
	"autosender/pkg/storage"
)

// Transport создаёт сессии Telegram поверх выбранного хранилища сессий.
type Transport struct {
	cfg      Config
	sessions storage.SessionBackend
	log      zerolog.Logger
}

func NewTransport(cfg Config, sessions storage.SessionBackend, log zerolog.Logger) *Transport {
	return &Transport{
		cfg:      cfg,
		sessions: sessions,
		log:      log.With().Str("component", "telegram").Logger(),
	}
}

// Establish поднимает сессию по сохранённой учётной записи.
// Неавторизованная сессия отключается, возвращается ErrUnauthorized.
func (t *Transport) Establish(ctx context.Context, user models.UserAccount) (*Session, error) {
	s, err := t.connect(ctx, user.SessionFile, user.Phone)
	if err != nil {
		return nil, err
	}
	if !s.IsAuthorized(ctx) {
		_ = s.Disconnect(ctx)
		return nil, ErrUnauthorized
	}
	s.log.Info().Msg("[SESSION] сессия восстановлена")
	return s, nil
}

// Open подключает новую сессию для входа по номеру телефона.
// Возвращает ссылку на хранилище, которую нужно сохранить в user_account после входа.
func (t *Transport) Open(ctx context.Context, accountID, phone string) (*Session, string, error) {
	ref := t.sessions.SessionRef(accountID, phone)
	s, err := t.connect(ctx, ref, phone)
	if err != nil {
		return nil, "", err
	}
	return s, ref, nil
}

func (t *Transport) connect(ctx context.Context, ref, phone string) (*Session, error) {
	log := t.log.With().Str("phone", MaskPhone(phone)).Logger()
	client, err := newClient(t.cfg, t.sessions.Storage(ref), log)
	if err != nil {
		return nil, err
	}
	s := newSession(client, t.cfg.RateLimit, log)
	if err := s.connect(ctx); err != nil {
		return nil, fmt.Errorf("сессия %s: %w", MaskPhone(phone), err)
	}
	return s, nil
}

// MaskPhone скрывает середину номера для логов.
func MaskPhone(phone string) string {
	if len(phone) < 4 {
		return "***"
	}
	masked := []byte(phone)
	for i := 2; i < len(masked)-2; i++ {
		masked[i] = '*'
	}
	return string(masked)
}
