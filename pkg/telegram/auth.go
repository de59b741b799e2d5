package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
)

// SendCode запрашивает код подтверждения и возвращает phone_code_hash.
func (s *Session) SendCode(ctx context.Context, phone string) (string, error) {
	if !s.IsConnected() {
		return "", ErrNotConnected
	}
	sentCode, err := s.client.Auth().SendCode(ctx, phone, auth.SendCodeOptions{})
	if err != nil {
		return "", authError(err)
	}
	sent, ok := sentCode.(*tg.AuthSentCode)
	if !ok {
		s.log.Error().Msgf("[AUTH] неожиданный тип ответа: %T", sentCode)
		return "", fmt.Errorf("%w: %T", ErrUnexpectedAnswer, sentCode)
	}
	return sent.PhoneCodeHash, nil
}

// SignIn завершает вход по коду. ErrPasswordNeeded означает, что нужен пароль 2FA.
func (s *Session) SignIn(ctx context.Context, phone, code, phoneCodeHash string) error {
	if !s.IsConnected() {
		return ErrNotConnected
	}
	if _, err := s.client.Auth().SignIn(ctx, phone, code, phoneCodeHash); err != nil {
		if errors.Is(err, auth.ErrPasswordAuthNeeded) {
			return ErrPasswordNeeded
		}
		return authError(err)
	}
	return nil
}

// Password завершает вход паролем двухфакторной аутентификации.
func (s *Session) Password(ctx context.Context, password string) error {
	if !s.IsConnected() {
		return ErrNotConnected
	}
	if _, err := s.client.Auth().Password(ctx, password); err != nil {
		if errors.Is(err, auth.ErrPasswordInvalid) {
			return ErrPasswordInvalid
		}
		return authError(err)
	}
	return nil
}

// authError переводит ошибки Telegram в сообщения для пользователя.
func authError(err error) error {
	if t, ok := throttleFrom(err); ok {
		return t
	}
	switch {
	case tgerr.Is(err, "PHONE_CODE_INVALID", "PHONE_CODE_EMPTY"):
		return ErrCodeInvalid
	case tgerr.Is(err, "PHONE_CODE_EXPIRED"):
		return ErrCodeExpired
	case tgerr.Is(err, "PHONE_NUMBER_INVALID", "PHONE_NUMBER_BANNED"):
		return ErrPhoneInvalid
	case tgerr.Is(err, "PASSWORD_HASH_INVALID"):
		return ErrPasswordInvalid
	}
	return err
}
