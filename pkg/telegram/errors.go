package telegram

import (
	"errors"
	"fmt"
	"time"

	"github.com/gotd/td/tgerr"
)

var (
	ErrUnauthorized  = errors.New("сессия не авторизована")
	ErrNotConnected  = errors.New("клиент не подключён")
	ErrInvalidLink   = errors.New("некорректная ссылка на группу")
	ErrNotGroup      = errors.New("по ссылке нет группы или канала")
	ErrUnknownTarget = errors.New("у группы нет telegram id")

	// Ошибки входа показываются пользователю как есть.
	ErrPasswordNeeded   = errors.New("требуется пароль двухфакторной аутентификации")
	ErrCodeInvalid      = errors.New("неверный код")
	ErrCodeExpired      = errors.New("срок действия кода истёк")
	ErrPasswordInvalid  = errors.New("неверный пароль")
	ErrPhoneInvalid     = errors.New("неверный номер телефона")
	ErrUnexpectedAnswer = errors.New("неожиданный ответ Telegram")
)

// ThrottleError означает, что Telegram требует подождать перед следующим запросом.
type ThrottleError struct {
	RetryAfter time.Duration
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("подождите %d секунд перед повторной попыткой", int(e.RetryAfter.Seconds()))
}

// PermanentError означает, что отправка в группу не удалась и повтор без изменений не поможет.
type PermanentError struct {
	Reason string
	Err    error
}

func (e *PermanentError) Error() string {
	return e.Reason
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// classifySendError переводит ошибку gotd в ThrottleError или PermanentError.
func classifySendError(err error) error {
	if err == nil {
		return nil
	}
	if d, ok := tgerr.AsFloodWait(err); ok {
		return &ThrottleError{RetryAfter: d}
	}
	// SLOWMODE_WAIT касается одного чата: остальные группы аккаунта не ждут.
	if rpcErr, ok := tgerr.As(err); ok {
		return &PermanentError{Reason: rpcErr.Type, Err: err}
	}
	return &PermanentError{Reason: err.Error(), Err: err}
}

// throttleFrom возвращает ThrottleError, если err является FLOOD_WAIT.
func throttleFrom(err error) (*ThrottleError, bool) {
	if d, ok := tgerr.AsFloodWait(err); ok {
		return &ThrottleError{RetryAfter: d}, true
	}
	return nil, false
}
