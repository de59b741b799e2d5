package telegram

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gotd/td/tgerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifySendErrorFloodWait(t *testing.T) {
	err := classifySendError(fmt.Errorf("rpc: %w", tgerr.New(420, "FLOOD_WAIT_30")))

	var throttle *ThrottleError
	require.ErrorAs(t, err, &throttle)
	assert.Equal(t, 30*time.Second, throttle.RetryAfter)
}

func TestClassifySendErrorSlowModeIsPerGroup(t *testing.T) {
	err := classifySendError(tgerr.New(420, "SLOWMODE_WAIT_15"))

	var throttle *ThrottleError
	assert.False(t, errors.As(err, &throttle), "медленный режим одного чата не останавливает аккаунт")

	var permanent *PermanentError
	require.ErrorAs(t, err, &permanent)
	assert.Equal(t, "SLOWMODE_WAIT", permanent.Reason)
}

func TestClassifySendErrorPermanent(t *testing.T) {
	rpcErr := tgerr.New(403, "CHAT_WRITE_FORBIDDEN")
	err := classifySendError(rpcErr)

	var permanent *PermanentError
	require.ErrorAs(t, err, &permanent)
	assert.Equal(t, "CHAT_WRITE_FORBIDDEN", permanent.Reason)
	assert.True(t, tgerr.Is(err, "CHAT_WRITE_FORBIDDEN"), "исходная ошибка доступна через Unwrap")

	plain := classifySendError(errors.New("обрыв соединения"))
	require.ErrorAs(t, plain, &permanent)
	assert.Equal(t, "обрыв соединения", permanent.Error())

	assert.NoError(t, classifySendError(nil))
}

func TestAuthErrorMapping(t *testing.T) {
	cases := []struct {
		in   error
		want error
	}{
		{tgerr.New(400, "PHONE_CODE_INVALID"), ErrCodeInvalid},
		{tgerr.New(400, "PHONE_CODE_EXPIRED"), ErrCodeExpired},
		{tgerr.New(400, "PHONE_NUMBER_INVALID"), ErrPhoneInvalid},
		{tgerr.New(400, "PASSWORD_HASH_INVALID"), ErrPasswordInvalid},
	}
	for _, c := range cases {
		assert.ErrorIs(t, authError(c.in), c.want)
	}

	var throttle *ThrottleError
	require.ErrorAs(t, authError(tgerr.New(420, "FLOOD_WAIT_60")), &throttle)
	assert.Equal(t, "подождите 60 секунд перед повторной попыткой", throttle.Error())

	other := errors.New("что-то другое")
	assert.Equal(t, other, authError(other))
}
