package httputil

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"autosender/pkg/storage"
	"autosender/pkg/telegram"
	"autosender/pkg/telegram/autosend"
	"autosender/pkg/telegram/login"
)

// RespondError отправляет сообщение об ошибке в едином формате и прекращает обработку запроса.
// Используем AbortWithStatusJSON, чтобы последующие обработчики не выполнялись, даже если забыли вернуть управление.
func RespondError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// RespondErr подбирает HTTP-статус по ошибке сервиса. Текст ошибки уходит клиенту как есть.
func RespondErr(c *gin.Context, err error) {
	RespondError(c, StatusFor(err), err.Error())
}

// StatusFor сопоставляет ошибки сервиса с HTTP-статусами.
func StatusFor(err error) int {
	var throttle *telegram.ThrottleError
	var permanent *telegram.PermanentError
	switch {
	case errors.As(err, &throttle):
		return http.StatusTooManyRequests
	case errors.Is(err, storage.ErrAccountNotFound),
		errors.Is(err, autosend.ErrNotFound),
		errors.Is(err, login.ErrLoginNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrAccountExists),
		errors.Is(err, autosend.ErrGroupExists):
		return http.StatusConflict
	case errors.Is(err, autosend.ErrSessionUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, storage.ErrInvalidAccountID),
		errors.Is(err, autosend.ErrNoActiveMessages),
		errors.Is(err, autosend.ErrNoActiveGroups),
		errors.Is(err, autosend.ErrUnknownSetting),
		errors.Is(err, autosend.ErrInvalidSetting),
		errors.Is(err, login.ErrInvalidPhone),
		errors.Is(err, login.ErrWrongStep),
		errors.Is(err, telegram.ErrInvalidLink),
		errors.Is(err, telegram.ErrNotGroup),
		errors.Is(err, telegram.ErrCodeInvalid),
		errors.Is(err, telegram.ErrCodeExpired),
		errors.Is(err, telegram.ErrPasswordInvalid),
		errors.Is(err, telegram.ErrPhoneInvalid),
		errors.As(err, &permanent):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// ParamID разбирает числовой параметр пути. При ошибке отвечает 400 и возвращает false.
func ParamID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		RespondError(c, http.StatusBadRequest, "некорректный "+name)
		return 0, false
	}
	return id, true
}
