package accounts

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"autosender/internal/httputil"
	"autosender/pkg/telegram/autosend"
)

// Handler управляет аккаунтами и ручной рассылкой.
type Handler struct {
	svc *autosend.Service
	log zerolog.Logger
}

func NewHandler(svc *autosend.Service, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// List возвращает все аккаунты с признаком выполненного входа.
func (h *Handler) List(c *gin.Context) {
	accounts, err := h.svc.ListAccounts(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("[HTTP] не удалось прочитать каталог аккаунтов")
		httputil.RespondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

// Create создаёт каталог и базу нового аккаунта.
func (h *Handler) Create(c *gin.Context) {
	var input struct {
		ID string `json:"id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		httputil.RespondError(c, http.StatusBadRequest, "нужен id аккаунта")
		return
	}
	if err := h.svc.CreateAccount(input.ID); err != nil {
		httputil.RespondErr(c, err)
		return
	}
	h.log.Info().Str("account", input.ID).Msg("[HTTP] аккаунт создан")
	c.JSON(http.StatusCreated, gin.H{"id": input.ID})
}

// Delete закрывает сессию и удаляет все данные аккаунта.
func (h *Handler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.DeleteAccount(c.Request.Context(), id); err != nil {
		httputil.RespondErr(c, err)
		return
	}
	h.log.Info().Str("account", id).Msg("[HTTP] аккаунт удалён")
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// SendNow рассылает все активные сообщения во все активные группы, не дожидаясь расписания.
func (h *Handler) SendNow(c *gin.Context) {
	res, err := h.svc.SendNow(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ResetSession закрывает живую сессию аккаунта. Следующий проход поднимет её заново.
func (h *Handler) ResetSession(c *gin.Context) {
	id := c.Param("id")
	if !h.svc.AccountExists(id) {
		httputil.RespondError(c, http.StatusNotFound, "аккаунт не найден")
		return
	}
	h.svc.ResetSession(c.Request.Context(), id)
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}
