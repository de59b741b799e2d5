package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"autosender/internal/httputil"
	"autosender/pkg/telegram/login"
)

// Accounts проверяет, что аккаунт для входа существует.
type Accounts interface {
	AccountExists(accountID string) bool
}

// Handler ведёт пошаговый вход в Telegram: телефон, код, пароль 2FA.
type Handler struct {
	accounts Accounts
	wizard   *login.Wizard
	log      zerolog.Logger
}

func NewHandler(accounts Accounts, wizard *login.Wizard, log zerolog.Logger) *Handler {
	return &Handler{accounts: accounts, wizard: wizard, log: log}
}

func stateJSON(id string, s login.State) gin.H {
	return gin.H{"login_id": id, "account_id": s.Account(), "step": s.Step()}
}

// Start начинает вход для аккаунта.
func (h *Handler) Start(c *gin.Context) {
	accountID := c.Param("id")
	if !h.accounts.AccountExists(accountID) {
		httputil.RespondError(c, http.StatusNotFound, "аккаунт не найден")
		return
	}
	id, state := h.wizard.Start(accountID)
	c.JSON(http.StatusCreated, stateJSON(id, state))
}

func (h *Handler) Get(c *gin.Context) {
	id := c.Param("login_id")
	state, ok := h.wizard.Get(id)
	if !ok {
		httputil.RespondErr(c, login.ErrLoginNotFound)
		return
	}
	c.JSON(http.StatusOK, stateJSON(id, state))
}

func (h *Handler) Cancel(c *gin.Context) {
	h.wizard.Cancel(c.Param("login_id"))
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

func (h *Handler) Phone(c *gin.Context) {
	var input struct {
		Phone string `json:"phone" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		httputil.RespondError(c, http.StatusBadRequest, "нужен номер телефона")
		return
	}
	h.step(c, func(id string) (login.State, error) {
		return h.wizard.SubmitPhone(c.Request.Context(), id, input.Phone)
	})
}

func (h *Handler) Code(c *gin.Context) {
	var input struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		httputil.RespondError(c, http.StatusBadRequest, "нужен код подтверждения")
		return
	}
	h.step(c, func(id string) (login.State, error) {
		return h.wizard.SubmitCode(c.Request.Context(), id, input.Code)
	})
}

func (h *Handler) Password(c *gin.Context) {
	var input struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		httputil.RespondError(c, http.StatusBadRequest, "нужен пароль")
		return
	}
	h.step(c, func(id string) (login.State, error) {
		return h.wizard.SubmitPassword(c.Request.Context(), id, input.Password)
	})
}

// step выполняет шаг мастера. Ошибки Telegram отдаются клиенту дословно вместе с текущим шагом.
func (h *Handler) step(c *gin.Context, fn func(id string) (login.State, error)) {
	id := c.Param("login_id")
	state, err := fn(id)
	if err != nil {
		body := gin.H{"error": err.Error()}
		if state != nil {
			body["step"] = state.Step()
		}
		h.log.Warn().Err(err).Str("login_id", id).Msg("[HTTP] шаг входа не выполнен")
		c.AbortWithStatusJSON(httputil.StatusFor(err), body)
		return
	}
	c.JSON(http.StatusOK, stateJSON(id, state))
}
