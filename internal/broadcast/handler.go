package broadcast

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"autosender/internal/httputil"
	"autosender/models"
	"autosender/pkg/telegram/autosend"
)

// Handler обслуживает группы, сообщения, настройки и статистику аккаунта.
type Handler struct {
	svc *autosend.Service
	log zerolog.Logger
}

func NewHandler(svc *autosend.Service, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

type statusInput struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// ---- группы ----

func (h *Handler) Groups(c *gin.Context) {
	groups, err := h.svc.Groups(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondErr(c, err)
		return
	}
	if groups == nil {
		groups = []models.Group{}
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// AddGroup вступает в группу по ссылке и добавляет её в рассылку.
func (h *Handler) AddGroup(c *gin.Context) {
	var input struct {
		Link string `json:"link" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		httputil.RespondError(c, http.StatusBadRequest, "нужна ссылка на группу")
		return
	}
	info, err := h.svc.AddGroup(c.Request.Context(), c.Param("id"), input.Link)
	if err != nil {
		httputil.RespondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

func (h *Handler) UpdateGroup(c *gin.Context) {
	id, ok := httputil.ParamID(c, "group_id")
	if !ok {
		return
	}
	var input statusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		httputil.RespondError(c, http.StatusBadRequest, "нужен is_active")
		return
	}
	if err := h.svc.SetGroupActive(c.Request.Context(), c.Param("id"), id, *input.IsActive); err != nil {
		httputil.RespondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "is_active": *input.IsActive})
}

func (h *Handler) DeleteGroup(c *gin.Context) {
	id, ok := httputil.ParamID(c, "group_id")
	if !ok {
		return
	}
	if err := h.svc.DeleteGroup(c.Request.Context(), c.Param("id"), id); err != nil {
		httputil.RespondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// ---- сообщения ----

func (h *Handler) Messages(c *gin.Context) {
	messages, err := h.svc.Messages(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondErr(c, err)
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (h *Handler) Message(c *gin.Context) {
	id, ok := httputil.ParamID(c, "message_id")
	if !ok {
		return
	}
	msg, err := h.svc.Message(c.Request.Context(), c.Param("id"), id)
	if err != nil {
		httputil.RespondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// AddMessage добавляет шаблон. Без min/max берутся текущие интервалы аккаунта.
func (h *Handler) AddMessage(c *gin.Context) {
	accountID := c.Param("id")
	var input struct {
		Text       string `json:"text" binding:"required"`
		MinMinutes int    `json:"min_minutes"`
		MaxMinutes int    `json:"max_minutes"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		httputil.RespondError(c, http.StatusBadRequest, "нужен текст сообщения")
		return
	}
	if !h.svc.AccountExists(accountID) {
		httputil.RespondError(c, http.StatusNotFound, "аккаунт не найден")
		return
	}
	if input.MinMinutes == 0 && input.MaxMinutes == 0 {
		minMinutes, maxMinutes, err := h.svc.Intervals(c.Request.Context(), accountID)
		if err != nil {
			httputil.RespondErr(c, err)
			return
		}
		input.MinMinutes, input.MaxMinutes = minMinutes, maxMinutes
	}
	if !h.svc.AddMessage(c.Request.Context(), accountID, input.Text, input.MinMinutes, input.MaxMinutes) {
		httputil.RespondError(c, http.StatusBadRequest, "некорректный интервал: нужно 0 < min_minutes <= max_minutes")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "added", "min_minutes": input.MinMinutes, "max_minutes": input.MaxMinutes})
}

func (h *Handler) UpdateMessage(c *gin.Context) {
	id, ok := httputil.ParamID(c, "message_id")
	if !ok {
		return
	}
	var input statusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		httputil.RespondError(c, http.StatusBadRequest, "нужен is_active")
		return
	}
	if err := h.svc.SetMessageActive(c.Request.Context(), c.Param("id"), id, *input.IsActive); err != nil {
		httputil.RespondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "is_active": *input.IsActive})
}

func (h *Handler) DeleteMessage(c *gin.Context) {
	id, ok := httputil.ParamID(c, "message_id")
	if !ok {
		return
	}
	if err := h.svc.DeleteMessage(c.Request.Context(), c.Param("id"), id); err != nil {
		httputil.RespondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// ---- настройки и статистика ----

func (h *Handler) Settings(c *gin.Context) {
	settings, err := h.svc.Settings(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

func (h *Handler) SetSetting(c *gin.Context) {
	var input struct {
		Value string `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		httputil.RespondError(c, http.StatusBadRequest, "нужно значение настройки")
		return
	}
	key := c.Param("key")
	if err := h.svc.SetSetting(c.Request.Context(), c.Param("id"), key, input.Value); err != nil {
		httputil.RespondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": input.Value})
}

func (h *Handler) ToggleAutoSend(c *gin.Context) {
	enabled, err := h.svc.ToggleAutoSend(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondErr(c, err)
		return
	}
	h.log.Info().Str("account", c.Param("id")).Bool("auto_send", enabled).Msg("[HTTP] автоотправка переключена")
	c.JSON(http.StatusOK, gin.H{"auto_send": enabled})
}

func (h *Handler) Statistics(c *gin.Context) {
	stats, err := h.svc.GetStatistics(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
