package broadcast

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"autosender/pkg/telegram/autosend"
)

// SetupRoutes регистрирует маршруты рассылки в группе /accounts/:id
func SetupRoutes(r *gin.RouterGroup, svc *autosend.Service, log zerolog.Logger) {
	h := NewHandler(svc, log)

	r.GET("/groups", h.Groups)
	r.POST("/groups", h.AddGroup)
	r.PATCH("/groups/:group_id", h.UpdateGroup)
	r.DELETE("/groups/:group_id", h.DeleteGroup)

	r.GET("/messages", h.Messages)
	r.POST("/messages", h.AddMessage)
	r.GET("/messages/:message_id", h.Message)
	r.PATCH("/messages/:message_id", h.UpdateMessage)
	r.DELETE("/messages/:message_id", h.DeleteMessage)

	r.GET("/settings", h.Settings)
	r.PUT("/settings/:key", h.SetSetting)
	r.POST("/settings/auto-send/toggle", h.ToggleAutoSend)

	r.GET("/statistics", h.Statistics)
}
