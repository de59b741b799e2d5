package accounts

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"autosender/pkg/telegram/autosend"
)

// SetupRoutes регистрирует маршруты аккаунтов в группе /accounts
func SetupRoutes(r *gin.RouterGroup, svc *autosend.Service, log zerolog.Logger) {
	h := NewHandler(svc, log)
	r.GET("", h.List)
	r.POST("", h.Create)
	r.DELETE("/:id", h.Delete)
	r.POST("/:id/send-now", h.SendNow)
	r.POST("/:id/session/reset", h.ResetSession)
}
