package auth

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"autosender/pkg/telegram/login"
)

// SetupRoutes регистрирует старт входа в /accounts и шаги мастера в /login
func SetupRoutes(accountsGroup, loginGroup *gin.RouterGroup, accounts Accounts, wizard *login.Wizard, log zerolog.Logger) {
	h := NewHandler(accounts, wizard, log)
	accountsGroup.POST("/:id/login", h.Start)

	loginGroup.GET("/:login_id", h.Get)
	loginGroup.DELETE("/:login_id", h.Cancel)
	loginGroup.POST("/:login_id/phone", h.Phone)
	loginGroup.POST("/:login_id/code", h.Code)
	loginGroup.POST("/:login_id/password", h.Password)
}
