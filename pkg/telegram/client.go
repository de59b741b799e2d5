package telegram

import (
	"fmt"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/dcs"
	"github.com/rs/zerolog"
	"golang.org/x/net/proxy"

	"autosender/models"
)

// Config хранит параметры MTProto, общие для всех аккаунтов.
type Config struct {
	APIID     int
	APIHash   string
	Proxy     *models.Proxy
	RateLimit int // Запросов в секунду на одну сессию
}

// newClient создаёт клиент Telegram с указанным хранилищем сессии и, при необходимости, SOCKS5-прокси.
func newClient(cfg Config, storage session.Storage, log zerolog.Logger) (*telegram.Client, error) {
	opts := telegram.Options{SessionStorage: storage}
	if p := cfg.Proxy; p != nil {
		addr := fmt.Sprintf("%s:%d", p.IP, p.Port)
		var auth *proxy.Auth
		if p.Login != "" || p.Password != "" {
			auth = &proxy.Auth{User: p.Login, Password: p.Password}
		}
		d, err := proxy.SOCKS5("tcp", addr, auth, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("proxy dialer: %w", err)
		}
		dc, ok := d.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("proxy dialer missing context")
		}
		opts.Resolver = dcs.Plain(dcs.PlainOptions{Dial: dc.DialContext})
		log.Debug().Str("proxy", addr).Msg("[PROXY] подключение через прокси")
	}
	return telegram.NewClient(cfg.APIID, cfg.APIHash, opts), nil
}
