package models

// Proxy описывает SOCKS5-прокси, через который клиенты подключаются к Telegram.
type Proxy struct {
	IP       string `json:"ip"`
	Port     int    `json:"port"`
	Login    string `json:"login"`
	Password string `json:"password"`
}
