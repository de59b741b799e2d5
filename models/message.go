package models

import "time"

// Message описывает шаблон рассылки.
// min_minutes/max_minutes задают границы случайного интервала при первом планировании,
// дальнейшие переносы next_send считаются по текущим настройкам аккаунта.
type Message struct {
	ID         int64      `json:"id"`
	Text       string     `json:"message_text"`
	MinMinutes int        `json:"min_minutes"`
	MaxMinutes int        `json:"max_minutes"`
	IsActive   bool       `json:"is_active"`
	TotalSent  int        `json:"total_sent"`
	CreatedAt  time.Time  `json:"created_at"`
	LastSent   *time.Time `json:"last_sent"`
	NextSend   *time.Time `json:"next_send"`
}
