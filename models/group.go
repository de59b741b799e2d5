package models

import "time"

// Group описывает группу, в которую аккаунт рассылает сообщения.
// group_link уникален в пределах аккаунта,
// group_id_telegram заполняется только после успешного вступления.
type Group struct {
	ID              int64      `json:"id"`
	Link            string     `json:"group_link"`
	Title           string     `json:"group_title"`
	TelegramID      int64      `json:"group_id_telegram"`
	AccessHash      int64      `json:"access_hash"` // 0 для обычных чатов, у каналов и супергрупп всегда заполнен
	MembersCount    int        `json:"members_count"`
	IsActive        bool       `json:"is_active"`
	AddedAt         time.Time  `json:"added_at"`
	LastMessageSent *time.Time `json:"last_message_sent"`
}

// GroupInfo возвращается транспортом после вступления в группу.
type GroupInfo struct {
	Title        string `json:"title"`
	TelegramID   int64  `json:"id"`
	AccessHash   int64  `json:"access_hash"`
	MembersCount int    `json:"members_count"`
}
