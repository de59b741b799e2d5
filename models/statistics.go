package models

// Statistics отражает запись таблицы statistics за конкретную дату.
// Повторные записи за ту же дату складываются, а не перезаписываются.
type Statistics struct {
	Date            string `json:"date"` // YYYY-MM-DD по локальному времени
	MessagesSent    int    `json:"messages_sent"`
	SuccessfulSends int    `json:"successful_sends"`
	FailedSends     int    `json:"failed_sends"`
}

// TotalStats содержит сводку по аккаунту для фронтенда.
type TotalStats struct {
	TotalSent       int `json:"total_sent"`
	TotalGroups     int `json:"total_groups"`
	TotalMessages   int `json:"total_messages"`
	TodaySent       int `json:"today_sent"`
	TodaySuccessful int `json:"today_successful"`
	TodayFailed     int `json:"today_failed"`
}
