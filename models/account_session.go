package models

import "time"

// AccountSession хранит сериализованную сессию Telegram в Postgres.
// Name совпадает с именем файла сессии, поэтому обе реализации хранилища взаимозаменяемы.
type AccountSession struct {
	Name     string    `json:"name"`      // Имя сессии, производное от номера телефона
	DateTime time.Time `json:"date_time"` // Время последнего сохранения
	DataJSON string    `json:"data_json"` // Содержимое сессии в формате JSON
}
