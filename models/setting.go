package models

// Ключи настроек аккаунта.
const (
	SettingMinInterval = "min_interval" // минуты
	SettingMaxInterval = "max_interval" // минуты
	SettingAutoSend    = "auto_send"    // "1" или "0"
	SettingSendDelay   = "send_delay"   // секунды между отправками в группы
)

// Setting описывает строку таблицы settings.
type Setting struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

// DefaultSettings засеваются при создании базы аккаунта и никогда не перезаписывают существующие значения.
var DefaultSettings = []Setting{
	{Key: SettingMinInterval, Value: "60", Description: "Минимальный интервал между сообщениями (минуты)"},
	{Key: SettingMaxInterval, Value: "90", Description: "Максимальный интервал между сообщениями (минуты)"},
	{Key: SettingAutoSend, Value: "1", Description: "Автоотправка включена (1/0)"},
	{Key: SettingSendDelay, Value: "2", Description: "Задержка между отправками в группы (секунды)"},
}

// IsKnownSetting сообщает, входит ли ключ в список поддерживаемых настроек.
func IsKnownSetting(key string) bool {
	for _, s := range DefaultSettings {
		if s.Key == key {
			return true
		}
	}
	return false
}
