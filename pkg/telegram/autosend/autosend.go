// Package autosend содержит планировщик рассылки: пул сессий, отправку по группам,
// проход по всем аккаунтам и операции для внешнего API.
package autosend

import (
	"context"
	"errors"

	"autosender/models"
	"autosender/pkg/storage"
	"autosender/pkg/telegram"
)

var (
	ErrNoActiveMessages   = errors.New("нет активных сообщений")
	ErrNoActiveGroups     = errors.New("нет активных групп")
	ErrSessionUnavailable = errors.New("сессия недоступна, выполните вход")
	ErrGroupExists        = errors.New("группа уже добавлена")
	ErrGroupSave          = errors.New("не удалось сохранить группу")
	ErrUnknownSetting     = errors.New("неизвестная настройка")
	ErrInvalidSetting     = errors.New("некорректное значение настройки")
	ErrNotFound           = errors.New("запись не найдена")
)

// Repository описывает хранилище одного аккаунта. Реализация: *storage.DB.
type Repository interface {
	GetUser(ctx context.Context) *models.UserAccount
	UserExists(ctx context.Context) bool
	SaveUser(ctx context.Context, phone, sessionFile string) bool

	GetGroups(ctx context.Context, activeOnly bool) []models.Group
	GroupExists(ctx context.Context, link string) bool
	AddGroup(ctx context.Context, link string, info models.GroupInfo) bool
	UpdateGroupStatus(ctx context.Context, id int64, active bool) bool
	DeleteGroup(ctx context.Context, id int64) bool
	MarkGroupSent(ctx context.Context, id int64) bool

	GetMessages(ctx context.Context, activeOnly bool) []models.Message
	GetMessage(ctx context.Context, id int64) *models.Message
	GetDueMessages(ctx context.Context) []models.Message
	AddMessage(ctx context.Context, text string, minMinutes, maxMinutes int) bool
	RescheduleAfterSend(ctx context.Context, id int64) bool
	UpdateMessageStatus(ctx context.Context, id int64, active bool) bool
	DeleteMessage(ctx context.Context, id int64) bool

	GetSetting(ctx context.Context, key, def string) string
	SetSetting(ctx context.Context, key, value string) bool
	GetAllSettings(ctx context.Context) []models.Setting

	RecordStats(ctx context.Context, sent, successful, failed int) bool
	GetTotalStats(ctx context.Context) models.TotalStats
}

// Accounts описывает каталог аккаунтов.
type Accounts interface {
	Create(id string) error
	Exists(id string) bool
	List() ([]string, error)
	Delete(id string) error
	Repository(id string) (Repository, error)
}

// Session описывает живое подключение аккаунта. Реализация: *telegram.Session.
type Session interface {
	IsConnected() bool
	SendText(ctx context.Context, g models.Group, text string) error
	JoinGroup(ctx context.Context, link string) (models.GroupInfo, error)
	Disconnect(ctx context.Context) error
}

// Connector поднимает сессию по сохранённой учётной записи.
type Connector interface {
	Establish(ctx context.Context, user models.UserAccount) (Session, error)
}

// ConnectorFunc позволяет передать функцию как Connector.
type ConnectorFunc func(ctx context.Context, user models.UserAccount) (Session, error)

func (f ConnectorFunc) Establish(ctx context.Context, user models.UserAccount) (Session, error) {
	return f(ctx, user)
}

type directoryAccounts struct {
	*storage.Directory
}

func (d directoryAccounts) Repository(id string) (Repository, error) {
	db, err := d.Open(id)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// FromDirectory открывает аккаунты из каталога на диске.
func FromDirectory(d *storage.Directory) Accounts {
	return directoryAccounts{d}
}

// FromTransport поднимает сессии через MTProto.
func FromTransport(t *telegram.Transport) Connector {
	return ConnectorFunc(func(ctx context.Context, user models.UserAccount) (Session, error) {
		s, err := t.Establish(ctx, user)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}
