package autosend

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"autosender/models"
)

// Service собирает операции для внешнего API. В решения планировщика не вмешивается.
type Service struct {
	accounts Accounts
	pool     *Pool
	engine   *Engine
	log      zerolog.Logger
}

func NewService(accounts Accounts, pool *Pool, engine *Engine, log zerolog.Logger) *Service {
	return &Service{
		accounts: accounts,
		pool:     pool,
		engine:   engine,
		log:      log.With().Str("component", "service").Logger(),
	}
}

// Repository открывает хранилище аккаунта.
func (s *Service) Repository(accountID string) (Repository, error) {
	return s.accounts.Repository(accountID)
}

// ---- аккаунты ----

func (s *Service) CreateAccount(accountID string) error {
	return s.accounts.Create(accountID)
}

// AccountInfo описывает аккаунт в списке.
type AccountInfo struct {
	ID       string `json:"id"`
	LoggedIn bool   `json:"logged_in"`
}

// ListAccounts перечисляет аккаунты и отмечает, выполнен ли в них вход.
func (s *Service) ListAccounts(ctx context.Context) ([]AccountInfo, error) {
	ids, err := s.accounts.List()
	if err != nil {
		return nil, err
	}
	infos := make([]AccountInfo, 0, len(ids))
	for _, id := range ids {
		info := AccountInfo{ID: id}
		repo, err := s.accounts.Repository(id)
		if err != nil {
			s.log.Warn().Err(err).Str("account", id).Msg("[SERVICE] аккаунт недоступен")
		} else {
			info.LoggedIn = repo.UserExists(ctx)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (s *Service) AccountExists(accountID string) bool {
	return s.accounts.Exists(accountID)
}

// DeleteAccount дожидается текущей рассылки аккаунта, закрывает сессию и удаляет данные.
// Пока удаление идёт, плановый проход и SendNow этого аккаунта ждут на том же замке.
func (s *Service) DeleteAccount(ctx context.Context, accountID string) error {
	if err := s.engine.locks.Lock(ctx, accountID); err != nil {
		return err
	}
	defer s.engine.locks.Unlock(accountID)

	s.pool.Cleanup(ctx, accountID)
	return s.accounts.Delete(accountID)
}

// ResetSession закрывает сессию аккаунта, следующий проход поднимет её заново.
func (s *Service) ResetSession(ctx context.Context, accountID string) {
	s.pool.Cleanup(ctx, accountID)
}

// CompleteLogin сохраняет учётную запись после входа и сбрасывает старую сессию пула.
func (s *Service) CompleteLogin(ctx context.Context, accountID, phone, ref string) error {
	repo, err := s.accounts.Repository(accountID)
	if err != nil {
		return err
	}
	if !repo.SaveUser(ctx, phone, ref) {
		return fmt.Errorf("не удалось сохранить учётную запись аккаунта %s", accountID)
	}
	s.pool.Cleanup(ctx, accountID)
	return nil
}

// ---- рассылка ----

func (s *Service) SendNow(ctx context.Context, accountID string) (*SendResult, error) {
	return s.engine.SendNow(ctx, accountID)
}

// ---- сообщения ----

// AddMessage добавляет шаблон. false означает, что аккаунта нет, интервал некорректен или запись не удалась.
func (s *Service) AddMessage(ctx context.Context, accountID, text string, minMinutes, maxMinutes int) bool {
	repo, err := s.accounts.Repository(accountID)
	if err != nil {
		s.log.Warn().Err(err).Str("account", accountID).Msg("[SERVICE] аккаунт недоступен")
		return false
	}
	return repo.AddMessage(ctx, text, minMinutes, maxMinutes)
}

// Intervals возвращает текущие min_interval и max_interval аккаунта.
func (s *Service) Intervals(ctx context.Context, accountID string) (int, int, error) {
	repo, err := s.accounts.Repository(accountID)
	if err != nil {
		return 0, 0, err
	}
	minMinutes, err := strconv.Atoi(repo.GetSetting(ctx, models.SettingMinInterval, "60"))
	if err != nil {
		minMinutes = 60
	}
	maxMinutes, err := strconv.Atoi(repo.GetSetting(ctx, models.SettingMaxInterval, "90"))
	if err != nil {
		maxMinutes = 90
	}
	return minMinutes, maxMinutes, nil
}

func (s *Service) Messages(ctx context.Context, accountID string) ([]models.Message, error) {
	repo, err := s.accounts.Repository(accountID)
	if err != nil {
		return nil, err
	}
	return repo.GetMessages(ctx, false), nil
}

// Message возвращает одно сообщение аккаунта.
func (s *Service) Message(ctx context.Context, accountID string, id int64) (*models.Message, error) {
	repo, err := s.accounts.Repository(accountID)
	if err != nil {
		return nil, err
	}
	msg := repo.GetMessage(ctx, id)
	if msg == nil {
		return nil, ErrNotFound
	}
	return msg, nil
}

func (s *Service) SetMessageActive(ctx context.Context, accountID string, id int64, active bool) error {
	repo, err := s.accounts.Repository(accountID)
	if err != nil {
		return err
	}
	if !repo.UpdateMessageStatus(ctx, id, active) {
		return ErrNotFound
	}
	return nil
}

func (s *Service) DeleteMessage(ctx context.Context, accountID string, id int64) error {
	repo, err := s.accounts.Repository(accountID)
	if err != nil {
		return err
	}
	if !repo.DeleteMessage(ctx, id) {
		return ErrNotFound
	}
	return nil
}

// ---- группы ----

// AddGroup вступает в группу через сессию аккаунта и сохраняет её.
// Вступление идёт под блокировкой аккаунта, чтобы не пересечься с рассылкой.
func (s *Service) AddGroup(ctx context.Context, accountID, link string) (*models.GroupInfo, error) {
	repo, err := s.accounts.Repository(accountID)
	if err != nil {
		return nil, err
	}
	if repo.GroupExists(ctx, link) {
		return nil, ErrGroupExists
	}

	if err := s.engine.locks.Lock(ctx, accountID); err != nil {
		return nil, err
	}
	defer s.engine.locks.Unlock(accountID)
	// пока ждали замок, аккаунт могли удалить
	if repo, err = s.accounts.Repository(accountID); err != nil {
		return nil, err
	}

	session := s.pool.GetOrCreateSession(ctx, accountID, repo)
	if session == nil {
		return nil, ErrSessionUnavailable
	}
	info, err := session.JoinGroup(ctx, link)
	if err != nil {
		s.log.Warn().Err(err).Str("account", accountID).Str("link", link).Msg("[SERVICE] не удалось вступить в группу")
		return nil, err
	}
	if !repo.AddGroup(ctx, link, info) {
		if repo.GroupExists(ctx, link) {
			return nil, ErrGroupExists
		}
		return nil, ErrGroupSave
	}
	s.log.Info().Str("account", accountID).Str("title", info.Title).Int("members", info.MembersCount).Msg("[SERVICE] группа добавлена")
	return &info, nil
}

func (s *Service) Groups(ctx context.Context, accountID string) ([]models.Group, error) {
	repo, err := s.accounts.Repository(accountID)
	if err != nil {
		return nil, err
	}
	return repo.GetGroups(ctx, false), nil
}

func (s *Service) SetGroupActive(ctx context.Context, accountID string, id int64, active bool) error {
	repo, err := s.accounts.Repository(accountID)
	if err != nil {
		return err
	}
	if !repo.UpdateGroupStatus(ctx, id, active) {
		return ErrNotFound
	}
	return nil
}

func (s *Service) DeleteGroup(ctx context.Context, accountID string, id int64) error {
	repo, err := s.accounts.Repository(accountID)
	if err != nil {
		return err
	}
	if !repo.DeleteGroup(ctx, id) {
		return ErrNotFound
	}
	return nil
}

// ---- настройки и статистика ----

func (s *Service) GetStatistics(ctx context.Context, accountID string) (models.TotalStats, error) {
	repo, err := s.accounts.Repository(accountID)
	if err != nil {
		return models.TotalStats{}, err
	}
	return repo.GetTotalStats(ctx), nil
}

func (s *Service) Settings(ctx context.Context, accountID string) ([]models.Setting, error) {
	repo, err := s.accounts.Repository(accountID)
	if err != nil {
		return nil, err
	}
	return repo.GetAllSettings(ctx), nil
}

func (s *Service) GetSetting(ctx context.Context, accountID, key, def string) (string, error) {
	repo, err := s.accounts.Repository(accountID)
	if err != nil {
		return "", err
	}
	return repo.GetSetting(ctx, key, def), nil
}

// SetSetting проверяет ключ и значение. Интервалы и задержка должны быть неотрицательными целыми,
// auto_send принимает "0" или "1", min_interval не больше max_interval.
func (s *Service) SetSetting(ctx context.Context, accountID, key, value string) error {
	if !models.IsKnownSetting(key) {
		return fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}
	repo, err := s.accounts.Repository(accountID)
	if err != nil {
		return err
	}
	if err := validateSetting(ctx, repo, key, value); err != nil {
		return err
	}
	if !repo.SetSetting(ctx, key, value) {
		return fmt.Errorf("не удалось сохранить настройку %s", key)
	}
	return nil
}

// ToggleAutoSend переключает auto_send и возвращает новое значение.
func (s *Service) ToggleAutoSend(ctx context.Context, accountID string) (bool, error) {
	repo, err := s.accounts.Repository(accountID)
	if err != nil {
		return false, err
	}
	next := "1"
	if repo.GetSetting(ctx, models.SettingAutoSend, "1") == "1" {
		next = "0"
	}
	if !repo.SetSetting(ctx, models.SettingAutoSend, next) {
		return false, fmt.Errorf("не удалось сохранить настройку %s", models.SettingAutoSend)
	}
	return next == "1", nil
}

func validateSetting(ctx context.Context, repo Repository, key, value string) error {
	if key == models.SettingAutoSend {
		if value != "0" && value != "1" {
			return fmt.Errorf("%w: auto_send принимает 0 или 1", ErrInvalidSetting)
		}
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return fmt.Errorf("%w: %s должен быть неотрицательным целым", ErrInvalidSetting, key)
	}
	switch key {
	case models.SettingMinInterval:
		if n == 0 {
			return fmt.Errorf("%w: min_interval должен быть больше нуля", ErrInvalidSetting)
		}
		if maxMinutes, err := strconv.Atoi(repo.GetSetting(ctx, models.SettingMaxInterval, "")); err == nil && n > maxMinutes {
			return fmt.Errorf("%w: min_interval больше max_interval", ErrInvalidSetting)
		}
	case models.SettingMaxInterval:
		if minMinutes, err := strconv.Atoi(repo.GetSetting(ctx, models.SettingMinInterval, "")); err == nil && n < minMinutes {
			return fmt.Errorf("%w: max_interval меньше min_interval", ErrInvalidSetting)
		}
	}
	return nil
}
